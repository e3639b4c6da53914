package followup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/okian/evalfast/internal/config"
	"github.com/okian/evalfast/internal/domain/enrich"
)

func completeDB() config.DBConfig {
	return config.DBConfig{
		Name: "evalfast", User: "eval", Password: "secret",
		Host: "db.local", Port: "5432", SSLMode: "disable",
		Table: "psyfast_fup", Timeout: 15 * time.Second,
	}
}

func TestSource_Check(t *testing.T) {
	convey.Convey("Given a source without user and password", t, func() {
		cfg := completeDB()
		cfg.User, cfg.Password = "", ""
		s := New(cfg)

		convey.Convey("When fetching", func() {
			recs, err := s.FetchFollowUp(context.Background(), []string{"p1"})

			convey.Convey("Then it is unavailable and names the variables", func() {
				convey.So(recs, convey.ShouldBeNil)
				convey.So(errors.Is(err, enrich.ErrUnavailable), convey.ShouldBeTrue)
				convey.So(errors.Is(err, ErrMissingCredentials), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "DB_USER, DB_PASSWORD")
			})
		})
	})

	convey.Convey("Given a table name with SQL in it", t, func() {
		cfg := completeDB()
		cfg.Table = "psyfast_fup; drop table x"
		err := New(cfg).Check()
		convey.So(errors.Is(err, ErrInvalidTable), convey.ShouldBeTrue)
	})

	convey.Convey("Given a schema qualified table", t, func() {
		cfg := completeDB()
		cfg.Table = "study.psyfast_fup"
		convey.So(New(cfg).Check(), convey.ShouldBeNil)
	})
}

// unreachableDialector fails while gorm initialises the connection pool.
type unreachableDialector struct {
	postgres.Dialector
	err error
}

func (d unreachableDialector) Initialize(*gorm.DB) error { return d.err }

func TestSource_FetchConnectFailure(t *testing.T) {
	convey.Convey("Given a source whose database cannot be reached", t, func() {
		refused := errors.New("connection refused")
		s := New(completeDB(), WithDialector(unreachableDialector{err: refused}))

		convey.Convey("When fetching", func() {
			recs, err := s.FetchFollowUp(context.Background(), []string{"p1"})

			convey.Convey("Then the connect error is returned", func() {
				convey.So(recs, convey.ShouldBeNil)
				convey.So(errors.Is(err, ErrConnect), convey.ShouldBeTrue)
				convey.So(errors.Is(err, refused), convey.ShouldBeTrue)
			})
		})
	})
}

func TestSource_DSN(t *testing.T) {
	convey.Convey("Given a complete configuration", t, func() {
		dsn := New(completeDB()).dsn()

		convey.So(dsn, convey.ShouldContainSubstring, "host=db.local")
		convey.So(dsn, convey.ShouldContainSubstring, "dbname=evalfast")
		convey.So(dsn, convey.ShouldEndWith, "connect_timeout=15")
	})
}

func TestQuery(t *testing.T) {
	convey.Convey("Given a dry-run postgres session", t, func() {
		db, err := gorm.Open(postgres.New(postgres.Config{DSN: completeDB().DSN()}), &gorm.Config{
			DryRun:               true,
			DisableAutomaticPing: true,
		})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the follow-up query selects the three columns by id", func() {
			sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				var rows []row
				return query(tx, "psyfast_fup", []string{"p1", "p2"}).Find(&rows)
			})
			convey.So(sql, convey.ShouldContainSubstring, `FROM "psyfast_fup"`)
			convey.So(sql, convey.ShouldContainSubstring, "fup_5y_all_death_time")
			convey.So(sql, convey.ShouldContainSubstring, "IN ('p1','p2')")
		})
	})
}
