// Package followup reads follow-up outcomes from the study's PostgreSQL
// database.
package followup

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/guregu/null.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/okian/evalfast/internal/config"
	"github.com/okian/evalfast/internal/domain/enrich"
	"github.com/okian/evalfast/pkg/logger"
)

// Source columns.
const (
	colID        = "id"
	colDeath     = "fup_5y_all_death"
	colDeathTime = "fup_5y_all_death_time"
)

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// row is one follow-up record. Values are scanned as text and coerced by
// the enrichment step.
type row struct {
	ID        null.String `gorm:"column:id"`
	Death     null.String `gorm:"column:fup_5y_all_death"`
	DeathTime null.String `gorm:"column:fup_5y_all_death_time"`
}

// Source implements enrich.Source on top of GORM. Each fetch opens its own
// connection and closes it before returning.
type Source struct {
	cfg       config.DBConfig
	dialector gorm.Dialector
	logger    logger.Logger
}

var _ enrich.Source = (*Source)(nil)

// New creates a Source for cfg.
func New(cfg config.DBConfig, opts ...Option) *Source {
	s := &Source{cfg: cfg, logger: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check reports missing credentials or an unusable table name without
// touching the network.
func (s *Source) Check() error {
	if missing := s.cfg.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %w: set %s", enrich.ErrUnavailable, ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if !tablePattern.MatchString(s.cfg.Table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, s.cfg.Table)
	}
	return nil
}

// FetchFollowUp returns the follow-up rows whose id is in ids.
func (s *Source) FetchFollowUp(ctx context.Context, ids []string) ([]enrich.Record, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			s.logger.Warn(ctx, "closing follow-up connection", logger.Error(cerr))
		}
	}()

	var rows []row
	if err := query(db.WithContext(ctx), s.cfg.Table, ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	s.logger.Info(ctx, "follow-up rows fetched",
		logger.String("table", s.cfg.Table),
		logger.Int("ids", len(ids)),
		logger.Int("rows", len(rows)),
	)

	out := make([]enrich.Record, len(rows))
	for i, r := range rows {
		out[i] = enrich.Record{ID: r.ID.String, Event: r.Death, Time: r.DeathTime}
	}
	return out, nil
}

func (s *Source) open() (*gorm.DB, error) {
	d := s.dialector
	if d == nil {
		d = postgres.Open(s.dsn())
	}
	db, err := gorm.Open(d, &gorm.Config{Logger: newGormLogger(s.logger)})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return db, nil
}

func (s *Source) dsn() string {
	dsn := s.cfg.DSN()
	if s.cfg.Timeout > 0 {
		secs := int(s.cfg.Timeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		dsn += fmt.Sprintf(" connect_timeout=%d", secs)
	}
	return dsn
}

func query(db *gorm.DB, table string, ids []string) *gorm.DB {
	return db.Table(table).Select(colID, colDeath, colDeathTime).Where(colID+" IN ?", ids)
}
