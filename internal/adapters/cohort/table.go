// Package cohort reads and writes the delimited cohort table.
package cohort

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"gopkg.in/guregu/null.v3"

	"github.com/okian/evalfast/internal/domain/model"
	"github.com/okian/evalfast/pkg/logger"
)

// Cells treated as missing.
var nanValues = []string{"", "NA", "NaN", "nan", "NULL", "null"}

// Required columns of the input table.
var requiredColumns = []string{model.ColID, model.ColRelativeSurvival, model.ColCancer}

// Dataset pairs the raw table with its domain view. Row i of Frame is
// Cohort.Patients[i].
type Dataset struct {
	Frame  dataframe.DataFrame
	Cohort *model.Cohort
}

// Table loads and stores cohort tables in one delimiter and encoding.
type Table struct {
	comma  rune
	enc    encoding.Encoding
	logger logger.Logger
}

// New creates a Table; the defaults match the study export: ';' and cp1252.
func New(opts ...Option) *Table {
	t := &Table{
		comma:  ';',
		enc:    charmap.Windows1252,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// EncodingByName maps a configured encoding name to its codec.
func EncodingByName(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// Load reads the table at path.
func (t *Table) Load(ctx context.Context, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer func() { _ = f.Close() }()

	ds, err := t.Read(ctx, f)
	if err != nil {
		return nil, err
	}
	t.logger.Info(ctx, "cohort loaded",
		logger.String("path", path),
		logger.Int("patients", len(ds.Cohort.Patients)),
		logger.Strings("columns", ds.Cohort.Columns),
	)
	return ds, nil
}

// Read decodes a table from r. Every column is kept as text; numeric
// interpretation happens when the domain view is built. Rows shorter than
// the header are padded with missing cells.
func (t *Table) Read(ctx context.Context, r io.Reader) (*Dataset, error) {
	records, err := t.records(ctx, r)
	if err != nil {
		return nil, err
	}
	df := frame(records)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, df.Err)
	}
	c, err := FromFrame(df)
	if err != nil {
		return nil, err
	}
	return &Dataset{Frame: df, Cohort: c}, nil
}

// records reads every row and aligns short rows to the header width. A row
// wider than the header is an error.
func (t *Table) records(ctx context.Context, r io.Reader) ([][]string, error) {
	cr := csv.NewReader(t.enc.NewDecoder().Reader(r))
	cr.Comma = t.comma
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrRead)
	}
	width := len(records[0])
	padded := 0
	for i := 1; i < len(records); i++ {
		switch n := len(records[i]); {
		case n > width:
			return nil, fmt.Errorf("%w: %w: row %d has %d fields, header has %d", ErrRead, ErrRaggedRow, i+1, n, width)
		case n < width:
			records[i] = append(records[i], make([]string, width-n)...)
			padded++
		}
	}
	if padded > 0 {
		t.logger.Warn(ctx, "short rows padded with missing cells", logger.Int("rows", padded))
	}
	return records, nil
}

// frame builds a string-typed frame; a header without rows gives an empty
// frame with the header's columns.
func frame(records [][]string) dataframe.DataFrame {
	if len(records) == 1 {
		cols := make([]series.Series, len(records[0]))
		for j, name := range records[0] {
			cols[j] = series.New([]string{}, series.String, name)
		}
		return dataframe.New(cols...)
	}
	return dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
}

// FromFrame builds the domain cohort from a string-typed frame.
func FromFrame(df dataframe.DataFrame) (*model.Cohort, error) {
	names := df.Names()
	var missing []string
	for _, col := range requiredColumns {
		if !contains(names, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	c := &model.Cohort{Columns: append([]string(nil), names...)}
	c.ResolveOutcomeColumns()

	n := df.Nrow()
	ids := cells(df, model.ColID, n)
	pct := cells(df, model.ColRelativeSurvival, n)
	cancer := cells(df, model.ColCancer, n)
	years := cells(df, model.ColMatchedYears, n)
	times := cells(df, c.TimeColumn, n)
	events := cells(df, c.EventColumn, n)

	c.Patients = make([]model.Patient, n)
	for i := 0; i < n; i++ {
		p := model.Patient{
			ID:               ids[i].String,
			Cancer:           strings.TrimSpace(cancer[i].String),
			RelativeSurvival: parse(pct[i]),
			TimeToEvent:      parse(times[i]),
			Event:            events[i],
		}
		if y := parse(years[i]); y.Valid {
			p.MatchedYear = null.IntFrom(int64(math.Round(y.Float64)))
		}
		c.Patients[i] = p
	}
	return c, nil
}

// SyncYears copies derived matched years into the frame, adding the column
// when it is absent. Cells the input already filled are left as read.
func SyncYears(ds *Dataset) {
	prior := cells(ds.Frame, model.ColMatchedYears, len(ds.Cohort.Patients))
	values := make([]string, len(ds.Cohort.Patients))
	for i, p := range ds.Cohort.Patients {
		switch {
		case prior[i].Valid:
			values[i] = prior[i].String
		case p.MatchedYear.Valid:
			values[i] = strconv.FormatInt(p.MatchedYear.Int64, 10)
		default:
			values[i] = "NaN"
		}
	}
	ds.Frame = ds.Frame.Mutate(series.New(values, series.String, model.ColMatchedYears))
}

// Save writes the frame to path with the table's delimiter and encoding.
// Missing cells are written empty.
func (t *Table) Save(ctx context.Context, path string, df dataframe.DataFrame) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrWrite, cerr)
		}
	}()
	if err := t.Write(ctx, f, df); err != nil {
		return err
	}
	t.logger.Info(ctx, "wrote cohort table", logger.String("path", path), logger.Int("rows", df.Nrow()))
	return nil
}

// Write encodes the frame to w.
func (t *Table) Write(_ context.Context, w io.Writer, df dataframe.DataFrame) error {
	cw := csv.NewWriter(t.enc.NewEncoder().Writer(w))
	cw.Comma = t.comma

	names := df.Names()
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	cols := make([][]null.String, len(names))
	for j, name := range names {
		cols[j] = cells(df, name, df.Nrow())
	}
	row := make([]string, len(names))
	for i := 0; i < df.Nrow(); i++ {
		for j := range names {
			row[j] = cols[j][i].String
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// cells returns a column as optional strings; an absent column is all missing.
func cells(df dataframe.DataFrame, name string, n int) []null.String {
	out := make([]null.String, n)
	if name == "" || !contains(df.Names(), name) {
		return out
	}
	s := df.Col(name)
	records := s.Records()
	nan := s.IsNaN()
	for i := 0; i < n && i < len(records); i++ {
		if nan[i] {
			continue
		}
		out[i] = null.StringFrom(records[i])
	}
	return out
}

func parse(s null.String) null.Float {
	if !s.Valid {
		return null.Float{}
	}
	return model.ParseNumber(s.String)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
