// Package config defines the report configuration and its loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches log records to JSON.
	LogJSON bool `koanf:"log_json"`

	// InputPath is the cohort table.
	InputPath string `koanf:"input_path"`
	// InputEncoding is the text encoding of the input and enriched tables: cp1252 or utf-8.
	InputEncoding string `koanf:"input_encoding"`
	// Delimiter separates fields in the input and enriched tables.
	Delimiter string `koanf:"delimiter"`
	// EnrichedPath receives the table with derived matched years. Empty disables the write.
	EnrichedPath string `koanf:"enriched_path"`

	// OutputDir receives the figures.
	OutputDir string `koanf:"output_dir"`
	// DistributionFigure and SurvivalFigure are base names; .png and .pdf are appended.
	DistributionFigure string `koanf:"distribution_figure"`
	SurvivalFigure     string `koanf:"survival_figure"`
	// Render toggles figure output.
	Render bool `koanf:"render"`
	// DPI is the raster resolution.
	DPI int `koanf:"dpi"`
	// HistogramBins is the bin count of the RSR histogram.
	HistogramBins int `koanf:"histogram_bins"`
	// Annotation is drawn in the corner of the survival figure when set.
	Annotation string `koanf:"annotation"`

	// MetricsFile receives run metrics in Prometheus text format when set.
	MetricsFile string `koanf:"metrics_file"`

	// DB holds the follow-up database settings, read from DB_* variables.
	DB DBConfig `koanf:"db"`
}

// DBConfig holds PostgreSQL connection parameters.
type DBConfig struct {
	Name     string        `koanf:"name"`
	User     string        `koanf:"user"`
	Password string        `koanf:"password"`
	Host     string        `koanf:"host"`
	Port     string        `koanf:"port"`
	SSLMode  string        `koanf:"sslmode"`
	Table    string        `koanf:"table"`
	Timeout  time.Duration `koanf:"timeout"`
}

// Missing lists the environment variables whose values are required but empty.
func (d DBConfig) Missing() []string {
	var out []string
	for _, kv := range []struct{ env, val string }{
		{"DB_NAME", d.Name},
		{"DB_USER", d.User},
		{"DB_PASSWORD", d.Password},
		{"DB_HOST", d.Host},
		{"DB_PORT", d.Port},
	} {
		if strings.TrimSpace(kv.val) == "" {
			out = append(out, kv.env)
		}
	}
	return out
}

// DSN renders the key/value connection string understood by the pgx driver.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		InputPath:          "evalfast.csv",
		InputEncoding:      "cp1252",
		Delimiter:          ";",
		EnrichedPath:       "evalfast_with_derived_matched_years.csv",
		OutputDir:          ".",
		DistributionFigure: "figure1_rsr_distribution",
		SurvivalFigure:     "km_vs_expected",
		Render:             true,
		DPI:                300,
		HistogramBins:      10,
		DB: DBConfig{
			Name:    "evalfast",
			Host:    "localhost",
			Port:    "5432",
			SSLMode: "disable",
			Table:   "psyfast_fup",
			Timeout: 15 * time.Second,
		},
	}
}

// Validate checks field values that would break the run.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case strings.TrimSpace(c.InputPath) == "":
		return fmt.Errorf("%w: input_path must not be empty", ErrInvalidConfig)
	case len([]rune(c.Delimiter)) != 1:
		return fmt.Errorf("%w: delimiter must be a single character, got %q", ErrInvalidConfig, c.Delimiter)
	case c.DPI <= 0:
		return fmt.Errorf("%w: dpi must be positive", ErrInvalidConfig)
	case c.HistogramBins <= 0:
		return fmt.Errorf("%w: histogram_bins must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.InputEncoding) {
	case "cp1252", "windows-1252", "utf-8", "utf8":
	default:
		return fmt.Errorf("%w: unsupported input_encoding %q", ErrInvalidConfig, c.InputEncoding)
	}
	return nil
}

// Comma returns the delimiter as a rune.
func (c *Config) Comma() rune {
	return []rune(c.Delimiter)[0]
}
