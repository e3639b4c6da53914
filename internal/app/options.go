package service

import (
	"github.com/okian/evalfast/internal/domain/enrich"
	"github.com/okian/evalfast/pkg/logger"
	"github.com/okian/evalfast/pkg/metrics"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCohortStore sets how the cohort table is read and written.
func WithCohortStore(store CohortStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFollowUpSource sets where missing outcome columns are fetched from.
func WithFollowUpSource(src enrich.Source) Option {
	return func(s *Service) { s.source = src }
}

// WithRenderer sets the figure renderer; nil disables drawing.
func WithRenderer(r Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithInputPath sets the cohort table to read.
func WithInputPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.inputPath = path
		}
	}
}

// WithEnrichedPath sets where the table with derived years is written;
// empty disables the write.
func WithEnrichedPath(path string) Option {
	return func(s *Service) { s.enrichedPath = path }
}

// WithFigureNames sets the base file names of the two figures.
func WithFigureNames(distribution, survival string) Option {
	return func(s *Service) {
		if distribution != "" {
			s.distributionFigure = distribution
		}
		if survival != "" {
			s.survivalFigure = survival
		}
	}
}

// WithCheckpoints sets the number-at-risk ticks in days.
func WithCheckpoints(days []float64) Option {
	return func(s *Service) {
		if len(days) > 0 {
			s.checkpoints = days
		}
	}
}
