package service

import (
	"path/filepath"

	"github.com/okian/evalfast/internal/adapters/cohort"
	"github.com/okian/evalfast/internal/adapters/followup"
	"github.com/okian/evalfast/internal/adapters/render"
	"github.com/okian/evalfast/internal/config"
	"github.com/okian/evalfast/pkg/logger"
)

// NewFromConfig wires the adapters described by cfg. Extra options are
// applied last.
func NewFromConfig(cfg *config.Config, log logger.Logger, opts ...Option) (*Service, error) {
	enc, err := cohort.EncodingByName(cfg.InputEncoding)
	if err != nil {
		return nil, err
	}
	store := cohort.New(
		cohort.WithDelimiter(cfg.Comma()),
		cohort.WithEncoding(enc),
		cohort.WithLogger(log.Named("cohort")),
	)

	var renderer Renderer
	if cfg.Render {
		renderer = render.New(cfg.OutputDir,
			render.WithDPI(cfg.DPI),
			render.WithBins(cfg.HistogramBins),
			render.WithAnnotation(cfg.Annotation),
			render.WithLogger(log.Named("render")),
		)
	}

	enriched := cfg.EnrichedPath
	if enriched != "" && !filepath.IsAbs(enriched) {
		enriched = filepath.Join(cfg.OutputDir, enriched)
	}

	base := []Option{
		WithLogger(log),
		WithCohortStore(store),
		WithFollowUpSource(followup.New(cfg.DB, followup.WithLogger(log.Named("followup")))),
		WithRenderer(renderer),
		WithInputPath(cfg.InputPath),
		WithEnrichedPath(enriched),
		WithFigureNames(cfg.DistributionFigure, cfg.SurvivalFigure),
	}
	return New(append(base, opts...)...), nil
}
