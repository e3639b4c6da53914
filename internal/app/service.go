// Package service runs the report pipeline: load the cohort, derive the
// matched years, summarise, merge follow-up outcomes, estimate survival and
// draw the figures.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"

	"github.com/okian/evalfast/internal/adapters/cohort"
	"github.com/okian/evalfast/internal/domain/bucket"
	"github.com/okian/evalfast/internal/domain/enrich"
	"github.com/okian/evalfast/internal/domain/expected"
	"github.com/okian/evalfast/internal/domain/model"
	"github.com/okian/evalfast/internal/domain/risk"
	"github.com/okian/evalfast/internal/domain/step"
	"github.com/okian/evalfast/internal/domain/summary"
	"github.com/okian/evalfast/internal/domain/survival"
	"github.com/okian/evalfast/pkg/logger"
	"github.com/okian/evalfast/pkg/metrics"
)

// Step names used in logs and metrics.
const (
	StepEnrichedTable = "enriched_table"
	StepDistribution  = "distribution_figure"
	StepFollowUp      = "followup"
	StepExpected      = "expected"
	StepObserved      = "observed"
	StepSurvival      = "survival_figure"
)

const maxLoggedEventIDs = 20

// CohortStore reads the cohort table and writes the enriched copy.
type CohortStore interface {
	Load(ctx context.Context, path string) (*cohort.Dataset, error)
	Save(ctx context.Context, path string, df dataframe.DataFrame) error
}

// Renderer draws the two report figures.
type Renderer interface {
	Distribution(ctx context.Context, base string, patients []model.Patient, s summary.Summary) ([]string, error)
	Survival(ctx context.Context, base string, observed step.Result[survival.Curve], exp step.Result[expected.Curve], entries []risk.Entry) ([]string, error)
}

// Report is the outcome of one run.
type Report struct {
	RunID        string
	Cohort       *model.Cohort
	YearsDerived int
	Summary      summary.Summary

	EnrichedTable step.Result[string]
	Distribution  step.Result[[]string]
	FollowUp      step.Result[enrich.Outcome]
	Expected      step.Result[expected.Curve]
	Observed      step.Result[survival.Curve]
	Risk          []risk.Entry
	Survival      step.Result[[]string]

	Duration time.Duration
}

// Service runs the pipeline once per Run call.
type Service struct {
	store    CohortStore
	source   enrich.Source
	renderer Renderer
	metrics  *metrics.Manager
	logger   logger.Logger

	inputPath          string
	enrichedPath       string
	distributionFigure string
	survivalFigure     string
	checkpoints        []float64
}

// New constructs a Service. Without a renderer figures are reported as
// unavailable; without a source the follow-up merge is skipped.
func New(opts ...Option) *Service {
	s := &Service{
		store:              cohort.New(),
		metrics:            metrics.Default(),
		inputPath:          "evalfast.csv",
		enrichedPath:       "evalfast_with_derived_matched_years.csv",
		distributionFigure: "figure1_rsr_distribution",
		survivalFigure:     "km_vs_expected",
		checkpoints:        risk.Checkpoints,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// Run executes the pipeline. Only a failure to load the input table is
// returned as an error; every later step degrades to an unavailable result.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	rep := &Report{RunID: uuid.New().String()}
	log := s.logger.With(logger.String("run_id", rep.RunID))

	ds, err := s.store.Load(ctx, s.inputPath)
	if err != nil {
		log.Error(ctx, "cannot load cohort", logger.String("path", s.inputPath), logger.Error(err))
		return nil, fmt.Errorf("load %s: %w", s.inputPath, err)
	}
	c := ds.Cohort
	rep.Cohort = c
	s.metrics.SetPatientsLoaded(len(c.Patients))

	s.deriveYears(ctx, log.Named("bucket"), ds, rep)
	s.summarise(ctx, log.Named("summary"), c, rep)
	s.drawDistribution(ctx, log.Named("render"), c, rep)
	s.mergeFollowUp(ctx, log.Named("enrich"), c, rep)
	s.estimate(ctx, log.Named("survival"), c, rep)
	s.drawSurvival(ctx, log.Named("render"), rep)

	rep.Duration = time.Since(started)
	s.metrics.ObserveRun(rep.Duration)
	log.Info(ctx, "run finished", logger.Float64("seconds", rep.Duration.Seconds()))
	return rep, nil
}

func (s *Service) deriveYears(ctx context.Context, log logger.Logger, ds *cohort.Dataset, rep *Report) {
	rep.YearsDerived = bucket.Derive(ds.Cohort)
	s.metrics.AddYearsDerived(rep.YearsDerived)
	if rep.YearsDerived == 0 {
		rep.EnrichedTable = step.Unavailable[string]("no matched survival years needed deriving")
		return
	}
	log.Info(ctx, "derived matched survival years", logger.Int("rows", rep.YearsDerived))

	cohort.SyncYears(ds)
	switch {
	case s.enrichedPath == "":
		rep.EnrichedTable = step.Unavailable[string]("enriched table output disabled")
	default:
		if err := s.store.Save(ctx, s.enrichedPath, ds.Frame); err != nil {
			log.Warn(ctx, "could not write enriched table", logger.Error(err))
			rep.EnrichedTable = step.Unavailable[string](err.Error())
		} else {
			log.Info(ctx, "wrote enriched table with derived matched survival years", logger.String("path", s.enrichedPath))
			rep.EnrichedTable = step.Computed(s.enrichedPath)
		}
	}
	s.metrics.RecordStep(StepEnrichedTable, rep.EnrichedTable.OK())
}

func (s *Service) summarise(ctx context.Context, log logger.Logger, c *model.Cohort, rep *Report) {
	sum := summary.Compute(c.Patients)
	rep.Summary = sum
	log.Info(ctx, "summary statistics",
		logger.Int("patients", sum.Patients),
		logger.Int("with_ratio", sum.WithRatio),
		logger.Float64("mean_rsr", sum.Mean),
		logger.Float64("median_rsr", sum.Median),
		logger.Float64("min_rsr", sum.Min),
		logger.Float64("max_rsr", sum.Max),
	)
	if sum.OutOfRange > 0 {
		log.Warn(ctx, "relative survival outside 0-100", logger.Int("patients", sum.OutOfRange))
	}
	for _, cc := range sum.CancerCounts {
		log.Info(ctx, "patients by cancer type", logger.String("cancer", cc.Cancer), logger.Int("patients", cc.Count))
	}
}

func (s *Service) drawDistribution(ctx context.Context, log logger.Logger, c *model.Cohort, rep *Report) {
	defer func() { s.metrics.RecordStep(StepDistribution, rep.Distribution.OK()) }()
	if s.renderer == nil {
		rep.Distribution = step.Unavailable[[]string]("rendering disabled")
		log.Info(ctx, "distribution figure skipped", logger.Reason(rep.Distribution.Reason()))
		return
	}
	paths, err := s.renderer.Distribution(ctx, s.distributionFigure, c.Patients, rep.Summary)
	s.recordFigures(s.distributionFigure, paths)
	if err != nil {
		log.Warn(ctx, "distribution figure not written", logger.Error(err))
		rep.Distribution = step.Unavailable[[]string](err.Error())
		return
	}
	rep.Distribution = step.Computed(paths)
}

func (s *Service) mergeFollowUp(ctx context.Context, log logger.Logger, c *model.Cohort, rep *Report) {
	if !enrich.Needed(c) {
		rep.FollowUp = step.Unavailable[enrich.Outcome]("cohort already has time and event columns")
		log.Debug(ctx, "follow-up merge not needed")
		return
	}
	defer func() { s.metrics.RecordStep(StepFollowUp, rep.FollowUp.OK()) }()
	if s.source == nil {
		rep.FollowUp = step.Unavailable[enrich.Outcome]("no follow-up source configured")
		log.Info(ctx, "skipping follow-up merge", logger.Reason(rep.FollowUp.Reason()))
		return
	}

	rep.FollowUp = enrich.Merge(ctx, c, s.source)
	out, ok := rep.FollowUp.Get()
	if !ok {
		log.Warn(ctx, "skipping follow-up merge", logger.Reason(rep.FollowUp.Reason()))
		return
	}
	s.metrics.RecordFollowUp(out.Matched, out.Duplicates)
	log.Info(ctx, "merged follow-up outcomes",
		logger.Int("matched", out.Matched),
		logger.Int("duplicates", out.Duplicates),
		logger.Strings("added_columns", out.Added),
	)
	log.Info(ctx, "follow-up events with time",
		logger.Int("events", out.EventsWithTime),
		logger.Int("in_cohort", out.InCohort),
		logger.Int("missing_from_cohort", out.EventsWithTime-out.InCohort),
	)
	if len(out.MissingFromCohort) > 0 {
		log.Info(ctx, "event ids missing from cohort", logger.Strings("ids", out.MissingFromCohort))
	}
}

func (s *Service) estimate(ctx context.Context, log logger.Logger, c *model.Cohort, rep *Report) {
	rep.Expected = expected.Build(c)
	s.metrics.RecordStep(StepExpected, rep.Expected.OK())
	if curve, ok := rep.Expected.Get(); ok {
		log.Info(ctx, "expected survival line built",
			logger.Int("knots", len(curve.Knots)),
			logger.Float64("last_days", curve.LastDays),
			logger.Float64("last_ratio", curve.LastRatio),
		)
	} else {
		log.Info(ctx, "expected curve not available", logger.Reason(rep.Expected.Reason()))
	}

	rep.Observed = survival.Estimate(c)
	s.metrics.RecordStep(StepObserved, rep.Observed.OK())
	if km, ok := rep.Observed.Get(); ok {
		s.metrics.RecordKaplanMeier(km.Rows, km.Events)
		ids := km.EventIDs
		if len(ids) > maxLoggedEventIDs {
			ids = ids[:maxLoggedEventIDs]
		}
		log.Info(ctx, "kaplan-meier fitted", logger.Int("rows", km.Rows), logger.Int("events", km.Events))
		log.Info(ctx, "kaplan-meier event ids", logger.Strings("ids", ids))
	} else {
		log.Info(ctx, "observed curve not available", logger.Reason(rep.Observed.Reason()))
	}

	rep.Risk = risk.Table(c, s.checkpoints)
	row := make([]string, len(rep.Risk))
	for i, e := range rep.Risk {
		count := "NA"
		if n, ok := e.Count.Get(); ok {
			count = strconv.Itoa(n)
		}
		row[i] = e.Label + "=" + count
	}
	log.Info(ctx, "number at risk", logger.Strings("row", row))
}

func (s *Service) drawSurvival(ctx context.Context, log logger.Logger, rep *Report) {
	defer func() { s.metrics.RecordStep(StepSurvival, rep.Survival.OK()) }()
	if s.renderer == nil {
		rep.Survival = step.Unavailable[[]string]("rendering disabled")
		log.Info(ctx, "survival figure skipped", logger.Reason(rep.Survival.Reason()))
		return
	}
	paths, err := s.renderer.Survival(ctx, s.survivalFigure, rep.Observed, rep.Expected, rep.Risk)
	s.recordFigures(s.survivalFigure, paths)
	if err != nil {
		log.Warn(ctx, "survival figure not written", logger.Error(err))
		rep.Survival = step.Unavailable[[]string](err.Error())
		return
	}
	rep.Survival = step.Computed(paths)
}

func (s *Service) recordFigures(figure string, paths []string) {
	for _, p := range paths {
		s.metrics.RecordFigure(figure, strings.TrimPrefix(filepath.Ext(p), "."))
	}
}
