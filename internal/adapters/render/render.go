// Package render draws the report figures with gonum/plot. Every figure is
// written as a PNG at the configured resolution and as a vector PDF.
package render

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/okian/evalfast/internal/domain/expected"
	"github.com/okian/evalfast/internal/domain/model"
	"github.com/okian/evalfast/internal/domain/risk"
	"github.com/okian/evalfast/internal/domain/step"
	"github.com/okian/evalfast/internal/domain/summary"
	"github.com/okian/evalfast/internal/domain/survival"
	"github.com/okian/evalfast/pkg/logger"
)

const (
	defaultDPI  = 300
	defaultBins = 10

	distributionTitle = "Figure 1. Distribution of Relative Survival Ratios in Cancer Patients with STEMI"
	riskRowTitle      = "Number at risk"

	// Share of the survival figure's height given to the risk row.
	riskRowShare = 1.2 / 5.2
)

var (
	steelBlue = color.RGBA{R: 0x46, G: 0x82, B: 0xb4, A: 0xff}
	red       = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	green     = color.RGBA{G: 0x80, A: 0xff}
	black     = color.RGBA{A: 0xff}
	orange    = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}

	dashes = []vg.Length{vg.Points(5), vg.Points(3)}
)

// cancerGroup is one colour of the waterfall panel.
type cancerGroup struct {
	key   string
	label string
	color color.Color
}

// Waterfall groups in legend order; anything not listed is "other".
var cancerGroups = []cancerGroup{
	{"poumon", "Lung", color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}},
	{"prostate", "Prostate", color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}},
	{"renal", "Renal", color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}},
	{"vessie", "Bladder", color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}},
	{"other", "Other", color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff}},
}

// Renderer writes figures into one output directory.
type Renderer struct {
	dir        string
	dpi        int
	bins       int
	annotation string
	logger     logger.Logger
}

// New creates a Renderer writing into dir.
func New(dir string, opts ...Option) *Renderer {
	r := &Renderer{
		dir:    dir,
		dpi:    defaultDPI,
		bins:   defaultBins,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GroupOf maps a cancer category to its waterfall group key.
func GroupOf(cancer string) string {
	for _, g := range cancerGroups[:len(cancerGroups)-1] {
		if cancer == g.key {
			return g.key
		}
	}
	return "other"
}

type bar struct {
	ratio float64
	group string
}

// Distribution draws the histogram and waterfall panels of the ratios.
func (r *Renderer) Distribution(ctx context.Context, base string, patients []model.Patient, s summary.Summary) ([]string, error) {
	var bars []bar
	for _, p := range patients {
		if v := p.Ratio(); v.Valid {
			bars = append(bars, bar{ratio: v.Float64, group: GroupOf(p.Cancer)})
		}
	}
	if len(bars) == 0 {
		return nil, ErrNoRatios
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].ratio > bars[j].ratio })

	hist, err := r.histogram(bars, s.Mean)
	if err != nil {
		return nil, err
	}
	fall, err := r.waterfall(bars, s.Mean)
	if err != nil {
		return nil, err
	}

	paths, err := r.save(base, 12*vg.Inch, 5*vg.Inch, func(dc draw.Canvas) {
		title := hist.Title.TextStyle
		titleH := title.Height(distributionTitle) * 2
		panels := draw.Crop(dc, 0, 0, 0, -titleH)
		tiles := draw.Tiles{Rows: 1, Cols: 2, PadX: vg.Millimeter * 6, PadY: vg.Millimeter * 2, PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2}
		canvases := plot.Align([][]*plot.Plot{{hist, fall}}, tiles, panels)
		hist.Draw(canvases[0][0])
		fall.Draw(canvases[0][1])

		title.XAlign = text.XCenter
		title.YAlign = text.YCenter
		dc.FillText(title, vg.Point{X: dc.Min.X + dc.Size().X/2, Y: dc.Max.Y - titleH/2}, distributionTitle)
	})
	if err != nil {
		return paths, err
	}
	r.logger.Info(ctx, "distribution figure written", logger.Strings("files", paths), logger.Int("bars", len(bars)))
	return paths, nil
}

func (r *Renderer) histogram(bars []bar, mean float64) (*plot.Plot, error) {
	values := make(plotter.Values, len(bars))
	for i, b := range bars {
		values[i] = b.ratio
	}
	h, err := plotter.NewHist(values, r.bins)
	if err != nil {
		return nil, fmt.Errorf("%w: histogram: %w", ErrDraw, err)
	}
	h.FillColor = steelBlue
	h.LineStyle.Color = black

	peak := 0.0
	for _, b := range h.Bins {
		peak = math.Max(peak, b.Weight)
	}

	p := plot.New()
	p.Title.Text = "A. Distribution of Relative Survival Ratios"
	p.X.Label.Text = "Relative Survival Ratio"
	p.Y.Label.Text = "Number of Patients"
	p.X.Min, p.X.Max = -0.05, math.Max(1.1, maxRatio(bars)+0.05)
	p.Add(plotter.NewGrid(), h)

	meanLine, err := vertical(mean, peak)
	if err != nil {
		return nil, err
	}
	meanLine.Color = red
	meanLine.Width = vg.Points(2)
	meanLine.Dashes = dashes

	expLine, err := vertical(1, peak)
	if err != nil {
		return nil, err
	}
	expLine.Color = green
	expLine.Width = vg.Points(2)

	p.Add(meanLine, expLine)
	p.Legend.Add(fmt.Sprintf("Mean RSR = %.3f", mean), meanLine)
	p.Legend.Add("Expected survival = 1.0", expLine)
	p.Legend.Top = true
	return p, nil
}

func (r *Renderer) waterfall(bars []bar, mean float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "B. Waterfall Plot by Cancer Type"
	p.X.Label.Text = "Individual Patients (sorted by RSR)"
	p.Y.Label.Text = "Relative Survival Ratio"
	p.Y.Min, p.Y.Max = -0.05, math.Max(1.1, maxRatio(bars)+0.05)
	p.X.Min, p.X.Max = -1, float64(len(bars))
	p.Add(plotter.NewGrid())

	width := vg.Inch * 4.5 / vg.Length(len(bars))
	for _, g := range cancerGroups {
		values := make(plotter.Values, len(bars))
		n := 0
		for i, b := range bars {
			if b.group == g.key {
				values[i] = b.ratio
				n++
			}
		}
		chart, err := plotter.NewBarChart(values, width)
		if err != nil {
			return nil, fmt.Errorf("%w: waterfall: %w", ErrDraw, err)
		}
		chart.Color = g.color
		chart.LineStyle.Width = 0
		p.Add(chart)
		p.Legend.Add(fmt.Sprintf("%s (n=%d)", g.label, n), chart)
	}

	expLine := plotter.NewFunction(func(float64) float64 { return 1 })
	expLine.Color = green
	expLine.Width = vg.Points(2)
	meanLine := plotter.NewFunction(func(float64) float64 { return mean })
	meanLine.Color = red
	meanLine.Width = vg.Points(2)
	meanLine.Dashes = dashes
	p.Add(expLine, meanLine)
	p.Legend.Add("Expected survival", expLine)
	p.Legend.Add(fmt.Sprintf("Mean RSR = %.3f", mean), meanLine)
	p.Legend.Top = true
	return p, nil
}

// Survival draws the observed curve, the expected line and the risk row.
// Either curve may be unavailable; with neither the figure is skipped.
func (r *Renderer) Survival(
	ctx context.Context,
	base string,
	observed step.Result[survival.Curve],
	exp step.Result[expected.Curve],
	entries []risk.Entry,
) ([]string, error) {
	if !observed.OK() && !exp.OK() {
		return nil, ErrNoCurves
	}

	p := plot.New()
	p.X.Label.Text = "Time since index (years)"
	p.Y.Label.Text = "Survival probability"
	p.Y.Min, p.Y.Max = 0, 1.05
	p.X.Min, p.X.Max = 0, xMax(entries)
	p.Add(plotter.NewGrid())

	ticks := make([]plot.Tick, len(entries))
	for i, e := range entries {
		ticks[i] = plot.Tick{Value: e.Days, Label: e.Label}
	}
	if len(ticks) > 0 {
		p.X.Tick.Marker = plot.ConstantTicks(ticks)
	}

	if km, ok := observed.Get(); ok {
		xys := make(plotter.XYs, len(km.Points))
		for i, pt := range km.Points {
			xys[i] = plotter.XY{X: pt.Time, Y: pt.Survival}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("%w: observed curve: %w", ErrDraw, err)
		}
		line.StepStyle = plotter.PostStep
		line.Color = black
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("Observed", line)
	} else {
		r.logger.Info(ctx, "observed curve not drawn", logger.Reason(observed.Reason()))
	}

	if curve, ok := exp.Get(); ok {
		samples := curve.Sample(expected.DefaultSamples)
		xys := make(plotter.XYs, len(samples))
		for i, pt := range samples {
			xys[i] = plotter.XY{X: pt.Days, Y: pt.Survival}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("%w: expected curve: %w", ErrDraw, err)
		}
		line.Color = orange
		line.Width = vg.Points(1.8)
		line.Dashes = dashes
		p.Add(line)
		p.Legend.Add("Expected", line)
	} else {
		r.logger.Info(ctx, "expected curve not drawn", logger.Reason(exp.Reason()))
	}

	if r.annotation != "" {
		labels, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    plotter.XYs{{X: p.X.Max * 0.98, Y: 0.08}},
			Labels: []string{r.annotation},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: annotation: %w", ErrDraw, err)
		}
		for i := range labels.TextStyle {
			labels.TextStyle[i].XAlign = text.XRight
		}
		p.Add(labels)
	}

	paths, err := r.save(base, 7*vg.Inch, 5*vg.Inch, func(dc draw.Canvas) {
		drawWithRiskRow(dc, p, entries)
	})
	if err != nil {
		return paths, err
	}
	r.logger.Info(ctx, "survival figure written",
		logger.Strings("files", paths),
		logger.String("observed", string(observed.Status())),
		logger.String("expected", string(exp.Status())),
	)
	return paths, nil
}

// drawWithRiskRow draws p in the upper part of dc and the at-risk counts
// below it, each centred under its checkpoint tick.
func drawWithRiskRow(dc draw.Canvas, p *plot.Plot, entries []risk.Entry) {
	rowH := dc.Size().Y * riskRowShare
	top := draw.Crop(dc, 0, 0, rowH, 0)
	p.Draw(top)

	da := p.DataCanvas(top)
	sty := p.X.Tick.Label
	sty.XAlign = text.XCenter
	sty.YAlign = text.YCenter
	y := dc.Min.Y + rowH*0.4
	for _, e := range entries {
		x := da.X(p.X.Norm(e.Days))
		dc.FillText(sty, vg.Point{X: x, Y: y}, RiskLabel(e))
	}

	title := p.X.Label.TextStyle
	title.XAlign = text.XLeft
	title.YAlign = text.YCenter
	dc.FillText(title, vg.Point{X: da.Min.X, Y: dc.Min.Y + rowH*0.8}, riskRowTitle)
}

// RiskLabel is the count shown under a checkpoint; blank when unavailable.
func RiskLabel(e risk.Entry) string {
	if n, ok := e.Count.Get(); ok {
		return strconv.Itoa(n)
	}
	return ""
}

func vertical(x, height float64) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: math.Max(height, 1)}})
	if err != nil {
		return nil, fmt.Errorf("%w: reference line: %w", ErrDraw, err)
	}
	return l, nil
}

func maxRatio(bars []bar) float64 {
	m := math.Inf(-1)
	for _, b := range bars {
		m = math.Max(m, b.ratio)
	}
	return m
}

func xMax(entries []risk.Entry) float64 {
	m := 0.0
	for _, e := range entries {
		m = math.Max(m, e.Days)
	}
	if m == 0 {
		return risk.Checkpoints[len(risk.Checkpoints)-1]
	}
	return m
}
