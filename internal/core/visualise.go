package core

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"phenoqc/pkg/domain"
	"phenoqc/pkg/viz/beeswarm"
	"phenoqc/pkg/viz/controls"
	"phenoqc/pkg/viz/prepare"
	"phenoqc/pkg/viz/scale"
	"phenoqc/pkg/viz/stats"
)

// Default layout dimensions, in pixels.
const (
	DefaultWidth   = 800
	DefaultHeight  = 400
	DefaultPadding = 50
	DefaultTicks   = 10
)

// Marker radii and the furthest a swarm may spread from its axis.
const (
	WildtypeRadius = 2.0
	MutantRadius   = 2.5
	SwarmBound     = 70.0
)

// Layout sets the drawing area of a visualisation.
type Layout struct {
	Width   float64 `json:"width" yaml:"width"`
	Height  float64 `json:"height" yaml:"height"`
	Padding float64 `json:"padding" yaml:"padding"`
	Ticks   int     `json:"ticks" yaml:"ticks"`
}

// WithDefaults returns l with every unset dimension replaced by its default.
func (l Layout) WithDefaults() Layout {
	if l.Width <= 0 {
		l.Width = DefaultWidth
	}
	if l.Height <= 0 {
		l.Height = DefaultHeight
	}
	if l.Padding <= 0 {
		l.Padding = DefaultPadding
	}
	if l.Ticks <= 0 {
		l.Ticks = DefaultTicks
	}
	return l
}

// VisualiseOptions configures one visualisation instance. Controls holds the
// instance's own toggles; they are ignored when UseShared is set.
type VisualiseOptions struct {
	Layout    Layout
	Controls  *controls.Controls
	UseShared bool
}

// Axis describes a scale in render-ready form.
type Axis struct {
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	From     float64   `json:"from"`
	To       float64   `json:"to"`
	Temporal bool      `json:"temporal,omitempty"`
	Ticks    []float64 `json:"ticks"`
}

func axisOf(s scale.Scale, ticks int) *Axis {
	lo, hi := s.Domain()
	from, to := s.Range()
	return &Axis{Min: lo, Max: hi, From: from, To: to, Temporal: s.Temporal(), Ticks: s.Ticks(ticks)}
}

// Panel is one genotype's contribution to a visualisation.
type Panel struct {
	Statistics *stats.GroupStatistics `json:"statistics"`
	Points     []domain.ScaledPoint   `json:"points"`
}

// Swarm is a column of markers spread around a shared axis.
type Swarm struct {
	Label   string            `json:"label"`
	Mutant  bool              `json:"mutant"`
	Key     float64           `json:"key"`
	Axis    float64           `json:"axis"`
	Leaning string            `json:"leaning"`
	Placed  []beeswarm.Placed `json:"placed"`
}

// Visualisation is the render-ready description of the loaded dataset.
type Visualisation struct {
	ID            string             `json:"id"`
	Dataset       string             `json:"dataset"`
	Context       domain.DataContext `json:"context"`
	PlotType      domain.PlotType    `json:"plotType"`
	Controls      controls.Controls  `json:"controls"`
	Zygosity      string             `json:"zygosity"`
	GeneratedAt   time.Time          `json:"generatedAt"`
	Layout        Layout             `json:"layout"`
	X             *Axis              `json:"x,omitempty"`
	Y             *Axis              `json:"y,omitempty"`
	Mutant        *Panel             `json:"mutant,omitempty"`
	Wildtype      *Panel             `json:"wildtype,omitempty"`
	Swarms        []Swarm            `json:"swarms,omitempty"`
	Frequencies   *prepare.Grid      `json:"frequencies,omitempty"`
	DifferingKeys []string           `json:"differingKeys,omitempty"`
	Selected      []int64            `json:"selected,omitempty"`
}

// Visualise renders the loaded dataset with the given options.
func (s *Service) Visualise(ctx context.Context, opts VisualiseOptions) (Visualisation, error) {
	var vis Visualisation
	err := s.run(ctx, "visualise", func(context.Context) error {
		s.mu.Lock()
		ds, shared, selected := s.current, s.shared, s.selection.IDs()
		s.mu.Unlock()
		if ds == nil {
			return ErrNotLoaded
		}
		vis = Compose(ds, controls.Resolve(shared, opts.Controls, opts.UseShared), opts.Layout)
		vis.GeneratedAt = s.clock.Now()
		vis.Selected = selected
		return nil
	})
	return vis, err
}

// Compose lays out ds under the given controls.
func Compose(ds *Dataset, c controls.Controls, layout Layout) Visualisation {
	layout = layout.WithDefaults()
	z, all := c.Zygosity()
	vis := Visualisation{
		ID:       uuid.NewString(),
		Dataset:  ds.ID.String(),
		Context:  ds.Context,
		PlotType: ds.PlotType,
		Controls: c,
		Zygosity: "all",
		Layout:   layout,
	}
	if !all {
		vis.Zygosity = z.String()
	}
	for k := range ds.DifferingKeys {
		vis.DifferingKeys = append(vis.DifferingKeys, k)
	}
	slices.Sort(vis.DifferingKeys)

	p := ds.Subset(z, all)
	switch ds.PlotType.Kind {
	case domain.KindNominal:
		vis.Frequencies = p.Frequencies
	case domain.KindPoint, domain.KindSeries, domain.KindScatter:
		composeNumeric(&vis, ds, p, c, layout)
	case domain.KindNoPlot, domain.KindMeta, domain.KindImage:
	}
	return vis
}

func composeNumeric(vis *Visualisation, ds *Dataset, p Processed, c controls.Controls, layout Layout) {
	mt := controls.StatisticsFor(p.Mutant.Statistics, c)
	if mt == nil {
		return
	}
	var wt *stats.GroupStatistics
	if !ds.Context.IsWildtype() {
		wt = controls.StatisticsFor(p.Wildtype.Statistics, c)
	}

	xmin, xmax := mt.Overall.X.Min, mt.Overall.X.Max
	ymin, ymax := mt.Overall.Y.Min, mt.Overall.Y.Max
	if p.Wildtype.Statistics != nil && p.Wildtype.Statistics.GenderCombined != nil {
		w := p.Wildtype.Statistics.GenderCombined.Overall
		xmin, xmax = min(xmin, w.X.Min), max(xmax, w.X.Max)
		if c.Has(controls.Wildtype) {
			ymin, ymax = min(ymin, w.Y.Min), max(ymax, w.Y.Max)
		}
	}
	xs := scale.XScale(ds.PlotType.XAxis, xmin, xmax, layout.Width, layout.Padding)
	ys := scale.YScale(ymin, ymax, layout.Height, layout.Padding)
	vis.X = axisOf(xs, layout.Ticks)
	vis.Y = axisOf(ys, layout.Ticks)

	useDate := ds.PlotType.Kind == domain.KindPoint
	vis.Mutant = &Panel{Statistics: mt, Points: scale.Project(filterSex(p.Mutant.Points, c), xs, ys, useDate)}
	showWildtype := wt != nil && c.Has(controls.Wildtype)
	if showWildtype {
		vis.Wildtype = &Panel{Statistics: wt, Points: scale.Project(filterSex(p.Wildtype.Points, c), xs, ys, useDate)}
	}

	switch ds.PlotType.Kind {
	case domain.KindPoint:
		if c.Has(controls.Swarm) {
			vis.Swarms = sexSwarms(p, c, xs, ys, ds.Context.IsWildtype())
		}
	case domain.KindSeries:
		if c.Has(controls.Point) {
			vis.Swarms = columnSwarms(mt, wt, showWildtype, ds.Context.IsWildtype(), xs, ys)
		}
	}
}

func filterSex(points []domain.Point, c controls.Controls) []domain.Point {
	showMale, showFemale := c.Has(controls.Male), c.Has(controls.Female)
	if showMale && showFemale {
		return points
	}
	var out []domain.Point
	for _, p := range points {
		male := p.Sex == domain.SexMale
		if (male && showMale) || (!male && showFemale) {
			out = append(out, p)
		}
	}
	return out
}

// columnSwarms spreads the markers of every x column of a series. With the
// wildtype shown, mutants lean left of the column and wildtype right.
func columnSwarms(mt, wt *stats.GroupStatistics, showWildtype, wildtypeContext bool, xs, ys scale.Scale) []Swarm {
	mutantRadius, mutantLean := MutantRadius, beeswarm.Unconstrained
	if wildtypeContext {
		mutantRadius = WildtypeRadius
	} else if showWildtype {
		mutantLean = beeswarm.LeanLeft
	}
	var out []Swarm
	if showWildtype {
		out = append(out, swarmColumns(wt, false, "Wildtype", WildtypeRadius*0.75, beeswarm.LeanRight, xs, ys)...)
	}
	return append(out, swarmColumns(mt, true, "Mutant", mutantRadius, mutantLean, xs, ys)...)
}

func swarmColumns(gs *stats.GroupStatistics, mutant bool, label string, radius float64, lean beeswarm.Leaning, xs, ys scale.Scale) []Swarm {
	out := make([]Swarm, 0, len(gs.ByX.Groups))
	for _, g := range gs.ByX.Groups {
		pts := make([]beeswarm.Point, len(g.Members))
		for i, m := range g.Members {
			pts[i] = beeswarm.Point{ID: m.MeasurementID, SY: ys.Map(m.Y)}
		}
		axis := xs.Map(g.Key)
		out = append(out, Swarm{
			Label:   label,
			Mutant:  mutant,
			Key:     g.Key,
			Axis:    axis,
			Leaning: lean.String(),
			Placed:  beeswarm.Layout(pts, axis, radius, SwarmBound, lean),
		})
	}
	return out
}

// sexSwarms arranges one swarm per sex and genotype at fixed fractions of
// the horizontal range. Each animal contributes its first measurement.
func sexSwarms(p Processed, c controls.Controls, xs, ys scale.Scale, wildtypeContext bool) []Swarm {
	lo, hi := xs.Range()
	step := (hi - lo) / 16
	mutantRadius := MutantRadius
	if wildtypeContext {
		mutantRadius = WildtypeRadius
	}
	type column struct {
		label  string
		mutant bool
		male   bool
		offset float64
	}
	columns := []column{
		{"Female", true, false, 1},
		{"Female (WT)", false, false, 4},
		{"Male", true, true, 8},
		{"Male (WT)", false, true, 12},
	}
	var out []Swarm
	for _, col := range columns {
		if (col.male && !c.Has(controls.Male)) || (!col.male && !c.Has(controls.Female)) {
			continue
		}
		source, radius := p.Mutant.Statistics, mutantRadius
		if !col.mutant {
			if wildtypeContext || !c.Has(controls.Wildtype) {
				continue
			}
			source, radius = p.Wildtype.Statistics, WildtypeRadius
		}
		if source == nil {
			continue
		}
		gs := source.Female
		if col.male {
			gs = source.Male
		}
		if gs == nil {
			continue
		}
		pts := make([]beeswarm.Point, 0, len(gs.ByAnimal.Groups))
		for _, g := range gs.ByAnimal.Groups {
			first := g.Members[0]
			pts = append(pts, beeswarm.Point{ID: first.MeasurementID, SY: ys.Map(first.Y)})
		}
		axis := lo + col.offset*step
		out = append(out, Swarm{
			Label:   col.label,
			Mutant:  col.mutant,
			Axis:    axis,
			Leaning: beeswarm.Unconstrained.String(),
			Placed:  beeswarm.Layout(pts, axis, radius, SwarmBound, beeswarm.Unconstrained),
		})
	}
	return out
}
