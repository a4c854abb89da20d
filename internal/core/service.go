// Package core orchestrates the visualisation engine: it loads measurement
// sets, derives statistics and layouts, and keeps the selection state of the
// data context under review.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"phenoqc/pkg/domain"
	"phenoqc/pkg/viz/controls"
	"phenoqc/pkg/viz/plottype"
	"phenoqc/pkg/viz/prepare"
	"phenoqc/pkg/viz/selection"
	"phenoqc/pkg/viz/stats"
)

// Service reviews one data context at a time. It is safe for concurrent
// use; a newer Load always wins over an older one still in flight.
type Service struct {
	source    MeasurementSource
	citations CitationSource
	clock     Clock
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	citeGen    uint64
	citeCancel context.CancelFunc
	shared     controls.Controls
	current    *Dataset
	selection  *selection.Manager
}

// NewService constructs a service reading measurements from source.
func NewService(source MeasurementSource, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		source:    source,
		citations: o.citations,
		clock:     o.clock,
		logger:    o.logger,
		metrics:   o.metrics,
		tracer:    o.tracer,
		shared:    o.controls,
		selection: selection.New(),
	}
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, s.clock.Now().Sub(start))
	switch {
	case err == nil:
		s.logger.Debug("visualiser operation completed", "operation", op)
	case errors.Is(err, ErrStale):
		s.logger.Info("visualiser discarded stale result", "operation", op)
	default:
		s.logger.Error("visualiser operation failed", "operation", op, "error", err)
	}
	return err
}

// Series is one genotype's plot-ready points and their statistics.
type Series struct {
	Points     []domain.Point    `json:"points"`
	Statistics *stats.Statistics `json:"statistics"`
}

// Processed holds the derived data of a measurement subset. Frequencies is
// set for nominal parameters only.
type Processed struct {
	Wildtype    Series        `json:"wildtype"`
	Mutant      Series        `json:"mutant"`
	Frequencies *prepare.Grid `json:"frequencies,omitempty"`
}

// Dataset is the processed state of a loaded data context.
type Dataset struct {
	ID             uuid.UUID
	Context        domain.DataContext
	Parameter      domain.ParameterMetadata
	PlotType       domain.PlotType
	LoadedAt       time.Time
	Measurements   int
	MetadataGroups []domain.MetadataGroup
	DifferingKeys  map[string]bool

	all        Processed
	byZygosity [3]Processed
	lookup     map[int64]prepare.Located
}

// Subset returns the processed data for a zygosity filter.
func (d *Dataset) Subset(z domain.Zygosity, all bool) Processed {
	if all || z < domain.Heterozygous || z > domain.Hemizygous {
		return d.all
	}
	return d.byZygosity[z]
}

// Locate returns the plotted position of a measurement of the reviewed
// genotype.
func (d *Dataset) Locate(measurementID int64) (prepare.Located, bool) {
	l, ok := d.lookup[measurementID]
	return l, ok
}

// Process derives everything the engine needs from a measurement set.
func Process(set domain.MeasurementSet, dc domain.DataContext, param domain.ParameterMetadata, now time.Time) *Dataset {
	pt := plottype.Resolve(param)
	wildtype := dc.IsWildtype()
	ds := &Dataset{
		ID:             uuid.New(),
		Context:        dc,
		Parameter:      param,
		PlotType:       pt,
		LoadedAt:       now,
		Measurements:   len(set.Measurements),
		MetadataGroups: set.MetadataGroups,
		DifferingKeys:  prepare.DifferingKeys(set.MetadataGroups),
	}
	ds.all = process(set.Measurements, pt, wildtype)
	zyg := prepare.SplitZygosity(set.Measurements)
	for _, z := range []domain.Zygosity{domain.Heterozygous, domain.Homozygous, domain.Hemizygous} {
		ds.byZygosity[z] = process(zyg.For(z), pt, wildtype)
	}
	if pt.Kind == domain.KindNominal {
		ds.lookup = prepare.NominalLookupTable(prepare.SplitGenotype(set.Measurements, wildtype).Mutant)
	} else {
		ds.lookup = prepare.LookupTable(ds.all.Mutant.Points)
	}
	return ds
}

func process(ms []domain.Measurement, pt domain.PlotType, wildtype bool) Processed {
	var p Processed
	switch pt.Kind {
	case domain.KindNominal:
		grid := prepare.FrequencyGrid(ms)
		p.Frequencies = &grid
	case domain.KindPoint, domain.KindSeries, domain.KindScatter:
		split := prepare.SplitGenotype(ms, wildtype)
		xcol := stats.ColumnX
		if pt.Kind == domain.KindPoint {
			xcol = stats.ColumnDate
		}
		p.Mutant.Points = prepare.Prepare(split.Mutant, pt)
		p.Mutant.Statistics = stats.ComputeStatistics(p.Mutant.Points, stats.ColumnAnimal, xcol)
		if !wildtype {
			p.Wildtype.Points = prepare.Prepare(split.Wildtype, pt)
			p.Wildtype.Statistics = stats.ComputeStatistics(p.Wildtype.Points, stats.ColumnAnimal, xcol)
		}
	case domain.KindNoPlot, domain.KindMeta, domain.KindImage:
	}
	return p
}

// Load fetches and processes the measurements of dc, replacing the current
// dataset and clearing the selection. If another Load starts before this
// one completes, this one is cancelled and returns ErrStale without
// touching the service state. Starting a Load also cancels any citation
// fetch in flight.
func (s *Service) Load(ctx context.Context, dc domain.DataContext, param domain.ParameterMetadata) (*Dataset, error) {
	if err := dc.Validate(); err != nil {
		return nil, err
	}
	var ds *Dataset
	err := s.run(ctx, "load", func(ctx context.Context) error {
		s.mu.Lock()
		s.generation++
		gen := s.generation
		if s.cancel != nil {
			s.cancel()
		}
		s.discardCitationsLocked()
		ctx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.mu.Unlock()
		defer cancel()

		s.logger.Debug("fetching measurements", "context", dc.Key(), "generation", gen)
		set, err := s.source.Measurements(ctx, dc)

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.generation {
			return ErrStale
		}
		s.cancel = nil
		if err != nil {
			return fmt.Errorf("fetch measurements for %s: %w", dc.Key(), err)
		}
		ds = Process(set, dc, param, s.clock.Now())
		s.current = ds
		s.selection.Reset()
		s.logger.Info("data context loaded", "context", dc.Key(), "plot", ds.PlotType.Kind.String(), "measurements", ds.Measurements)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Review resolves the parameter of dc through catalogue and loads dc.
func (s *Service) Review(ctx context.Context, dc domain.DataContext, catalogue ParameterSource) (*Dataset, error) {
	param, err := catalogue.Parameter(ctx, dc.ParameterKey)
	if err != nil {
		return nil, fmt.Errorf("resolve parameter %s: %w", dc.ParameterKey, err)
	}
	return s.Load(ctx, dc, param)
}

// Current returns the loaded dataset, or nil.
func (s *Service) Current() *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SharedControls returns the controls shared by all visualisations.
func (s *Service) SharedControls() controls.Controls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shared
}

// SetSharedControls replaces the shared controls.
func (s *Service) SetSharedControls(c controls.Controls) {
	s.mu.Lock()
	s.shared = c
	s.mu.Unlock()
}

// Select adds a measurement of the loaded dataset to the selection. It
// reports whether the measurement is plotted.
func (s *Service) Select(measurementID, animalID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	l, ok := s.current.Locate(measurementID)
	if !ok {
		return false
	}
	s.selection.Add(measurementID, selection.Entry{MeasurementID: measurementID, AnimalID: animalID, X: l.X, Y: l.Y})
	return true
}

// Deselect removes a measurement from the selection.
func (s *Service) Deselect(measurementID int64) {
	s.mu.Lock()
	s.selection.Remove(measurementID)
	s.mu.Unlock()
}

// ClearSelection empties the selection.
func (s *Service) ClearSelection() {
	s.mu.Lock()
	s.selection.Reset()
	s.mu.Unlock()
}

// SelectInBox selects the points of v inside box and returns how many were
// added. A visualisation of a dataset other than the loaded one selects
// nothing.
func (s *Service) SelectInBox(v Visualisation, box selection.Box, deselect bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || v.Dataset != s.current.ID.String() {
		return 0
	}
	var points []domain.ScaledPoint
	for _, p := range []*Panel{v.Mutant, v.Wildtype} {
		if p == nil {
			continue
		}
		for _, pt := range p.Points {
			if _, ok := s.current.Locate(pt.MeasurementID); ok {
				points = append(points, pt)
			}
		}
	}
	if deselect {
		return s.selection.DeselectInBox(points, box)
	}
	return s.selection.SelectInBox(points, box)
}

// SelectedIDs returns the selected measurement ids in ascending order.
func (s *Service) SelectedIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.IDs()
}

// SelectedAnimals returns the distinct animals of the selection.
func (s *Service) SelectedAnimals() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.AnimalIDs()
}

// SubscribeSelection registers fn for selection count changes. Observers run
// while the service lock is held and must not call back into the service.
func (s *Service) SubscribeSelection(fn selection.Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unsub := s.selection.Subscribe(fn)
	return func() {
		s.mu.Lock()
		unsub()
		s.mu.Unlock()
	}
}

// CitationReport summarises how many cited data points are still present.
type CitationReport struct {
	Cited   int `json:"cited"`
	Found   int `json:"found"`
	Missing int `json:"missing"`
}

// discardCitationsLocked invalidates the citation fetch in flight, if any.
// s.mu must be held.
func (s *Service) discardCitationsLocked() {
	s.citeGen++
	if s.citeCancel != nil {
		s.citeCancel()
		s.citeCancel = nil
	}
}

// ApplyCitations replaces the selection with the data points cited by an
// issue. Cited points that are no longer part of the dataset are counted as
// missing. The fetch returns ErrStale without touching the selection when a
// newer ApplyCitations or any Load starts before it completes.
func (s *Service) ApplyCitations(ctx context.Context, issueID int64) (CitationReport, error) {
	var report CitationReport
	err := s.run(ctx, "apply_citations", func(ctx context.Context) error {
		if s.citations == nil {
			return fmt.Errorf("apply citations: no citation source configured")
		}
		s.mu.Lock()
		s.discardCitationsLocked()
		gen, loaded := s.citeGen, s.generation
		ctx, cancel := context.WithCancel(ctx)
		s.citeCancel = cancel
		s.mu.Unlock()
		defer cancel()

		cited, err := s.citations.CitedDataPoints(ctx, issueID)

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.citeGen || loaded != s.generation {
			return ErrStale
		}
		s.citeCancel = nil
		if err != nil {
			return fmt.Errorf("fetch cited data points for issue %d: %w", issueID, err)
		}
		if s.current == nil {
			return ErrNotLoaded
		}
		s.selection.Reset()
		report.Cited = len(cited)
		for _, c := range cited {
			l, ok := s.current.Locate(c.MeasurementID)
			if !ok {
				report.Missing++
				continue
			}
			s.selection.Add(c.MeasurementID, selection.Entry{MeasurementID: c.MeasurementID, AnimalID: c.AnimalID, X: l.X, Y: l.Y})
			report.Found++
		}
		if report.Missing > 0 {
			s.logger.Warn("cited data points no longer present", "issue", issueID, "missing", report.Missing, "cited", report.Cited)
		}
		return nil
	})
	return report, err
}
