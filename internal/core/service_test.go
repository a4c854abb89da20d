package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"phenoqc/internal/infra/persistence/memory"
	"phenoqc/pkg/domain"
	"phenoqc/pkg/viz/selection"
)

func pointIDs(points []domain.Point) []int64 {
	out := make([]int64, len(points))
	for i, p := range points {
		out[i] = p.MeasurementID
	}
	return out
}

func TestLoadPointParameter(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	svc, _ := fixtureService(WithMetricsRecorder(metrics), WithTracer(tracer))

	ds, err := loadFixture(svc, memory.FixturePoint, memory.FixtureGenotype)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.PlotType.Kind != domain.KindPoint {
		t.Fatalf("expected point plot, got %s", ds.PlotType.Kind)
	}
	if ds.Measurements != 8 {
		t.Fatalf("expected 8 measurements (mutant and baseline), got %d", ds.Measurements)
	}
	if !ds.LoadedAt.Equal(fixedNow) {
		t.Fatalf("expected load time from clock, got %v", ds.LoadedAt)
	}
	if diff := cmp.Diff(map[string]bool{"Equipment": true}, ds.DifferingKeys); diff != "" {
		t.Fatalf("differing keys mismatch (-want +got):\n%s", diff)
	}

	all := ds.Subset(domain.Heterozygous, true)
	if diff := cmp.Diff([]int64{1, 2, 3, 4}, pointIDs(all.Mutant.Points)); diff != "" {
		t.Fatalf("mutant points mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{5, 6, 7, 8}, pointIDs(all.Wildtype.Points)); diff != "" {
		t.Fatalf("wildtype points mismatch (-want +got):\n%s", diff)
	}
	if got := all.Mutant.Statistics.GenderCombined.Overall.Y; got.Min != 10 || got.Max != 13 {
		t.Fatalf("unexpected mutant range %v..%v", got.Min, got.Max)
	}

	het := ds.Subset(domain.Heterozygous, false)
	if diff := cmp.Diff([]int64{3, 4}, pointIDs(het.Mutant.Points)); diff != "" {
		t.Fatalf("heterozygous mutants mismatch (-want +got):\n%s", diff)
	}
	if len(het.Wildtype.Points) != 4 {
		t.Fatalf("expected baseline in every zygosity subset, got %d", len(het.Wildtype.Points))
	}
	if hem := ds.Subset(domain.Hemizygous, false); len(hem.Mutant.Points) != 0 {
		t.Fatalf("expected no hemizygous mutants, got %d", len(hem.Mutant.Points))
	}

	loc, ok := ds.Locate(2)
	if !ok || loc.Y != 12 {
		t.Fatalf("expected measurement 2 at y=12, got %+v (found=%v)", loc, ok)
	}
	if _, ok := ds.Locate(5); ok {
		t.Fatalf("baseline measurements are not selectable")
	}
	if svc.Current() != ds {
		t.Fatalf("expected loaded dataset to become current")
	}
	if !metrics.has("load", true) {
		t.Fatalf("expected load success metric")
	}
	if len(tracer.ended) != 1 || tracer.ended[0].op != "load" || tracer.ended[0].err != nil {
		t.Fatalf("expected one successful load span, got %+v", tracer.ended)
	}
}

func TestLoadWildtypeContext(t *testing.T) {
	svc, _ := fixtureService()
	ds, err := loadFixture(svc, memory.FixturePoint, domain.WildtypeGenotype)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	all := ds.Subset(domain.Heterozygous, true)
	if diff := cmp.Diff([]int64{5, 6, 7, 8}, pointIDs(all.Mutant.Points)); diff != "" {
		t.Fatalf("baseline should be plotted as the reviewed set (-want +got):\n%s", diff)
	}
	if all.Wildtype.Points != nil || all.Wildtype.Statistics != nil {
		t.Fatalf("expected no separate baseline series in a wildtype context")
	}
	if _, ok := ds.Locate(5); !ok {
		t.Fatalf("expected baseline measurements to be selectable in a wildtype context")
	}
}

func TestLoadRejectsIncompleteContext(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	svc, _ := fixtureService(WithMetricsRecorder(metrics))
	dc := memory.FixtureContext(memory.FixturePoint, memory.FixtureGenotype)
	dc.CentreID = 0
	if _, err := svc.Load(context.Background(), dc, fixtureParameter(memory.FixturePoint)); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(metrics.calls) != 0 {
		t.Fatalf("validation failures should not be recorded as operations")
	}
	if svc.Current() != nil {
		t.Fatalf("expected no dataset")
	}
}

func TestLoadSourceFailure(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetricsRecorder{}
	boom := errors.New("boom")
	svc := NewService(failingSource{err: boom}, WithLogger(logger), WithMetricsRecorder(metrics))

	_, err := svc.Load(context.Background(), memory.FixtureContext(memory.FixturePoint, memory.FixtureGenotype), fixtureParameter(memory.FixturePoint))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
	if !metrics.has("load", false) {
		t.Fatalf("expected failed load metric")
	}
	if !logger.has("e:visualiser operation failed") {
		t.Fatalf("expected error log, got %v", logger.calls)
	}
	if svc.Current() != nil {
		t.Fatalf("failed load must not replace the dataset")
	}
}

func TestLoadSupersededReturnsStale(t *testing.T) {
	logger := &captureLogger{}
	src := newGatedSource(memory.FixturePoint)
	svc := NewService(src, WithLogger(logger))
	ctx := context.Background()

	type result struct {
		ds  *Dataset
		err error
	}
	slow := make(chan result, 1)
	go func() {
		ds, err := svc.Load(ctx, memory.FixtureContext(memory.FixturePoint, memory.FixtureGenotype), fixtureParameter(memory.FixturePoint))
		slow <- result{ds: ds, err: err}
	}()
	<-src.started

	fast, err := svc.Load(ctx, memory.FixtureContext(memory.FixtureSeries, memory.FixtureGenotype), fixtureParameter(memory.FixtureSeries))
	if err != nil {
		t.Fatalf("fast load: %v", err)
	}
	res := <-slow
	if !errors.Is(res.err, ErrStale) {
		t.Fatalf("expected superseded load to be stale, got %v", res.err)
	}
	if res.ds != nil {
		t.Fatalf("stale load must not return a dataset")
	}
	if svc.Current() != fast {
		t.Fatalf("expected the newest load to win")
	}
	if !logger.has("i:visualiser discarded stale result") {
		t.Fatalf("expected stale result to be logged at info, got %v", logger.calls)
	}
	if logger.has("e:visualiser operation failed") {
		t.Fatalf("stale results are not failures")
	}
}

func TestReviewResolvesParameter(t *testing.T) {
	svc, store := fixtureService()
	ctx := context.Background()

	ds, err := svc.Review(ctx, memory.FixtureContext(memory.FixtureSeries, memory.FixtureGenotype), store)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if ds.PlotType.Kind != domain.KindSeries {
		t.Fatalf("expected series plot, got %s", ds.PlotType.Kind)
	}

	_, err = svc.Review(ctx, memory.FixtureContext("IMPC_GRS_999_001", memory.FixtureGenotype), store)
	var nf domain.ErrNotFound
	if !errors.As(err, &nf) || nf.Entity != domain.EntityParameter {
		t.Fatalf("expected parameter not found, got %v", err)
	}
	if svc.Current() != ds {
		t.Fatalf("failed review must keep the previous dataset")
	}
}

func TestSelection(t *testing.T) {
	svc, _ := fixtureService()
	if svc.Select(2, 102) {
		t.Fatalf("nothing is selectable before a load")
	}
	if _, err := loadFixture(svc, memory.FixturePoint, memory.FixtureGenotype); err != nil {
		t.Fatalf("load: %v", err)
	}

	var counts []int
	unsubscribe := svc.SubscribeSelection(func(n int) { counts = append(counts, n) })

	if !svc.Select(2, 102) {
		t.Fatalf("expected measurement 2 to be selectable")
	}
	svc.Select(2, 102)
	if !svc.Select(3, 103) {
		t.Fatalf("expected measurement 3 to be selectable")
	}
	if svc.Select(9, 301) {
		t.Fatalf("measurements of other lines are not plotted")
	}
	if diff := cmp.Diff([]int64{2, 3}, svc.SelectedIDs()); diff != "" {
		t.Fatalf("selected ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{102, 103}, svc.SelectedAnimals()); diff != "" {
		t.Fatalf("selected animals mismatch (-want +got):\n%s", diff)
	}

	svc.Deselect(2)
	svc.Deselect(2)
	if diff := cmp.Diff([]int{1, 2, 1}, counts); diff != "" {
		t.Fatalf("observer counts mismatch (-want +got):\n%s", diff)
	}

	unsubscribe()
	svc.ClearSelection()
	if len(svc.SelectedIDs()) != 0 {
		t.Fatalf("expected empty selection")
	}
	if len(counts) != 3 {
		t.Fatalf("unsubscribed observer was notified: %v", counts)
	}

	svc.Select(4, 104)
	if _, err := loadFixture(svc, memory.FixturePoint, memory.FixtureGenotype); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(svc.SelectedIDs()) != 0 {
		t.Fatalf("expected load to clear the selection")
	}
}

func TestSelectInBox(t *testing.T) {
	svc, _ := fixtureService()
	if _, err := loadFixture(svc, memory.FixturePoint, memory.FixtureGenotype); err != nil {
		t.Fatalf("load: %v", err)
	}
	vis, err := svc.Visualise(context.Background(), VisualiseOptions{})
	if err != nil {
		t.Fatalf("visualise: %v", err)
	}
	everything := selection.Box{X1: 0, Y1: 0, X2: DefaultWidth, Y2: DefaultHeight}
	if n := svc.SelectInBox(vis, everything, false); n != 8 {
		t.Fatalf("expected 8 points selected, got %d", n)
	}
	if n := svc.SelectInBox(vis, everything, false); n != 0 {
		t.Fatalf("reselecting must not add points, got %d", n)
	}
	if n := svc.SelectInBox(vis, everything, true); n != 8 {
		t.Fatalf("expected 8 points deselected, got %d", n)
	}
	if n := svc.SelectInBox(vis, selection.Box{X1: -10, Y1: -10, X2: -1, Y2: -1}, false); n != 0 {
		t.Fatalf("expected empty box to select nothing, got %d", n)
	}
}

func TestSelectInBoxIgnoresSupersededVisualisation(t *testing.T) {
	svc, _ := fixtureService()
	if _, err := loadFixture(svc, memory.FixturePoint, memory.FixtureGenotype); err != nil {
		t.Fatalf("load point: %v", err)
	}
	old, err := svc.Visualise(context.Background(), VisualiseOptions{})
	if err != nil {
		t.Fatalf("visualise: %v", err)
	}
	if _, err := loadFixture(svc, memory.FixtureSeries, memory.FixtureGenotype); err != nil {
		t.Fatalf("load series: %v", err)
	}
	everything := selection.Box{X1: 0, Y1: 0, X2: DefaultWidth, Y2: DefaultHeight}
	if n := svc.SelectInBox(old, everything, false); n != 0 {
		t.Fatalf("visualisation of a replaced dataset selected %d points", n)
	}
	if ids := svc.SelectedIDs(); len(ids) != 0 {
		t.Fatalf("expected an empty selection, got %v", ids)
	}
	if n := NewService(memory.NewFromSnapshot(memory.Fixture())).SelectInBox(old, everything, false); n != 0 {
		t.Fatalf("expected nothing selected without a dataset, got %d", n)
	}
}

func TestApplyCitations(t *testing.T) {
	logger := &captureLogger{}
	svc, _ := fixtureService(WithLogger(logger))
	ctx := context.Background()

	if _, err := svc.ApplyCitations(ctx, memory.FixtureIssue); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if _, err := loadFixture(svc, memory.FixturePoint, memory.FixtureGenotype); err != nil {
		t.Fatalf("load: %v", err)
	}
	svc.Select(4, 104)

	report, err := svc.ApplyCitations(ctx, memory.FixtureIssue)
	if err != nil {
		t.Fatalf("apply citations: %v", err)
	}
	if diff := cmp.Diff(CitationReport{Cited: 2, Found: 1, Missing: 1}, report); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{2}, svc.SelectedIDs()); diff != "" {
		t.Fatalf("citations should replace the selection (-want +got):\n%s", diff)
	}
	if !logger.has("w:cited data points no longer present") {
		t.Fatalf("expected missing citations warning, got %v", logger.calls)
	}

	report, err = svc.ApplyCitations(ctx, 12345)
	if err != nil {
		t.Fatalf("apply unknown issue: %v", err)
	}
	if report != (CitationReport{}) || len(svc.SelectedIDs()) != 0 {
		t.Fatalf("expected an uncited issue to clear the selection, got %+v %v", report, svc.SelectedIDs())
	}
}

func TestApplyCitationsDiscardedByLoad(t *testing.T) {
	store := memory.NewFromSnapshot(memory.Fixture())
	cites := newGatedCitations(store)
	svc := NewService(store, WithClock(stubClock{t: fixedNow}), WithCitationSource(cites))
	if _, err := loadFixture(svc, memory.FixturePoint, memory.FixtureGenotype); err != nil {
		t.Fatalf("load point: %v", err)
	}

	type result struct {
		report CitationReport
		err    error
	}
	pending := make(chan result, 1)
	go func() {
		report, err := svc.ApplyCitations(context.Background(), memory.FixtureIssue)
		pending <- result{report: report, err: err}
	}()
	<-cites.started

	if _, err := loadFixture(svc, memory.FixtureSeries, memory.FixtureGenotype); err != nil {
		t.Fatalf("load series: %v", err)
	}
	if !svc.Select(10, 101) {
		t.Fatalf("expected measurement 10 to be plotted")
	}
	close(cites.release)

	res := <-pending
	if !errors.Is(res.err, ErrStale) {
		t.Fatalf("expected citations fetched for a replaced context to be stale, got %v", res.err)
	}
	if res.report != (CitationReport{}) {
		t.Fatalf("stale citations must not report, got %+v", res.report)
	}
	if diff := cmp.Diff([]int64{10}, svc.SelectedIDs()); diff != "" {
		t.Fatalf("selection of the new context changed (-want +got):\n%s", diff)
	}
}

func TestApplyCitationsSupersededByNewerIssue(t *testing.T) {
	store := memory.NewFromSnapshot(memory.Fixture())
	cites := newGatedCitations(store)
	svc := NewService(store, WithClock(stubClock{t: fixedNow}), WithCitationSource(cites))
	if _, err := loadFixture(svc, memory.FixturePoint, memory.FixtureGenotype); err != nil {
		t.Fatalf("load: %v", err)
	}

	pending := make(chan error, 1)
	go func() {
		_, err := svc.ApplyCitations(context.Background(), memory.FixtureIssue)
		pending <- err
	}()
	<-cites.started

	svc.citations = store
	if _, err := svc.ApplyCitations(context.Background(), memory.FixtureIssue); err != nil {
		t.Fatalf("newer citations: %v", err)
	}
	if err := <-pending; !errors.Is(err, ErrStale) {
		t.Fatalf("expected the older fetch to be cancelled and stale, got %v", err)
	}
	if diff := cmp.Diff([]int64{2}, svc.SelectedIDs()); diff != "" {
		t.Fatalf("newest citations should win (-want +got):\n%s", diff)
	}
}

func TestApplyCitationsRequiresSource(t *testing.T) {
	svc := NewService(memory.NewFromSnapshot(memory.Fixture()))
	if _, err := svc.ApplyCitations(context.Background(), memory.FixtureIssue); err == nil {
		t.Fatalf("expected error without a citation source")
	}
}

func TestNoopLogger(_ *testing.T) {
	logger := noopLogger{}
	logger.Debug("debug", "key", "value")
	logger.Info("info", "key", "value")
	logger.Warn("warn", "key", "value")
	logger.Error("error", "key", "value")
}
