package core

import (
	"context"
	"sync"
	"time"

	"phenoqc/internal/infra/persistence/memory"
	"phenoqc/pkg/domain"
)

type stubClock struct{ t time.Time }

func (c stubClock) Now() time.Time { return c.t }

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(level, msg string) {
	c.mu.Lock()
	c.calls = append(c.calls, level+":"+msg)
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e", msg) }

func (c *captureLogger) has(entry string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call == entry {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
	c.mu.Unlock()
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	mu    sync.Mutex
	ended []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
	s.tracer.mu.Unlock()
}

// gatedSource wraps a store and blocks fetches of the gated parameter until
// release is closed or the fetch is cancelled.
type gatedSource struct {
	*memory.Store
	gated   string
	started chan struct{}
	release chan struct{}
}

func newGatedSource(gated string) *gatedSource {
	return &gatedSource{
		Store:   memory.NewFromSnapshot(memory.Fixture()),
		gated:   gated,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedSource) Measurements(ctx context.Context, dc domain.DataContext) (domain.MeasurementSet, error) {
	if dc.ParameterKey == g.gated {
		close(g.started)
		select {
		case <-ctx.Done():
			return domain.MeasurementSet{}, ctx.Err()
		case <-g.release:
		}
	}
	return g.Store.Measurements(ctx, dc)
}

// gatedCitations blocks citation fetches until release is closed or the
// fetch is cancelled.
type gatedCitations struct {
	*memory.Store
	started chan struct{}
	release chan struct{}
}

func newGatedCitations(store *memory.Store) *gatedCitations {
	return &gatedCitations{Store: store, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedCitations) CitedDataPoints(ctx context.Context, issueID int64) ([]domain.CitedDataPoint, error) {
	close(g.started)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.release:
	}
	return g.Store.CitedDataPoints(ctx, issueID)
}

type failingSource struct{ err error }

func (f failingSource) Measurements(context.Context, domain.DataContext) (domain.MeasurementSet, error) {
	return domain.MeasurementSet{}, f.err
}

var fixedNow = time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC)

func fixtureParameter(key string) domain.ParameterMetadata {
	for _, p := range memory.Fixture().Parameters {
		if p.StableID == key {
			return p
		}
	}
	panic("unknown fixture parameter " + key)
}

func fixtureService(opts ...ServiceOption) (*Service, *memory.Store) {
	store := memory.NewFromSnapshot(memory.Fixture())
	opts = append([]ServiceOption{WithClock(stubClock{t: fixedNow}), WithCitationSource(store)}, opts...)
	return NewService(store, opts...), store
}

func loadFixture(svc *Service, parameter string, genotype int64) (*Dataset, error) {
	return svc.Load(context.Background(), memory.FixtureContext(parameter, genotype), fixtureParameter(parameter))
}
