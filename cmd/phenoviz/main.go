// Command phenoviz reviews phenotyping data contexts: it loads their
// measurements, lays out the visualisation description of each one and
// optionally exports it to the configured snapshot store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"phenoqc/internal/blob"
	"phenoqc/internal/config"
	"phenoqc/internal/core"
	"phenoqc/internal/infra/persistence/memory"
	"phenoqc/pkg/domain"
	"phenoqc/pkg/viz/registry"
)

// maxParallel bounds the contexts reviewed at once.
const maxParallel = 4

var exitFunc = os.Exit

func main() {
	exitFunc(cli(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	config    string
	genotype  int64
	parameter string
	issue     int64
	export    bool
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("phenoviz", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f flags
	fs.StringVar(&f.config, "config", "", "path to the YAML configuration")
	fs.Int64Var(&f.genotype, "gid", -1, "genotype id to review in every context (0 reviews the wildtype baseline)")
	fs.StringVar(&f.parameter, "parameter", "", "parameter stable id to review in every context")
	fs.Int64Var(&f.issue, "issue", 0, "issue whose cited data points are selected")
	fs.BoolVar(&f.export, "export", false, "export visualisations to the snapshot store")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := config.Load(f.config)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "phenoviz: %v\n", err)
		return 1
	}
	if f.issue != 0 {
		cfg.Issue = f.issue
	}
	if f.export {
		cfg.Export = true
	}
	if err := run(ctx, cfg, contextsFor(cfg, f), stdout, stderr); err != nil {
		_, _ = fmt.Fprintf(stderr, "phenoviz: %v\n", err)
		return 1
	}
	return 0
}

// contextsFor applies the -gid and -parameter overrides to the configured
// contexts, or to the demonstration context when none is configured.
// Contexts collapsing onto the same key are reviewed once, at the position
// of their first occurrence.
func contextsFor(cfg *config.Config, f flags) []domain.DataContext {
	base := cfg.Contexts
	if len(base) == 0 {
		base = []domain.DataContext{memory.FixtureContext(memory.FixturePoint, memory.FixtureGenotype)}
	}
	compared := registry.New(domain.DataContext.Key)
	for _, dc := range base {
		if f.parameter != "" {
			dc.ParameterKey = f.parameter
		}
		if f.genotype >= 0 {
			dc.GenotypeID = f.genotype
		}
		if _, ok := compared.Find(dc.Key()); !ok {
			compared.Append(dc)
		}
	}
	out := make([]domain.DataContext, 0, compared.Count())
	compared.Traverse(func(dc domain.DataContext, _ string) {
		out = append(out, dc)
	})
	return out
}

// lockedWriter serialises writes from the logger and the tracer, which
// share stderr.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// summary is the line written to stdout for every reviewed context.
type summary struct {
	Context       string               `json:"context"`
	Plot          string               `json:"plot"`
	Measurements  int                  `json:"measurements"`
	Visualisation string               `json:"visualisation"`
	Zygosity      string               `json:"zygosity"`
	Swarms        int                  `json:"swarms"`
	Selected      []int64              `json:"selected,omitempty"`
	Citations     *core.CitationReport `json:"citations,omitempty"`
	Export        *blob.Info           `json:"export,omitempty"`
}

func run(ctx context.Context, cfg *config.Config, contexts []domain.DataContext, stdout, stderr io.Writer) error {
	stderr = &lockedWriter{w: stderr}
	logger := newLogger(cfg.Log, stderr)
	ctrl, err := cfg.ParsedControls()
	if err != nil {
		return err
	}

	metrics, handler, err := newMetrics(cfg.Metrics)
	if err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" && handler != nil {
		stop := serve(cfg.Metrics.Addr, handler, logger)
		defer stop()
	}

	src, closeSource, err := core.OpenSource(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if err := closeSource(); err != nil {
			logger.Warn("close source", "error", err)
		}
	}()

	var store blob.Store
	if cfg.Export {
		if store, err = blob.Open(ctx, cfg.Blob); err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
	}

	opts := []core.ServiceOption{
		core.WithMetricsRecorder(metrics),
		core.WithTracer(newTracer(cfg.Trace, stderr)),
		core.WithCitationSource(src),
		core.WithControls(ctrl),
	}
	results := make([]summary, len(contexts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, dc := range contexts {
		g.Go(func() error {
			svcOpts := append([]core.ServiceOption{core.WithLogger(logger.With("context", dc.Key()))}, opts...)
			svc := core.NewService(src, svcOpts...)
			s, err := review(gctx, svc, src, store, dc, cfg)
			if err != nil {
				return fmt.Errorf("review %s: %w", dc.Key(), err)
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	for _, s := range results {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}

func review(ctx context.Context, svc *core.Service, catalogue core.ParameterSource, store blob.Store, dc domain.DataContext, cfg *config.Config) (summary, error) {
	ds, err := svc.Review(ctx, dc, catalogue)
	if err != nil {
		return summary{}, err
	}
	s := summary{Context: dc.Key(), Plot: ds.PlotType.Kind.String(), Measurements: ds.Measurements}
	if cfg.Issue != 0 {
		report, err := svc.ApplyCitations(ctx, cfg.Issue)
		if err != nil {
			return summary{}, err
		}
		s.Citations = &report
	}
	vis, err := svc.Visualise(ctx, core.VisualiseOptions{Layout: cfg.Layout, UseShared: true})
	if err != nil {
		return summary{}, err
	}
	s.Visualisation, s.Zygosity, s.Swarms, s.Selected = vis.ID, vis.Zygosity, len(vis.Swarms), vis.Selected
	if store != nil {
		info, err := svc.Export(ctx, store, vis)
		if err != nil {
			return summary{}, err
		}
		s.Export = &info
	}
	return s, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newMetrics(cfg config.MetricsConfig) (core.MetricsRecorder, http.Handler, error) {
	switch cfg.Backend {
	case "expvar":
		return core.NewExpvarMetricsRecorder(""), expvar.Handler(), nil
	case "prometheus":
		reg := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return nil, nil, fmt.Errorf("register metrics: %w", err)
		}
		return rec, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
	default:
		return nil, nil, nil
	}
}

func newTracer(cfg config.TraceConfig, w io.Writer) core.Tracer {
	switch cfg.Backend {
	case "json":
		return core.NewJSONTracer(w)
	case "otel":
		return core.NewOTelTracer(otel.Tracer("phenoqc/phenoviz"))
	default:
		return nil
	}
}

func serve(addr string, handler http.Handler, logger *slog.Logger) (stop func()) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint stopped", "addr", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
