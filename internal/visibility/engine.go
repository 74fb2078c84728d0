package visibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/MichalZG/gaia-targets/internal/catalog"
	"github.com/MichalZG/gaia-targets/internal/metrics"
	"github.com/MichalZG/gaia-targets/internal/sky"
)

// Computer produces a visibility Result for a resolved request.
type Computer interface {
	Compute(ctx context.Context, req Request) (*Result, error)
}

// Config holds engine configuration.
type Config struct {
	Workers int   // worker pool size (default: runtime.NumCPU())
	Offsets []int // hour offsets from the base instant (default: 0, 3, 6)

	Transformer sky.Transformer // position math (default: sky.DefaultTransformer)
}

// Engine computes the altitude/azimuth of every catalog target at every
// configured offset. The catalog is injected and never modified.
type Engine struct {
	catalog     *catalog.Catalog
	offsets     []int
	pool        *WorkerPool
	transformer sky.Transformer
	logger      *slog.Logger
}

// NewEngine creates an Engine over cat. Duplicate offsets are dropped,
// keeping the first occurrence.
func NewEngine(cat *catalog.Catalog, cfg Config, logger *slog.Logger) *Engine {
	if cat == nil {
		cat = &catalog.Catalog{}
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	offsets := cfg.Offsets
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}

	seen := make(map[int]bool, len(offsets))
	uniq := make([]int, 0, len(offsets))
	for _, o := range offsets {
		if !seen[o] {
			seen[o] = true
			uniq = append(uniq, o)
		}
	}

	if cfg.Transformer == nil {
		cfg.Transformer = sky.DefaultTransformer
	}

	metrics.SetVisibilityWorkers(cfg.Workers)
	metrics.SetCatalogTargets(cat.Len())

	return &Engine{
		catalog:     cat,
		offsets:     uniq,
		pool:        NewWorkerPool(cfg.Workers),
		transformer: cfg.Transformer,
		logger:      logger.With("component", "visibility"),
	}
}

// Catalog returns the injected catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Offsets returns a copy of the configured offsets.
func (e *Engine) Offsets() []int {
	return append([]int(nil), e.offsets...)
}

// Compute recomputes the whole catalog for req. Any failing pair aborts the
// recomputation; no partial result is returned.
func (e *Engine) Compute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, pairs, err := e.compute(ctx, req)
	duration := time.Since(start)

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	default:
		outcome = sky.Kind(err)
	}
	metrics.RecordVisibility(duration, pairs, outcome)

	if err != nil {
		e.logger.Debug("visibility computation failed", "outcome", outcome, "error", err)
		return nil, err
	}

	e.logger.Debug("visibility computed",
		"base", req.Base.Format(time.RFC3339),
		"lon", req.Longitude,
		"lat", req.Latitude,
		"targets", len(res.Rows),
		"pairs", pairs,
		"workers", e.pool.Workers(),
		"duration_ms", duration.Milliseconds(),
	)
	return res, nil
}

func (e *Engine) compute(ctx context.Context, req Request) (*Result, int, error) {
	if req.Base.IsZero() {
		return nil, 0, fmt.Errorf("%w: missing base instant", sky.ErrInvalidInstant)
	}
	obs, err := sky.BuildObserver(req.Longitude, req.Latitude)
	if err != nil {
		return nil, 0, err
	}

	targets := e.catalog.Targets
	offsets := e.offsets
	n := len(targets) * len(offsets)
	out := make([]sky.AltAz, n)

	err = e.pool.Run(ctx, n, func(i int) error {
		t := targets[i/len(offsets)]
		off := offsets[i%len(offsets)]
		aa, err := sky.ComputeWith(e.transformer, obs, req.Base, off, t.RA, t.Dec)
		if err != nil {
			return fmt.Errorf("target %q at %s: %w", t.Name, AltColumn(off), err)
		}
		out[i] = aa
		return nil
	})
	if err != nil {
		return nil, n, err
	}

	return e.assemble(obs, req.Base, out), n, nil
}

// assemble builds the table and plot surfaces from the flat pair results,
// indexed target-major.
func (e *Engine) assemble(obs *sky.Observer, base time.Time, out []sky.AltAz) *Result {
	targets := e.catalog.Targets
	offsets := e.offsets

	columns := make([]string, 0, len(e.catalog.Columns)+len(offsets))
	columns = append(columns, e.catalog.Columns...)
	for _, off := range offsets {
		columns = append(columns, AltColumn(off))
	}

	res := &Result{
		Base: base,
		Observer: ObserverInfo{
			Name:       obs.Name,
			Longitude:  obs.LonDeg,
			Latitude:   obs.LatDeg,
			ElevationM: obs.ElevationM,
		},
		Offsets: append([]int(nil), offsets...),
		Columns: columns,
		Rows:    make([]Row, len(targets)),
		Plot:    make([]PlotSeries, len(offsets)),
	}

	for oi, off := range offsets {
		res.Plot[oi] = PlotSeries{
			Offset: off,
			Label:  AltColumn(off),
			Points: make([]PlotPoint, len(targets)),
		}
	}

	for ti, t := range targets {
		values := make(map[string]string, len(columns))
		for _, c := range e.catalog.Columns {
			switch c {
			case catalog.ColumnRA:
				values[c] = FormatDegrees(t.RA)
			case catalog.ColumnDec:
				values[c] = FormatDegrees(t.Dec)
			default:
				values[c] = t.Value(c)
			}
		}

		alts := make([]float64, len(offsets))
		for oi, off := range offsets {
			aa := out[ti*len(offsets)+oi]
			alts[oi] = aa.Alt
			values[AltColumn(off)] = FormatAltitude(aa.Alt)
			res.Plot[oi].Points[ti] = PlotPoint{
				Name: t.Name,
				Az:   aa.Az,
				Alt:  aa.Alt,
				R:    sky.Round1(90 - aa.Alt),
			}
		}
		res.Rows[ti] = Row{Values: values, Alt: alts}
	}

	return res
}
