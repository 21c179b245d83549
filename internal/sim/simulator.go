package sim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/partsim/internal/dynamo"
	"github.com/san-kum/partsim/internal/metrics"
	"github.com/san-kum/partsim/internal/particles"
)

// Runner steps one particle system with a fixed timestep.
type Runner struct {
	sys       *particles.System
	spawn     SpawnFunc
	log       *zap.Logger
	metrics   []Metric
	observers []Observer
}

func New(sys *particles.System, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		sys:       sys,
		log:       log,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }
func (r *Runner) SetSpawn(fn SpawnFunc)  { r.spawn = fn }

func (r *Runner) System() *particles.System { return r.sys }

// Run takes cfg.Steps steps. Cancellation is checked between steps, never
// inside one; a canceled run returns the partial result with an error
// matching dynamo.ErrContextCanceled.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := r.validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}
	if cfg.SampleEvery > 0 {
		result.Stats = make([]metrics.Stats, 0, cfg.Steps/cfg.SampleEvery+1)
	}
	for _, m := range r.metrics {
		m.Reset()
	}

	var (
		snap      particles.Snapshot
		collector metrics.Collector
		t         float64
	)
	dt := float32(cfg.Dt)
	r.log.Debug("run started", zap.Int("steps", cfg.Steps), zap.Float64("dt", cfg.Dt))

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			r.finish(result)
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		if r.spawn != nil {
			if err := r.spawn(r.sys, i); err != nil {
				// Spawn failures are recorded, not fatal.
				result.Errors = append(result.Errors, &dynamo.StepError{Step: i, Time: t, Wrapped: err})
			}
		}
		if err := r.sys.SolveParticles(dt); err != nil {
			r.finish(result)
			return result, &dynamo.StepError{Step: i, Time: t, Wrapped: err}
		}
		t += cfg.Dt
		result.StepsTaken++
		result.BrokenLinks += r.sys.BrokenLinks()

		if len(r.metrics) == 0 && len(r.observers) == 0 && cfg.SampleEvery <= 0 {
			continue
		}
		r.sys.Snapshot(&snap)
		for _, m := range r.metrics {
			m.Observe(&snap, t)
		}
		for _, obs := range r.observers {
			obs.OnStep(&snap, t)
		}
		if cfg.SampleEvery > 0 && (i+1)%cfg.SampleEvery == 0 {
			result.Stats = append(result.Stats, collector.Compute(&snap))
		}
	}

	result.Time = t
	r.finish(result)
	r.log.Debug("run finished", zap.Int("steps", result.StepsTaken), zap.Int("broken_links", result.BrokenLinks))
	return result, nil
}

func (r *Runner) finish(result *Result) {
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Timings = r.sys.Timings()
}

func (r *Runner) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f: %w", cfg.Dt, dynamo.ErrParameterBounds)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d: %w", cfg.Steps, dynamo.ErrParameterBounds)
	}
	if cfg.SampleEvery < 0 {
		return fmt.Errorf("sample interval must not be negative, got %d: %w", cfg.SampleEvery, dynamo.ErrParameterBounds)
	}
	return nil
}
