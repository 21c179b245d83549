package sim

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/partsim/internal/particles"
)

// Factory builds and seeds a fresh system for one ensemble member.
type Factory func(seed int64) (*particles.System, error)

// Ensemble runs independent systems concurrently, one per seed.
type Ensemble struct {
	factory   Factory
	metrics   func() []Metric
	numRuns   int
	seedStart int64
}

// NewEnsemble prepares numRuns runs seeded seedStart, seedStart+1, ....
// newMetrics is called once per run so members never share metric state.
func NewEnsemble(factory Factory, newMetrics func() []Metric, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: factory, metrics: newMetrics, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(i)

			sys, err := e.factory(cfgCopy.Seed)
			if err != nil {
				return err
			}
			defer sys.Close()

			runner := New(sys, nil)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					runner.AddMetric(m)
				}
			}
			res, err := runner.Run(ctx, cfgCopy)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
