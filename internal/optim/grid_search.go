package optim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// Evaluate runs one configuration and reports its metrics by name.
type Evaluate func(ctx context.Context, params map[string]float64) (map[string]float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	maximize   bool
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Maximize flips the search to keep the largest metric value.
func (g *GridSearch) Maximize() *GridSearch {
	g.maximize = true
	return g
}

// Points is the number of evaluations a full search takes.
func (g *GridSearch) Points() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search evaluates every point of the grid and returns the best one. Points
// that fail are skipped; their errors are combined into the returned error,
// which is non-nil only when no point succeeded or ctx was canceled.
func (g *GridSearch) Search(ctx context.Context, eval Evaluate, metricName string) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	s := &search{
		eval:     eval,
		metric:   metricName,
		maximize: g.maximize,
		best:     math.Inf(1),
	}
	if g.maximize {
		s.best = math.Inf(-1)
	}

	g.searchRecursive(ctx, 0, make(map[string]float64), s)

	if err := ctx.Err(); err != nil {
		return s.bestParams, s.best, err
	}
	if s.bestParams == nil {
		if s.errs == nil {
			s.errs = fmt.Errorf("optim: metric %q never reported", metricName)
		}
		return nil, 0, s.errs
	}
	return s.bestParams, s.best, nil
}

type search struct {
	eval       Evaluate
	metric     string
	maximize   bool
	best       float64
	bestParams map[string]float64
	errs       error
}

func (s *search) better(v float64) bool {
	if s.maximize {
		return v > s.best
	}
	return v < s.best
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, s *search) {
	if ctx.Err() != nil {
		return
	}
	if depth == len(g.paramNames) {
		metrics, err := s.eval(ctx, current)
		if err != nil {
			s.errs = multierr.Append(s.errs, fmt.Errorf("%v: %w", current, err))
			return
		}

		val, ok := metrics[s.metric]
		if !ok || math.IsNaN(val) {
			return
		}
		if s.bestParams == nil || s.better(val) {
			s.best = val
			s.bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				s.bestParams[k] = v
			}
		}
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(ctx, depth+1, newParams, s)
	}
}
