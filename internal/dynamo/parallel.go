package dynamo

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Range is a half-open index interval [Start, End).
type Range struct {
	Start, End int
}

// Partition splits [0, n) into at most parts contiguous ranges of near-equal
// size. Empty ranges are omitted.
func Partition(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	chunk := (n + parts - 1) / parts
	out := make([]Range, 0, parts)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		out = append(out, Range{start, end})
	}
	return out
}

// ParallelFor runs fn over contiguous chunks of [0, n) on up to threads
// goroutines and returns the first error. threads <= 0 uses every CPU.
func ParallelFor(n, threads int, fn func(start, end int) error) error {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	ranges := Partition(n, threads)
	if len(ranges) <= 1 {
		if n <= 0 {
			return nil
		}
		return fn(0, n)
	}

	var g errgroup.Group
	for _, r := range ranges {
		g.Go(func() error {
			return fn(r.Start, r.End)
		})
	}
	return g.Wait()
}
