// Package dynamo provides the engine primitives shared by the solver and its
// drivers:
//
//   - [ParallelFor]: contiguous-range fan-out over a fixed worker count
//   - [MovingAverage]: fixed-window smoothing for frame and phase timings
//   - [StepError]: step context attached to a failed simulation step
//
// # Example
//
//	err := dynamo.ParallelFor(len(positions), runtime.NumCPU(), func(start, end int) error {
//		for i := start; i < end; i++ {
//			counts[cellOf(positions[i])]++
//		}
//		return nil
//	})
//
// # Thread Safety
//
// MovingAverage is NOT thread-safe; wrap it when shared between loops.
package dynamo
