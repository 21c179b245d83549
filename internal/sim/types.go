package sim

import (
	"github.com/san-kum/partsim/internal/metrics"
	"github.com/san-kum/partsim/internal/particles"
)

// Metric reduces a run to one named value. Observe is called after every
// step with the post-step snapshot.
type Metric interface {
	Name() string
	Observe(snap *particles.Snapshot, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(snap *particles.Snapshot, t float64)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snap *particles.Snapshot, t float64)

func (f ObserverFunc) OnStep(snap *particles.Snapshot, t float64) { f(snap, t) }

// SpawnFunc runs before every step; it may add or remove particles.
type SpawnFunc func(sys *particles.System, step int) error

type Config struct {
	Dt    float64
	Steps int
	Seed  int64

	// SampleEvery records a Stats row every n steps; 0 disables recording.
	SampleEvery int
}

type Result struct {
	StepsTaken  int
	Time        float64
	BrokenLinks int
	Stats       []metrics.Stats
	Metrics     map[string]float64
	Timings     particles.Timings
	Errors      []error
}
