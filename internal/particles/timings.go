package particles

import "github.com/san-kum/partsim/internal/dynamo"

type phase int

const (
	phaseCull phase = iota
	phaseGrid
	phaseUpload
	phaseDispatch
	phaseDownload
	phaseTotal
	phaseCount
)

const timingWindow = 10

type phaseTimings [phaseCount]*dynamo.MovingAverage

func newPhaseTimings() phaseTimings {
	var t phaseTimings
	for i := range t {
		t[i] = dynamo.NewMovingAverage(timingWindow)
	}
	return t
}

func (s *System) record(p phase, ms float64) {
	s.timingMu.Lock()
	s.timings[p].Add(ms)
	s.timingMu.Unlock()
}

// Timings are per-phase step costs in milliseconds, averaged over the last
// few steps.
type Timings struct {
	Cull     float64
	Grid     float64
	Upload   float64
	Dispatch float64
	Download float64
	Total    float64
}

func (s *System) Timings() Timings {
	s.timingMu.Lock()
	defer s.timingMu.Unlock()
	t := s.timings
	return Timings{
		Cull:     t[phaseCull].Average(),
		Grid:     t[phaseGrid].Average(),
		Upload:   t[phaseUpload].Average(),
		Dispatch: t[phaseDispatch].Average(),
		Download: t[phaseDownload].Average(),
		Total:    t[phaseTotal].Average(),
	}
}
