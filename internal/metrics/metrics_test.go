package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
)

func snapshot() *particles.Snapshot {
	return &particles.Snapshot{
		Positions:     []geom.Vec2{{10, 10}, {20, 10}, {0, 0}, {50, 50}},
		LastPositions: []geom.Vec2{{10, 10}, {17, 6}, {0, 0}, {50, 50}},
		Active:        []int32{1, 1, 0, 1},
		Links: []particles.LinkView{
			{A: 0, B: 1, Length: 10, Strain: 0.5},
			{A: 1, B: 3, Length: 40, Strain: 1.5},
		},
		Radius: 2,
		Bounds: geom.Vec2{100, 100},
		Step:   7,
	}
}

func TestCollectorCompute(t *testing.T) {
	var c Collector
	s := c.Compute(snapshot())

	if s.Particles != 3 || s.Links != 2 || s.Step != 7 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if math.Abs(s.MaxSpeed-5) > 1e-6 {
		t.Errorf("expected max speed 5, got %f", s.MaxSpeed)
	}
	if math.Abs(s.MeanSpeed-5.0/3) > 1e-6 {
		t.Errorf("expected mean speed 5/3, got %f", s.MeanSpeed)
	}
	if math.Abs(s.KineticEnergy-12.5) > 1e-6 {
		t.Errorf("expected kinetic energy 12.5, got %f", s.KineticEnergy)
	}
	if s.MeanStrain != 1 || s.MaxStrain != 1.5 {
		t.Errorf("unexpected strain stats: %+v", s)
	}
	if s.Escaped != 0 {
		t.Errorf("expected no escaped particles, got %d", s.Escaped)
	}
}

func TestCollectorEmpty(t *testing.T) {
	var c Collector
	s := c.Compute(&particles.Snapshot{Bounds: geom.Vec2{10, 10}})
	if s != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", s)
	}
}

func TestContainment(t *testing.T) {
	m := NewContainment()
	if m.Value() != 1.0 {
		t.Errorf("empty containment should be 1, got %f", m.Value())
	}

	snap := snapshot()
	m.Observe(snap, 0)
	snap.Positions[3] = geom.Vec2{99.5, 50}
	m.Observe(snap, 1)

	if m.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", m.Value())
	}
	m.Reset()
	if m.Value() != 1.0 {
		t.Error("reset should clear violations")
	}
}

func TestObservers(t *testing.T) {
	snap := snapshot()
	tests := []struct {
		name   string
		metric interface {
			Observe(*particles.Snapshot, float64)
			Value() float64
			Reset()
		}
		want float64
	}{
		{"kinetic_energy", NewKineticEnergy(), 12.5},
		{"peak_speed", NewPeakSpeed(), 5},
		{"peak_strain", NewPeakStrain(), 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.metric.Observe(snap, 0)
			tt.metric.Observe(snap, 1)
			if got := tt.metric.Value(); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
			tt.metric.Reset()
			if got := tt.metric.Value(); got != 0 {
				t.Errorf("expected 0 after reset, got %f", got)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	series := []Stats{{MaxSpeed: 1}, {MaxSpeed: 3}, {MaxSpeed: 5}}
	s := Summarize(series, func(s Stats) float64 { return s.MaxSpeed })

	if s.Mean != 3 || s.Min != 1 || s.Max != 5 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if math.Abs(s.StdDev-2) > 1e-9 {
		t.Errorf("expected sample std dev 2, got %f", s.StdDev)
	}
	if got := Summarize(nil, func(s Stats) float64 { return s.MaxSpeed }); got != (Summary{}) {
		t.Errorf("expected zero summary, got %+v", got)
	}
}
