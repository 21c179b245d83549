// Package metrics reduces particle snapshots to scalar statistics.
package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
)

// Stats summarises one snapshot. Speeds are displacements per step.
type Stats struct {
	Step          int     `csv:"step" json:"step"`
	Particles     int     `csv:"particles" json:"particles"`
	Links         int     `csv:"links" json:"links"`
	KineticEnergy float64 `csv:"kinetic_energy" json:"kinetic_energy"`
	MeanSpeed     float64 `csv:"mean_speed" json:"mean_speed"`
	MaxSpeed      float64 `csv:"max_speed" json:"max_speed"`
	MeanStrain    float64 `csv:"mean_strain" json:"mean_strain"`
	MaxStrain     float64 `csv:"max_strain" json:"max_strain"`
	Escaped       int     `csv:"escaped" json:"escaped"`
}

// Collector computes Stats, reusing its buffers across calls. It is not
// safe for concurrent use.
type Collector struct {
	speeds  []float64
	strains []float64
}

func (c *Collector) Compute(snap *particles.Snapshot) Stats {
	c.speeds = c.speeds[:0]
	c.strains = c.strains[:0]

	r := snap.Radius
	escaped := 0
	for id, live := range snap.Active {
		if live == 0 {
			continue
		}
		pos := snap.Positions[id]
		v := pos.Sub(snap.LastPositions[id])
		c.speeds = append(c.speeds, float64(v.Len()))
		if !inside(pos, r, snap.Bounds) {
			escaped++
		}
	}
	for _, l := range snap.Links {
		c.strains = append(c.strains, float64(l.Strain))
	}

	s := Stats{
		Step:      snap.Step,
		Particles: len(c.speeds),
		Links:     len(c.strains),
		Escaped:   escaped,
	}
	if len(c.speeds) > 0 {
		s.KineticEnergy = 0.5 * floats.Dot(c.speeds, c.speeds)
		s.MeanSpeed = stat.Mean(c.speeds, nil)
		s.MaxSpeed = floats.Max(c.speeds)
	}
	if len(c.strains) > 0 {
		s.MeanStrain = stat.Mean(c.strains, nil)
		s.MaxStrain = floats.Max(c.strains)
	}
	return s
}

func inside(p geom.Vec2, r float32, bounds geom.Vec2) bool {
	const slack = 1e-3
	for i := range 2 {
		lo, hi := r, bounds[i]-r
		if hi < lo {
			lo, hi = bounds[i]/2, bounds[i]/2
		}
		if p[i] < lo-slack || p[i] > hi+slack {
			return false
		}
	}
	return true
}

// Summary is the mean and spread of one column of a Stats series.
type Summary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize reduces field over series.
func Summarize(series []Stats, field func(Stats) float64) Summary {
	if len(series) == 0 {
		return Summary{}
	}
	xs := make([]float64, len(series))
	for i, s := range series {
		xs[i] = field(s)
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	return Summary{Mean: mean, StdDev: std, Min: floats.Min(xs), Max: floats.Max(xs)}
}
