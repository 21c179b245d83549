package metrics

import (
	"math"

	"github.com/san-kum/partsim/internal/particles"
)

// KineticEnergy averages the kinetic energy proxy over observed steps.
type KineticEnergy struct {
	c       Collector
	total   float64
	samples int
}

func NewKineticEnergy() *KineticEnergy { return &KineticEnergy{} }

func (k *KineticEnergy) Name() string { return "kinetic_energy" }

func (k *KineticEnergy) Observe(snap *particles.Snapshot, t float64) {
	k.total += k.c.Compute(snap).KineticEnergy
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

func (k *KineticEnergy) Reset() {
	k.total = 0
	k.samples = 0
}

// PeakSpeed is the largest per-step displacement seen.
type PeakSpeed struct {
	c   Collector
	max float64
}

func NewPeakSpeed() *PeakSpeed { return &PeakSpeed{} }

func (p *PeakSpeed) Name() string { return "peak_speed" }

func (p *PeakSpeed) Observe(snap *particles.Snapshot, t float64) {
	p.max = math.Max(p.max, p.c.Compute(snap).MaxSpeed)
}

func (p *PeakSpeed) Value() float64 { return p.max }
func (p *PeakSpeed) Reset()         { p.max = 0 }

// PeakStrain is the largest link strain seen.
type PeakStrain struct {
	c   Collector
	max float64
}

func NewPeakStrain() *PeakStrain { return &PeakStrain{} }

func (p *PeakStrain) Name() string { return "peak_strain" }

func (p *PeakStrain) Observe(snap *particles.Snapshot, t float64) {
	p.max = math.Max(p.max, p.c.Compute(snap).MaxStrain)
}

func (p *PeakStrain) Value() float64 { return p.max }
func (p *PeakStrain) Reset()         { p.max = 0 }

// Containment is the fraction of observed steps in which every particle
// stayed inside the world.
type Containment struct {
	c          Collector
	violations int
	samples    int
}

func NewContainment() *Containment { return &Containment{} }

func (c *Containment) Name() string { return "containment" }

func (c *Containment) Observe(snap *particles.Snapshot, t float64) {
	c.samples++
	if c.c.Compute(snap).Escaped > 0 {
		c.violations++
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
