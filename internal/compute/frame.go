package compute

import "github.com/san-kum/partsim/internal/geom"

// Link is one row of the flat link table. A is -1 for an unused slot.
type Link struct {
	A, B   int32
	Length float32
}

// NoLink marks unused link table rows and adjacency slots.
var NoLink = Link{A: -1, B: -1, Length: -1}

func (l Link) Active() bool { return l.A >= 0 }

// Layout fixes the buffer sizes a backend allocates.
type Layout struct {
	Particles        int
	Links            int
	LinksPerParticle int
	Cells            int
}

func (l Layout) GridValues() int { return l.Particles + l.Cells }

// Frame is the set of host mirrors exchanged with a device each step.
type Frame struct {
	Positions     []geom.Vec2
	LastPositions []geom.Vec2
	Colors        []uint32
	Active        []int32

	GridKeys   []int32
	GridValues []int32

	// LinkKeys holds LinksPerParticle link ids per particle, packed from the
	// front of each run and terminated by -1.
	LinkKeys   []int32
	Links      []Link
	LinkStrain []float32

	// Fresh lists particle ids created since the previous upload. Their
	// device-only state is reset.
	Fresh []int32
}

// Params are the per-dispatch uniforms.
type Params struct {
	Radius              float32
	Extents             geom.Vec2
	CellCount           [2]int32
	CellSize            geom.Vec2
	Dt                  float32
	Gravity             geom.Vec2
	AntiPressurePower   float32
	Iterations          int32
	MaxLinksPerParticle int32
	EdgeMargin          float32
	Cohesion            float32
	Damping             float32
}

const (
	DefaultEdgeMargin = 2.1
	DefaultDamping    = 0.98
	DefaultCohesion   = 0.05

	travelRetention = 0.75
	strainBand      = 1.11
)
