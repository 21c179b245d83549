package particles

import (
	"math"

	"github.com/san-kum/partsim/internal/geom"
)

// Raycast returns the first particle hit by the ray from origin along
// direction within maxDistance. Cells are walked in distance order and the
// nearest hit inside the first cell with any hit wins.
func (s *System) Raycast(origin, direction geom.Vec2, maxDistance float32) (Particle, bool) {
	p, ok, _ := s.RaycastDebug(origin, direction, maxDistance)
	return p, ok
}

// RaycastDebug is Raycast that also returns the grid edge crossings of the
// ray for overlays.
func (s *System) RaycastDebug(origin, direction geom.Vec2, maxDistance float32) (Particle, bool, []geom.Vec2) {
	dir := geom.SafeNormalize(direction)
	if dir == (geom.Vec2{}) || !(maxDistance > 0) {
		return Particle{}, false, nil
	}
	end := origin.Add(dir.Mul(maxDistance))

	s.topo.Lock()
	defer s.topo.Unlock()
	if s.gridStale {
		if err := s.rebuildGridLocked(); err != nil {
			return Particle{}, false, nil
		}
	}

	cells, crossings := s.grid.LineCells(origin, end)

	s.state.RLock()
	defer s.state.RUnlock()
	for _, cell := range cells {
		best := int32(-1)
		bestDist := float32(math.MaxFloat32)
		for _, id := range s.grid.Cell(cell) {
			pos := s.positions[id]
			if !geom.SegmentIntersectsCircle(origin, end, pos, s.radius) {
				continue
			}
			if d := geom.DistSq(pos, origin); d < bestDist {
				best, bestDist = id, d
			}
		}
		if best >= 0 {
			return Particle{sys: s, id: best, gen: s.gens[best]}, true, crossings
		}
	}
	return Particle{}, false, crossings
}

// GetParticlesInGridPosition returns the ids bucketed in a grid cell as of
// the last grid build.
func (s *System) GetParticlesInGridPosition(index int) []int32 {
	s.topo.Lock()
	defer s.topo.Unlock()
	return append([]int32(nil), s.grid.Cell(index)...)
}

// GetParticlesInGridAtPosition returns the ids bucketed in the cell
// containing pos.
func (s *System) GetParticlesInGridAtPosition(pos geom.Vec2) []int32 {
	s.topo.Lock()
	defer s.topo.Unlock()
	return append([]int32(nil), s.grid.CellAt(pos)...)
}

// LinkView is one live link as seen by renderers.
type LinkView struct {
	A, B   int32
	Length float32
	Strain float32
}

// Snapshot is a copy of the render-facing state. Slices are indexed by
// particle id and sized to capacity; Active marks live slots.
type Snapshot struct {
	Positions     []geom.Vec2
	LastPositions []geom.Vec2
	Colors        []uint32
	Active        []int32
	Links         []LinkView
	Radius        float32
	Bounds        geom.Vec2
	Particles     int
	Step          int
}

// Snapshot copies the current state into dst, reusing its slices.
func (s *System) Snapshot(dst *Snapshot) {
	s.topo.Lock()
	defer s.topo.Unlock()
	s.state.RLock()
	defer s.state.RUnlock()

	dst.Positions = append(dst.Positions[:0], s.positions...)
	dst.LastPositions = append(dst.LastPositions[:0], s.lastPositions...)
	dst.Colors = append(dst.Colors[:0], s.colors...)
	dst.Active = append(dst.Active[:0], s.particles.Active()...)
	dst.Links = dst.Links[:0]
	for id := range s.links.All() {
		row := s.linkTable[id]
		dst.Links = append(dst.Links, LinkView{A: row.A, B: row.B, Length: row.Length, Strain: s.linkStrain[id]})
	}
	dst.Radius = s.radius
	dst.Bounds = s.Bounds()
	dst.Particles = s.particles.Len()
	dst.Step = s.steps
}
