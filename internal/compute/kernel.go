package compute

import (
	"math"

	"github.com/san-kum/partsim/internal/geom"
)

// Kernel is the per-particle step. Execute is called once per particle slot
// per dispatch; it reads and writes the shared buffers directly.
type Kernel struct {
	Params

	Positions     []geom.Vec2
	LastPositions []geom.Vec2
	Travel        []float32
	Active        []int32
	GridKeys      []int32
	GridValues    []int32
	LinkKeys      []int32
	Links         []Link
	LinkStrain    []float32
}

// LocalIterations is the number of sub-steps that run collisions and
// integration for a particle moving speed units per step. Slow particles get
// proportionally fewer; the remainder only relax links.
func LocalIterations(speed, radius float32, iterations int32) int32 {
	if iterations < 1 {
		return 1
	}
	frac := (speed + geom.Epsilon) / radius
	if frac > 1 {
		frac = 1
	}
	n := int32(math.Ceil(float64(frac * float32(iterations))))
	if n < 1 {
		n = 1
	}
	if n > iterations {
		n = iterations
	}
	return n
}

func (k *Kernel) Execute(id int) {
	if id >= len(k.Positions) || k.Active[id] == 0 {
		return
	}

	if !geom.IsFinite(k.Positions[id]) || !geom.IsFinite(k.LastPositions[id]) {
		k.Positions[id] = k.Extents.Mul(0.5)
		k.LastPositions[id] = k.Positions[id]
		k.Travel[id] = 0
	}

	iterations := k.Iterations
	if iterations < 1 {
		iterations = 1
	}
	speed := k.Positions[id].Sub(k.LastPositions[id]).Len()
	local := LocalIterations(speed, k.Radius, iterations)
	subDt := k.Dt / float32(iterations)

	for i := int32(0); i < iterations; i++ {
		k.solveLinks(id)
		if i < local {
			k.collisions(id)
			k.applyBoundary(id)
			k.integrate(id, subDt)
		} else {
			k.applyBoundary(id)
		}
	}
	k.applyBoundary(id)
	k.updateStrain(id)
}

func (k *Kernel) inertia(id int) float32 {
	speed := k.Positions[id].Sub(k.LastPositions[id]).Len()
	return 1 + k.Travel[id]/(speed+1)
}

func (k *Kernel) integrate(id int, dt float32) {
	inertia := k.inertia(id)
	antiPressure := (1 / inertia) * (1 / inertia)

	pos := k.Positions[id]
	last := k.LastPositions[id].Sub(k.Gravity.Mul(dt * dt * antiPressure))
	velocity := pos.Sub(last)

	k.LastPositions[id] = pos
	k.Positions[id] = pos.Add(velocity.Mul(k.Damping * (1 - k.AntiPressurePower*(1-antiPressure))))
	k.Travel[id] *= travelRetention
}

func (k *Kernel) move(id int, offset geom.Vec2) {
	k.Positions[id] = k.Positions[id].Add(offset)
	k.Travel[id] += abs(offset[0]) + abs(offset[1])
}

// solveLinks relaxes every link incident to id. Each endpoint's thread
// applies its own half of the correction.
func (k *Kernel) solveLinks(id int) {
	base := id * int(k.MaxLinksPerParticle)
	for s := 0; s < int(k.MaxLinksPerParticle); s++ {
		key := k.LinkKeys[base+s]
		if key < 0 {
			return
		}
		link := k.Links[key]
		if !link.Active() {
			continue
		}

		axis := k.Positions[link.A].Sub(k.Positions[link.B])
		dist := axis.Len()
		if dist < geom.Epsilon {
			continue
		}
		percent := (link.Length - dist) / dist
		offset := axis.Mul(1 / dist).Mul(0.9).Add(axis.Mul(0.1)).Mul(percent * 0.5)

		if int(link.A) == id {
			k.move(id, offset)
		} else {
			k.move(id, offset.Mul(-1))
		}
	}
}

// updateStrain accumulates strain on the links id owns, the ones where it is
// endpoint A, so every link is updated exactly once per dispatch.
func (k *Kernel) updateStrain(id int) {
	base := id * int(k.MaxLinksPerParticle)
	for s := 0; s < int(k.MaxLinksPerParticle); s++ {
		key := k.LinkKeys[base+s]
		if key < 0 {
			return
		}
		link := k.Links[key]
		if int(link.A) != id {
			continue
		}
		dist := k.Positions[link.A].Sub(k.Positions[link.B]).Len()
		k.LinkStrain[key] = NextStrain(k.LinkStrain[key], dist, link.Length)
	}
}

// NextStrain applies one step of strain accumulation for a link of rest
// length rest currently dist long. Strain never drops below zero.
func NextStrain(strain, dist, rest float32) float32 {
	switch {
	case dist > rest*strainBand:
		strain += dist / (rest * strainBand)
	case dist < rest/strainBand:
		strain -= dist / (rest / strainBand) * 2
	default:
		strain -= 0.25
	}
	if strain < 0 {
		return 0
	}
	return strain
}

func (k *Kernel) gridCoord(pos geom.Vec2) (int32, int32) {
	x := clampf(pos[0]/k.CellSize[0], 0, float32(k.CellCount[0]-1))
	y := clampf(pos[1]/k.CellSize[1], 0, float32(k.CellCount[1]-1))
	return int32(math.Floor(float64(x))), int32(math.Floor(float64(y)))
}

// collisions tests id against its own cell and, per axis, the neighbouring
// cells it is within EdgeMargin radii of.
func (k *Kernel) collisions(id int) {
	pos := k.Positions[id]
	cx, cy := k.gridCoord(pos)

	margin := k.Radius * k.EdgeMargin
	local := geom.Vec2{pos[0] - float32(cx)*k.CellSize[0], pos[1] - float32(cy)*k.CellSize[1]}

	x0, x1 := cx, cx
	if local[0] < margin {
		x0--
	}
	if local[0] > k.CellSize[0]-margin {
		x1++
	}
	y0, y1 := cy, cy
	if local[1] < margin {
		y0--
	}
	if local[1] > k.CellSize[1]-margin {
		y1++
	}

	for y := max(y0, 0); y <= min(y1, k.CellCount[1]-1); y++ {
		for x := max(x0, 0); x <= min(x1, k.CellCount[0]-1); x++ {
			cell := x + y*k.CellCount[0]
			start := k.GridKeys[cell]
			count := k.GridValues[start]
			for j := start + 1; j <= start+count; j++ {
				k.solveCollision(id, int(k.GridValues[j]))
			}
		}
	}
}

// solveCollision separates an overlapping pair. Only the lower id resolves a
// pair; the displacement is split by inertia so the particle that has been
// pushed around more yields less. The other particle may already have
// finished its own step, so it is clamped here too.
func (k *Kernel) solveCollision(obj, other int) {
	if obj >= other {
		return
	}

	diameter := k.Radius * 2
	diff := k.Positions[obj].Sub(k.Positions[other])
	d2 := diff.Dot(diff)
	// NaN compares false, so a non-finite neighbour is skipped.
	if !(d2 < diameter*diameter) {
		return
	}

	var dist float32
	if d2 < geom.Epsilon {
		diff = geom.Vec2{0.1, -0.1}
		dist = diff.Len()
	} else {
		dist = float32(math.Sqrt(float64(d2)))
	}

	normal := diff.Mul(1 / dist)
	delta := diameter - dist

	inA, inB := k.inertia(obj), k.inertia(other)
	sum := inA + inB
	k.move(obj, normal.Mul(delta*inB/sum))
	k.move(other, normal.Mul(-delta*inA/sum))
	k.applyBoundary(other)

	if k.Cohesion > 0 {
		vA := k.Positions[obj].Sub(k.LastPositions[obj])
		vB := k.Positions[other].Sub(k.LastPositions[other])
		avg := vA.Add(vB).Mul(0.5)
		k.LastPositions[obj] = k.LastPositions[obj].Add(vA.Sub(avg).Mul(k.Cohesion))
		k.LastPositions[other] = k.LastPositions[other].Add(vB.Sub(avg).Mul(k.Cohesion))
	}
}

// applyBoundary pushes id back inside [radius, extents-radius] along each
// violated axis by the penetration depth.
func (k *Kernel) applyBoundary(id int) {
	pos := k.Positions[id]
	for axis := 0; axis < 2; axis++ {
		lo, hi := k.Radius, k.Extents[axis]-k.Radius
		if hi < lo {
			lo, hi = k.Extents[axis]/2, k.Extents[axis]/2
		}
		var offset float32
		switch {
		case pos[axis] < lo:
			offset = lo - pos[axis]
		case pos[axis] > hi:
			offset = hi - pos[axis]
		default:
			continue
		}
		k.Positions[id][axis] += offset
		k.Travel[id] += abs(offset)
	}
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
