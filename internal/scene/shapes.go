package scene

import (
	"errors"

	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
)

// BoxParticles are the corners of a box, clockwise from the top left.
type BoxParticles [4]particles.Particle

// Box spawns four particles on the corners of a square with the given side
// and braces them with four side links and two diagonals. A side below one
// particle diameter is raised to it.
func Box(sys *particles.System, topLeft geom.Vec2, side float32, color uint32) (BoxParticles, error) {
	var box BoxParticles
	if d := sys.Radius() * 2; side < d {
		side = d
	}
	corners := [4]geom.Vec2{
		topLeft,
		topLeft.Add(geom.V(side, 0)),
		topLeft.Add(geom.V(side, side)),
		topLeft.Add(geom.V(0, side)),
	}
	for i, c := range corners {
		p, err := sys.AddParticle(c, color)
		if err != nil {
			return box, err
		}
		box[i] = p
	}

	diagonal := geom.V(side, side).Len()
	links := []struct {
		a, b   int
		length float32
	}{
		{0, 1, side},
		{1, 2, side},
		{2, 3, side},
		{3, 0, side},
		{0, 2, diagonal},
		{1, 3, diagonal},
	}
	for _, l := range links {
		if _, err := box[l.a].Link(box[l.b], l.length); err != nil {
			return box, err
		}
	}
	return box, nil
}

// Rope spawns n particles evenly spaced from start to end, each linked to
// the previous one at its spawn spacing.
func Rope(sys *particles.System, start, end geom.Vec2, n int, color uint32) ([]particles.Particle, error) {
	if n < 1 {
		return nil, nil
	}
	out := make([]particles.Particle, 0, n)
	step := geom.Vec2{}
	if n > 1 {
		step = end.Sub(start).Mul(1 / float32(n-1))
	}
	spacing := step.Len()
	if spacing < geom.Epsilon {
		spacing = sys.Radius() * 2
	}
	for i := range n {
		p, err := sys.AddParticle(start.Add(step.Mul(float32(i))), color)
		if err != nil {
			return out, err
		}
		out = append(out, p)
		if i > 0 {
			if _, err := out[i-1].Link(p, spacing); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// Chain grows a string of particles toward successive targets, one particle
// diameter at a time. It remembers its last particle between calls.
type Chain struct {
	sys   *particles.System
	last  particles.Particle
	color uint32
}

func NewChain(sys *particles.System, color uint32) *Chain {
	return &Chain{sys: sys, color: color}
}

// Extend adds one particle a diameter from the previous one in the
// direction of target, or at target when the chain is empty or its tail was
// destroyed.
func (c *Chain) Extend(target geom.Vec2) (particles.Particle, error) {
	d := c.sys.Radius() * 2
	pos := target
	if c.last.Valid() {
		dir := geom.SafeNormalize(target.Sub(c.last.Position()))
		if dir == (geom.Vec2{}) {
			dir = geom.V(1, 0)
		}
		pos = c.last.Position().Add(dir.Mul(d))
	}

	p, err := c.sys.AddParticle(pos, c.color)
	if err != nil {
		return particles.Particle{}, err
	}
	if c.last.Valid() {
		// An evicting add may have recycled the tail.
		if _, err := c.last.Link(p, d); err != nil && !errors.Is(err, particles.ErrDestroyed) {
			return p, err
		}
	}
	c.last = p
	return p, nil
}

func (c *Chain) Last() particles.Particle { return c.last }

// Reset starts a new chain on the next Extend.
func (c *Chain) Reset() { c.last = particles.Particle{} }
