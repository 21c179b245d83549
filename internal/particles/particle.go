package particles

import (
	"fmt"
	"strconv"

	"github.com/san-kum/partsim/internal/dynamo"
	"github.com/san-kum/partsim/internal/geom"
)

// Particle is a handle into a System. The zero value refers to nothing.
// A handle outlives its particle: once the particle is destroyed, or its slot
// recycled, the handle reports Destroyed and its mutators fail.
type Particle struct {
	sys *System
	id  int32
	gen uint32
}

func (p Particle) ID() int         { return int(p.id) }
func (p Particle) System() *System { return p.sys }
func (p Particle) Destroyed() bool { return !p.Valid() }
func (p Particle) String() string  { return "particle#" + strconv.Itoa(int(p.id)) }

func (p Particle) Valid() bool {
	if p.sys == nil {
		return false
	}
	p.sys.topo.Lock()
	defer p.sys.topo.Unlock()
	return p.sys.validLocked(p)
}

// Position returns the current position, or the zero vector for a destroyed
// particle.
func (p Particle) Position() geom.Vec2 {
	pos, _ := p.read(func(s *System) geom.Vec2 { return s.positions[p.id] })
	return pos
}

// Velocity is the displacement over the last step.
func (p Particle) Velocity() geom.Vec2 {
	v, _ := p.read(func(s *System) geom.Vec2 { return s.positions[p.id].Sub(s.lastPositions[p.id]) })
	return v
}

func (p Particle) Color() uint32 {
	s := p.sys
	if s == nil {
		return 0
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	if !s.validLocked(p) {
		return 0
	}
	s.state.RLock()
	defer s.state.RUnlock()
	return s.colors[p.id]
}

// SetPosition moves the particle, keeping its velocity.
func (p Particle) SetPosition(pos geom.Vec2) error {
	if !geom.IsFinite(pos) {
		return fmt.Errorf("particles: set position: %w", dynamo.ErrInvalidState)
	}
	return p.write(func(s *System) {
		v := s.positions[p.id].Sub(s.lastPositions[p.id])
		s.positions[p.id] = pos
		s.lastPositions[p.id] = pos.Sub(v)
	})
}

// SetVelocity sets the displacement the next step starts from.
func (p Particle) SetVelocity(v geom.Vec2) error {
	if !geom.IsFinite(v) {
		return fmt.Errorf("particles: set velocity: %w", dynamo.ErrInvalidState)
	}
	return p.write(func(s *System) {
		s.lastPositions[p.id] = s.positions[p.id].Sub(v)
	})
}

// Accelerate adds dv to the particle's velocity.
func (p Particle) Accelerate(dv geom.Vec2) error {
	if !geom.IsFinite(dv) {
		return fmt.Errorf("particles: accelerate: %w", dynamo.ErrInvalidState)
	}
	return p.write(func(s *System) {
		s.lastPositions[p.id] = s.lastPositions[p.id].Sub(dv)
	})
}

func (p Particle) SetColor(c uint32) error {
	return p.write(func(s *System) { s.colors[p.id] = c })
}

// Link connects p to other; see System.Link.
func (p Particle) Link(other Particle, length float32) (ParticleLink, error) {
	if p.sys == nil {
		return ParticleLink{}, ErrDestroyed
	}
	return p.sys.Link(p, other, length)
}

// Links returns the links incident to p in creation order.
func (p Particle) Links() []ParticleLink {
	s := p.sys
	if s == nil {
		return nil
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	if !s.validLocked(p) {
		return nil
	}
	rec, _ := s.particles.Get(int(p.id))
	out := make([]ParticleLink, len(rec.links))
	for i, id := range rec.links {
		out[i] = ParticleLink{sys: s, id: id, gen: s.linkGens[id]}
	}
	return out
}

// LinkedParticles returns p's neighbours. With recursive set it returns the
// whole connected component instead; includeSelf adds p itself first.
func (p Particle) LinkedParticles(recursive, includeSelf bool) []Particle {
	s := p.sys
	if s == nil {
		return nil
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	if !s.validLocked(p) {
		return nil
	}

	seen := map[int32]bool{p.id: true}
	var out []Particle
	if includeSelf {
		out = append(out, p)
	}
	queue := []int32{p.id}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		rec, _ := s.particles.Get(int(id))
		for _, l := range rec.links {
			link := s.linkTable[l]
			other := link.A
			if other == id {
				other = link.B
			}
			if seen[other] {
				continue
			}
			seen[other] = true
			out = append(out, Particle{sys: s, id: other, gen: s.gens[other]})
			if recursive {
				queue = append(queue, other)
			}
		}
	}
	return out
}

// Destroy removes the particle and every link attached to it.
func (p Particle) Destroy() error {
	s := p.sys
	if s == nil {
		return ErrDestroyed
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	if !s.validLocked(p) {
		return ErrDestroyed
	}
	s.removeParticleLocked(int(p.id))
	return nil
}

func (p Particle) read(fn func(*System) geom.Vec2) (geom.Vec2, bool) {
	s := p.sys
	if s == nil {
		return geom.Vec2{}, false
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	if !s.validLocked(p) {
		return geom.Vec2{}, false
	}
	s.state.RLock()
	defer s.state.RUnlock()
	return fn(s), true
}

func (p Particle) write(fn func(*System)) error {
	s := p.sys
	if s == nil {
		return ErrDestroyed
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	if !s.validLocked(p) {
		return ErrDestroyed
	}
	s.state.Lock()
	fn(s)
	s.state.Unlock()
	return nil
}
