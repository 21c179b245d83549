package particles

import "strconv"

// ParticleLink is a handle to a link between two particles.
type ParticleLink struct {
	sys *System
	id  int32
	gen uint32
}

func (l ParticleLink) ID() int         { return int(l.id) }
func (l ParticleLink) Destroyed() bool { return !l.Valid() }
func (l ParticleLink) String() string  { return "link#" + strconv.Itoa(int(l.id)) }

func (l ParticleLink) Valid() bool {
	if l.sys == nil {
		return false
	}
	l.sys.topo.Lock()
	defer l.sys.topo.Unlock()
	return l.sys.validLinkLocked(l)
}

// Particles returns both endpoints, or zero handles for a destroyed link.
func (l ParticleLink) Particles() (Particle, Particle) {
	s := l.sys
	if s == nil {
		return Particle{}, Particle{}
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	if !s.validLinkLocked(l) {
		return Particle{}, Particle{}
	}
	row := s.linkTable[l.id]
	return Particle{sys: s, id: row.A, gen: s.gens[row.A]}, Particle{sys: s, id: row.B, gen: s.gens[row.B]}
}

// Length is the rest length.
func (l ParticleLink) Length() float32 {
	s := l.sys
	if s == nil {
		return 0
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	if !s.validLinkLocked(l) {
		return 0
	}
	return s.linkTable[l.id].Length
}

// Strain is the accumulated strain after the last step.
func (l ParticleLink) Strain() float32 {
	s := l.sys
	if s == nil {
		return 0
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	if !s.validLinkLocked(l) {
		return 0
	}
	return s.linkStrain[l.id]
}

// Destroy detaches the link from both endpoints and frees its id.
func (l ParticleLink) Destroy() error {
	s := l.sys
	if s == nil {
		return ErrDestroyed
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	if !s.validLinkLocked(l) {
		return ErrDestroyed
	}
	s.removeLinkLocked(int(l.id))
	return nil
}
