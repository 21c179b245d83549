package particles

import "errors"

// Topology errors. They abort the offending call without touching any
// already-committed state.
var (
	// ErrForeignParticle indicates a link between particles of different systems.
	ErrForeignParticle = errors.New("particles: particle belongs to another system")

	// ErrSelfLink indicates an attempt to link a particle to itself.
	ErrSelfLink = errors.New("particles: cannot link a particle to itself")

	// ErrTooManyLinks indicates an endpoint already has MaxLinksPerParticle links.
	ErrTooManyLinks = errors.New("particles: too many links on particle")

	// ErrDestroyed indicates a handle whose particle or link no longer exists.
	ErrDestroyed = errors.New("particles: handle refers to a destroyed entity")

	// ErrInvalidLength indicates a non-positive or non-finite rest length.
	ErrInvalidLength = errors.New("particles: link length must be positive and finite")

	// ErrInvalidConfig indicates an unusable system configuration.
	ErrInvalidConfig = errors.New("particles: invalid configuration")

	// ErrClosed is returned by operations on a closed system.
	ErrClosed = errors.New("particles: system closed")
)
