// Package scene seeds a particle system with the shapes used by the CLI and
// the viewers: free particles, linked chains, braced boxes and rain.
package scene

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
)

var ErrUnknownKind = errors.New("scene: unknown scene kind")

// Kinds lists the names accepted by Populate.
var Kinds = []string{"fill", "boxes", "rope", "chain", "rain"}

// NewRand returns the generator every spawner draws from. Equal seeds give
// equal scenes.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Jitter is a uniform offset in [-spread, spread] on both axes.
func Jitter(rng *rand.Rand, spread float32) geom.Vec2 {
	return geom.V(rng.Float32()*2*spread-spread, rng.Float32()*2*spread-spread)
}

func RandomColor(rng *rand.Rand) uint32 {
	return geom.PackRGBA(uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256)), 255)
}

// Spec describes what Populate spawns.
type Spec struct {
	Kind        string
	Count       int
	BoxSize     float32
	ChainLength int
}

// Populate spawns sp.Count units of sp.Kind. For fill and rain a unit
// is one particle, for boxes one box, for rope and chain one rope of
// ChainLength particles.
func Populate(sys *particles.System, rng *rand.Rand, sp Spec) (int, error) {
	switch sp.Kind {
	case "fill":
		ps, err := Fill(sys, rng, sp.Count)
		return len(ps), err
	case "rain":
		ps, err := Rain(sys, rng, sp.Count, 0)
		return len(ps), err
	case "boxes":
		spawned := 0
		bounds := sys.Bounds()
		for range sp.Count {
			at := geom.V(rng.Float32()*bounds.X(), rng.Float32()*bounds.Y())
			if _, err := Box(sys, at, sp.BoxSize, RandomColor(rng)); err != nil {
				return spawned, err
			}
			spawned += 4
		}
		return spawned, nil
	case "rope", "chain":
		spawned := 0
		bounds := sys.Bounds()
		for i := range sp.Count {
			y := bounds.Y() * float32(i+1) / float32(sp.Count+1)
			start := geom.V(bounds.X()*0.1, y)
			end := geom.V(bounds.X()*0.9, y+rng.Float32()*bounds.Y()*0.1)
			ps, err := Rope(sys, start, end, sp.ChainLength, RandomColor(rng))
			spawned += len(ps)
			if err != nil {
				return spawned, err
			}
		}
		return spawned, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, sp.Kind)
}

// Fill drops n particles at uniformly random positions.
func Fill(sys *particles.System, rng *rand.Rand, n int) ([]particles.Particle, error) {
	bounds := sys.Bounds()
	out := make([]particles.Particle, 0, n)
	for range n {
		pos := geom.V(rng.Float32()*bounds.X(), rng.Float32()*bounds.Y())
		p, err := sys.AddParticle(pos, RandomColor(rng))
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Rain spawns n particles along the top edge moving down at speed world
// units per step.
func Rain(sys *particles.System, rng *rand.Rand, n int, speed float32) ([]particles.Particle, error) {
	bounds := sys.Bounds()
	r := sys.Radius()
	out := make([]particles.Particle, 0, n)
	for range n {
		pos := geom.V(r+rng.Float32()*(bounds.X()-2*r), r+rng.Float32()*r*4)
		p, err := sys.AddParticle(pos, RandomColor(rng))
		if err != nil {
			return out, err
		}
		if speed != 0 {
			if err := p.SetVelocity(geom.V(0, speed)); err != nil {
				return out, err
			}
		}
		out = append(out, p)
	}
	return out, nil
}
