package scene

import (
	"errors"
	"testing"

	"github.com/san-kum/partsim/internal/compute"
	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
	"github.com/san-kum/partsim/internal/plist"
)

func newSystem(t *testing.T, maxParticles int) *particles.System {
	t.Helper()
	sys, err := particles.New(particles.Config{
		MaxParticles: maxParticles,
		Width:        200,
		Height:       200,
		Radius:       2,
		Threads:      1,
	}, particles.WithBackend(compute.NewCPUBackend(1)))
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	t.Cleanup(func() { sys.Close() })
	return sys
}

func TestBox(t *testing.T) {
	sys := newSystem(t, 16)

	box, err := Box(sys, geom.V(50, 50), 10, 0xffffffff)
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	if sys.ParticleCount() != 4 || sys.LinkCount() != 6 {
		t.Fatalf("expected 4 particles and 6 links, got %d and %d", sys.ParticleCount(), sys.LinkCount())
	}
	for i, p := range box {
		if n := len(p.Links()); n != 3 {
			t.Errorf("corner %d: expected 3 links, got %d", i, n)
		}
	}
	if got := box[2].Position(); got != geom.V(60, 60) {
		t.Errorf("bottom right at %v", got)
	}
}

func TestBoxMinimumSide(t *testing.T) {
	sys := newSystem(t, 16)

	box, err := Box(sys, geom.V(50, 50), 1, 0xffffffff)
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	if got := box[1].Position().X() - box[0].Position().X(); got != 4 {
		t.Errorf("expected side raised to diameter 4, got %f", got)
	}
}

func TestRope(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		links int
	}{
		{"empty", 0, 0},
		{"single", 1, 0},
		{"ten", 10, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := newSystem(t, 32)
			ps, err := Rope(sys, geom.V(10, 10), geom.V(100, 10), tt.n, 0xffffffff)
			if err != nil {
				t.Fatalf("rope: %v", err)
			}
			if len(ps) != tt.n || sys.LinkCount() != tt.links {
				t.Errorf("expected %d particles and %d links, got %d and %d", tt.n, tt.links, len(ps), sys.LinkCount())
			}
			if tt.n > 1 {
				if got := ps[len(ps)-1].Position(); got != geom.V(100, 10) {
					t.Errorf("rope should end at the end point, got %v", got)
				}
				if got := ps[0].LinkedParticles(true, true); len(got) != tt.n {
					t.Errorf("rope should be connected, got component of %d", len(got))
				}
			}
		})
	}
}

func TestRopeReturnsParticlesOnLinkFailure(t *testing.T) {
	sys, err := particles.New(particles.Config{
		MaxParticles: 16,
		MaxLinks:     2,
		Width:        200,
		Height:       200,
		Radius:       2,
		Threads:      1,
	}, particles.WithBackend(compute.NewCPUBackend(1)))
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	t.Cleanup(func() { sys.Close() })

	ps, err := Rope(sys, geom.V(10, 10), geom.V(100, 10), 5, 0xffffffff)
	if !errors.Is(err, plist.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if len(ps) != sys.ParticleCount() {
		t.Errorf("returned %d particles, system holds %d", len(ps), sys.ParticleCount())
	}
	if len(ps) != 4 || sys.LinkCount() != 2 {
		t.Errorf("expected 4 particles and 2 links, got %d and %d", len(ps), sys.LinkCount())
	}
}

func TestJitter(t *testing.T) {
	rng := NewRand(3)
	for range 200 {
		j := Jitter(rng, 5)
		if j.X() < -5 || j.X() > 5 || j.Y() < -5 || j.Y() > 5 {
			t.Fatalf("jitter %v outside spread", j)
		}
	}
	if Jitter(NewRand(9), 5) != Jitter(NewRand(9), 5) {
		t.Error("expected same seed to give the same offset")
	}
	if j := Jitter(rng, 0); j != geom.V(0, 0) {
		t.Errorf("zero spread gave %v", j)
	}
}

func TestChainExtend(t *testing.T) {
	sys := newSystem(t, 16)
	chain := NewChain(sys, 0xffffffff)

	first, err := chain.Extend(geom.V(50, 50))
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if first.Position() != geom.V(50, 50) {
		t.Errorf("first link should sit on the target, got %v", first.Position())
	}

	second, err := chain.Extend(geom.V(150, 50))
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if second.Position() != geom.V(54, 50) {
		t.Errorf("expected one diameter toward target, got %v", second.Position())
	}
	if sys.LinkCount() != 1 || chain.Last() != second {
		t.Errorf("expected one link and tail updated")
	}

	chain.Reset()
	if _, err := chain.Extend(geom.V(10, 10)); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if sys.LinkCount() != 1 {
		t.Error("reset chain should not link to the old tail")
	}
}

func TestChainSurvivesDestroyedTail(t *testing.T) {
	sys := newSystem(t, 16)
	chain := NewChain(sys, 0xffffffff)

	tail, _ := chain.Extend(geom.V(50, 50))
	if err := tail.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	p, err := chain.Extend(geom.V(80, 80))
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if p.Position() != geom.V(80, 80) {
		t.Errorf("chain without a tail should restart at target, got %v", p.Position())
	}
}

func TestFillDeterministic(t *testing.T) {
	a := newSystem(t, 64)
	b := newSystem(t, 64)

	pa, err := Fill(a, NewRand(7), 20)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	pb, _ := Fill(b, NewRand(7), 20)
	for i := range pa {
		if pa[i].Position() != pb[i].Position() || pa[i].Color() != pb[i].Color() {
			t.Fatalf("particle %d differs between equal seeds", i)
		}
	}
}

func TestFillCapacity(t *testing.T) {
	sys := newSystem(t, 8)

	ps, err := Fill(sys, NewRand(1), 10)
	if !errors.Is(err, plist.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if len(ps) != 8 {
		t.Errorf("expected the particles that fit, got %d", len(ps))
	}
}

func TestRain(t *testing.T) {
	sys := newSystem(t, 32)

	ps, err := Rain(sys, NewRand(3), 10, 2)
	if err != nil {
		t.Fatalf("rain: %v", err)
	}
	for _, p := range ps {
		if p.Position().Y() > 10 {
			t.Errorf("rain should start near the top, got %v", p.Position())
		}
		if v := p.Velocity(); abs(v.X()) > 1e-4 || abs(v.Y()-2) > 1e-4 {
			t.Errorf("expected downward velocity, got %v", p.Velocity())
		}
	}
}

func TestPopulate(t *testing.T) {
	tests := []struct {
		in        Spec
		particles int
		links     int
	}{
		{Spec{Kind: "fill", Count: 12}, 12, 0},
		{Spec{Kind: "rain", Count: 5}, 5, 0},
		{Spec{Kind: "boxes", Count: 3, BoxSize: 8}, 12, 18},
		{Spec{Kind: "rope", Count: 2, ChainLength: 6}, 12, 10},
	}

	for _, tt := range tests {
		t.Run(tt.in.Kind, func(t *testing.T) {
			sys := newSystem(t, 64)
			n, err := Populate(sys, NewRand(1), tt.in)
			if err != nil {
				t.Fatalf("populate: %v", err)
			}
			if n != tt.particles || sys.ParticleCount() != tt.particles || sys.LinkCount() != tt.links {
				t.Errorf("expected %d/%d, got n=%d particles=%d links=%d",
					tt.particles, tt.links, n, sys.ParticleCount(), sys.LinkCount())
			}
		})
	}
}

func TestPopulateUnknown(t *testing.T) {
	sys := newSystem(t, 8)
	if _, err := Populate(sys, NewRand(1), Spec{Kind: "vortex"}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
