package particles_test

import (
	"math"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/partsim/internal/compute"
	"github.com/san-kum/partsim/internal/dynamo"
	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
	"github.com/san-kum/partsim/internal/plist"
)

const dt = float32(1.0 / 60)

var white = geom.PackRGBA(255, 255, 255, 255)

func newSystem(cfg particles.Config) *particles.System {
	if cfg.MaxParticles == 0 {
		cfg.MaxParticles = 64
	}
	if cfg.Width == 0 {
		cfg.Width, cfg.Height = 100, 100
	}
	if cfg.Radius == 0 {
		cfg.Radius = 5
	}
	cfg.Threads = 1
	s, err := particles.New(cfg, particles.WithBackend(compute.NewCPUBackend(1)))
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(s.Close)
	return s
}

func add(s *particles.System, x, y float32) particles.Particle {
	p, err := s.AddParticle(geom.V(x, y), white)
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("System", func() {
	Describe("construction", func() {
		It("rejects unusable configurations", func() {
			_, err := particles.New(particles.Config{MaxParticles: 0, Width: 10, Height: 10, Radius: 1})
			Expect(err).To(MatchError(particles.ErrInvalidConfig))

			_, err = particles.New(particles.Config{MaxParticles: 10, Width: 10, Height: 10, Radius: 0})
			Expect(err).To(MatchError(particles.ErrInvalidConfig))
		})

		It("sizes the grid from the particle radius", func() {
			s := newSystem(particles.Config{})
			Expect(s.Grid().CellCount()).To(Equal([2]int{2, 2}))

			Expect(s.SetRadius(1)).To(Succeed())
			Expect(s.Grid().CellCount()).To(Equal([2]int{10, 10}))
			Expect(s.SetRadius(-1)).To(MatchError(particles.ErrInvalidConfig))
		})
	})

	Describe("links", func() {
		var s *particles.System

		BeforeEach(func() {
			s = newSystem(particles.Config{MaxLinksPerParticle: 2})
		})

		It("registers a link on both endpoints", func() {
			a, b := add(s, 20, 20), add(s, 40, 20)
			l, err := a.Link(b, 20)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.LinkedParticles(false, false)).To(ConsistOf(b))
			Expect(b.LinkedParticles(false, false)).To(ConsistOf(a))
			Expect(a.Links()).To(ConsistOf(l))
			Expect(b.Links()).To(ConsistOf(l))

			first, second := l.Particles()
			Expect(first).To(Equal(a))
			Expect(second).To(Equal(b))
			Expect(l.Length()).To(BeNumerically("==", 20))
		})

		It("removes a destroyed link from both endpoints and frees one id", func() {
			a, b := add(s, 20, 20), add(s, 40, 20)
			l, _ := a.Link(b, 20)
			Expect(s.LinkCount()).To(Equal(1))

			Expect(l.Destroy()).To(Succeed())
			Expect(l.Destroyed()).To(BeTrue())
			Expect(a.Links()).To(BeEmpty())
			Expect(b.LinkedParticles(false, false)).To(BeEmpty())
			Expect(s.LinkCount()).To(Equal(0))
			Expect(l.Destroy()).To(MatchError(particles.ErrDestroyed))

			again, err := a.Link(b, 20)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.ID()).To(Equal(l.ID()))
			Expect(l.Destroyed()).To(BeTrue())
		})

		It("rejects self links", func() {
			a := add(s, 20, 20)
			_, err := a.Link(a, 10)
			Expect(err).To(MatchError(particles.ErrSelfLink))
		})

		It("rejects particles from another system", func() {
			other := newSystem(particles.Config{})
			a, b := add(s, 20, 20), add(other, 20, 20)
			_, err := s.Link(a, b, 10)
			Expect(err).To(MatchError(particles.ErrForeignParticle))
			Expect(a.Links()).To(BeEmpty())
		})

		It("rejects invalid rest lengths", func() {
			a, b := add(s, 20, 20), add(s, 40, 20)
			_, err := a.Link(b, 0)
			Expect(err).To(MatchError(particles.ErrInvalidLength))
		})

		It("enforces the per-particle limit without partial registration", func() {
			hub := add(s, 50, 50)
			for i := 0; i < 2; i++ {
				_, err := hub.Link(add(s, float32(10+20*i), 10), 10)
				Expect(err).NotTo(HaveOccurred())
			}

			extra := add(s, 80, 80)
			_, err := extra.Link(hub, 10)
			Expect(err).To(MatchError(particles.ErrTooManyLinks))
			Expect(extra.Links()).To(BeEmpty())
			Expect(hub.Links()).To(HaveLen(2))
			Expect(s.LinkCount()).To(Equal(2))
		})

		It("rejects destroyed endpoints", func() {
			a, b := add(s, 20, 20), add(s, 40, 20)
			Expect(b.Destroy()).To(Succeed())
			_, err := a.Link(b, 10)
			Expect(err).To(MatchError(particles.ErrDestroyed))
		})

		It("walks connected components", func() {
			s = newSystem(particles.Config{})
			chain := []particles.Particle{add(s, 10, 50), add(s, 30, 50), add(s, 50, 50), add(s, 70, 50)}
			for i := 1; i < len(chain); i++ {
				_, err := chain[i-1].Link(chain[i], 20)
				Expect(err).NotTo(HaveOccurred())
			}
			loner := add(s, 90, 90)

			Expect(chain[0].LinkedParticles(false, false)).To(ConsistOf(chain[1]))
			Expect(chain[0].LinkedParticles(true, true)).To(ConsistOf(chain))
			Expect(chain[3].LinkedParticles(true, false)).To(ConsistOf(chain[0], chain[1], chain[2]))
			Expect(chain[0].LinkedParticles(true, false)).NotTo(ContainElement(loner))
		})
	})

	Describe("particle handles", func() {
		It("destroys incident links with the particle", func() {
			s := newSystem(particles.Config{})
			a, b, c := add(s, 20, 20), add(s, 40, 20), add(s, 60, 20)
			a.Link(b, 20)
			b.Link(c, 20)

			Expect(b.Destroy()).To(Succeed())
			Expect(b.Destroyed()).To(BeTrue())
			Expect(a.Links()).To(BeEmpty())
			Expect(c.Links()).To(BeEmpty())
			Expect(s.LinkCount()).To(Equal(0))
			Expect(s.ParticleCount()).To(Equal(2))
		})

		It("does not alias a recycled slot", func() {
			s := newSystem(particles.Config{})
			old := add(s, 20, 20)
			Expect(old.Destroy()).To(Succeed())

			fresh := add(s, 70, 70)
			Expect(fresh.ID()).To(Equal(old.ID()))
			Expect(old.Valid()).To(BeFalse())
			Expect(fresh.Valid()).To(BeTrue())
			Expect(old.Position()).To(Equal(geom.Vec2{}))
			Expect(old.SetPosition(geom.V(1, 1))).To(MatchError(particles.ErrDestroyed))
			Expect(fresh.Position()).To(Equal(geom.V(70, 70)))
		})

		It("exposes velocity through the previous position", func() {
			s := newSystem(particles.Config{})
			p := add(s, 50, 50)
			Expect(p.Velocity()).To(Equal(geom.Vec2{}))

			Expect(p.SetVelocity(geom.V(1, 0))).To(Succeed())
			Expect(p.Accelerate(geom.V(0, 2))).To(Succeed())
			Expect(p.Velocity()).To(Equal(geom.V(1, 2)))

			Expect(p.SetPosition(geom.V(30, 30))).To(Succeed())
			Expect(p.Position()).To(Equal(geom.V(30, 30)))
			Expect(p.Velocity()).To(Equal(geom.V(1, 2)))

			Expect(p.SetColor(0xff0000ff)).To(Succeed())
			Expect(p.Color()).To(Equal(uint32(0xff0000ff)))
		})

		It("rejects non-finite motion and keeps neighbours finite", func() {
			s := newSystem(particles.Config{})
			a, b := add(s, 10, 10), add(s, 12, 10)
			nan := float32(math.NaN())
			inf := float32(math.Inf(1))

			Expect(b.SetPosition(geom.V(nan, nan))).To(MatchError(dynamo.ErrInvalidState))
			Expect(b.SetVelocity(geom.V(inf, 0))).To(MatchError(dynamo.ErrInvalidState))
			Expect(b.Accelerate(geom.V(0, nan))).To(MatchError(dynamo.ErrInvalidState))
			Expect(b.Position()).To(Equal(geom.V(12, 10)))
			Expect(b.Velocity()).To(Equal(geom.Vec2{}))

			Expect(s.SolveParticles(dt)).To(Succeed())
			Expect(geom.IsFinite(a.Position())).To(BeTrue())
			Expect(geom.IsFinite(b.Position())).To(BeTrue())
		})
	})

	Describe("capacity", func() {
		It("fails the add past capacity without eviction", func() {
			s := newSystem(particles.Config{MaxParticles: 4})
			for i := 0; i < 4; i++ {
				add(s, float32(10+20*i), 50)
			}
			_, err := s.AddParticle(geom.V(50, 90), white)
			Expect(err).To(MatchError(plist.ErrCapacityExceeded))
			Expect(s.ParticleCount()).To(Equal(4))
		})

		It("recycles the oldest particle with eviction", func() {
			s := newSystem(particles.Config{MaxParticles: 4, EvictOldest: true})
			ps := make([]particles.Particle, 4)
			for i := range ps {
				ps[i] = add(s, float32(10+20*i), 50)
			}
			l, err := ps[0].Link(ps[1], 20)
			Expect(err).NotTo(HaveOccurred())

			newest, err := s.AddParticle(geom.V(50, 90), white)
			Expect(err).NotTo(HaveOccurred())
			Expect(ps[0].Destroyed()).To(BeTrue())
			Expect(l.Destroyed()).To(BeTrue())
			Expect(ps[1].Links()).To(BeEmpty())
			for _, p := range ps[1:] {
				Expect(p.Valid()).To(BeTrue())
			}
			Expect(newest.ID()).To(Equal(ps[0].ID()))
			Expect(s.ParticleCount()).To(Equal(4))
		})
	})

	Describe("stepping", func() {
		It("keeps a resting particle in place without forces", func() {
			s := newSystem(particles.Config{})
			p := add(s, 30, 40)
			for i := 0; i < 100; i++ {
				Expect(s.SolveParticles(dt)).To(Succeed())
			}
			Expect(p.Position().Sub(geom.V(30, 40)).Len()).To(BeNumerically("<", 1e-4))
			Expect(s.Steps()).To(Equal(100))
		})

		It("contains every particle regardless of velocity", func() {
			s := newSystem(particles.Config{MaxParticles: 32})
			s.Gravity = geom.V(0, 2000)
			r := rand.New(rand.NewPCG(7, 11))
			for i := 0; i < 20; i++ {
				p := add(s, 10+r.Float32()*80, 10+r.Float32()*80)
				Expect(p.SetVelocity(geom.V(r.Float32()*400-200, r.Float32()*400-200))).To(Succeed())
			}

			var snap particles.Snapshot
			for step := 0; step < 60; step++ {
				Expect(s.SolveParticles(dt)).To(Succeed())
				s.Snapshot(&snap)
				for id, pos := range snap.Positions {
					if snap.Active[id] == 0 {
						continue
					}
					Expect(pos[0]).To(BeNumerically(">=", 0))
					Expect(pos[0]).To(BeNumerically("<=", 100))
					Expect(pos[1]).To(BeNumerically(">=", 0))
					Expect(pos[1]).To(BeNumerically("<=", 100))
				}
			}
		})

		It("buckets every live particle into exactly one grid cell", func() {
			s := newSystem(particles.Config{Radius: 1})
			r := rand.New(rand.NewPCG(3, 5))
			live := map[int32]bool{}
			for i := 0; i < 40; i++ {
				live[int32(add(s, r.Float32()*100, r.Float32()*100).ID())] = true
			}
			Expect(s.BuildData()).To(Succeed())

			seen := map[int32]int{}
			cells := s.Grid().CellCount()
			for c := 0; c < cells[0]*cells[1]; c++ {
				for _, id := range s.GetParticlesInGridPosition(c) {
					seen[id]++
				}
			}
			Expect(seen).To(HaveLen(len(live)))
			for id, n := range seen {
				Expect(live).To(HaveKey(id))
				Expect(n).To(Equal(1))
			}
		})

		It("breaks an over-stretched link on the following step", func() {
			s := newSystem(particles.Config{})
			a, b := add(s, 25, 50), add(s, 75, 50)
			l, err := a.Link(b, 10)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.SolveParticles(dt)).To(Succeed())
			Expect(l.Strain()).To(BeNumerically(">", s.LinkStrength))
			Expect(l.Valid()).To(BeTrue())

			Expect(s.SolveParticles(dt)).To(Succeed())
			Expect(l.Destroyed()).To(BeTrue())
			Expect(a.Links()).To(BeEmpty())
			Expect(b.Links()).To(BeEmpty())
			Expect(s.BrokenLinks()).To(Equal(1))
		})

		It("refuses to step once closed", func() {
			s := newSystem(particles.Config{})
			Expect(s.Close()).To(Succeed())
			Expect(s.SolveParticles(dt)).To(MatchError(particles.ErrClosed))
			_, err := s.AddParticle(geom.V(1, 1), white)
			Expect(err).To(MatchError(particles.ErrClosed))
		})

		It("rejects a negative timestep", func() {
			s := newSystem(particles.Config{})
			Expect(s.SolveParticles(-1)).NotTo(Succeed())
		})
	})

	Describe("raycast", func() {
		var (
			s *particles.System
			p particles.Particle
		)

		BeforeEach(func() {
			s = newSystem(particles.Config{})
			p = add(s, 50, 50)
		})

		It("hits a particle on the ray", func() {
			hit, ok := s.Raycast(geom.V(0, 50), geom.V(1, 0), 100)
			Expect(ok).To(BeTrue())
			Expect(hit).To(Equal(p))
		})

		It("misses with a parallel ray", func() {
			_, ok := s.Raycast(geom.V(0, 0), geom.V(0, 1), 100)
			Expect(ok).To(BeFalse())
		})

		It("misses when the ray stops short", func() {
			_, ok := s.Raycast(geom.V(0, 50), geom.V(1, 0), 30)
			Expect(ok).To(BeFalse())
		})

		It("returns the nearest particle in the first occupied cell", func() {
			near := add(s, 60, 60)
			far := add(s, 90, 60)
			hit, ok := s.Raycast(geom.V(55, 60), geom.V(1, 0), 45)
			Expect(ok).To(BeTrue())
			Expect(hit).To(Equal(near))
			Expect(hit).NotTo(Equal(far))
		})

		It("ignores a zero direction", func() {
			_, ok := s.Raycast(geom.V(0, 50), geom.Vec2{}, 100)
			Expect(ok).To(BeFalse())
		})
	})
})
