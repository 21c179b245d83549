// Package particles owns the state of one particle simulation: flat arrays
// of positions, previous positions and colours indexed by particle id, a flat
// link table with a fixed-width adjacency index, and the spatial grid. Users
// hold Particle and ParticleLink handles into those arrays.
//
// Locking is coarse. A topology lock guards the id lists, link tables and the
// grid; a state lock guards positions and colours. Topology is always taken
// before state. SolveParticles holds the topology lock for the whole step.
package particles

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/partsim/internal/compute"
	"github.com/san-kum/partsim/internal/dynamo"
	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/grid"
	"github.com/san-kum/partsim/internal/plist"
)

type Option func(*System)

// WithBackend sets the device the kernel runs on. The system owns it and
// releases it in Close.
func WithBackend(b compute.Backend) Option {
	return func(s *System) { s.backend = b }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *System) { s.log = log }
}

// System is a single simulation instance.
//
// The exported tunables are read at the start of every step. Change them
// between steps, from the goroutine that calls SolveParticles.
type System struct {
	Gravity           geom.Vec2
	AntiPressurePower float32
	Iterations        int
	LinkStrength      float32
	EdgeMargin        float32
	Cohesion          float32
	Damping           float32

	cfg     Config
	log     *zap.Logger
	backend compute.Backend

	topo  sync.Mutex
	state sync.RWMutex

	radius     float32
	grid       *grid.Grid
	gridStale  bool
	layout     compute.Layout
	allocated  bool
	closed     bool
	steps      int
	brokenLast int

	particles *plist.DestroyableList[*particleRecord]
	links     *plist.DestroyableList[*linkRecord]
	gens      []uint32
	linkGens  []uint32

	positions     []geom.Vec2
	lastPositions []geom.Vec2
	colors        []uint32

	linkTable  []compute.Link
	linkStrain []float32
	linkKeys   []int32
	fresh      []int32

	frame compute.Frame

	timingMu sync.Mutex
	timings  phaseTimings
}

type particleRecord struct {
	sys   *System
	id    int
	links []int32
}

func (r *particleRecord) ID() int      { return r.id }
func (r *particleRecord) SetID(id int) { r.id = id }

// Destroy is reached through eviction, with the topology lock held.
func (r *particleRecord) Destroy() { r.sys.removeParticleLocked(r.id) }

type linkRecord struct {
	sys *System
	id  int
}

func (r *linkRecord) ID() int      { return r.id }
func (r *linkRecord) SetID(id int) { r.id = id }
func (r *linkRecord) Destroy()     { r.sys.removeLinkLocked(r.id) }

// New allocates every buffer for cfg up front.
func New(cfg Config, opts ...Option) (*System, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &System{
		AntiPressurePower: DefaultAntiPressurePower,
		Iterations:        DefaultIterations,
		LinkStrength:      DefaultLinkStrength,
		EdgeMargin:        compute.DefaultEdgeMargin,
		Cohesion:          compute.DefaultCohesion,
		Damping:           compute.DefaultDamping,

		cfg:    cfg,
		log:    zap.NewNop(),
		radius: cfg.Radius,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.backend == nil {
		s.backend = compute.AutoSelectBackend()
	}

	var listOpts []plist.Option
	if cfg.EvictOldest {
		listOpts = append(listOpts, plist.WithReuseOldest())
	}
	s.particles = plist.NewDestroyableList[*particleRecord](cfg.MaxParticles, cfg.MaxParticles, listOpts...)
	s.links = plist.NewDestroyableList[*linkRecord](max(cfg.MaxLinks/4, 1), cfg.MaxLinks, listOpts...)
	s.gens = make([]uint32, cfg.MaxParticles)
	s.linkGens = make([]uint32, cfg.MaxLinks)

	white := geom.PackRGBA(255, 255, 255, 255)
	s.positions = make([]geom.Vec2, cfg.MaxParticles)
	s.lastPositions = make([]geom.Vec2, cfg.MaxParticles)
	s.colors = make([]uint32, cfg.MaxParticles)
	for i := range s.colors {
		s.colors[i] = white
	}

	s.linkTable = make([]compute.Link, cfg.MaxLinks)
	for i := range s.linkTable {
		s.linkTable[i] = compute.NoLink
	}
	s.linkStrain = make([]float32, cfg.MaxLinks)
	s.linkKeys = make([]int32, cfg.MaxParticles*cfg.MaxLinksPerParticle)
	for i := range s.linkKeys {
		s.linkKeys[i] = -1
	}

	cells := cellCountFor(cfg.Width, cfg.Height, cfg.Radius, cfg.CellDivisor)
	s.grid = grid.New(cells, s.Bounds(), cfg.MaxParticles)
	s.gridStale = true
	s.timings = newPhaseTimings()

	s.log.Info("particle system created",
		zap.String("backend", s.backend.Name()),
		zap.Int("max_particles", cfg.MaxParticles),
		zap.Int("max_links", cfg.MaxLinks),
		zap.Ints("cells", cells[:]),
	)
	return s, nil
}

func (s *System) Config() Config { return s.cfg }

func (s *System) Bounds() geom.Vec2 {
	return geom.V(float32(s.cfg.Width), float32(s.cfg.Height))
}

func (s *System) Radius() float32 {
	s.topo.Lock()
	defer s.topo.Unlock()
	return s.radius
}

// SetRadius changes the collision radius of every particle and reallocates
// the grid to match.
func (s *System) SetRadius(r float32) error {
	if !(r > 0) {
		return fmt.Errorf("%w: radius must be positive, got %f", ErrInvalidConfig, r)
	}
	s.topo.Lock()
	defer s.topo.Unlock()
	s.radius = r
	s.regenerateGridLocked()
	return nil
}

func (s *System) regenerateGridLocked() {
	cells := cellCountFor(s.cfg.Width, s.cfg.Height, s.radius, s.cfg.CellDivisor)
	if cells != s.grid.CellCount() {
		s.log.Debug("grid reallocated", zap.Ints("cells", cells[:]))
	}
	s.grid.SetCellCount(cells, s.Bounds())
	s.gridStale = true
}

func (s *System) Grid() *grid.Grid { return s.grid }

func (s *System) Backend() compute.Backend { return s.backend }

func (s *System) ParticleCount() int {
	s.topo.Lock()
	defer s.topo.Unlock()
	return s.particles.Len()
}

func (s *System) LinkCount() int {
	s.topo.Lock()
	defer s.topo.Unlock()
	return s.links.Len()
}

// Steps returns the number of completed SolveParticles calls.
func (s *System) Steps() int {
	s.topo.Lock()
	defer s.topo.Unlock()
	return s.steps
}

// BrokenLinks returns how many links the last step culled for strain.
func (s *System) BrokenLinks() int {
	s.topo.Lock()
	defer s.topo.Unlock()
	return s.brokenLast
}

// AddParticle places a particle at rest at pos. A full system either fails
// with plist.ErrCapacityExceeded or, with EvictOldest, destroys its oldest
// particle to make room.
func (s *System) AddParticle(pos geom.Vec2, color uint32) (Particle, error) {
	if !geom.IsFinite(pos) {
		return Particle{}, fmt.Errorf("particles: add particle: %w", dynamo.ErrInvalidState)
	}

	s.topo.Lock()
	defer s.topo.Unlock()
	if s.closed {
		return Particle{}, ErrClosed
	}

	id, err := s.particles.Add(&particleRecord{sys: s})
	if err != nil {
		return Particle{}, fmt.Errorf("particles: add particle: %w", err)
	}

	s.state.Lock()
	s.positions[id] = pos
	s.lastPositions[id] = pos
	s.colors[id] = color
	s.state.Unlock()

	s.fresh = append(s.fresh, int32(id))
	s.gridStale = true
	return Particle{sys: s, id: int32(id), gen: s.gens[id]}, nil
}

// Link connects a and b with a distance constraint of rest length length.
// Validation happens before any state changes, so a failed call leaves both
// endpoints untouched.
func (s *System) Link(a, b Particle, length float32) (ParticleLink, error) {
	if a.sys != s || b.sys != s {
		return ParticleLink{}, ErrForeignParticle
	}
	if a.id == b.id {
		return ParticleLink{}, ErrSelfLink
	}
	if !(length > 0) || !geom.IsFinite(geom.V(length, 0)) {
		return ParticleLink{}, ErrInvalidLength
	}

	s.topo.Lock()
	defer s.topo.Unlock()
	if s.closed {
		return ParticleLink{}, ErrClosed
	}
	if !s.validLocked(a) || !s.validLocked(b) {
		return ParticleLink{}, ErrDestroyed
	}
	recA, _ := s.particles.Get(int(a.id))
	recB, _ := s.particles.Get(int(b.id))
	limit := s.cfg.MaxLinksPerParticle
	if len(recA.links) >= limit || len(recB.links) >= limit {
		return ParticleLink{}, fmt.Errorf("%w (limit %d)", ErrTooManyLinks, limit)
	}

	id, err := s.links.Add(&linkRecord{sys: s})
	if err != nil {
		return ParticleLink{}, fmt.Errorf("particles: add link: %w", err)
	}

	s.linkTable[id] = compute.Link{A: a.id, B: b.id, Length: length}
	s.linkStrain[id] = 0
	recA.links = append(recA.links, int32(id))
	recB.links = append(recB.links, int32(id))
	s.writeLinkKeysLocked(recA)
	s.writeLinkKeysLocked(recB)

	return ParticleLink{sys: s, id: int32(id), gen: s.linkGens[id]}, nil
}

// writeLinkKeysLocked rewrites a particle's adjacency run packed from the
// front and padded with -1.
func (s *System) writeLinkKeysLocked(r *particleRecord) {
	width := s.cfg.MaxLinksPerParticle
	run := s.linkKeys[r.id*width : (r.id+1)*width]
	for i := range run {
		if i < len(r.links) {
			run[i] = r.links[i]
		} else {
			run[i] = -1
		}
	}
}

func (s *System) removeLinkLocked(id int) {
	link := s.linkTable[id]
	for _, end := range [2]int32{link.A, link.B} {
		rec, ok := s.particles.Get(int(end))
		if !ok {
			continue
		}
		for i, l := range rec.links {
			if int(l) == id {
				rec.links = append(rec.links[:i], rec.links[i+1:]...)
				break
			}
		}
		s.writeLinkKeysLocked(rec)
	}
	s.linkTable[id] = compute.NoLink
	s.linkStrain[id] = 0
	_ = s.links.Remove(id)
	s.linkGens[id]++
}

// removeParticleLocked destroys every incident link, then frees the id.
func (s *System) removeParticleLocked(id int) {
	rec, ok := s.particles.Get(id)
	if !ok {
		return
	}
	for len(rec.links) > 0 {
		s.removeLinkLocked(int(rec.links[0]))
	}
	_ = s.particles.Remove(id)
	s.gens[id]++
	s.gridStale = true
}

func (s *System) validLocked(p Particle) bool {
	return p.sys == s && s.particles.IsActive(int(p.id)) && s.gens[p.id] == p.gen
}

func (s *System) validLinkLocked(l ParticleLink) bool {
	return l.sys == s && s.links.IsActive(int(l.id)) && s.linkGens[l.id] == l.gen
}

// Particles returns handles to every live particle in id order.
func (s *System) Particles() []Particle {
	s.topo.Lock()
	defer s.topo.Unlock()
	out := make([]Particle, 0, s.particles.Len())
	for id := range s.particles.All() {
		out = append(out, Particle{sys: s, id: int32(id), gen: s.gens[id]})
	}
	return out
}

// Links returns handles to every live link in id order.
func (s *System) Links() []ParticleLink {
	s.topo.Lock()
	defer s.topo.Unlock()
	out := make([]ParticleLink, 0, s.links.Len())
	for id := range s.links.All() {
		out = append(out, ParticleLink{sys: s, id: int32(id), gen: s.linkGens[id]})
	}
	return out
}

// Clear destroys every particle and link.
func (s *System) Clear() {
	s.topo.Lock()
	defer s.topo.Unlock()
	for id := range s.links.All() {
		s.linkGens[id]++
	}
	for id := range s.particles.All() {
		s.gens[id]++
	}
	s.links.Clear()
	s.particles.Clear()
	for i := range s.linkTable {
		s.linkTable[i] = compute.NoLink
		s.linkStrain[i] = 0
	}
	for i := range s.linkKeys {
		s.linkKeys[i] = -1
	}
	s.fresh = s.fresh[:0]
	s.gridStale = true
}

// Close releases the device buffers. The system cannot step afterwards.
func (s *System) Close() error {
	s.topo.Lock()
	defer s.topo.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.backend.Cleanup()
	s.log.Debug("particle system closed", zap.Int("steps", s.steps))
	return nil
}

func since(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
