package particles

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/partsim/internal/compute"
	"github.com/san-kum/partsim/internal/dynamo"
)

// BuildData culls links whose strain exceeds LinkStrength and rebuilds the
// grid from the current positions.
func (s *System) BuildData() error {
	s.topo.Lock()
	defer s.topo.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.buildDataLocked()
}

func (s *System) buildDataLocked() error {
	start := time.Now()
	s.brokenLast = s.cullLinksLocked()
	if s.brokenLast > 0 {
		s.log.Debug("links broken", zap.Int("count", s.brokenLast), zap.Int("step", s.steps))
	}
	s.record(phaseCull, since(start))

	start = time.Now()
	s.regenerateGridLocked()
	err := s.rebuildGridLocked()
	s.record(phaseGrid, since(start))
	return err
}

func (s *System) cullLinksLocked() int {
	broken := 0
	for id := range s.links.All() {
		if s.linkStrain[id] > s.LinkStrength {
			s.removeLinkLocked(id)
			broken++
		}
	}
	return broken
}

func (s *System) rebuildGridLocked() error {
	s.state.RLock()
	err := s.grid.Build(s.positions, s.particles.Active(), s.cfg.Threads)
	s.state.RUnlock()
	if err != nil {
		return fmt.Errorf("particles: build grid: %w", err)
	}
	s.gridStale = false
	return nil
}

func (s *System) params(dt float32) compute.Params {
	cells := s.grid.CellCount()
	return compute.Params{
		Radius:              s.radius,
		Extents:             s.Bounds(),
		CellCount:           [2]int32{int32(cells[0]), int32(cells[1])},
		CellSize:            s.grid.CellSize(),
		Dt:                  dt,
		Gravity:             s.Gravity,
		AntiPressurePower:   s.AntiPressurePower,
		Iterations:          int32(s.Iterations),
		MaxLinksPerParticle: int32(s.cfg.MaxLinksPerParticle),
		EdgeMargin:          s.EdgeMargin,
		Cohesion:            s.Cohesion,
		Damping:             s.Damping,
	}
}

// SolveParticles advances the simulation by dt seconds: strain culling, grid
// rebuild, upload, one kernel dispatch, download. It always runs to
// completion once started.
func (s *System) SolveParticles(dt float32) error {
	if !(dt >= 0) {
		return fmt.Errorf("particles: dt %f: %w", dt, dynamo.ErrParameterBounds)
	}

	s.topo.Lock()
	defer s.topo.Unlock()
	if s.closed {
		return ErrClosed
	}

	total := time.Now()
	if err := s.buildDataLocked(); err != nil {
		return err
	}

	start := time.Now()
	layout := layoutFor(s.cfg, s.grid.CellCount())
	if !s.allocated || layout != s.layout {
		if err := s.backend.Allocate(layout); err != nil {
			return fmt.Errorf("particles: allocate %s: %w", s.backend.Name(), err)
		}
		s.layout = layout
		s.allocated = true
	}

	s.frame = compute.Frame{
		Positions:     s.positions,
		LastPositions: s.lastPositions,
		Colors:        s.colors,
		Active:        s.particles.Active(),
		GridKeys:      s.grid.Keys(),
		GridValues:    s.grid.Values(),
		LinkKeys:      s.linkKeys,
		Links:         s.linkTable,
		LinkStrain:    s.linkStrain,
		Fresh:         s.fresh,
	}
	s.state.RLock()
	err := s.backend.Upload(&s.frame)
	s.state.RUnlock()
	if err != nil {
		return fmt.Errorf("particles: upload: %w", err)
	}
	s.fresh = s.fresh[:0]
	s.record(phaseUpload, since(start))

	start = time.Now()
	if err := s.backend.Dispatch(s.params(dt)); err != nil {
		return fmt.Errorf("particles: dispatch: %w", err)
	}
	s.record(phaseDispatch, since(start))

	start = time.Now()
	s.state.Lock()
	err = s.backend.Download(&s.frame)
	s.state.Unlock()
	if err != nil {
		return fmt.Errorf("particles: download: %w", err)
	}
	s.record(phaseDownload, since(start))
	s.record(phaseTotal, since(total))

	s.steps++
	s.gridStale = true
	return nil
}
