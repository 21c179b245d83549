package compute

import (
	"fmt"
	"runtime"

	"github.com/san-kum/partsim/internal/dynamo"
	"github.com/san-kum/partsim/internal/geom"
)

// CPUBackend runs the kernel on goroutines over device-side copies of every
// buffer. Travel distances exist only here.
type CPUBackend struct {
	workers int
	layout  Layout
	ready   bool

	positions     []geom.Vec2
	lastPositions []geom.Vec2
	travel        []float32
	active        []int32
	gridKeys      []int32
	gridValues    []int32
	linkKeys      []int32
	links         []Link
	linkStrain    []float32
}

// NewCPUBackend returns a backend using workers goroutines, or one per CPU
// when workers <= 0.
func NewCPUBackend(workers int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{workers: workers}
}

func (c *CPUBackend) Name() string    { return fmt.Sprintf("cpu (%d workers)", c.workers) }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Workers() int    { return c.workers }

func (c *CPUBackend) Allocate(layout Layout) error {
	travel := make([]float32, layout.Particles)
	copy(travel, c.travel)

	c.layout = layout
	c.positions = make([]geom.Vec2, layout.Particles)
	c.lastPositions = make([]geom.Vec2, layout.Particles)
	c.travel = travel
	c.active = make([]int32, layout.Particles)
	c.gridKeys = make([]int32, layout.Cells)
	c.gridValues = make([]int32, layout.GridValues())
	c.linkKeys = make([]int32, layout.Particles*layout.LinksPerParticle)
	c.links = make([]Link, layout.Links)
	c.linkStrain = make([]float32, layout.Links)
	c.ready = true
	return nil
}

func (c *CPUBackend) Upload(f *Frame) error {
	if !c.ready {
		return ErrNotAllocated
	}
	if err := c.check(f); err != nil {
		return err
	}
	copy(c.positions, f.Positions)
	copy(c.lastPositions, f.LastPositions)
	copy(c.active, f.Active)
	copy(c.gridKeys, f.GridKeys)
	copy(c.gridValues, f.GridValues)
	copy(c.linkKeys, f.LinkKeys)
	copy(c.links, f.Links)
	copy(c.linkStrain, f.LinkStrain)
	for _, id := range f.Fresh {
		c.travel[id] = 0
	}
	return nil
}

func (c *CPUBackend) check(f *Frame) error {
	l := c.layout
	switch {
	case len(f.Positions) != l.Particles,
		len(f.LastPositions) != l.Particles,
		len(f.Active) != l.Particles,
		len(f.GridKeys) != l.Cells,
		len(f.GridValues) > l.GridValues(),
		len(f.LinkKeys) != l.Particles*l.LinksPerParticle,
		len(f.Links) != l.Links,
		len(f.LinkStrain) != l.Links:
		return ErrLayoutMismatch
	}
	return nil
}

func (c *CPUBackend) Dispatch(p Params) error {
	if !c.ready {
		return ErrNotAllocated
	}
	k := &Kernel{
		Params:        p,
		Positions:     c.positions,
		LastPositions: c.lastPositions,
		Travel:        c.travel,
		Active:        c.active,
		GridKeys:      c.gridKeys,
		GridValues:    c.gridValues,
		LinkKeys:      c.linkKeys,
		Links:         c.links,
		LinkStrain:    c.linkStrain,
	}
	return dynamo.ParallelFor(c.layout.Particles, c.workers, func(start, end int) error {
		for id := start; id < end; id++ {
			k.Execute(id)
		}
		return nil
	})
}

func (c *CPUBackend) Download(f *Frame) error {
	if !c.ready {
		return ErrNotAllocated
	}
	copy(f.Positions, c.positions)
	copy(f.LastPositions, c.lastPositions)
	copy(f.LinkStrain, c.linkStrain)
	return nil
}

func (c *CPUBackend) Cleanup() {
	*c = CPUBackend{workers: c.workers}
}
