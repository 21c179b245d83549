package compute

import (
	"errors"
	"testing"

	"github.com/san-kum/partsim/internal/geom"
)

func testFrame(positions ...geom.Vec2) (*Frame, Layout) {
	n := len(positions)
	layout := Layout{Particles: n, Links: 1, LinksPerParticle: 2, Cells: 1}
	f := &Frame{
		Positions:     append([]geom.Vec2(nil), positions...),
		LastPositions: append([]geom.Vec2(nil), positions...),
		Colors:        make([]uint32, n),
		Active:        make([]int32, n),
		GridKeys:      []int32{0},
		GridValues:    make([]int32, layout.GridValues()),
		LinkKeys:      make([]int32, n*2),
		Links:         []Link{NoLink},
		LinkStrain:    []float32{0},
	}
	f.GridValues[0] = int32(n)
	for i := range positions {
		f.Active[i] = 1
		f.GridValues[i+1] = int32(i)
	}
	for i := range f.LinkKeys {
		f.LinkKeys[i] = -1
	}
	return f, layout
}

func testParams(extents geom.Vec2) Params {
	return Params{
		Radius:              5,
		Extents:             extents,
		CellCount:           [2]int32{1, 1},
		CellSize:            extents,
		Dt:                  1.0 / 60,
		Iterations:          5,
		MaxLinksPerParticle: 2,
		EdgeMargin:          DefaultEdgeMargin,
		Damping:             DefaultDamping,
	}
}

func TestCPUBackendRequiresAllocate(t *testing.T) {
	b := NewCPUBackend(1)
	f, _ := testFrame(geom.V(1, 1))
	if err := b.Upload(f); !errors.Is(err, ErrNotAllocated) {
		t.Errorf("expected ErrNotAllocated on upload, got %v", err)
	}
	if err := b.Dispatch(Params{}); !errors.Is(err, ErrNotAllocated) {
		t.Errorf("expected ErrNotAllocated on dispatch, got %v", err)
	}
}

func TestCPUBackendLayoutMismatch(t *testing.T) {
	b := NewCPUBackend(1)
	f, layout := testFrame(geom.V(1, 1), geom.V(2, 2))
	layout.Particles = 3
	if err := b.Allocate(layout); err != nil {
		t.Fatal(err)
	}
	if err := b.Upload(f); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("expected ErrLayoutMismatch, got %v", err)
	}
}

func TestCPUBackendRoundTrip(t *testing.T) {
	extents := geom.V(100, 100)
	f, layout := testFrame(geom.V(50, 50), geom.V(54, 50))

	b := NewCPUBackend(1)
	if err := b.Allocate(layout); err != nil {
		t.Fatal(err)
	}
	if err := b.Upload(f); err != nil {
		t.Fatal(err)
	}
	if err := b.Dispatch(testParams(extents)); err != nil {
		t.Fatal(err)
	}
	if err := b.Download(f); err != nil {
		t.Fatal(err)
	}
	if d := f.Positions[0].Sub(f.Positions[1]).Len(); d < 9 {
		t.Errorf("expected overlap resolved, distance %f", d)
	}

	b.Cleanup()
	if err := b.Dispatch(testParams(extents)); !errors.Is(err, ErrNotAllocated) {
		t.Errorf("expected cleanup to release buffers, got %v", err)
	}
}

func TestCPUBackendFreshResetsTravel(t *testing.T) {
	b := NewCPUBackend(1)
	f, layout := testFrame(geom.V(50, 50))
	b.Allocate(layout)
	b.travel[0] = 42

	f.Fresh = []int32{0}
	if err := b.Upload(f); err != nil {
		t.Fatal(err)
	}
	if b.travel[0] != 0 {
		t.Errorf("expected fresh particle travel reset, got %f", b.travel[0])
	}
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend("cpu", 2)
	if err != nil {
		t.Fatal(err)
	}
	if cpu, ok := b.(*CPUBackend); !ok || cpu.Workers() != 2 {
		t.Errorf("expected cpu backend with 2 workers, got %s", b.Name())
	}
	if _, err := NewBackend("vulkan", 0); err == nil {
		t.Error("expected error for unknown backend")
	}
	if b := AutoSelectBackend(); !b.Available() {
		t.Errorf("auto-selected backend %s is unavailable", b.Name())
	}
}
