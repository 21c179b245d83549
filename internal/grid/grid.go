// Package grid implements a uniform spatial hash over a rectangular world,
// rebuilt from scratch every step with a two-pass parallel counting sort.
//
// Cell runs are stored folded: values[keys[c]] holds the number of objects in
// cell c and the object ids follow at keys[c]+1 .. keys[c]+count. A separate
// per-cell count slice mirrors the folded counts for host readers.
package grid

import (
	"sync"
	"sync/atomic"

	"github.com/san-kum/partsim/internal/dynamo"
	"github.com/san-kum/partsim/internal/geom"
)

type Grid struct {
	mu sync.RWMutex

	cellCount [2]int
	extents   geom.Vec2
	cellSize  geom.Vec2

	keys    []int32
	counts  []int32
	cursors []int32
	values  []int32
	cellOf  []int32
}

// New allocates a grid of cellCount cells covering [0, extents) sized for
// objectCount objects.
func New(cellCount [2]int, extents geom.Vec2, objectCount int) *Grid {
	g := &Grid{}
	g.resize(cellCount, extents, objectCount)
	return g
}

func (g *Grid) resize(cellCount [2]int, extents geom.Vec2, objectCount int) {
	for i := range cellCount {
		if cellCount[i] < 1 {
			cellCount[i] = 1
		}
	}
	if objectCount < 0 {
		objectCount = 0
	}
	cells := cellCount[0] * cellCount[1]

	g.cellCount = cellCount
	g.extents = extents
	g.cellSize = geom.Vec2{extents[0] / float32(cellCount[0]), extents[1] / float32(cellCount[1])}
	g.keys = make([]int32, cells)
	g.counts = make([]int32, cells)
	g.cursors = make([]int32, cells)
	g.values = make([]int32, objectCount+cells)
	g.cellOf = make([]int32, objectCount)
}

// SetCellCount reallocates every index array. It is a no-op when neither the
// cell count nor the extents change.
func (g *Grid) SetCellCount(cellCount [2]int, extents geom.Vec2) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cellCount == g.cellCount && extents == g.extents {
		return
	}
	g.resize(cellCount, extents, len(g.cellOf))
}

func (g *Grid) CellCount() [2]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cellCount
}

func (g *Grid) CellSize() geom.Vec2 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cellSize
}

func (g *Grid) Extents() geom.Vec2 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.extents
}

// Coord returns the clamped cell coordinate containing pos.
func (g *Grid) Coord(pos geom.Vec2) (int, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.coord(pos)
}

func (g *Grid) coord(pos geom.Vec2) (int, int) {
	if !geom.IsFinite(pos) {
		return 0, 0
	}
	maxCell := geom.Vec2{float32(g.cellCount[0] - 1), float32(g.cellCount[1] - 1)}
	c := geom.Floor(geom.Clamp(geom.Vec2{pos[0] / g.cellSize[0], pos[1] / g.cellSize[1]}, geom.Vec2{}, maxCell))
	return int(c[0]), int(c[1])
}

// Index returns the flattened cell index x + y*cellCount.X of pos. Positions
// outside the grid resolve to the nearest edge cell.
func (g *Grid) Index(pos geom.Vec2) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.index(pos)
}

func (g *Grid) index(pos geom.Vec2) int {
	x, y := g.coord(pos)
	return x + y*g.cellCount[0]
}

// Contains reports whether pos lies in [0, extents) on both axes.
func (g *Grid) Contains(pos geom.Vec2) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.contains(pos)
}

func (g *Grid) contains(pos geom.Vec2) bool {
	return pos[0] >= 0 && pos[1] >= 0 && pos[0] < g.extents[0] && pos[1] < g.extents[1]
}

// Build buckets every active position. len(active) must equal len(positions).
// threads <= 0 uses every CPU.
func (g *Grid) Build(positions []geom.Vec2, active []int32, threads int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := len(positions)
	if n > len(g.cellOf) {
		cells := len(g.keys)
		g.cellOf = make([]int32, n)
		g.values = make([]int32, n+cells)
	}

	clear(g.counts)
	if err := dynamo.ParallelFor(n, threads, func(start, end int) error {
		g.countRange(positions, active, start, end)
		return nil
	}); err != nil {
		return err
	}

	g.prefixSum()

	return dynamo.ParallelFor(n, threads, func(start, end int) error {
		return g.scatterRange(start, end)
	})
}

func (g *Grid) countRange(positions []geom.Vec2, active []int32, start, end int) {
	for i := start; i < end; i++ {
		if active[i] == 0 {
			g.cellOf[i] = -1
			continue
		}
		c := int32(g.index(positions[i]))
		g.cellOf[i] = c
		atomic.AddInt32(&g.counts[c], 1)
	}
}

func (g *Grid) prefixSum() {
	var offset int32
	for c, count := range g.counts {
		g.keys[c] = offset
		g.values[offset] = count
		g.cursors[c] = 0
		offset += count + 1
	}
}

func (g *Grid) scatterRange(start, end int) error {
	for i := start; i < end; i++ {
		c := g.cellOf[i]
		if c < 0 {
			continue
		}
		slot := atomic.AddInt32(&g.cursors[c], 1)
		idx := int(g.keys[c] + slot)
		if slot > g.counts[c] || idx >= len(g.values) {
			return &OverflowError{Index: idx, Capacity: len(g.values)}
		}
		g.values[idx] = int32(i)
	}
	return nil
}

// Cell returns the ids bucketed in cell index. The slice aliases the value
// buffer and is only valid until the next Build.
func (g *Grid) Cell(index int) []int32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cell(index)
}

func (g *Grid) cell(index int) []int32 {
	if index < 0 || index >= len(g.keys) {
		return nil
	}
	start := g.keys[index] + 1
	return g.values[start : start+g.counts[index]]
}

// CellAt returns the ids bucketed in the cell containing pos.
func (g *Grid) CellAt(pos geom.Vec2) []int32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cell(g.index(pos))
}

// Keys, Values and Counts expose the index arrays by reference for bulk
// upload. Callers must not overlap them with Build.
func (g *Grid) Keys() []int32   { return g.keys }
func (g *Grid) Values() []int32 { return g.values }
func (g *Grid) Counts() []int32 { return g.counts }

// Snapshot is a copy of the index arrays for renderers.
type Snapshot struct {
	CellCount [2]int
	CellSize  geom.Vec2
	Keys      []int32
	Values    []int32
	Counts    []int32
}

func (g *Grid) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Snapshot{
		CellCount: g.cellCount,
		CellSize:  g.cellSize,
		Keys:      append([]int32(nil), g.keys...),
		Values:    append([]int32(nil), g.values...),
		Counts:    append([]int32(nil), g.counts...),
	}
}
