package grid

import (
	"sort"

	"github.com/san-kum/partsim/internal/geom"
)

// LineCells returns, in order of distance from start, the non-empty cells the
// segment start-end passes through, together with the points where it
// crosses cell edges.
func (g *Grid) LineCells(start, end geom.Vec2) ([]int, []geom.Vec2) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	points := g.edgeCrossings(start, end)
	if g.contains(start) {
		points = append(points, start)
	}
	if g.contains(end) {
		points = append(points, end)
	}
	sort.SliceStable(points, func(i, j int) bool {
		return geom.DistSq(points[i], start) < geom.DistSq(points[j], start)
	})

	var cells []int
	last := -1
	for i := 0; i+1 < len(points); i++ {
		mid := geom.Midpoint(points[i], points[i+1])
		if !g.contains(mid) {
			continue
		}
		c := g.index(mid)
		if c == last {
			continue
		}
		last = c
		if g.counts[c] > 0 {
			cells = append(cells, c)
		}
	}
	return cells, points
}

func (g *Grid) edgeCrossings(start, end geom.Vec2) []geom.Vec2 {
	var points []geom.Vec2
	for i := 0; i <= g.cellCount[0]; i++ {
		x := float32(i) * g.cellSize[0]
		if p, ok := geom.SegmentsIntersect(start, end, geom.Vec2{x, 0}, geom.Vec2{x, g.extents[1]}, false); ok {
			points = append(points, p)
		}
	}
	for j := 0; j <= g.cellCount[1]; j++ {
		y := float32(j) * g.cellSize[1]
		if p, ok := geom.SegmentsIntersect(start, end, geom.Vec2{0, y}, geom.Vec2{g.extents[0], y}, false); ok {
			points = append(points, p)
		}
	}
	return points
}
