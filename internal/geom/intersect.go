package geom

// SegmentsIntersect tests segment p0-p1 against q0-q1 using the parametric
// form p0 + t*r = q0 + u*s. When the segments are collinear and
// collinearOverlap is set, overlapping segments report the start of the
// overlap as the intersection point.
func SegmentsIntersect(p0, p1, q0, q1 Vec2, collinearOverlap bool) (Vec2, bool) {
	r := p1.Sub(p0)
	s := q1.Sub(q0)
	qp := q0.Sub(p0)

	rxs := Cross(r, s)
	qpxr := Cross(qp, r)

	if abs32(rxs) < Epsilon {
		if abs32(qpxr) >= Epsilon || !collinearOverlap {
			return Vec2{}, false
		}
		rr := r.Dot(r)
		if rr < Epsilon {
			return Vec2{}, false
		}
		t0 := qp.Dot(r) / rr
		t1 := t0 + s.Dot(r)/rr
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t1 < 0 || t0 > 1 {
			return Vec2{}, false
		}
		if t0 < 0 {
			t0 = 0
		}
		return p0.Add(r.Mul(t0)), true
	}

	t := Cross(qp, s) / rxs
	u := qpxr / rxs
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Vec2{}, false
	}
	return p0.Add(r.Mul(t)), true
}

// SegmentIntersectsRay tests segment p0-p1 against the half line starting at
// origin along dir.
func SegmentIntersectsRay(p0, p1, origin, dir Vec2) (Vec2, bool) {
	s := p1.Sub(p0)
	rxs := Cross(dir, s)
	if abs32(rxs) < Epsilon {
		return Vec2{}, false
	}
	qp := p0.Sub(origin)
	t := Cross(qp, s) / rxs
	u := Cross(qp, dir) / rxs
	if t < 0 || u < 0 || u > 1 {
		return Vec2{}, false
	}
	return origin.Add(dir.Mul(t)), true
}

// ClosestPointOnSegment projects c onto segment a-b.
func ClosestPointOnSegment(a, b, c Vec2) Vec2 {
	ab := b.Sub(a)
	den := ab.Dot(ab)
	if den < Epsilon {
		return a
	}
	t := c.Sub(a).Dot(ab) / den
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(ab.Mul(t))
}

// SegmentIntersectsCircle reports whether segment a-b passes within radius of
// center.
func SegmentIntersectsCircle(a, b, center Vec2, radius float32) bool {
	p := ClosestPointOnSegment(a, b, center)
	return DistSq(p, center) <= radius*radius
}

// BresenhamCircle rasterises the outline of a circle with the midpoint
// algorithm, calling plot once per octant point.
func BresenhamCircle(cx, cy, r int, plot func(x, y int)) {
	if r <= 0 {
		plot(cx, cy)
		return
	}
	x, y := 0, r
	d := 3 - 2*r
	for y >= x {
		plot(cx+x, cy+y)
		plot(cx-x, cy+y)
		plot(cx+x, cy-y)
		plot(cx-x, cy-y)
		plot(cx+y, cy+x)
		plot(cx-y, cy+x)
		plot(cx+y, cy-x)
		plot(cx-y, cy-x)
		x++
		if d > 0 {
			y--
			d += 4*(x-y) + 10
		} else {
			d += 4*x + 6
		}
	}
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
