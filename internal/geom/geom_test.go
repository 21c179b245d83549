package geom

import (
	"testing"
)

func TestSegmentsIntersect(t *testing.T) {
	tests := []struct {
		name    string
		p0, p1  Vec2
		q0, q1  Vec2
		overlap bool
		want    Vec2
		hit     bool
	}{
		{"crossing", V(0, 0), V(10, 10), V(0, 10), V(10, 0), false, V(5, 5), true},
		{"disjoint", V(0, 0), V(1, 0), V(0, 1), V(1, 1), false, Vec2{}, false},
		{"touching end", V(0, 0), V(10, 0), V(10, -5), V(10, 5), false, V(10, 0), true},
		{"collinear ignored", V(0, 0), V(10, 0), V(5, 0), V(15, 0), false, Vec2{}, false},
		{"collinear overlap", V(0, 0), V(10, 0), V(5, 0), V(15, 0), true, V(5, 0), true},
		{"collinear apart", V(0, 0), V(10, 0), V(11, 0), V(15, 0), true, Vec2{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SegmentsIntersect(tt.p0, tt.p1, tt.q0, tt.q1, tt.overlap)
			if ok != tt.hit {
				t.Fatalf("expected hit=%v, got %v", tt.hit, ok)
			}
			if ok && DistSq(got, tt.want) > 1e-6 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSegmentIntersectsRay(t *testing.T) {
	p, ok := SegmentIntersectsRay(V(5, -5), V(5, 5), V(0, 0), V(1, 0))
	if !ok {
		t.Fatal("expected ray to hit segment")
	}
	if DistSq(p, V(5, 0)) > 1e-6 {
		t.Errorf("expected (5,0), got %v", p)
	}

	if _, ok := SegmentIntersectsRay(V(5, -5), V(5, 5), V(0, 0), V(-1, 0)); ok {
		t.Error("ray pointing away should miss")
	}
}

func TestSegmentIntersectsCircle(t *testing.T) {
	if !SegmentIntersectsCircle(V(0, 50), V(100, 50), V(50, 50), 5) {
		t.Error("segment through centre should hit")
	}
	if SegmentIntersectsCircle(V(0, 0), V(0, 100), V(50, 50), 5) {
		t.Error("distant parallel segment should miss")
	}
	if !SegmentIntersectsCircle(V(0, 54), V(100, 54), V(50, 50), 5) {
		t.Error("grazing segment should hit")
	}
	if SegmentIntersectsCircle(V(0, 50), V(40, 50), V(50, 50), 5) {
		t.Error("segment ending before the circle should miss")
	}
}

func TestBresenhamCircle(t *testing.T) {
	r := 6
	seen := map[[2]int]bool{}
	BresenhamCircle(0, 0, r, func(x, y int) {
		seen[[2]int{x, y}] = true
		d2 := x*x + y*y
		if d2 < (r-1)*(r-1) || d2 > (r+1)*(r+1) {
			t.Errorf("point (%d,%d) is off the circle", x, y)
		}
	})
	for _, p := range [][2]int{{r, 0}, {-r, 0}, {0, r}, {0, -r}} {
		if !seen[p] {
			t.Errorf("expected axis point %v", p)
		}
	}
}

func TestPackRGBA(t *testing.T) {
	c := PackRGBA(0x11, 0x22, 0x33, 0x44)
	if c != 0x44332211 {
		t.Fatalf("expected 0x44332211, got %#x", c)
	}
	r, g, b, a := UnpackRGBA(c)
	if r != 0x11 || g != 0x22 || b != 0x33 || a != 0x44 {
		t.Errorf("unpack mismatch: %x %x %x %x", r, g, b, a)
	}
}

func TestLerpRGBA(t *testing.T) {
	black := PackRGBA(0, 0, 0, 255)
	white := PackRGBA(255, 255, 255, 255)
	if LerpRGBA(black, white, 0) != black || LerpRGBA(black, white, 1) != white {
		t.Fatal("endpoints should be returned unchanged")
	}
	r, _, _, a := UnpackRGBA(LerpRGBA(black, white, 0.5))
	if r < 127 || r > 128 || a != 255 {
		t.Errorf("unexpected midpoint r=%d a=%d", r, a)
	}
}

func TestSafeNormalize(t *testing.T) {
	if SafeNormalize(Vec2{}) != (Vec2{}) {
		t.Error("zero vector should stay zero")
	}
	n := SafeNormalize(V(3, 4))
	if d := n.Len() - 1; d > 1e-6 || d < -1e-6 {
		t.Errorf("expected unit length, got %f", n.Len())
	}
}
