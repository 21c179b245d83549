package export

import (
	"strings"
	"testing"

	"github.com/san-kum/partsim/internal/compute"
	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
	"github.com/san-kum/partsim/internal/viz"
)

func TestSnapshotSVG(t *testing.T) {
	sys, err := particles.New(particles.Config{
		MaxParticles: 8,
		Width:        100,
		Height:       50,
		Radius:       2,
		Threads:      1,
	}, particles.WithBackend(compute.NewCPUBackend(1)))
	if err != nil {
		t.Fatal(err)
	}
	defer sys.Close()

	red := geom.PackRGBA(255, 0, 0, 255)
	a, err := sys.AddParticle(geom.V(10, 10), red)
	if err != nil {
		t.Fatal(err)
	}
	b, err := sys.AddParticle(geom.V(20, 10), red)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sys.Link(a, b, 10); err != nil {
		t.Fatal(err)
	}

	var snap particles.Snapshot
	sys.Snapshot(&snap)
	svg := SnapshotSVG(&snap, SVGOptions{Scale: 2, LinkStrength: 1})

	if !strings.Contains(svg, `width="200" height="100"`) {
		t.Errorf("unexpected size header: %s", svg[:160])
	}
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 circles, got %d", n)
	}
	if n := strings.Count(svg, "<line"); n != 1 {
		t.Errorf("expected 1 line, got %d", n)
	}
	if !strings.Contains(svg, `cx="20.0" cy="20.0" r="4.0" fill="#ff0000"`) {
		t.Error("first particle not drawn at scaled position")
	}
	if !strings.HasSuffix(svg, "</svg>") {
		t.Error("svg not closed")
	}
}

func TestCanvasToSVG(t *testing.T) {
	if CanvasToSVG(nil, 1) != "" {
		t.Error("nil canvas should give empty output")
	}

	c := viz.NewCanvas(2, 1)
	c.Set(0, 0, geom.PackRGBA(0, 255, 0, 255))
	c.Set(3, 3, geom.PackRGBA(0, 0, 255, 255))

	svg := CanvasToSVG(c, 4)
	if !strings.Contains(svg, `width="16" height="16"`) {
		t.Errorf("unexpected header: %s", svg[:160])
	}
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
	if !strings.Contains(svg, `fill="#00ff00"`) || !strings.Contains(svg, `fill="#0000ff"`) {
		t.Error("dot colours missing")
	}
}

func TestSeriesToSVG(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		segs   int
	}{
		{"empty", nil, -1},
		{"single", []float64{1}, -1},
		{"flat", []float64{2, 2, 2}, 2},
		{"ramp", []float64{0, 1, 2, 3}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svg := SeriesToSVG(tt.values, 300, 100, "#00ff00")
			if tt.segs < 0 {
				if svg != "" {
					t.Errorf("expected empty output, got %q", svg)
				}
				return
			}
			if !strings.Contains(svg, `d="M0.0,`) {
				t.Error("path does not start at x=0")
			}
			if n := strings.Count(svg, " L"); n != tt.segs {
				t.Errorf("expected %d segments, got %d", tt.segs, n)
			}
		})
	}
}
