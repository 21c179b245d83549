package viz

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/partsim/internal/compute"
	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
	"github.com/san-kum/partsim/internal/scene"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(4, 2)
	if w, h := c.Dots(); w != 8 || h != 8 {
		t.Fatalf("expected 8x8 dots, got %dx%d", w, h)
	}

	c.Set(3, 5, 1)
	if !c.IsSet(3, 5) {
		t.Error("dot not set")
	}
	if c.IsSet(2, 5) || c.IsSet(-1, 0) || c.IsSet(100, 100) {
		t.Error("unexpected dot set")
	}
	c.Set(-1, 0, 1)
	c.Set(8, 0, 1)

	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lines))
	}
	if got := []rune(lines[1])[1]; got != brailleBlank|0x10 {
		t.Errorf("expected dot 5 in cell (1,1), got %U", got)
	}

	c.Clear()
	if c.IsSet(3, 5) {
		t.Error("clear should reset dots")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 15, 10, 1)

	if !c.IsSet(0, 0) || !c.IsSet(15, 10) {
		t.Error("line endpoints not drawn")
	}
}

func TestCanvasDrawCircle(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawCircle(10, 10, 4, 1)

	for _, p := range [][2]int{{14, 10}, {6, 10}, {10, 14}, {10, 6}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("expected circle point %v", p)
		}
	}
	if c.IsSet(10, 10) {
		t.Error("circle outline should not fill the centre")
	}
}

func TestCanvasResize(t *testing.T) {
	c := NewCanvas(4, 4)
	c.Set(1, 1, 1)
	c.Resize(-3, 0)
	if c.Width != 1 || c.Height != 1 || c.IsSet(1, 1) {
		t.Errorf("expected cleared 1x1 canvas, got %dx%d", c.Width, c.Height)
	}
}

func TestCanvasRender(t *testing.T) {
	c := NewCanvas(3, 1)
	c.Set(0, 0, geom.PackRGBA(255, 0, 0, 255))
	out := c.Render()
	if !strings.ContainsRune(out, brailleBlank|0x1) {
		t.Errorf("rendered canvas missing dot: %q", out)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		filled  int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{2, 10},
		{-1, 0},
	}

	for _, tt := range tests {
		bar := ProgressBar(tt.percent, 10)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("ProgressBar(%v): expected %d filled, got %d", tt.percent, tt.filled, got)
		}
		if n := len([]rune(bar)); n != 10 {
			t.Errorf("ProgressBar(%v): expected width 10, got %d", tt.percent, n)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil, 4); got != "────" {
		t.Errorf("expected flat line, got %q", got)
	}
	got := []rune(Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8))
	if got[0] != '▁' || got[7] != '█' {
		t.Errorf("expected rising sparkline, got %q", string(got))
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("missing").Name != Themes[0].Name {
		t.Error("unknown theme should fall back to the first")
	}
	seen := map[string]bool{}
	th := Themes[0]
	for range Themes {
		seen[th.Name] = true
		th = nextTheme(th.Name)
	}
	if len(seen) != len(Themes) || th.Name != Themes[0].Name {
		t.Errorf("theme cycle should visit every theme once, saw %v", seen)
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("theme names mismatch")
	}
}

func newModel(t *testing.T) (Model, *particles.System) {
	t.Helper()
	sys, err := particles.New(particles.Config{MaxParticles: 128, Width: 100, Height: 100, Radius: 3, Threads: 1},
		particles.WithBackend(compute.NewCPUBackend(1)))
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	t.Cleanup(func() { sys.Close() })

	m, err := NewModel(sys, Options{Scene: scene.Spec{Kind: "fill", Count: 10, BoxSize: 8}, Seed: 1})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	t.Cleanup(m.Close)
	return m, sys
}

func TestModelDraws(t *testing.T) {
	m, sys := newModel(t)
	if sys.ParticleCount() != 10 {
		t.Fatalf("expected seeded scene, got %d particles", sys.ParticleCount())
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	next, _ = next.(Model).Update(TickMsg{})
	m = next.(Model)

	if m.stats.Particles != 10 {
		t.Errorf("expected stats for 10 particles, got %d", m.stats.Particles)
	}
	if !strings.ContainsFunc(m.canvas.String(), func(r rune) bool { return r > brailleBlank }) {
		t.Error("expected particles drawn on the canvas")
	}
	if v := m.View(); !strings.Contains(v, "PARTSIM") {
		t.Error("view missing header")
	}
}

func TestModelKeys(t *testing.T) {
	m, sys := newModel(t)
	m.Init()
	ctx := context.Background()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m = next.(Model)
	if m.loop.Running() {
		t.Error("space should pause")
	}

	gravity := sys.Gravity
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	m = next.(Model)
	if err := m.loop.DoSync(ctx, func() {}); err != nil {
		t.Fatal(err)
	}
	if sys.Gravity != (geom.Vec2{}) {
		t.Errorf("expected gravity off, got %v", sys.Gravity)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	if err := m.loop.DoSync(ctx, func() {}); err != nil {
		t.Fatal(err)
	}
	if sys.Gravity != gravity {
		t.Errorf("expected gravity restored to %v, got %v", gravity, sys.Gravity)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	if err := m.loop.DoSync(ctx, func() {}); err != nil {
		t.Fatal(err)
	}
	if got := sys.ParticleCount(); got != 10+4*boxesPerPress {
		t.Errorf("expected boxes spawned, got %d particles", got)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if err := m.loop.DoSync(ctx, func() {}); err != nil {
		t.Fatal(err)
	}
	if got := sys.ParticleCount(); got != 10 {
		t.Errorf("reset should restore the scene, got %d particles", got)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q should quit")
	}
}

func TestDrawSnapshot(t *testing.T) {
	red := geom.PackRGBA(255, 0, 0, 255)
	snap := &particles.Snapshot{
		Positions: []geom.Vec2{geom.V(50, 50), geom.V(0, 50)},
		Colors:    []uint32{red, red},
		Active:    []int32{1, 1},
		Links:     []particles.LinkView{{A: 0, B: 1, Length: 50}},
		Radius:    0.1,
		Bounds:    geom.V(100, 100),
	}

	c := NewCanvas(10, 5)
	DrawSnapshot(c, snap, 0xffffffff)

	if !c.IsSet(10, 10) {
		t.Error("particle dot missing")
	}
	if got := c.DotColor(10, 10); got != red {
		t.Errorf("particle colour = %#x", got)
	}
	if !c.IsSet(5, 10) {
		t.Error("link line missing")
	}
	if c.IsSet(5, 15) {
		t.Error("unexpected dot")
	}
}
