package viz

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"go.uber.org/zap"

	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/metrics"
	"github.com/san-kum/partsim/internal/particles"
	"github.com/san-kum/partsim/internal/scene"
	"github.com/san-kum/partsim/internal/sim"
	"github.com/san-kum/partsim/internal/storage"
)

const (
	defaultWidth    = 80
	defaultHeight   = 24
	panelWidth      = 48
	historyCapacity = 120
	frameRate       = 30
	boxesPerPress   = 20
	chainPerPress   = 12
)

type TickMsg time.Time

// Options configure a live Model.
type Options struct {
	Title string
	Scene scene.Spec
	Seed  int64
	Theme string
	FPS   int

	// Recorder, when set, receives a stats row every RecordEvery steps.
	Recorder    *storage.StatsWriter
	RecordEvery int

	Log *zap.Logger
}

// fault carries the first stepping error from the loop goroutine to the UI.
type fault struct {
	mu  sync.Mutex
	err error
}

func (f *fault) set(err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}

func (f *fault) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Model is a bubbletea model that steps a particle system on a sim.Loop and
// draws snapshots of it on a braille canvas.
type Model struct {
	sys   *particles.System
	loop  *sim.Loop
	opts  Options
	rng   *rand.Rand
	chain *scene.Chain
	fault *fault

	canvas    *Canvas
	snap      particles.Snapshot
	collector metrics.Collector
	stats     metrics.Stats

	stepHistory   []float64
	energyHistory []float64
	lastRecorded  int

	gravity geom.Vec2

	theme    Theme
	st       styles
	showHelp bool
	quitting bool
}

// NewModel seeds sys with opts.Scene and starts stepping it. The Model owns
// the loop and the recorder; sys stays owned by the caller.
func NewModel(sys *particles.System, opts Options) (Model, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.RecordEvery <= 0 {
		opts.RecordEvery = opts.FPS
	}

	rng := scene.NewRand(opts.Seed)
	if _, err := scene.Populate(sys, rng, opts.Scene); err != nil {
		return Model{}, fmt.Errorf("seeding %s: %w", opts.Scene.Kind, err)
	}

	theme := GetTheme(opts.Theme)
	m := Model{
		sys:           sys,
		loop:          sim.NewLoop("physics", opts.FPS, opts.Log),
		opts:          opts,
		rng:           rng,
		chain:         scene.NewChain(sys, scene.RandomColor(rng)),
		fault:         &fault{},
		canvas:        NewCanvas(defaultWidth-panelWidth, defaultHeight-2),
		stepHistory:   make([]float64, 0, historyCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
		gravity:       sys.Gravity,
		theme:         theme,
		st:            newStyles(theme),
	}
	if m.gravity == (geom.Vec2{}) {
		m.gravity = geom.V(0, 400)
	}

	loop, f := m.loop, m.fault
	loop.Connect(func(dt float64) {
		if err := sys.SolveParticles(float32(dt)); err != nil {
			f.set(err)
			loop.Pause()
		}
	})
	return m, nil
}

// Loop exposes the stepping loop, mainly for tests.
func (m Model) Loop() *sim.Loop { return m.loop }

func (m Model) Init() tea.Cmd {
	m.loop.Start(context.Background(), true)
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.canvas.Resize(msg.Width-panelWidth-2, msg.Height-2)
	case TickMsg:
		if m.quitting {
			return m, nil
		}
		m.refresh()
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.Close()
		m.quitting = true
		return m, tea.Quit
	case " ":
		if m.loop.Running() {
			m.loop.Pause()
		} else {
			m.loop.Resume()
		}
	case ".":
		if !m.loop.Running() {
			m.loop.Step(1)
		}
	case "b":
		m.do(m.spawnBoxes)
	case "c":
		m.do(m.growChain)
	case "g":
		m.do(m.toggleGravity)
	case "r":
		m.do(m.reset)
	case "+", "=":
		m.loop.SetTargetFPS(m.loop.TargetFPS() + 10)
	case "-", "_":
		m.loop.SetTargetFPS(max(10, m.loop.TargetFPS()-10))
	case "t":
		m.theme = nextTheme(m.theme.Name)
		m.st = newStyles(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// do runs fn between steps on the loop goroutine.
func (m Model) do(fn func() error) {
	f := m.fault
	if err := m.loop.Do(func() {
		if err := fn(); err != nil {
			f.set(err)
		}
	}); err != nil {
		f.set(err)
	}
}

func (m Model) spawnBoxes() error {
	bounds := m.sys.Bounds()
	side := m.opts.Scene.BoxSize
	for range boxesPerPress {
		at := geom.V(m.rng.Float32()*(bounds.X()-side), m.rng.Float32()*bounds.Y()*0.5)
		if _, err := scene.Box(m.sys, at, side, scene.RandomColor(m.rng)); err != nil {
			return err
		}
	}
	return nil
}

func (m Model) growChain() error {
	bounds := m.sys.Bounds()
	target := geom.V(m.rng.Float32()*bounds.X(), m.rng.Float32()*bounds.Y())
	for range chainPerPress {
		jitter := geom.V(m.rng.Float32()*20-10, m.rng.Float32()*20-10)
		if _, err := m.chain.Extend(target.Add(jitter)); err != nil {
			return err
		}
	}
	return nil
}

func (m Model) toggleGravity() error {
	if m.sys.Gravity == (geom.Vec2{}) {
		m.sys.Gravity = m.gravity
	} else {
		m.sys.Gravity = geom.Vec2{}
	}
	return nil
}

func (m Model) reset() error {
	m.sys.Clear()
	m.chain.Reset()
	_, err := scene.Populate(m.sys, m.rng, m.opts.Scene)
	return err
}

// Close stops the loop and flushes the recorder.
func (m Model) Close() {
	m.loop.Stop()
	if m.opts.Recorder != nil {
		m.opts.Recorder.Close()
	}
}

func (m *Model) refresh() {
	m.sys.Snapshot(&m.snap)
	m.stats = m.collector.Compute(&m.snap)

	m.stepHistory = pushHistory(m.stepHistory, m.sys.Timings().Total)
	m.energyHistory = pushHistory(m.energyHistory, m.stats.KineticEnergy)

	if rec := m.opts.Recorder; rec != nil && m.snap.Step-m.lastRecorded >= m.opts.RecordEvery {
		if err := rec.Write(m.stats); err != nil {
			m.fault.set(err)
		}
		m.lastRecorded = m.snap.Step
	}
	m.draw()
}

func pushHistory(h []float64, v float64) []float64 {
	if len(h) == historyCapacity {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}

func (m *Model) draw() {
	DrawSnapshot(m.canvas, &m.snap, m.theme.Link)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	canvasView := m.st.canvas.Render(m.canvas.Render())

	var s strings.Builder
	title := m.opts.Title
	if title == "" {
		title = m.opts.Scene.Kind
	}
	s.WriteString(m.st.header.Render("PARTSIM · "+strings.ToUpper(title)) + "\n")

	switch err := m.fault.get(); {
	case err != nil:
		s.WriteString(m.st.failed.Render("ERROR") + " " + m.st.value.Render(err.Error()) + "\n\n")
	case m.loop.Running():
		s.WriteString(m.st.running.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(m.st.paused.Render("PAUSED") + "\n\n")
	}

	if len(m.stepHistory) > 1 {
		chart := asciigraph.Plot(m.stepHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("step ms"))
		s.WriteString(m.st.graph.Render(chart) + "\n\n")
	}

	capacity := m.sys.Config().MaxParticles
	row := func(label, value string) {
		s.WriteString(m.st.label.Render(label) + m.st.value.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", m.snap.Step))
	row("Particles", fmt.Sprintf("%d %s", m.stats.Particles, ProgressBar(float64(m.stats.Particles)/float64(capacity), 10)))
	row("Links", fmt.Sprintf("%d (-%d)", m.stats.Links, m.sys.BrokenLinks()))
	row("Energy", fmt.Sprintf("%.2f %s", m.stats.KineticEnergy, Sparkline(m.energyHistory, 12)))
	row("Max speed", fmt.Sprintf("%.3f", m.stats.MaxSpeed))
	row("Max strain", fmt.Sprintf("%.3f", m.stats.MaxStrain))
	row("FPS", fmt.Sprintf("%.0f / %d", m.loop.MeasuredFPS(), m.loop.TargetFPS()))
	row("Backend", m.sys.Backend().Name())

	t := m.sys.Timings()
	row("Grid", fmt.Sprintf("%.2f ms", t.Grid))
	row("Dispatch", fmt.Sprintf("%.2f ms", t.Dispatch))

	s.WriteString(m.st.help.Render("SP:Pause .:Step B:Boxes C:Chain\nG:Gravity R:Reset T:Theme Q:Quit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.st.panel.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

const helpOverlay = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  .        - Single step while paused ║
║  B        - Drop a handful of boxes  ║
║  C        - Grow the chain           ║
║  G        - Toggle gravity           ║
║  R        - Reset the scene          ║
║  +/-      - Change target rate       ║
║  T        - Cycle themes             ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

// Run starts a full-screen live view of sys.
func Run(sys *particles.System, opts Options) error {
	m, err := NewModel(sys, opts)
	if err != nil {
		return err
	}
	defer m.Close()
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
