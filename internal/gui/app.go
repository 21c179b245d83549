package gui

import (
	"context"
	"fmt"
	"math/rand/v2"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"

	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
	"github.com/san-kum/partsim/internal/scene"
	"github.com/san-kum/partsim/internal/sim"
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColGrid    = rl.NewColor(30, 30, 30, 255)
	ColBounds  = rl.NewColor(70, 70, 90, 255)
)

const (
	windowWidth    = 1280
	windowHeight   = 720
	maxTelemetry   = 200
	chainPerFrame  = 5
	boxesPerFrame  = 20
	chainJitter    = 100
	boxSpread      = 300
	zoomStep       = 0.1
	minZoom        = 0.05
	maxZoom        = 20
	highlightRange = 25
)

type Options struct {
	Scene scene.Spec
	Seed  int64
	FPS   int
	Log   *zap.Logger
}

// App is a desktop viewer for one particle system. Physics runs on a
// sim.Loop; the window thread only snapshots, raycasts and queues edits.
type App struct {
	sys   *particles.System
	loop  *sim.Loop
	opts  Options
	log   *zap.Logger
	rng   *rand.Rand
	chain *scene.Chain

	camera    rl.Camera2D
	snap      particles.Snapshot
	Telemetry []float64
	ShowGrid  bool
	Running   bool

	hit       particles.Particle
	hasHit    bool
	crossings []geom.Vec2
	mouse     geom.Vec2
	lastErr   error
}

func initWindow(fps int) {
	rl.InitWindow(windowWidth, windowHeight, "partsim")
	rl.SetTargetFPS(int32(fps))
	rl.SetExitKey(0)
}

func NewApp(sys *particles.System, opts Options) (*App, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}

	rng := scene.NewRand(opts.Seed)
	if _, err := scene.Populate(sys, rng, opts.Scene); err != nil {
		return nil, fmt.Errorf("seeding %s: %w", opts.Scene.Kind, err)
	}

	a := &App{
		sys:       sys,
		loop:      sim.NewLoop("physics", opts.FPS, opts.Log),
		opts:      opts,
		log:       opts.Log,
		rng:       rng,
		chain:     scene.NewChain(sys, scene.RandomColor(rng)),
		Telemetry: make([]float64, 0, maxTelemetry),
		Running:   true,
	}
	a.fitCamera()

	loop, log := a.loop, a.log
	loop.Connect(func(dt float64) {
		if err := sys.SolveParticles(float32(dt)); err != nil {
			log.Error("step failed", zap.Error(err))
			loop.Pause()
		}
	})
	return a, nil
}

// Run opens a window on sys and blocks until it is closed.
func Run(sys *particles.System, opts Options) error {
	initWindow(max(opts.FPS, 60))
	defer rl.CloseWindow()

	app, err := NewApp(sys, opts)
	if err != nil {
		return err
	}
	app.RunLoop()
	return nil
}

func (a *App) RunLoop() {
	a.loop.Start(context.Background(), true)
	defer a.loop.Stop()

	for !rl.WindowShouldClose() {
		if !a.Update() {
			return
		}
		a.Draw()
	}
}

// fitCamera zooms so the whole world fits the window, centred.
func (a *App) fitCamera() {
	b := a.sys.Bounds()
	zoom := min(float32(windowWidth)/b.X(), float32(windowHeight)/b.Y()) * 0.95
	a.camera = rl.Camera2D{
		Offset: rl.NewVector2(windowWidth/2, windowHeight/2),
		Target: rl.NewVector2(b.X()/2, b.Y()/2),
		Zoom:   zoom,
	}
}

func (a *App) worldMouse() geom.Vec2 {
	w := rl.GetScreenToWorld2D(rl.GetMousePosition(), a.camera)
	return geom.V(w.X, w.Y)
}

// Update handles input for one frame. It returns false when the viewer
// should close.
func (a *App) Update() bool {
	if rl.IsKeyPressed(rl.KeyQ) || rl.IsKeyPressed(rl.KeyEscape) {
		return false
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.Running = !a.Running
		if a.Running {
			a.loop.Resume()
		} else {
			a.loop.Pause()
		}
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && !a.Running {
		a.loop.Step(1)
	}
	if rl.IsKeyPressed(rl.KeyG) {
		a.ShowGrid = !a.ShowGrid
	}
	if rl.IsKeyPressed(rl.KeyF) {
		a.fitCamera()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.queue(func() error {
			a.sys.Clear()
			a.chain.Reset()
			_, err := scene.Populate(a.sys, a.rng, a.opts.Scene)
			return err
		})
	}

	a.updateCamera()
	a.mouse = a.worldMouse()

	if rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		target := a.mouse
		zoom := a.camera.Zoom
		a.queue(func() error { return a.growChain(target, zoom) })
	}
	if rl.IsMouseButtonReleased(rl.MouseButtonLeft) {
		a.queue(func() error {
			a.chain.Reset()
			return nil
		})
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		at := a.mouse
		zoom := a.camera.Zoom
		a.queue(func() error { return a.spawnBoxes(at, zoom) })
	}

	a.sys.Snapshot(&a.snap)
	a.raycast()

	a.Telemetry = append(a.Telemetry, a.sys.Timings().Total)
	if len(a.Telemetry) > maxTelemetry {
		a.Telemetry = a.Telemetry[1:]
	}
	return true
}

func (a *App) updateCamera() {
	if rl.IsMouseButtonDown(rl.MouseButtonMiddle) {
		d := rl.GetMouseDelta()
		a.camera.Target.X -= d.X / a.camera.Zoom
		a.camera.Target.Y -= d.Y / a.camera.Zoom
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		anchor := rl.GetScreenToWorld2D(rl.GetMousePosition(), a.camera)
		a.camera.Offset = rl.GetMousePosition()
		a.camera.Target = anchor
		a.camera.Zoom = min(max(a.camera.Zoom*(1+wheel*zoomStep), minZoom), maxZoom)
	}
}

// queue runs fn between physics steps; failures are logged once.
func (a *App) queue(fn func() error) {
	err := a.loop.Do(func() {
		if err := fn(); err != nil && err != a.lastErr {
			a.lastErr = err
			a.log.Warn("edit failed", zap.Error(err))
		}
	})
	if err != nil {
		a.log.Warn("queue edit", zap.Error(err))
	}
}

// growChain and spawnBoxes run on the physics goroutine; zoom is read on the
// window thread and passed in.
func (a *App) growChain(target geom.Vec2, zoom float32) error {
	for range chainPerFrame {
		if _, err := a.chain.Extend(target.Add(scene.Jitter(a.rng, chainJitter/zoom))); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) spawnBoxes(at geom.Vec2, zoom float32) error {
	side := a.opts.Scene.BoxSize
	for range boxesPerFrame {
		if _, err := scene.Box(a.sys, at.Add(scene.Jitter(a.rng, boxSpread/zoom)), side, scene.RandomColor(a.rng)); err != nil {
			return err
		}
	}
	return nil
}

// raycast casts from the world centre toward the mouse, recording the first
// particle hit and the grid crossings on the way.
func (a *App) raycast() {
	centre := a.sys.Bounds().Mul(0.5)
	dir := a.mouse.Sub(centre)
	a.hit, a.hasHit, a.crossings = a.sys.RaycastDebug(centre, dir, dir.Len())
}
