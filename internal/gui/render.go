package gui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/partsim/internal/geom"
)

func toColor(c uint32) rl.Color {
	r, g, b, al := geom.UnpackRGBA(c)
	return rl.NewColor(r, g, b, al)
}

func toVec(v geom.Vec2) rl.Vector2 { return rl.NewVector2(v.X(), v.Y()) }

// strainColor shades a link from grey at rest toward red as it nears
// breaking.
func strainColor(strain, strength float32) rl.Color {
	t := float32(0)
	if strength > 0 {
		t = strain / strength
	}
	return toColor(geom.LerpRGBA(0xff808080, 0xff2020ff, t))
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	rl.BeginMode2D(a.camera)
	a.drawWorld()
	a.drawRaycast()
	rl.EndMode2D()

	a.DrawHUD()
	rl.EndDrawing()
}

func (a *App) drawWorld() {
	b := a.snap.Bounds
	if a.ShowGrid {
		a.drawGrid()
	}
	rl.DrawRectangleLinesEx(rl.NewRectangle(0, 0, b.X(), b.Y()), 1/a.camera.Zoom, ColBounds)

	strength := a.sys.LinkStrength
	for _, l := range a.snap.Links {
		rl.DrawLineV(toVec(a.snap.Positions[l.A]), toVec(a.snap.Positions[l.B]), strainColor(l.Strain, strength))
	}

	r := a.snap.Radius
	tiny := r*a.camera.Zoom < 1
	for id, live := range a.snap.Active {
		if live == 0 {
			continue
		}
		pos := toVec(a.snap.Positions[id])
		col := toColor(a.snap.Colors[id])
		if tiny {
			rl.DrawPixelV(pos, col)
		} else {
			rl.DrawCircleV(pos, r, col)
		}
	}
}

// drawGrid outlines the spatial hash cells, shading the occupied ones.
func (a *App) drawGrid() {
	g := a.sys.Grid()
	cells := g.CellCount()
	size := g.CellSize()
	counts := g.Counts()
	for y := range cells[1] {
		for x := range cells[0] {
			rect := rl.NewRectangle(float32(x)*size.X(), float32(y)*size.Y(), size.X(), size.Y())
			if i := y*cells[0] + x; i < len(counts) && counts[i] > 0 {
				rl.DrawRectangleRec(rect, rl.NewColor(40, 40, 60, 80))
			}
			rl.DrawRectangleLinesEx(rect, 1/a.camera.Zoom, ColGrid)
		}
	}
}

func (a *App) drawRaycast() {
	centre := a.sys.Bounds().Mul(0.5)
	rl.DrawLineV(toVec(centre), toVec(a.mouse), ColTextDim)
	for _, p := range a.crossings {
		rl.DrawCircleV(toVec(p), 2/a.camera.Zoom, rl.Red)
	}
	if a.hasHit {
		drawRing(a.hit.Position(), highlightRange/a.camera.Zoom, rl.Yellow)
	} else {
		drawRing(a.mouse, highlightRange/a.camera.Zoom, rl.Blue)
	}
}

func drawRing(c geom.Vec2, r float32, col rl.Color) {
	rl.DrawRing(toVec(c), r*0.9, r, 0, 360, 32, col)
}

func (a *App) DrawHUD() {
	rl.DrawText("partsim", 30, 30, 24, ColSelect)
	rl.DrawText(fmt.Sprintf(":: %s", a.opts.Scene.Kind), 140, 34, 16, ColText)

	status, col := "RUNNING", ColSelect
	if !a.Running {
		status, col = "PAUSED", ColTextDim
	}
	rl.DrawText(status, windowWidth-130, 30, 16, col)

	lines := []string{
		fmt.Sprintf("step      %d", a.snap.Step),
		fmt.Sprintf("particles %d / %d", a.snap.Particles, a.sys.Config().MaxParticles),
		fmt.Sprintf("links     %d", len(a.snap.Links)),
		fmt.Sprintf("broken    %d", a.sys.BrokenLinks()),
		fmt.Sprintf("backend   %s", a.sys.Backend().Name()),
		fmt.Sprintf("physics   %.0f fps", a.loop.MeasuredFPS()),
	}
	if a.hasHit {
		lines = append(lines, fmt.Sprintf("hit       %s", a.hit))
	}
	for i, l := range lines {
		rl.DrawText(l, 30, int32(80+i*20), 14, ColText)
	}

	a.DrawTelemetry()
	rl.DrawText("[LMB] CHAIN  [RMB] BOXES  [SPACE] PAUSE  [G] GRID  [F] FIT  [R] RESET  [Q] QUIT", 560, windowHeight-40, 14, ColTextDim)
	rl.DrawText(fmt.Sprintf("%d FPS", rl.GetFPS()), 30, windowHeight-40, 14, ColTextDim)
}

// DrawTelemetry plots recent step times as a line strip.
func (a *App) DrawTelemetry() {
	if len(a.Telemetry) < 2 {
		return
	}

	rectX, rectY := float32(30), float32(windowHeight-120)
	width, height := float32(400), float32(60)

	lo, hi := a.Telemetry[0], a.Telemetry[0]
	for _, v := range a.Telemetry {
		lo, hi = min(lo, v), max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}

	points := make([]rl.Vector2, len(a.Telemetry))
	for i, v := range a.Telemetry {
		px := rectX + float32(i)/float32(len(a.Telemetry))*width
		py := rectY + height - float32((v-lo)/(hi-lo))*height
		points[i] = rl.NewVector2(px, py)
	}
	rl.DrawLineStrip(points, ColAccent)
	rl.DrawText(fmt.Sprintf("step %.2f ms", a.Telemetry[len(a.Telemetry)-1]), int32(rectX+width+10), int32(rectY+height-10), 14, ColText)
}
