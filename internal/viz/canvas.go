package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
)

// Braille cells are 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBlank = 0x2800

var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille bitmap Width x Height characters in size, addressed in
// dots: (Width*2) x (Height*4). Each character remembers the colour of the
// last dot set in it.
type Canvas struct {
	Width, Height int
	cells         []rune
	colors        []uint32
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h}
	c.Resize(w, h)
	return c
}

// Resize reallocates the canvas and clears it.
func (c *Canvas) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	c.Width, c.Height = w, h
	c.cells = make([]rune, w*h)
	c.colors = make([]uint32, w*h)
	c.Clear()
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = brailleBlank
	}
	clear(c.colors)
}

func (c *Canvas) Set(x, y int, color uint32) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	i := row*c.Width + col
	c.cells[i] |= dotBits[y%4][x%2]
	c.colors[i] = color
}

// IsSet reports whether the dot at (x, y) is lit.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.cells[(y/4)*c.Width+x/2]&dotBits[y%4][x%2] != 0
}

// DotColor returns the colour of the character holding dot (x, y).
func (c *Canvas) DotColor(x, y int) uint32 {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return 0
	}
	return c.colors[(y/4)*c.Width+x/2]
}

// DrawLine draws a line with Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, color uint32) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy
	for {
		c.Set(x0, y0, color)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) DrawCircle(cx, cy, r int, color uint32) {
	geom.BresenhamCircle(cx, cy, r, func(x, y int) { c.Set(x, y, color) })
}

// String renders the canvas without colour.
func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(len(c.cells)*3 + c.Height)
	for row := range c.Height {
		for _, r := range c.cells[row*c.Width : (row+1)*c.Width] {
			b.WriteRune(r)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Render draws the canvas with each character tinted by its dot colour.
// Runs of equal colour share one style.
func (c *Canvas) Render() string {
	var b strings.Builder
	for row := range c.Height {
		start := row * c.Width
		end := start + c.Width
		for i := start; i < end; {
			j := i + 1
			for j < end && c.colors[j] == c.colors[i] {
				j++
			}
			run := string(c.cells[i:j])
			if c.colors[i] == 0 {
				b.WriteString(run)
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(hexRGBA(c.colors[i])).Render(run))
			}
			i = j
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// DrawSnapshot clears c and draws snap scaled to fit: links as lines in
// linkColor, particles as circles, or single dots once they shrink below
// two dots across.
func DrawSnapshot(c *Canvas, snap *particles.Snapshot, linkColor uint32) {
	c.Clear()
	dw, dh := c.Dots()
	scale := float32(1)
	if b := snap.Bounds; b.X() > 0 && b.Y() > 0 {
		scale = min(float32(dw)/b.X(), float32(dh)/b.Y())
	}
	dot := func(p geom.Vec2) (int, int) { return int(p.X() * scale), int(p.Y() * scale) }

	for _, l := range snap.Links {
		x0, y0 := dot(snap.Positions[l.A])
		x1, y1 := dot(snap.Positions[l.B])
		c.DrawLine(x0, y0, x1, y1, linkColor)
	}

	r := int(snap.Radius*scale + 0.5)
	for id, live := range snap.Active {
		if live == 0 {
			continue
		}
		x, y := dot(snap.Positions[id])
		if r <= 1 {
			c.Set(x, y, snap.Colors[id])
		} else {
			c.DrawCircle(x, y, r, snap.Colors[id])
		}
	}
}

func hexRGBA(color uint32) lipgloss.Color {
	r, g, b, _ := geom.UnpackRGBA(color)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
