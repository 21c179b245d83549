package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
	"github.com/san-kum/partsim/internal/viz"
)

const background = "#0a0a0a"

var (
	linkRelaxed  = geom.PackRGBA(90, 90, 110, 255)
	linkStrained = geom.PackRGBA(255, 60, 40, 255)
)

type SVGOptions struct {
	// Scale multiplies world units into SVG pixels; 0 means 1.
	Scale float64

	// LinkStrength colours links from grey to red as strain approaches it.
	// Zero draws every link grey.
	LinkStrength float32
}

func hex(c uint32) string {
	r, g, b, _ := geom.UnpackRGBA(c)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// SnapshotSVG draws the world of snap: bounds, links, then particles as
// circles in their own colours.
func SnapshotSVG(snap *particles.Snapshot, opts SVGOptions) string {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	width := float64(snap.Bounds.X()) * scale
	height := float64(snap.Bounds.Y()) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	if len(snap.Links) > 0 {
		sb.WriteString(`<g stroke-width="1" stroke-linecap="round">` + "\n")
		for _, l := range snap.Links {
			a, b := snap.Positions[l.A], snap.Positions[l.B]
			color := linkRelaxed
			if opts.LinkStrength > 0 {
				color = geom.LerpRGBA(linkRelaxed, linkStrained, l.Strain/opts.LinkStrength)
			}
			fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`+"\n",
				float64(a.X())*scale, float64(a.Y())*scale,
				float64(b.X())*scale, float64(b.Y())*scale, hex(color))
		}
		sb.WriteString("</g>\n")
	}

	r := float64(snap.Radius) * scale
	sb.WriteString("<g>\n")
	for id, live := range snap.Active {
		if live == 0 {
			continue
		}
		p := snap.Positions[id]
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`+"\n",
			float64(p.X())*scale, float64(p.Y())*scale, r, hex(snap.Colors[id]))
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	w, h := canvas.Dots()
	width := float64(w) * scale
	height := float64(h) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g>
`, width, height, width, height, background)

	dotRadius := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`+"\n",
				float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius, hex(canvas.DotColor(x, y)))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SeriesToSVG draws values as a polyline, index on x and value on y, with
// 10% padding on the value axis.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	minY, maxY := values[0], values[0]
	for _, v := range values {
		minY = min(minY, v)
		maxY = max(maxY, v)
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2
	stepX := float64(width) / float64(len(values)-1)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor)

	for i, v := range values {
		x := float64(i) * stepX
		y := float64(height) - (v-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
