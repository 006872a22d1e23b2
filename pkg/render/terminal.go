package render

import (
	"bufio"
	"io"
	"math"
	"os"
	"strings"

	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// Glyphs used by the ASCII raster
const (
	GlyphGround     = '='
	GlyphLink       = '.'
	GlyphStructural = 'o'
	GlyphPropellant = '*'
	GlyphStatic     = 'X'
	GlyphForce      = ':'
	GlyphForceTip   = '!'
	GlyphPlume      = '~'
	GlyphAim        = '^'
	GlyphCOM        = '+'
)

// MinScale bounds zooming in; scale is world units per cell
const MinScale = 0.01

// TerminalRenderer rasterises a world into a grid of runes. The y axis points
// up, so row 0 is the top of the view.
type TerminalRenderer struct {
	width     int
	height    int
	buffer    [][]rune
	scale     float64
	centerPos physics.Vector2D
	status    string
	out       io.Writer
}

// NewTerminalRenderer creates a renderer of width x height cells where one
// cell covers scale world units.
func NewTerminalRenderer(width, height int, scale float64) *TerminalRenderer {
	r := &TerminalRenderer{out: os.Stdout}
	r.Resize(width, height)
	r.SetScale(scale)
	return r
}

// SetOutput sets where Present writes
func (r *TerminalRenderer) SetOutput(w io.Writer) {
	r.out = w
}

// Resize reallocates the buffer
func (r *TerminalRenderer) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	r.width, r.height = width, height
	r.buffer = make([][]rune, height)
	for i := range r.buffer {
		r.buffer[i] = make([]rune, width)
	}
	r.Clear()
}

// Size returns the raster dimensions in cells
func (r *TerminalRenderer) Size() (width, height int) {
	return r.width, r.height
}

// SetCenter sets the center position of the view
func (r *TerminalRenderer) SetCenter(pos physics.Vector2D) {
	r.centerPos = pos
}

// Center returns the world position at the middle of the view
func (r *TerminalRenderer) Center() physics.Vector2D {
	return r.centerPos
}

// SetScale sets world units per cell
func (r *TerminalRenderer) SetScale(scale float64) {
	if !(scale >= MinScale) || math.IsInf(scale, 0) {
		scale = MinScale
	}
	r.scale = scale
}

// Scale returns world units per cell
func (r *TerminalRenderer) Scale() float64 {
	return r.scale
}

// Zoom multiplies the scale; factors below 1 zoom in
func (r *TerminalRenderer) Zoom(factor float64) {
	r.SetScale(r.scale * factor)
}

// Pan moves the view by a number of cells
func (r *TerminalRenderer) Pan(dx, dy int) {
	r.centerPos = r.centerPos.Add(physics.Vector2D{X: float64(dx) * r.scale, Y: float64(dy) * r.scale})
}

// SetStatus sets the line printed under the frame
func (r *TerminalRenderer) SetStatus(s string) {
	r.status = s
}

// worldToScreen converts world coordinates to screen coordinates
func (r *TerminalRenderer) worldToScreen(pos physics.Vector2D) (int, int) {
	fx, fy := r.screenCoords(pos)
	return clampInt(math.Floor(fx)), clampInt(math.Floor(fy))
}

func (r *TerminalRenderer) screenCoords(pos physics.Vector2D) (float64, float64) {
	return (pos.X-r.centerPos.X)/r.scale + float64(r.width)/2,
		float64(r.height)/2 - (pos.Y-r.centerPos.Y)/r.scale
}

// clampInt keeps far off-screen coordinates from overflowing int
func clampInt(v float64) int {
	const limit = 1 << 30
	switch {
	case math.IsNaN(v):
		return -limit
	case v > limit:
		return limit
	case v < -limit:
		return -limit
	}
	return int(v)
}

func (r *TerminalRenderer) set(x, y int, ch rune) {
	if x >= 0 && x < r.width && y >= 0 && y < r.height {
		r.buffer[y][x] = ch
	}
}

// At returns the rune at a cell, or 0 outside the raster
func (r *TerminalRenderer) At(x, y int) rune {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return 0
	}
	return r.buffer[y][x]
}

// clip trims the segment to the box [xmin,xmax]x[ymin,ymax] (Liang-Barsky).
// ok is false when nothing of the segment is inside.
func clip(x0, y0, x1, y1, xmin, ymin, xmax, ymax float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, x0 - xmin},
		{dx, xmax - x0},
		{-dy, y0 - ymin},
		{dy, ymax - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

// line draws a Bresenham segment between two cells
func (r *TerminalRenderer) line(x0, y0, x1, y1 int, ch rune) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		r.set(x0, y0, ch)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// segment clips a world-space segment to the view before rasterising it
func (r *TerminalRenderer) segment(a, b physics.Vector2D, ch rune) {
	if !a.IsFinite() || !b.IsFinite() {
		return
	}
	ax, ay := r.screenCoords(a)
	bx, by := r.screenCoords(b)
	ax, ay, bx, by, ok := clip(ax, ay, bx, by, 0, 0, float64(r.width)-1e-9, float64(r.height)-1e-9)
	if !ok {
		return
	}
	r.line(int(math.Floor(ax)), int(math.Floor(ay)), int(math.Floor(bx)), int(math.Floor(by)), ch)
}

// Clear implements Renderer
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = ' '
		}
	}
}

// RenderGround implements Renderer
func (r *TerminalRenderer) RenderGround(g physics.Ground) {
	_, y := r.worldToScreen(physics.Vector2D{X: r.centerPos.X, Y: g.Height})
	if y < 0 || y >= r.height {
		return
	}
	for x := 0; x < r.width; x++ {
		r.buffer[y][x] = GlyphGround
	}
}

// RenderLink implements Renderer
func (r *TerminalRenderer) RenderLink(l engine.LinkState) {
	r.segment(l.From, l.To, GlyphLink)
}

// RenderPoint implements Renderer
func (r *TerminalRenderer) RenderPoint(p engine.PointState) {
	x, y := r.worldToScreen(p.Position)
	switch {
	case p.Static:
		r.set(x, y, GlyphStatic)
	case p.Kind == physics.Propellant:
		r.set(x, y, GlyphPropellant)
	default:
		r.set(x, y, GlyphStructural)
	}
}

// RenderForce implements Renderer
func (r *TerminalRenderer) RenderForce(f engine.ForceState) {
	r.segment(f.Origin, f.Tip, GlyphForce)
	x, y := r.worldToScreen(f.Tip)
	r.set(x, y, GlyphForceTip)
}

// RenderThruster implements Renderer
func (r *TerminalRenderer) RenderThruster(t engine.ThrusterState) {
	from, to := Plume(t)
	if from != to {
		r.segment(from, to, GlyphPlume)
	}
	x, y := r.worldToScreen(t.AimPos)
	r.set(x, y, GlyphAim)
}

// RenderCenterOfMass implements CenterOfMassRenderer
func (r *TerminalRenderer) RenderCenterOfMass(pos physics.Vector2D) {
	x, y := r.worldToScreen(pos)
	r.set(x, y, GlyphCOM)
}

// Lines returns the raster as strings, top row first
func (r *TerminalRenderer) Lines() []string {
	lines := make([]string, r.height)
	for y, row := range r.buffer {
		lines[y] = string(row)
	}
	return lines
}

// String returns the framed raster
func (r *TerminalRenderer) String() string {
	var b strings.Builder
	border := "+" + strings.Repeat("-", r.width) + "+\n"
	b.WriteString(border)
	for _, row := range r.buffer {
		b.WriteByte('|')
		b.WriteString(string(row))
		b.WriteString("|\n")
	}
	b.WriteString(border)
	if r.status != "" {
		b.WriteString(r.status)
		b.WriteByte('\n')
	}
	return b.String()
}

// Present implements Renderer. It homes the cursor, clears the terminal and
// writes the framed raster.
func (r *TerminalRenderer) Present() {
	if r.out == nil {
		return
	}
	w := bufio.NewWriter(r.out)
	w.WriteString("\033[H\033[2J")
	w.WriteString(r.String())
	w.Flush()
}
