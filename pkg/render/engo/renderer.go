// pkg/render/engo/renderer.go
package engo

import (
	"image/color"
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/physics"
	"github.com/arda-guler/SloshTVC/pkg/render"
)

// Pixel sizes of drawn shapes
const (
	pointSize     = 8
	linkWidth     = 2
	forceWidth    = 2
	plumeWidth    = 5
	aimSize       = 6
	comSize       = 10
	groundPadding = 4
)

// Draw order, back to front
const (
	zGround float32 = iota
	zLink
	zPlume
	zPoint
	zForce
	zHUD
)

// ShapeSink receives the entities the renderer creates. *common.RenderSystem
// satisfies it.
type ShapeSink interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
	Remove(basic ecs.BasicEntity)
}

// shape is one pooled drawable
type shape struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// pool recycles shapes of one drawable kind. The render system picks a
// shader from the drawable when an entity is added, so kinds never mix.
type pool struct {
	drawable common.Drawable
	shapes   []*shape
	used     int
}

func (p *pool) next(sink ShapeSink) *shape {
	if p.used < len(p.shapes) {
		s := p.shapes[p.used]
		p.used++
		s.Hidden = false
		return s
	}
	s := &shape{BasicEntity: ecs.NewBasic()}
	s.Drawable = p.drawable
	p.shapes = append(p.shapes, s)
	p.used++
	sink.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	return s
}

func (p *pool) hideUnused() {
	for _, s := range p.shapes[p.used:] {
		s.Hidden = true
	}
}

func (p *pool) release(sink ShapeSink) {
	for _, s := range p.shapes {
		sink.Remove(s.BasicEntity)
	}
	p.shapes = nil
	p.used = 0
}

// EngoRenderer implements render.Renderer on top of engo's render system.
// Shapes are pooled across frames and hidden when unused.
type EngoRenderer struct {
	sink   ShapeSink
	camera *CameraSystem
	assets *AssetManager

	rects   pool
	circles pool
}

var _ render.Renderer = (*EngoRenderer)(nil)

// NewEngoRenderer creates a renderer drawing through sink with camera
func NewEngoRenderer(sink ShapeSink, camera *CameraSystem, assets *AssetManager) *EngoRenderer {
	if assets == nil {
		assets = NewAssetManager()
	}
	return &EngoRenderer{
		sink:    sink,
		camera:  camera,
		assets:  assets,
		rects:   pool{drawable: common.Rectangle{}},
		circles: pool{drawable: common.Circle{}},
	}
}

// Clear implements render.Renderer
func (r *EngoRenderer) Clear() {
	r.rects.used = 0
	r.circles.used = 0
}

// Present implements render.Renderer by hiding shapes not drawn this frame
func (r *EngoRenderer) Present() {
	r.rects.hideUnused()
	r.circles.hideUnused()
}

// Visible returns the number of shapes drawn in the last frame
func (r *EngoRenderer) Visible() int {
	return r.rects.used + r.circles.used
}

// Pooled returns the number of entities owned by the renderer
func (r *EngoRenderer) Pooled() int {
	return len(r.rects.shapes) + len(r.circles.shapes)
}

// Release removes every pooled entity from the sink
func (r *EngoRenderer) Release() {
	r.rects.release(r.sink)
	r.circles.release(r.sink)
}

// bar draws a rotated rectangle from a to b
func (r *EngoRenderer) bar(a, b physics.Vector2D, width float32, c color.Color, z float32) *shape {
	pa := r.camera.WorldToScreen(a)
	pb := r.camera.WorldToScreen(b)
	dx, dy := float64(pb.X-pa.X), float64(pb.Y-pa.Y)

	s := r.rects.next(r.sink)
	s.Color = c
	s.SetZIndex(z)
	s.Position = pa
	s.Width = float32(math.Hypot(dx, dy))
	s.Height = width
	s.Rotation = float32(math.Atan2(dy, dx) * 180 / math.Pi)
	return s
}

// dot draws a circle centred on p
func (r *EngoRenderer) dot(p physics.Vector2D, size float32, c color.Color, z float32) *shape {
	sp := r.camera.WorldToScreen(p)

	s := r.circles.next(r.sink)
	s.Color = c
	s.SetZIndex(z)
	s.Position = engo.Point{X: sp.X - size/2, Y: sp.Y - size/2}
	s.Width = size
	s.Height = size
	s.Rotation = 0
	return s
}

// RenderGround implements render.Renderer by filling below the floor
func (r *EngoRenderer) RenderGround(g physics.Ground) {
	w, h := r.camera.Viewport()
	top := r.camera.WorldToScreen(physics.Vector2D{Y: g.Height}).Y
	if top >= h {
		return
	}
	if top < 0 {
		top = 0
	}

	s := r.rects.next(r.sink)
	s.Color = ColorGround
	s.SetZIndex(zGround)
	s.Position = engo.Point{X: -groundPadding, Y: top}
	s.Width = w + 2*groundPadding
	s.Height = h - top + groundPadding
	s.Rotation = 0
}

// RenderLink implements render.Renderer
func (r *EngoRenderer) RenderLink(l engine.LinkState) {
	r.bar(l.From, l.To, linkWidth, r.assets.Color(l.Color, ColorHUD), zLink)
}

// RenderPoint implements render.Renderer
func (r *EngoRenderer) RenderPoint(p engine.PointState) {
	c := r.assets.Color(p.Color, ColorHUD)
	if p.Static {
		c = ColorStatic
	}
	r.dot(p.Position, pointSize, c, zPoint)
}

// RenderForce implements render.Renderer
func (r *EngoRenderer) RenderForce(f engine.ForceState) {
	r.bar(f.Origin, f.Tip, forceWidth, ColorForce, zForce)
}

// RenderThruster implements render.Renderer
func (r *EngoRenderer) RenderThruster(t engine.ThrusterState) {
	if from, to := render.Plume(t); from != to {
		r.bar(from, to, plumeWidth, ColorPlume, zPlume)
	}
	r.dot(t.AimPos, aimSize, ColorAim, zForce)
}

// RenderCenterOfMass implements render.CenterOfMassRenderer
func (r *EngoRenderer) RenderCenterOfMass(pos physics.Vector2D) {
	r.dot(pos, comSize, ColorCOM, zForce)
}
