// pkg/render/engo/camera.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// DefaultPixelsPerMeter is the world scale at zoom 1
const DefaultPixelsPerMeter = 20.0

// CameraSystem maps world metres to window pixels, following the rocket
type CameraSystem struct {
	// Target to follow
	target    physics.Vector2D
	targetSet bool
	following bool

	// Camera properties
	zoom           float32
	minZoom        float32
	maxZoom        float32
	pixelsPerMeter float64

	// Smooth following
	followSpeed float32
	smoothing   bool

	// Current camera state
	currentPos physics.Vector2D
	placed     bool

	viewWidth  float32
	viewHeight float32
}

// NewCameraSystem creates a camera with a viewport of width x height pixels
func NewCameraSystem(width, height float32) *CameraSystem {
	return &CameraSystem{
		zoom:           1.0,
		minZoom:        0.05,
		maxZoom:        20.0,
		pixelsPerMeter: DefaultPixelsPerMeter,
		followSpeed:    4.0,
		smoothing:      true,
		following:      true,
		viewWidth:      width,
		viewHeight:     height,
	}
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {}

// Update eases the camera toward its target
func (cs *CameraSystem) Update(dt float32) {
	if engo.Input != nil {
		if scrollY := engo.Input.Mouse.ScrollY; scrollY != 0 {
			cs.SetZoom(cs.zoom * (1 + scrollY*0.1))
		}
	}
	if cs.targetSet && cs.following {
		cs.updateCameraPosition(dt)
	}
}

// updateCameraPosition smoothly moves the camera toward the target
func (cs *CameraSystem) updateCameraPosition(dt float32) {
	if !cs.smoothing || !cs.placed {
		cs.currentPos = cs.target
		cs.placed = true
		return
	}
	k := float64(cs.followSpeed) * float64(dt)
	if k > 1 {
		k = 1
	}
	cs.currentPos = cs.currentPos.Add(cs.target.Sub(cs.currentPos).Scale(k))
}

// SetTarget sets the position the camera eases toward
func (cs *CameraSystem) SetTarget(target physics.Vector2D) {
	cs.target = target
	cs.targetSet = true
	if !cs.placed {
		cs.currentPos = target
		cs.placed = true
	}
}

// ClearTarget clears the camera target
func (cs *CameraSystem) ClearTarget() {
	cs.targetSet = false
}

// SetFollowing toggles tracking of the target
func (cs *CameraSystem) SetFollowing(follow bool) {
	cs.following = follow
}

// Following reports whether the camera tracks its target
func (cs *CameraSystem) Following() bool {
	return cs.following
}

// Pan moves the camera by a number of pixels and stops following
func (cs *CameraSystem) Pan(dx, dy float32) {
	cs.following = false
	scale := cs.scale()
	cs.currentPos = cs.currentPos.Add(physics.Vector2D{X: float64(dx) / scale, Y: float64(dy) / scale})
}

// SetZoom sets the camera zoom level
func (cs *CameraSystem) SetZoom(zoom float32) {
	cs.zoom = cs.clampZoom(zoom)
}

// GetZoom returns the current zoom level
func (cs *CameraSystem) GetZoom() float32 {
	return cs.zoom
}

// clampZoom ensures zoom is within valid bounds
func (cs *CameraSystem) clampZoom(zoom float32) float32 {
	if zoom < cs.minZoom {
		return cs.minZoom
	}
	if zoom > cs.maxZoom {
		return cs.maxZoom
	}
	return zoom
}

// SetZoomLimits sets the minimum and maximum zoom levels
func (cs *CameraSystem) SetZoomLimits(min, max float32) {
	cs.minZoom = min
	cs.maxZoom = max
	cs.zoom = cs.clampZoom(cs.zoom)
}

// GetZoomLimits returns the current zoom limits
func (cs *CameraSystem) GetZoomLimits() (float32, float32) {
	return cs.minZoom, cs.maxZoom
}

// EnableSmoothing enables or disables camera smoothing
func (cs *CameraSystem) EnableSmoothing(enabled bool) {
	cs.smoothing = enabled
}

// SetViewport sets the window size in pixels
func (cs *CameraSystem) SetViewport(width, height float32) {
	cs.viewWidth, cs.viewHeight = width, height
}

// Viewport returns the window size in pixels
func (cs *CameraSystem) Viewport() (float32, float32) {
	return cs.viewWidth, cs.viewHeight
}

// GetCurrentPosition returns the world position at the centre of the view
func (cs *CameraSystem) GetCurrentPosition() physics.Vector2D {
	return cs.currentPos
}

func (cs *CameraSystem) scale() float64 {
	return cs.pixelsPerMeter * float64(cs.zoom)
}

// WorldToScreen converts metres to pixels. Screen y grows downward.
func (cs *CameraSystem) WorldToScreen(worldPos physics.Vector2D) engo.Point {
	scale := cs.scale()
	return engo.Point{
		X: float32((worldPos.X-cs.currentPos.X)*scale) + cs.viewWidth/2,
		Y: cs.viewHeight/2 - float32((worldPos.Y-cs.currentPos.Y)*scale),
	}
}

// ScreenToWorld converts pixels to metres
func (cs *CameraSystem) ScreenToWorld(p engo.Point) physics.Vector2D {
	scale := cs.scale()
	return physics.Vector2D{
		X: float64(p.X-cs.viewWidth/2)/scale + cs.currentPos.X,
		Y: float64(cs.viewHeight/2-p.Y)/scale + cs.currentPos.Y,
	}
}
