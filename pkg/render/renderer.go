// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/logging"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// ExhaustLength is the drawn length of a thruster plume in world units
const ExhaustLength = 4.0

// Renderer draws one snapshot of a world
type Renderer interface {
	Clear()
	RenderGround(g physics.Ground)
	RenderLink(l engine.LinkState)
	RenderPoint(p engine.PointState)
	RenderForce(f engine.ForceState)
	RenderThruster(t engine.ThrusterState)
	Present()
}

// CenterOfMassRenderer is implemented by renderers that mark the centre of
// mass of the selected points
type CenterOfMassRenderer interface {
	RenderCenterOfMass(pos physics.Vector2D)
}

// Draw renders state back to front: ground, links, points, forces, thrusters.
// The selection's centre of mass goes on top when r can draw it.
func Draw(state *engine.WorldState, r Renderer) {
	r.Clear()
	if state == nil {
		r.Present()
		return
	}
	r.RenderGround(state.Ground)
	for _, l := range state.Links {
		r.RenderLink(l)
	}
	for _, p := range state.Points {
		r.RenderPoint(p)
	}
	for _, f := range state.Forces {
		r.RenderForce(f)
	}
	for _, t := range state.Thrusters {
		r.RenderThruster(t)
	}
	if com, ok := r.(CenterOfMassRenderer); ok && state.CenterOfMass != nil {
		com.RenderCenterOfMass(*state.CenterOfMass)
	}
	r.Present()
}

// FollowTarget returns the camera target for state: the midpoint of the first
// thruster's engine mount and aim point. ok is false without a thruster.
func FollowTarget(state *engine.WorldState) (target physics.Vector2D, ok bool) {
	if state == nil || len(state.Thrusters) == 0 {
		return physics.Vector2D{}, false
	}
	th := state.Thrusters[0]
	return th.OriginPos.Add(th.AimPos).Scale(0.5), true
}

// Plume returns the segment drawn for a thruster's exhaust. It starts at the
// engine mount and points against the thrust.
func Plume(t engine.ThrusterState) (from, to physics.Vector2D) {
	dir, err := t.Force.Unit()
	if err != nil {
		return t.OriginPos, t.OriginPos
	}
	return t.OriginPos, t.OriginPos.Sub(dir.Scale(ExhaustLength))
}

// NullRenderer logs draw calls at debug level and counts frames
type NullRenderer struct {
	Logger *logging.Logger
	Frames int
}

// NewNullRenderer creates a renderer that only logs
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{Logger: logger.WithComponent("null-renderer")}
}

func (r *NullRenderer) debug(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Debug(context.Background(), msg, args...)
	}
}

// Clear implements Renderer
func (r *NullRenderer) Clear() {
	r.debug("Clear called")
}

// RenderGround implements Renderer
func (r *NullRenderer) RenderGround(g physics.Ground) {
	r.debug("RenderGround called", "height", g.Height)
}

// RenderLink implements Renderer
func (r *NullRenderer) RenderLink(l engine.LinkState) {
	r.debug("RenderLink called", "id", l.ID, "strain", l.Strain)
}

// RenderPoint implements Renderer
func (r *NullRenderer) RenderPoint(p engine.PointState) {
	r.debug("RenderPoint called", "id", p.ID, "name", p.Name, "position", p.Position.String())
}

// RenderForce implements Renderer
func (r *NullRenderer) RenderForce(f engine.ForceState) {
	r.debug("RenderForce called", "id", f.ID, "force", f.Force.String())
}

// RenderThruster implements Renderer
func (r *NullRenderer) RenderThruster(t engine.ThrusterState) {
	r.debug("RenderThruster called", "name", t.Name, "offset", t.Offset)
}

// Present implements Renderer
func (r *NullRenderer) Present() {
	r.Frames++
	r.debug("Present called", "frame", r.Frames)
}
