// pkg/physics/ground.go
package physics

import "math"

// Ground is a flat floor at y = Height that pushes points back up and slows
// them horizontally while they touch it.
type Ground struct {
	Height     float64 `json:"height"`
	Elasticity float64 `json:"elasticity"`
	Friction   float64 `json:"friction"`
}

// Contact reports whether p is touching or below the floor
func (g Ground) Contact(p *PointMass) bool {
	return p.Position.Y <= g.Height
}

// Apply adds the floor's response for one tick of length dt.
//
// A point below the floor receives a force that cancels its downward velocity
// and adds (Elasticity) of it back upwards over one step; its weight is
// carried by the floor for the tick and it is clamped onto the surface.
// Friction opposes horizontal motion with magnitude Friction·m·|g| whenever
// the point is at or below the surface. Static points are ignored, and
// nothing happens while dt is zero.
func (g Ground) Apply(p *PointMass, gravity Vector2D, dt float64) {
	if p.Static || dt <= 0 {
		return
	}

	if p.Position.Y < g.Height {
		down := math.Min(p.Velocity.Y, 0)
		p.ApplyForce(Vector2D{Y: -p.Mass * down * (g.Elasticity + 1) / dt})
		p.supported = true
		p.Position.Y = g.Height
	}

	if p.Position.Y <= g.Height && p.Velocity.X != 0 && g.Friction != 0 {
		mag := g.Friction * p.Mass * gravity.Length()
		p.ApplyForce(Vector2D{X: -math.Copysign(mag, p.Velocity.X)})
	}
}
