// pkg/physics/point.go
package physics

import (
	"fmt"
	"math"
)

// PointKind distinguishes structural frame points from propellant (slosh) masses.
// Both integrate identically; the kind only affects presentation and queries.
type PointKind int

const (
	Structural PointKind = iota
	Propellant
)

// String returns a readable name for the kind
func (k PointKind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Propellant:
		return "propellant"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PointMass is a mass-bearing particle. Forces pushed in during a tick are
// accumulated as acceleration and consumed by Integrate.
type PointMass struct {
	Name     string
	Position Vector2D
	Velocity Vector2D
	Mass     float64
	Static   bool
	Kind     PointKind
	Color    string

	accel       Vector2D
	axis        Vector2D
	constrained bool
	supported   bool
}

// NewPointMass creates a point mass. Mass must be a finite positive number.
func NewPointMass(name string, pos, vel Vector2D, mass float64) (*PointMass, error) {
	if !(mass > 0) || math.IsInf(mass, 0) {
		return nil, fmt.Errorf("point %q mass %g: %w", name, mass, ErrInvalidParameter)
	}
	if !pos.IsFinite() || !vel.IsFinite() {
		return nil, fmt.Errorf("point %q state must be finite: %w", name, ErrInvalidParameter)
	}
	return &PointMass{
		Name:     name,
		Position: pos,
		Velocity: vel,
		Mass:     mass,
		Color:    "seagreen",
	}, nil
}

// ApplyForce accumulates force f for the current tick
func (p *PointMass) ApplyForce(f Vector2D) {
	p.accel = p.accel.Add(Vector2D{X: f.X / p.Mass, Y: f.Y / p.Mass})
}

// ApplyGravity accumulates weight for gravitational acceleration g.
// Points resting on the ground this tick are skipped.
func (p *PointMass) ApplyGravity(g Vector2D) {
	if p.supported {
		return
	}
	p.ApplyForce(g.Scale(p.Mass))
}

// ApplyDrag accumulates quadratic drag -v̂·|v|²·c
func (p *PointMass) ApplyDrag(c float64) {
	speedSq := p.Velocity.LengthSquared()
	if speedSq == 0 || c == 0 {
		return
	}
	speed := math.Sqrt(speedSq)
	dir := p.Velocity.Scale(1 / speed)
	p.ApplyForce(dir.Scale(-speedSq * c))
}

// Acceleration returns the acceleration accumulated so far this tick
func (p *PointMass) Acceleration() Vector2D {
	return p.accel
}

// Supported reports whether the ground carried this point's weight this tick
func (p *PointMass) Supported() bool {
	return p.supported
}

// ClearAccumulator resets per-tick state. Call once per tick after Integrate.
func (p *PointMass) ClearAccumulator() {
	p.accel = Vector2D{}
	p.supported = false
}

// Integrate advances the point by dt using semi-implicit Euler: velocity is
// updated first, projected onto the constraint axis, then used for position.
func (p *PointMass) Integrate(dt float64) {
	if dt == 0 {
		return
	}
	if !p.Static {
		p.Velocity = p.Velocity.Add(p.accel.Scale(dt))
	}
	if p.constrained {
		p.Velocity = p.Velocity.Project(p.axis)
	}
	if !p.Static {
		p.Position = p.Position.Add(p.Velocity.Scale(dt))
	}
}

// SetConstraintAxis restricts velocity to the given direction (a 1-D slider)
func (p *PointMass) SetConstraintAxis(axis Vector2D) error {
	unit, err := axis.Unit()
	if err != nil {
		return fmt.Errorf("constraint axis for %q: %w", p.Name, err)
	}
	p.axis = unit
	p.constrained = true
	return nil
}

// ClearConstraintAxis frees the point to move in both directions
func (p *PointMass) ClearConstraintAxis() {
	p.axis = Vector2D{}
	p.constrained = false
}

// ConstraintAxis returns the active constraint axis, if any
func (p *PointMass) ConstraintAxis() (Vector2D, bool) {
	return p.axis, p.constrained
}

// Momentum returns m·v
func (p *PointMass) Momentum() Vector2D {
	return p.Velocity.Scale(p.Mass)
}
