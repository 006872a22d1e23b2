// pkg/physics/thruster.go
package physics

import (
	"fmt"
	"math"
)

// Thruster is a gimbaled thrust source. It pushes its origin point along the
// origin→aim direction rotated by Offset degrees.
type Thruster struct {
	Magnitude float64
	Offset    float64 // degrees, counter-clockwise
	RateLimit float64 // degrees per second
}

// NewThruster validates and creates a thruster
func NewThruster(magnitude, offset, rateLimit float64) (*Thruster, error) {
	if !(magnitude >= 0) || math.IsInf(magnitude, 0) {
		return nil, fmt.Errorf("thrust magnitude %g: %w", magnitude, ErrInvalidParameter)
	}
	if !(rateLimit >= 0) || math.IsInf(rateLimit, 0) {
		return nil, fmt.Errorf("gimbal rate limit %g: %w", rateLimit, ErrInvalidParameter)
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return nil, fmt.Errorf("gimbal offset %g: %w", offset, ErrInvalidParameter)
	}
	return &Thruster{
		Magnitude: magnitude,
		Offset:    offset,
		RateLimit: rateLimit,
	}, nil
}

// MoveTowardsOffset slews the gimbal toward target by at most RateLimit·dt.
// Within one step of the target it snaps exactly onto it.
func (t *Thruster) MoveTowardsOffset(target, dt float64) {
	step := t.RateLimit * dt
	gap := target - t.Offset
	switch {
	case gap > step:
		t.Offset += step
	case gap < -step:
		t.Offset -= step
	default:
		t.Offset = target
	}
}

// Direction returns the unit thrust direction for the current geometry
func (t *Thruster) Direction(origin, aim Vector2D) (Vector2D, error) {
	nominal, err := aim.Sub(origin).Unit()
	if err != nil {
		return Vector2D{}, fmt.Errorf("thrust direction: %w", err)
	}
	return nominal.RotateDegrees(t.Offset), nil
}

// Apply pushes the thrust force into origin and returns it
func (t *Thruster) Apply(origin, aim *PointMass) (Vector2D, error) {
	dir, err := t.Direction(origin.Position, aim.Position)
	if err != nil {
		return Vector2D{}, err
	}
	force := dir.Scale(t.Magnitude)
	origin.ApplyForce(force)
	return force, nil
}
