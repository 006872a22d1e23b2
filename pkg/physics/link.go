// pkg/physics/link.go
package physics

import (
	"fmt"
	"math"
)

// RigidLink is a spring-damper between two point masses. The endpoints are
// owned by the caller and passed in on every evaluation; the link itself only
// carries its constants.
type RigidLink struct {
	Name       string
	RestLength float64
	K          float64
	B          float64
	Color      string
}

// NewRigidLink creates a link whose rest length is the current distance
// between p1 and p2.
func NewRigidLink(name string, p1, p2 *PointMass, k, b float64) (*RigidLink, error) {
	if !(k > 0) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("link %q spring constant %g: %w", name, k, ErrInvalidParameter)
	}
	if !(b >= 0) || math.IsInf(b, 0) {
		return nil, fmt.Errorf("link %q damping %g: %w", name, b, ErrInvalidParameter)
	}
	return &RigidLink{
		Name:       name,
		RestLength: p1.Position.Distance(p2.Position),
		K:          k,
		B:          b,
		Color:      "skyblue",
	}, nil
}

// Forces returns the force acting on p1; p2 receives the negation.
//
// The spring term pulls the endpoints together when stretched and pushes
// them apart when compressed. Damping acts on the relative velocity along
// the link axis and is skipped entirely when B is zero.
func (l *RigidLink) Forces(p1, p2 *PointMass) (Vector2D, error) {
	sep := p2.Position.Sub(p1.Position)
	d := sep.Length()
	if d == 0 {
		return Vector2D{}, fmt.Errorf("link %q endpoints coincide: %w", l.Name, ErrDegenerateGeometry)
	}
	n := Vector2D{X: sep.X / d, Y: sep.Y / d}

	f := n.Scale(l.K * (d - l.RestLength))
	if l.B != 0 {
		closing := p2.Velocity.Sub(p1.Velocity).Dot(n)
		f = f.Add(n.Scale(l.B * closing))
	}
	return f, nil
}

// Apply pushes equal and opposite link forces into both endpoints
func (l *RigidLink) Apply(p1, p2 *PointMass) error {
	f, err := l.Forces(p1, p2)
	if err != nil {
		return err
	}
	p1.ApplyForce(f)
	p2.ApplyForce(f.Neg())
	return nil
}

// Midpoint returns the centre of the link
func (l *RigidLink) Midpoint(p1, p2 *PointMass) Vector2D {
	return p1.Position.Add(p2.Position).Scale(0.5)
}

// Strain returns the relative elongation d/rest - 1. Zero-length links report 0.
func (l *RigidLink) Strain(p1, p2 *PointMass) float64 {
	if l.RestLength == 0 {
		return 0
	}
	return p1.Position.Distance(p2.Position)/l.RestLength - 1
}
