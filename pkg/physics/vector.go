// pkg/physics/vector.go
package physics

import (
	"fmt"
	"math"
)

// Vector2D represents a 2D vector with x and y components
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Common axes
var (
	AxisX = Vector2D{X: 1, Y: 0}
	AxisY = Vector2D{X: 0, Y: 1}
)

// Add returns the sum of two vectors
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{
		X: v.X + other.X,
		Y: v.Y + other.Y,
	}
}

// Sub returns the difference between two vectors
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{
		X: v.X - other.X,
		Y: v.Y - other.Y,
	}
}

// Scale multiplies the vector by a scalar value
func (v Vector2D) Scale(factor float64) Vector2D {
	return Vector2D{
		X: v.X * factor,
		Y: v.Y * factor,
	}
}

// Neg returns the vector pointing the opposite way
func (v Vector2D) Neg() Vector2D {
	return Vector2D{X: -v.X, Y: -v.Y}
}

// Length returns the magnitude of the vector
func (v Vector2D) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// LengthSquared returns magnitude squared (optimization for comparisons)
func (v Vector2D) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Normalize returns a unit vector in the same direction.
// The zero vector normalizes to itself; use Unit when that case must be caught.
func (v Vector2D) Normalize() Vector2D {
	length := v.Length()
	if length == 0 {
		return Vector2D{}
	}
	return Vector2D{
		X: v.X / length,
		Y: v.Y / length,
	}
}

// Unit returns a unit vector in the same direction, or ErrDegenerateGeometry
// when the vector has no direction.
func (v Vector2D) Unit() (Vector2D, error) {
	length := v.Length()
	if length == 0 || math.IsNaN(length) {
		return Vector2D{}, fmt.Errorf("normalize %v: %w", v, ErrDegenerateGeometry)
	}
	return Vector2D{
		X: v.X / length,
		Y: v.Y / length,
	}, nil
}

// Distance returns the distance between two vectors
func (v Vector2D) Distance(other Vector2D) float64 {
	return v.Sub(other).Length()
}

// Angle returns the angle of the vector in radians
func (v Vector2D) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// FromAngle creates a vector from an angle and magnitude
func FromAngle(angle float64, magnitude float64) Vector2D {
	return Vector2D{
		X: magnitude * math.Cos(angle),
		Y: magnitude * math.Sin(angle),
	}
}

// Dot returns the dot product of two vectors
func (v Vector2D) Dot(other Vector2D) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Cross returns the z component of the 3D cross product v × other.
// Positive when other lies counter-clockwise of v.
func (v Vector2D) Cross(other Vector2D) float64 {
	return v.X*other.Y - v.Y*other.X
}

// Rotate rotates the vector by angle (in radians)
func (v Vector2D) Rotate(angle float64) Vector2D {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Vector2D{
		X: v.X*cos - v.Y*sin,
		Y: v.X*sin + v.Y*cos,
	}
}

// RotateDegrees rotates the vector counter-clockwise by angle degrees
func (v Vector2D) RotateDegrees(angle float64) Vector2D {
	if angle == 0 {
		return v
	}
	return v.Rotate(Radians(angle))
}

// Project returns the component of v along axis. axis must be a unit vector.
func (v Vector2D) Project(axis Vector2D) Vector2D {
	return axis.Scale(v.Dot(axis))
}

// IsFinite reports whether both components are finite numbers
func (v Vector2D) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// String implements fmt.Stringer
func (v Vector2D) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}

// Radians converts degrees to radians
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
