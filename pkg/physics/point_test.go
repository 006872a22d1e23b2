package physics

import (
	"errors"
	"math"
	"testing"
)

func mustPoint(t *testing.T, pos, vel Vector2D, mass float64) *PointMass {
	t.Helper()
	p, err := NewPointMass("p", pos, vel, mass)
	if err != nil {
		t.Fatalf("NewPointMass() error = %v", err)
	}
	return p
}

func TestNewPointMass_RejectsInvalidMass(t *testing.T) {
	for _, mass := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewPointMass("bad", Vector2D{}, Vector2D{}, mass)
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("mass %v: error = %v, expected ErrInvalidParameter", mass, err)
		}
	}
}

func TestNewPointMass_RejectsNonFiniteState(t *testing.T) {
	_, err := NewPointMass("bad", Vector2D{X: math.NaN()}, Vector2D{}, 1)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("error = %v, expected ErrInvalidParameter", err)
	}
}

func TestPointMass_ApplyForceSuperposition(t *testing.T) {
	p := mustPoint(t, Vector2D{}, Vector2D{}, 2)
	p.ApplyForce(Vector2D{X: 4})
	p.ApplyForce(Vector2D{Y: -2})
	p.ApplyForce(Vector2D{X: 2, Y: 6})

	if got := p.Acceleration(); got != (Vector2D{X: 3, Y: 2}) {
		t.Errorf("Acceleration() = %v, expected (3, 2)", got)
	}

	p.ClearAccumulator()
	if got := p.Acceleration(); got != (Vector2D{}) {
		t.Errorf("Acceleration() after clear = %v, expected zero", got)
	}
}

func TestPointMass_IntegrateIsSemiImplicit(t *testing.T) {
	p := mustPoint(t, Vector2D{}, Vector2D{X: 1}, 1)
	p.ApplyForce(Vector2D{X: 2})
	p.Integrate(0.5)

	// v = 1 + 2*0.5 = 2, x = 0 + 2*0.5 = 1 (new velocity, not the old one)
	if p.Velocity != (Vector2D{X: 2}) {
		t.Errorf("Velocity = %v, expected (2, 0)", p.Velocity)
	}
	if p.Position != (Vector2D{X: 1}) {
		t.Errorf("Position = %v, expected (1, 0)", p.Position)
	}
}

func TestPointMass_StaticDoesNotMove(t *testing.T) {
	p := mustPoint(t, Vector2D{X: 5, Y: 5}, Vector2D{}, 1)
	p.Static = true
	p.ApplyForce(Vector2D{X: 100, Y: 100})
	p.Integrate(0.1)

	if p.Position != (Vector2D{X: 5, Y: 5}) || p.Velocity != (Vector2D{}) {
		t.Errorf("static point moved: pos=%v vel=%v", p.Position, p.Velocity)
	}
}

func TestPointMass_ZeroStepIsNoOp(t *testing.T) {
	p := mustPoint(t, Vector2D{X: 1, Y: 2}, Vector2D{X: 3, Y: -4}, 1)
	if err := p.SetConstraintAxis(AxisY); err != nil {
		t.Fatal(err)
	}
	p.ApplyForce(Vector2D{X: 10})
	p.Integrate(0)

	if p.Position != (Vector2D{X: 1, Y: 2}) || p.Velocity != (Vector2D{X: 3, Y: -4}) {
		t.Errorf("paused integrate changed state: pos=%v vel=%v", p.Position, p.Velocity)
	}
}

func TestPointMass_ConstraintAxisProjectsAfterUpdate(t *testing.T) {
	p := mustPoint(t, Vector2D{}, Vector2D{}, 1)
	if err := p.SetConstraintAxis(Vector2D{Y: 3}); err != nil {
		t.Fatalf("SetConstraintAxis() error = %v", err)
	}
	axis, ok := p.ConstraintAxis()
	if !ok || axis != AxisY {
		t.Fatalf("ConstraintAxis() = %v, %v; expected unit y axis", axis, ok)
	}

	p.ApplyForce(Vector2D{X: 10, Y: 4})
	p.Integrate(0.5)

	if p.Velocity.X != 0 || p.Velocity.Y != 2 {
		t.Errorf("Velocity = %v, expected (0, 2)", p.Velocity)
	}
	if p.Position.X != 0 || p.Position.Y != 1 {
		t.Errorf("Position = %v, expected (0, 1)", p.Position)
	}

	p.ClearConstraintAxis()
	if _, ok := p.ConstraintAxis(); ok {
		t.Error("constraint still active after ClearConstraintAxis")
	}
}

func TestPointMass_ConstraintAxisRejectsZero(t *testing.T) {
	p := mustPoint(t, Vector2D{}, Vector2D{}, 1)
	if err := p.SetConstraintAxis(Vector2D{}); !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("error = %v, expected ErrDegenerateGeometry", err)
	}
}

func TestPointMass_GravityAndDrag(t *testing.T) {
	g := Vector2D{Y: -9.81}

	p := mustPoint(t, Vector2D{}, Vector2D{}, 3)
	p.ApplyGravity(g)
	if math.Abs(p.Acceleration().Y+9.81) > eps {
		t.Errorf("gravity acceleration = %v, expected -9.81", p.Acceleration().Y)
	}

	// Zero velocity means zero drag
	p.ClearAccumulator()
	p.ApplyDrag(0.5)
	if p.Acceleration() != (Vector2D{}) {
		t.Errorf("drag at rest = %v, expected zero", p.Acceleration())
	}

	// Drag opposes velocity with magnitude |v|²·c
	p.Velocity = Vector2D{X: 3, Y: 4}
	p.ApplyDrag(0.5)
	want := Vector2D{X: -0.6, Y: -0.8}.Scale(25 * 0.5 / 3)
	if !nearly(p.Acceleration(), want) {
		t.Errorf("drag acceleration = %v, expected %v", p.Acceleration(), want)
	}
}

func TestPointMass_SupportedSkipsGravity(t *testing.T) {
	p := mustPoint(t, Vector2D{Y: -1}, Vector2D{}, 1)
	Ground{}.Apply(p, Vector2D{Y: -9.81}, 0.01)
	if !p.Supported() {
		t.Fatal("point below ground not marked supported")
	}
	p.ApplyGravity(Vector2D{Y: -9.81})
	if p.Acceleration() != (Vector2D{}) {
		t.Errorf("gravity applied to supported point: %v", p.Acceleration())
	}
	p.ClearAccumulator()
	if p.Supported() {
		t.Error("support flag survived ClearAccumulator")
	}
}

func TestPointKind_String(t *testing.T) {
	if Structural.String() != "structural" || Propellant.String() != "propellant" {
		t.Errorf("unexpected kind names: %s, %s", Structural, Propellant)
	}
}
