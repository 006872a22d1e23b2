package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/event"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

func TestRocketScenario_Layout(t *testing.T) {
	w := newRocketWorld(t, true)

	if got := w.Counts(); got != (Counts{Points: 19, Links: 49, Forces: 0, Thrusters: 1}) {
		t.Fatalf("Counts() = %+v", got)
	}

	state := w.Snapshot()

	names := make(map[string]bool)
	propellant := 0
	totalMass := 0.0
	for _, p := range state.Points {
		if names[p.Name] {
			t.Errorf("duplicate point name %s", p.Name)
		}
		names[p.Name] = true
		totalMass += p.Mass
		if p.Kind == physics.Propellant {
			propellant++
		}
	}
	if propellant != 4 {
		t.Errorf("propellant points = %d, want 4", propellant)
	}
	if math.Abs(totalMass-5520) > 1e-9 {
		t.Errorf("total mass = %g, want 5520", totalMass)
	}

	linkNames := make(map[string]bool)
	slosh := 0
	for _, l := range state.Links {
		if linkNames[l.Name] {
			t.Errorf("duplicate link name %s", l.Name)
		}
		linkNames[l.Name] = true
		if l.Stiffness == 15e4 {
			slosh++
			if l.Damping != 50 {
				t.Errorf("slosh link %s damping = %g, want 50", l.Name, l.Damping)
			}
		}
		if l.RestLength <= 0 {
			t.Errorf("link %s rest length = %g", l.Name, l.RestLength)
		}
	}
	if slosh != 16 {
		t.Errorf("slosh links = %d, want 16", slosh)
	}

	th := state.Thrusters[0]
	if th.Magnitude != 165000 || th.RateLimit != 25 || !th.TVC {
		t.Errorf("thruster = %+v", th)
	}
	if th.OriginPos != (physics.Vector2D{}) || th.AimPos != (physics.Vector2D{Y: 70}) {
		t.Errorf("thruster geometry = %v -> %v", th.OriginPos, th.AimPos)
	}
}

func TestRocketScenario_Offset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rocket.OffsetX = 100
	cfg.Rocket.OffsetY = -50
	w, err := NewWorld(cfg, WithLogger(quietLogger()), WithScenario(NewRocketScenario(cfg.Rocket)))
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}

	id, err := w.FindPoint("p15")
	if err != nil {
		t.Fatalf("FindPoint: %v", err)
	}
	p, _ := w.Point(id)
	if p.Position != (physics.Vector2D{X: 100, Y: 20}) {
		t.Errorf("p15 at %v, want (100, 20)", p.Position)
	}
}

func TestRocketScenario_GimbalRateLimited(t *testing.T) {
	w := newRocketWorld(t, false)

	prev := w.Snapshot().Thrusters[0].Offset
	limit := 25*w.TimeStep() + 1e-12
	for i := 0; i < 300; i++ {
		w.Step()
		th := w.Snapshot().Thrusters[0]
		if math.Abs(th.Offset-prev) > limit {
			t.Fatalf("tick %d: gimbal moved %g, limit %g", i, th.Offset-prev, limit)
		}
		if th.Command == nil {
			t.Fatal("TVC thruster should report its command")
		}
		prev = th.Offset
	}
}

func TestRocketScenario_LiftsOff(t *testing.T) {
	w := newRocketWorld(t, false)

	w.StepN(1500)

	if !w.Healthy() {
		t.Fatal("rocket state became non-finite")
	}
	th := w.Snapshot().Thrusters[0]
	if th.OriginPos.Y <= 0 {
		t.Errorf("engine mount at %v after 1.5s of thrust, expected it to climb", th.OriginPos)
	}
	if th.Command.DesiredAngle != 10 {
		t.Errorf("desired angle = %g below 500m, want 10", th.Command.DesiredAngle)
	}
}

func TestWorld_Reset(t *testing.T) {
	w := newRocketWorld(t, false)

	var resets int
	w.EventBus.Subscribe(event.SimulationReset, func(event.Event) { resets++ })

	tip, err := w.FindPoint("p15")
	if err != nil {
		t.Fatalf("FindPoint: %v", err)
	}
	if _, err := w.AddConstantForce(tip, physics.Vector2D{X: 1000}, "gust"); err != nil {
		t.Fatalf("AddConstantForce: %v", err)
	}
	w.StepN(20)

	if err := w.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if got := w.Counts(); got != (Counts{Points: 19, Links: 49, Forces: 0, Thrusters: 1}) {
		t.Errorf("Counts() after reset = %+v", got)
	}
	if w.SimTime() != 0 || w.Tick() != 0 {
		t.Errorf("clock after reset = %g/%d", w.SimTime(), w.Tick())
	}
	if !w.Running() {
		t.Error("reset should keep the run state")
	}
	if resets != 1 {
		t.Errorf("reset events = %d, want 1", resets)
	}
	if _, err := w.Point(tip); !errors.Is(err, ErrNotFound) {
		t.Errorf("pre-reset ID still resolves: %v", err)
	}

	newTip, _ := w.FindPoint("p15")
	p, _ := w.Point(newTip)
	if p.Position != (physics.Vector2D{Y: 70}) || p.Velocity != (physics.Vector2D{}) {
		t.Errorf("p15 after reset = %v/%v", p.Position, p.Velocity)
	}
}

func TestWorld_ResetWithoutScenario(t *testing.T) {
	w := newTestWorld(t, nil)
	mustAddPoint(t, w, "a", 0, 0, 1)
	w.StepN(3)

	if err := w.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if w.Counts().Points != 0 {
		t.Errorf("points after reset = %d", w.Counts().Points)
	}
}
