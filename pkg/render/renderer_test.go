// pkg/render/renderer_test.go
package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/logging"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// recordingRenderer remembers the order of draw calls
type recordingRenderer struct {
	calls []string
}

func (r *recordingRenderer) Clear() { r.calls = append(r.calls, "clear") }
func (r *recordingRenderer) RenderGround(physics.Ground) { r.calls = append(r.calls, "ground") }
func (r *recordingRenderer) RenderLink(engine.LinkState) { r.calls = append(r.calls, "link") }
func (r *recordingRenderer) RenderPoint(engine.PointState) { r.calls = append(r.calls, "point") }
func (r *recordingRenderer) RenderForce(engine.ForceState) { r.calls = append(r.calls, "force") }
func (r *recordingRenderer) RenderThruster(engine.ThrusterState) { r.calls = append(r.calls, "thruster") }
func (r *recordingRenderer) Present() { r.calls = append(r.calls, "present") }

func sampleState() *engine.WorldState {
	return &engine.WorldState{
		Ground: physics.Ground{Height: -2},
		Points: []engine.PointState{
			{ID: 1, Position: physics.Vector2D{X: 0, Y: -1}},
			{ID: 2, Position: physics.Vector2D{X: 0, Y: 1}},
		},
		Links: []engine.LinkState{
			{ID: 3, P1: 1, P2: 2, From: physics.Vector2D{X: 0, Y: -1}, To: physics.Vector2D{X: 0, Y: 1}},
		},
		Forces: []engine.ForceState{
			{ID: 4, Point: 2, Force: physics.Vector2D{X: 1}, Origin: physics.Vector2D{X: 0, Y: 1}, Tip: physics.Vector2D{X: 2, Y: 1}},
		},
		Thrusters: []engine.ThrusterState{{
			ID:        5,
			Name:      "engine",
			OriginPos: physics.Vector2D{X: 0, Y: -1},
			AimPos:    physics.Vector2D{X: 0, Y: 1},
			Force:     physics.Vector2D{Y: 10},
		}},
	}
}

func TestDraw_CallOrder(t *testing.T) {
	r := &recordingRenderer{}
	Draw(sampleState(), r)

	want := "clear ground link point point force thruster present"
	if got := strings.Join(r.calls, " "); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

// comRenderer also marks the centre of mass
type comRenderer struct {
	recordingRenderer
	com physics.Vector2D
}

func (r *comRenderer) RenderCenterOfMass(pos physics.Vector2D) {
	r.com = pos
	r.calls = append(r.calls, "com")
}

func TestDraw_CenterOfMass(t *testing.T) {
	state := sampleState()
	com := physics.Vector2D{X: 0.5, Y: 0.25}
	state.CenterOfMass = &com

	r := &comRenderer{}
	Draw(state, r)
	want := "clear ground link point point force thruster com present"
	if got := strings.Join(r.calls, " "); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
	if r.com != com {
		t.Errorf("marked %v, want %v", r.com, com)
	}

	r = &comRenderer{}
	Draw(sampleState(), r)
	for _, c := range r.calls {
		if c == "com" {
			t.Error("center of mass drawn without a selection")
		}
	}
}

func TestDraw_NilState(t *testing.T) {
	r := &recordingRenderer{}
	Draw(nil, r)
	if got := strings.Join(r.calls, " "); got != "clear present" {
		t.Errorf("calls = %q", got)
	}
}

func TestFollowTarget(t *testing.T) {
	target, ok := FollowTarget(sampleState())
	if !ok {
		t.Fatal("expected a target")
	}
	if target != (physics.Vector2D{X: 0, Y: 0}) {
		t.Errorf("target = %v, want midpoint of mount and aim", target)
	}

	if _, ok := FollowTarget(&engine.WorldState{}); ok {
		t.Error("state without thrusters has no target")
	}
	if _, ok := FollowTarget(nil); ok {
		t.Error("nil state has no target")
	}
}

func TestPlume(t *testing.T) {
	tests := []struct {
		name  string
		force physics.Vector2D
		want  physics.Vector2D
	}{
		{"upward thrust", physics.Vector2D{Y: 10}, physics.Vector2D{X: 0, Y: -ExhaustLength}},
		{"sideways thrust", physics.Vector2D{X: -3}, physics.Vector2D{X: ExhaustLength, Y: 0}},
		{"no thrust", physics.Vector2D{}, physics.Vector2D{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := Plume(engine.ThrusterState{Force: tt.force})
			if from != (physics.Vector2D{}) {
				t.Errorf("from = %v, want engine mount", from)
			}
			if to.Sub(tt.want).Length() > 1e-12 {
				t.Errorf("to = %v, want %v", to, tt.want)
			}
		})
	}
}

func TestNullRenderer_LogsAndCountsFrames(t *testing.T) {
	t.Setenv(logging.LevelEnvVar, "DEBUG")
	var buf bytes.Buffer
	r := NewNullRenderer(logging.NewLoggerWithWriter(&buf))

	Draw(sampleState(), r)
	Draw(sampleState(), r)

	if r.Frames != 2 {
		t.Errorf("Frames = %d, want 2", r.Frames)
	}
	out := buf.String()
	for _, msg := range []string{"Clear called", "RenderGround called", "RenderLink called", "RenderPoint called", "RenderForce called", "RenderThruster called", "Present called"} {
		if !strings.Contains(out, msg) {
			t.Errorf("log missing %q", msg)
		}
	}
}

func TestNullRenderer_ZeroValue(t *testing.T) {
	r := &NullRenderer{}
	Draw(sampleState(), r)
	if r.Frames != 1 {
		t.Errorf("Frames = %d, want 1", r.Frames)
	}
}
