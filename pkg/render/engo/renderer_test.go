// pkg/render/engo/renderer_test.go
package engo

import (
	"image/color"
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo/common"

	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/physics"
	"github.com/arda-guler/SloshTVC/pkg/render"
)

// fakeSink records entities instead of drawing them
type fakeSink struct {
	renders map[uint64]*common.RenderComponent
	spaces  map[uint64]*common.SpaceComponent
	removed int
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		renders: make(map[uint64]*common.RenderComponent),
		spaces:  make(map[uint64]*common.SpaceComponent),
	}
}

func (f *fakeSink) Add(basic *ecs.BasicEntity, rc *common.RenderComponent, sc *common.SpaceComponent) {
	f.renders[basic.ID()] = rc
	f.spaces[basic.ID()] = sc
}

func (f *fakeSink) Remove(basic ecs.BasicEntity) {
	delete(f.renders, basic.ID())
	delete(f.spaces, basic.ID())
	f.removed++
}

func (f *fakeSink) visible() int {
	n := 0
	for _, rc := range f.renders {
		if !rc.Hidden {
			n++
		}
	}
	return n
}

func rocketLike() *engine.WorldState {
	return &engine.WorldState{
		Ground: physics.Ground{Height: -10},
		Points: []engine.PointState{
			{ID: 1, Position: physics.Vector2D{X: 0, Y: -1}, Color: "skyblue"},
			{ID: 2, Position: physics.Vector2D{X: 0, Y: 1}, Color: "orange"},
		},
		Links: []engine.LinkState{
			{ID: 3, From: physics.Vector2D{X: 0, Y: -1}, To: physics.Vector2D{X: 0, Y: 1}, Color: "skyblue"},
		},
		Thrusters: []engine.ThrusterState{{
			OriginPos: physics.Vector2D{X: 0, Y: -1},
			AimPos:    physics.Vector2D{X: 0, Y: 1},
			Force:     physics.Vector2D{Y: 100},
		}},
	}
}

func newTestRenderer() (*EngoRenderer, *fakeSink, *CameraSystem) {
	sink := newFakeSink()
	camera := NewCameraSystem(800, 600)
	camera.SetTarget(physics.Vector2D{})
	return NewEngoRenderer(sink, camera, nil), sink, camera
}

func TestEngoRenderer_DrawsEveryEntity(t *testing.T) {
	r, sink, _ := newTestRenderer()
	render.Draw(rocketLike(), r)

	// ground, link, plume bars plus two points and the aim marker
	if r.Visible() != 6 {
		t.Errorf("Visible() = %d, want 6", r.Visible())
	}
	if len(sink.renders) != 6 || sink.visible() != 6 {
		t.Errorf("sink has %d entities, %d visible", len(sink.renders), sink.visible())
	}
}

func TestEngoRenderer_PoolsAcrossFrames(t *testing.T) {
	r, sink, _ := newTestRenderer()
	state := rocketLike()

	render.Draw(state, r)
	render.Draw(state, r)
	if r.Pooled() != 6 {
		t.Errorf("Pooled() = %d after two identical frames, want 6", r.Pooled())
	}

	state.Links = nil
	state.Thrusters = nil
	render.Draw(state, r)
	if r.Visible() != 3 {
		t.Errorf("Visible() = %d, want 3", r.Visible())
	}
	if sink.visible() != 3 {
		t.Errorf("sink shows %d entities, unused shapes should be hidden", sink.visible())
	}

	r.Release()
	if len(sink.renders) != 0 || r.Pooled() != 0 {
		t.Errorf("Release left %d entities", len(sink.renders))
	}
}

func TestEngoRenderer_LinkGeometry(t *testing.T) {
	r, sink, _ := newTestRenderer()

	r.Clear()
	r.RenderLink(engine.LinkState{From: physics.Vector2D{X: 0, Y: 0}, To: physics.Vector2D{X: 0, Y: 2}, Color: "orange"})
	r.Present()

	if len(sink.spaces) != 1 {
		t.Fatalf("entities = %d", len(sink.spaces))
	}
	for id, sc := range sink.spaces {
		if !near(sc.Position.X, 400) || !near(sc.Position.Y, 300) {
			t.Errorf("bar starts at %v, want screen centre", sc.Position)
		}
		if !near(sc.Width, 2*DefaultPixelsPerMeter) {
			t.Errorf("bar length = %v", sc.Width)
		}
		// world up is screen up, which is -90 degrees in engo's frame
		if !near(sc.Rotation, -90) {
			t.Errorf("rotation = %v, want -90", sc.Rotation)
		}
		if sink.renders[id].Color != (color.RGBA{R: 255, G: 165, A: 255}) {
			t.Errorf("color = %v, want orange", sink.renders[id].Color)
		}
	}
}

func TestEngoRenderer_GroundOffScreen(t *testing.T) {
	r, sink, _ := newTestRenderer()

	r.Clear()
	r.RenderGround(physics.Ground{Height: -1000})
	r.Present()
	if len(sink.renders) != 0 {
		t.Error("ground below the view should not be drawn")
	}

	r.Clear()
	r.RenderGround(physics.Ground{Height: 1000})
	r.Present()
	for _, sc := range sink.spaces {
		if sc.Position.Y != 0 {
			t.Errorf("ground above the view should fill from the top, got y=%v", sc.Position.Y)
		}
	}
}

func TestAssetManager_Color(t *testing.T) {
	am := NewAssetManager()
	fallback := color.RGBA{R: 1, G: 2, B: 3, A: 255}

	if am.Color("SkyBlue", fallback) != (color.RGBA{R: 135, G: 206, B: 235, A: 255}) {
		t.Error("lookup should ignore case")
	}
	if am.Color("chartreuse", fallback) != fallback {
		t.Error("unknown colour should use the fallback")
	}
	am.SetColor("chartreuse", color.RGBA{R: 127, G: 255, A: 255})
	if am.Color("chartreuse", fallback) == fallback {
		t.Error("SetColor should register the name")
	}
}
