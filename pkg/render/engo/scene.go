// pkg/render/engo/scene.go
package engo

import (
	"context"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/arda-guler/SloshTVC/pkg/logging"
	"github.com/arda-guler/SloshTVC/pkg/render"
)

// hudFontSize is the HUD text size in points
const hudFontSize = 14

// SimulationSystem steps the world once per frame and redraws it
type SimulationSystem struct {
	sim           render.Simulation
	renderer      render.Renderer
	camera        *CameraSystem
	hud           *HUDSystem
	stepsPerFrame int
	frames        uint64
}

// NewSimulationSystem creates the per-frame driver. hud may be nil.
func NewSimulationSystem(sim render.Simulation, renderer render.Renderer, camera *CameraSystem, hud *HUDSystem, stepsPerFrame int) *SimulationSystem {
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}
	return &SimulationSystem{
		sim:           sim,
		renderer:      renderer,
		camera:        camera,
		hud:           hud,
		stepsPerFrame: stepsPerFrame,
	}
}

// Priority runs the simulation before the camera and render systems
func (ss *SimulationSystem) Priority() int { return 100 }

// Remove satisfies the ecs.System interface
func (ss *SimulationSystem) Remove(basic ecs.BasicEntity) {}

// Update advances the world while running and draws the new state
func (ss *SimulationSystem) Update(dt float32) {
	if ss.sim.Running() {
		ss.sim.StepN(ss.stepsPerFrame)
	}
	state := ss.sim.Snapshot()
	if target, ok := render.FollowTarget(state); ok {
		ss.camera.SetTarget(target)
	}
	render.Draw(state, ss.renderer)
	if ss.hud != nil {
		ss.hud.UpdateState(state)
	}
	ss.frames++
}

// Frames returns the number of frames drawn
func (ss *SimulationSystem) Frames() uint64 {
	return ss.frames
}

// Scene is the engo scene of the window viewer
type Scene struct {
	sim           render.Simulation
	logger        *logging.Logger
	stepsPerFrame int

	assets   *AssetManager
	camera   *CameraSystem
	renderer *EngoRenderer
	input    *InputSystem
	hud      *HUDSystem
	driver   *SimulationSystem
}

// NewScene creates a scene showing sim
func NewScene(sim render.Simulation, stepsPerFrame int, logger *logging.Logger) *Scene {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Scene{
		sim:           sim,
		logger:        logger.WithComponent("engo-scene"),
		stepsPerFrame: stepsPerFrame,
		assets:        NewAssetManager(),
	}
}

// Type returns the scene type (required by Engo)
func (scene *Scene) Type() string {
	return "SloshTVC"
}

// Preload registers the HUD font (required by Engo)
func (scene *Scene) Preload() {
	if err := scene.assets.LoadAssets(); err != nil {
		scene.logger.Error(context.Background(), "asset preload failed", err)
	}
}

// Setup builds the systems when the window opens (required by Engo)
func (scene *Scene) Setup(u engo.Updater) {
	world, _ := u.(*ecs.World)
	common.SetBackground(ColorBackground)

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)

	scene.camera = NewCameraSystem(engo.GameWidth(), engo.GameHeight())
	scene.renderer = NewEngoRenderer(renderSystem, scene.camera, scene.assets)

	font, err := scene.assets.Font(hudFontSize)
	if err != nil {
		scene.logger.Warn(context.Background(), "HUD disabled", "error", err.Error())
	}
	scene.hud = NewHUDSystem(renderSystem, font)

	SetupInputBindings()
	scene.input = NewInputSystem(scene.Apply)
	scene.driver = NewSimulationSystem(scene.sim, scene.renderer, scene.camera, scene.hud, scene.stepsPerFrame)

	world.AddSystem(scene.input)
	world.AddSystem(scene.driver)
	world.AddSystem(scene.camera)
	world.AddSystem(scene.hud)

	scene.logger.Info(context.Background(), "viewer started",
		"width", engo.GameWidth(), "height", engo.GameHeight())
}

// Apply performs a viewer action. It returns false to quit.
func (scene *Scene) Apply(a render.Action) bool {
	switch a {
	case render.ActionQuit:
		return false
	case render.ActionTogglePause:
		scene.sim.TogglePause()
	case render.ActionStep:
		scene.sim.StepOnce()
	case render.ActionReset:
		if err := scene.sim.Reset(); err != nil {
			scene.logger.Error(context.Background(), "reset failed", err)
		}
		if scene.camera != nil {
			scene.camera.SetFollowing(true)
		}
	case render.ActionPanLeft:
		scene.pan(-panPixels, 0)
	case render.ActionPanRight:
		scene.pan(panPixels, 0)
	case render.ActionPanUp:
		scene.pan(0, panPixels)
	case render.ActionPanDown:
		scene.pan(0, -panPixels)
	case render.ActionZoomIn:
		scene.zoom(1.25)
	case render.ActionZoomOut:
		scene.zoom(1 / 1.25)
	case render.ActionFollow:
		if scene.camera != nil {
			scene.camera.SetFollowing(!scene.camera.Following())
		}
	case render.ActionSelectAll:
		if err := render.ToggleSelectAll(scene.sim); err != nil {
			scene.logger.Error(context.Background(), "selection failed", err)
		}
	case render.ActionPick:
		if scene.camera == nil {
			break
		}
		if _, err := render.TogglePick(scene.sim, scene.camera.GetCurrentPosition()); err != nil {
			scene.logger.Warn(context.Background(), "pick failed", "error", err.Error())
		}
	}
	return true
}

func (scene *Scene) pan(dx, dy float32) {
	if scene.camera != nil {
		scene.camera.Pan(dx, dy)
	}
}

func (scene *Scene) zoom(factor float32) {
	if scene.camera != nil {
		scene.camera.SetZoom(scene.camera.GetZoom() * factor)
	}
}

// Exit releases the pooled entities when the window closes
func (scene *Scene) Exit() {
	if scene.renderer != nil {
		scene.renderer.Release()
	}
	scene.logger.Info(context.Background(), "viewer closed")
}

// Options configures the viewer window
type Options struct {
	Title    string
	Width    int
	Height   int
	FPSLimit int
}

// Run opens the window and blocks until it closes
func Run(opts Options, scene *Scene) {
	if opts.Title == "" {
		opts.Title = "SloshTVC"
	}
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 768
	}
	engo.Run(engo.RunOptions{
		Title:    opts.Title,
		Width:    opts.Width,
		Height:   opts.Height,
		FPSLimit: opts.FPSLimit,
		MSAA:     4,
	}, scene)
}
