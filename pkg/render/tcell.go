package render

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/entity"
	"github.com/arda-guler/SloshTVC/pkg/logging"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// Action is a viewer command bound to a key
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionTogglePause
	ActionStep
	ActionReset
	ActionPanLeft
	ActionPanRight
	ActionPanUp
	ActionPanDown
	ActionZoomIn
	ActionZoomOut
	ActionFollow
	ActionSelectAll
	ActionPick
)

// panCells is how far one arrow press moves the view
const panCells = 4

// Simulation is the part of a world the presenter drives
type Simulation interface {
	Snapshot() *engine.WorldState
	TogglePause() bool
	Running() bool
	StepN(n int)
	StepOnce()
	Reset() error
	Selection() []entity.ID
	SetSelection(ids []entity.ID) error
	ClosestPoint(pos physics.Vector2D) (entity.ID, error)
}

// KeyAction maps a key press to an action. ch is only read for KeyRune.
func KeyAction(key tcell.Key, ch rune) Action {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyLeft:
		return ActionPanLeft
	case tcell.KeyRight:
		return ActionPanRight
	case tcell.KeyUp:
		return ActionPanUp
	case tcell.KeyDown:
		return ActionPanDown
	case tcell.KeyRune:
	default:
		return ActionNone
	}

	switch ch {
	case 'q', 'Q':
		return ActionQuit
	case ' ':
		return ActionTogglePause
	case '.':
		return ActionStep
	case 'r', 'R':
		return ActionReset
	case '+', '=':
		return ActionZoomIn
	case '-', '_':
		return ActionZoomOut
	case 'f', 'F':
		return ActionFollow
	case 'c', 'C':
		return ActionSelectAll
	case 'p', 'P':
		return ActionPick
	}
	return ActionNone
}

// TcellPresenter shows a world on a tcell screen and steps it at a fixed
// frame rate. The camera follows the rocket until the user pans.
type TcellPresenter struct {
	screen        tcell.Screen
	sim           Simulation
	raster        *TerminalRenderer
	logger        *logging.Logger
	stepsPerFrame int
	frameRate     int
	follow        bool
	frames        uint64
}

// NewTcellPresenter binds sim to an initialised screen. scale is world units
// per cell.
func NewTcellPresenter(screen tcell.Screen, sim Simulation, stepsPerFrame, frameRate int, scale float64, logger *logging.Logger) *TcellPresenter {
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}
	if frameRate < 1 {
		frameRate = 30
	}
	if logger == nil {
		logger = logging.NewLogger()
	}
	w, h := screen.Size()
	p := &TcellPresenter{
		screen:        screen,
		sim:           sim,
		raster:        NewTerminalRenderer(w, rasterHeight(h), scale),
		logger:        logger.WithComponent("tcell-presenter"),
		stepsPerFrame: stepsPerFrame,
		frameRate:     frameRate,
		follow:        true,
	}
	p.raster.SetOutput(nil)
	return p
}

// the bottom row holds the status line
func rasterHeight(screenHeight int) int {
	return screenHeight - 1
}

// Raster exposes the underlying ASCII renderer
func (p *TcellPresenter) Raster() *TerminalRenderer {
	return p.raster
}

// Following reports whether the camera tracks the rocket
func (p *TcellPresenter) Following() bool {
	return p.follow
}

// Frames returns the number of frames drawn
func (p *TcellPresenter) Frames() uint64 {
	return p.frames
}

// Apply performs an action. It returns false when the viewer should quit.
func (p *TcellPresenter) Apply(a Action) bool {
	ctx := context.Background()
	switch a {
	case ActionQuit:
		return false
	case ActionTogglePause:
		running := p.sim.TogglePause()
		p.logger.Debug(ctx, "pause toggled", "running", running)
	case ActionStep:
		p.sim.StepOnce()
	case ActionReset:
		if err := p.sim.Reset(); err != nil {
			p.logger.Error(ctx, "reset failed", err)
		}
		p.follow = true
	case ActionPanLeft:
		p.follow = false
		p.raster.Pan(-panCells, 0)
	case ActionPanRight:
		p.follow = false
		p.raster.Pan(panCells, 0)
	case ActionPanUp:
		p.follow = false
		p.raster.Pan(0, panCells)
	case ActionPanDown:
		p.follow = false
		p.raster.Pan(0, -panCells)
	case ActionZoomIn:
		p.raster.Zoom(1 / 1.25)
	case ActionZoomOut:
		p.raster.Zoom(1.25)
	case ActionFollow:
		p.follow = !p.follow
	case ActionSelectAll:
		if err := ToggleSelectAll(p.sim); err != nil {
			p.logger.Error(ctx, "selection failed", err)
		}
	case ActionPick:
		if id, err := TogglePick(p.sim, p.raster.Center()); err != nil {
			p.logger.Warn(ctx, "pick failed", "error", err)
		} else {
			p.logger.Debug(ctx, "picked point", "id", id)
		}
	}
	return true
}

// HandleEvent processes one screen event and reports whether to keep running
func (p *TcellPresenter) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return p.Apply(KeyAction(ev.Key(), ev.Rune()))
	case *tcell.EventResize:
		w, h := p.screen.Size()
		p.raster.Resize(w, rasterHeight(h))
		p.screen.Sync()
	}
	return true
}

// Frame advances the simulation by one frame's worth of ticks and redraws
func (p *TcellPresenter) Frame() {
	if p.sim.Running() {
		p.sim.StepN(p.stepsPerFrame)
	}
	p.Draw()
}

// Draw renders the current state without stepping
func (p *TcellPresenter) Draw() {
	state := p.sim.Snapshot()
	if p.follow {
		if target, ok := FollowTarget(state); ok {
			p.raster.SetCenter(target)
		}
	}
	Draw(state, p.raster)
	p.raster.SetStatus(p.status(state))
	p.blit()
	p.frames++
}

func (p *TcellPresenter) status(state *engine.WorldState) string {
	mode := "running"
	if !state.Running {
		mode = "paused"
	}
	s := fmt.Sprintf(" t=%.3fs tick=%d %s scale=%.3g", state.SimTime, state.Tick, mode, p.raster.Scale())
	if len(state.Thrusters) > 0 && state.Thrusters[0].Command != nil {
		cmd := state.Thrusters[0].Command
		s += fmt.Sprintf(" angle=%.2f gimbal=%.2f", cmd.FlightAngle, state.Thrusters[0].Offset)
	}
	if state.CenterOfMass != nil {
		s += fmt.Sprintf(" com=(%.2f, %.2f) n=%d", state.CenterOfMass.X, state.CenterOfMass.Y, len(state.Selection))
	}
	return s + "  [space] pause [.] step [r] reset [arrows] pan [+/-] zoom [f] follow [c] com [p] pick [q] quit"
}

var (
	styleDefault    = tcell.StyleDefault
	styleGround     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleLink       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	stylePropellant = tcell.StyleDefault.Foreground(tcell.ColorOrange)
	stylePlume      = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleForce      = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleCOM        = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
)

func glyphStyle(ch rune) tcell.Style {
	switch ch {
	case GlyphGround:
		return styleGround
	case GlyphLink:
		return styleLink
	case GlyphPropellant:
		return stylePropellant
	case GlyphPlume, GlyphAim:
		return stylePlume
	case GlyphForce, GlyphForceTip:
		return styleForce
	case GlyphCOM:
		return styleCOM
	}
	return styleDefault
}

func (p *TcellPresenter) blit() {
	p.screen.Clear()
	width, height := p.raster.Size()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			ch := p.raster.At(x, y)
			if ch != ' ' {
				p.screen.SetContent(x, y, ch, nil, glyphStyle(ch))
			}
		}
	}
	x := 0
	for _, ch := range p.raster.status {
		if x >= width {
			break
		}
		p.screen.SetContent(x, height, ch, nil, styleStatus)
		x++
	}
	p.screen.Show()
}

// Run drives the viewer until ctx is cancelled or the user quits
func (p *TcellPresenter) Run(ctx context.Context) error {
	// PollEvent returns nil once the screen is finalised
	events := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(p.frameRate))
	defer ticker.Stop()

	p.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !p.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			p.Frame()
		}
	}
}
