// pkg/render/engo/input.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/arda-guler/SloshTVC/pkg/render"
)

// panPixels is how far one arrow press moves the view
const panPixels = 60

// binding ties a registered button to a viewer action
type binding struct {
	button string
	keys   []engo.Key
	action render.Action
}

var bindings = []binding{
	{"pause", []engo.Key{engo.KeySpace}, render.ActionTogglePause},
	{"step", []engo.Key{engo.KeyPeriod}, render.ActionStep},
	{"reset", []engo.Key{engo.KeyR}, render.ActionReset},
	{"panLeft", []engo.Key{engo.KeyArrowLeft}, render.ActionPanLeft},
	{"panRight", []engo.Key{engo.KeyArrowRight}, render.ActionPanRight},
	{"panUp", []engo.Key{engo.KeyArrowUp}, render.ActionPanUp},
	{"panDown", []engo.Key{engo.KeyArrowDown}, render.ActionPanDown},
	{"zoomIn", []engo.Key{engo.KeyEquals}, render.ActionZoomIn},
	{"zoomOut", []engo.Key{engo.KeyDash}, render.ActionZoomOut},
	{"follow", []engo.Key{engo.KeyF}, render.ActionFollow},
	{"centerOfMass", []engo.Key{engo.KeyC}, render.ActionSelectAll},
	{"pick", []engo.Key{engo.KeyP}, render.ActionPick},
	{"quit", []engo.Key{engo.KeyQ, engo.KeyEscape}, render.ActionQuit},
}

// SetupInputBindings registers the viewer's buttons with engo
func SetupInputBindings() {
	for _, b := range bindings {
		engo.Input.RegisterButton(b.button, b.keys...)
	}
}

// ActionHandler performs an action and reports whether the viewer keeps running
type ActionHandler func(render.Action) bool

// InputSystem turns key presses into viewer actions
type InputSystem struct {
	handler ActionHandler
	exit    func()
}

// NewInputSystem creates an input system that forwards actions to handler
func NewInputSystem(handler ActionHandler) *InputSystem {
	return &InputSystem{handler: handler, exit: engo.Exit}
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}

// Update polls the registered buttons
func (is *InputSystem) Update(dt float32) {
	if engo.Input == nil {
		return
	}
	for _, b := range bindings {
		if engo.Input.Button(b.button).JustPressed() {
			is.Dispatch(b.action)
		}
	}
}

// Dispatch forwards one action and exits engo when the handler asks to stop
func (is *InputSystem) Dispatch(a render.Action) {
	if a == render.ActionNone || is.handler == nil {
		return
	}
	if !is.handler(a) && is.exit != nil {
		is.exit()
	}
}
