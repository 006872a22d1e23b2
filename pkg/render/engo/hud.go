// pkg/render/engo/hud.go
package engo

import (
	"fmt"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/arda-guler/SloshTVC/pkg/engine"
)

const (
	hudMargin     = 10
	hudLineHeight = 18
)

// HUDSystem draws flight readouts in the top-left corner
type HUDSystem struct {
	sink  ShapeSink
	font  *common.Font
	lines []string
	texts []*shape

	status string
}

// NewHUDSystem creates a HUD. Text is only drawn once a font and sink are set.
func NewHUDSystem(sink ShapeSink, font *common.Font) *HUDSystem {
	return &HUDSystem{sink: sink, font: font}
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {}

// Update pushes the current lines into text entities
func (hud *HUDSystem) Update(dt float32) {
	if hud.sink == nil || hud.font == nil {
		return
	}
	for len(hud.texts) < len(hud.lines) {
		i := len(hud.texts)
		s := &shape{BasicEntity: ecs.NewBasic()}
		s.Drawable = common.Text{Font: hud.font, Text: " "}
		s.SetZIndex(zHUD)
		s.Position = engo.Point{X: hudMargin, Y: hudMargin + float32(i)*hudLineHeight}
		hud.texts = append(hud.texts, s)
		hud.sink.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	}
	for i, s := range hud.texts {
		if i >= len(hud.lines) {
			s.Hidden = true
			continue
		}
		s.Hidden = false
		s.Drawable = common.Text{Font: hud.font, Text: hud.lines[i]}
	}
}

// SetStatus sets a free-form line shown under the readouts
func (hud *HUDSystem) SetStatus(status string) {
	hud.status = status
}

// UpdateState rebuilds the readouts from a snapshot
func (hud *HUDSystem) UpdateState(state *engine.WorldState) {
	hud.lines = hud.lines[:0]
	if state == nil {
		return
	}
	mode := "running"
	if !state.Running {
		mode = "paused"
	}
	hud.lines = append(hud.lines,
		fmt.Sprintf("t = %.3f s  tick %d  %s", state.SimTime, state.Tick, mode),
	)
	if len(state.Thrusters) > 0 {
		th := state.Thrusters[0]
		hud.lines = append(hud.lines,
			fmt.Sprintf("altitude %.2f m", th.OriginPos.Y),
			fmt.Sprintf("gimbal %.2f deg", th.Offset),
		)
		if cmd := th.Command; cmd != nil {
			hud.lines = append(hud.lines,
				fmt.Sprintf("flight %.2f deg  desired %.2f deg", cmd.FlightAngle, cmd.DesiredAngle),
				fmt.Sprintf("rate %.3f rad/s", cmd.AngularRate),
			)
		}
	}
	if state.Degenerate > 0 {
		hud.lines = append(hud.lines, fmt.Sprintf("degenerate geometry x%d", state.Degenerate))
	}
	if hud.status != "" {
		hud.lines = append(hud.lines, hud.status)
	}
}

// Lines returns the readouts of the last UpdateState
func (hud *HUDSystem) Lines() []string {
	return append([]string(nil), hud.lines...)
}
