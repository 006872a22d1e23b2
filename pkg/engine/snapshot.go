// pkg/engine/snapshot.go
package engine

import (
	"fmt"

	"github.com/arda-guler/SloshTVC/pkg/control"
	"github.com/arda-guler/SloshTVC/pkg/entity"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// WorldState is a read-only copy of the world taken between ticks
type WorldState struct {
	Tick       uint64           `json:"tick"`
	SimTime    float64          `json:"simTime"`
	Running    bool             `json:"running"`
	TimeStep   float64          `json:"timeStep"`
	Gravity    physics.Vector2D `json:"gravity"`
	Ground     physics.Ground   `json:"ground"`
	Degenerate uint64           `json:"degenerate"`
	Points     []PointState     `json:"points"`
	Links      []LinkState      `json:"links"`
	Forces     []ForceState     `json:"forces"`
	Thrusters  []ThrusterState  `json:"thrusters"`

	// CenterOfMass is set when a selection is active
	CenterOfMass *physics.Vector2D `json:"centerOfMass,omitempty"`
	Selection    []entity.ID       `json:"selection,omitempty"`
}

// PointState represents a snapshot of a point mass
type PointState struct {
	ID          entity.ID         `json:"id"`
	Name        string            `json:"name"`
	Position    physics.Vector2D  `json:"position"`
	Velocity    physics.Vector2D  `json:"velocity"`
	Mass        float64           `json:"mass"`
	Static      bool              `json:"static"`
	Kind        physics.PointKind `json:"kind"`
	Color       string            `json:"color"`
	Constrained bool              `json:"constrained"`
	Axis        physics.Vector2D  `json:"axis"`
}

// LinkState represents a snapshot of a link
type LinkState struct {
	ID         entity.ID        `json:"id"`
	Name       string           `json:"name"`
	P1         entity.ID        `json:"p1"`
	P2         entity.ID        `json:"p2"`
	From       physics.Vector2D `json:"from"`
	To         physics.Vector2D `json:"to"`
	RestLength float64          `json:"restLength"`
	Stiffness  float64          `json:"k"`
	Damping    float64          `json:"b"`
	Strain     float64          `json:"strain"`
	Color      string           `json:"color"`
}

// ForceState represents a snapshot of a constant force
type ForceState struct {
	ID     entity.ID        `json:"id"`
	Name   string           `json:"name"`
	Point  entity.ID        `json:"point"`
	Force  physics.Vector2D `json:"force"`
	Origin physics.Vector2D `json:"origin"`
	Tip    physics.Vector2D `json:"tip"`
}

// ThrusterState represents a snapshot of a thruster. Command is present once
// the controller has evaluated a TVC thruster.
type ThrusterState struct {
	ID        entity.ID        `json:"id"`
	Name      string           `json:"name"`
	Origin    entity.ID        `json:"origin"`
	Aim       entity.ID        `json:"aim"`
	OriginPos physics.Vector2D `json:"originPos"`
	AimPos    physics.Vector2D `json:"aimPos"`
	Magnitude float64          `json:"magnitude"`
	Offset    float64          `json:"offset"`
	RateLimit float64          `json:"rateLimit"`
	Force     physics.Vector2D `json:"force"`
	TVC       bool             `json:"tvc"`
	Command   *control.Command `json:"command,omitempty"`
}

// Snapshot returns a consistent copy of the world state
func (w *World) Snapshot() *WorldState {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()

	return w.createSnapshot()
}

// createSnapshot builds the full state. Caller holds the entity lock.
func (w *World) createSnapshot() *WorldState {
	state := &WorldState{
		Tick:       w.tick,
		SimTime:    w.simTime,
		Running:    w.dt > 0,
		TimeStep:   w.timeStep,
		Gravity:    w.gravity,
		Ground:     w.ground,
		Degenerate: w.degenerate,
		Points:     w.getPointStates(),
		Links:      w.getLinkStates(),
		Forces:     w.getForceStates(),
		Thrusters:  w.getThrusterStates(),
	}
	if len(w.selection) > 0 {
		if com, _, err := w.centerOfMass(w.selection); err == nil {
			state.CenterOfMass = &com
			state.Selection = append([]entity.ID(nil), w.selection...)
		}
	}
	return state
}

// getPointStates copies every point in insertion order
func (w *World) getPointStates() []PointState {
	states := make([]PointState, 0, w.points.Len())
	w.points.Each(func(id entity.ID, p *physics.PointMass) bool {
		states = append(states, pointState(id, p))
		return true
	})
	return states
}

func pointState(id entity.ID, p *physics.PointMass) PointState {
	axis, constrained := p.ConstraintAxis()
	return PointState{
		ID:          id,
		Name:        p.Name,
		Position:    p.Position,
		Velocity:    p.Velocity,
		Mass:        p.Mass,
		Static:      p.Static,
		Kind:        p.Kind,
		Color:       p.Color,
		Constrained: constrained,
		Axis:        axis,
	}
}

// getLinkStates copies every link in insertion order
func (w *World) getLinkStates() []LinkState {
	states := make([]LinkState, 0, w.links.Len())
	w.links.Each(func(id entity.ID, l *Link) bool {
		if s, ok := w.linkState(id, l); ok {
			states = append(states, s)
		}
		return true
	})
	return states
}

func (w *World) linkState(id entity.ID, l *Link) (LinkState, bool) {
	p1, ok1 := w.points.Get(l.P1)
	p2, ok2 := w.points.Get(l.P2)
	if !ok1 || !ok2 {
		return LinkState{}, false
	}
	return LinkState{
		ID:         id,
		Name:       l.Name,
		P1:         l.P1,
		P2:         l.P2,
		From:       p1.Position,
		To:         p2.Position,
		RestLength: l.RestLength,
		Stiffness:  l.K,
		Damping:    l.B,
		Strain:     l.Strain(p1, p2),
		Color:      l.Color,
	}, true
}

// getForceStates copies every constant force in insertion order
func (w *World) getForceStates() []ForceState {
	states := make([]ForceState, 0, w.forces.Len())
	w.forces.Each(func(id entity.ID, f *Force) bool {
		p, ok := w.points.Get(f.Point)
		if !ok {
			return true
		}
		states = append(states, ForceState{
			ID:     id,
			Name:   f.Name,
			Point:  f.Point,
			Force:  f.Force,
			Origin: p.Position,
			Tip:    f.Tip(p, ForceDisplayScale),
		})
		return true
	})
	return states
}

// getThrusterStates copies every thruster in insertion order
func (w *World) getThrusterStates() []ThrusterState {
	states := make([]ThrusterState, 0, w.thrusters.Len())
	w.thrusters.Each(func(id entity.ID, t *Thruster) bool {
		if s, ok := w.thrusterState(id, t); ok {
			states = append(states, s)
		}
		return true
	})
	return states
}

func (w *World) thrusterState(id entity.ID, t *Thruster) (ThrusterState, bool) {
	origin, ok1 := w.points.Get(t.Origin)
	aim, ok2 := w.points.Get(t.Aim)
	if !ok1 || !ok2 {
		return ThrusterState{}, false
	}
	s := ThrusterState{
		ID:        id,
		Name:      t.Name,
		Origin:    t.Origin,
		Aim:       t.Aim,
		OriginPos: origin.Position,
		AimPos:    aim.Position,
		Magnitude: t.Magnitude,
		Offset:    t.Offset,
		RateLimit: t.RateLimit,
		Force:     t.lastForce,
		TVC:       t.TVC,
	}
	if t.commanded {
		cmd := t.lastCommand
		s.Command = &cmd
	}
	return s, true
}

// Point returns a copy of one point
func (w *World) Point(id entity.ID) (PointState, error) {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()

	p, ok := w.points.Get(id)
	if !ok {
		return PointState{}, fmt.Errorf("point %d: %w", id, ErrNotFound)
	}
	return pointState(id, p), nil
}

// Link returns a copy of one link
func (w *World) Link(id entity.ID) (LinkState, error) {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()

	l, ok := w.links.Get(id)
	if !ok {
		return LinkState{}, fmt.Errorf("link %d: %w", id, ErrNotFound)
	}
	s, _ := w.linkState(id, l)
	return s, nil
}

// Force returns a copy of one constant force
func (w *World) Force(id entity.ID) (ForceState, error) {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()

	if _, ok := w.forces.Get(id); !ok {
		return ForceState{}, fmt.Errorf("force %d: %w", id, ErrNotFound)
	}
	for _, s := range w.getForceStates() {
		if s.ID == id {
			return s, nil
		}
	}
	return ForceState{}, fmt.Errorf("force %d: %w", id, ErrNotFound)
}

// Thruster returns a copy of one thruster
func (w *World) Thruster(id entity.ID) (ThrusterState, error) {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()

	t, ok := w.thrusters.Get(id)
	if !ok {
		return ThrusterState{}, fmt.Errorf("thruster %d: %w", id, ErrNotFound)
	}
	s, _ := w.thrusterState(id, t)
	return s, nil
}

// ClosestPoint returns the point nearest pos
func (w *World) ClosestPoint(pos physics.Vector2D) (entity.ID, error) {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()

	var positions []physics.Vector2D
	var ids []entity.ID
	w.points.Each(func(id entity.ID, p *physics.PointMass) bool {
		positions = append(positions, p.Position)
		ids = append(ids, id)
		return true
	})
	return nearest(positions, ids, pos, "point")
}

// ClosestLink returns the link whose midpoint is nearest pos
func (w *World) ClosestLink(pos physics.Vector2D) (entity.ID, error) {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()

	var positions []physics.Vector2D
	var ids []entity.ID
	w.links.Each(func(id entity.ID, l *Link) bool {
		p1, ok1 := w.points.Get(l.P1)
		p2, ok2 := w.points.Get(l.P2)
		if ok1 && ok2 {
			positions = append(positions, l.Midpoint(p1, p2))
			ids = append(ids, id)
		}
		return true
	})
	return nearest(positions, ids, pos, "link")
}

// ClosestForce returns the constant force whose drawn tip is nearest pos
func (w *World) ClosestForce(pos physics.Vector2D) (entity.ID, error) {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()

	var positions []physics.Vector2D
	var ids []entity.ID
	w.forces.Each(func(id entity.ID, f *Force) bool {
		if p, ok := w.points.Get(f.Point); ok {
			positions = append(positions, f.Tip(p, ForceDisplayScale))
			ids = append(ids, id)
		}
		return true
	})
	return nearest(positions, ids, pos, "force")
}

// nearest indexes positions in a quad tree and returns the ID closest to pos
func nearest(positions []physics.Vector2D, ids []entity.ID, pos physics.Vector2D, kind string) (entity.ID, error) {
	if len(positions) == 0 {
		return 0, fmt.Errorf("no %s to pick: %w", kind, ErrNotFound)
	}
	index := physics.NewQuadTree[entity.ID](physics.BoundingRect(positions, 1), 8)
	for i, p := range positions {
		index.Insert(p, ids[i])
	}
	id, _, ok := index.Nearest(pos)
	if !ok {
		return 0, fmt.Errorf("no %s to pick: %w", kind, ErrNotFound)
	}
	return id, nil
}
