// pkg/engine/world.go
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/control"
	"github.com/arda-guler/SloshTVC/pkg/entity"
	"github.com/arda-guler/SloshTVC/pkg/event"
	"github.com/arda-guler/SloshTVC/pkg/logging"
	"github.com/arda-guler/SloshTVC/pkg/physics"
	"github.com/arda-guler/SloshTVC/pkg/validation"
)

// ForceDisplayScale is how far a constant force arrow extends per newton when
// drawn or picked.
const ForceDisplayScale = 100

// Link is a spring-damper stored by endpoint IDs
type Link struct {
	ID     entity.ID
	P1, P2 entity.ID
	*physics.RigidLink
}

// Force is a constant force attached to one point
type Force struct {
	ID    entity.ID
	Point entity.ID
	physics.ConstantForce
}

// Thruster is a gimbaled thrust source pushing Origin along Origin→Aim.
// When TVC is set the world drives its gimbal with the attitude controller.
type Thruster struct {
	ID     entity.ID
	Name   string
	Origin entity.ID
	Aim    entity.ID
	TVC    bool
	*physics.Thruster

	lastForce   physics.Vector2D
	lastCommand control.Command
	commanded   bool
}

// PointSpec describes a point to add
type PointSpec struct {
	Name     string            `json:"name"`
	Position physics.Vector2D  `json:"position"`
	Velocity physics.Vector2D  `json:"velocity"`
	Mass     float64           `json:"mass"`
	Static   bool              `json:"static"`
	Kind     physics.PointKind `json:"kind"`
	Color    string            `json:"color,omitempty"`
}

// LinkSpec describes a link to add. The rest length is taken from the
// endpoints' distance when the link is created.
type LinkSpec struct {
	Name  string  `json:"name"`
	K     float64 `json:"k"`
	B     float64 `json:"b"`
	Color string  `json:"color,omitempty"`
}

// ThrusterSpec describes a thruster to add
type ThrusterSpec struct {
	Name      string    `json:"name"`
	Origin    entity.ID `json:"origin"`
	Aim       entity.ID `json:"aim"`
	Magnitude float64   `json:"magnitude"`
	Offset    float64   `json:"offset"`
	RateLimit float64   `json:"rateLimit"`
	TVC       bool      `json:"tvc"`
}

// Counts reports how many entities of each kind are live
type Counts struct {
	Points    int `json:"points"`
	Links     int `json:"links"`
	Forces    int `json:"forces"`
	Thrusters int `json:"thrusters"`
}

// World owns every simulated entity and advances them in fixed steps.
// All exported methods are safe for concurrent use; mutations and ticks
// are serialised by the entity lock.
type World struct {
	Config   *config.SimConfig
	EventBus *event.Bus

	entityLock sync.RWMutex
	ids        entity.Generator
	points     *entity.Arena[*physics.PointMass]
	links      *entity.Arena[*Link]
	forces     *entity.Arena[*Force]
	thrusters  *entity.Arena[*Thruster]

	ground     physics.Ground
	gravity    physics.Vector2D
	drag       float64
	timeStep   float64
	dt         float64
	simTime    float64
	tick       uint64
	degenerate uint64

	controller *control.Controller
	scenario   Scenario
	logger     *logging.Logger

	contact   map[entity.ID]bool
	selection []entity.ID
	pending   []event.Event
}

// Option configures a World
type Option func(*World)

// WithEventBus makes the world publish on bus instead of a private one
func WithEventBus(bus *event.Bus) Option {
	return func(w *World) { w.EventBus = bus }
}

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *logging.Logger) Option {
	return func(w *World) { w.logger = logger }
}

// WithScenario populates the world on creation and on every Reset
func WithScenario(s Scenario) Option {
	return func(w *World) { w.scenario = s }
}

// NewWorld creates a world from cfg. The world starts running unless
// cfg.Runner.StartPaused is set.
func NewWorld(cfg *config.SimConfig, opts ...Option) (*World, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}

	controller, err := control.NewControllerFromConfig(cfg.TVC)
	if err != nil {
		return nil, fmt.Errorf("tvc controller: %w", err)
	}

	w := &World{
		Config:    cfg,
		points:    entity.NewArena[*physics.PointMass](),
		links:     entity.NewArena[*Link](),
		forces:    entity.NewArena[*Force](),
		thrusters: entity.NewArena[*Thruster](),
		ground: physics.Ground{
			Height:     cfg.Ground.Height,
			Elasticity: cfg.Ground.Elasticity,
			Friction:   cfg.Ground.Friction,
		},
		gravity:    physics.Vector2D{X: cfg.Physics.GravityX, Y: cfg.Physics.GravityY},
		drag:       cfg.Physics.DragCoefficient,
		timeStep:   cfg.Physics.TimeStep,
		controller: controller,
		contact:    make(map[entity.ID]bool),
	}
	if !cfg.Runner.StartPaused {
		w.dt = w.timeStep
	}

	for _, opt := range opts {
		opt(w)
	}
	if w.EventBus == nil {
		w.EventBus = event.NewEventBus()
	}
	if w.logger == nil {
		w.logger = logging.NewLogger().WithComponent("engine")
	}

	if err := w.buildScenario(); err != nil {
		return nil, err
	}
	return w, nil
}

// buildScenario runs the configured scenario under the entity lock
func (w *World) buildScenario() error {
	if w.scenario == nil {
		return nil
	}
	var err error
	w.withLock(func() {
		err = w.scenario.Build(lockedBuilder{w})
	})
	if err != nil {
		return fmt.Errorf("scenario %s: %w", w.scenario.Name(), err)
	}
	return nil
}

// withLock runs fn holding the entity lock and publishes the events it
// queued once the lock is released, so handlers may call back into the world.
func (w *World) withLock(fn func()) {
	w.entityLock.Lock()
	fn()
	events := w.pending
	w.pending = nil
	w.entityLock.Unlock()

	for _, e := range events {
		w.EventBus.Publish(e)
	}
}

// queue records an event for publication after the lock is released
func (w *World) queue(e event.Event) {
	w.pending = append(w.pending, e)
}

// AddPoint adds a point mass and returns its ID
func (w *World) AddPoint(spec PointSpec) (id entity.ID, err error) {
	w.withLock(func() { id, err = w.addPoint(spec) })
	return id, err
}

// addPoint adds a point. Caller holds the entity lock.
func (w *World) addPoint(spec PointSpec) (entity.ID, error) {
	name, err := w.entityName(spec.Name, "p")
	if err != nil {
		return 0, err
	}
	if err := validation.ValidateMass(spec.Mass); err != nil {
		return 0, fmt.Errorf("point %q: %w", name, err)
	}
	p, err := physics.NewPointMass(name, spec.Position, spec.Velocity, spec.Mass)
	if err != nil {
		return 0, err
	}
	p.Static = spec.Static
	p.Kind = spec.Kind
	if spec.Color != "" {
		p.Color = spec.Color
	}

	id := w.ids.Next()
	w.points.Insert(id, p)
	w.queue(event.NewEntityEvent(event.PointAdded, w, uint64(id), name))
	return id, nil
}

// RemovePoint removes a point together with every link, force and thruster
// that references it. Dependents are announced before the point itself.
func (w *World) RemovePoint(id entity.ID) (err error) {
	w.withLock(func() { err = w.removePoint(id) })
	return err
}

// removePoint cascades the removal. Caller holds the entity lock.
func (w *World) removePoint(id entity.ID) error {
	p, ok := w.points.Get(id)
	if !ok {
		return fmt.Errorf("point %d: %w", id, ErrNotFound)
	}

	for _, linkID := range w.linksReferencing(id) {
		w.removeLink(linkID)
	}
	for _, forceID := range w.forcesReferencing(id) {
		w.removeForce(forceID)
	}
	for _, thrusterID := range w.thrustersReferencing(id) {
		w.removeThruster(thrusterID)
	}

	w.points.Remove(id)
	delete(w.contact, id)
	w.dropFromSelection(id)
	w.queue(event.NewEntityEvent(event.PointRemoved, w, uint64(id), p.Name))
	return nil
}

// linksReferencing returns the links with id as an endpoint
func (w *World) linksReferencing(id entity.ID) []entity.ID {
	var out []entity.ID
	w.links.Each(func(linkID entity.ID, l *Link) bool {
		if l.P1 == id || l.P2 == id {
			out = append(out, linkID)
		}
		return true
	})
	return out
}

// forcesReferencing returns the constant forces acting on id
func (w *World) forcesReferencing(id entity.ID) []entity.ID {
	var out []entity.ID
	w.forces.Each(func(forceID entity.ID, f *Force) bool {
		if f.Point == id {
			out = append(out, forceID)
		}
		return true
	})
	return out
}

// thrustersReferencing returns the thrusters using id as origin or aim
func (w *World) thrustersReferencing(id entity.ID) []entity.ID {
	var out []entity.ID
	w.thrusters.Each(func(thrusterID entity.ID, t *Thruster) bool {
		if t.Origin == id || t.Aim == id {
			out = append(out, thrusterID)
		}
		return true
	})
	return out
}

// dropFromSelection removes id from the center-of-mass selection
func (w *World) dropFromSelection(id entity.ID) {
	kept := w.selection[:0]
	for _, s := range w.selection {
		if s != id {
			kept = append(kept, s)
		}
	}
	w.selection = kept
}

// AddLink joins two points with a spring-damper whose rest length is their
// current distance.
func (w *World) AddLink(p1, p2 entity.ID, spec LinkSpec) (id entity.ID, err error) {
	w.withLock(func() { id, err = w.addLink(p1, p2, spec) })
	return id, err
}

// addLink adds a link. Caller holds the entity lock.
func (w *World) addLink(p1, p2 entity.ID, spec LinkSpec) (entity.ID, error) {
	if p1 == p2 {
		return 0, fmt.Errorf("link %d-%d: %w", p1, p2, ErrSameEndpoint)
	}
	a, ok := w.points.Get(p1)
	if !ok {
		return 0, fmt.Errorf("link endpoint %d: %w", p1, ErrNotFound)
	}
	b, ok := w.points.Get(p2)
	if !ok {
		return 0, fmt.Errorf("link endpoint %d: %w", p2, ErrNotFound)
	}
	name, err := w.entityName(spec.Name, "l")
	if err != nil {
		return 0, err
	}
	if err := validation.ValidateSpring(spec.K); err != nil {
		return 0, fmt.Errorf("link %q: %w", name, err)
	}
	if err := validation.ValidateDamping(spec.B); err != nil {
		return 0, fmt.Errorf("link %q: %w", name, err)
	}

	rl, err := physics.NewRigidLink(name, a, b, spec.K, spec.B)
	if err != nil {
		return 0, err
	}
	if spec.Color != "" {
		rl.Color = spec.Color
	}

	id := w.ids.Next()
	w.links.Insert(id, &Link{ID: id, P1: p1, P2: p2, RigidLink: rl})
	w.queue(event.NewEntityEvent(event.LinkAdded, w, uint64(id), name))
	return id, nil
}

// RemoveLink removes a link
func (w *World) RemoveLink(id entity.ID) (err error) {
	w.withLock(func() {
		if !w.removeLink(id) {
			err = fmt.Errorf("link %d: %w", id, ErrNotFound)
		}
	})
	return err
}

// removeLink reports whether the link existed. Caller holds the entity lock.
func (w *World) removeLink(id entity.ID) bool {
	l, ok := w.links.Remove(id)
	if ok {
		w.queue(event.NewEntityEvent(event.LinkRemoved, w, uint64(id), l.Name))
	}
	return ok
}

// AddConstantForce attaches force f to a point
func (w *World) AddConstantForce(point entity.ID, f physics.Vector2D, name string) (id entity.ID, err error) {
	w.withLock(func() { id, err = w.addConstantForce(point, f, name) })
	return id, err
}

// addConstantForce adds a force. Caller holds the entity lock.
func (w *World) addConstantForce(point entity.ID, f physics.Vector2D, name string) (entity.ID, error) {
	if !w.points.Has(point) {
		return 0, fmt.Errorf("force target %d: %w", point, ErrNotFound)
	}
	name, err := w.entityName(name, "f")
	if err != nil {
		return 0, err
	}
	if err := validation.ValidateForce(f); err != nil {
		return 0, fmt.Errorf("force %q: %w", name, err)
	}

	id := w.ids.Next()
	w.forces.Insert(id, &Force{
		ID:            id,
		Point:         point,
		ConstantForce: physics.ConstantForce{Name: name, Force: f},
	})
	w.queue(event.NewEntityEvent(event.ForceAdded, w, uint64(id), name))
	return id, nil
}

// RemoveForce removes a constant force
func (w *World) RemoveForce(id entity.ID) (err error) {
	w.withLock(func() {
		if !w.removeForce(id) {
			err = fmt.Errorf("force %d: %w", id, ErrNotFound)
		}
	})
	return err
}

// removeForce reports whether the force existed. Caller holds the entity lock.
func (w *World) removeForce(id entity.ID) bool {
	f, ok := w.forces.Remove(id)
	if ok {
		w.queue(event.NewEntityEvent(event.ForceRemoved, w, uint64(id), f.Name))
	}
	return ok
}

// AddThruster adds a gimbaled thruster
func (w *World) AddThruster(spec ThrusterSpec) (id entity.ID, err error) {
	w.withLock(func() { id, err = w.addThruster(spec) })
	return id, err
}

// addThruster adds a thruster. Caller holds the entity lock.
func (w *World) addThruster(spec ThrusterSpec) (entity.ID, error) {
	if spec.Origin == spec.Aim {
		return 0, fmt.Errorf("thruster origin and aim %d: %w", spec.Origin, ErrSameEndpoint)
	}
	if !w.points.Has(spec.Origin) {
		return 0, fmt.Errorf("thruster origin %d: %w", spec.Origin, ErrNotFound)
	}
	if !w.points.Has(spec.Aim) {
		return 0, fmt.Errorf("thruster aim %d: %w", spec.Aim, ErrNotFound)
	}
	name, err := w.entityName(spec.Name, "t")
	if err != nil {
		return 0, err
	}
	pt, err := physics.NewThruster(spec.Magnitude, spec.Offset, spec.RateLimit)
	if err != nil {
		return 0, fmt.Errorf("thruster %q: %w", name, err)
	}

	id := w.ids.Next()
	w.thrusters.Insert(id, &Thruster{
		ID:       id,
		Name:     name,
		Origin:   spec.Origin,
		Aim:      spec.Aim,
		TVC:      spec.TVC,
		Thruster: pt,
	})
	w.queue(event.NewEntityEvent(event.ThrusterAdded, w, uint64(id), name))
	return id, nil
}

// RemoveThruster removes a thruster
func (w *World) RemoveThruster(id entity.ID) (err error) {
	w.withLock(func() {
		if !w.removeThruster(id) {
			err = fmt.Errorf("thruster %d: %w", id, ErrNotFound)
		}
	})
	return err
}

// removeThruster reports whether the thruster existed. Caller holds the entity lock.
func (w *World) removeThruster(id entity.ID) bool {
	t, ok := w.thrusters.Remove(id)
	if ok {
		w.queue(event.NewEntityEvent(event.ThrusterRemoved, w, uint64(id), t.Name))
	}
	return ok
}

// SetConstraintAxis restricts a point's velocity to axis. A zero axis clears
// the constraint.
func (w *World) SetConstraintAxis(point entity.ID, axis physics.Vector2D) (err error) {
	w.withLock(func() { err = w.setConstraintAxis(point, axis) })
	return err
}

// setConstraintAxis applies the constraint. Caller holds the entity lock.
func (w *World) setConstraintAxis(point entity.ID, axis physics.Vector2D) error {
	p, ok := w.points.Get(point)
	if !ok {
		return fmt.Errorf("point %d: %w", point, ErrNotFound)
	}
	if axis == (physics.Vector2D{}) {
		p.ClearConstraintAxis()
		return nil
	}
	return p.SetConstraintAxis(axis)
}

// entityName validates a caller-supplied name or derives one from the next ID
func (w *World) entityName(name, prefix string) (string, error) {
	if name == "" {
		return fmt.Sprintf("%s%d", prefix, w.ids.Last()+1), nil
	}
	return validation.ValidateName(name)
}

// SetRunning switches between the fixed step and a zero step
func (w *World) SetRunning(running bool) {
	w.withLock(func() { w.setRunning(running) })
}

// setRunning changes the run state. Caller holds the entity lock.
func (w *World) setRunning(running bool) {
	if running == (w.dt > 0) {
		return
	}
	kind := event.SimulationPaused
	w.dt = 0
	if running {
		kind = event.SimulationResumed
		w.dt = w.timeStep
	}
	w.queue(event.NewSimulationEvent(kind, w, w.tick, w.simTime))
}

// TogglePause flips the run state and returns the new one
func (w *World) TogglePause() (running bool) {
	w.withLock(func() {
		w.setRunning(w.dt == 0)
		running = w.dt > 0
	})
	return running
}

// Running reports whether ticks advance the simulation
func (w *World) Running() bool {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()
	return w.dt > 0
}

// TimeStep returns the configured fixed step
func (w *World) TimeStep() float64 {
	return w.timeStep
}

// Step advances one tick at the current step. While paused the tick still
// evaluates forces and the controller but changes no state.
func (w *World) Step() {
	w.withLock(func() { w.step(w.dt) })
}

// StepN advances n ticks under one lock acquisition
func (w *World) StepN(n int) {
	w.withLock(func() {
		for i := 0; i < n; i++ {
			w.step(w.dt)
		}
	})
}

// StepOnce advances exactly one tick at the fixed step, even while paused.
// Viewers use it for frame-by-frame inspection.
func (w *World) StepOnce() {
	w.withLock(func() { w.step(w.timeStep) })
}

// step runs one tick with step dt. Caller holds the entity lock.
//
// Order: ground, constant forces, thrusters, links, then gravity, drag and
// integration per point, then accumulators are cleared and time advances.
// Ground, links and integration only run while dt > 0.
func (w *World) step(dt float64) {
	running := dt > 0

	if running {
		w.applyGround(dt)
	}
	w.applyConstantForces()
	w.applyThrusters(dt)
	if running {
		w.applyLinks()
		w.integrate(dt)
	}
	w.clearAccumulators()

	w.simTime += dt
	w.tick++
}

// applyGround pushes the floor response into every point and announces
// new contacts.
func (w *World) applyGround(dt float64) {
	w.points.Each(func(id entity.ID, p *physics.PointMass) bool {
		if p.Static {
			return true
		}
		touching := w.ground.Contact(p)
		if touching && !w.contact[id] {
			w.queue(event.NewContactEvent(w, uint64(id), p.Velocity.Length(), w.simTime))
		}
		w.contact[id] = touching
		w.ground.Apply(p, w.gravity, dt)
		return true
	})
}

// applyConstantForces pushes every constant force into its point
func (w *World) applyConstantForces() {
	w.forces.Each(func(_ entity.ID, f *Force) bool {
		if p, ok := w.points.Get(f.Point); ok {
			f.Apply(p)
		}
		return true
	})
}

// applyThrusters updates gimbals under TVC and pushes thrust into origins
func (w *World) applyThrusters(dt float64) {
	w.thrusters.Each(func(id entity.ID, t *Thruster) bool {
		origin, ok1 := w.points.Get(t.Origin)
		aim, ok2 := w.points.Get(t.Aim)
		if !ok1 || !ok2 {
			return true
		}

		if t.TVC {
			cmd, err := w.controller.Command(origin, aim)
			if err != nil {
				w.recordDegenerate(id, err)
				t.lastForce = physics.Vector2D{}
				return true
			}
			t.lastCommand = cmd
			t.commanded = true
			t.MoveTowardsOffset(cmd.Gimbal, dt)
		}

		force, err := t.Apply(origin, aim)
		if err != nil {
			w.recordDegenerate(id, err)
			t.lastForce = physics.Vector2D{}
			return true
		}
		t.lastForce = force
		return true
	})
}

// applyLinks pushes every spring-damper force into its endpoints
func (w *World) applyLinks() {
	w.links.Each(func(id entity.ID, l *Link) bool {
		p1, ok1 := w.points.Get(l.P1)
		p2, ok2 := w.points.Get(l.P2)
		if !ok1 || !ok2 {
			return true
		}
		if err := l.Apply(p1, p2); err != nil {
			w.recordDegenerate(id, err)
		}
		return true
	})
}

// integrate adds gravity and drag then advances every point
func (w *World) integrate(dt float64) {
	w.points.Each(func(_ entity.ID, p *physics.PointMass) bool {
		p.ApplyGravity(w.gravity)
		p.ApplyDrag(w.drag)
		p.Integrate(dt)
		return true
	})
}

// clearAccumulators resets every point for the next tick
func (w *World) clearAccumulators() {
	w.points.Each(func(_ entity.ID, p *physics.PointMass) bool {
		p.ClearAccumulator()
		return true
	})
}

// recordDegenerate counts and logs an entity skipped for degenerate geometry
func (w *World) recordDegenerate(id entity.ID, err error) {
	w.degenerate++
	w.logger.Debug(context.Background(), "Skipped degenerate geometry",
		"entity", uint64(id),
		"tick", w.tick,
		"error", err.Error(),
	)
}

// Reset removes every entity, zeroes the clock and rebuilds the scenario.
// The run state is kept.
func (w *World) Reset() error {
	var err error
	w.withLock(func() {
		w.points.Clear()
		w.links.Clear()
		w.forces.Clear()
		w.thrusters.Clear()
		w.contact = make(map[entity.ID]bool)
		w.selection = nil
		w.simTime = 0
		w.tick = 0
		w.degenerate = 0
		w.queue(event.NewSimulationEvent(event.SimulationReset, w, 0, 0))

		if w.scenario != nil {
			if buildErr := w.scenario.Build(lockedBuilder{w}); buildErr != nil {
				err = fmt.Errorf("scenario %s: %w", w.scenario.Name(), buildErr)
			}
		}
	})
	return err
}

// SimTime returns the accumulated simulated time in seconds
func (w *World) SimTime() float64 {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()
	return w.simTime
}

// Tick returns the number of ticks run since creation or the last reset
func (w *World) Tick() uint64 {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()
	return w.tick
}

// DegenerateEvents returns how many entity evaluations were skipped for
// degenerate geometry since the last reset.
func (w *World) DegenerateEvents() uint64 {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()
	return w.degenerate
}

// Counts returns the number of live entities of each kind
func (w *World) Counts() Counts {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()
	return Counts{
		Points:    w.points.Len(),
		Links:     w.links.Len(),
		Forces:    w.forces.Len(),
		Thrusters: w.thrusters.Len(),
	}
}

// FindPoint returns the ID of the first point called name
func (w *World) FindPoint(name string) (entity.ID, error) {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()

	var found entity.ID
	w.points.Each(func(id entity.ID, p *physics.PointMass) bool {
		if p.Name == name {
			found = id
			return false
		}
		return true
	})
	if found == 0 {
		return 0, fmt.Errorf("point %q: %w", name, ErrNotFound)
	}
	return found, nil
}

// TotalMomentum returns the summed momentum of all non-static points
func (w *World) TotalMomentum() physics.Vector2D {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()

	var sum physics.Vector2D
	w.points.Each(func(_ entity.ID, p *physics.PointMass) bool {
		if !p.Static {
			sum = sum.Add(p.Momentum())
		}
		return true
	})
	return sum
}

// CenterOfMass returns the mass-weighted centre and total mass of ids
func (w *World) CenterOfMass(ids []entity.ID) (physics.Vector2D, float64, error) {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()
	return w.centerOfMass(ids)
}

// centerOfMass computes the centre. Caller holds the entity lock.
func (w *World) centerOfMass(ids []entity.ID) (physics.Vector2D, float64, error) {
	if len(ids) == 0 {
		return physics.Vector2D{}, 0, ErrEmptySelection
	}
	var weighted physics.Vector2D
	total := 0.0
	for _, id := range ids {
		p, ok := w.points.Get(id)
		if !ok {
			return physics.Vector2D{}, 0, fmt.Errorf("point %d: %w", id, ErrNotFound)
		}
		weighted = weighted.Add(p.Position.Scale(p.Mass))
		total += p.Mass
	}
	return weighted.Scale(1 / total), total, nil
}

// SetSelection replaces the point selection used for the displayed center
// of mass. Every ID must name a live point.
func (w *World) SetSelection(ids []entity.ID) (err error) {
	w.withLock(func() {
		for _, id := range ids {
			if !w.points.Has(id) {
				err = fmt.Errorf("point %d: %w", id, ErrNotFound)
				return
			}
		}
		w.selection = append([]entity.ID(nil), ids...)
	})
	return err
}

// Selection returns a copy of the current point selection
func (w *World) Selection() []entity.ID {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()
	return append([]entity.ID(nil), w.selection...)
}

// Ground returns the floor model
func (w *World) Ground() physics.Ground {
	return w.ground
}

// Gravity returns the gravitational acceleration
func (w *World) Gravity() physics.Vector2D {
	return w.gravity
}

// finiteState reports whether every point has a finite position and velocity.
// Caller holds the entity lock.
func (w *World) finiteState() bool {
	ok := true
	w.points.Each(func(_ entity.ID, p *physics.PointMass) bool {
		if !p.Position.IsFinite() || !p.Velocity.IsFinite() || math.IsNaN(p.Mass) {
			ok = false
		}
		return ok
	})
	return ok
}

// Healthy reports whether every point state is finite
func (w *World) Healthy() bool {
	w.entityLock.RLock()
	defer w.entityLock.RUnlock()
	return w.finiteState()
}
