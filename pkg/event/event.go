// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	PointAdded        Type = "point_added"
	PointRemoved      Type = "point_removed"
	LinkAdded         Type = "link_added"
	LinkRemoved       Type = "link_removed"
	ForceAdded        Type = "force_added"
	ForceRemoved      Type = "force_removed"
	ThrusterAdded     Type = "thruster_added"
	ThrusterRemoved   Type = "thruster_removed"
	SimulationPaused  Type = "simulation_paused"
	SimulationResumed Type = "simulation_resumed"
	SimulationReset   Type = "simulation_reset"
	GroundContact     Type = "ground_contact"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed later
type Subscription struct {
	ID        uint64
	EventType Type
	Cancel    func()
}

type registration struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching. Handlers run
// synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]registration
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registration),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: id, handler: handler})

	sub := &Subscription{ID: id, EventType: eventType}
	sub.Cancel = func() { b.Unsubscribe(sub) }
	return sub
}

// Unsubscribe removes a previously registered handler. It reports whether the
// subscription was found.
func (b *Bus) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[sub.EventType]
	for i, r := range regs {
		if r.id == sub.ID {
			// Copy so in-flight publishes keep iterating the old slice
			next := make([]registration, 0, len(regs)-1)
			next = append(next, regs[:i]...)
			next = append(next, regs[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, sub.EventType)
			} else {
				b.handlers[sub.EventType] = next
			}
			return true
		}
	}
	return false
}

// HandlerCount returns how many handlers are registered for eventType
func (b *Bus) HandlerCount(eventType Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	regs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, r := range regs {
		r.handler(event)
	}
}

// Specific event implementations

// EntityEvent is published when a point, link, force or thruster is added
// or removed.
type EntityEvent struct {
	BaseEvent
	EntityID uint64
	Name     string
}

// NewEntityEvent creates a new entity event
func NewEntityEvent(eventType Type, source interface{}, entityID uint64, name string) *EntityEvent {
	return &EntityEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		EntityID: entityID,
		Name:     name,
	}
}

// SimulationEvent carries the clock at the moment the run state changed
type SimulationEvent struct {
	BaseEvent
	Tick    uint64
	SimTime float64
}

// NewSimulationEvent creates a new simulation lifecycle event
func NewSimulationEvent(eventType Type, source interface{}, tick uint64, simTime float64) *SimulationEvent {
	return &SimulationEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Tick:    tick,
		SimTime: simTime,
	}
}

// ContactEvent is published when an airborne point touches the ground
type ContactEvent struct {
	BaseEvent
	PointID uint64
	Speed   float64 // impact speed before the ground response
	SimTime float64
}

// NewContactEvent creates a new ground contact event
func NewContactEvent(source interface{}, pointID uint64, speed, simTime float64) *ContactEvent {
	return &ContactEvent{
		BaseEvent: BaseEvent{
			EventType: GroundContact,
			Source:    source,
		},
		PointID: pointID,
		Speed:   speed,
		SimTime: simTime,
	}
}
