// pkg/entity/entity.go
package entity

import "fmt"

// ID is a unique identifier for a world entity. Zero is never issued.
type ID uint64

// Kind names the entity families a world owns
type Kind int

const (
	KindPoint Kind = iota
	KindLink
	KindForce
	KindThruster
)

// String returns the kind name used in logs and telemetry
func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLink:
		return "link"
	case KindForce:
		return "force"
	case KindThruster:
		return "thruster"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Generator issues increasing IDs. IDs are not reused, so a stale ID held by
// a client never resolves to a newer entity.
type Generator struct {
	next ID
}

// Next returns a fresh ID
func (g *Generator) Next() ID {
	g.next++
	return g.next
}

// Last returns the most recently issued ID, or zero
func (g *Generator) Last() ID {
	return g.next
}

// Arena stores values by ID and remembers insertion order so iteration is
// deterministic.
type Arena[T any] struct {
	items map[ID]T
	order []ID
}

// NewArena creates an empty arena
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{items: make(map[ID]T)}
}

// Insert stores v under id. Inserting an existing id replaces the value in place.
func (a *Arena[T]) Insert(id ID, v T) {
	if _, ok := a.items[id]; !ok {
		a.order = append(a.order, id)
	}
	a.items[id] = v
}

// Get returns the value stored under id
func (a *Arena[T]) Get(id ID) (T, bool) {
	v, ok := a.items[id]
	return v, ok
}

// Has reports whether id is live
func (a *Arena[T]) Has(id ID) bool {
	_, ok := a.items[id]
	return ok
}

// Remove deletes id and returns the value it held
func (a *Arena[T]) Remove(id ID) (T, bool) {
	v, ok := a.items[id]
	if !ok {
		return v, false
	}
	delete(a.items, id)
	for i, o := range a.order {
		if o == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return v, true
}

// Len returns the number of live entries
func (a *Arena[T]) Len() int {
	return len(a.items)
}

// Each calls fn in insertion order until fn returns false
func (a *Arena[T]) Each(fn func(ID, T) bool) {
	for _, id := range a.order {
		if !fn(id, a.items[id]) {
			return
		}
	}
}

// IDs returns a copy of the live IDs in insertion order
func (a *Arena[T]) IDs() []ID {
	out := make([]ID, len(a.order))
	copy(out, a.order)
	return out
}

// Clear removes every entry
func (a *Arena[T]) Clear() {
	a.items = make(map[ID]T)
	a.order = nil
}
