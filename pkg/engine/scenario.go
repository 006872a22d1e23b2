package engine

import (
	"github.com/arda-guler/SloshTVC/pkg/entity"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// Builder is the mutation surface a scenario populates a world through
type Builder interface {
	AddPoint(spec PointSpec) (entity.ID, error)
	AddLink(p1, p2 entity.ID, spec LinkSpec) (entity.ID, error)
	AddConstantForce(point entity.ID, f physics.Vector2D, name string) (entity.ID, error)
	AddThruster(spec ThrusterSpec) (entity.ID, error)
	SetConstraintAxis(point entity.ID, axis physics.Vector2D) error
}

// Scenario creates the initial entities of a world. Build runs on creation
// and again after every Reset.
type Scenario interface {
	Name() string
	Build(b Builder) error
}

// lockedBuilder calls the world's internal mutators. It is only handed out
// while the entity lock is held.
type lockedBuilder struct {
	w *World
}

func (b lockedBuilder) AddPoint(spec PointSpec) (entity.ID, error) {
	return b.w.addPoint(spec)
}

func (b lockedBuilder) AddLink(p1, p2 entity.ID, spec LinkSpec) (entity.ID, error) {
	return b.w.addLink(p1, p2, spec)
}

func (b lockedBuilder) AddConstantForce(point entity.ID, f physics.Vector2D, name string) (entity.ID, error) {
	return b.w.addConstantForce(point, f, name)
}

func (b lockedBuilder) AddThruster(spec ThrusterSpec) (entity.ID, error) {
	return b.w.addThruster(spec)
}

func (b lockedBuilder) SetConstraintAxis(point entity.ID, axis physics.Vector2D) error {
	return b.w.setConstraintAxis(point, axis)
}
