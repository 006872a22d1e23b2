// pkg/physics/spatial.go
package physics

import "math"

// Rect represents an axis-aligned rectangular area
type Rect struct {
	Center Vector2D
	Width  float64
	Height float64
}

// Contains reports whether point lies inside r. The lower edges are
// inclusive and the upper edges exclusive so sibling quadrants never share a point.
func (r Rect) Contains(point Vector2D) bool {
	return point.X >= r.Center.X-r.Width/2 &&
		point.X < r.Center.X+r.Width/2 &&
		point.Y >= r.Center.Y-r.Height/2 &&
		point.Y < r.Center.Y+r.Height/2
}

// Intersects reports whether two rectangles overlap
func (r Rect) Intersects(other Rect) bool {
	return !(other.Center.X-other.Width/2 > r.Center.X+r.Width/2 ||
		other.Center.X+other.Width/2 < r.Center.X-r.Width/2 ||
		other.Center.Y-other.Height/2 > r.Center.Y+r.Height/2 ||
		other.Center.Y+other.Height/2 < r.Center.Y-r.Height/2)
}

// distanceSquared returns the squared distance from p to the closest point of r
func (r Rect) distanceSquared(p Vector2D) float64 {
	dx := math.Max(math.Max(r.Center.X-r.Width/2-p.X, 0), p.X-(r.Center.X+r.Width/2))
	dy := math.Max(math.Max(r.Center.Y-r.Height/2-p.Y, 0), p.Y-(r.Center.Y+r.Height/2))
	return dx*dx + dy*dy
}

// BoundingRect returns the smallest square-ish rect that strictly contains all
// points, grown by margin on every side. An empty input yields a zero Rect.
func BoundingRect(points []Vector2D, margin float64) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	// The +1 keeps points on the max edge inside the half-open Contains
	return Rect{
		Center: Vector2D{X: (minX + maxX) / 2, Y: (minY + maxY) / 2},
		Width:  maxX - minX + 2*margin + 1,
		Height: maxY - minY + 2*margin + 1,
	}
}

// QuadTree is a spatial index over positions carrying a value of type T.
// The world rebuilds one per query batch to answer picking requests.
type QuadTree[T any] struct {
	Boundary  Rect
	Capacity  int
	Points    []Vector2D
	Objects   []T
	Divided   bool
	NorthWest *QuadTree[T]
	NorthEast *QuadTree[T]
	SouthWest *QuadTree[T]
	SouthEast *QuadTree[T]
}

// NewQuadTree creates a new quad tree with the given boundary and capacity
func NewQuadTree[T any](boundary Rect, capacity int) *QuadTree[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &QuadTree[T]{
		Boundary: boundary,
		Capacity: capacity,
		Points:   make([]Vector2D, 0, capacity),
		Objects:  make([]T, 0, capacity),
	}
}

// Insert adds object at point. It returns false when point lies outside the
// tree's boundary.
func (qt *QuadTree[T]) Insert(point Vector2D, object T) bool {
	if !qt.Boundary.Contains(point) {
		return false
	}

	if len(qt.Points) < qt.Capacity && !qt.Divided {
		qt.Points = append(qt.Points, point)
		qt.Objects = append(qt.Objects, object)
		return true
	}

	// Coincident points cannot be separated by subdividing
	if qt.Boundary.Width < 1e-9 || qt.Boundary.Height < 1e-9 {
		qt.Points = append(qt.Points, point)
		qt.Objects = append(qt.Objects, object)
		return true
	}

	if !qt.Divided {
		qt.Subdivide()
	}

	return qt.NorthWest.Insert(point, object) ||
		qt.NorthEast.Insert(point, object) ||
		qt.SouthWest.Insert(point, object) ||
		qt.SouthEast.Insert(point, object)
}

// Subdivide splits the quadtree into four quadrants
func (qt *QuadTree[T]) Subdivide() {
	x := qt.Boundary.Center.X
	y := qt.Boundary.Center.Y
	w := qt.Boundary.Width / 2
	h := qt.Boundary.Height / 2

	nw := Rect{Center: Vector2D{X: x - w/2, Y: y + h/2}, Width: w, Height: h}
	ne := Rect{Center: Vector2D{X: x + w/2, Y: y + h/2}, Width: w, Height: h}
	sw := Rect{Center: Vector2D{X: x - w/2, Y: y - h/2}, Width: w, Height: h}
	se := Rect{Center: Vector2D{X: x + w/2, Y: y - h/2}, Width: w, Height: h}

	qt.NorthWest = NewQuadTree[T](nw, qt.Capacity)
	qt.NorthEast = NewQuadTree[T](ne, qt.Capacity)
	qt.SouthWest = NewQuadTree[T](sw, qt.Capacity)
	qt.SouthEast = NewQuadTree[T](se, qt.Capacity)
	qt.Divided = true
}

// Query returns all objects whose position lies inside area
func (qt *QuadTree[T]) Query(area Rect) []T {
	var found []T
	qt.query(area, &found)
	return found
}

func (qt *QuadTree[T]) query(area Rect, found *[]T) {
	if !qt.Boundary.Intersects(area) {
		return
	}

	for i, point := range qt.Points {
		if area.Contains(point) {
			*found = append(*found, qt.Objects[i])
		}
	}

	if !qt.Divided {
		return
	}

	qt.NorthWest.query(area, found)
	qt.NorthEast.query(area, found)
	qt.SouthWest.query(area, found)
	qt.SouthEast.query(area, found)
}

// Nearest returns the object closest to pos and its position. ok is false
// for an empty tree.
func (qt *QuadTree[T]) Nearest(pos Vector2D) (object T, at Vector2D, ok bool) {
	best := math.Inf(1)
	qt.nearest(pos, &best, &object, &at, &ok)
	return object, at, ok
}

func (qt *QuadTree[T]) nearest(pos Vector2D, best *float64, object *T, at *Vector2D, ok *bool) {
	if qt.Boundary.distanceSquared(pos) > *best {
		return
	}

	for i, point := range qt.Points {
		if d := point.Sub(pos).LengthSquared(); d < *best {
			*best = d
			*object = qt.Objects[i]
			*at = point
			*ok = true
		}
	}

	if !qt.Divided {
		return
	}

	qt.NorthWest.nearest(pos, best, object, at, ok)
	qt.NorthEast.nearest(pos, best, object, at, ok)
	qt.SouthWest.nearest(pos, best, object, at, ok)
	qt.SouthEast.nearest(pos, best, object, at, ok)
}

// Len returns the number of stored objects
func (qt *QuadTree[T]) Len() int {
	n := len(qt.Points)
	if qt.Divided {
		n += qt.NorthWest.Len() + qt.NorthEast.Len() + qt.SouthWest.Len() + qt.SouthEast.Len()
	}
	return n
}

// Clear removes all objects while keeping the boundary
func (qt *QuadTree[T]) Clear() {
	qt.Points = qt.Points[:0]
	qt.Objects = qt.Objects[:0]
	qt.Divided = false
	qt.NorthWest = nil
	qt.NorthEast = nil
	qt.SouthWest = nil
	qt.SouthEast = nil
}
