// Package model defines the core domain models used throughout the pipeline.
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Quadrilateral validation errors.
var (
	ErrSelfIntersecting = errors.New("quadrilateral is self-intersecting")
	ErrZeroArea         = errors.New("quadrilateral has zero or negative area")
	ErrBadCornerSpec    = errors.New("corner specification is malformed")
)

// Point is a 2-D point in frame coordinates.
type Point struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance to another point.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Quadrilateral is a four-corner polygon in frame coordinates, ordered
// top-left, top-right, bottom-right, bottom-left.
type Quadrilateral [4]Point

// Area returns the absolute area via the shoelace formula.
func (q Quadrilateral) Area() float64 {
	return math.Abs(q.SignedArea())
}

// SignedArea returns the signed shoelace area. Positive means the corners
// run clockwise in image coordinates (y grows downward).
func (q Quadrilateral) SignedArea() float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		sum += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return sum / 2
}

// Centroid returns the arithmetic mean of the four corners.
func (q Quadrilateral) Centroid() Point {
	var c Point
	for _, p := range q {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= 4
	c.Y /= 4
	return c
}

// InteriorAngles returns the four interior angles in degrees, one per corner.
func (q Quadrilateral) InteriorAngles() [4]float64 {
	var angles [4]float64
	for i := 0; i < 4; i++ {
		prev := q[(i+3)%4]
		next := q[(i+1)%4]
		v1x, v1y := prev.X-q[i].X, prev.Y-q[i].Y
		v2x, v2y := next.X-q[i].X, next.Y-q[i].Y
		dot := v1x*v2x + v1y*v2y
		n1 := math.Hypot(v1x, v1y)
		n2 := math.Hypot(v2x, v2y)
		if n1 == 0 || n2 == 0 {
			angles[i] = 0
			continue
		}
		cos := dot / (n1 * n2)
		cos = math.Max(-1, math.Min(1, cos))
		angles[i] = math.Acos(cos) * 180 / math.Pi
	}
	return angles
}

// Validate checks that the quadrilateral has positive area and no crossing
// edges.
func (q Quadrilateral) Validate() error {
	if q.Area() < 1e-9 {
		return ErrZeroArea
	}
	// Opposite edges must not intersect.
	if segmentsCross(q[0], q[1], q[2], q[3]) || segmentsCross(q[1], q[2], q[3], q[0]) {
		return ErrSelfIntersecting
	}
	return nil
}

func segmentsCross(a, b, c, d Point) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}

func orient(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// ParseQuadrilateral parses the CLI corner syntax "x,y:x,y:x,y:x,y".
func ParseQuadrilateral(s string) (Quadrilateral, error) {
	var q Quadrilateral
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return q, fmt.Errorf("%w: want 4 corners, got %d", ErrBadCornerSpec, len(parts))
	}
	for i, part := range parts {
		xy := strings.Split(part, ",")
		if len(xy) != 2 {
			return q, fmt.Errorf("%w: corner %d %q", ErrBadCornerSpec, i, part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return q, fmt.Errorf("%w: corner %d x: %v", ErrBadCornerSpec, i, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return q, fmt.Errorf("%w: corner %d y: %v", ErrBadCornerSpec, i, err)
		}
		q[i] = Point{X: x, Y: y}
	}
	return q, nil
}

// String renders the quadrilateral in the same syntax ParseQuadrilateral
// accepts.
func (q Quadrilateral) String() string {
	parts := make([]string, 4)
	for i, p := range q {
		parts[i] = fmt.Sprintf("%.1f,%.1f", p.X, p.Y)
	}
	return strings.Join(parts, ":")
}
