// Package geometry implements the perspective rectifier: corner
// normalization, the four-point homography solve, and inverse-mapped
// bilinear resampling. Everything here is a pure function over explicit
// inputs.
package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
)

// Homography is a 3x3 projective transform in row-major order.
type Homography [9]float64

// Apply maps a point through the transform.
func (h Homography) Apply(p model.Point) model.Point {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		w = 1e-12
	}
	return model.Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// minQuadArea is the area in square pixels below which a quadrilateral is
// considered degenerate for rectification purposes.
const minQuadArea = 4.0

// NormalizeCorners reorders arbitrary corners into the canonical top-left,
// top-right, bottom-right, bottom-left order. Corners are sorted by angle
// around the centroid, then rotated so the corner nearest the frame's
// top-left quadrant comes first. Manual dragging can hand us any order;
// normalizing here keeps the warp from mirroring or rotating the page.
func NormalizeCorners(q model.Quadrilateral) model.Quadrilateral {
	c := q.Centroid()
	pts := q[:]
	sorted := make([]model.Point, 4)
	copy(sorted, pts)
	// Clockwise in image coordinates (y grows downward) is ascending atan2.
	sort.Slice(sorted, func(i, j int) bool {
		ai := math.Atan2(sorted[i].Y-c.Y, sorted[i].X-c.X)
		aj := math.Atan2(sorted[j].Y-c.Y, sorted[j].X-c.X)
		return ai < aj
	})
	// Rotate so the corner with the smallest x+y (closest to top-left) leads.
	lead := 0
	best := sorted[0].X + sorted[0].Y
	for i := 1; i < 4; i++ {
		if s := sorted[i].X + sorted[i].Y; s < best {
			best = s
			lead = i
		}
	}
	var out model.Quadrilateral
	for i := 0; i < 4; i++ {
		out[i] = sorted[(lead+i)%4]
	}
	return out
}

// Solve computes the homography mapping each src corner to the matching dst
// corner. The 8 unknowns come from the standard DLT system with h22 fixed
// at 1, solved by Gaussian elimination with partial pivoting.
func Solve(src, dst model.Quadrilateral) (Homography, error) {
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y
		a[2*i] = [9]float64{sx, sy, 1, 0, 0, 0, -dx * sx, -dx * sy, dx}
		a[2*i+1] = [9]float64{0, 0, 0, sx, sy, 1, -dy * sx, -dy * sy, dy}
	}

	for col := 0; col < 8; col++ {
		pivot := col
		for row := col + 1; row < 8; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return Homography{}, fmt.Errorf("%w: homography system is singular", common.ErrDegenerateQuad)
		}
		a[col], a[pivot] = a[pivot], a[col]
		for row := col + 1; row < 8; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < 9; k++ {
				a[row][k] -= factor * a[col][k]
			}
		}
	}

	var x [8]float64
	for row := 7; row >= 0; row-- {
		sum := a[row][8]
		for k := row + 1; k < 8; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}

	return Homography{x[0], x[1], x[2], x[3], x[4], x[5], x[6], x[7], 1}, nil
}

// validateQuad rejects geometry the solver cannot handle.
func validateQuad(q model.Quadrilateral) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDegenerateQuad, err)
	}
	if q.Area() < minQuadArea {
		return fmt.Errorf("%w: area %.2fpx below %.0fpx", common.ErrDegenerateQuad, q.Area(), minQuadArea)
	}
	// Collinear triples survive the area check when the fourth corner is far
	// away, so check each triple explicitly.
	for i := 0; i < 4; i++ {
		a, b, c := q[i], q[(i+1)%4], q[(i+2)%4]
		cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
		if math.Abs(cross) < 1e-6 {
			return fmt.Errorf("%w: corners %d,%d,%d are collinear", common.ErrDegenerateQuad, i, (i+1)%4, (i+2)%4)
		}
	}
	return nil
}
