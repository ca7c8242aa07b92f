package detect

import (
	"math"
	"sort"

	"github.com/scanforge/scanforge/internal/model"
)

// component is one connected foreground region with its traced outer
// boundary.
type component struct {
	boundary []model.Point
	pixels   int
}

// findComponents labels 4-connected foreground regions in scan order and
// traces the outer boundary of each one large enough to matter. Scan order
// keeps the result deterministic.
func findComponents(mask []bool, w, h int, minPixels int) []component {
	labels := make([]int32, len(mask))
	var out []component
	next := int32(1)
	queue := make([]int, 0, 1024)

	for start := 0; start < len(mask); start++ {
		if !mask[start] || labels[start] != 0 {
			continue
		}
		label := next
		next++
		queue = queue[:0]
		queue = append(queue, start)
		labels[start] = label
		pixels := 0
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			pixels++
			x, y := idx%w, idx/w
			for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				nidx := ny*w + nx
				if mask[nidx] && labels[nidx] == 0 {
					labels[nidx] = label
					queue = append(queue, nidx)
				}
			}
		}
		if pixels < minPixels {
			continue
		}
		boundary := traceBoundary(labels, w, h, label, start)
		if len(boundary) >= 4 {
			out = append(out, component{pixels: pixels, boundary: boundary})
		}
	}
	return out
}

// mooreOffsets is the clockwise 8-neighborhood starting from the west.
var mooreOffsets = [8][2]int{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// traceBoundary follows the outer contour of a labeled region clockwise
// (Moore neighbor tracing) starting at its first pixel in scan order.
func traceBoundary(labels []int32, w, h int, label int32, startIdx int) []model.Point {
	isSet := func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return false
		}
		return labels[y*w+x] == label
	}

	sx, sy := startIdx%w, startIdx/w
	boundary := []model.Point{{X: float64(sx), Y: float64(sy)}}
	cx, cy := sx, sy
	dir := 0 // entered from the west

	for step := 0; step < 4*w*h; step++ {
		found := false
		for i := 0; i < 8; i++ {
			d := (dir + i) % 8
			nx, ny := cx+mooreOffsets[d][0], cy+mooreOffsets[d][1]
			if isSet(nx, ny) {
				cx, cy = nx, ny
				// Back up two steps so the search resumes from the
				// neighbor we arrived from.
				dir = (d + 6) % 8
				found = true
				break
			}
		}
		if !found {
			break // isolated pixel
		}
		if cx == sx && cy == sy {
			break
		}
		boundary = append(boundary, model.Point{X: float64(cx), Y: float64(cy)})
	}
	return boundary
}

// convexHull returns the hull of the points in clockwise order for image
// coordinates (Andrew's monotone chain).
func convexHull(pts []model.Point) []model.Point {
	if len(pts) < 3 {
		return pts
	}
	sorted := make([]model.Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b model.Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []model.Point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []model.Point
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	// Monotone chain yields counterclockwise in mathematical coordinates,
	// which is clockwise on screen; reverse to get screen-clockwise from
	// the top-left.
	for i, j := 0, len(hull)-1; i < j; i, j = i+1, j-1 {
		hull[i], hull[j] = hull[j], hull[i]
	}
	return hull
}

// perimeter sums the closed polygon's edge lengths.
func perimeter(pts []model.Point) float64 {
	var sum float64
	for i := range pts {
		sum += pts[i].Dist(pts[(i+1)%len(pts)])
	}
	return sum
}

// approxPolygon simplifies a closed polygon with Douglas-Peucker. The
// tolerance is absolute (pixels); callers derive it from the perimeter.
func approxPolygon(pts []model.Point, epsilon float64) []model.Point {
	if len(pts) <= 4 {
		return pts
	}
	// Split the ring at the two mutually farthest of (first, farthest-from-
	// first) so both halves are open chains.
	far := 0
	best := 0.0
	for i, p := range pts {
		if d := pts[0].Dist(p); d > best {
			best = d
			far = i
		}
	}
	first := simplifyChain(pts[:far+1], epsilon)
	back := make([]model.Point, 0, len(pts)-far+1)
	back = append(back, pts[far:]...)
	back = append(back, pts[0])
	second := simplifyChain(back, epsilon)
	out := append([]model.Point{}, first[:len(first)-1]...)
	out = append(out, second[:len(second)-1]...)
	return out
}

func simplifyChain(pts []model.Point, epsilon float64) []model.Point {
	if len(pts) < 3 {
		return pts
	}
	a, b := pts[0], pts[len(pts)-1]
	idx, maxDist := 0, 0.0
	for i := 1; i < len(pts)-1; i++ {
		if d := pointLineDist(pts[i], a, b); d > maxDist {
			maxDist = d
			idx = i
		}
	}
	if maxDist <= epsilon {
		return []model.Point{a, b}
	}
	left := simplifyChain(pts[:idx+1], epsilon)
	right := simplifyChain(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

func pointLineDist(p, a, b model.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return p.Dist(a)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / norm
}
