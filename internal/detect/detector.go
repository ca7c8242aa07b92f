package detect

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"sort"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
)

// Params tunes the boundary search. The defaults were validated against the
// synthetic frame set in internal/testutil; they are deliberately exposed
// rather than baked in because real-world tolerances depend on camera and
// lighting.
type Params struct {
	// MinAreaFrac is the minimum fraction of the frame area a candidate
	// must cover.
	MinAreaFrac float64
	// AngleTolerance is the maximum deviation of an interior angle from 90
	// degrees, in degrees.
	AngleTolerance float64
	// ApproxEpsilonFrac scales the polygon simplification tolerance by the
	// contour perimeter.
	ApproxEpsilonFrac float64
	// AmbiguityRatio flags low confidence when a runner-up's area exceeds
	// this fraction of the winner's.
	AmbiguityRatio float64
}

// DefaultParams returns the default detection parameters.
func DefaultParams() Params {
	return Params{
		MinAreaFrac:       0.15,
		AngleTolerance:    25.0,
		ApproxEpsilonFrac: 0.02,
		AmbiguityRatio:    0.9,
	}
}

// Detection is a successful boundary search result.
type Detection struct {
	Quad          model.Quadrilateral
	Confidence    float64
	AreaFrac      float64
	LowConfidence bool
}

// Detector runs the boundary search. It holds only parameters and is safe
// for concurrent use.
type Detector struct {
	params Params
}

// New creates a detector with the given parameters, falling back to
// defaults for zero values.
func New(params Params) *Detector {
	def := DefaultParams()
	if params.MinAreaFrac <= 0 {
		params.MinAreaFrac = def.MinAreaFrac
	}
	if params.AngleTolerance <= 0 {
		params.AngleTolerance = def.AngleTolerance
	}
	if params.ApproxEpsilonFrac <= 0 {
		params.ApproxEpsilonFrac = def.ApproxEpsilonFrac
	}
	if params.AmbiguityRatio <= 0 {
		params.AmbiguityRatio = def.AmbiguityRatio
	}
	return &Detector{params: params}
}

// Detect locates the document boundary in the frame. A miss is the normal
// "needs manual crop" outcome and comes back as common.ErrDetectionMiss,
// never a panic or a fabricated quadrilateral.
func (d *Detector) Detect(frame *model.Frame) (*Detection, error) {
	gray := GaussianBlur3(Luma(frame.Pixels))
	threshold := OtsuThreshold(gray)
	mask := Binarize(gray, threshold)
	grad := SobelMagnitude(gray)

	w, h := frame.Width(), frame.Height()
	frameArea := frame.AreaPx()
	minPixels := int(frameArea * d.params.MinAreaFrac / 2)

	components := findComponents(mask, w, h, minPixels)
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: no candidate regions above %.0f%% of frame", common.ErrDetectionMiss, d.params.MinAreaFrac*100)
	}

	type candidate struct {
		quad model.Quadrilateral
		area float64
	}
	var candidates []candidate
	for _, comp := range components {
		hull := convexHull(comp.boundary)
		poly := approxPolygon(hull, d.params.ApproxEpsilonFrac*perimeter(hull))
		if len(poly) != 4 {
			continue
		}
		var quad model.Quadrilateral
		copy(quad[:], poly)
		if quad.Validate() != nil {
			continue
		}
		area := quad.Area()
		if area/frameArea < d.params.MinAreaFrac {
			continue
		}
		// A candidate spanning essentially the whole frame is the
		// background, not a document.
		if area/frameArea > maxAreaFrac {
			continue
		}
		if !d.anglesAcceptable(quad) {
			continue
		}
		candidates = append(candidates, candidate{quad: quad, area: area})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no quadrilateral passed area and angle checks", common.ErrDetectionMiss)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].area > candidates[j].area
	})
	winner := candidates[0]

	det := &Detection{
		Quad:     winner.quad,
		AreaFrac: winner.area / frameArea,
	}
	// Two near-equal candidates (a sheet on top of another sheet) is
	// ambiguous: keep the largest but say so.
	if len(candidates) > 1 && candidates[1].area >= winner.area*d.params.AmbiguityRatio {
		det.LowConfidence = true
	}
	det.Confidence = d.score(winner.quad, grad, det.LowConfidence)

	slog.Debug("boundary detected",
		"area_frac", fmt.Sprintf("%.3f", det.AreaFrac),
		"confidence", fmt.Sprintf("%.2f", det.Confidence),
		"low_confidence", det.LowConfidence,
		"candidates", len(candidates))
	return det, nil
}

// anglesAcceptable rejects degenerate quadrilaterals whose interior angles
// stray too far from 90 degrees.
func (d *Detector) anglesAcceptable(quad model.Quadrilateral) bool {
	for _, a := range quad.InteriorAngles() {
		if math.Abs(a-90) > d.params.AngleTolerance {
			return false
		}
	}
	return true
}

// maxAreaFrac caps a candidate's share of the frame; anything larger is
// the scene itself.
const maxAreaFrac = 0.97

// edgeSamples is the number of gradient samples taken along each candidate
// edge when scoring.
const edgeSamples = 32

// score combines angle regularity with gradient support along the edges.
func (d *Detector) score(quad model.Quadrilateral, grad *image.Gray, ambiguous bool) float64 {
	var angleDev float64
	for _, a := range quad.InteriorAngles() {
		angleDev += math.Abs(a - 90)
	}
	angleScore := 1 - angleDev/(4*d.params.AngleTolerance)
	if angleScore < 0 {
		angleScore = 0
	}

	var edgeSum float64
	for i := 0; i < 4; i++ {
		a, b := quad[i], quad[(i+1)%4]
		for s := 0; s < edgeSamples; s++ {
			t := float64(s) / float64(edgeSamples-1)
			x := int(a.X + t*(b.X-a.X))
			y := int(a.Y + t*(b.Y-a.Y))
			edgeSum += float64(grayAt(grad, x, y))
		}
	}
	edgeScore := edgeSum / (4 * edgeSamples * 255)

	conf := 0.5*angleScore + 0.5*edgeScore
	if ambiguous {
		conf *= 0.5
	}
	return conf
}

func grayAt(img *image.Gray, x, y int) uint8 {
	b := img.Bounds()
	if x < 0 {
		x = 0
	} else if x >= b.Dx() {
		x = b.Dx() - 1
	}
	if y < 0 {
		y = 0
	} else if y >= b.Dy() {
		y = b.Dy() - 1
	}
	return img.Pix[img.PixOffset(x, y)]
}
