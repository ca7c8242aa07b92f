// Package gate decides when the live feed is steady enough to auto-capture.
// It compares successive boundary detections over a short sliding window;
// when detection misses it falls back to frame-difference energy as a cheap
// motion proxy. The gate is advisory: it raises a trigger, the caller
// decides whether to act.
package gate

import (
	"errors"
	"image"

	"github.com/scanforge/scanforge/internal/model"
)

// ErrWindowSize rejects nonsensical window configuration.
var ErrWindowSize = errors.New("window size must be at least 2")

// Params tunes the stability decision.
type Params struct {
	// WindowSize is how many consecutive frames must agree.
	WindowSize int
	// MaxCornerDrift is the largest per-corner movement in pixels between
	// any two frames in the window that still counts as stable.
	MaxCornerDrift float64
	// MaxMotionEnergy is the stability cutoff for the frame-difference
	// fallback, in mean absolute luma delta per pixel.
	MaxMotionEnergy float64
}

// DefaultParams returns the default gate parameters: eight frames within
// three pixels of corner drift.
func DefaultParams() Params {
	return Params{
		WindowSize:      8,
		MaxCornerDrift:  3.0,
		MaxMotionEnergy: 4.0,
	}
}

// Verdict is the gate's answer for one frame.
type Verdict struct {
	// MotionScore is the observed motion measure for this frame: corner
	// drift in pixels when a quadrilateral was available, otherwise mean
	// luma delta.
	MotionScore float64
	// Stable reports whether the whole window sits below threshold.
	Stable bool
	// Trigger is raised once per stable run, on the frame that completes
	// the window.
	Trigger bool
}

// Gate holds the sliding window for a single camera session. It is not safe
// for concurrent use; each camera feed owns one gate.
type Gate struct {
	prevLuma  *image.Gray
	quads     []model.Quadrilateral
	scores    []float64
	params    Params
	triggered bool
}

// New creates a gate, substituting defaults for zero-valued parameters.
func New(params Params) (*Gate, error) {
	def := DefaultParams()
	if params.WindowSize == 0 {
		params.WindowSize = def.WindowSize
	}
	if params.WindowSize < 2 {
		return nil, ErrWindowSize
	}
	if params.MaxCornerDrift <= 0 {
		params.MaxCornerDrift = def.MaxCornerDrift
	}
	if params.MaxMotionEnergy <= 0 {
		params.MaxMotionEnergy = def.MaxMotionEnergy
	}
	return &Gate{params: params}, nil
}

// Evaluate folds one frame into the window. quad is the detector's result
// for this frame, or nil on a detection miss.
func (g *Gate) Evaluate(frame *model.Frame, quad *model.Quadrilateral) Verdict {
	var score float64
	if quad != nil {
		if len(g.quads) > 0 {
			score = cornerDrift(g.quads[len(g.quads)-1], *quad)
		}
		g.quads = append(g.quads, *quad)
		if len(g.quads) > g.params.WindowSize {
			g.quads = g.quads[1:]
		}
	} else {
		// No boundary this frame: the quad window restarts, motion falls
		// back to the luma-difference proxy.
		g.quads = g.quads[:0]
		luma := cheapLuma(frame.Pixels)
		if g.prevLuma != nil {
			score = frameDiffEnergy(g.prevLuma, luma)
		}
		g.prevLuma = luma
	}

	g.scores = append(g.scores, score)
	if len(g.scores) > g.params.WindowSize {
		g.scores = g.scores[1:]
	}

	v := Verdict{MotionScore: score}
	v.Stable = g.windowStable(quad != nil)
	if v.Stable && !g.triggered {
		v.Trigger = true
		g.triggered = true
	}
	if !v.Stable {
		g.triggered = false
	}
	return v
}

// Reset clears the window, e.g. after a capture was taken.
func (g *Gate) Reset() {
	g.quads = g.quads[:0]
	g.scores = g.scores[:0]
	g.prevLuma = nil
	g.triggered = false
}

func (g *Gate) windowStable(haveQuad bool) bool {
	if len(g.scores) < g.params.WindowSize {
		return false
	}
	limit := g.params.MaxMotionEnergy
	if haveQuad {
		if len(g.quads) < g.params.WindowSize {
			return false
		}
		limit = g.params.MaxCornerDrift
	}
	for _, s := range g.scores {
		if s > limit {
			return false
		}
	}
	return true
}

// cornerDrift returns the largest per-corner displacement between two
// quadrilaterals.
func cornerDrift(a, b model.Quadrilateral) float64 {
	var maxDist float64
	for i := 0; i < 4; i++ {
		if d := a[i].Dist(b[i]); d > maxDist {
			maxDist = d
		}
	}
	return maxDist
}

// lumaStride subsamples the frame when computing difference energy; full
// resolution buys nothing for a motion proxy.
const lumaStride = 4

func cheapLuma(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	w := b.Dx() / lumaStride
	h := b.Dy() / lumaStride
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x*lumaStride, y*lumaStride)
			v := (int(img.Pix[i])*299 + int(img.Pix[i+1])*587 + int(img.Pix[i+2])*114) / 1000
			out.Pix[out.PixOffset(x, y)] = uint8(v)
		}
	}
	return out
}

func frameDiffEnergy(a, b *image.Gray) float64 {
	if len(a.Pix) != len(b.Pix) || len(a.Pix) == 0 {
		return 255
	}
	var sum int
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / float64(len(a.Pix))
}
