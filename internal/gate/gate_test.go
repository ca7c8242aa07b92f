package gate

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/testutil"
)

func steadyQuad(offset float64) model.Quadrilateral {
	base := testutil.SkewedA4Quad()
	for i := range base {
		base[i].X += offset
		base[i].Y += offset
	}
	return base
}

func TestNewValidatesWindow(t *testing.T) {
	_, err := New(Params{WindowSize: 1})
	require.ErrorIs(t, err, ErrWindowSize)

	g, err := New(Params{})
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestGateTriggersAfterStableWindow(t *testing.T) {
	g, err := New(Params{WindowSize: 4, MaxCornerDrift: 3.0})
	require.NoError(t, err)

	frame := testutil.DocumentFrame(320, 240, testutil.SkewedA4Quad(), 230, 40)
	quad := steadyQuad(0)

	var triggers int
	for i := 0; i < 6; i++ {
		v := g.Evaluate(frame, &quad)
		if v.Trigger {
			triggers++
			// The trigger lands exactly on the frame completing the window.
			assert.Equal(t, 3, i)
		}
		if i < 3 {
			assert.False(t, v.Stable, "window not full yet at frame %d", i)
		} else {
			assert.True(t, v.Stable, "window full and still at frame %d", i)
		}
	}
	assert.Equal(t, 1, triggers, "one trigger per stable run")
}

func TestGateToleratesJitterBelowThreshold(t *testing.T) {
	g, err := New(Params{WindowSize: 3, MaxCornerDrift: 3.0})
	require.NoError(t, err)

	frame := testutil.DocumentFrame(320, 240, testutil.SkewedA4Quad(), 230, 40)

	// Sub-threshold wobble: 0 -> 1.4 -> 0.4 px drift.
	offsets := []float64{0, 1.0, 0.7}
	var lastVerdict Verdict
	for _, off := range offsets {
		q := steadyQuad(off)
		lastVerdict = g.Evaluate(frame, &q)
	}
	assert.True(t, lastVerdict.Stable)
	assert.True(t, lastVerdict.Trigger)
}

func TestGateRestartsOnLargeDrift(t *testing.T) {
	g, err := New(Params{WindowSize: 3, MaxCornerDrift: 3.0})
	require.NoError(t, err)

	frame := testutil.DocumentFrame(320, 240, testutil.SkewedA4Quad(), 230, 40)

	q := steadyQuad(0)
	g.Evaluate(frame, &q)
	g.Evaluate(frame, &q)

	// A big jump: the window cannot be stable on this frame.
	moved := steadyQuad(40)
	v := g.Evaluate(frame, &moved)
	assert.False(t, v.Stable)
	assert.Greater(t, v.MotionScore, 3.0)

	// Three steady frames later the gate triggers again.
	var trigger bool
	for i := 0; i < 3; i++ {
		v = g.Evaluate(frame, &moved)
		trigger = trigger || v.Trigger
	}
	assert.True(t, trigger)
}

func TestGateDetectionMissFallsBackToFrameDiff(t *testing.T) {
	g, err := New(Params{WindowSize: 3, MaxMotionEnergy: 4.0})
	require.NoError(t, err)

	still := testutil.DocumentFrame(320, 240, testutil.SkewedA4Quad(), 230, 40)

	// No quad on any frame: identical frames have zero difference energy.
	var v Verdict
	for i := 0; i < 3; i++ {
		v = g.Evaluate(still, nil)
	}
	assert.True(t, v.Stable)
	assert.Zero(t, v.MotionScore)

	// An inverted frame spikes the energy and breaks the run.
	inverted := invert(still)
	v = g.Evaluate(inverted, nil)
	assert.False(t, v.Stable)
	assert.Greater(t, v.MotionScore, 4.0)
}

func TestGateMissResetsQuadWindow(t *testing.T) {
	g, err := New(Params{WindowSize: 3, MaxCornerDrift: 3.0})
	require.NoError(t, err)

	frame := testutil.DocumentFrame(320, 240, testutil.SkewedA4Quad(), 230, 40)
	q := steadyQuad(0)

	g.Evaluate(frame, &q)
	g.Evaluate(frame, &q)
	g.Evaluate(frame, nil) // miss wipes the quad history
	v := g.Evaluate(frame, &q)
	assert.False(t, v.Stable, "quad window must refill after a miss")
}

func TestGateReset(t *testing.T) {
	g, err := New(Params{WindowSize: 2, MaxCornerDrift: 3.0})
	require.NoError(t, err)

	frame := testutil.DocumentFrame(320, 240, testutil.SkewedA4Quad(), 230, 40)
	q := steadyQuad(0)

	g.Evaluate(frame, &q)
	v := g.Evaluate(frame, &q)
	require.True(t, v.Trigger)

	g.Reset()

	// After a reset the window refills from scratch and can trigger again.
	v = g.Evaluate(frame, &q)
	assert.False(t, v.Stable)
	v = g.Evaluate(frame, &q)
	assert.True(t, v.Trigger)
}

func invert(f *model.Frame) *model.Frame {
	src := f.Pixels
	out := image.NewRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		out.Pix[i] = 255 - src.Pix[i]
		out.Pix[i+1] = 255 - src.Pix[i+1]
		out.Pix[i+2] = 255 - src.Pix[i+2]
		out.Pix[i+3] = 255
	}
	return model.NewFrame(out, testutil.FrameTime, "test")
}
