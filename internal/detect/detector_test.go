package detect

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/testutil"
)

func TestDetectSkewedDocument(t *testing.T) {
	want := testutil.SkewedA4Quad()
	frame := testutil.DocumentFrame(1920, 1080, want, 230, 40)

	det, err := New(Params{}).Detect(frame)
	require.NoError(t, err)

	assert.False(t, det.LowConfidence)
	assert.Greater(t, det.Confidence, 0.4)
	assert.Greater(t, det.AreaFrac, 0.15)

	// Each detected corner must land near a distinct true corner. Contour
	// tracing and polygon simplification cost a few pixels.
	const tolerance = 12.0
	matched := map[int]bool{}
	for _, got := range det.Quad {
		best, bestDist := -1, tolerance
		for i, truth := range want {
			if d := got.Dist(truth); d <= bestDist {
				best, bestDist = i, d
			}
		}
		require.GreaterOrEqual(t, best, 0, "corner %v matches no true corner", got)
		assert.False(t, matched[best], "two corners matched true corner %d", best)
		matched[best] = true
	}
}

func TestDetectMissOnBlankFrame(t *testing.T) {
	// A uniform frame has no document region.
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	frame := model.NewFrame(img, testutil.FrameTime, "test")

	_, err := New(Params{}).Detect(frame)
	require.ErrorIs(t, err, common.ErrDetectionMiss)
}

func TestDetectMissOnSmallDocument(t *testing.T) {
	// A sheet covering ~2% of the frame is below the default area floor.
	small := model.Quadrilateral{{X: 100, Y: 100}, {X: 300, Y: 100}, {X: 300, Y: 210}, {X: 100, Y: 210}}
	frame := testutil.DocumentFrame(1280, 720, small, 230, 40)

	_, err := New(Params{}).Detect(frame)
	require.ErrorIs(t, err, common.ErrDetectionMiss)
}

func TestDetectRespectsMinAreaOverride(t *testing.T) {
	quad := model.Quadrilateral{{X: 100, Y: 80}, {X: 700, Y: 90}, {X: 695, Y: 480}, {X: 95, Y: 470}}
	frame := testutil.DocumentFrame(1280, 720, quad, 230, 40)

	// ~25% of the frame: passes the default floor, fails a stricter one.
	_, err := New(Params{}).Detect(frame)
	require.NoError(t, err)

	_, err = New(Params{MinAreaFrac: 0.5}).Detect(frame)
	require.ErrorIs(t, err, common.ErrDetectionMiss)
}

func TestOtsuThresholdSeparatesBimodal(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			v := uint8(40)
			if x >= 50 {
				v = 220
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	threshold := OtsuThreshold(img)
	assert.Greater(t, threshold, uint8(40))
	assert.Less(t, threshold, uint8(220))
}

func TestLumaWeights(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 0, G: 255, B: 0, A: 255})

	gray := Luma(img)
	assert.Equal(t, uint8(255), gray.GrayAt(0, 0).Y)
	// Green dominates the BT.601 weighting.
	assert.InDelta(t, 150, int(gray.GrayAt(1, 0).Y), 2)
}
