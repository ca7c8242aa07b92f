package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/testutil"
)

func TestA4At(t *testing.T) {
	size := A4At(150)
	assert.Equal(t, 1240, size.Width)
	assert.Equal(t, 1753, size.Height)

	size = A4At(300)
	assert.Equal(t, 2480, size.Width)
	assert.Equal(t, 3507, size.Height)
}

func TestRectifyFillsOutputWithPage(t *testing.T) {
	quad := testutil.SkewedA4Quad()
	frame := testutil.DocumentFrame(1920, 1080, quad, 230, 40)

	page, err := Rectify(frame, quad, OutputSize{Width: 400, Height: 566})
	require.NoError(t, err)
	require.Equal(t, 400, page.Width())
	require.Equal(t, 566, page.Height())
	assert.Equal(t, frame.CapturedAt, page.CapturedAt)

	// Away from the edges the rectified raster must be page, not
	// background. Sample a coarse interior grid.
	for y := 50; y < 516; y += 64 {
		for x := 50; x < 350; x += 64 {
			i := page.Pixels.PixOffset(x, y)
			assert.GreaterOrEqual(t, page.Pixels.Pix[i], uint8(200),
				"pixel (%d,%d) should be page-bright", x, y)
		}
	}
}

func TestRectifyNormalizesCornerOrder(t *testing.T) {
	quad := testutil.SkewedA4Quad()
	frame := testutil.DocumentFrame(1920, 1080, quad, 230, 40)

	// Same corners handed over in scrambled order.
	scrambled := model.Quadrilateral{quad[2], quad[0], quad[3], quad[1]}
	page, err := Rectify(frame, scrambled, OutputSize{Width: 200, Height: 283})
	require.NoError(t, err)
	assert.Equal(t, NormalizeCorners(quad), page.SourceQuad)
}

func TestRectifyRejectsBadInput(t *testing.T) {
	frame := testutil.DocumentFrame(320, 240, testutil.SkewedA4Quad(), 230, 40)

	tests := []struct {
		wantErr error
		name    string
		quad    model.Quadrilateral
		size    OutputSize
	}{
		{
			name:    "tiny quad",
			quad:    model.Quadrilateral{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
			size:    OutputSize{Width: 100, Height: 100},
			wantErr: common.ErrDegenerateQuad,
		},
		{
			name:    "collinear corners",
			quad:    model.Quadrilateral{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}},
			size:    OutputSize{Width: 100, Height: 100},
			wantErr: common.ErrDegenerateQuad,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rectify(frame, tt.quad, tt.size)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := Rectify(frame, testutil.SkewedA4Quad(), OutputSize{Width: 0, Height: 100})
	require.Error(t, err)
}
