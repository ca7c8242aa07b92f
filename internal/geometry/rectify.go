package geometry

import (
	"fmt"
	"image"

	"github.com/scanforge/scanforge/internal/model"
)

// OutputSize is the pixel size of the rectified page raster.
type OutputSize struct {
	Width  int
	Height int
}

// A4At returns the portrait A4 output size for a given dpi.
func A4At(dpi int) OutputSize {
	// 210mm x 297mm.
	return OutputSize{
		Width:  int(210.0 / 25.4 * float64(dpi)),
		Height: int(297.0 / 25.4 * float64(dpi)),
	}
}

// Rectify warps the quadrilateral region of the frame into an upright
// rectangle of the requested size using the inverse homography and bilinear
// resampling. Corner order of quad may be arbitrary; it is normalized first.
func Rectify(frame *model.Frame, quad model.Quadrilateral, size OutputSize) (*model.RectifiedPage, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", size.Width, size.Height)
	}
	src := NormalizeCorners(quad)
	if err := validateQuad(src); err != nil {
		return nil, err
	}

	dst := model.Quadrilateral{
		{X: 0, Y: 0},
		{X: float64(size.Width - 1), Y: 0},
		{X: float64(size.Width - 1), Y: float64(size.Height - 1)},
		{X: 0, Y: float64(size.Height - 1)},
	}

	// Map output coordinates back into the source frame; sampling through
	// the inverse avoids holes in the output.
	inv, err := Solve(dst, src)
	if err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			sp := inv.Apply(model.Point{X: float64(x), Y: float64(y)})
			r, g, b := sampleBilinear(frame.Pixels, sp.X, sp.Y)
			i := out.PixOffset(x, y)
			out.Pix[i] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = 0xFF
		}
	}

	return &model.RectifiedPage{
		Pixels:     out,
		SourceQuad: src,
		CapturedAt: frame.CapturedAt,
	}, nil
}

// sampleBilinear reads an interpolated RGB sample, clamping at the borders.
func sampleBilinear(img *image.RGBA, fx, fy float64) (uint8, uint8, uint8) {
	b := img.Bounds()
	maxX := float64(b.Dx() - 1)
	maxY := float64(b.Dy() - 1)
	if fx < 0 {
		fx = 0
	} else if fx > maxX {
		fx = maxX
	}
	if fy < 0 {
		fy = 0
	} else if fy > maxY {
		fy = maxY
	}

	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > b.Dx()-1 {
		x1 = x0
	}
	if y1 > b.Dy()-1 {
		y1 = y0
	}
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	c00 := img.PixOffset(x0, y0)
	c10 := img.PixOffset(x1, y0)
	c01 := img.PixOffset(x0, y1)
	c11 := img.PixOffset(x1, y1)

	lerp2 := func(off int) uint8 {
		top := (1-tx)*float64(img.Pix[c00+off]) + tx*float64(img.Pix[c10+off])
		bot := (1-tx)*float64(img.Pix[c01+off]) + tx*float64(img.Pix[c11+off])
		return uint8((1-ty)*top + ty*bot + 0.5)
	}
	return lerp2(0), lerp2(1), lerp2(2)
}
