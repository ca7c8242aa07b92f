// Package detect locates the quadrilateral most likely to be a document's
// boundary in a frame. The routines are stateless and deterministic: the
// same frame and parameters always produce the same result.
package detect

import (
	"image"
)

// Luma converts an RGBA frame to a single intensity channel using the
// BT.601 weights.
func Luma(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := img.PixOffset(x, y)
			r := float64(img.Pix[i])
			g := float64(img.Pix[i+1])
			bl := float64(img.Pix[i+2])
			out.Pix[out.PixOffset(x, y)] = uint8(0.299*r + 0.587*g + 0.114*bl + 0.5)
		}
	}
	return out
}

// GaussianBlur3 applies a separable 3x3 Gaussian ([1 2 1]/4 per axis) to
// suppress sensor noise before thresholding.
func GaussianBlur3(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := image.NewGray(image.Rect(0, 0, w, h))
	out := image.NewGray(image.Rect(0, 0, w, h))

	clampX := func(x int) int {
		if x < 0 {
			return 0
		}
		if x >= w {
			return w - 1
		}
		return x
	}
	clampY := func(y int) int {
		if y < 0 {
			return 0
		}
		if y >= h {
			return h - 1
		}
		return y
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := int(src.Pix[src.PixOffset(clampX(x-1), y)]) +
				2*int(src.Pix[src.PixOffset(x, y)]) +
				int(src.Pix[src.PixOffset(clampX(x+1), y)])
			tmp.Pix[tmp.PixOffset(x, y)] = uint8((sum + 2) / 4)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := int(tmp.Pix[tmp.PixOffset(x, clampY(y-1))]) +
				2*int(tmp.Pix[tmp.PixOffset(x, y)]) +
				int(tmp.Pix[tmp.PixOffset(x, clampY(y+1))])
			out.Pix[out.PixOffset(x, y)] = uint8((sum + 2) / 4)
		}
	}
	return out
}

// SobelMagnitude computes the gradient magnitude image, clamped to 255.
// The detector uses it to score how well a candidate's edges align with
// real image edges.
func SobelMagnitude(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	at := func(x, y int) int {
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return int(src.Pix[src.PixOffset(x, y)])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			mag := abs(gx) + abs(gy)
			if mag > 255 {
				mag = 255
			}
			out.Pix[out.PixOffset(x, y)] = uint8(mag)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// OtsuThreshold picks the threshold maximizing between-class variance over
// the intensity histogram. Deterministic for a fixed image.
func OtsuThreshold(src *image.Gray) uint8 {
	var hist [256]int
	for _, v := range src.Pix {
		hist[v]++
	}
	total := len(src.Pix)

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumB, wB float64
	var maxVar float64
	var threshold uint8
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = uint8(i)
		}
	}
	return threshold
}

// Binarize produces a foreground mask of pixels strictly above the
// threshold.
func Binarize(src *image.Gray, threshold uint8) []bool {
	mask := make([]bool, len(src.Pix))
	for i, v := range src.Pix {
		mask[i] = v > threshold
	}
	return mask
}
