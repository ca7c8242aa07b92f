package model

import (
	"image"
	"time"
)

// Frame is a single captured raster from the camera collaborator. It is
// immutable once constructed; pipeline stages never write into Pixels.
type Frame struct {
	CapturedAt time.Time
	Pixels     *image.RGBA
	DeviceID   string
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	return f.Pixels.Bounds().Dx()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	return f.Pixels.Bounds().Dy()
}

// AreaPx returns the frame area in pixels.
func (f *Frame) AreaPx() float64 {
	return float64(f.Width() * f.Height())
}

// NewFrame copies src into an RGBA buffer so the frame owns its pixels.
func NewFrame(src image.Image, capturedAt time.Time, deviceID string) *Frame {
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rgba.Set(x-b.Min.X, y-b.Min.Y, src.At(x, y))
		}
	}
	return &Frame{Pixels: rgba, CapturedAt: capturedAt, DeviceID: deviceID}
}

// RectifiedPage is the upright rectangular raster produced by warping a
// Frame through a Quadrilateral. SourceQuad and CapturedAt are carried for
// traceability.
type RectifiedPage struct {
	CapturedAt time.Time
	Pixels     *image.RGBA
	SourceQuad Quadrilateral
}

// Width returns the page width in pixels.
func (p *RectifiedPage) Width() int {
	return p.Pixels.Bounds().Dx()
}

// Height returns the page height in pixels.
func (p *RectifiedPage) Height() int {
	return p.Pixels.Bounds().Dy()
}
