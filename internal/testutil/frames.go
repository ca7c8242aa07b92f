// Package testutil provides synthetic frames and database helpers for
// pipeline tests, so no camera or fixture files are needed.
package testutil

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/service"
	"github.com/scanforge/scanforge/internal/storage"
)

// FrameTime is the fixed capture timestamp used by generated frames.
var FrameTime = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

// DocumentFrame renders a filled quadrilateral "page" over a uniform dark
// background. pageGray and backgroundGray pick the two intensities.
func DocumentFrame(w, h int, quad model.Quadrilateral, pageGray, backgroundGray uint8) *model.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{backgroundGray, backgroundGray, backgroundGray, 255}
	fg := color.RGBA{pageGray, pageGray, pageGray, 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := model.Point{X: float64(x), Y: float64(y)}
			if insideQuad(quad, p) {
				img.SetRGBA(x, y, fg)
			} else {
				img.SetRGBA(x, y, bg)
			}
		}
	}
	return &model.Frame{Pixels: img, CapturedAt: FrameTime, DeviceID: "testcam"}
}

// SkewedA4Quad is a slightly rotated page covering roughly 70% of a
// 1920x1080 frame, matching the detector's acceptance scenario.
func SkewedA4Quad() model.Quadrilateral {
	return model.Quadrilateral{
		{X: 330, Y: 90},
		{X: 1610, Y: 140},
		{X: 1570, Y: 990},
		{X: 290, Y: 940},
	}
}

// TextPage renders dark "strokes" on a light page raster for enhancement
// tests.
func TextPage(w, h int) *model.RectifiedPage {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(235)
			// Horizontal line pattern standing in for rows of text.
			if y%12 >= 4 && y%12 < 6 && x > w/10 && x < w*9/10 {
				v = 25
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return &model.RectifiedPage{Pixels: img, CapturedAt: FrameTime}
}

// SolidPage returns a uniform color page raster.
func SolidPage(w, h int, c color.RGBA) *model.RectifiedPage {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return &model.RectifiedPage{Pixels: img, CapturedAt: FrameTime}
}

// insideQuad tests point containment for a convex quad in TL,TR,BR,BL
// order using edge cross products.
func insideQuad(q model.Quadrilateral, p model.Point) bool {
	sign := 0
	for i := 0; i < 4; i++ {
		a, b := q[i], q[(i+1)%4]
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if cross == 0 {
			continue
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if sign != s {
			return false
		}
	}
	return true
}

// SetupTestDB creates a migrated in-memory storage with automatic cleanup.
func SetupTestDB(t *testing.T) service.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return store
}
