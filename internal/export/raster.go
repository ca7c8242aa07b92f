package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"runtime"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/geometry"
	"github.com/scanforge/scanforge/internal/model"
)

// encodedPage is one page rendered to its final on-disk bytes.
type encodedPage struct {
	err    error
	data   []byte
	pageID int64
}

// exportRasters writes one PNG or JPG file per page. Encoding fans out over
// a bounded worker group; writing stays sequential so cancellation lands
// between files and naming stays deterministic in session order.
func (e *Encoder) exportRasters(ctx context.Context, job *model.ExportJob) (*model.ExportResult, error) {
	encoded, err := e.encodeAll(ctx, job)
	if err != nil {
		return nil, err
	}

	existing, err := existingNames(job.Destination)
	if err != nil {
		return nil, err
	}

	result := &model.ExportResult{}
	counter := job.CounterBase
	if counter < 1 {
		counter = 1
	}
	total := len(job.Pages)

	for i, page := range job.Pages {
		if err := checkCancelled(ctx); err != nil {
			return result, err
		}
		name, err := resolveName(job, counter, existing)
		if err != nil {
			return result, err
		}
		counter++
		existing[name] = struct{}{}

		enc := encoded[i]
		if enc.err != nil {
			result.Failed = append(result.Failed, model.PageFailure{
				PageID: page.ID,
				Name:   name,
				Err:    enc.err,
			})
			e.report(i+1, total)
			continue
		}

		path := destPath(job, name)
		if err := os.WriteFile(path, enc.data, 0o644); err != nil {
			result.Failed = append(result.Failed, model.PageFailure{
				PageID: page.ID,
				Name:   name,
				Err:    fmt.Errorf("write %s: %w", name, err),
			})
			e.report(i+1, total)
			continue
		}
		result.Files = append(result.Files, model.ExportedFile{
			Path:   path,
			Bytes:  int64(len(enc.data)),
			PageID: page.ID,
		})
		e.report(i+1, total)
	}
	return result, nil
}

// encodeAll renders every page to its target format in parallel. Per-page
// encode errors are captured in the result slice rather than aborting the
// group; only cancellation stops the whole batch.
func (e *Encoder) encodeAll(ctx context.Context, job *model.ExportJob) ([]encodedPage, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]encodedPage, len(job.Pages))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, page := range job.Pages {
		g.Go(func() error {
			if err := checkCancelled(gctx); err != nil {
				return err
			}
			data, err := encodeOne(page, job)
			mu.Lock()
			out[i] = encodedPage{pageID: page.ID, data: data, err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeOne decodes the stored PNG, resamples it for the requested dpi if
// needed, and re-encodes in the job's format.
func encodeOne(page model.Page, job *model.ExportJob) ([]byte, error) {
	img, err := decodePage(page)
	if err != nil {
		return nil, err
	}
	img = resampleForDPI(img, job.DPI)

	var buf bytes.Buffer
	switch job.Format {
	case model.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("%w: png page %d: %v", common.ErrEncode, page.ID, err)
		}
	case model.FormatJPG:
		quality := job.Quality
		if quality < 1 {
			quality = 1
		} else if quality > 100 {
			quality = 100
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("%w: jpg page %d: %v", common.ErrEncode, page.ID, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q is not a raster format", model.ErrUnknownFormat, job.Format)
	}
	return buf.Bytes(), nil
}

func decodePage(page model.Page) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(page.Image))
	if err != nil {
		return nil, fmt.Errorf("%w: stored page %d is not decodable: %v", common.ErrEncode, page.ID, err)
	}
	return img, nil
}

// resampleForDPI scales the page raster to the A4 pixel size for the
// requested dpi. Zero dpi means "as stored".
func resampleForDPI(img image.Image, dpi int) image.Image {
	if dpi <= 0 {
		return img
	}
	size := geometry.A4At(dpi)
	b := img.Bounds()
	if b.Dx() == size.Width && b.Dy() == size.Height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
