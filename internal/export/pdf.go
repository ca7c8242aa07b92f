package export

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/sync/errgroup"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
)

// pdfPageQuality is the JPEG quality used for pages embedded in a PDF.
const pdfPageQuality = 90

// exportPDF assembles every page into a single PDF in session order. Pages
// are rendered to JPEG in parallel under a temp directory, then imported in
// one pdfcpu pass so the output has exactly one page per session page.
func (e *Encoder) exportPDF(ctx context.Context, job *model.ExportJob) (*model.ExportResult, error) {
	tempDir, err := os.MkdirTemp("", "scanforge-export-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	pagePaths, failed, err := e.renderPDFPages(ctx, job, tempDir)
	if err != nil {
		return nil, err
	}
	if len(pagePaths) == 0 {
		return nil, fmt.Errorf("%w: no page could be rendered", common.ErrEncode)
	}

	existing, err := existingNames(job.Destination)
	if err != nil {
		return nil, err
	}
	name, err := resolveName(job, job.CounterBase, existing)
	if err != nil {
		return nil, err
	}
	outPath := destPath(job, name)

	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	imp, err := api.Import(fmt.Sprintf("form:A4, pos:full, dpi:%d", pdfDPI(job)), types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("%w: import config: %v", common.ErrEncode, err)
	}
	if err := api.ImportImagesFile(pagePaths, outPath, imp, nil); err != nil {
		return nil, fmt.Errorf("%w: pdf assembly: %v", common.ErrEncode, err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}

	result := &model.ExportResult{
		Files:  []model.ExportedFile{{Path: outPath, Bytes: info.Size()}},
		Failed: failed,
	}
	e.report(len(job.Pages), len(job.Pages))
	return result, nil
}

func pdfDPI(job *model.ExportJob) int {
	if job.DPI > 0 {
		return job.DPI
	}
	return 300
}

// renderPDFPages writes one JPEG per page into dir, named by ordinal so the
// import preserves session order. A page that fails to render is reported
// and skipped; it does not abort the rest of the document.
func (e *Encoder) renderPDFPages(ctx context.Context, job *model.ExportJob, dir string) ([]string, []model.PageFailure, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	type rendered struct {
		err  error
		path string
	}
	results := make([]rendered, len(job.Pages))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, page := range job.Pages {
		g.Go(func() error {
			if err := checkCancelled(gctx); err != nil {
				return err
			}
			path := filepath.Join(dir, fmt.Sprintf("page-%04d.jpg", i))
			err := renderJPEG(page, job.DPI, path)
			mu.Lock()
			results[i] = rendered{path: path, err: err}
			mu.Unlock()
			e.report(i+1, len(job.Pages)+1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var paths []string
	var failed []model.PageFailure
	for i, r := range results {
		if r.err != nil {
			failed = append(failed, model.PageFailure{
				PageID: job.Pages[i].ID,
				Name:   fmt.Sprintf("page %d", i+1),
				Err:    r.err,
			})
			continue
		}
		paths = append(paths, r.path)
	}
	return paths, failed, nil
}

func renderJPEG(page model.Page, dpi int, path string) error {
	img, err := decodePage(page)
	if err != nil {
		return err
	}
	img = resampleForDPI(img, dpi)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: pdfPageQuality}); err != nil {
		return fmt.Errorf("%w: pdf page %d: %v", common.ErrEncode, page.ID, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
