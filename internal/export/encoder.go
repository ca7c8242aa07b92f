// Package export serializes a session snapshot to PDF, PNG or JPG files.
// The encoder works on an immutable job: a snapshot of pages taken at
// submission time plus destination, format, naming and quality settings.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/naming"
	"github.com/scanforge/scanforge/internal/service"
)

// spaceSafetyMargin is kept free beyond the estimated output size.
const spaceSafetyMargin = 32 << 20

// Encoder writes export jobs to disk.
type Encoder struct {
	space service.SpaceChecker
	// Progress, when set, is called after each page file (or embedded PDF
	// page) is finished.
	Progress func(done, total int)
	// Workers bounds the parallel page encodes. Zero means GOMAXPROCS.
	Workers int
}

// NewEncoder creates an encoder using the given housekeeping collaborator
// for free-space checks.
func NewEncoder(space service.SpaceChecker) *Encoder {
	return &Encoder{space: space}
}

// Export runs the job and reports per-file outcomes. Files already flushed
// when an error occurs are left in place; the result's Failed list carries
// page id and attempted name so the caller can retry just that subset.
func (e *Encoder) Export(ctx context.Context, job *model.ExportJob) (*model.ExportResult, error) {
	if len(job.Pages) == 0 {
		return nil, common.ErrSessionEmpty
	}
	if err := e.preflight(job); err != nil {
		return nil, err
	}

	started := time.Now()
	var result *model.ExportResult
	var err error
	switch job.Format {
	case model.FormatPDF:
		result, err = e.exportPDF(ctx, job)
	case model.FormatPNG, model.FormatJPG:
		result, err = e.exportRasters(ctx, job)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownFormat, job.Format)
	}
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(started)
	slog.Info("export finished",
		"job_id", job.JobID,
		"format", job.Format,
		"files", len(result.Files),
		"failed", len(result.Failed),
		"bytes", result.TotalBytes(),
		"duration", result.Duration)
	return result, nil
}

// preflight verifies the destination is a writable directory and that
// enough space is free before anything is written. The space figure comes
// from the housekeeping collaborator; the encoder only compares numbers.
func (e *Encoder) preflight(job *model.ExportJob) error {
	info, err := os.Stat(job.Destination)
	if err != nil {
		return common.NewUserError("The destination folder does not exist. Create it or choose another folder.",
			fmt.Errorf("stat destination: %w", err))
	}
	if !info.IsDir() {
		return common.NewUserError("The destination is not a folder. Choose a directory to export into.",
			fmt.Errorf("destination %q is not a directory", job.Destination))
	}
	probe, err := os.CreateTemp(job.Destination, ".scanforge-probe-*")
	if err != nil {
		return common.NewUserError("The destination folder is not writable. Check permissions or choose another folder.",
			fmt.Errorf("write probe: %w", err))
	}
	probeName := probe.Name()
	_ = probe.Close()
	_ = os.Remove(probeName)

	if e.space == nil {
		return nil
	}
	free, err := e.space.FreeSpace(job.Destination)
	if err != nil {
		return fmt.Errorf("free space check: %w", err)
	}
	var needed uint64
	for _, p := range job.Pages {
		needed += uint64(len(p.Image))
	}
	needed += spaceSafetyMargin
	if free < needed {
		return fmt.Errorf("%w: need %d bytes, %d free at %s",
			common.ErrInsufficientSpace, needed, free, job.Destination)
	}
	return nil
}

// existingNames lists the current directory entries as a set, seeding
// collision-free naming.
func existingNames(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read destination: %w", err)
	}
	names := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		names[entry.Name()] = struct{}{}
	}
	return names, nil
}

// resolveName renders one collision-free name and logs any template
// warnings once.
func resolveName(job *model.ExportJob, counter int, existing map[string]struct{}) (string, error) {
	ctx := model.NamingContext{
		Timestamp: time.Now(),
		Counter:   counter,
		Profile:   job.Profile,
		Format:    job.Format,
		PageCount: len(job.Pages),
		DPI:       job.DPI,
	}
	name, warnings, err := naming.Resolve(job.Template, ctx, existing)
	if err != nil {
		return "", err
	}
	for _, w := range warnings {
		slog.Warn("naming template", "warning", w)
	}
	return name, nil
}

func (e *Encoder) report(done, total int) {
	if e.Progress != nil {
		e.Progress(done, total)
	}
}

// checkCancelled is the cooperative cancellation point between files.
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// IsPartialFailure reports whether err only describes per-page failures, so
// the caller can offer a retry of the failed subset.
func IsPartialFailure(result *model.ExportResult) bool {
	return result != nil && len(result.Failed) > 0 && len(result.Files) > 0
}

func destPath(job *model.ExportJob, name string) string {
	return filepath.Join(job.Destination, name)
}
