package export

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/testutil"
)

// unlimitedSpace always reports plenty of room.
type unlimitedSpace struct{}

func (unlimitedSpace) FreeSpace(string) (uint64, error) { return 1 << 40, nil }

// tightSpace reports less than the safety margin.
type tightSpace struct{}

func (tightSpace) FreeSpace(string) (uint64, error) { return 1 << 10, nil }

func testPage(t *testing.T, id int64, ordinal int) model.Page {
	t.Helper()
	raster := testutil.TextPage(60, 84)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, raster.Pixels))
	return model.Page{
		ID:         id,
		Ordinal:    ordinal,
		Image:      buf.Bytes(),
		Profile:    "text",
		CapturedAt: testutil.FrameTime,
	}
}

func testJob(t *testing.T, format model.Format, pages int) *model.ExportJob {
	t.Helper()
	job := &model.ExportJob{
		SubmittedAt: time.Now(),
		JobID:       "job-test",
		SessionID:   "session-test",
		Destination: t.TempDir(),
		Template:    "doc-{counter}",
		Profile:     "text",
		Format:      format,
		Quality:     85,
		CounterBase: 1,
	}
	for i := 0; i < pages; i++ {
		job.Pages = append(job.Pages, testPage(t, int64(i+1), i))
	}
	return job
}

func TestExportPNGWritesOneFilePerPage(t *testing.T) {
	job := testJob(t, model.FormatPNG, 3)

	result, err := NewEncoder(unlimitedSpace{}).Export(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, result.Files, 3)
	assert.Empty(t, result.Failed)

	// Session order maps to counter order.
	wantNames := []string{"doc-001.png", "doc-002.png", "doc-003.png"}
	for i, file := range result.Files {
		assert.Equal(t, wantNames[i], filepath.Base(file.Path))
		assert.Equal(t, job.Pages[i].ID, file.PageID)

		data, err := os.ReadFile(file.Path)
		require.NoError(t, err)
		assert.Equal(t, file.Bytes, int64(len(data)))

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 60, img.Bounds().Dx())
	}
	assert.Positive(t, result.TotalBytes())
}

func TestExportJPGRespectsExistingNames(t *testing.T) {
	job := testJob(t, model.FormatJPG, 2)

	// Pre-claim the first name; the export must skip over it.
	require.NoError(t, os.WriteFile(filepath.Join(job.Destination, "doc-001.jpg"), []byte("x"), 0o644))

	result, err := NewEncoder(unlimitedSpace{}).Export(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, result.Files, 2)
	assert.Equal(t, "doc-002.jpg", filepath.Base(result.Files[0].Path))
	assert.Equal(t, "doc-003.jpg", filepath.Base(result.Files[1].Path))
}

func TestExportPDFProducesSingleDocument(t *testing.T) {
	job := testJob(t, model.FormatPDF, 5)

	result, err := NewEncoder(unlimitedSpace{}).Export(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Empty(t, result.Failed)
	assert.Equal(t, "doc-001.pdf", filepath.Base(result.Files[0].Path))

	pages, err := api.PageCountFile(result.Files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, 5, pages)
}

func TestExportPartialFailureKeepsGoodPages(t *testing.T) {
	job := testJob(t, model.FormatPNG, 3)
	// Corrupt the middle page's stored raster.
	job.Pages[1].Image = []byte("not a png")

	result, err := NewEncoder(unlimitedSpace{}).Export(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, result.Files, 2)
	require.Len(t, result.Failed, 1)

	failure := result.Failed[0]
	assert.Equal(t, job.Pages[1].ID, failure.PageID)
	assert.Equal(t, "doc-002.png", failure.Name)
	assert.ErrorIs(t, failure.Err, common.ErrEncode)

	// The surviving pages keep their session-order names.
	assert.Equal(t, "doc-001.png", filepath.Base(result.Files[0].Path))
	assert.Equal(t, "doc-003.png", filepath.Base(result.Files[1].Path))
	assert.True(t, IsPartialFailure(result))
}

func TestExportEmptyJob(t *testing.T) {
	job := testJob(t, model.FormatPNG, 0)
	_, err := NewEncoder(unlimitedSpace{}).Export(context.Background(), job)
	require.ErrorIs(t, err, common.ErrSessionEmpty)
}

func TestExportMissingDestination(t *testing.T) {
	job := testJob(t, model.FormatPNG, 1)
	job.Destination = filepath.Join(job.Destination, "does", "not", "exist")

	_, err := NewEncoder(unlimitedSpace{}).Export(context.Background(), job)
	require.Error(t, err)
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestExportInsufficientSpace(t *testing.T) {
	job := testJob(t, model.FormatPNG, 1)
	_, err := NewEncoder(tightSpace{}).Export(context.Background(), job)
	require.ErrorIs(t, err, common.ErrInsufficientSpace)
}

func TestExportCancelled(t *testing.T) {
	job := testJob(t, model.FormatPNG, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEncoder(unlimitedSpace{}).Export(ctx, job)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExportProgressReachesTotal(t *testing.T) {
	job := testJob(t, model.FormatPNG, 4)

	enc := NewEncoder(unlimitedSpace{})
	var lastDone, lastTotal int
	enc.Progress = func(done, total int) {
		lastDone, lastTotal = done, total
	}

	_, err := enc.Export(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, lastTotal, lastDone)
}
