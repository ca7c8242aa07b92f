package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/testutil"
)

func addPages(t *testing.T, m *Manager, n int) []model.Page {
	t.Helper()
	pages := make([]model.Page, 0, n)
	for i := 0; i < n; i++ {
		p, err := m.AddPage(testutil.TextPage(40, 56), "text")
		require.NoError(t, err)
		pages = append(pages, p)
	}
	return pages
}

func idsInOrder(pages []model.Page) []int64 {
	ids := make([]int64, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	return ids
}

func TestNewSessionStartsEmpty(t *testing.T) {
	m := New("text", model.FormatPDF)
	meta := m.Meta()

	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, model.SessionEmpty, meta.State)
	assert.Equal(t, "text", meta.Profile)
	assert.Equal(t, model.FormatPDF, meta.Format)
	assert.Zero(t, m.Len())
}

func TestAddPageAssignsDenseOrdinals(t *testing.T) {
	m := New("text", model.FormatPDF)
	pages := addPages(t, m, 3)

	assert.Equal(t, model.SessionActive, m.Meta().State)
	for i, p := range pages {
		assert.Equal(t, i, p.Ordinal)
		assert.Equal(t, int64(i+1), p.ID)
		assert.NotEmpty(t, p.Image)
		assert.NotEmpty(t, p.Thumbnail)
	}
}

func TestReorderMovesAndRenumbers(t *testing.T) {
	m := New("text", model.FormatPDF)
	pages := addPages(t, m, 3) // ids 1,2,3 in order A,B,C

	// Move B to the front: [B, A, C].
	require.NoError(t, m.Reorder(pages[1].ID, 0))
	got := m.Snapshot()
	assert.Equal(t, []int64{2, 1, 3}, idsInOrder(got))
	for i, p := range got {
		assert.Equal(t, i, p.Ordinal)
	}

	// Move B to the end: [A, C, B].
	require.NoError(t, m.Reorder(pages[1].ID, 2))
	assert.Equal(t, []int64{1, 3, 2}, idsInOrder(m.Snapshot()))
}

func TestReorderRejectsBadInput(t *testing.T) {
	m := New("text", model.FormatPDF)
	pages := addPages(t, m, 2)

	err := m.Reorder(pages[0].ID, 5)
	require.ErrorIs(t, err, common.ErrInvalidOrdinal)

	err = m.Reorder(pages[0].ID, -1)
	require.ErrorIs(t, err, common.ErrInvalidOrdinal)

	err = m.Reorder(99, 0)
	require.ErrorIs(t, err, common.ErrUnknownPage)

	// Failed calls leave the order alone.
	assert.Equal(t, []int64{1, 2}, idsInOrder(m.Snapshot()))
}

func TestDeleteCompactsOrdinals(t *testing.T) {
	m := New("text", model.FormatPDF)
	pages := addPages(t, m, 3)

	require.NoError(t, m.Delete(pages[1].ID))
	got := m.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, []int64{1, 3}, idsInOrder(got))
	assert.Equal(t, 0, got[0].Ordinal)
	assert.Equal(t, 1, got[1].Ordinal)

	require.ErrorIs(t, m.Delete(pages[1].ID), common.ErrUnknownPage)
}

func TestDeleteLastPageEmptiesSession(t *testing.T) {
	m := New("text", model.FormatPDF)
	pages := addPages(t, m, 1)

	require.NoError(t, m.Delete(pages[0].ID))
	assert.Equal(t, model.SessionEmpty, m.Meta().State)
	assert.Zero(t, m.Len())
}

func TestRetakeKeepsIdentityAndPosition(t *testing.T) {
	m := New("text", model.FormatPDF)
	pages := addPages(t, m, 3)

	replacement := testutil.TextPage(40, 56)
	replacement.CapturedAt = testutil.FrameTime.Add(time.Minute)

	got, err := m.Retake(pages[1].ID, replacement, "photo")
	require.NoError(t, err)
	assert.Equal(t, pages[1].ID, got.ID)
	assert.Equal(t, 1, got.Ordinal)
	assert.Equal(t, "photo", got.Profile)
	assert.Equal(t, replacement.CapturedAt, got.CapturedAt)

	_, err = m.Retake(99, replacement, "text")
	require.ErrorIs(t, err, common.ErrUnknownPage)
}

func TestSnapshotIsIsolated(t *testing.T) {
	m := New("text", model.FormatPDF)
	addPages(t, m, 2)

	snap := m.Snapshot()
	snap[0].Image[0] = 0xFF
	snap[0].Profile = "mangled"

	fresh := m.Snapshot()
	assert.NotEqual(t, snap[0].Image[0], fresh[0].Image[0])
	assert.Equal(t, "text", fresh[0].Profile)
}

func TestExportedSessionIsSealed(t *testing.T) {
	m := New("text", model.FormatPDF)
	pages := addPages(t, m, 2)
	require.NoError(t, m.MarkExported())

	_, err := m.AddPage(testutil.TextPage(40, 56), "text")
	require.ErrorIs(t, err, common.ErrSessionExported)
	_, err = m.Retake(pages[0].ID, testutil.TextPage(40, 56), "text")
	require.ErrorIs(t, err, common.ErrSessionExported)
	require.ErrorIs(t, m.Reorder(pages[0].ID, 0), common.ErrSessionExported)
	require.ErrorIs(t, m.Delete(pages[0].ID), common.ErrSessionExported)
}

func TestMarkExportedRequiresPages(t *testing.T) {
	m := New("text", model.FormatPDF)
	require.ErrorIs(t, m.MarkExported(), common.ErrSessionEmpty)
}

func TestLoadRehydratesAndContinuesIDs(t *testing.T) {
	meta := model.Session{
		ID:      "restored",
		State:   model.SessionActive,
		Profile: "text",
		Format:  model.FormatPNG,
	}
	stored := []model.Page{
		{ID: 7, Ordinal: 1, Image: []byte{1}, Profile: "text"},
		{ID: 3, Ordinal: 0, Image: []byte{2}, Profile: "text"},
	}

	m := Load(meta, stored)
	got := m.Snapshot()
	require.Len(t, got, 2)
	// Sorted by stored ordinal, then renumbered densely.
	assert.Equal(t, []int64{3, 7}, idsInOrder(got))

	// New ids continue above the largest restored id.
	p, err := m.AddPage(testutil.TextPage(40, 56), "text")
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.ID)
	assert.Equal(t, 2, p.Ordinal)
}
