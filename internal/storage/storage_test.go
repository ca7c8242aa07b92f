package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/service"
	"github.com/scanforge/scanforge/internal/storage"
	"github.com/scanforge/scanforge/internal/testutil"
)

func testSession(id string) *model.Session {
	return &model.Session{
		ID:        id,
		State:     model.SessionEmpty,
		Profile:   "text",
		Format:    model.FormatPDF,
		CreatedAt: time.Now().UTC(),
	}
}

func testPage(id int64, ordinal int) *model.Page {
	return &model.Page{
		ID:         id,
		Ordinal:    ordinal,
		Image:      []byte{0x89, 0x50, byte(id)},
		Thumbnail:  []byte{0x01},
		Profile:    "text",
		SourceQuad: model.Quadrilateral{{X: 330, Y: 90}, {X: 1610, Y: 140}, {X: 1570, Y: 990}, {X: 290, Y: 940}},
		CapturedAt: testutil.FrameTime,
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := store.GetActiveSession(ctx)
	require.ErrorIs(t, err, common.ErrNoActiveSession)

	require.NoError(t, store.CreateSession(ctx, testSession("s1")))

	got, err := store.GetActiveSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, model.SessionEmpty, got.State)
	assert.Equal(t, model.FormatPDF, got.Format)

	require.NoError(t, store.UpdateSessionState(ctx, "s1", model.SessionActive))
	got, err = store.GetActiveSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, got.State)

	// An exported session no longer counts as active.
	require.NoError(t, store.UpdateSessionState(ctx, "s1", model.SessionExported))
	_, err = store.GetActiveSession(ctx)
	require.ErrorIs(t, err, common.ErrNoActiveSession)
}

func TestUpdateSessionStateUnknownID(t *testing.T) {
	store := testutil.SetupTestDB(t)
	err := store.UpdateSessionState(context.Background(), "ghost", model.SessionActive)
	require.Error(t, err)
}

func TestDeleteSessionRemovesPages(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, testSession("s1")))
	require.NoError(t, store.SavePage(ctx, "s1", testPage(1, 0)))
	require.NoError(t, store.SavePage(ctx, "s1", testPage(2, 1)))

	require.NoError(t, store.DeleteSession(ctx, "s1"))

	pages, err := store.GetPages(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, pages)
	_, err = store.GetActiveSession(ctx)
	require.ErrorIs(t, err, common.ErrNoActiveSession)
}

func TestPageRoundTrip(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, testSession("s1")))
	want := testPage(1, 0)
	require.NoError(t, store.SavePage(ctx, "s1", want))

	pages, err := store.GetPages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, pages, 1)

	got := pages[0]
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Ordinal, got.Ordinal)
	assert.Equal(t, want.Image, got.Image)
	assert.Equal(t, want.Thumbnail, got.Thumbnail)
	assert.Equal(t, want.Profile, got.Profile)
	assert.Equal(t, want.SourceQuad, got.SourceQuad)
	assert.True(t, want.CapturedAt.Equal(got.CapturedAt))
}

func TestGetPagesOrderedByOrdinal(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, testSession("s1")))
	// Insert out of order.
	require.NoError(t, store.SavePage(ctx, "s1", testPage(3, 2)))
	require.NoError(t, store.SavePage(ctx, "s1", testPage(1, 0)))
	require.NoError(t, store.SavePage(ctx, "s1", testPage(2, 1)))

	pages, err := store.GetPages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, i, p.Ordinal)
		assert.Equal(t, int64(i+1), p.ID)
	}
}

func TestUpdatePage(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, testSession("s1")))
	require.NoError(t, store.SavePage(ctx, "s1", testPage(1, 0)))

	updated := testPage(1, 0)
	updated.Image = []byte{0xAA, 0xBB}
	updated.Profile = "photo"
	require.NoError(t, store.UpdatePage(ctx, "s1", updated))

	pages, err := store.GetPages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, []byte{0xAA, 0xBB}, pages[0].Image)
	assert.Equal(t, "photo", pages[0].Profile)

	err = store.UpdatePage(ctx, "s1", testPage(99, 0))
	require.ErrorIs(t, err, common.ErrUnknownPage)
}

func TestSaveOrdinalsPersistsNewOrder(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, testSession("s1")))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SavePage(ctx, "s1", testPage(int64(i+1), i)))
	}

	// Reverse the order.
	reordered := []model.Page{
		{ID: 3, Ordinal: 0},
		{ID: 2, Ordinal: 1},
		{ID: 1, Ordinal: 2},
	}
	require.NoError(t, store.SaveOrdinals(ctx, "s1", reordered))

	pages, err := store.GetPages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, int64(3), pages[0].ID)
	assert.Equal(t, int64(1), pages[2].ID)
}

func TestDeletePage(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, testSession("s1")))
	require.NoError(t, store.SavePage(ctx, "s1", testPage(1, 0)))
	require.NoError(t, store.SavePage(ctx, "s1", testPage(2, 1)))

	require.NoError(t, store.DeletePage(ctx, "s1", 1))

	pages, err := store.GetPages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, int64(2), pages[0].ID)
}

func TestFavorites(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFavorite(ctx, "inbox", "/tmp/inbox"))
	require.NoError(t, store.SaveFavorite(ctx, "archive", "/tmp/archive"))

	path, err := store.GetFavorite(ctx, "inbox")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/inbox", path)

	// Saving again replaces the path.
	require.NoError(t, store.SaveFavorite(ctx, "inbox", "/mnt/inbox"))
	path, err = store.GetFavorite(ctx, "inbox")
	require.NoError(t, err)
	assert.Equal(t, "/mnt/inbox", path)

	all, err := store.ListFavorites(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.DeleteFavorite(ctx, "archive"))
	_, err = store.GetFavorite(ctx, "archive")
	require.ErrorIs(t, err, storage.ErrFavoriteNotFound)
	require.ErrorIs(t, store.DeleteFavorite(ctx, "archive"), storage.ErrFavoriteNotFound)
}

func TestNextCounterMonotonic(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 5; want++ {
		got, err := store.NextCounter(ctx, "scan-{counter}")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Separate templates keep separate counters.
	got, err := store.NextCounter(ctx, "invoice-{counter}")
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestExportHistory(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveExportRecord(ctx, &service.ExportRecord{
		JobID:      "j1",
		SessionID:  "s1",
		Format:     model.FormatPDF,
		FileCount:  1,
		TotalBytes: 4096,
		DurationMS: 120,
	}))
	require.NoError(t, store.SaveExportRecord(ctx, &service.ExportRecord{
		JobID:      "j2",
		SessionID:  "s1",
		Format:     model.FormatPNG,
		FileCount:  3,
		TotalBytes: 9000,
		DurationMS: 80,
	}))

	records, err := store.ListExportRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, "j2", records[0].JobID)
	assert.Equal(t, model.FormatPNG, records[0].Format)
	assert.Equal(t, int64(9000), records[0].TotalBytes)
}

func TestValidationErrors(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.Error(t, store.CreateSession(ctx, nil))
	require.Error(t, store.CreateSession(ctx, testSession("")))
	require.Error(t, store.UpdateSessionState(ctx, "", model.SessionActive))
	require.Error(t, store.SavePage(ctx, "s1", nil))
	_, err := store.NextCounter(ctx, "")
	require.Error(t, err)
}
