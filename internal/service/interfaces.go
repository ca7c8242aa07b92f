// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/scanforge/scanforge/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Session lifecycle
	CreateSession(ctx context.Context, session *model.Session) error
	GetActiveSession(ctx context.Context) (*model.Session, error)
	UpdateSessionState(ctx context.Context, sessionID string, state model.SessionState) error
	DeleteSession(ctx context.Context, sessionID string) error

	// Page operations
	SavePage(ctx context.Context, sessionID string, page *model.Page) error
	UpdatePage(ctx context.Context, sessionID string, page *model.Page) error
	DeletePage(ctx context.Context, sessionID string, pageID int64) error
	SaveOrdinals(ctx context.Context, sessionID string, pages []model.Page) error
	GetPages(ctx context.Context, sessionID string) ([]model.Page, error)

	// Favorites (destination directories)
	SaveFavorite(ctx context.Context, name, path string) error
	GetFavorite(ctx context.Context, name string) (string, error)
	ListFavorites(ctx context.Context) (map[string]string, error)
	DeleteFavorite(ctx context.Context, name string) error

	// Naming counters
	NextCounter(ctx context.Context, template string) (int, error)

	// Export history
	SaveExportRecord(ctx context.Context, record *ExportRecord) error
	ListExportRecords(ctx context.Context, limit int) ([]ExportRecord, error)

	Close() error
}

// ExportRecord is one row of export history.
type ExportRecord struct {
	JobID      string
	SessionID  string
	Format     model.Format
	FileCount  int
	TotalBytes int64
	DurationMS int64
}

// SpaceChecker is the housekeeping collaborator consulted before an export
// writes anything. Implementations report free bytes for a path.
type SpaceChecker interface {
	FreeSpace(path string) (uint64, error)
}
