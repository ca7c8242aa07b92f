package storage

import (
	"context"
	"fmt"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
)

// SavePage inserts a page row for the session.
func (s *SQLiteStorage) SavePage(ctx context.Context, sessionID string, page *model.Page) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	if err := validatePage(page); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (id, session_id, ordinal, profile, image, thumbnail, source_quad, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		page.ID, sessionID, page.Ordinal, page.Profile, page.Image, page.Thumbnail,
		page.SourceQuad.String(), page.CapturedAt)
	if err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

// UpdatePage rewrites the raster columns of an existing page (retake).
func (s *SQLiteStorage) UpdatePage(ctx context.Context, sessionID string, page *model.Page) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	if err := validatePage(page); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE pages SET image = ?, thumbnail = ?, profile = ?, source_quad = ?, captured_at = ?
		 WHERE session_id = ? AND id = ?`,
		page.Image, page.Thumbnail, page.Profile, page.SourceQuad.String(), page.CapturedAt,
		sessionID, page.ID)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check page update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", common.ErrUnknownPage, page.ID)
	}
	return nil
}

// DeletePage removes one page row.
func (s *SQLiteStorage) DeletePage(ctx context.Context, sessionID string, pageID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM pages WHERE session_id = ? AND id = ?`, sessionID, pageID)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check page delete: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", common.ErrUnknownPage, pageID)
	}
	return nil
}

// SaveOrdinals rewrites the ordinal column for every listed page in one
// transaction, keeping the stored order consistent with the session
// manager's dense permutation.
func (s *SQLiteStorage) SaveOrdinals(ctx context.Context, sessionID string, pages []model.Page) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, page := range pages {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pages SET ordinal = ? WHERE session_id = ? AND id = ?`,
			page.Ordinal, sessionID, page.ID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update ordinal for page %d: %w", page.ID, err)
		}
	}
	return tx.Commit()
}

// GetPages loads the session's pages in ordinal order.
func (s *SQLiteStorage) GetPages(ctx context.Context, sessionID string) ([]model.Page, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ordinal, profile, image, thumbnail, source_quad, captured_at
		 FROM pages WHERE session_id = ? ORDER BY ordinal`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []model.Page
	for rows.Next() {
		var page model.Page
		var quad string
		if err := rows.Scan(&page.ID, &page.Ordinal, &page.Profile, &page.Image,
			&page.Thumbnail, &quad, &page.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		if quad != "" {
			q, err := model.ParseQuadrilateral(quad)
			if err != nil {
				return nil, fmt.Errorf("stored quad for page %d: %w", page.ID, err)
			}
			page.SourceQuad = q
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}
	return pages, nil
}
