package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
)

// CreateSession inserts a new session row.
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *model.Session) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session", ErrNilParameter)
	}
	if err := validateString(session.ID, "session.ID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, state, profile, format, created_at) VALUES (?, ?, ?, ?, ?)`,
		session.ID, string(session.State), session.Profile, string(session.Format), session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetActiveSession returns the single non-exported session, or
// common.ErrNoActiveSession when none exists.
func (s *SQLiteStorage) GetActiveSession(ctx context.Context) (*model.Session, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, state, profile, format, created_at FROM sessions
		 WHERE state IN (?, ?) ORDER BY created_at DESC LIMIT 1`,
		string(model.SessionEmpty), string(model.SessionActive))

	var session model.Session
	var state, format string
	err := row.Scan(&session.ID, &state, &session.Profile, &format, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active session: %w", err)
	}

	session.State, err = model.ParseSessionState(state)
	if err != nil {
		return nil, err
	}
	session.Format, err = model.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSessionState moves a session to the given state.
func (s *SQLiteStorage) UpdateSessionState(ctx context.Context, sessionID string, state model.SessionState) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ? WHERE id = ?`, string(state), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check session update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// DeleteSession removes the session and, via cascade, its pages.
func (s *SQLiteStorage) DeleteSession(ctx context.Context, sessionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}

	// The cascade only fires with foreign keys on; delete pages explicitly
	// so the behavior does not depend on the connection pragma.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE session_id = ?`, sessionID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete session pages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return tx.Commit()
}
