package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrFavoriteNotFound marks a lookup for a name that was never saved.
var ErrFavoriteNotFound = errors.New("favorite not found")

// SaveFavorite stores or replaces a named destination directory.
func (s *SQLiteStorage) SaveFavorite(ctx context.Context, name, path string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	if err := validateString(path, "path"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (name, path) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET path = excluded.path`, name, path)
	if err != nil {
		return fmt.Errorf("failed to save favorite: %w", err)
	}
	return nil
}

// GetFavorite resolves a favorite name to its directory.
func (s *SQLiteStorage) GetFavorite(ctx context.Context, name string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(name, "name"); err != nil {
		return "", err
	}

	var path string
	err := s.db.QueryRowContext(ctx,
		`SELECT path FROM favorites WHERE name = ?`, name).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", ErrFavoriteNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load favorite: %w", err)
	}
	return path, nil
}

// ListFavorites returns all favorites keyed by name.
func (s *SQLiteStorage) ListFavorites(ctx context.Context) (map[string]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, path FROM favorites ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var name, path string
		if err := rows.Scan(&name, &path); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		out[name] = path
	}
	return out, rows.Err()
}

// DeleteFavorite removes a favorite by name.
func (s *SQLiteStorage) DeleteFavorite(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check favorite delete: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %q", ErrFavoriteNotFound, name)
	}
	return nil
}
