package storage

import (
	"context"
	"fmt"

	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/service"
)

// NextCounter returns the running counter base for a naming template and
// advances it. Values only ever grow, even across sessions, so exported
// names never reuse a counter the template has already consumed.
func (s *SQLiteStorage) NextCounter(ctx context.Context, template string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(template, "template"); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO naming_counters (template, next_value) VALUES (?, 1)
		 ON CONFLICT(template) DO NOTHING`, template); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to seed counter: %w", err)
	}

	var value int
	if err := tx.QueryRowContext(ctx,
		`SELECT next_value FROM naming_counters WHERE template = ?`, template).Scan(&value); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE naming_counters SET next_value = next_value + 1 WHERE template = ?`, template); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to advance counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit counter: %w", err)
	}
	return value, nil
}

// SaveExportRecord appends one row of export history.
func (s *SQLiteStorage) SaveExportRecord(ctx context.Context, record *service.ExportRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if err := validateString(record.JobID, "record.JobID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO export_history (job_id, session_id, format, file_count, total_bytes, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.JobID, record.SessionID, string(record.Format),
		record.FileCount, record.TotalBytes, record.DurationMS)
	if err != nil {
		return fmt.Errorf("failed to save export record: %w", err)
	}
	return nil
}

// ListExportRecords returns the most recent export history rows.
func (s *SQLiteStorage) ListExportRecords(ctx context.Context, limit int) ([]service.ExportRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, session_id, format, file_count, total_bytes, duration_ms
		 FROM export_history ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query export history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []service.ExportRecord
	for rows.Next() {
		var rec service.ExportRecord
		var format string
		if err := rows.Scan(&rec.JobID, &rec.SessionID, &format,
			&rec.FileCount, &rec.TotalBytes, &rec.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan export record: %w", err)
		}
		rec.Format, err = model.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
