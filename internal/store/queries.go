package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Backup operations

// RecordBackup indexes a backup file. Recording the same path again
// replaces the earlier record.
func (s *Store) RecordBackup(path string, createdAt time.Time, values int) error {
	query := `
		INSERT INTO backups (created_at, path, value_count)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET created_at = excluded.created_at, value_count = excluded.value_count
	`
	if _, err := s.db.Exec(query, createdAt.UTC().Format(time.RFC3339), path, values); err != nil {
		return wrap("failed to record backup", err)
	}
	return nil
}

// ListBackups returns indexed backups, newest first.
func (s *Store) ListBackups() ([]*BackupRecord, error) {
	query := `
		SELECT id, created_at, path, value_count
		FROM backups
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrap("failed to list backups", err)
	}
	defer rows.Close()

	var records []*BackupRecord
	for rows.Next() {
		var r BackupRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.Path, &r.ValueCount); err != nil {
			return nil, fmt.Errorf("failed to scan backup row: %w", err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// Check run operations

// InsertCheckRun stores a run together with its drift events in one
// transaction.
func (s *Store) InsertCheckRun(run *CheckRun, events []DriftEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO check_runs
		(id, started_at, source, baseline_created, total_changes, reenabled, restored, failed, baseline_saved, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.Source,
		run.BaselineCreated,
		run.TotalChanges,
		run.Reenabled,
		run.Restored,
		run.Failed,
		run.BaselineSaved,
		nullString(run.Error),
	)
	if err != nil {
		return wrap("failed to insert check run", err)
	}

	for _, ev := range events {
		_, err := tx.Exec(`
			INSERT INTO drift_events
			(run_id, feature_id, feature_name, previous_status, current_status, reenabled, restored)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, ev.FeatureID, ev.FeatureName, ev.Previous, ev.Current, ev.Reenabled, ev.Restored)
		if err != nil {
			return wrap(fmt.Sprintf("failed to insert drift event for %s", ev.FeatureID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit check run: %w", err)
	}
	return nil
}

// GetCheckRun retrieves a run by id.
func (s *Store) GetCheckRun(id string) (*CheckRun, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, source, baseline_created, total_changes, reenabled, restored, failed, baseline_saved, error
		FROM check_runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("check run %s not found", id)
		}
		return nil, wrap("failed to get check run", err)
	}
	return run, nil
}

// ListCheckRuns returns up to limit runs, newest first. A limit of zero or
// less returns every run.
func (s *Store) ListCheckRuns(limit int) ([]*CheckRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, started_at, source, baseline_created, total_changes, reenabled, restored, failed, baseline_saved, error
		FROM check_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrap("failed to list check runs", err)
	}
	defer rows.Close()

	var runs []*CheckRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*CheckRun, error) {
	var run CheckRun
	var startedAt string
	var errText sql.NullString
	if err := sc.Scan(
		&run.ID,
		&startedAt,
		&run.Source,
		&run.BaselineCreated,
		&run.TotalChanges,
		&run.Reenabled,
		&run.Restored,
		&run.Failed,
		&run.BaselineSaved,
		&errText,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	run.StartedAt = t
	run.Error = errText.String
	return &run, nil
}

// GetDriftEvents returns the drift recorded by one run in insertion order.
func (s *Store) GetDriftEvents(runID string) ([]*DriftEvent, error) {
	rows, err := s.db.Query(`
		SELECT run_id, feature_id, COALESCE(feature_name, ''), previous_status, current_status, reenabled, restored
		FROM drift_events
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, wrap("failed to get drift events", err)
	}
	defer rows.Close()

	var events []*DriftEvent
	for rows.Next() {
		var ev DriftEvent
		if err := rows.Scan(&ev.RunID, &ev.FeatureID, &ev.FeatureName, &ev.Previous, &ev.Current, &ev.Reenabled, &ev.Restored); err != nil {
			return nil, fmt.Errorf("failed to scan drift event row: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// ReenabledByFeature counts re-enablements per feature, most frequent
// first.
func (s *Store) ReenabledByFeature() ([]*FeatureDrift, error) {
	rows, err := s.db.Query(`
		SELECT d.feature_id, COALESCE(MAX(d.feature_name), ''), COUNT(*), MAX(r.started_at)
		FROM drift_events d
		JOIN check_runs r ON r.id = d.run_id
		WHERE d.reenabled = 1
		GROUP BY d.feature_id
		ORDER BY COUNT(*) DESC, d.feature_id
	`)
	if err != nil {
		return nil, wrap("failed to summarize drift", err)
	}
	defer rows.Close()

	var out []*FeatureDrift
	for rows.Next() {
		var fd FeatureDrift
		var last string
		if err := rows.Scan(&fd.FeatureID, &fd.FeatureName, &fd.Reenabled, &last); err != nil {
			return nil, fmt.Errorf("failed to scan drift summary row: %w", err)
		}
		fd.LastSeen, err = time.Parse(time.RFC3339, last)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		out = append(out, &fd)
	}
	return out, rows.Err()
}

// PruneCheckRuns deletes runs started before cutoff, along with their
// drift events, and returns how many runs were removed.
func (s *Store) PruneCheckRuns(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM check_runs WHERE started_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, wrap("failed to prune check runs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
