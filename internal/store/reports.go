package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertReport records a report file and returns its ID.
func (s *Store) InsertReport(runID, format, path string) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO reports (run_id, created_at, format, path)
		VALUES (?, ?, ?, ?)
	`, runID, formatTime(time.Now()), format, path)
	if err != nil {
		return 0, wrap(err, "failed to insert report")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get report ID: %w", err)
	}
	return id, nil
}

// GetReport retrieves a report by ID.
func (s *Store) GetReport(id int64) (*Report, error) {
	r, err := scanReport(s.db.QueryRow(`
		SELECT id, run_id, created_at, format, path FROM reports WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %d not found", id)
	}
	if err != nil {
		return nil, wrap(err, "failed to get report %d", id)
	}
	return r, nil
}

// ListReports returns reports newest first, optionally for one run.
func (s *Store) ListReports(runID string) ([]*Report, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, created_at, format, path
		FROM reports
		WHERE (? = '' OR run_id = ?)
		ORDER BY created_at DESC, id DESC
	`, runID, runID)
	if err != nil {
		return nil, wrap(err, "failed to list reports")
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

// DeleteReport removes a report record.
func (s *Store) DeleteReport(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM reports WHERE id = ?`, id); err != nil {
		return wrap(err, "failed to delete report %d", id)
	}
	return nil
}

func scanReport(row rowScanner) (*Report, error) {
	var r Report
	var createdAt string
	if err := row.Scan(&r.ID, &r.RunID, &createdAt, &r.Format, &r.Path); err != nil {
		return nil, err
	}
	var err error
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for report %d: %w", r.ID, err)
	}
	return &r, nil
}
