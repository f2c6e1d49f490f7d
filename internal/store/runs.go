package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeFormat, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// nullFloat stores NaN as NULL.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// SaveRun inserts a run together with its per-region results and null
// distribution in one transaction. An empty run ID is filled with a new
// UUID, a zero CreatedAt with the current time.
func (s *Store) SaveRun(run *Run, results []Result, null []float64) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusComplete
	}
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal run params: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs
		(id, kind, created_at, connectivity, parcellation, source, correlation, n_rot, seed, r, p, status, params)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Kind,
		formatTime(run.CreatedAt),
		run.Connectivity,
		run.Parcellation,
		run.Source,
		run.Correlation,
		run.NRot,
		run.Seed,
		nullFloat(run.R),
		nullFloat(run.P),
		run.Status,
		string(params),
	)
	if err != nil {
		return wrap(err, "failed to insert run %s", run.ID)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO results (run_id, idx, region, value, r, p, hub)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err := stmt.Exec(run.ID, res.Index, res.Region, nullFloat(res.Value), nullFloat(res.R), nullFloat(res.P), res.Hub); err != nil {
			return fmt.Errorf("failed to insert result %s for run %s: %w", res.Region, run.ID, err)
		}
	}

	if len(null) > 0 {
		data, err := encodeFloats(null)
		if err != nil {
			return fmt.Errorf("failed to encode null distribution: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO null_distributions (run_id, size, data) VALUES (?, ?, ?)`, run.ID, len(null), data); err != nil {
			return fmt.Errorf("failed to insert null distribution for run %s: %w", run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, kind, created_at, connectivity, parcellation, source, correlation, n_rot, seed, r, p, status, params`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt, params string
	var r, p sql.NullFloat64
	err := row.Scan(
		&run.ID,
		&run.Kind,
		&createdAt,
		&run.Connectivity,
		&run.Parcellation,
		&run.Source,
		&run.Correlation,
		&run.NRot,
		&run.Seed,
		&r,
		&p,
		&run.Status,
		&params,
	)
	if err != nil {
		return nil, err
	}
	run.R, run.P = fromNull(r), fromNull(p)

	run.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for run %s: %w", run.ID, err)
	}
	if params != "" && params != "null" {
		if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal params for run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}

// GetRun retrieves a run by ID or by a unique ID prefix.
func (s *Store) GetRun(id string) (*Run, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' ORDER BY created_at LIMIT 2`, id)
	if err != nil {
		return nil, wrap(err, "failed to get run %s", id)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return runs[0], nil
	}
	return nil, fmt.Errorf("run ID prefix %q is ambiguous", id)
}

// ListRuns returns runs newest first. An empty kind lists every kind;
// limit <= 0 means no limit.
func (s *Store) ListRuns(kind string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE (? = '' OR kind = ?) ORDER BY created_at DESC, rowid DESC`
	args := []any{kind, kind}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetResults returns the per-region results of a run in region order.
func (s *Store) GetResults(runID string) ([]*Result, error) {
	rows, err := s.db.Query(`
		SELECT run_id, idx, region, value, r, p, hub
		FROM results
		WHERE run_id = ?
		ORDER BY idx
	`, runID)
	if err != nil {
		return nil, wrap(err, "failed to get results for run %s", runID)
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		var res Result
		var value, r, p sql.NullFloat64
		if err := rows.Scan(&res.RunID, &res.Index, &res.Region, &value, &r, &p, &res.Hub); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		res.Value, res.R, res.P = fromNull(value), fromNull(r), fromNull(p)
		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// GetNull returns the null distribution stored for a run, or nil.
func (s *Store) GetNull(runID string) ([]float64, error) {
	var size int
	var data []byte
	err := s.db.QueryRow(`SELECT size, data FROM null_distributions WHERE run_id = ?`, runID).Scan(&size, &data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err, "failed to get null distribution for run %s", runID)
	}
	null, err := decodeFloats(data, size)
	if err != nil {
		return nil, fmt.Errorf("failed to decode null distribution for run %s: %w", runID, err)
	}
	return null, nil
}

// DeleteRun removes a run and everything recorded for it.
func (s *Store) DeleteRun(id string) error {
	result, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return wrap(err, "failed to delete run %s", id)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// CountRuns returns the number of stored runs.
func (s *Store) CountRuns() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, wrap(err, "failed to count runs")
	}
	return n, nil
}
