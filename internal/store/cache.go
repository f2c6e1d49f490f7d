package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PutSpins caches a permutation set, replacing any set under the same key.
func (s *Store) PutSpins(key SpinKey, perms [][]int) error {
	data, size, err := encodePerms(perms)
	if err != nil {
		return fmt.Errorf("failed to encode permutations: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO spin_cache (parcellation, method, n_rot, seed, size, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, key.Parcellation, key.Method, len(perms), key.Seed, size, data, formatTime(time.Now()))
	if err != nil {
		return wrap(err, "failed to cache permutations for %s", key.Parcellation)
	}
	return nil
}

// GetSpins returns a cached permutation set. ok is false on a miss.
func (s *Store) GetSpins(key SpinKey) (perms [][]int, ok bool, err error) {
	var size int
	var data []byte
	err = s.db.QueryRow(`
		SELECT size, data FROM spin_cache
		WHERE parcellation = ? AND method = ? AND n_rot = ? AND seed = ?
	`, key.Parcellation, key.Method, key.NRot, key.Seed).Scan(&size, &data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap(err, "failed to read permutation cache for %s", key.Parcellation)
	}
	perms, err = decodePerms(data, key.NRot, size)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode cached permutations for %s: %w", key.Parcellation, err)
	}
	return perms, true, nil
}

// CachedSpin describes one cache entry.
type CachedSpin struct {
	SpinKey
	Size      int
	Bytes     int64
	CreatedAt time.Time
}

// ListSpins describes every cached permutation set.
func (s *Store) ListSpins() ([]CachedSpin, error) {
	rows, err := s.db.Query(`
		SELECT parcellation, method, n_rot, seed, size, length(data), created_at
		FROM spin_cache
		ORDER BY parcellation, method, n_rot, seed
	`)
	if err != nil {
		return nil, wrap(err, "failed to list permutation cache")
	}
	defer rows.Close()

	var out []CachedSpin
	for rows.Next() {
		var c CachedSpin
		var createdAt string
		if err := rows.Scan(&c.Parcellation, &c.Method, &c.NRot, &c.Seed, &c.Size, &c.Bytes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache row: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse cache timestamp: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permutation cache: %w", err)
	}
	return out, nil
}

// ClearSpins empties the permutation cache and returns the number of sets
// removed.
func (s *Store) ClearSpins() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM spin_cache`)
	if err != nil {
		return 0, wrap(err, "failed to clear permutation cache")
	}
	return result.RowsAffected()
}
