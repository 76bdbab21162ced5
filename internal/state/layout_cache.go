package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/scanlens/internal/layout"
)

// ErrNotFound is returned when no cached arrangement exists for a
// model key.
var ErrNotFound = errors.New("layout cache entry not found")

// SaveLayout upserts a diagram arrangement keyed by its model key.
// LastModified is stamped on write.
func (s *Store) SaveLayout(rec *layout.CacheRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if rec == nil || rec.ModelKey == "" {
		return fmt.Errorf("cache record requires a model key")
	}

	positions, err := json.Marshal(rec.TablePositions)
	if err != nil {
		return fmt.Errorf("failed to encode table positions: %w", err)
	}
	annotations, err := json.Marshal(rec.Annotations)
	if err != nil {
		return fmt.Errorf("failed to encode annotations: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO layout_cache (model_key, last_modified, table_positions, annotations)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(model_key) DO UPDATE SET
		   last_modified = excluded.last_modified,
		   table_positions = excluded.table_positions,
		   annotations = excluded.annotations`,
		rec.ModelKey, time.Now().UTC(), string(positions), string(annotations),
	)
	if err != nil {
		return fmt.Errorf("failed to save layout %q: %w", rec.ModelKey, err)
	}
	return nil
}

// GetLayout returns the cached arrangement for a model key, or
// ErrNotFound.
func (s *Store) GetLayout(modelKey string) (*layout.CacheRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rec := &layout.CacheRecord{ModelKey: modelKey}
	var positions, annotations string
	err := s.db.QueryRow(
		`SELECT last_modified, table_positions, annotations FROM layout_cache WHERE model_key = ?`,
		modelKey,
	).Scan(&rec.LastModified, &positions, &annotations)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get layout %q: %w", modelKey, err)
	}

	if err := json.Unmarshal([]byte(positions), &rec.TablePositions); err != nil {
		return nil, fmt.Errorf("failed to decode table positions: %w", err)
	}
	if err := json.Unmarshal([]byte(annotations), &rec.Annotations); err != nil {
		return nil, fmt.Errorf("failed to decode annotations: %w", err)
	}
	return rec, nil
}

// DeleteLayout removes the cached arrangement for a model key. It is
// not an error if none exists.
func (s *Store) DeleteLayout(modelKey string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(`DELETE FROM layout_cache WHERE model_key = ?`, modelKey); err != nil {
		return fmt.Errorf("failed to delete layout %q: %w", modelKey, err)
	}
	return nil
}

// ListLayoutKeys returns all cached model keys, newest first.
func (s *Store) ListLayoutKeys() ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT model_key FROM layout_cache ORDER BY last_modified DESC, model_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list layouts: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
