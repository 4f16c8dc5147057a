// database/advisory_store.go
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gewnthar/advsync/models"
)

const upsertAdvisory = `
INSERT INTO advisories (
    advisory_id, title, severity, summary,
    modification_time, source_file, first_seen_at, last_seen_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(advisory_id) DO UPDATE SET
    title             = excluded.title,
    severity          = excluded.severity,
    summary           = excluded.summary,
    modification_time = excluded.modification_time,
    source_file       = excluded.source_file,
    last_seen_at      = excluded.last_seen_at
`

// ApplyDocument turns one staged document's advisory items into store
// mutations inside a single transaction, so a crash mid-batch cannot leave a
// half-written document. Returns the number of records upserted.
func (s *Store) ApplyDocument(sourceFile string, items []models.AdvisoryItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for %s: %w", sourceFile, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertAdvisory)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare advisory upsert for %s: %w", sourceFile, err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	applied := 0
	for _, item := range items {
		_, err := stmt.Exec(
			item.ID, item.Title, item.Severity, item.Summary,
			item.Modified.Unix(), sourceFile, now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert advisory %s from %s: %w", item.ID, sourceFile, err)
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit advisory batch for %s: %w", sourceFile, err)
	}

	log.Printf("Store: applied %d advisory record(s) from %s", applied, sourceFile)
	return applied, nil
}

// LastUpdate reports the watermark of the last fully applied sync batch. A
// missing feed_info row means the store never completed a first sync; that is
// reported as 0 so the next run reprocesses everything.
func (s *Store) LastUpdate() (int64, error) {
	var last int64
	err := s.db.Get(&last, `SELECT last_update FROM feed_info WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("Store: no feed metadata recorded in %s; treating last update as never", s.path)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read last update watermark: %w", err)
	}
	return last, nil
}

// SetLastUpdate advances the watermark. The MAX keeps it monotonic even if a
// caller hands in a timestamp behind the stored one.
func (s *Store) SetLastUpdate(ts int64) error {
	_, err := s.db.Exec(`UPDATE feed_info SET last_update = MAX(last_update, ?) WHERE id = 1`, ts)
	if err != nil {
		return fmt.Errorf("failed to advance last update watermark: %w", err)
	}
	return nil
}

// FeedInfo reads the singleton feed metadata row.
func (s *Store) FeedInfo() (models.FeedInfo, error) {
	var info models.FeedInfo
	err := s.db.Get(&info, `SELECT name, vendor, home, last_update FROM feed_info WHERE id = 1`)
	if err != nil {
		return models.FeedInfo{}, fmt.Errorf("failed to read feed metadata: %w", err)
	}
	return info, nil
}

// GetAdvisory fetches one record by id, nil when absent.
func (s *Store) GetAdvisory(id string) (*models.AdvisoryRecord, error) {
	var rec models.AdvisoryRecord
	err := s.db.Get(&rec, `
		SELECT advisory_id, title, severity, summary,
		       modification_time, source_file, first_seen_at, last_seen_at
		FROM advisories WHERE advisory_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query advisory %s: %w", id, err)
	}
	return &rec, nil
}

// CountAdvisories reports the number of cached advisory records.
func (s *Store) CountAdvisories() (int, error) {
	var n int
	err := s.db.Get(&n, `SELECT COUNT(*) FROM advisories`)
	return n, err
}
