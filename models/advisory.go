// models/advisory.go
package models

import "time"

// AdvisoryRecord is one normalized upstream advisory as persisted in the store.
// Records are only ever inserted or updated by the sync engine; upstream
// retractions are not modeled as deletions.
type AdvisoryRecord struct {
	AdvisoryID       string `db:"advisory_id"`
	Title            string `db:"title"`
	Severity         string `db:"severity"`
	Summary          string `db:"summary"`
	ModificationTime int64  `db:"modification_time"` // epoch seconds, from the advisory itself
	SourceFile       string `db:"source_file"`       // staging-relative file the record came from
	FirstSeenAt      int64  `db:"first_seen_at"`
	LastSeenAt       int64  `db:"last_seen_at"`
}

// AdvisoryItem is one advisory extracted from a staged document, before it is
// turned into store mutations.
type AdvisoryItem struct {
	ID       string
	Title    string
	Severity string
	Summary  string
	Modified time.Time
}

// StagedDocument describes one file in the staging tree that is a candidate
// for the incremental update step. Ephemeral; only exists during a run.
type StagedDocument struct {
	Path     string // absolute path on disk
	Name     string // staging-relative name, slash-separated
	Modified time.Time
}

// ManifestEntry is one row of the upstream corpus manifest. The sha256 digest
// is what the mirror keys change detection off; the modified time is stamped
// onto the downloaded file so the update step can use it as a cheap pre-filter.
type ManifestEntry struct {
	File     string    `csv:"file"`
	Modified time.Time `csv:"modified"`
	SHA256   string    `csv:"sha256"`
	Size     int64     `csv:"size"`
}
