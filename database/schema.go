// database/schema.go
package database

import (
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gewnthar/advsync/models"
)

// MinSchemaVersion is the oldest store layout this build can work with. A
// store reporting anything lower is discarded and rebuilt from Schema.
const MinSchemaVersion = 2

// Schema is the store initialization script, run in full on every rebuild.
const Schema = `
CREATE TABLE IF NOT EXISTS store_meta (
    id             INTEGER PRIMARY KEY CHECK (id = 1),
    schema_version INTEGER NOT NULL,
    created_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS feed_info (
    id          INTEGER PRIMARY KEY CHECK (id = 1),
    name        TEXT NOT NULL,
    vendor      TEXT NOT NULL,
    home        TEXT NOT NULL,
    last_update INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS advisories (
    advisory_id       TEXT PRIMARY KEY,
    title             TEXT NOT NULL,
    severity          TEXT NOT NULL DEFAULT '',
    summary           TEXT NOT NULL DEFAULT '',
    modification_time INTEGER NOT NULL,
    source_file       TEXT NOT NULL DEFAULT '',
    first_seen_at     INTEGER NOT NULL,
    last_seen_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_advisories_modified ON advisories(modification_time DESC);
`

// Store wraps the sqlite store file.
type Store struct {
	db   *sqlx.DB
	path string
}

// EnsureStore opens the store at path, rebuilding it first when its declared
// schema version is below MinSchemaVersion. A missing file, an unopenable
// file and an unreadable version row are all treated as version 0: either way
// the store cannot be trusted and is recreated from the initialization
// script. Rebuilds are destructive; every cached advisory is lost and will be
// reconstructed from upstream content on subsequent runs.
func EnsureStore(path string, feed models.FeedInfo) (*Store, bool, error) {
	version := readSchemaVersion(path)
	if version >= MinSchemaVersion {
		db, err := open(path)
		if err != nil {
			return nil, false, err
		}
		return &Store{db: db, path: path}, false, nil
	}

	log.Printf("Store: schema version %d is below minimum %d; rebuilding store %s", version, MinSchemaVersion, path)
	removeStoreFiles(path)

	db, err := open(path)
	if err != nil {
		return nil, false, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, false, err
	}

	now := time.Now().Unix()
	if _, err := db.Exec(`INSERT INTO store_meta (id, schema_version, created_at) VALUES (1, ?, ?)`, MinSchemaVersion, now); err != nil {
		db.Close()
		return nil, false, err
	}
	if _, err := db.Exec(`INSERT INTO feed_info (id, name, vendor, home, last_update) VALUES (1, ?, ?, ?, 0)`,
		feed.Name, feed.Vendor, feed.Home); err != nil {
		db.Close()
		return nil, false, err
	}

	log.Printf("Store: initialized store %s at schema version %d", path, MinSchemaVersion)
	return &Store{db: db, path: path}, true, nil
}

// readSchemaVersion reports the store's declared schema version. "No store"
// and "unreadable store" are deliberately indistinguishable here; both come
// back as 0 and trigger a rebuild.
func readSchemaVersion(path string) int {
	if _, err := os.Stat(path); err != nil {
		return 0
	}
	db, err := open(path)
	if err != nil {
		log.Printf("Store: cannot open %s to read schema version: %v; treating as version 0", path, err)
		return 0
	}
	defer db.Close()

	var version int
	if err := db.Get(&version, `SELECT schema_version FROM store_meta WHERE id = 1`); err != nil {
		log.Printf("Store: cannot read schema version from %s: %v; treating as version 0", path, err)
		return 0
	}
	return version
}

// removeStoreFiles deletes the store file and its WAL siblings.
func removeStoreFiles(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("WARN Store: failed to remove %s during rebuild: %v", p, err)
		}
	}
}

// SchemaVersion reports the version recorded in the open store.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.db.Get(&version, `SELECT schema_version FROM store_meta WHERE id = 1`)
	return version, err
}

// ReferenceDate is the most recent modification time among cached advisories,
// used to bound how far back staged documents need to be considered new. With
// an empty store it is the epoch.
func (s *Store) ReferenceDate() (time.Time, error) {
	var max int64
	if err := s.db.Get(&max, `SELECT COALESCE(MAX(modification_time), 0) FROM advisories`); err != nil {
		return time.Time{}, err
	}
	return time.Unix(max, 0).UTC(), nil
}

// Close closes the underlying store handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path reports the store file location.
func (s *Store) Path() string {
	return s.path
}
