// database/connection.go
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

// open opens the sqlite store file and verifies the connection. The store is
// accessed by exactly one invocation at a time, so a single connection is
// enough and keeps write serialization trivial.
func open(storePath string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory for %s: %w", storePath, err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", storePath)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", storePath, err)
	}

	db.SetMaxOpenConns(1)
	return db, nil
}
