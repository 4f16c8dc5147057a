// database/schema_test.go
package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/advsync/models"
)

var testFeed = models.FeedInfo{Name: "Test Feed", Vendor: "Testing", Home: "https://feed.test"}

func testItem(id string, modified time.Time) models.AdvisoryItem {
	return models.AdvisoryItem{
		ID:       id,
		Title:    "Title for " + id,
		Severity: "high",
		Summary:  "Summary for " + id,
		Modified: modified,
	}
}

func TestEnsureStoreCreatesFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisories.db")

	store, rebuilt, err := EnsureStore(path, testFeed)
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, rebuilt, "a missing store must be built from scratch")

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, MinSchemaVersion, version)

	last, err := store.LastUpdate()
	require.NoError(t, err)
	assert.Zero(t, last, "a fresh store has no watermark")

	ref, err := store.ReferenceDate()
	require.NoError(t, err)
	assert.Equal(t, time.Unix(0, 0).UTC(), ref, "empty store yields the epoch reference date")

	info, err := store.FeedInfo()
	require.NoError(t, err)
	assert.Equal(t, "Test Feed", info.Name)
	assert.Equal(t, "Testing", info.Vendor)
}

func TestEnsureStoreReopensCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisories.db")

	store, _, err := EnsureStore(path, testFeed)
	require.NoError(t, err)
	_, err = store.ApplyDocument("a.html", []models.AdvisoryItem{testItem("ADV-1", time.Now())})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, rebuilt, err := EnsureStore(path, testFeed)
	require.NoError(t, err)
	defer store.Close()

	assert.False(t, rebuilt, "a current store must not be rebuilt")
	n, err := store.CountAdvisories()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "cached records survive a reopen")
}

func TestEnsureStoreRebuildsOldVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisories.db")

	store, _, err := EnsureStore(path, testFeed)
	require.NoError(t, err)
	_, err = store.ApplyDocument("a.html", []models.AdvisoryItem{testItem("ADV-1", time.Now())})
	require.NoError(t, err)
	_, err = store.db.Exec(`UPDATE store_meta SET schema_version = 0`)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, rebuilt, err := EnsureStore(path, testFeed)
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, rebuilt, "version 0 must trigger a rebuild")
	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, MinSchemaVersion, version)

	n, err := store.CountAdvisories()
	require.NoError(t, err)
	assert.Zero(t, n, "rebuilds discard all cached records")
}

func TestEnsureStoreRebuildsUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisories.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite file"), 0o644))

	store, rebuilt, err := EnsureStore(path, testFeed)
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, rebuilt, "an unreadable store is treated the same as a missing one")
	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, MinSchemaVersion, version)
}
