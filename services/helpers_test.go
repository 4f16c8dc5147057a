// services/helpers_test.go
package services

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gewnthar/advsync/config"
	"github.com/gewnthar/advsync/database"
	"github.com/gewnthar/advsync/models"
)

// testConfig builds a run configuration rooted in a throwaway staging tree.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	staging := filepath.Join(root, "feed")
	require.NoError(t, os.MkdirAll(staging, 0o755))

	return &config.Config{
		Enabled: true,
		Log: config.LogConfig{
			Dir:  filepath.Join(root, "log"),
			File: "advsync.log",
		},
		Feed: config.FeedConfig{
			Name:        "Test Feed",
			Vendor:      "Testing",
			Home:        "https://feed.test",
			VersionFile: "timestamp",
		},
		Paths: config.PathsConfig{
			Staging:    staging,
			Store:      filepath.Join(staging, "advisories.db"),
			Private:    "private",
			Marker:     filepath.Join(staging, ".last_sync"),
			Credential: filepath.Join(root, "access.key"),
		},
		Mirror: config.MirrorConfig{Delete: true},
		Selectors: config.SelectorsConfig{
			Item:     "article.advisory",
			Title:    "h1",
			Severity: ".severity",
			Summary:  ".summary",
		},
	}
}

// openStore opens (building if needed) the configured store.
func openStore(t *testing.T, cfg *config.Config) *database.Store {
	t.Helper()
	store, _, err := database.EnsureStore(cfg.Paths.Store, models.FeedInfo{
		Name: cfg.Feed.Name, Vendor: cfg.Feed.Vendor, Home: cfg.Feed.Home,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// advisoryHTML renders a one-item advisory digest document.
func advisoryHTML(id string, modified time.Time, title string) string {
	return fmt.Sprintf(`<html><body>
<article class="advisory" data-id=%q data-modified=%q>
  <h1>%s</h1>
  <p class="severity">high</p>
  <div class="summary">summary of %s</div>
</article>
</body></html>`, id, modified.UTC().Format(time.RFC3339), title, id)
}

// writeDoc stages a document and backdates its file timestamp.
func writeDoc(t *testing.T, cfg *config.Config, name, html string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(cfg.Paths.Staging, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}
