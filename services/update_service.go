// services/update_service.go
package services

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gewnthar/advsync/config"
	"github.com/gewnthar/advsync/database"
	"github.com/gewnthar/advsync/models"
	"github.com/gewnthar/advsync/scraper"
)

// Updater is the incremental update applier. It reconciles the staged corpus
// against the store: staged documents whose file timestamp predates the
// watermark are skipped outright (cheap pre-filter); everything else is
// parsed, and individual advisories are applied only when their own
// modification date is newer than what the store already holds.
type Updater struct {
	cfg   *config.Config
	store *database.Store
}

func NewUpdater(cfg *config.Config, store *database.Store) *Updater {
	return &Updater{cfg: cfg, store: store}
}

// Apply processes every staged document and, once the whole batch has
// committed, advances the watermark to the run's wall-clock time and rewrites
// the last-sync marker file. A failure anywhere leaves the watermark where it
// was so the next run reprocesses the batch.
func (u *Updater) Apply(now time.Time) (applied, skipped int, err error) {
	last, err := u.store.LastUpdate()
	if err != nil {
		return 0, 0, err
	}
	if last == 0 {
		log.Printf("Service: no sync watermark recorded; processing the full staging tree")
	}

	ref, err := u.store.ReferenceDate()
	if err != nil {
		return 0, 0, err
	}

	docs, err := u.stagedDocuments()
	if err != nil {
		return 0, 0, err
	}
	log.Printf("Service: %d staged document(s) found, watermark %d, reference date %s",
		len(docs), last, ref.Format(time.RFC3339))

	for _, doc := range docs {
		if doc.Modified.Unix() < last {
			log.Printf("Service: skipping %s, file timestamp %s predates watermark", doc.Name, doc.Modified.Format(time.RFC3339))
			skipped++
			continue
		}

		items, err := scraper.ParseAdvisoryFile(doc.Path, doc.Name, u.cfg.Selectors)
		if err != nil {
			return applied, skipped, err
		}

		fresh := items[:0:0]
		for _, item := range items {
			if item.Modified.After(ref) {
				fresh = append(fresh, item)
			}
		}
		if len(fresh) < len(items) {
			log.Printf("Service: %s: %d of %d item(s) already captured by a prior sync", doc.Name, len(items)-len(fresh), len(items))
		}

		n, err := u.store.ApplyDocument(doc.Name, fresh)
		if err != nil {
			return applied, skipped, err
		}
		applied += n
	}

	if err := u.store.SetLastUpdate(now.Unix()); err != nil {
		return applied, skipped, err
	}
	if err := u.writeMarker(now); err != nil {
		return applied, skipped, err
	}

	log.Printf("Service: update complete: %d record(s) applied, %d document(s) skipped", applied, skipped)
	return applied, skipped, nil
}

// stagedDocuments walks the staging tree and returns every advisory document,
// excluding the private subtree and the engine's own bookkeeping files. Only
// *.html files are advisory documents; the version marker and any other
// corpus metadata are left to their own consumers.
func (u *Updater) stagedDocuments() ([]models.StagedDocument, error) {
	staging := u.cfg.Paths.Staging
	privateDir := u.cfg.PrivateDir()

	var docs []models.StagedDocument
	err := filepath.WalkDir(staging, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == staging {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if p == privateDir {
				return fs.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".html" && ext != ".htm" {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat staged document %s: %w", p, err)
		}
		rel, err := filepath.Rel(staging, p)
		if err != nil {
			return err
		}
		docs = append(docs, models.StagedDocument{
			Path:     p,
			Name:     filepath.ToSlash(rel),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate staging tree %s: %w", staging, err)
	}
	return docs, nil
}

// writeMarker records the run time in the last-sync marker file.
func (u *Updater) writeMarker(now time.Time) error {
	if err := os.WriteFile(u.cfg.Paths.Marker, []byte(now.UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write last-sync marker: %w", err)
	}
	return nil
}
