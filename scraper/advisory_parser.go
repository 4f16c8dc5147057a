// scraper/advisory_parser.go
package scraper

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gewnthar/advsync/config"
	"github.com/gewnthar/advsync/models"
)

// Staged corpus files are HTML advisory digests: one or more item elements,
// each carrying its identity and modification date as data attributes and its
// descriptive fields in child elements addressed by the configured selectors.
const (
	idAttr       = "data-id"
	modifiedAttr = "data-modified"
)

// acceptedDateLayouts covers what upstream actually publishes in
// data-modified: full RFC 3339 stamps and bare dates.
var acceptedDateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseAdvisoryDocument extracts every advisory item from one staged
// document. Items missing an identity or carrying an unparsable modification
// date are logged and skipped; a malformed item never fails the document.
func ParseAdvisoryDocument(r io.Reader, name string, sel config.SelectorsConfig) ([]models.AdvisoryItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse staged document %s: %w", name, err)
	}

	var items []models.AdvisoryItem
	doc.Find(sel.Item).Each(func(i int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr(idAttr, ""))
		if id == "" {
			log.Printf("WARN Scraper: %s: item %d has no %s attribute; skipping", name, i, idAttr)
			return
		}

		modified, err := parseItemDate(s.AttrOr(modifiedAttr, ""))
		if err != nil {
			log.Printf("WARN Scraper: %s: item %s: %v; skipping", name, id, err)
			return
		}

		items = append(items, models.AdvisoryItem{
			ID:       id,
			Title:    strings.TrimSpace(s.Find(sel.Title).First().Text()),
			Severity: strings.TrimSpace(s.Find(sel.Severity).First().Text()),
			Summary:  strings.TrimSpace(s.Find(sel.Summary).First().Text()),
			Modified: modified,
		})
	})
	return items, nil
}

// ParseAdvisoryFile is ParseAdvisoryDocument for a file on disk.
func ParseAdvisoryFile(path, name string, sel config.SelectorsConfig) ([]models.AdvisoryItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged document %s: %w", name, err)
	}
	defer f.Close()
	return ParseAdvisoryDocument(f, name, sel)
}

func parseItemDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing %s attribute", modifiedAttr)
	}
	for _, layout := range acceptedDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable modification date %q", raw)
}
