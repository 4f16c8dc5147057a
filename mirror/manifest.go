// mirror/manifest.go
package mirror

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/gewnthar/advsync/models"
)

// ManifestName is the corpus index the mirror pulls first. It names every
// file in the remote corpus together with its modification time and sha256
// digest.
const ManifestName = "manifest.csv"

// ParseManifest decodes the corpus manifest. Entries naming unsafe paths
// (absolute, or escaping the staging tree) fail the whole manifest; a
// tampered index must not be able to write outside staging.
func ParseManifest(r io.Reader) ([]models.ManifestEntry, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest header: %w", err)
	}

	var entries []models.ManifestEntry
	for {
		var e models.ManifestEntry
		if err := dec.Decode(&e); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode manifest row: %w", err)
		}
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func validateEntry(e models.ManifestEntry) error {
	if e.File == "" {
		return fmt.Errorf("manifest row with empty file name")
	}
	clean := path.Clean(e.File)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("manifest names unsafe path %q", e.File)
	}
	if len(e.SHA256) != 64 {
		return fmt.Errorf("manifest entry %s carries no usable sha256 digest", e.File)
	}
	return nil
}
