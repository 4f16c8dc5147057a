// mirror/manifest_test.go
package mirror

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodDigest = "a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3"

func TestParseManifest(t *testing.T) {
	csv := "file,modified,sha256,size\n" +
		"2026/march.html," + "2026-03-01T00:00:00Z," + goodDigest + ",1234\n" +
		"timestamp," + "2026-03-02T12:30:00Z," + goodDigest + ",12\n"

	entries, err := ParseManifest(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "2026/march.html", entries[0].File)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), entries[0].Modified.UTC())
	assert.Equal(t, goodDigest, entries[0].SHA256)
	assert.Equal(t, int64(1234), entries[0].Size)
}

func TestParseManifestRejectsUnsafePaths(t *testing.T) {
	for _, bad := range []string{"../escape.html", "a/../../escape.html", "/etc/passwd"} {
		csv := "file,modified,sha256,size\n" + bad + ",2026-03-01T00:00:00Z," + goodDigest + ",1\n"
		_, err := ParseManifest(strings.NewReader(csv))
		assert.Error(t, err, bad)
	}
}

func TestParseManifestRejectsBadDigest(t *testing.T) {
	csv := "file,modified,sha256,size\na.html,2026-03-01T00:00:00Z,deadbeef,1\n"
	_, err := ParseManifest(strings.NewReader(csv))
	assert.Error(t, err)
}

func TestParseManifestRejectsBadTimestamp(t *testing.T) {
	csv := "file,modified,sha256,size\na.html,not-a-time," + goodDigest + ",1\n"
	_, err := ParseManifest(strings.NewReader(csv))
	assert.Error(t, err)
}
