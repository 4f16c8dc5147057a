// config/credentials_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredential(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "access.key")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolveCredential(t *testing.T) {
	path := writeCredential(t, "CUSTOMER_ID=cust-4711\nFEED_REPO=https://feed.example.com/advisories\n")

	cred, err := ResolveCredential(path)
	require.NoError(t, err)
	assert.Equal(t, "cust-4711", cred.CustomerID)
	assert.Equal(t, "https", cred.Repository.Scheme)
	assert.Equal(t, "feed.example.com", cred.Repository.Host)
}

func TestResolveCredentialMissingFile(t *testing.T) {
	_, err := ResolveCredential(filepath.Join(t.TempDir(), "absent.key"))
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestResolveCredentialMissingKeys(t *testing.T) {
	path := writeCredential(t, "CUSTOMER_ID=cust-4711\n")
	_, err := ResolveCredential(path)
	assert.ErrorIs(t, err, ErrMalformedCredential)
}

func TestResolveCredentialBadRepository(t *testing.T) {
	for _, repo := range []string{"ftp://feed.example.com", "not a url", "/just/a/path"} {
		path := writeCredential(t, "CUSTOMER_ID=c\nFEED_REPO="+repo+"\n")
		_, err := ResolveCredential(path)
		assert.ErrorIs(t, err, ErrMalformedCredential, repo)
	}
}
