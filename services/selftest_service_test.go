// services/selftest_service_test.go
package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPrerequisitesPass(t *testing.T) {
	caps := CheckPrerequisites(testConfig(t))
	require.Len(t, caps, 3)
	for _, c := range caps {
		assert.True(t, c.OK, "%s: %s", c.Name, c.Detail)
	}
}

func TestCheckPrerequisitesFailOnBadStaging(t *testing.T) {
	cfg := testConfig(t)

	// Nest the staging path under a regular file so no usable ancestor
	// directory exists.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Paths.Staging = filepath.Join(blocker, "feed")
	cfg.Paths.Store = filepath.Join(blocker, "feed", "advisories.db")

	failed := 0
	for _, c := range CheckPrerequisites(cfg) {
		if !c.OK {
			failed++
		}
	}
	assert.Equal(t, 2, failed, "staging tree and store location both fail")
}

func TestRunSelfTest(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, RunSelfTest(cfg))

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Paths.Staging = filepath.Join(blocker, "feed")

	err := RunSelfTest(cfg)
	assert.ErrorIs(t, err, ErrFatalPrerequisite)
}

func TestSelfTestIsReadOnly(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, RunSelfTest(cfg))

	entries, err := os.ReadDir(cfg.Paths.Staging)
	require.NoError(t, err)
	assert.Empty(t, entries, "the self-test leaves nothing behind")
	assert.NoFileExists(t, cfg.Paths.Store)
}

func TestRunLockExclusive(t *testing.T) {
	cfg := testConfig(t)

	lock, err := acquireRunLock(cfg.LockPath())
	require.NoError(t, err)

	_, err = acquireRunLock(cfg.LockPath())
	assert.ErrorIs(t, err, ErrSyncAlreadyInProgress)

	lock.release()
	lock, err = acquireRunLock(cfg.LockPath())
	require.NoError(t, err)
	lock.release()
}
