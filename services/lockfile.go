// services/lockfile.go
package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrSyncAlreadyInProgress means another invocation holds the run lock. The
// store is not safe under concurrent runs, so the second caller fails fast
// instead of racing on store writes.
var ErrSyncAlreadyInProgress = errors.New("another sync run appears to be in progress")

// runLock is the exclusive advisory lock scoping a whole run. O_EXCL creation
// makes acquisition atomic on every filesystem the staging tree can live on.
type runLock struct {
	path string
}

func acquireRunLock(path string) (*runLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory for run lock: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: lock file %s exists; remove it manually if no other run is active", ErrSyncAlreadyInProgress, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create run lock %s: %w", path, err)
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return &runLock{path: path}, nil
}

func (l *runLock) release() {
	os.Remove(l.path)
}
