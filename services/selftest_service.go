// services/selftest_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gewnthar/advsync/config"
	"github.com/gewnthar/advsync/models"
)

// ErrFatalPrerequisite means a required external capability is missing. A
// real sync aborts on it before any network or disk mutation.
var ErrFatalPrerequisite = errors.New("required capability missing")

// CheckPrerequisites probes the capabilities a sync run depends on. It never
// mutates persistent state, so it is safe as a standalone self-test and safe
// to run concurrently with a sync.
func CheckPrerequisites(cfg *config.Config) []models.Capability {
	return []models.Capability{
		probeStoreEngine(),
		probeWritableTree("staging tree", cfg.Paths.Staging),
		probeWritableTree("store location", filepath.Dir(cfg.Paths.Store)),
	}
}

// RunSelfTest logs every capability's finding and reports failure without
// attempting any synchronization.
func RunSelfTest(cfg *config.Config) error {
	failed := 0
	for _, cap := range CheckPrerequisites(cfg) {
		status := "ok"
		if !cap.OK {
			status = "FAILED"
			failed++
		}
		log.Printf("Selftest: %-16s %s  %s", cap.Name, status, cap.Detail)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d capability check(s) failed", ErrFatalPrerequisite, failed)
	}
	return nil
}

// probeStoreEngine verifies the embedded store engine is functional by
// opening and pinging a throwaway in-memory database.
func probeStoreEngine() models.Capability {
	cap := models.Capability{Name: "store engine"}
	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		cap.Detail = fmt.Sprintf("sqlite engine unavailable: %v", err)
		return cap
	}
	db.Close()
	cap.OK = true
	cap.Detail = "sqlite engine responds"
	return cap
}

// probeWritableTree checks that a directory exists and is writable, or that
// its nearest existing ancestor is, without creating anything persistent.
func probeWritableTree(name, dir string) models.Capability {
	cap := models.Capability{Name: name}

	target := dir
	for {
		info, err := os.Stat(target)
		if err == nil {
			if !info.IsDir() {
				cap.Detail = fmt.Sprintf("%s exists but is not a directory", target)
				return cap
			}
			break
		}
		parent := filepath.Dir(target)
		if parent == target {
			cap.Detail = fmt.Sprintf("no existing ancestor for %s", dir)
			return cap
		}
		target = parent
	}

	probe, err := os.CreateTemp(target, ".advsync-probe-*")
	if err != nil {
		cap.Detail = fmt.Sprintf("%s is not writable: %v", target, err)
		return cap
	}
	probe.Close()
	os.Remove(probe.Name())

	cap.OK = true
	cap.Detail = fmt.Sprintf("%s is writable", target)
	return cap
}
