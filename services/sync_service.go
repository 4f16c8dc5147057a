// services/sync_service.go
package services

import (
	"fmt"
	"log"
	"time"

	"github.com/gewnthar/advsync/config"
	"github.com/gewnthar/advsync/database"
	"github.com/gewnthar/advsync/mirror"
	"github.com/gewnthar/advsync/models"
)

// SyncService orchestrates a full run. Each stage runs to completion before
// the next begins: credential + prerequisites gate startup, the mirror
// populates staging, the schema guard ensures store compatibility, and the
// incremental applier reconciles staging against the store.
type SyncService struct {
	cfg *config.Config
}

func NewSyncService(cfg *config.Config) *SyncService {
	return &SyncService{cfg: cfg}
}

// Run performs one sync. With skipTransport the mirror pull is left out and
// only the update step runs against whatever is already staged (--refresh).
// The whole run holds the exclusive run lock; a concurrent invocation fails
// fast with ErrSyncAlreadyInProgress.
func (s *SyncService) Run(skipTransport bool) error {
	if !s.cfg.Enabled {
		log.Printf("Service: synchronization is disabled by configuration; nothing to do")
		return nil
	}

	lock, err := acquireRunLock(s.cfg.LockPath())
	if err != nil {
		return err
	}
	defer lock.release()

	for _, capability := range CheckPrerequisites(s.cfg) {
		if !capability.OK {
			return fmt.Errorf("%w: %s: %s", ErrFatalPrerequisite, capability.Name, capability.Detail)
		}
	}

	if !skipTransport {
		cred, err := config.ResolveCredential(s.cfg.Paths.Credential)
		if err != nil {
			return err
		}
		log.Printf("Service: pulling feed for customer %s from %s", cred.CustomerID, cred.Repository.Redacted())

		transport, err := mirror.NewTransport(s.cfg, cred)
		if err != nil {
			return err
		}
		if _, err := transport.Sync(); err != nil {
			// Store untouched: the transport fails before any later stage runs.
			return err
		}
	} else {
		log.Printf("Service: transport skipped, applying updates from the existing staging tree")
	}

	store, rebuilt, err := database.EnsureStore(s.cfg.Paths.Store, models.FeedInfo{
		Name:   s.cfg.Feed.Name,
		Vendor: s.cfg.Feed.Vendor,
		Home:   s.cfg.Feed.Home,
	})
	if err != nil {
		return err
	}
	defer store.Close()
	if rebuilt {
		log.Printf("Service: store was rebuilt; all staged documents will be reapplied from scratch")
	}

	applied, skipped, err := NewUpdater(s.cfg, store).Apply(time.Now())
	if err != nil {
		return err
	}

	log.Printf("Service: sync finished: %d record(s) applied, %d document(s) skipped", applied, skipped)
	return nil
}
