// Package sweeper reclaims uploaded objects that were never attached to a
// report. A submission that fails after its fan-out uploads leaves the
// objects behind; the sweep bounds that leak.
package sweeper

import (
	"context"
	"time"

	"roadeye/database"
	"roadeye/storage"

	"github.com/apex/log"
	"github.com/robfig/cron/v3"
)

// Sweeper deletes stale unattached uploads on a schedule
type Sweeper struct {
	db      *database.Database
	storage storage.ObjectStorage
	ttl     time.Duration
	cron    *cron.Cron
}

// New creates a sweeper
func New(db *database.Database, store storage.ObjectStorage, ttl time.Duration) *Sweeper {
	return &Sweeper{
		db:      db,
		storage: store,
		ttl:     ttl,
		cron:    cron.New(),
	}
}

// Start schedules the sweep with the given cron expression
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.Sweep(context.Background()); err != nil {
			log.Errorf("Orphaned upload sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Infof("Orphaned upload sweep scheduled: %s", schedule)
	return nil
}

// Stop halts the schedule
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep removes every unattached object older than the TTL from storage
// and drops its tracking row
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.ttl)
	keys, err := s.db.StaleUploads(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	swept := 0
	for _, key := range keys {
		if err := s.storage.Remove(ctx, key); err != nil {
			log.Warnf("Failed to remove orphaned object %s: %v", key, err)
			continue
		}
		if err := s.db.DeleteUpload(ctx, key); err != nil {
			log.Warnf("Failed to drop tracking row for %s: %v", key, err)
			continue
		}
		swept++
	}

	log.Infof("Swept %d of %d orphaned uploads", swept, len(keys))
	return nil
}
