package utils

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/cartpix/cartpix/models"
	"github.com/cartpix/cartpix/storage"
)

// sweepBatchSize caps how many ledger rows one sweep inspects.
const sweepBatchSize = 100

// SweepOrphans reclaims stored attachments whose cart session lapsed without
// a checkout: unclaimed ledger rows past their expiry get their file and row
// deleted. Rows claimed by a placed order are never touched. A file that is
// already gone still releases its row; a file that cannot be deleted keeps
// its row so the next sweep retries. Returns the number of reclaimed rows.
func SweepOrphans(db *gorm.DB, store storage.Storage) (int, error) {
	var items []models.StoredUpload
	if err := db.Where("claimed = ? AND expire_at <= ?", false, time.Now()).
		Limit(sweepBatchSize).Find(&items).Error; err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, it := range items {
		if err := store.Delete(it.FileName); err != nil && !errors.Is(err, storage.ErrNotFound) {
			if Sugar != nil {
				Sugar.Errorf("orphan sweep: delete %s failed: %v", it.FileName, err)
			}
			continue
		}
		if err := db.Delete(&models.StoredUpload{}, it.ID).Error; err != nil {
			if Sugar != nil {
				Sugar.Warnf("orphan sweep: delete row %d failed: %v", it.ID, err)
			}
			continue
		}
		reclaimed++
	}
	return reclaimed, nil
}

// StartOrphanCleaner launches a background goroutine that runs SweepOrphans
// on a fixed interval. Best-effort: failures are logged and retried on the
// next sweep.
func StartOrphanCleaner(db *gorm.DB, store storage.Storage, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			if db == nil {
				continue
			}
			n, err := SweepOrphans(db, store)
			if err != nil {
				if Sugar != nil {
					Sugar.Warnf("orphan sweep query failed: %v", err)
				}
				continue
			}
			if n > 0 && Sugar != nil {
				Sugar.Infof("orphan sweep reclaimed %d stored uploads", n)
			}
		}
	}()
}
