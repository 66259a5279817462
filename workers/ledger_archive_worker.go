// workers/ledger_archive_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loyalty-club-service/models"
	"loyalty-club-service/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LedgerArchiveWorker snapshots the previous month's ledger entries to the R2
// archive bucket for audit retention. The ledger is append-only, so archiving
// a closed month always produces the same object; re-uploads are idempotent
// overwrites.
type LedgerArchiveWorker struct {
	DB *gorm.DB
}

func NewLedgerArchiveWorker(db *gorm.DB) *LedgerArchiveWorker {
	return &LedgerArchiveWorker{DB: db}
}

// ArchivePreviousMonth serializes last month's entries and uploads them under
// ledger/YYYY-MM.json. Returns the number of entries archived.
func (w *LedgerArchiveWorker) ArchivePreviousMonth(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var entries []models.LedgerEntry
	if err := w.DB.Where("created_at >= ? AND created_at < ?", monthStart, monthEnd).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return 0, fmt.Errorf("failed to load ledger entries for archive: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize ledger archive: %w", err)
	}

	key := fmt.Sprintf("ledger/%s.json", monthStart.Format("2006-01"))
	if err := utils.UploadArchive(ctx, key, data, "application/json"); err != nil {
		return 0, err
	}

	return len(entries), nil
}

// Run archives once a day. Archiving never blocks ledger writes; failures are
// logged and retried on the next tick.
func (w *LedgerArchiveWorker) Run(ctx context.Context, interval time.Duration) {
	log.Info("Starting ledger archive worker…")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Ledger archive worker stopped")
			return
		case <-ticker.C:
			count, err := w.ArchivePreviousMonth(ctx)
			if err != nil {
				log.Errorf("ledger archive failed: %v", err)
				continue
			}
			if count > 0 {
				log.Infof("archived %d ledger entries for previous month", count)
			}
		}
	}
}
