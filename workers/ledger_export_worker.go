// workers/ledger_export_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sweeps-settlement-system/models"
	"sweeps-settlement-system/services"
)

// ObjectStore receives finished export files.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// LedgerExporter ships the wallet transaction log to object storage as JSON
// lines, one file per batch, resuming from a cursor kept in the database.
type LedgerExporter struct {
	db     *gorm.DB
	store  ObjectStore
	name   string
	prefix string
	batch  int
	// lag keeps the exporter behind the newest rows. Ids are handed out before
	// commit, so a young row with a lower id may still become visible.
	// created_at is stamped when the transaction starts, so ids and
	// timestamps need not share an order.
	lag time.Duration
	now func() time.Time
}

func NewLedgerExporter(db *gorm.DB, store ObjectStore, prefix string, batch int) *LedgerExporter {
	if batch <= 0 {
		batch = 5000
	}
	return &LedgerExporter{
		db:     db,
		store:  store,
		name:   "wallet_transactions",
		prefix: prefix,
		batch:  batch,
		lag:    time.Minute,
		now:    time.Now,
	}
}

func (e *LedgerExporter) cursor(ctx context.Context) (models.LedgerExportCursor, error) {
	var cur models.LedgerExportCursor
	err := e.db.WithContext(ctx).Where("name = ?", e.name).First(&cur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.LedgerExportCursor{Name: e.name}, nil
	}
	return cur, err
}

// ExportOnce writes at most one batch and reports how many rows it shipped.
func (e *LedgerExporter) ExportOnce(ctx context.Context) (int, error) {
	cur, err := e.cursor(ctx)
	if err != nil {
		return 0, fmt.Errorf("load export cursor: %w", err)
	}

	now := e.now().UTC()
	var rows []models.WalletTransaction
	if err := e.db.WithContext(ctx).
		Where("id > ?", cur.LastID).
		Order("id ASC").
		Limit(e.batch).
		Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("read ledger: %w", err)
	}
	// stop at the first young row; anything after it waits for the next run
	// so the cursor never passes an id that has not been shipped
	cutoff := now.Add(-e.lag)
	for i := range rows {
		if rows[i].CreatedAt.After(cutoff) {
			rows = rows[:i]
			break
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			return 0, fmt.Errorf("encode ledger row %d: %w", rows[i].ID, err)
		}
	}

	first, last := rows[0].ID, rows[len(rows)-1].ID
	key := fmt.Sprintf("%s/%s/%020d-%020d.jsonl", e.prefix, now.Format("2006/01/02"), first, last)
	if err := e.store.PutObject(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return 0, err
	}

	// the object is written before the cursor moves; a crash in between
	// re-exports the same range under the same key
	cur.LastID = last
	cur.ObjectKey = key
	if err := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_id", "object_key", "updated_at"}),
	}).Create(&cur).Error; err != nil {
		return 0, fmt.Errorf("advance export cursor: %w", err)
	}

	log.WithFields(log.Fields{"rows": len(rows), "key": key}).Info("📦 ledger batch exported")
	return len(rows), nil
}

// Run exports batches until the log is drained or ctx ends.
func (e *LedgerExporter) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		n, err := e.ExportOnce(ctx)
		if err != nil {
			return err
		}
		// a short batch means the log is drained or cut at a young row
		if n < e.batch {
			return nil
		}
	}
	return ctx.Err()
}

// Job wraps Run for the scheduler.
func (e *LedgerExporter) Job(every time.Duration) services.Job {
	return services.Job{Name: "ledger-export", Every: every, Run: e.Run}
}
