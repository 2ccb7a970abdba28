// Package memories persists MemoryRecord metadata. Implementations work
// over a dbx.DBTX so they can run inside a transaction.
package memories

import (
	"context"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/server/models"
)

type Repository interface {
	// Create inserts rec and sets rec.ID to the assigned key.
	Create(ctx context.Context, rec *models.MemoryRecord) error
	// List returns every record, newest first.
	List(ctx context.Context) ([]*models.MemoryRecord, error)
	// ListBefore returns up to limit records that sort after the cursor
	// (t, id) in newest-first order. An id of 0 selects records created
	// strictly before t.
	ListBefore(ctx context.Context, t time.Time, id int64, limit int) ([]*models.MemoryRecord, error)
}

type scanner interface {
	Scan(dest ...any) error
}
