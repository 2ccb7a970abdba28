package memories

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/dbx"
	"github.com/dmitrijs2005/heartwall/internal/server/models"
)

// TimeLayout stores timestamps as fixed-width UTC text so that lexical
// order in SQLite equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteRepository implements memory storage for the embedded database.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, rec *models.MemoryRecord) error {
	query := `
		INSERT INTO memories (image_url, full_image_url, image_key, full_image_key, nickname, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.ImageURL, rec.FullImageURL, rec.ImageKey, rec.FullImageKey, rec.Nickname, rec.Message,
		rec.CreatedAt.UTC().Format(TimeLayout),
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.MemoryRecord, error) {
	query := `SELECT ` + pgColumns + ` FROM memories ORDER BY created_at DESC, id DESC`
	return r.query(ctx, query)
}

func (r *SQLiteRepository) ListBefore(ctx context.Context, t time.Time, id int64, limit int) ([]*models.MemoryRecord, error) {
	query := `SELECT ` + pgColumns + ` FROM memories WHERE (created_at, id) < (?, ?) ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.query(ctx, query, t.UTC().Format(TimeLayout), id, limit)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.MemoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select memories: %w", err)
	}
	defer rows.Close()

	result := make([]*models.MemoryRecord, 0)
	for rows.Next() {
		var rec models.MemoryRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.ImageURL, &rec.FullImageURL, &rec.ImageKey, &rec.FullImageKey,
			&rec.Nickname, &rec.Message, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(TimeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
		}
		rec.CreatedAt = t
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
