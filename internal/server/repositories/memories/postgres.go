package memories

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/dbx"
	"github.com/dmitrijs2005/heartwall/internal/server/models"
)

// PostgresRepository implements memory storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const pgColumns = `id, image_url, full_image_url, image_key, full_image_key, nickname, message, created_at`

func (r *PostgresRepository) Create(ctx context.Context, rec *models.MemoryRecord) error {
	query := `
		INSERT INTO memories (image_url, full_image_url, image_key, full_image_key, nickname, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.ImageURL, rec.FullImageURL, rec.ImageKey, rec.FullImageKey, rec.Nickname, rec.Message, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.MemoryRecord, error) {
	query := `SELECT ` + pgColumns + ` FROM memories ORDER BY created_at DESC, id DESC`
	return r.query(ctx, query)
}

func (r *PostgresRepository) ListBefore(ctx context.Context, t time.Time, id int64, limit int) ([]*models.MemoryRecord, error) {
	query := `SELECT ` + pgColumns + ` FROM memories WHERE (created_at, id) < ($1, $2) ORDER BY created_at DESC, id DESC LIMIT $3`
	return r.query(ctx, query, t, id, limit)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.MemoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select memories: %w", err)
	}
	defer rows.Close()

	result := make([]*models.MemoryRecord, 0)
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanPostgres(s scanner) (*models.MemoryRecord, error) {
	var rec models.MemoryRecord
	if err := s.Scan(&rec.ID, &rec.ImageURL, &rec.FullImageURL, &rec.ImageKey, &rec.FullImageKey,
		&rec.Nickname, &rec.Message, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
