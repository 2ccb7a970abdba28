package services

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/common"
	"github.com/dmitrijs2005/heartwall/internal/dbx"
	"github.com/dmitrijs2005/heartwall/internal/logging"
	"github.com/dmitrijs2005/heartwall/internal/server/blobstore"
	"github.com/dmitrijs2005/heartwall/internal/server/metrics"
	"github.com/dmitrijs2005/heartwall/internal/server/models"
	"github.com/dmitrijs2005/heartwall/internal/server/repositories/repomanager"
)

// Publisher hands a committed record to connected subscribers and returns
// how many received it. It must not block.
type Publisher interface {
	Publish(ctx context.Context, rec *models.MemoryRecord) int
}

// Database is the part of *sql.DB the service needs.
type Database interface {
	dbx.DBTX
	dbx.TxBeginner
}

// DefaultPageSize bounds ListPage when the caller passes no limit.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type MemoryService struct {
	db          Database
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	publisher   Publisher
	logger      logging.Logger
	now         func() time.Time
}

func NewMemoryService(db Database, repomanager repomanager.RepositoryManager, blobs blobstore.Store,
	publisher Publisher, logger logging.Logger) *MemoryService {
	return &MemoryService{
		db:          db,
		repomanager: repomanager,
		blobs:       blobs,
		publisher:   publisher,
		logger:      logger.With("module", "memories"),
		now:         time.Now,
	}
}

// Create stores the artifacts, then the record, then publishes it. The
// record is returned only once the metadata transaction has committed.
// Blobs written before a later failure are left in place and logged.
func (s *MemoryService) Create(ctx context.Context, sub *models.Submission) (*models.MemoryRecord, error) {
	if err := Validate(sub); err != nil {
		metrics.RecordUpload(metrics.OutcomeRejected)
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	base := blobstore.NewKeyBase(now)

	rec := &models.MemoryRecord{
		Nickname:  sub.Nickname,
		Message:   sub.Message,
		CreatedAt: now,
	}

	var err error
	rec.ImageKey = base + "-cropped" + extension(sub.Cropped)
	rec.ImageURL, err = s.blobs.Put(ctx, rec.ImageKey, sub.Cropped.Data, sub.Cropped.ContentType)
	if err != nil {
		metrics.RecordUpload(metrics.OutcomeBlobError)
		return nil, fmt.Errorf("%w: %w", common.ErrBlobWrite, err)
	}

	if sub.Full == nil || bytes.Equal(sub.Full.Data, sub.Cropped.Data) {
		rec.FullImageKey, rec.FullImageURL = rec.ImageKey, rec.ImageURL
	} else {
		rec.FullImageKey = base + "-full" + extension(sub.Full)
		rec.FullImageURL, err = s.blobs.Put(ctx, rec.FullImageKey, sub.Full.Data, sub.Full.ContentType)
		if err != nil {
			s.logOrphans(ctx, err, rec.ImageKey)
			metrics.RecordUpload(metrics.OutcomeBlobError)
			return nil, fmt.Errorf("%w: %w", common.ErrBlobWrite, err)
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Memories(tx).Create(ctx, rec)
	})
	if err != nil {
		s.logOrphans(ctx, err, rec.ImageKey, rec.FullImageKey)
		metrics.RecordUpload(metrics.OutcomeStoreError)
		return nil, fmt.Errorf("%w: %w", common.ErrMetadataWrite, err)
	}

	metrics.RecordUpload(metrics.OutcomeOK)
	s.logger.Info(ctx, "memory saved", "id", rec.ID, "key", rec.ImageKey)

	if s.publisher != nil {
		n := s.publisher.Publish(ctx, rec)
		s.logger.Debug(ctx, "memory published", "id", rec.ID, "subscribers", n)
	}

	return rec, nil
}

func (s *MemoryService) logOrphans(ctx context.Context, cause error, keys ...string) {
	uniq := keys[:0:0]
	for _, k := range keys {
		if k != "" && (len(uniq) == 0 || uniq[len(uniq)-1] != k) {
			uniq = append(uniq, k)
		}
	}
	s.logger.Warn(ctx, "upload failed, blobs left orphaned", "keys", uniq, "error", cause.Error())
}

// List returns every record, newest first.
func (s *MemoryService) List(ctx context.Context) ([]*models.MemoryRecord, error) {
	recs, err := s.repomanager.Memories(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	return recs, nil
}

// ListPage returns up to limit records that follow the cursor
// (before, beforeID) in newest-first order. A zero before means "from the
// newest"; a zero beforeID means strictly before the timestamp.
func (s *MemoryService) ListPage(ctx context.Context, before time.Time, beforeID int64, limit int) ([]*models.MemoryRecord, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if before.IsZero() {
		// Far enough ahead to include every stored record.
		before = s.now().UTC().Add(24 * time.Hour)
		beforeID = 0
	}
	if beforeID < 0 {
		beforeID = 0
	}
	recs, err := s.repomanager.Memories(s.db).ListBefore(ctx, before, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories page: %w", err)
	}
	return recs, nil
}

func extension(u *models.Upload) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(u.ContentType, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if ext := path.Ext(u.Filename); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, _ := mime.ExtensionsByType(u.ContentType); len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}
