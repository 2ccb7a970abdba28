package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/heartwall/internal/common"
	"github.com/dmitrijs2005/heartwall/internal/dbx"
	"github.com/dmitrijs2005/heartwall/internal/logging"
	"github.com/dmitrijs2005/heartwall/internal/server/models"
	"github.com/dmitrijs2005/heartwall/internal/server/repositories/memories"
	"github.com/dmitrijs2005/heartwall/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// -------- test fakes --------

type fakeBlobs struct {
	mu      sync.Mutex
	puts    []string
	failKey string
	err     error
}

func (f *fakeBlobs) Backend() string { return "fake" }

func (f *fakeBlobs) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, key)
	if f.err != nil && (f.failKey == "" || strings.HasSuffix(key, f.failKey)) {
		return "", f.err
	}
	return "http://blobs/" + key, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	recs []*models.MemoryRecord
}

func (f *fakePublisher) Publish(_ context.Context, rec *models.MemoryRecord) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return 1
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

type failingRepo struct {
	memories.Repository
	err error
}

func (f failingRepo) Create(context.Context, *models.MemoryRecord) error { return f.err }

type failingManager struct {
	repomanager.RepositoryManager
	err error
}

func (m failingManager) Memories(db dbx.DBTX) memories.Repository {
	return failingRepo{Repository: m.RepositoryManager.Memories(db), err: m.err}
}

func newSQLiteService(t *testing.T, blobs *fakeBlobs, pub Publisher) (*MemoryService, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	rm := &repomanager.SQLiteRepositoryManager{}
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	return NewMemoryService(db, rm, blobs, pub, logging.Nop()), db
}

func jpegUpload(data string) *models.Upload {
	return &models.Upload{Filename: "heart.jpg", ContentType: "image/jpeg", Data: []byte(data)}
}

// -------- tests --------

func TestCreate_PersistsAndPublishes(t *testing.T) {
	blobs := &fakeBlobs{}
	pub := &fakePublisher{}
	svc, _ := newSQLiteService(t, blobs, pub)

	rec, err := svc.Create(context.Background(), &models.Submission{
		Cropped:  jpegUpload("cropped"),
		Full:     jpegUpload("full"),
		Nickname: "  Mina ",
		Message:  "Coffee with you",
	})
	require.NoError(t, err)

	assert.NotZero(t, rec.ID)
	assert.Equal(t, "Mina", rec.Nickname)
	assert.Equal(t, "Coffee with you", rec.Message)
	assert.True(t, strings.HasSuffix(rec.ImageURL, "-cropped.jpg"))
	assert.True(t, strings.HasSuffix(rec.FullImageURL, "-full.jpg"))
	assert.True(t, strings.HasPrefix(rec.ImageKey, "uploads/"))
	assert.Len(t, blobs.puts, 2)
	require.Equal(t, 1, pub.count())
	assert.Equal(t, rec.ID, pub.recs[0].ID)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)
	assert.True(t, rec.CreatedAt.Equal(list[0].CreatedAt))
}

func TestCreate_FullFallsBackToCropped(t *testing.T) {
	for name, full := range map[string]*models.Upload{
		"absent":    nil,
		"identical": jpegUpload("same"),
		"empty":     {ContentType: "image/jpeg"},
	} {
		t.Run(name, func(t *testing.T) {
			blobs := &fakeBlobs{}
			svc, _ := newSQLiteService(t, blobs, nil)

			rec, err := svc.Create(context.Background(), &models.Submission{
				Cropped: jpegUpload("same"),
				Full:    full,
				Message: "hi",
			})
			require.NoError(t, err)
			assert.Equal(t, rec.ImageURL, rec.FullImageURL)
			assert.Equal(t, rec.ImageKey, rec.FullImageKey)
			assert.Len(t, blobs.puts, 1)
		})
	}
}

func TestCreate_ValidationNeverTouchesStorage(t *testing.T) {
	tests := []struct {
		name string
		sub  *models.Submission
		want error
	}{
		{"missing cropped", &models.Submission{Message: "hi"}, common.ErrMissingArtifact},
		{"empty cropped", &models.Submission{Cropped: jpegUpload(""), Message: "hi"}, common.ErrEmptyArtifact},
		{"empty message", &models.Submission{Cropped: jpegUpload("x"), Message: "   "}, common.ErrEmptyMessage},
		{"long message", &models.Submission{Cropped: jpegUpload("x"), Message: strings.Repeat("m", 31)}, common.ErrMessageTooLong},
		{"long nickname", &models.Submission{Cropped: jpegUpload("x"), Message: "m", Nickname: strings.Repeat("n", 11)}, common.ErrNicknameTooLong},
		{"not image", &models.Submission{Cropped: &models.Upload{ContentType: "text/plain", Data: []byte("x")}, Message: "m"}, common.ErrNotImage},
		{"full not image", &models.Submission{Cropped: jpegUpload("x"), Full: &models.Upload{ContentType: "application/pdf", Data: []byte("y")}, Message: "m"}, common.ErrNotImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			blobs := &fakeBlobs{}
			pub := &fakePublisher{}
			svc := NewMemoryService(db, &repomanager.PostgresRepositoryManager{}, blobs, pub, logging.Nop())

			_, err = svc.Create(context.Background(), tt.sub)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, blobs.puts)
			assert.Zero(t, pub.count())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreate_MessageExactly30Accepted(t *testing.T) {
	svc, _ := newSQLiteService(t, &fakeBlobs{}, nil)
	_, err := svc.Create(context.Background(), &models.Submission{
		Cropped: jpegUpload("x"),
		Message: strings.Repeat("m", 30),
	})
	assert.NoError(t, err)
}

func TestCreate_CroppedBlobFailureAbortsBeforeMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("bucket down")
	blobs := &fakeBlobs{err: boom}
	pub := &fakePublisher{}
	svc := NewMemoryService(db, &repomanager.PostgresRepositoryManager{}, blobs, pub, logging.Nop())

	_, err = svc.Create(context.Background(), &models.Submission{Cropped: jpegUpload("c"), Full: jpegUpload("f"), Message: "m"})
	assert.ErrorIs(t, err, common.ErrBlobWrite)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, blobs.puts, 1)
	assert.Zero(t, pub.count())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_FullBlobFailureAbortsBeforeMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	blobs := &fakeBlobs{err: errors.New("quota"), failKey: "-full.jpg"}
	svc := NewMemoryService(db, &repomanager.PostgresRepositoryManager{}, blobs, nil, logging.Nop())

	_, err = svc.Create(context.Background(), &models.Submission{Cropped: jpegUpload("c"), Full: jpegUpload("f"), Message: "m"})
	assert.ErrorIs(t, err, common.ErrBlobWrite)
	assert.Len(t, blobs.puts, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_MetadataFailureIsNeverSurfaced(t *testing.T) {
	blobs := &fakeBlobs{}
	pub := &fakePublisher{}
	svc, _ := newSQLiteService(t, blobs, pub)
	svc.repomanager = failingManager{RepositoryManager: svc.repomanager, err: errors.New("disk full")}

	_, err := svc.Create(context.Background(), &models.Submission{Cropped: jpegUpload("c"), Message: "m"})
	assert.ErrorIs(t, err, common.ErrMetadataWrite)
	assert.Len(t, blobs.puts, 1, "blob was written before the failure")
	assert.Zero(t, pub.count(), "failed record must not be broadcast")

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "failed record must not be visible to history")
}

func TestCreate_CommitFailureIsNeverSurfaced(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO memories`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	pub := &fakePublisher{}
	svc := NewMemoryService(db, &repomanager.PostgresRepositoryManager{}, &fakeBlobs{}, pub, logging.Nop())

	_, err = svc.Create(context.Background(), &models.Submission{Cropped: jpegUpload("c"), Message: "m"})
	assert.ErrorIs(t, err, common.ErrMetadataWrite)
	assert.Zero(t, pub.count())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RetryGetsNewIdentity(t *testing.T) {
	svc, _ := newSQLiteService(t, &fakeBlobs{}, nil)
	sub := func() *models.Submission { return &models.Submission{Cropped: jpegUpload("c"), Message: "again"} }

	a, err := svc.Create(context.Background(), sub())
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), sub())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.ImageKey, b.ImageKey)
}

func TestList_NewestFirst(t *testing.T) {
	svc, _ := newSQLiteService(t, &fakeBlobs{}, nil)
	base := time.Date(2024, 2, 14, 8, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	for _, m := range []string{"first", "second", "third"} {
		_, err := svc.Create(context.Background(), &models.Submission{Cropped: jpegUpload(m), Message: m})
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{list[0].Message, list[1].Message, list[2].Message})

	page, err := svc.ListPage(context.Background(), list[0].CreatedAt, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0].Message)

	all, err := svc.ListPage(context.Background(), time.Time{}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListPage_CursorSplitsSameTimestamp(t *testing.T) {
	svc, _ := newSQLiteService(t, &fakeBlobs{}, nil)
	fixed := time.Date(2024, 2, 14, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	for _, m := range []string{"a", "b", "c"} {
		_, err := svc.Create(context.Background(), &models.Submission{Cropped: jpegUpload(m), Message: m})
		require.NoError(t, err)
	}

	first, err := svc.ListPage(context.Background(), time.Time{}, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "c", first[0].Message)
	assert.Equal(t, "b", first[1].Message)

	last := first[1]
	rest, err := svc.ListPage(context.Background(), last.CreatedAt, last.ID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "a", rest[0].Message)
}

func TestList_EmptyHistory(t *testing.T) {
	svc, _ := newSQLiteService(t, &fakeBlobs{}, nil)
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestList_RepositoryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(`SELECT`).WillReturnError(sql.ErrConnDone)

	svc := NewMemoryService(db, &repomanager.PostgresRepositoryManager{}, &fakeBlobs{}, nil, logging.Nop())
	_, err = svc.List(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpg", extension(&models.Upload{ContentType: "image/jpeg"}))
	assert.Equal(t, ".png", extension(&models.Upload{ContentType: "image/png; q=1"}))
	assert.Equal(t, ".heic", extension(&models.Upload{ContentType: "image/heic", Filename: "IMG.HEIC"}))
}
