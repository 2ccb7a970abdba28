// Package blobstore writes derived artifacts to durable object storage and
// returns the public locator readers use to fetch them.
package blobstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/server/metrics"
	"github.com/google/uuid"
)

// Backend names.
const (
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendLocal = "local"
)

// Store accepts (key, bytes, contentType) and returns a stable public URL.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Backend() string
}

// NewKeyBase returns a collision-resistant key prefix partitioned by day,
// e.g. "uploads/2024/02/14/<uuid>". Callers append the artifact suffix.
func NewKeyBase(now time.Time) string {
	d := now.UTC()
	return fmt.Sprintf("uploads/%04d/%02d/%02d/%v", d.Year(), int(d.Month()), d.Day(), uuid.New())
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

type instrumented struct {
	Store
}

// Instrument records a prometheus sample for every Put.
func Instrument(s Store) Store {
	return instrumented{Store: s}
}

func (i instrumented) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	url, err := i.Store.Put(ctx, key, data, contentType)
	metrics.RecordBlobWrite(i.Store.Backend(), len(data), err == nil)
	return url, err
}
