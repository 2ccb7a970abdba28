package blobstore

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSOptions configures a Cloud Storage bucket. Endpoint is set only for
// emulators, in which case authentication is disabled.
type GCSOptions struct {
	Bucket        string
	Endpoint      string
	PublicBaseURL string
}

var (
	newGCSClient = storage.NewClient

	openGCSWriter = func(ctx context.Context, obj *storage.ObjectHandle, contentType string) io.WriteCloser {
		w := obj.NewWriter(ctx)
		w.ContentType = contentType
		return w
	}
)

type GCSStore struct {
	client *storage.Client
	opts   GCSOptions
}

func NewGCSStore(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	var clientOpts []option.ClientOption
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication())
	}

	client, err := newGCSClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, opts: opts}, nil
}

func (s *GCSStore) Backend() string { return BackendGCS }

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	obj := s.client.Bucket(s.opts.Bucket).Object(key)
	w := openGCSWriter(ctx, obj, contentType)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", key, err)
	}
	// The object is only committed once Close succeeds.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", key, err)
	}
	return s.URL(key), nil
}

func (s *GCSStore) URL(key string) string {
	if s.opts.PublicBaseURL != "" {
		return joinURL(s.opts.PublicBaseURL, key)
	}
	return joinURL("https://storage.googleapis.com/"+s.opts.Bucket, key)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
