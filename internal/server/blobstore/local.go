package blobstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/heartwall/internal/filex"
)

// LocalStore keeps blobs on the server's filesystem. The HTTP layer serves
// Dir under PublicBaseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("blob dir: %w", err)
	}
	return &LocalStore{dir: abs, baseURL: publicBaseURL}, nil
}

func (s *LocalStore) Backend() string { return BackendLocal }

// Dir is the absolute root directory.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + key)
	if strings.Contains(key, "..") || clean == "/" {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	path := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := filex.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write blob %s: %w", key, err)
	}
	return joinURL(s.baseURL, key), nil
}
