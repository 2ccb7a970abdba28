package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/client/api"
	"github.com/dmitrijs2005/heartwall/internal/client/config"
	"github.com/dmitrijs2005/heartwall/internal/client/gallery"
	"github.com/dmitrijs2005/heartwall/internal/client/models"
	"github.com/dmitrijs2005/heartwall/internal/client/services"
	"github.com/dmitrijs2005/heartwall/internal/common"
	"github.com/dmitrijs2005/heartwall/internal/logging"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC)

type fakeServer struct {
	mu        sync.Mutex
	history   []models.Memory
	fetchErr  error
	uploadErr error
	pingErr   error
	uploads   []api.UploadRequest
	nextID    int64
	// onUpload runs before Upload answers, outside the lock.
	onUpload func()
}

func (f *fakeServer) FetchHistory(ctx context.Context) ([]models.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]models.Memory(nil), f.history...), nil
}

func (f *fakeServer) Upload(ctx context.Context, in api.UploadRequest) (*models.UploadResponse, error) {
	if f.onUpload != nil {
		f.onUpload()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, in)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.nextID++
	rec := models.Memory{ID: 100 + f.nextID, Nickname: in.Nickname, Message: in.Message,
		ImageURL: "http://b/c.jpg", FullImageURL: "http://b/f.jpg", CreatedAt: t0.Add(time.Hour)}
	return &models.UploadResponse{Message: common.UploadSuccessMessage, Data: &rec}, nil
}

func (f *fakeServer) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeServer) setPingErr(err error) {
	f.mu.Lock()
	f.pingErr = err
	f.mu.Unlock()
}

func noDial(ctx context.Context) (services.Stream, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestApp(t *testing.T, srv *fakeServer, in string) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PreviewDir = t.TempDir()
	cfg.OnlineCheckInterval = time.Hour

	svc := services.NewGalleryService(srv, noDial, gallery.New(), logging.Nop(), time.Millisecond)
	return newApp(cfg, svc, srv, logging.Nop(), strings.NewReader(in))
}

// captureOutput swaps the print seams and returns a function reading what
// was printed so far.
func captureOutput(t *testing.T) func() string {
	t.Helper()
	var (
		mu  sync.Mutex
		buf bytes.Buffer
	)
	origPrintln, origPrint := printlnFn, printFn
	printlnFn = func(a ...any) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return fmt.Fprintln(&buf, a...)
	}
	printFn = func(a ...any) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return fmt.Fprint(&buf, a...)
	}
	t.Cleanup(func() { printlnFn, printFn = origPrintln, origPrint })
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return buf.String()
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func stubReadFile(t *testing.T, files map[string][]byte) {
	t.Helper()
	orig := readFile
	readFile = func(name string) ([]byte, error) {
		if data, ok := files[name]; ok {
			return data, nil
		}
		return nil, errors.New("open " + name + ": no such file or directory")
	}
	t.Cleanup(func() { readFile = orig })
}
