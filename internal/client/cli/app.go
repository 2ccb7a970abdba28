package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/client/api"
	"github.com/dmitrijs2005/heartwall/internal/client/config"
	"github.com/dmitrijs2005/heartwall/internal/client/gallery"
	"github.com/dmitrijs2005/heartwall/internal/client/models"
	"github.com/dmitrijs2005/heartwall/internal/client/services"
	"github.com/dmitrijs2005/heartwall/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config      *config.Config
	svc         *services.GalleryService
	pinger      pinger
	logger      logging.Logger
	in          io.Reader
	interactive bool

	mu       sync.Mutex
	mode     Mode
	nickname string
	seen     map[int64]struct{}
	announce bool
	holding  bool
	held     []models.Memory
}

func NewApp(c *config.Config) (*App, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", c.ServerURL)
	}

	logger := logging.New(c.LogLevel, c.LogFormat, os.Stderr)
	client := api.New(c.ServerURL, c.UploadTimeout)
	svc := services.NewGalleryService(client, services.DialClient(client), gallery.New(), logger, c.ReconnectBackoff)

	a := newApp(c, svc, client, logger, os.Stdin)
	a.interactive = isTerminal(int(os.Stdin.Fd()))
	return a, nil
}

func newApp(c *config.Config, svc *services.GalleryService, p pinger, logger logging.Logger, in io.Reader) *App {
	a := &App{
		config: c,
		svc:    svc,
		pinger: p,
		logger: logger,
		in:     in,
		seen:   make(map[int64]struct{}),
	}
	svc.Gallery().OnChange(a.onGalleryChange)
	return a
}

func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.Root(ctx)
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		log.Printf("Switched to %s mode\n", mode)
	}
}

// StartOnlineStatusWatcher probes the server every interval until ctx ends.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.pinger.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// onGalleryChange prints cards that were not seen before. While an upload
// runs they are held back until its id is known.
func (a *App) onGalleryChange(snap []models.Memory) {
	var fresh []models.Memory

	a.mu.Lock()
	for i := len(snap) - 1; i >= 0; i-- {
		m := snap[i]
		if _, ok := a.seen[m.ID]; ok {
			continue
		}
		a.seen[m.ID] = struct{}{}
		switch {
		case !a.announce:
		case a.holding:
			a.held = append(a.held, m)
		default:
			fresh = append(fresh, m)
		}
	}
	a.mu.Unlock()

	printCards(fresh, 0)
}

func (a *App) holdAnnouncements() {
	a.mu.Lock()
	a.holding = true
	a.mu.Unlock()
}

// releaseAnnouncements prints the cards held during an upload except own,
// which the upload command reports itself.
func (a *App) releaseAnnouncements(own int64) {
	a.mu.Lock()
	held := a.held
	a.held, a.holding = nil, false
	a.mu.Unlock()

	printCards(held, own)
}

func printCards(cards []models.Memory, skip int64) {
	for _, m := range cards {
		if m.ID == skip {
			continue
		}
		printlnFn("New card:", formatCard(m))
	}
}

func (a *App) startAnnouncing() {
	a.mu.Lock()
	a.announce = true
	a.mu.Unlock()
}

func (a *App) setNickname(name string) {
	a.mu.Lock()
	a.nickname = name
	a.mu.Unlock()
}

func (a *App) currentNickname() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nickname
}
