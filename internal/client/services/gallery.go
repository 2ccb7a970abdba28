// Package services holds the client-side flows built on top of the server
// API: history refresh, image selection, submission and live updates.
package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/client/api"
	"github.com/dmitrijs2005/heartwall/internal/client/gallery"
	"github.com/dmitrijs2005/heartwall/internal/client/models"
	"github.com/dmitrijs2005/heartwall/internal/common"
	"github.com/dmitrijs2005/heartwall/internal/logging"
	"github.com/dmitrijs2005/heartwall/internal/transform"
)

// MaxReconnectBackoff caps the delay between subscription attempts.
const MaxReconnectBackoff = 30 * time.Second

// API is the part of the server client used by GalleryService.
type API interface {
	FetchHistory(ctx context.Context) ([]models.Memory, error)
	Upload(ctx context.Context, in api.UploadRequest) (*models.UploadResponse, error)
}

// Stream delivers real-time events until it fails or is closed.
type Stream interface {
	Next(ctx context.Context) (*models.Event, error)
	Close() error
}

// Dialer opens a new Stream.
type Dialer func(ctx context.Context) (Stream, error)

// DialClient adapts api.Client.Subscribe to a Dialer.
func DialClient(c *api.Client) Dialer {
	return func(ctx context.Context) (Stream, error) {
		s, err := c.Subscribe(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

type GalleryService struct {
	api     API
	dial    Dialer
	set     *gallery.Set
	logger  logging.Logger
	backoff time.Duration

	mu       sync.Mutex
	session  *transform.Session
	inFlight atomic.Bool
}

func NewGalleryService(a API, dial Dialer, set *gallery.Set, logger logging.Logger, backoff time.Duration) *GalleryService {
	if backoff <= 0 {
		backoff = time.Second
	}
	return &GalleryService{
		api:     a,
		dial:    dial,
		set:     set,
		logger:  logger.With("module", "gallery"),
		backoff: backoff,
	}
}

func (s *GalleryService) Gallery() *gallery.Set { return s.set }

// Refresh replaces the gallery with the server history. On failure the
// history is treated as empty and the error returned for the caller to
// report. Cards inserted while the fetch was running are kept either way.
func (s *GalleryService) Refresh(ctx context.Context) error {
	m := s.set.Mark()
	recs, err := s.api.FetchHistory(ctx)
	if err != nil {
		s.set.ReplaceSince(m, nil)
		return err
	}
	s.set.ReplaceSince(m, recs)
	return nil
}

// Open starts a new crop session from a selected file, discarding any
// previous one. Intake and decode errors leave the previous session intact.
func (s *GalleryService) Open(name, contentType string, data []byte) (*transform.Session, error) {
	sess, err := transform.NewSession(name, contentType, data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	return sess, nil
}

// Session returns the active crop session or nil.
func (s *GalleryService) Session() *transform.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Cancel drops the active session. Nothing has been sent to the server.
func (s *GalleryService) Cancel() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// Uploading reports whether a submission is in flight.
func (s *GalleryService) Uploading() bool { return s.inFlight.Load() }

// Submit renders the active session and uploads it. Only one submission
// runs at a time. Text is validated before anything is rendered or sent.
// On success the returned record is already in the gallery and the session
// is discarded; on failure the session is kept so the user can retry.
func (s *GalleryService) Submit(ctx context.Context, nickname, message string) (*models.Memory, error) {
	sess := s.Session()
	if sess == nil {
		return nil, common.ErrNoSession
	}

	nickname = common.NormalizeText(nickname)
	message = common.NormalizeText(message)
	if err := common.ValidateText(nickname, message); err != nil {
		return nil, err
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, common.ErrUploadInProgress
	}
	defer s.inFlight.Store(false)

	arts, err := sess.Render(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.api.Upload(ctx, api.UploadRequest{
		Cropped:  artifactFile(arts.Cropped),
		Full:     artifactFile(arts.Full),
		Nickname: nickname,
		Message:  message,
	})
	if err != nil {
		return nil, err
	}

	rec := *resp.Data
	s.set.Insert(rec)

	s.mu.Lock()
	if s.session == sess {
		s.session = nil
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "memory uploaded", "id", rec.ID)
	return &rec, nil
}

func artifactFile(a transform.Artifact) *api.File {
	return &api.File{Name: a.Name, ContentType: a.ContentType, Data: a.Data}
}

// Listen keeps a subscription open until ctx ends, inserting every new
// card. After each successful subscribe the history is fetched again so
// events missed while disconnected are recovered. Events are not read
// until that fetch returns; the stream buffers them and they are
// deduplicated on insert.
func (s *GalleryService) Listen(ctx context.Context) error {
	delay := s.backoff
	for {
		stream, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn(ctx, "subscribe failed", "error", err, "retry_in", delay)
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			delay = nextBackoff(delay, s.backoff)
			continue
		}
		delay = s.backoff

		s.resync(ctx)
		err = s.consume(ctx, stream)
		_ = stream.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn(ctx, "stream lost", "error", err, "retry_in", delay)
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
	}
}

// resync replaces the gallery only when the fetch succeeds, so a flaky
// reconnect does not blank out what the user already sees.
func (s *GalleryService) resync(ctx context.Context) {
	m := s.set.Mark()
	recs, err := s.api.FetchHistory(ctx)
	if err != nil {
		s.set.Release(m)
		s.logger.Warn(ctx, "history resync failed", "error", err)
		return
	}
	if !s.set.ReplaceSince(m, recs) {
		s.logger.Debug(ctx, "stale history dropped")
	}
}

func (s *GalleryService) consume(ctx context.Context, stream Stream) error {
	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		s.handle(ctx, ev)
	}
}

func (s *GalleryService) handle(ctx context.Context, ev *models.Event) {
	if ev == nil || ev.Event != common.EventNewCard || ev.Data == nil {
		s.logger.Debug(ctx, "ignoring event", "event", eventName(ev))
		return
	}
	if s.set.Insert(*ev.Data) {
		s.logger.Debug(ctx, "new card", "id", ev.Data.ID)
	}
}

func eventName(ev *models.Event) string {
	if ev == nil {
		return ""
	}
	return ev.Event
}

func nextBackoff(cur, base time.Duration) time.Duration {
	next := cur * 2
	limit := MaxReconnectBackoff
	if base > limit {
		limit = base
	}
	if next > limit {
		next = limit
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// IsRetryable reports whether a failed submission may be retried with the
// same session. Validation and decode failures need user action first.
func IsRetryable(err error) bool {
	return err != nil &&
		!common.IsValidation(err) &&
		!errors.Is(err, common.ErrDecode) &&
		!errors.Is(err, common.ErrNoSession) &&
		!errors.Is(err, common.ErrUploadInProgress)
}
