// Package fanout broadcasts committed memories to every connected viewer.
//
// A Hub is built once by the application and injected into both the
// upload path (Publish) and the WebSocket endpoint (Subscribe). There is a
// single topic and no replay: a subscriber only sees events published
// while it is connected.
package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/heartwall/internal/common"
	"github.com/dmitrijs2005/heartwall/internal/logging"
	"github.com/dmitrijs2005/heartwall/internal/server/metrics"
	"github.com/dmitrijs2005/heartwall/internal/server/models"
)

type State int32

const (
	Uninitialized State = iota
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	}
	return "uninitialized"
}

// ErrNotReady is returned by Subscribe before Start and after shutdown.
var ErrNotReady = errors.New("fanout hub is not ready")

// Envelope is the wire shape of every event.
type Envelope struct {
	Event string               `json:"event"`
	Data  *models.MemoryRecord `json:"data"`
}

// Subscriber receives encoded envelopes on C until Done is closed.
type Subscriber struct {
	send chan []byte
	done chan struct{}
	once sync.Once
}

// C yields encoded events.
func (s *Subscriber) C() <-chan []byte { return s.send }

// Done is closed when the hub drops the subscriber or shuts down.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	state  atomic.Int32
	buffer int
	logger logging.Logger
}

// NewHub creates a hub whose subscribers buffer up to buffer events. A
// subscriber whose buffer is full when an event arrives is dropped.
func NewHub(buffer int, logger logging.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		buffer: buffer,
		logger: logger.With("module", "fanout"),
	}
}

func (h *Hub) State() State { return State(h.state.Load()) }

// Start moves the hub to Ready. It is idempotent.
func (h *Hub) Start() {
	if h.state.CompareAndSwap(int32(Uninitialized), int32(Ready)) {
		h.logger.Info(context.Background(), "fanout ready")
	}
}

// Run starts the hub and blocks until ctx is done, then ends every
// subscription. The hub stays Closed afterwards.
func (h *Hub) Run(ctx context.Context) {
	h.Start()
	<-ctx.Done()

	h.mu.Lock()
	h.state.Store(int32(Closed))
	for s := range h.subs {
		s.close()
		delete(h.subs, s)
	}
	h.mu.Unlock()
	metrics.SetSubscribers(0)
}

func (h *Hub) Subscribe() (*Subscriber, error) {
	s := &Subscriber{
		send: make(chan []byte, h.buffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.State() != Ready {
		h.mu.Unlock()
		return nil, ErrNotReady
	}
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	metrics.SetSubscribers(n)
	return s, nil
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()

	s.close()
	if ok {
		metrics.SetSubscribers(n)
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish queues rec for every subscriber without blocking and returns how
// many subscribers accepted it. Publishing before Start, or with nobody
// connected, is a no-op.
func (h *Hub) Publish(ctx context.Context, rec *models.MemoryRecord) int {
	if h.State() != Ready {
		h.logger.Warn(ctx, "publish skipped, hub not ready", "id", rec.ID)
		return 0
	}

	msg, err := json.Marshal(Envelope{Event: common.EventNewCard, Data: rec})
	if err != nil {
		h.logger.Error(ctx, "encode event", "error", err.Error())
		return 0
	}

	delivered, dropped := 0, 0

	h.mu.Lock()
	for s := range h.subs {
		select {
		case s.send <- msg:
			delivered++
		default:
			delete(h.subs, s)
			s.close()
			dropped++
		}
	}
	n := len(h.subs)
	h.mu.Unlock()

	metrics.RecordPublish(delivered, dropped)
	if dropped > 0 {
		metrics.SetSubscribers(n)
		h.logger.Warn(ctx, "dropped slow subscribers", "count", dropped)
	}
	return delivered
}
