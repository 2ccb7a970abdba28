// Package gallery keeps one client's deduplicated, newest-first view of
// the memory wall.
//
// The set changes through two operations only: Replace after a history
// fetch and Insert for a single record from an upload response or a
// real-time event. Records are keyed by id, so delivering the same record
// twice is a no-op.
//
// A history fetch is bracketed by Mark and ReplaceSince. Records inserted
// between the two are carried into the replaced content, so an upload or
// event that lands while the fetch is in flight is never lost.
package gallery

import (
	"sort"
	"sync"

	"github.com/dmitrijs2005/heartwall/internal/client/models"
)

type Set struct {
	mu        sync.RWMutex
	items     []models.Memory
	ids       map[int64]struct{}
	listeners []func([]models.Memory)

	gen     uint64
	applied uint64
	pending int
	log     []logged
}

type logged struct {
	gen uint64
	rec models.Memory
}

// Mark is the position of a history fetch relative to Inserts.
type Mark struct{ gen uint64 }

func New() *Set {
	return &Set{ids: make(map[int64]struct{})}
}

// Replace swaps the whole content atomically. Input order does not
// matter; duplicates keep their first occurrence.
func (s *Set) Replace(recs []models.Memory) {
	s.ReplaceSince(s.Mark(), recs)
}

// Mark must be taken before the fetch whose result goes to ReplaceSince.
// Every Mark is consumed by exactly one ReplaceSince or Release.
func (s *Set) Mark() Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending++
	return Mark{gen: s.gen}
}

// Release drops a Mark whose fetch failed without replacing anything.
func (s *Set) Release(m Mark) {
	s.mu.Lock()
	s.doneLocked()
	s.mu.Unlock()
}

// ReplaceSince installs recs plus every record inserted after m. It
// reports false and changes nothing when a fetch that started later than
// m has already been installed.
func (s *Set) ReplaceSince(m Mark, recs []models.Memory) bool {
	items := make([]models.Memory, 0, len(recs))
	ids := make(map[int64]struct{}, len(recs))
	for _, r := range recs {
		if _, ok := ids[r.ID]; ok {
			continue
		}
		ids[r.ID] = struct{}{}
		items = append(items, r)
	}

	s.mu.Lock()
	if m.gen < s.applied {
		s.doneLocked()
		s.mu.Unlock()
		return false
	}
	for _, l := range s.log {
		if l.gen <= m.gen {
			continue
		}
		if _, ok := ids[l.rec.ID]; ok {
			continue
		}
		ids[l.rec.ID] = struct{}{}
		items = append(items, l.rec)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Newer(items[j]) })

	s.items, s.ids = items, ids
	s.applied = m.gen
	s.doneLocked()
	snap := s.snapshotLocked()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, snap)
	return true
}

// doneLocked retires one Mark. The insert log is only kept while a fetch
// is outstanding.
func (s *Set) doneLocked() {
	if s.pending > 0 {
		s.pending--
	}
	if s.pending == 0 {
		s.log = nil
	}
}

// Insert adds rec unless its id is already present and reports whether it
// was added. A new record normally lands at the front; an older one is
// placed where createdAt order puts it.
func (s *Set) Insert(rec models.Memory) bool {
	s.mu.Lock()
	if _, ok := s.ids[rec.ID]; ok {
		s.mu.Unlock()
		return false
	}

	i := sort.Search(len(s.items), func(i int) bool { return rec.Newer(s.items[i]) })
	s.items = append(s.items, models.Memory{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = rec
	s.ids[rec.ID] = struct{}{}
	s.gen++
	if s.pending > 0 {
		s.log = append(s.log, logged{gen: s.gen, rec: rec})
	}

	snap := s.snapshotLocked()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, snap)
	return true
}

// Snapshot returns a copy of the current ordered content.
func (s *Set) Snapshot() []models.Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Set) snapshotLocked() []models.Memory {
	out := make([]models.Memory, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Set) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Get returns the record with the given id.
func (s *Set) Get(id int64) (models.Memory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.items {
		if m.ID == id {
			return m, true
		}
	}
	return models.Memory{}, false
}

// OnChange registers fn to run after every mutation with a snapshot of the
// new content. fn runs on the mutating goroutine, outside the lock.
func (s *Set) OnChange(fn func([]models.Memory)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func notify(listeners []func([]models.Memory), snap []models.Memory) {
	for _, fn := range listeners {
		fn(snap)
	}
}
