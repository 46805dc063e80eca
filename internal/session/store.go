// Package session keeps one comparison session per browser and expires
// idle ones.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zombar/biasradar/internal/compare"
	"github.com/zombar/biasradar/internal/notify"
)

const (
	// DefaultTTL is how long an untouched session is kept
	DefaultTTL = 30 * time.Minute

	inboxLimit = 10
)

// Entry pairs a comparison session with its pending toasts
type Entry struct {
	ID      string
	Session *compare.Session
	Inbox   *notify.Inbox

	lastSeen time.Time
}

// Factory builds the comparison session for a new entry
type Factory func(notifier notify.Notifier) *compare.Session

// Store is a registry of sessions keyed by an opaque ID.
// It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	factory Factory
	sink    notify.Notifier
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithTTL sets the idle expiry
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSink adds a notifier that receives every session's notices
// in addition to the session inbox
func WithSink(n notify.Notifier) Option {
	return func(s *Store) {
		s.sink = n
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store
func NewStore(factory Factory, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*Entry),
		ttl:     DefaultTTL,
		factory: factory,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the entry for id, creating a fresh one when id is unknown
// or expired. The returned entry's ID may therefore differ from id.
func (s *Store) Get(id string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[id]; ok && now.Sub(e.lastSeen) < s.ttl {
		e.lastSeen = now
		return e
	}

	inbox := notify.NewInbox(inboxLimit)
	var notifier notify.Notifier = inbox
	if s.sink != nil {
		notifier = notify.Multi(inbox, s.sink)
	}

	e := &Entry{
		ID:       uuid.NewString(),
		Inbox:    inbox,
		Session:  s.factory(notifier),
		lastSeen: now,
	}
	s.entries[e.ID] = e
	return e
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes sessions idle for longer than the TTL. Sessions with a
// run in progress are kept until it finishes.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) >= s.ttl && !e.Session.Busy() {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is canceled
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// Wait blocks until every session's background run has finished
func (s *Store) Wait() {
	s.mu.Lock()
	sessions := make([]*compare.Session, 0, len(s.entries))
	for _, e := range s.entries {
		sessions = append(sessions, e.Session)
	}
	s.mu.Unlock()

	for _, cs := range sessions {
		cs.Wait()
	}
}
