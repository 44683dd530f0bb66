package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rpggio/orgchat/internal/repository"
)

// Storage keys for the persisted registry and the active selection.
const (
	KeySessions       = "sessions"
	KeyCurrentSession = "currentSession"
)

// Store owns the session registry and the single active selection. Every
// mutation is written through to the repository before it returns; a
// storage failure is reported but never rolls back the in-memory change.
type Store struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions []Session
	activeID string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open creates a Store and reconciles it with persisted state. Unreadable or
// corrupt data degrades to an empty registry; Open never fails.
func Open(ctx context.Context, repo Repository, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load(ctx)
	return s
}

// List returns the registry in insertion order.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sessions)
}

// Get returns the session with the given id.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.sessions[i], true
	}
	return Session{}, false
}

// Active returns the active session, if any.
func (s *Store) Active() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(s.activeID); i >= 0 {
		return s.sessions[i], true
	}
	return Session{}, false
}

// SetActive selects the session with the given id. Unknown ids are ignored.
func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		s.logger.Debug("ignoring selection of unknown session", "session_id", id)
		return nil
	}
	if s.activeID == id {
		return nil
	}
	s.activeID = id
	return s.persistActive(ctx)
}

// Add appends a session and makes it active. A session whose id is already
// registered replaces that entry in place, keeping its position and
// original creation time.
func (s *Store) Add(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(sess.ID); i >= 0 {
		if sess.CreatedAt.IsZero() {
			sess.CreatedAt = s.sessions[i].CreatedAt
		}
		s.sessions[i] = sess
	} else {
		if sess.CreatedAt.IsZero() {
			sess.CreatedAt = s.now()
		}
		s.sessions = append(s.sessions, sess)
	}
	s.activeID = sess.ID

	return s.persistAll(ctx)
}

// Remove deletes a session. If it was active the selection is cleared and no
// other session is selected. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.logger.Debug("ignoring removal of unknown session", "session_id", id)
		return nil
	}
	s.sessions = slices.Delete(s.sessions, i, i+1)
	if s.activeID == id {
		s.activeID = ""
	}

	return s.persistAll(ctx)
}

// ClearAll empties the registry and clears the selection.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	s.activeID = ""

	return s.persistAll(ctx)
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.sessions, func(sess Session) bool {
		return sess.ID == id
	})
}

func (s *Store) load(ctx context.Context) {
	s.sessions = s.loadRegistry(ctx)
	s.activeID = s.loadActive(ctx)
	if s.activeID != "" && s.indexOf(s.activeID) < 0 {
		s.logger.Info("discarding stale active session", "session_id", s.activeID)
		s.activeID = ""
	}
}

func (s *Store) loadRegistry(ctx context.Context) []Session {
	var stored []Session
	if !s.read(ctx, KeySessions, &stored) {
		return nil
	}

	sessions := make([]Session, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, sess := range stored {
		if sess.ID == "" {
			continue
		}
		if _, dup := seen[sess.ID]; dup {
			s.logger.Warn("dropping duplicate persisted session", "session_id", sess.ID)
			continue
		}
		seen[sess.ID] = struct{}{}
		sessions = append(sessions, sess)
	}
	return sessions
}

func (s *Store) loadActive(ctx context.Context) string {
	var current *Session
	if !s.read(ctx, KeyCurrentSession, &current) || current == nil {
		return ""
	}
	return current.ID
}

// read decodes key into dst and reports whether a usable value was found.
func (s *Store) read(ctx context.Context, key string, dst any) bool {
	data, err := s.repo.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.Warn("failed to read persisted sessions", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("discarding corrupt persisted sessions", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) persistAll(ctx context.Context) error {
	return errors.Join(s.persistRegistry(ctx), s.persistActive(ctx))
}

func (s *Store) persistRegistry(ctx context.Context) error {
	sessions := s.sessions
	if sessions == nil {
		sessions = []Session{}
	}
	return s.write(ctx, KeySessions, sessions)
}

func (s *Store) persistActive(ctx context.Context) error {
	i := s.indexOf(s.activeID)
	if i < 0 {
		if err := s.repo.Delete(ctx, KeyCurrentSession); err != nil {
			return s.persistFailed("delete", KeyCurrentSession, err)
		}
		return nil
	}
	return s.write(ctx, KeyCurrentSession, s.sessions[i])
}

func (s *Store) write(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return s.persistFailed("encode", key, err)
	}
	if err := s.repo.Put(ctx, key, data); err != nil {
		return s.persistFailed("write", key, err)
	}
	return nil
}

func (s *Store) persistFailed(op, key string, err error) error {
	s.logger.Warn("session state not persisted", "op", op, "key", key, "error", err)
	return &repository.PersistenceError{Op: op, Key: key, Err: err}
}
