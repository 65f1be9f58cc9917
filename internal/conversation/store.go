// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jaraba/lcis/internal/knowledge"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("conversation session not found")

type session struct {
	mu       sync.Mutex
	ctx      *Context
	lastUsed atomic.Uint64
}

// Store keeps one Context per session. Calls on the same session are
// serialized; different sessions proceed in parallel. At most
// Options.MaxSessions sessions are kept: creating one more evicts the least
// recently used.
type Store struct {
	kb   *knowledge.Base
	opts Options

	clock    atomic.Uint64
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewStore returns an empty Store whose contexts use kb and opts.
func NewStore(kb *knowledge.Base, opts Options) *Store {
	return &Store{kb: kb, opts: opts.withDefaults(), sessions: make(map[string]*session)}
}

// Create starts a session and returns its ID.
func (s *Store) Create() string {
	id := uuid.NewString()
	sess := &session{ctx: New(s.kb, s.opts)}
	sess.lastUsed.Store(s.clock.Add(1))

	s.mu.Lock()
	for len(s.sessions) >= s.opts.MaxSessions {
		s.evictOldestLocked()
	}
	s.sessions[id] = sess
	s.mu.Unlock()
	return id
}

func (s *Store) evictOldestLocked() {
	var (
		oldest   string
		oldestAt uint64
	)
	for id, sess := range s.sessions {
		if t := sess.lastUsed.Load(); oldest == "" || t < oldestAt {
			oldest, oldestAt = id, t
		}
	}
	delete(s.sessions, oldest)
}

// Ensure returns id if the session exists, or a new session ID if id is empty.
func (s *Store) Ensure(id string) (string, error) {
	if id == "" {
		return s.Create(), nil
	}
	if _, ok := s.lookup(id); !ok {
		return "", ErrSessionNotFound
	}
	return id, nil
}

func (s *Store) lookup(id string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if ok {
		sess.lastUsed.Store(s.clock.Add(1))
	}
	return sess, ok
}

// Get returns the Context of a session. Callers that may race on the same
// session should use With instead.
func (s *Store) Get(id string) (*Context, bool) {
	sess, ok := s.lookup(id)
	if !ok {
		return nil, false
	}
	return sess.ctx, true
}

// With runs fn on the session's Context while holding the session lock.
func (s *Store) With(id string, fn func(*Context) error) error {
	sess, ok := s.lookup(id)
	if !ok {
		return ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess.ctx)
}

// Delete drops a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
