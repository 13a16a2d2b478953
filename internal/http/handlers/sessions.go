package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"postcreator/internal/form"
)

const (
	sessionCookie = "postui_session"

	defaultSessionIdle = 30 * time.Minute
)

type session struct {
	mu     sync.Mutex
	form   *form.Controller
	cancel context.CancelFunc
	// submits counts Prepare calls; a create-job reply only lands when no
	// newer submit started while the lock was released.
	submits uint64

	lastSeen time.Time // guarded by sessionStore.mu
}

// snapshot returns the form state and submit availability under the lock.
func (s *session) snapshot() (form.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.State(), s.form.CanSubmit()
}

// stop cancels the session's tracker, if any.
func (s *session) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// sessionStore keeps form state in memory only; it is lost on restart.
// Sessions unseen for longer than idle are dropped and their trackers stopped.
type sessionStore struct {
	mu    sync.Mutex
	items map[string]*session
	idle  time.Duration
	now   func() time.Time
}

func newSessionStore(idle time.Duration) *sessionStore {
	if idle <= 0 {
		idle = defaultSessionIdle
	}
	return &sessionStore{items: make(map[string]*session), idle: idle, now: time.Now}
}

// find returns the caller's session without creating one.
func (s *sessionStore) find(r *http.Request) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	sess, ok := s.items[c.Value]
	if ok {
		sess.lastSeen = now
	}
	return sess, ok
}

// lookup returns the caller's session, creating one and setting the cookie
// when the request carries none or an unknown id.
func (s *sessionStore) lookup(w http.ResponseWriter, r *http.Request) *session {
	if sess, ok := s.find(r); ok {
		return sess
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	sess := &session{form: form.New(), lastSeen: s.now()}
	s.items[id] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// evictLocked drops idle sessions. Lock order is store before session.
func (s *sessionStore) evictLocked(now time.Time) {
	for id, sess := range s.items {
		if now.Sub(sess.lastSeen) > s.idle {
			delete(s.items, id)
			sess.stop()
		}
	}
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
