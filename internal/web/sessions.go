package web

// sessions.go keeps one upload coordinator per browser widget.
//
// A session is touched by every request naming it and by SSE heartbeats.
// The janitor closes sessions untouched for longer than the TTL, which
// cancels their in-flight operations.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/uploader/internal/uploader"
)

var errTooManySessions = errors.New("too many concurrent sessions, rate limit reached")

type session struct {
	id       string
	coord    *uploader.Coordinator
	created  time.Time
	lastSeen atomic.Int64
}

func (s *session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *session) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

type sessionStore struct {
	ttl     time.Duration
	max     int
	newFunc func(id string) *uploader.Coordinator
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionStore(ttl time.Duration, max int, newFunc func(id string) *uploader.Coordinator) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		max:      max,
		newFunc:  newFunc,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (st *sessionStore) create() (*session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.max > 0 && len(st.sessions) >= st.max {
		return nil, errTooManySessions
	}

	id := uuid.NewString()
	now := st.now()
	sess := &session{id: id, coord: st.newFunc(id), created: now}
	sess.touch(now)
	st.sessions[id] = sess
	return sess, nil
}

// get returns a live session and marks it as used.
func (st *sessionStore) get(id string) (*session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, uploader.ErrClosed)
	}
	sess.touch(st.now())
	return sess, nil
}

func (st *sessionStore) remove(ctx context.Context, id string) error {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, uploader.ErrClosed)
	}
	return sess.coord.Close(ctx)
}

func (st *sessionStore) count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// reap closes every session idle for longer than the TTL.
func (st *sessionStore) reap(ctx context.Context) int {
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()
	var expired []*session
	for id, sess := range st.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, sess := range expired {
		if err := sess.coord.Close(ctx); err != nil {
			slog.Warn("session close incomplete", "session", sess.id, "error", err)
		}
	}
	return len(expired)
}

// closeAll closes every session, waiting for their operations until ctx ends.
func (st *sessionStore) closeAll(ctx context.Context) error {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*session)
	st.mu.Unlock()

	var errs []error
	for _, sess := range all {
		if err := sess.coord.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sess.id, err))
		}
	}
	return errors.Join(errs...)
}

// runJanitor reaps expired sessions every interval until ctx is cancelled.
func (st *sessionStore) runJanitor(ctx context.Context, interval time.Duration) {
	slog.Info("session janitor started", "ttl", st.ttl, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if n := st.reap(ctx); n > 0 {
				slog.Info("expired sessions closed",
					"sessions_closed", n,
					"sessions_live", st.count(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
