package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/medika-client/internal/observability"
	"github.com/spec-kit/medika-client/internal/token"
)

// memStore is an in-memory TokenStore standing in for the durable file.
type memStore struct {
	mu      sync.Mutex
	token   string
	loadErr error
	saveErr error
}

func (s *memStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return "", s.loadErr
	}
	return s.token, nil
}

func (s *memStore) Save(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.token = raw
	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// fakeTimer records scheduling without real time passing.
type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	timer := &fakeTimer{delay: d, fn: fn}
	s.timers = append(s.timers, timer)
	return timer
}

// pending returns the timers that are scheduled and not cancelled.
func (s *fakeScheduler) pending() []*fakeTimer {
	var out []*fakeTimer
	for _, timer := range s.timers {
		if !timer.stopped {
			out = append(out, timer)
		}
	}
	return out
}

// fire runs the single pending timer, simulating its expiry.
func (s *fakeScheduler) fire(t *testing.T) {
	t.Helper()
	pending := s.pending()
	require.Len(t, pending, 1, "expected exactly one pending timer")
	timer := pending[0]
	timer.stopped = true
	timer.fn()
}

// stubRefresher returns queued tokens or a fixed error. The optional hook
// runs mid-flight, before the response is returned, to simulate races.
type stubRefresher struct {
	mu     sync.Mutex
	tokens []string
	err    error
	inCall func()
	calls  int
}

func (r *stubRefresher) Refresh(_ context.Context) (string, error) {
	r.mu.Lock()
	r.calls++
	hook := r.inCall
	r.mu.Unlock()

	if hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	if len(r.tokens) == 0 {
		return "", errors.New("no token queued")
	}
	next := r.tokens[0]
	r.tokens = r.tokens[1:]
	return next, nil
}

func mintToken(t *testing.T, role token.Role, ttl time.Duration) string {
	t.Helper()
	claims := &token.Claims{
		Role:   role,
		UserID: "user-1",
		Name:   "Jonas Jonaitis",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

type fixture struct {
	manager   *Manager
	creds     *Credentials
	clock     *Clock
	sched     *fakeScheduler
	store     *memStore
	refresher *stubRefresher
	metrics   *observability.SessionMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &memStore{}
	sched := &fakeScheduler{}
	refresher := &stubRefresher{}
	metrics := observability.NewSessionMetrics()
	creds := NewCredentials(store, zap.NewNop())
	clock := NewClock(sched)
	manager := NewManager(ManagerDeps{
		Credentials: creds,
		Clock:       clock,
		Refresher:   refresher,
		Logger:      zap.NewNop(),
		Metrics:     metrics,
	})
	return &fixture{
		manager:   manager,
		creds:     creds,
		clock:     clock,
		sched:     sched,
		store:     store,
		refresher: refresher,
		metrics:   metrics,
	}
}
