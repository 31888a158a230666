package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/medika-client/internal/token"
)

// TokenStore abstracts durable persistence of the raw token string. The file
// implementation lives in internal/storage; tests use in-memory fakes.
type TokenStore interface {
	Load() (string, error)
	Save(raw string) error
	Clear() error
}

// Credentials holds the one session per running client: the current token
// and the identity fields derived from its claims, mirrored to durable
// storage. It is a data holder only; login marking, timer arming and
// clearing discipline belong to the Manager.
type Credentials struct {
	mu       sync.RWMutex
	loggedIn bool
	token    string
	role     token.Role
	userID   string
	name     string

	persist TokenStore
	logger  *zap.Logger
}

// NewCredentials builds an empty credential store backed by the given
// durable token store.
func NewCredentials(persist TokenStore, logger *zap.Logger) *Credentials {
	return &Credentials{persist: persist, logger: logger}
}

// Token returns the in-memory token, falling back to durable storage when
// memory is empty. The fallback covers full-reload scenarios where the
// process restarted and the renewal timer was lost.
func (c *Credentials) Token() string {
	c.mu.RLock()
	raw := c.token
	c.mu.RUnlock()
	if raw != "" {
		return raw
	}

	persisted, err := c.persist.Load()
	if err != nil {
		c.logger.Debug("persisted token unavailable", zap.Error(err))
		return ""
	}
	return persisted
}

// SetToken writes the token to memory and durable storage. Pure storage: it
// neither marks the session logged in nor schedules renewal. Persistence is
// best-effort; a write failure only degrades reload recovery.
func (c *Credentials) SetToken(raw string) {
	c.mu.Lock()
	c.token = raw
	c.mu.Unlock()

	if err := c.persist.Save(raw); err != nil {
		c.logger.Debug("failed to persist token", zap.Error(err))
	}
}

// MarkLoggedIn derives the identity fields from the given claims and flags
// the session as logged in. Claims must belong to the currently stored
// token so identity never diverges from it.
func (c *Credentials) MarkLoggedIn(claims *token.Claims) {
	c.mu.Lock()
	c.loggedIn = true
	c.role = claims.Role
	c.userID = claims.UserID
	c.name = claims.Name
	c.mu.Unlock()
}

// Clear empties the token and identity fields in memory and removes the
// persisted token. It deliberately does not touch the renewal timer; the
// Manager owns that coupling.
func (c *Credentials) Clear() {
	c.mu.Lock()
	c.loggedIn = false
	c.token = ""
	c.role = ""
	c.userID = ""
	c.name = ""
	c.mu.Unlock()

	if err := c.persist.Clear(); err != nil {
		c.logger.Debug("failed to clear persisted token", zap.Error(err))
	}
}

// LoggedIn reports whether a session is currently active.
func (c *Credentials) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggedIn
}

// Role returns the current session's role, empty when logged out.
func (c *Credentials) Role() token.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// UserID returns the current session's user identifier.
func (c *Credentials) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// DisplayName returns the current session's display name.
func (c *Credentials) DisplayName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}
