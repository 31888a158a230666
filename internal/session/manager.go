package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/medika-client/internal/observability"
	"github.com/spec-kit/medika-client/internal/token"
)

// ErrNotLoggedIn is returned when an operation requires an active session.
var ErrNotLoggedIn = errors.New("no active session")

// Refresher performs the token refresh round-trip against the backend,
// returning a fresh token. Implemented by the API client.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Manager orchestrates the session state machine: logged out or logged in,
// nothing in between. All credential mutation flows through it; collaborator
// screens read the Credentials snapshot and never write.
type Manager struct {
	creds     *Credentials
	clock     *Clock
	refresher Refresher
	now       func() time.Time
	logger    *zap.Logger
	metrics   *observability.SessionMetrics

	mu sync.Mutex
	// epoch increases on every login and logout. Renewal responses carry the
	// epoch captured at arm time and are discarded when it no longer
	// matches, so a refresh racing an explicit logout cannot resurrect the
	// session.
	epoch uint64
}

// ManagerDeps encapsulates collaborator requirements for the Manager.
type ManagerDeps struct {
	Credentials *Credentials
	Clock       *Clock
	Refresher   Refresher
	Now         func() time.Time
	Logger      *zap.Logger
	Metrics     *observability.SessionMetrics
}

// NewManager builds the session manager.
func NewManager(deps ManagerDeps) *Manager {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		creds:     deps.Credentials,
		clock:     deps.Clock,
		refresher: deps.Refresher,
		now:       now,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// LogIn transitions LoggedOut -> LoggedIn with the given token: stores it,
// derives identity from its claims and arms the renewal clock. An
// undecodable token fails without any state transition.
func (m *Manager) LogIn(raw string) error {
	claims, err := token.Decode(raw)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.creds.SetToken(raw)
	m.creds.MarkLoggedIn(claims)
	m.armRenewal(epoch, claims)
	m.mu.Unlock()

	m.metrics.Record(observability.MetricLogins)
	m.logger.Info("logged in",
		zap.String("userId", claims.UserID),
		zap.String("role", string(claims.Role)))
	return nil
}

// Renew replaces the current token within an active session (used by the
// password-change flow, which is issued a fresh token). Identity is
// re-derived from the new claims and the clock is always re-armed. Calling
// Renew while logged out is an error, not a login.
func (m *Manager) Renew(raw string) error {
	claims, err := token.Decode(raw)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if !m.creds.LoggedIn() {
		m.mu.Unlock()
		return ErrNotLoggedIn
	}
	m.applyLocked(m.epoch, raw, claims)
	m.mu.Unlock()
	return nil
}

// LogOut transitions to LoggedOut: disarms the clock and clears the
// credentials. Idempotent; calling it while already logged out is a no-op.
func (m *Manager) LogOut() {
	m.mu.Lock()
	wasLoggedIn := m.creds.LoggedIn()
	if wasLoggedIn {
		m.epoch++
	}
	m.clock.Disarm()
	m.creds.Clear()
	m.mu.Unlock()

	if wasLoggedIn {
		m.logger.Info("logged out")
	}
}

// ForceLogOut terminates the session in response to an authorization
// failure: a 401 from any API call or a failed renewal. Fail-closed and
// silent; the user lands on the login screen.
func (m *Manager) ForceLogOut(reason string) {
	if m.creds.LoggedIn() {
		m.metrics.Record(observability.MetricForcedLogouts)
		m.logger.Warn("forced logout", zap.String("reason", reason))
	}
	m.LogOut()
}

// LoggedIn reports whether a session is active.
func (m *Manager) LoggedIn() bool { return m.creds.LoggedIn() }

// Role returns the active session's role, empty when logged out.
func (m *Manager) Role() token.Role { return m.creds.Role() }

// UserID returns the active session's user identifier.
func (m *Manager) UserID() string { return m.creds.UserID() }

// DisplayName returns the active session's display name.
func (m *Manager) DisplayName() string { return m.creds.DisplayName() }

// PersistedToken returns the current token, falling back to durable storage
// when the in-memory session is empty. Used by the route guard's silent
// recovery path.
func (m *Manager) PersistedToken() string { return m.creds.Token() }

// armRenewal schedules the renewal callback for the given claims. Callers
// hold m.mu.
func (m *Manager) armRenewal(epoch uint64, claims *token.Claims) {
	delay := claims.RenewalDelay(m.now())
	m.clock.Arm(delay, func() { m.renew(epoch) })
}

// renew is the clock callback: one refresh round-trip, no retry. Any
// failure forces logout, because an unreachable auth server must not leave a
// silently expiring session running.
func (m *Manager) renew(epoch uint64) {
	m.mu.Lock()
	stale := m.epoch != epoch || !m.creds.LoggedIn()
	m.mu.Unlock()
	if stale {
		m.metrics.Record(observability.MetricStaleRenewals)
		return
	}

	raw, err := m.refresher.Refresh(context.Background())
	if err != nil {
		m.mu.Lock()
		current := m.epoch == epoch
		m.mu.Unlock()
		if !current {
			m.metrics.Record(observability.MetricStaleRenewals)
			return
		}
		m.metrics.Record(observability.MetricRenewalFailures)
		m.ForceLogOut("token refresh failed: " + err.Error())
		return
	}

	m.applyRenewal(epoch, raw)
}

// applyRenewal installs a refreshed token, discarding it when the session
// epoch moved on while the request was in flight.
func (m *Manager) applyRenewal(epoch uint64, raw string) {
	claims, err := token.Decode(raw)
	if err != nil {
		m.metrics.Record(observability.MetricRenewalFailures)
		m.ForceLogOut("refresh returned undecodable token")
		return
	}

	m.mu.Lock()
	if m.epoch != epoch || !m.creds.LoggedIn() {
		m.mu.Unlock()
		m.metrics.Record(observability.MetricStaleRenewals)
		m.logger.Debug("discarded stale refresh response")
		return
	}
	m.applyLocked(epoch, raw, claims)
	m.mu.Unlock()
}

// applyLocked stores a replacement token for the current session and
// re-arms the clock. Callers hold m.mu and have verified the session is
// live.
func (m *Manager) applyLocked(epoch uint64, raw string, claims *token.Claims) {
	if prev := m.creds.Role(); prev != "" && prev != claims.Role {
		// Mid-session role changes are not a supported scenario; the new
		// claims win so identity stays derived from the current token.
		m.logger.Warn("renewed token changed role",
			zap.String("from", string(prev)),
			zap.String("to", string(claims.Role)))
	}
	m.creds.SetToken(raw)
	m.creds.MarkLoggedIn(claims)
	m.armRenewal(epoch, claims)
	m.metrics.Record(observability.MetricRenewals)
	m.logger.Debug("session token renewed",
		zap.Time("expiresAt", claims.Expiry()))
}
