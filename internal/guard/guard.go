package guard

import (
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/medika-client/internal/observability"
	"github.com/spec-kit/medika-client/internal/session"
	"github.com/spec-kit/medika-client/internal/token"
)

// LoginRoute is where unauthenticated navigation lands.
const LoginRoute = "/login"

// Decision is the guard's verdict for a navigation attempt. The guard never
// returns errors or panics; unusable tokens simply become redirects.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func redirect(to string) Decision {
	return Decision{RedirectTo: to}
}

// HomeRoute returns the landing screen for a role.
func HomeRoute(role token.Role) string {
	switch role {
	case token.RoleAdmin:
		return "/registration/patient"
	case token.RoleDoctor:
		return "/patients"
	case token.RolePatient:
		return "/medical-information/medical-records"
	case token.RolePharmacist:
		return "/purchase-fact-marking"
	default:
		return LoginRoute
	}
}

// Guard decides at navigation time whether the current session may enter a
// role-scoped screen area, recovering a still-valid persisted session along
// the way.
type Guard struct {
	sessions *session.Manager
	now      func() time.Time
	logger   *zap.Logger
	metrics  *observability.SessionMetrics
}

// GuardDeps encapsulates collaborator requirements for the Guard.
type GuardDeps struct {
	Sessions *session.Manager
	Now      func() time.Time
	Logger   *zap.Logger
	Metrics  *observability.SessionMetrics
}

// New builds the route guard.
func New(deps GuardDeps) *Guard {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Guard{
		sessions: deps.Sessions,
		now:      now,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

// RequireRole allows navigation when the session is logged in with the
// required role, attempting silent recovery from the persisted token first.
func (g *Guard) RequireRole(required token.Role) Decision {
	if g.sessions.LoggedIn() && g.sessions.Role() == required {
		return allow()
	}
	if g.recover(required) {
		return allow()
	}
	g.metrics.Record(observability.MetricGuardRedirects)
	return redirect(LoginRoute)
}

// RequireLoggedIn allows navigation for any active session, role aside.
func (g *Guard) RequireLoggedIn() Decision {
	if g.sessions.LoggedIn() {
		return allow()
	}
	if g.recover("") {
		return allow()
	}
	g.metrics.Record(observability.MetricGuardRedirects)
	return redirect(LoginRoute)
}

// RerouteIfLoggedIn is the login screen's guard: an already valid (or
// recoverable) session is sent to its role's home route instead of being
// shown the login form.
func (g *Guard) RerouteIfLoggedIn() Decision {
	if g.sessions.LoggedIn() {
		return redirect(HomeRoute(g.sessions.Role()))
	}
	if g.recover("") {
		return redirect(HomeRoute(g.sessions.Role()))
	}
	return allow()
}

// recover replays a persisted token into a live session. The token must
// decode, have at least the minimum lead time remaining and, when required
// is set, carry a matching role. A token below the lead time is unusable
// even though not yet expired; the guard declines recovery rather than wait
// for a renewal round-trip.
func (g *Guard) recover(required token.Role) bool {
	raw := g.sessions.PersistedToken()
	if raw == "" {
		return false
	}
	claims, err := token.Decode(raw)
	if err != nil {
		g.logger.Debug("persisted token undecodable", zap.Error(err))
		return false
	}
	if !claims.Refreshable(g.now()) {
		return false
	}
	if required != "" && claims.Role != required {
		return false
	}
	if err := g.sessions.LogIn(raw); err != nil {
		return false
	}
	g.metrics.Record(observability.MetricRecoveries)
	g.logger.Info("session recovered from persisted token",
		zap.String("role", string(claims.Role)))
	return true
}
