package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/medika-client/internal/observability"
	"github.com/spec-kit/medika-client/internal/token"
)

func TestLogInStoresTokenAndIdentity(t *testing.T) {
	f := newFixture(t)
	raw := mintToken(t, token.RoleDoctor, token.Lifetime)

	require.NoError(t, f.manager.LogIn(raw))

	assert.True(t, f.manager.LoggedIn())
	assert.Equal(t, token.RoleDoctor, f.manager.Role())
	assert.Equal(t, "user-1", f.manager.UserID())
	assert.Equal(t, "Jonas Jonaitis", f.manager.DisplayName())
	assert.Equal(t, raw, f.creds.Token())

	persisted, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, raw, persisted)
}

func TestLogInArmsRenewalWithComputedDelay(t *testing.T) {
	f := newFixture(t)
	raw := mintToken(t, token.RoleDoctor, 1500*time.Second)

	require.NoError(t, f.manager.LogIn(raw))

	pending := f.sched.pending()
	require.Len(t, pending, 1)
	// 1500s token: renewal fires after roughly 1320s.
	assert.InDelta(t, (1320 * time.Second).Seconds(), pending[0].delay.Seconds(), 2)
}

func TestLogInUndecodableTokenNoTransition(t *testing.T) {
	f := newFixture(t)

	require.Error(t, f.manager.LogIn("not-a-token"))

	assert.False(t, f.manager.LoggedIn())
	assert.Empty(t, f.sched.pending())
}

func TestLogInTwiceLeavesOneTimer(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.LogIn(mintToken(t, token.RoleDoctor, token.Lifetime)))
	require.NoError(t, f.manager.LogIn(mintToken(t, token.RoleDoctor, token.Lifetime)))

	assert.Len(t, f.sched.pending(), 1)
}

func TestLogOutIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.LogIn(mintToken(t, token.RoleAdmin, token.Lifetime)))

	f.manager.LogOut()
	f.manager.LogOut()

	assert.False(t, f.manager.LoggedIn())
	assert.False(t, f.clock.Armed())
	assert.Empty(t, f.creds.Token())
	persisted, err := f.store.Load()
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestRenewalSuccessReArms(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.LogIn(mintToken(t, token.RolePatient, token.Lifetime)))

	renewed := mintToken(t, token.RolePatient, token.Lifetime)
	f.refresher.tokens = []string{renewed}

	f.sched.fire(t)

	assert.True(t, f.manager.LoggedIn())
	assert.Equal(t, renewed, f.creds.Token())
	assert.Len(t, f.sched.pending(), 1, "renewal must re-arm the clock")
	assert.Equal(t, int64(1), f.metrics.Snapshot()[observability.MetricRenewals])
}

func TestRenewalFailureForcesLogout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.LogIn(mintToken(t, token.RoleDoctor, token.Lifetime)))
	f.refresher.err = errors.New("connection refused")

	f.sched.fire(t)

	// Fail-closed: no retry, session terminated.
	assert.False(t, f.manager.LoggedIn())
	assert.False(t, f.clock.Armed())
	assert.Empty(t, f.creds.Token())
	assert.Equal(t, 1, f.refresher.calls)
	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(1), snap[observability.MetricRenewalFailures])
	assert.Equal(t, int64(1), snap[observability.MetricForcedLogouts])
}

func TestRenewalUndecodableResponseForcesLogout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.LogIn(mintToken(t, token.RoleDoctor, token.Lifetime)))
	f.refresher.tokens = []string{"garbage"}

	f.sched.fire(t)

	assert.False(t, f.manager.LoggedIn())
	assert.False(t, f.clock.Armed())
}

func TestStaleRefreshResponseDiscardedAfterLogout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.LogIn(mintToken(t, token.RolePharmacist, token.Lifetime)))

	// The user logs out while the refresh request is in flight; the
	// response that eventually arrives must not repopulate the store.
	f.refresher.tokens = []string{mintToken(t, token.RolePharmacist, token.Lifetime)}
	f.refresher.inCall = func() { f.manager.LogOut() }

	f.sched.fire(t)

	assert.False(t, f.manager.LoggedIn())
	assert.Empty(t, f.creds.Token())
	assert.False(t, f.clock.Armed())
	assert.Equal(t, int64(1), f.metrics.Snapshot()[observability.MetricStaleRenewals])
}

func TestTimerFiringAfterLogoutDoesNotRefresh(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.LogIn(mintToken(t, token.RoleAdmin, token.Lifetime)))

	// Disarm races fire: simulate the callback running anyway.
	pending := f.sched.pending()
	require.Len(t, pending, 1)
	callback := pending[0].fn
	f.manager.LogOut()
	callback()

	assert.Equal(t, 0, f.refresher.calls)
	assert.False(t, f.manager.LoggedIn())
}

func TestRenewWhileLoggedOut(t *testing.T) {
	f := newFixture(t)

	err := f.manager.Renew(mintToken(t, token.RoleDoctor, token.Lifetime))

	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.False(t, f.manager.LoggedIn())
}

func TestRenewReplacesTokenAndReArms(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.LogIn(mintToken(t, token.RoleDoctor, token.Lifetime)))

	renewed := mintToken(t, token.RoleDoctor, token.Lifetime)
	require.NoError(t, f.manager.Renew(renewed))

	assert.Equal(t, renewed, f.creds.Token())
	assert.Len(t, f.sched.pending(), 1)
}

func TestRenewAdoptsChangedRole(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.LogIn(mintToken(t, token.RoleDoctor, token.Lifetime)))

	require.NoError(t, f.manager.Renew(mintToken(t, token.RoleAdmin, token.Lifetime)))

	// New claims win; identity always derives from the current token.
	assert.Equal(t, token.RoleAdmin, f.manager.Role())
}

func TestNearExpiryTokenArmsImmediateRenewal(t *testing.T) {
	f := newFixture(t)
	// Below lead time + margin: computed delay is negative.
	require.NoError(t, f.manager.LogIn(mintToken(t, token.RoleDoctor, time.Minute)))

	pending := f.sched.pending()
	require.Len(t, pending, 1)
	assert.Negative(t, pending[0].delay)
}
