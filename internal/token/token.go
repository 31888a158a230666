package token

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Role enumerates the portal's user roles as issued in token claims.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleDoctor     Role = "DOCTOR"
	RolePatient    Role = "PATIENT"
	RolePharmacist Role = "PHARMACIST"
)

// Valid reports whether the role is one of the four known portal roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient, RolePharmacist:
		return true
	}
	return false
}

// Timing policy for proactive token renewal. The server issues 25-minute
// tokens; these values must match it exactly.
const (
	// Lifetime is the nominal validity of a freshly issued token.
	Lifetime = 1500000 * time.Millisecond
	// MinimumLeadTime is the smallest remaining validity with which a token
	// may still be presented to the API or used for session recovery.
	MinimumLeadTime = 120000 * time.Millisecond
	// ErrorMargin absorbs clock skew and the renewal round-trip latency.
	ErrorMargin = 60000 * time.Millisecond
	// NominalRenewalDelay is the renewal delay for a token used at issuance.
	NominalRenewalDelay = Lifetime - MinimumLeadTime - ErrorMargin
)

// Claims is the unsigned claim set embedded in a session token. The server
// is the trust authority; the client reads claims without verifying the
// signature, purely for routing and display.
type Claims struct {
	Role   Role   `json:"role"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Decode parses the claim set out of a raw token without signature
// verification. It never panics; malformed input yields an error.
func Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("decode token claims: missing exp")
	}
	return claims, nil
}

// Expiry returns the token's expiration instant.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Refreshable reports whether the token still has enough lifetime left to be
// presented for a refresh or replayed into a recovered session.
func (c *Claims) Refreshable(now time.Time) bool {
	return c.Expiry().Sub(now) >= MinimumLeadTime
}

// RenewalDelay computes how long to wait before proactively renewing. The
// result may be negative for a near-expiry token; callers arm an immediate
// renewal in that case rather than giving up.
func (c *Claims) RenewalDelay(now time.Time) time.Duration {
	return c.Expiry().Sub(now) - MinimumLeadTime - ErrorMargin
}
