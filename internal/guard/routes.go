package guard

import (
	"strings"

	"github.com/spec-kit/medika-client/internal/token"
)

// access describes what a screen area requires from the session.
type access int

const (
	accessPublic access = iota
	accessLoggedIn
	accessRole
	accessLoginScreen
)

type routeRule struct {
	prefix string
	access access
	role   token.Role
}

// The portal's screen areas in match order. Prefixes cover nested screens
// (e.g. /patients/42/medical-records).
var routeTable = []routeRule{
	{prefix: "/login", access: accessLoginScreen},
	{prefix: "/public-statistics", access: accessPublic},
	{prefix: "/password-change", access: accessLoggedIn},
	{prefix: "/registration", access: accessRole, role: token.RoleAdmin},
	{prefix: "/patient-assignment", access: accessRole, role: token.RoleAdmin},
	{prefix: "/patients", access: accessRole, role: token.RoleDoctor},
	{prefix: "/medical-record", access: accessRole, role: token.RoleDoctor},
	{prefix: "/medical-prescription", access: accessRole, role: token.RoleDoctor},
	{prefix: "/visit-statistics", access: accessRole, role: token.RoleDoctor},
	{prefix: "/medical-information", access: accessRole, role: token.RolePatient},
	{prefix: "/purchase-fact-marking", access: accessRole, role: token.RolePharmacist},
}

// Check runs the guard operation appropriate to the given path. Paths
// outside the table (the main page, not-found screens) are public.
func (g *Guard) Check(path string) Decision {
	for _, rule := range routeTable {
		if !matches(path, rule.prefix) {
			continue
		}
		switch rule.access {
		case accessLoginScreen:
			return g.RerouteIfLoggedIn()
		case accessLoggedIn:
			return g.RequireLoggedIn()
		case accessRole:
			return g.RequireRole(rule.role)
		default:
			return allow()
		}
	}
	return allow()
}

func matches(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
