package guard

import (
	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/route"
)

// Requirement is what a protected page or API group asks of the current user.
type Requirement struct {
	Level *access.AccessLevel
	Roles []access.RoleCode
}

func AtLeast(level access.AccessLevel, roles ...access.RoleCode) Requirement {
	return Requirement{Level: &level, Roles: roles}
}

// RequirementFor reads the requirement of a page from the route table.
func RequirementFor(path string) Requirement {
	e, ok := route.Lookup(path)
	if !ok {
		return Requirement{}
	}
	return Requirement{Level: e.RequiredLevel, Roles: e.RequiredRoles}
}

// Satisfied reports whether s meets the requirement. Any one of the listed roles is enough.
func (r Requirement) Satisfied(s State) bool {
	if r.Level != nil && !s.Level.AtLeast(*r.Level) {
		return false
	}
	if len(r.Roles) == 0 {
		return true
	}
	for _, code := range r.Roles {
		if access.HasActiveRole(s.Roles, code) {
			return true
		}
	}
	return false
}

// Gate decides a single requirement. Insufficient users are sent to the default dashboard
// of the level they currently hold.
func Gate(req Requirement, s State) Decision {
	if s.Loading {
		return Decision{Outcome: OutcomeWait, Rule: ruleLoading}
	}
	if !s.Authenticated {
		return redirect(ruleUnauthenticated, route.Login, "authentication required")
	}
	if req.Satisfied(s) {
		return allow(ruleRequirement)
	}
	return redirect(ruleRequirement, route.DefaultDashboardRoute(s.Level), "insufficient access level for "+s.Level.String())
}
