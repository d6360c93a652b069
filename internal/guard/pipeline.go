package guard

import (
	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/metrics"
	"github.com/frahmantamala/hr-portal/internal/route"
)

const (
	ruleLoading           = "loading"
	rulePublic            = "public"
	ruleGuestOnly         = "guest-only"
	ruleUnauthenticated   = "unauthenticated"
	ruleVerification      = "verification"
	ruleProfileCompletion = "profile-completion"
	ruleNewcomer          = "newcomer-restricted"
	ruleGenericDashboard  = "generic-dashboard"
	ruleDowngrade         = "downgrade-prevention"
	ruleRequirement       = "requirement"
	ruleDefault           = "default"
	ruleLoop              = "redirect-loop"
)

// maxHops bounds how many redirects are collapsed into one decision.
const maxHops = 5

type rule struct {
	name  string
	apply func(path string, s State) (Decision, bool)
}

// pipeline is evaluated top to bottom; the first rule that matches decides.
var pipeline = []rule{
	{ruleLoading, func(_ string, s State) (Decision, bool) {
		if s.Loading {
			return Decision{Outcome: OutcomeWait, Rule: ruleLoading, Reason: "session is loading"}, true
		}
		return Decision{}, false
	}},
	{rulePublic, func(p string, s State) (Decision, bool) {
		if !route.IsPublicRoute(p) {
			return Decision{}, false
		}
		if s.Authenticated && route.IsGuestOnly(p) {
			return redirect(ruleGuestOnly, route.DefaultDashboardRoute(s.Level), "already signed in"), true
		}
		return allow(rulePublic), true
	}},
	{ruleUnauthenticated, func(p string, s State) (Decision, bool) {
		if s.Authenticated {
			return Decision{}, false
		}
		return redirect(ruleUnauthenticated, LoginRedirect(p), "authentication required"), true
	}},
	{ruleVerification, func(p string, s State) (Decision, bool) {
		if s.Level == access.LevelAdmin || !route.IsVerificationGated(p) {
			return Decision{}, false
		}
		target, ok := VerificationRedirect(s)
		if !ok {
			return Decision{}, false
		}
		return redirect(ruleVerification, target, "verification status "+string(s.VerificationStatus)), true
	}},
	{ruleProfileCompletion, func(p string, s State) (Decision, bool) {
		if s.Level != access.LevelProfileCompletion || route.ProfileCompletionAllowed(p) {
			return Decision{}, false
		}
		return redirect(ruleProfileCompletion, route.ProfileComplete, "profile must be completed"), true
	}},
	{ruleNewcomer, func(p string, s State) (Decision, bool) {
		if s.Level != access.LevelNewcomer || route.NewcomerAllowed(p) || route.Clean(p) == route.Dashboard {
			return Decision{}, false
		}
		return redirect(ruleNewcomer, route.NewcomerDashboard, "page not available during onboarding"), true
	}},
	{ruleGenericDashboard, func(p string, s State) (Decision, bool) {
		if route.Clean(p) != route.Dashboard {
			return Decision{}, false
		}
		return redirect(ruleGenericDashboard, route.DefaultDashboardRoute(s.Level), ""), true
	}},
	{ruleDowngrade, func(p string, s State) (Decision, bool) {
		if !downgrade(route.Clean(p), s.Level) {
			return Decision{}, false
		}
		return redirect(ruleDowngrade, route.DefaultDashboardRoute(s.Level), "dashboard below access level"), true
	}},
	{ruleRequirement, func(p string, s State) (Decision, bool) {
		d := Gate(RequirementFor(p), s)
		return d, d.Redirected()
	}},
}

// downgrade reports whether p is the landing dashboard of a level below level.
func downgrade(p string, level access.AccessLevel) bool {
	if level < access.LevelVerified || !route.IsDashboard(p) || p == route.DefaultDashboardRoute(level) {
		return false
	}
	for _, lower := range access.Levels() {
		if lower >= level {
			break
		}
		if route.DefaultDashboardRoute(lower) == p {
			return true
		}
	}
	return false
}

func decideOnce(p string, s State) Decision {
	current := route.Clean(p)
	for _, r := range pipeline {
		d, matched := r.apply(p, s)
		if !matched {
			continue
		}
		if d.Redirected() && route.Clean(d.Path) == current {
			return allow(d.Rule)
		}
		return d
	}
	return allow(ruleDefault)
}

// Decide runs the authorization pipeline for path. Chained redirects are followed so the
// returned target is itself allowed, which keeps the decision idempotent.
func Decide(path string, s State) Decision {
	d := decideOnce(path, s)
	if d.Redirected() {
		d = follow(path, d, s)
	}
	metrics.GuardDecisions.WithLabelValues(string(d.Outcome), d.Rule).Inc()
	return d
}

func follow(origin string, first Decision, s State) Decision {
	visited := map[string]bool{route.Clean(origin): true}
	last := first
	for hop := 0; hop < maxHops; hop++ {
		target := route.Clean(last.Path)
		if visited[target] {
			break
		}
		visited[target] = true

		next := decideOnce(last.Path, s)
		if !next.Redirected() {
			return last
		}
		last = Decision{Outcome: OutcomeRedirect, Path: next.Path, Rule: next.Rule, Reason: next.Reason}
	}
	return redirect(ruleLoop, route.Unauthorized, "redirect chain did not settle")
}
