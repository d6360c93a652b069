package guard

import (
	"fmt"
	"net/url"

	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/route"
)

type Outcome string

const (
	OutcomeAllow    Outcome = "allow"
	OutcomeRedirect Outcome = "redirect"
	OutcomeWait     Outcome = "wait"
)

// Decision is the single verdict of the authorization pipeline for a path.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Path    string  `json:"path,omitempty"`
	Rule    string  `json:"rule"`
	Reason  string  `json:"reason,omitempty"`
}

func (d Decision) Allowed() bool    { return d.Outcome == OutcomeAllow }
func (d Decision) Redirected() bool { return d.Outcome == OutcomeRedirect }

func (d Decision) String() string {
	if d.Outcome == OutcomeRedirect {
		return fmt.Sprintf("%s -> %s (%s)", d.Outcome, d.Path, d.Rule)
	}
	return fmt.Sprintf("%s (%s)", d.Outcome, d.Rule)
}

func allow(rule string) Decision {
	return Decision{Outcome: OutcomeAllow, Rule: rule}
}

func redirect(rule, path, reason string) Decision {
	return Decision{Outcome: OutcomeRedirect, Path: path, Rule: rule, Reason: reason}
}

// State is the read-only view of a session the pipeline decides on.
type State struct {
	Loading            bool
	Authenticated      bool
	Level              access.AccessLevel
	VerificationStatus access.VerificationStatus
	ProfileStatus      access.ProfileStatus
	Roles              []access.RoleAssignment
}

// Guest is the state of a visitor without a session.
func Guest() State {
	return State{
		Level:              access.LevelProfileCompletion,
		VerificationStatus: access.StatusNotStarted,
		ProfileStatus:      access.ProfileNotCreated,
	}
}

// LoginRedirect builds the login path that brings the user back to target after sign in.
func LoginRedirect(target string) string {
	if target == "" || route.IsPublicRoute(target) {
		return route.Login
	}
	return route.Login + "?" + url.Values{"returnTo": {target}}.Encode()
}
