package guard

import (
	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/route"
)

// VerificationRedirect returns where the onboarding workflow wants the user to be.
// ok is false when verification imposes nothing, which is the case for VERIFIED users.
func VerificationRedirect(s State) (target string, ok bool) {
	status := s.VerificationStatus
	if status == "" {
		status = access.StatusNotStarted
	}

	if status == access.StatusVerified {
		return "", false
	}

	profile := s.ProfileStatus
	if s.Level == access.LevelProfileCompletion || profile == access.ProfileNotCreated || profile == access.ProfileIncomplete {
		return route.ProfileComplete, true
	}

	switch {
	case status.NotStarted():
		if profile.ReadyForVerification() {
			return route.NewcomerDashboard, true
		}
		return route.ProfileComplete, true
	case status.Pending():
		return route.NewcomerDashboard, true
	case status == access.StatusRejected:
		return route.ProfileComplete, true
	default:
		return route.ProfileComplete, true
	}
}
