package access

// DeriveAccessLevel maps an employee profile and its role assignments to an access level.
// An active ADMIN assignment wins over any verification status.
func DeriveAccessLevel(profile *EmployeeProfile, roles []RoleAssignment) AccessLevel {
	if profile == nil {
		return LevelProfileCompletion
	}

	if HasActiveRole(roles, RoleAdmin) {
		return LevelAdmin
	}

	status := profile.VerificationStatus
	switch {
	case status == StatusVerified && HasActiveRole(roles, RoleManager):
		return LevelManager
	case status == StatusVerified:
		return LevelVerified
	case status.NotStarted():
		return LevelProfileCompletion
	default:
		return LevelNewcomer
	}
}

// ProfileStatusOf returns the coarse profile flag, NOT_CREATED when there is no profile.
// Older employee payloads omit the flag; the completion percentage decides then.
func ProfileStatusOf(profile *EmployeeProfile) ProfileStatus {
	if profile == nil {
		return ProfileNotCreated
	}
	if profile.ProfileStatus != "" {
		return profile.ProfileStatus
	}
	if profile.ProfileCompletionPercentage >= 100 {
		return ProfileComplete
	}
	return ProfileIncomplete
}

// VerificationStatusOf returns NOT_STARTED when there is no profile.
func VerificationStatusOf(profile *EmployeeProfile) VerificationStatus {
	if profile == nil || profile.VerificationStatus == "" {
		return StatusNotStarted
	}
	return profile.VerificationStatus
}
