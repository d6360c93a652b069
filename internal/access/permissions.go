package access

import "sort"

const (
	PermProfileRead     = "profile:read"
	PermProfileWrite    = "profile:write"
	PermProfileComplete = "profile:complete"

	PermDocumentsRead   = "documents:read"
	PermDocumentsUpload = "documents:upload"
	PermDocumentsReview = "documents:review"

	PermTasksRead   = "tasks:read"
	PermTasksSubmit = "tasks:submit"
	PermTasksAssign = "tasks:assign"
	PermTasksReview = "tasks:review"

	PermDepartmentsRead  = "departments:read"
	PermEmployeesRead    = "employees:read"
	PermEmployeesVerify  = "employees:verify"
	PermRolesAssign      = "roles:assign"
	PermNotificationRead = "notifications:read"
)

// ProfileCompletionPermissions is granted while no employee profile exists.
var ProfileCompletionPermissions = []string{
	PermProfileComplete,
	PermProfileWrite,
	PermDocumentsUpload,
}

// MinimalPermissions is granted when the profile could not be fetched after login.
var MinimalPermissions = []string{
	PermProfileRead,
	PermDocumentsUpload,
}

// LevelPermissions is the default permission set per access level.
var LevelPermissions = map[AccessLevel][]string{
	LevelProfileCompletion: ProfileCompletionPermissions,
	LevelNewcomer: {
		PermProfileRead, PermProfileWrite,
		PermDocumentsRead, PermDocumentsUpload,
		PermNotificationRead,
	},
	LevelVerified: {
		PermProfileRead, PermProfileWrite,
		PermDocumentsRead, PermDocumentsUpload,
		PermTasksRead, PermTasksSubmit,
		PermDepartmentsRead,
		PermNotificationRead,
	},
	LevelManager: {
		PermProfileRead, PermProfileWrite,
		PermDocumentsRead, PermDocumentsUpload,
		PermTasksRead, PermTasksSubmit, PermTasksAssign, PermTasksReview,
		PermDepartmentsRead, PermEmployeesRead,
		PermNotificationRead,
	},
	LevelAdmin: {
		PermProfileRead, PermProfileWrite,
		PermDocumentsRead, PermDocumentsUpload, PermDocumentsReview,
		PermTasksRead, PermTasksSubmit, PermTasksAssign, PermTasksReview,
		PermDepartmentsRead, PermEmployeesRead, PermEmployeesVerify, PermRolesAssign,
		PermNotificationRead,
	},
}

// PermissionsFor computes the permission set of a session. Without a profile the
// profile-completion set applies; otherwise active role permissions are merged with the
// level defaults.
func PermissionsFor(profile *EmployeeProfile, roles []RoleAssignment, level AccessLevel) []string {
	if profile == nil {
		return normalize(ProfileCompletionPermissions)
	}

	perms := append([]string{}, LevelPermissions[level]...)
	for _, r := range roles {
		if r.IsActive {
			perms = append(perms, r.Permissions...)
		}
	}
	return normalize(perms)
}

func normalize(perms []string) []string {
	seen := make(map[string]bool, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type PermissionChecker interface {
	HasPermission(userPermissions []string, permission string) bool
	HasAnyPermission(userPermissions []string, requiredPermissions []string) bool
	CanAssignTasks(userPermissions []string) bool
	CanReviewTasks(userPermissions []string) bool
	CanReviewDocuments(userPermissions []string) bool
	IsManager(userPermissions []string) bool
	IsAdmin(userPermissions []string) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) HasPermission(userPermissions []string, permission string) bool {
	return c.HasAnyPermission(userPermissions, []string{permission})
}

func (c *DefaultPermissionChecker) HasAnyPermission(userPermissions []string, requiredPermissions []string) bool {
	for _, userPerm := range userPermissions {
		for _, requiredPerm := range requiredPermissions {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}

func (c *DefaultPermissionChecker) CanAssignTasks(userPermissions []string) bool {
	return c.HasPermission(userPermissions, PermTasksAssign)
}

func (c *DefaultPermissionChecker) CanReviewTasks(userPermissions []string) bool {
	return c.HasPermission(userPermissions, PermTasksReview)
}

func (c *DefaultPermissionChecker) CanReviewDocuments(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermDocumentsReview, PermEmployeesVerify})
}

func (c *DefaultPermissionChecker) IsManager(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermTasksReview, PermEmployeesRead, PermRolesAssign})
}

func (c *DefaultPermissionChecker) IsAdmin(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermRolesAssign, PermEmployeesVerify})
}
