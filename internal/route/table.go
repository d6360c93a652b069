package route

import (
	"strings"

	"github.com/frahmantamala/hr-portal/internal/access"
)

const (
	Login          = "/login"
	Register       = "/register"
	VerifyEmail    = "/verify-email"
	ForgotPassword = "/forgot-password"
	Unauthorized   = "/unauthorized"

	Dashboard         = "/dashboard"
	AdminDashboard    = "/admin/dashboard"
	ManagerDashboard  = "/manager/dashboard"
	EmployeeDashboard = "/employee/dashboard"
	NewcomerDashboard = "/newcomer/dashboard"

	Profile         = "/profile"
	ProfileEdit     = "/profile/edit"
	ProfileComplete = "/profile/complete"

	Documents       = "/documents"
	DocumentsUpload = "/documents/upload"
	DocumentsReview = "/documents/review"

	Tasks       = "/tasks"
	TasksAssign = "/tasks/assign"
	TasksReview = "/tasks/review"

	Departments           = "/departments"
	Employees             = "/employees"
	EmployeesVerification = "/employees/verification"
	Notifications         = "/notifications"
)

// Entry describes one page of the portal and what it takes to open it.
type Entry struct {
	Path              string              `json:"path"`
	Title             string              `json:"title"`
	RequiredLevel     *access.AccessLevel `json:"required_level,omitempty"`
	RequiredRoles     []access.RoleCode   `json:"required_roles,omitempty"`
	Public            bool                `json:"public"`
	GuestOnly         bool                `json:"guest_only,omitempty"`
	VerificationGated bool                `json:"verification_gated,omitempty"`
}

func level(l access.AccessLevel) *access.AccessLevel {
	return &l
}

var table = []Entry{
	{Path: Login, Title: "Sign in", Public: true, GuestOnly: true},
	{Path: Register, Title: "Create account", Public: true, GuestOnly: true},
	{Path: VerifyEmail, Title: "Verify email", Public: true},
	{Path: ForgotPassword, Title: "Forgot password", Public: true, GuestOnly: true},
	{Path: Unauthorized, Title: "Unauthorized", Public: true},

	{Path: Dashboard, Title: "Dashboard"},
	{Path: AdminDashboard, Title: "Admin dashboard", RequiredLevel: level(access.LevelAdmin), VerificationGated: true},
	{Path: ManagerDashboard, Title: "Manager dashboard", RequiredLevel: level(access.LevelManager), VerificationGated: true},
	{Path: EmployeeDashboard, Title: "Employee dashboard", RequiredLevel: level(access.LevelVerified), VerificationGated: true},
	{Path: NewcomerDashboard, Title: "Welcome", VerificationGated: true},

	{Path: Profile, Title: "My profile"},
	{Path: ProfileEdit, Title: "Edit profile"},
	{Path: ProfileComplete, Title: "Complete profile"},

	{Path: Documents, Title: "Documents", RequiredLevel: level(access.LevelNewcomer)},
	{Path: DocumentsUpload, Title: "Upload document", RequiredLevel: level(access.LevelNewcomer)},
	{Path: DocumentsReview, Title: "Review documents", RequiredLevel: level(access.LevelAdmin), RequiredRoles: []access.RoleCode{access.RoleAdmin}},

	{Path: Tasks, Title: "Tasks", RequiredLevel: level(access.LevelVerified)},
	{Path: TasksAssign, Title: "Assign task", RequiredLevel: level(access.LevelManager), RequiredRoles: []access.RoleCode{access.RoleManager, access.RoleAdmin}},
	{Path: TasksReview, Title: "Review tasks", RequiredLevel: level(access.LevelManager), RequiredRoles: []access.RoleCode{access.RoleManager, access.RoleAdmin}},

	{Path: Departments, Title: "Departments", RequiredLevel: level(access.LevelVerified)},
	{Path: Employees, Title: "Employees", RequiredLevel: level(access.LevelManager)},
	{Path: EmployeesVerification, Title: "Employee verification", RequiredLevel: level(access.LevelAdmin), RequiredRoles: []access.RoleCode{access.RoleAdmin}},
	{Path: Notifications, Title: "Notifications", RequiredLevel: level(access.LevelNewcomer)},
}

var newcomerAllowList = []string{NewcomerDashboard, Profile, Documents}

// Entries returns a copy of the route table in declaration order.
func Entries() []Entry {
	out := make([]Entry, len(table))
	copy(out, table)
	return out
}

// Clean strips the query string and fragment and any trailing slash.
func Clean(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}

func hasSegmentPrefix(p, prefix string) bool {
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix) && p[len(prefix)] == '/'
}

// Lookup returns the most specific entry whose path is a segment prefix of p.
func Lookup(p string) (Entry, bool) {
	p = Clean(p)
	var (
		best  Entry
		found bool
	)
	for _, e := range table {
		if !hasSegmentPrefix(p, e.Path) {
			continue
		}
		if !found || len(e.Path) > len(best.Path) {
			best, found = e, true
		}
	}
	return best, found
}

func IsPublicRoute(p string) bool {
	e, ok := Lookup(p)
	return ok && e.Public
}

func IsGuestOnly(p string) bool {
	e, ok := Lookup(p)
	return ok && e.GuestOnly
}

func IsVerificationGated(p string) bool {
	e, ok := Lookup(p)
	return ok && e.VerificationGated
}

// RequiredLevel returns the level the path asks for; ok is false when it has none.
func RequiredLevel(p string) (access.AccessLevel, bool) {
	e, found := Lookup(p)
	if !found || e.RequiredLevel == nil {
		return access.LevelProfileCompletion, false
	}
	return *e.RequiredLevel, true
}

func RequiredRoles(p string) []access.RoleCode {
	e, _ := Lookup(p)
	return e.RequiredRoles
}

// DefaultDashboardRoute is the landing page for a level.
func DefaultDashboardRoute(l access.AccessLevel) string {
	switch l {
	case access.LevelAdmin:
		return AdminDashboard
	case access.LevelManager:
		return ManagerDashboard
	case access.LevelVerified:
		return EmployeeDashboard
	default:
		return NewcomerDashboard
	}
}

// IsDashboard reports whether p is one of the level specific dashboards.
func IsDashboard(p string) bool {
	switch Clean(p) {
	case AdminDashboard, ManagerDashboard, EmployeeDashboard, NewcomerDashboard:
		return true
	}
	return false
}

// NewcomerAllowed reports whether a NEWCOMER may stay on p. The profile and documents
// trees are allowed as a whole, which covers editing, completion and upload.
func NewcomerAllowed(p string) bool {
	p = Clean(p)
	for _, allowed := range newcomerAllowList {
		if hasSegmentPrefix(p, allowed) && !hasSegmentPrefix(p, DocumentsReview) {
			return true
		}
	}
	return false
}

// ProfileCompletionAllowed reports whether a PROFILE_COMPLETION user may stay on p.
func ProfileCompletionAllowed(p string) bool {
	p = Clean(p)
	return p == ProfileComplete || p == ProfileEdit
}
