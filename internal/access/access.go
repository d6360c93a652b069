package access

import (
	"fmt"
	"strings"
)

// AccessLevel is the ordinal authorization tier of a portal user.
type AccessLevel int

const (
	LevelProfileCompletion AccessLevel = iota
	LevelNewcomer
	LevelVerified
	LevelManager
	LevelAdmin
)

var levelNames = map[AccessLevel]string{
	LevelProfileCompletion: "PROFILE_COMPLETION",
	LevelNewcomer:          "NEWCOMER",
	LevelVerified:          "VERIFIED",
	LevelManager:           "MANAGER",
	LevelAdmin:             "ADMIN",
}

// Levels lists every access level in ascending order.
func Levels() []AccessLevel {
	return []AccessLevel{LevelProfileCompletion, LevelNewcomer, LevelVerified, LevelManager, LevelAdmin}
}

func (l AccessLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("AccessLevel(%d)", int(l))
}

// AtLeast reports whether l satisfies the required level.
func (l AccessLevel) AtLeast(required AccessLevel) bool {
	return l >= required
}

func (l AccessLevel) MarshalText() ([]byte, error) {
	if _, ok := levelNames[l]; !ok {
		return nil, fmt.Errorf("unknown access level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *AccessLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseAccessLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func ParseAccessLevel(s string) (AccessLevel, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for level, name := range levelNames {
		if name == upper {
			return level, nil
		}
	}
	return LevelProfileCompletion, fmt.Errorf("unknown access level %q", s)
}

// VerificationStatus is the onboarding stage tracked by the employee service.
type VerificationStatus string

const (
	StatusNotStarted             VerificationStatus = "NOT_STARTED"
	StatusNotSubmitted           VerificationStatus = "NOT_SUBMITTED"
	StatusPendingDetailsReview   VerificationStatus = "PENDING_DETAILS_REVIEW"
	StatusPendingDocumentsReview VerificationStatus = "PENDING_DOCUMENTS_REVIEW"
	StatusPendingRoleAssignment  VerificationStatus = "PENDING_ROLE_ASSIGNMENT"
	StatusPendingFinalApproval   VerificationStatus = "PENDING_FINAL_APPROVAL"
	StatusVerified               VerificationStatus = "VERIFIED"
	StatusRejected               VerificationStatus = "REJECTED"
)

// NotStarted treats NOT_STARTED and NOT_SUBMITTED as the same stage.
func (s VerificationStatus) NotStarted() bool {
	return s == StatusNotStarted || s == StatusNotSubmitted
}

func (s VerificationStatus) Pending() bool {
	switch s {
	case StatusPendingDetailsReview, StatusPendingDocumentsReview, StatusPendingRoleAssignment, StatusPendingFinalApproval:
		return true
	}
	return false
}

// ProfileStatus is the coarse completeness flag of an employee profile.
type ProfileStatus string

const (
	ProfileNotCreated           ProfileStatus = "NOT_CREATED"
	ProfileIncomplete           ProfileStatus = "INCOMPLETE"
	ProfileComplete             ProfileStatus = "COMPLETE"
	ProfileReadyForVerification ProfileStatus = "READY_FOR_VERIFICATION"
)

func (s ProfileStatus) ReadyForVerification() bool {
	return s == ProfileComplete || s == ProfileReadyForVerification
}

type RoleCode string

const (
	RoleAdmin    RoleCode = "ADMIN"
	RoleManager  RoleCode = "MANAGER"
	RoleEmployee RoleCode = "EMPLOYEE"
	RoleNewcomer RoleCode = "NEWCOMER"
)

type RoleAssignment struct {
	RoleCode    RoleCode `json:"role_code"`
	Scope       string   `json:"scope,omitempty"`
	IsActive    bool     `json:"is_active"`
	Permissions []string `json:"permissions,omitempty"`
}

type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
}

func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

type EmployeeProfile struct {
	ID                          string             `json:"id,omitempty"`
	EmployeeCode                string             `json:"employee_code,omitempty"`
	DepartmentID                string             `json:"department_id,omitempty"`
	VerificationStatus          VerificationStatus `json:"verification_status"`
	RoleAssignments             []RoleAssignment   `json:"role_assignments,omitempty"`
	ProfileCompletionPercentage int                `json:"profile_completion_percentage"`
	ProfileStatus               ProfileStatus      `json:"employee_profile_status"`
}

// ActiveRoles returns the role codes of active assignments, in input order without duplicates.
func ActiveRoles(roles []RoleAssignment) []RoleCode {
	seen := make(map[RoleCode]bool, len(roles))
	var out []RoleCode
	for _, r := range roles {
		if !r.IsActive || seen[r.RoleCode] {
			continue
		}
		seen[r.RoleCode] = true
		out = append(out, r.RoleCode)
	}
	return out
}

func HasActiveRole(roles []RoleAssignment, code RoleCode) bool {
	for _, r := range roles {
		if r.IsActive && r.RoleCode == code {
			return true
		}
	}
	return false
}
