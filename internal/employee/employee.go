package employee

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/core/common/validation"
	"github.com/frahmantamala/hr-portal/internal/transport/httpclient"
)

var (
	ErrUnauthorized    = errors.New("employee service rejected the credential")
	ErrInvalidResponse = errors.New("malformed who am I response")
)

// MeResponse is the "who am I" payload. Employee is nil until a profile exists.
type MeResponse struct {
	UserID        string                  `json:"user_id"`
	Email         string                  `json:"email"`
	FirstName     string                  `json:"first_name,omitempty"`
	LastName      string                  `json:"last_name,omitempty"`
	EmailVerified bool                    `json:"email_verified,omitempty"`
	Employee      *access.EmployeeProfile `json:"employee,omitempty"`
	Roles         []access.RoleAssignment `json:"roles"`
}

// Identity reconstructs the signed-in identity from the "who am I" payload.
func (m MeResponse) Identity() access.Identity {
	return access.Identity{
		ID:            m.UserID,
		Email:         m.Email,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		EmailVerified: m.EmailVerified,
	}
}

// EffectiveRoles prefers the top level role list and falls back to the profile's own.
func (m MeResponse) EffectiveRoles() []access.RoleAssignment {
	if len(m.Roles) > 0 || m.Employee == nil {
		return m.Roles
	}
	return m.Employee.RoleAssignments
}

func (m MeResponse) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("%w: no user_id", ErrInvalidResponse)
	}
	return nil
}

type ProfileUpdateDTO struct {
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Address      *string `json:"address,omitempty"`
	DateOfBirth  *string `json:"date_of_birth,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
	Position     *string `json:"position,omitempty"`
	// SubmitForVerification asks the employee service to move the profile into review.
	SubmitForVerification bool `json:"submit_for_verification,omitempty"`
}

func (d ProfileUpdateDTO) Validate() *apperrors.AppError {
	v := validation.NewValidator()
	optional := map[string]*string{
		"first_name":    d.FirstName,
		"last_name":     d.LastName,
		"phone":         d.Phone,
		"address":       d.Address,
		"date_of_birth": d.DateOfBirth,
		"department_id": d.DepartmentID,
		"position":      d.Position,
	}
	for _, name := range []string{"first_name", "last_name", "phone", "address", "date_of_birth", "department_id", "position"} {
		value := optional[name]
		if value == nil {
			continue
		}
		fv := v.Field(name, *value).MaxLength(255)
		if name == "first_name" || name == "last_name" {
			fv.Required()
		}
	}
	return v.Validate()
}

// Client talks to the employee collaborator.
type Client struct {
	*httpclient.Client
}

func NewClient(base *httpclient.Client) *Client {
	return &Client{Client: base}
}

func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	var me MeResponse
	if err := c.DoJSON(ctx, http.MethodGet, "/api/v1/employees/me", nil, &me); err != nil {
		if httpclient.IsStatus(err, http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("employee me: %w", err)
	}
	if err := me.Validate(); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *Client) UpdateProfile(ctx context.Context, dto ProfileUpdateDTO) (*access.EmployeeProfile, error) {
	var profile access.EmployeeProfile
	if err := c.DoJSON(ctx, http.MethodPut, "/api/v1/employees/me/profile", dto, &profile); err != nil {
		return nil, fmt.Errorf("employee update profile: %w", err)
	}
	return &profile, nil
}
