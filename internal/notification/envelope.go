package notification

import (
	"encoding/json"
	"time"
)

const (
	TypeNotification    = "notification"
	TypeDashboardUpdate = "dashboard-update"
	TypeStatusChange    = "status-change"
	TypeTaskUpdate      = "task-update"
	TypeTaskComment     = "task-comment"
	TypeTaskAssignment  = "task-assignment"
)

var consumed = map[string]bool{
	TypeNotification:    true,
	TypeDashboardUpdate: true,
	TypeStatusChange:    true,
	TypeTaskUpdate:      true,
	TypeTaskComment:     true,
	TypeTaskAssignment:  true,
}

// Envelope is one message of the notification channel. Data stays opaque.
type Envelope struct {
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Consumed reports whether the portal acts on messages of type t.
func Consumed(t string) bool {
	return consumed[t]
}

// AffectsAccess reports whether t may change the user's verification state or roles.
func AffectsAccess(t string) bool {
	return t == TypeStatusChange || t == TypeDashboardUpdate
}
