package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeCredentialChanged    = "credential.changed"
	EventTypeNotificationReceived = "notification.received"
	EventTypeSessionReset         = "session.reset"
)

// CredentialChangedEvent carries the access token every collaborator client must use.
// An empty token means the credential was cleared.
type CredentialChangedEvent struct {
	BaseEvent
	AccessToken string `json:"-"`
	Reason      string `json:"reason"`
}

func NewCredentialChangedEvent(accessToken, reason string) *CredentialChangedEvent {
	return &CredentialChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCredentialChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reason":  reason,
				"cleared": accessToken == "",
			},
		},
		AccessToken: accessToken,
		Reason:      reason,
	}
}

// NotificationReceivedEvent wraps one envelope from the notification channel.
type NotificationReceivedEvent struct {
	BaseEvent
	MessageType string          `json:"message_type"`
	Body        json.RawMessage `json:"body"`
}

func NewNotificationReceivedEvent(messageType string, body json.RawMessage) *NotificationReceivedEvent {
	return &NotificationReceivedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeNotificationReceived,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"message_type": messageType,
			},
		},
		MessageType: messageType,
		Body:        body,
	}
}

// SessionResetEvent is published after logout or a failed refresh wiped the session.
type SessionResetEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

func NewSessionResetEvent(reason string) *SessionResetEvent {
	return &SessionResetEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionReset,
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"reason": reason},
		},
		Reason: reason,
	}
}
