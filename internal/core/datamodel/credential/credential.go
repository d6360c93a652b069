package credential

import "time"

// PortalCredential is the persisted credential of one portal session.
type PortalCredential struct {
	SessionID    string    `gorm:"column:session_id;primaryKey"`
	AccessToken  string    `gorm:"column:access_token;not null"`
	RefreshToken string    `gorm:"column:refresh_token"`
	ExpiresAt    time.Time `gorm:"column:expires_at;index"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (PortalCredential) TableName() string {
	return "portal_credentials"
}
