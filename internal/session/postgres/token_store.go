package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	credentialDatamodel "github.com/frahmantamala/hr-portal/internal/core/datamodel/credential"
	"github.com/frahmantamala/hr-portal/internal/credential"
	"github.com/frahmantamala/hr-portal/internal/session"
)

type TokenStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewTokenStore(db *gorm.DB, ttl time.Duration) *TokenStore {
	return &TokenStore{db: db, ttl: ttl, now: time.Now}
}

func (s *TokenStore) Save(ctx context.Context, sessionID string, c credential.Credential) error {
	row := credentialDatamodel.PortalCredential{
		SessionID:    sessionID,
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		ExpiresAt:    s.now().Add(s.ttl),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at", "updated_at"}),
	}).Create(&row).Error
}

func (s *TokenStore) Load(ctx context.Context, sessionID string) (credential.Credential, error) {
	var row credentialDatamodel.PortalCredential
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND expires_at > ?", sessionID, s.now()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return credential.Credential{}, session.ErrTokenNotFound
		}
		return credential.Credential{}, err
	}
	return credential.Credential{AccessToken: row.AccessToken, RefreshToken: row.RefreshToken}, nil
}

func (s *TokenStore) Delete(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&credentialDatamodel.PortalCredential{}).Error
}

// PurgeExpired removes rows past their expiry and reports how many went.
func (s *TokenStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now()).
		Delete(&credentialDatamodel.PortalCredential{})
	return res.RowsAffected, res.Error
}
