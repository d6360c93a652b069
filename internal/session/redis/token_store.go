package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/frahmantamala/hr-portal/internal/credential"
	"github.com/frahmantamala/hr-portal/internal/session"
)

const keyPrefix = "hr-portal:credential:"

type record struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenStore keeps session credentials in Redis with a sliding TTL.
type TokenStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewTokenStore(client *goredis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *TokenStore) Save(ctx context.Context, sessionID string, c credential.Credential) error {
	payload, err := json.Marshal(record{AccessToken: c.AccessToken, RefreshToken: c.RefreshToken})
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	return s.client.Set(ctx, key(sessionID), payload, s.ttl).Err()
}

func (s *TokenStore) Load(ctx context.Context, sessionID string) (credential.Credential, error) {
	raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return credential.Credential{}, session.ErrTokenNotFound
		}
		return credential.Credential{}, err
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return credential.Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, key(sessionID), s.ttl).Err()
	}
	return credential.Credential{AccessToken: rec.AccessToken, RefreshToken: rec.RefreshToken}, nil
}

func (s *TokenStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, key(sessionID)).Err()
}

// Open connects to Redis and checks the connection.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
