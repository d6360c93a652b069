package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/frahmantamala/hr-portal/internal/credential"
)

var ErrTokenNotFound = errors.New("no persisted credential")

// TokenStore persists the credential of a session so it survives a gateway restart.
type TokenStore interface {
	Save(ctx context.Context, sessionID string, c credential.Credential) error
	Load(ctx context.Context, sessionID string) (credential.Credential, error)
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	cred      credential.Credential
	expiresAt time.Time
}

type MemoryTokenStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryTokenStore keeps credentials in process. ttl <= 0 keeps them forever.
func NewMemoryTokenStore(ttl time.Duration) *MemoryTokenStore {
	return &MemoryTokenStore{entries: make(map[string]memoryEntry), ttl: ttl}
}

func (s *MemoryTokenStore) Save(_ context.Context, sessionID string, c credential.Credential) error {
	entry := memoryEntry{cred: c}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[sessionID] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Load(_ context.Context, sessionID string) (credential.Credential, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return credential.Credential{}, ErrTokenNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		_ = s.Delete(context.Background(), sessionID)
		return credential.Credential{}, ErrTokenNotFound
	}
	return entry.cred, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}
