package repository

import (
	"context"
	"crypto/subtle"
	"sync"

	"github.com/atinyakov/rccdash/internal/kvstore"
	"github.com/atinyakov/rccdash/internal/models"
	"go.uber.org/zap"
)

// PasswordVerifier compares a supplied password with the effective one.
type PasswordVerifier interface {
	Verify(supplied, expected string) bool
}

// PlainVerifier compares clear-text passwords exactly.
type PlainVerifier struct{}

// Verify implements PasswordVerifier.
func (PlainVerifier) Verify(supplied, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) == 1
}

// CredentialStore maps identity keys to stored passwords.
type CredentialStore struct {
	mu      sync.Mutex
	p       persister
	records map[string]models.CredentialRecord
}

// NewCredentialStore loads the credentials namespace from store.
func NewCredentialStore(ctx context.Context, store kvstore.Store, log *zap.Logger) *CredentialStore {
	records := map[string]models.CredentialRecord{}
	if !kvstore.LoadJSON(ctx, store, kvstore.KeyCredentials, &records) || records == nil {
		records = map[string]models.CredentialRecord{}
	}
	return &CredentialStore{
		p:       newPersister(store, kvstore.KeyCredentials, log),
		records: records,
	}
}

// Get returns the effective password: the stored one, or the default
// derived from id.
func (s *CredentialStore) Get(role models.Role, id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[models.IdentityKey(role, id)]; ok {
		return rec.Password
	}
	return models.DefaultPassword(id)
}

// Has reports whether an explicit record exists.
func (s *CredentialStore) Has(role models.Role, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[models.IdentityKey(role, id)]
	return ok
}

// Set replaces the record for the identity and persists.
func (s *CredentialStore) Set(ctx context.Context, role models.Role, id, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[models.IdentityKey(role, id)] = models.CredentialRecord{Password: password}
	s.p.save(ctx, s.records)
}
