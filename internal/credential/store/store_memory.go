package store

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"credhub/internal/credential/models"
	dErrors "credhub/pkg/domain-errors"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
// Credentials are kept in issuance order.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[models.CredentialID]*models.Credential
	order       []models.CredentialID

	// flush, when set, receives the full collection after every mutation
	// while the write lock is still held.
	flush func(all []models.Credential) error
}

// NewInMemoryStore constructs an empty in-memory credential store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{credentials: make(map[models.CredentialID]*models.Credential)}
}

// Create inserts a new credential. An existing id yields ErrConflict and
// leaves the store unchanged.
func (s *InMemoryStore) Create(_ context.Context, credential models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credentials[credential.ID]; exists {
		return ErrConflict
	}
	c := credential
	s.credentials[c.ID] = &c
	s.order = append(s.order, c.ID)
	return s.flushLocked()
}

// FindByID retrieves a credential by ID or returns ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, id models.CredentialID) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.credentials[id]; ok {
		return *c, nil
	}
	return models.Credential{}, ErrNotFound
}

// Revoke marks the credential revoked. Unknown ids return false without error.
// Revoking twice is a no-op on state but rewrites the durable copy.
func (s *InMemoryStore) Revoke(_ context.Context, id models.CredentialID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return false, nil
	}
	c.Revoked = true
	return true, s.flushLocked()
}

// ListBySubject returns the subject's credentials in issuance order. The
// subject is compared case-insensitively. The result is never nil.
func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]models.Credential, error) {
	subject = models.NormalizeSubject(subject)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.snapshotLocked(), func(c models.Credential, _ int) bool {
		return c.Subject == subject
	}), nil
}

// All returns every credential in issuance order.
func (s *InMemoryStore) All(_ context.Context) ([]models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

func (s *InMemoryStore) snapshotLocked() []models.Credential {
	out := make([]models.Credential, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.credentials[id])
	}
	return out
}

func (s *InMemoryStore) flushLocked() error {
	if s.flush == nil {
		return nil
	}
	if err := s.flush(s.snapshotLocked()); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to persist credentials")
	}
	return nil
}

// replaceLocked swaps in a loaded collection. Later duplicates of an id are dropped.
func (s *InMemoryStore) replaceLocked(items []models.Credential) int {
	s.credentials = make(map[models.CredentialID]*models.Credential, len(items))
	s.order = s.order[:0]
	for _, item := range items {
		if _, dup := s.credentials[item.ID]; dup || item.ID == "" {
			continue
		}
		c := item
		s.credentials[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
	return len(s.order)
}

var _ Store = (*InMemoryStore)(nil)
