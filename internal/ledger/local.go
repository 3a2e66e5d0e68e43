package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const localIDPrefix = "contract-credential-"

// Local is the in-process ledger used when no ledger URL is configured.
// Registrations are kept in memory and every proof is corroborated.
type Local struct {
	mu         sync.RWMutex
	registered map[string]string
}

func NewLocal() *Local {
	return &Local{registered: make(map[string]string)}
}

// Register returns a fresh ledger id. Registering the same credential again
// returns the id it was first given.
func (l *Local) Register(ctx context.Context, reg Registration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(ErrorTimeout, "register", "context done", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.registered[reg.CredentialID]; ok {
		return id, nil
	}
	id := localIDPrefix + uuid.NewString()
	l.registered[reg.CredentialID] = id
	return id, nil
}

func (l *Local) Corroborate(ctx context.Context, _ string, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, newError(ErrorTimeout, "corroborate", "context done", err)
	}
	return true, nil
}

// Registered reports the ledger id of a credential, if any.
func (l *Local) Registered(credentialID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.registered[credentialID]
	return id, ok
}

var _ Ledger = (*Local)(nil)
