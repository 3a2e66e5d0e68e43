package store

import (
	"context"

	"credhub/internal/credential/models"
	dErrors "credhub/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "credential not found")

	// ErrConflict is returned by Create when the id is already taken.
	ErrConflict = dErrors.New(dErrors.CodeConflict, "credential id already exists")
)

// Store owns issued credentials. Values returned are copies; callers mutate
// state only through Create and Revoke.
//
// A Create or Revoke that fails with CodePersistence has still been applied
// in memory.
type Store interface {
	Create(ctx context.Context, credential models.Credential) error
	FindByID(ctx context.Context, id models.CredentialID) (models.Credential, error)
	Revoke(ctx context.Context, id models.CredentialID) (bool, error)
	ListBySubject(ctx context.Context, subject string) ([]models.Credential, error)
	All(ctx context.Context) ([]models.Credential, error)
}
