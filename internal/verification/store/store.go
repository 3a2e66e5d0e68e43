package store

import (
	"context"

	"credhub/internal/verification/models"
)

// Store is the append-only verification history. An Append that fails with
// CodePersistence has still been recorded in memory.
type Store interface {
	Append(ctx context.Context, record models.Record) error
	Recent(ctx context.Context, limit int) ([]models.Record, error)
	Count(ctx context.Context) (total int, verified int, err error)
}
