// Package ledger is the external collaborator that anchors credentials and
// corroborates proofs. Its answers are advisory: callers bound every call with
// a timeout and treat failure as a negative signal, never as a reason to undo
// local state.
package ledger

import "context"

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks Ledger

// Registration is what the ledger learns about a newly issued credential.
type Registration struct {
	CredentialID string `json:"credentialId"`
	Subject      string `json:"subject"`
	Commitment   string `json:"commitment"`
	Type         string `json:"type"`
}

// Ledger registers credentials and corroborates proofs.
type Ledger interface {
	// Register anchors a credential and returns the ledger's own id for it.
	Register(ctx context.Context, reg Registration) (string, error)

	// Corroborate asks whether the raw proof satisfies predicate.
	Corroborate(ctx context.Context, proofBlob, predicate string) (bool, error)
}
