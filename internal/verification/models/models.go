package models

import (
	"time"

	credmodels "credhub/internal/credential/models"
)

const (
	MessageVerified = "Proof verified successfully"
	MessageFailed   = "Proof verification failed"

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Record is an immutable entry in the verification history.
type Record struct {
	Verified         bool              `json:"verified"`
	Message          string            `json:"message"`
	RecoveredAddress string            `json:"recoveredAddress"`
	ClaimedAddress   string            `json:"claimedAddress"`
	CredentialID     string            `json:"credentialId,omitempty"`
	Predicate        string            `json:"predicate"`
	CredentialStatus credmodels.Status `json:"credentialStatus"`
	Timestamp        time.Time         `json:"timestamp"`
}

// Check is the result of one verification step.
type Check struct {
	Name   string
	Passed bool
}

const (
	CheckSignature  = "signature"
	CheckCredential = "credential"
	CheckContract   = "contract"
)

// Details breaks a verdict down into its three signals.
type Details struct {
	SignatureValid   bool              `json:"signatureValid"`
	CredentialValid  bool              `json:"credentialValid"`
	ContractValid    bool              `json:"contractValid"`
	CredentialStatus credmodels.Status `json:"credentialStatus"`
}

// Outcome is the verdict returned to the caller.
type Outcome struct {
	Verified         bool              `json:"verified"`
	Message          string            `json:"message"`
	RecoveredAddress string            `json:"recoveredAddress"`
	ClaimedAddress   string            `json:"claimedAddress"`
	CredentialID     string            `json:"credentialId,omitempty"`
	CredentialStatus credmodels.Status `json:"credentialStatus"`
	Timestamp        time.Time         `json:"timestamp"`
	Details          Details           `json:"details"`
}

// Conjoin is true only when every check passed. No checks is not a pass.
func Conjoin(checks ...Check) bool {
	if len(checks) == 0 {
		return false
	}
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// ClampLimit applies the history limit policy: non-positive values become
// the default and large values are capped.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
