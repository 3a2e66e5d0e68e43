package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	dErrors "credhub/pkg/domain-errors"
)

const (
	// Issuer is stamped on every credential this service issues.
	Issuer = "zk-credential-hub"

	// IssuerName is the display name carried in credential metadata.
	IssuerName = "ZK Credential Hub"

	credentialIDPrefix = "vc_"
)

var commitmentPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)

// CredentialID is the prefixed identifier for issued credentials.
type CredentialID string

// NewCredentialID generates a new credential ID with a stable prefix.
func NewCredentialID() CredentialID {
	return CredentialID(credentialIDPrefix + uuid.NewString())
}

func (id CredentialID) String() string {
	return string(id)
}

// Status is derived from a credential's revoked flag and expiry at a given
// instant. It is never stored.
type Status string

const (
	StatusValid   Status = "valid"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"

	// StatusNotFound and StatusNotApplicable only appear in verification
	// outcomes: the referenced id is unknown, or no id was referenced.
	StatusNotFound      Status = "not_found"
	StatusNotApplicable Status = "not_applicable"
)

// Metadata is informational and plays no part in validity.
type Metadata struct {
	Description string `json:"description"`
	IssuerName  string `json:"issuerName"`
	Category    string `json:"category"`
}

// Credential is an issued attestation bound to a wallet address. All fields
// except Revoked are immutable after issuance.
type Credential struct {
	ID         CredentialID   `json:"credentialId"`
	Issuer     string         `json:"issuer"`
	Subject    string         `json:"subject"`
	Commitment string         `json:"commitment"`
	Type       CredentialType `json:"type"`
	IssuedAt   time.Time      `json:"issuedAt"`
	ExpiresAt  time.Time      `json:"expiresAt"`
	Revoked    bool           `json:"revoked"`
	Metadata   Metadata       `json:"metadata"`
}

// StatusAt derives the credential status at now. Revocation wins over expiry.
func (c *Credential) StatusAt(now time.Time) Status {
	if c.Revoked {
		return StatusRevoked
	}
	if !now.Before(c.ExpiresAt) {
		return StatusExpired
	}
	return StatusValid
}

// NewCredential builds an unrevoked credential of template t, issued at
// issuedAt (truncated to milliseconds, UTC).
func NewCredential(id CredentialID, subject, commitment string, t Template, issuedAt time.Time) *Credential {
	issuedAt = issuedAt.UTC().Truncate(time.Millisecond)
	return &Credential{
		ID:         id,
		Issuer:     Issuer,
		Subject:    NormalizeSubject(subject),
		Commitment: commitment,
		Type:       t.Type,
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(t.DefaultDuration),
		Revoked:    false,
		Metadata: Metadata{
			Description: t.Description,
			IssuerName:  IssuerName,
			Category:    t.Category,
		},
	}
}

// NormalizeSubject lowercases a wallet address for storage and lookup and
// adds the 0x prefix to bare 40-character hex addresses.
func NormalizeSubject(subject string) string {
	subject = strings.ToLower(strings.TrimSpace(subject))
	if !strings.HasPrefix(subject, "0x") && IsValidAddress(subject) {
		subject = "0x" + subject
	}
	return subject
}

// IsValidAddress reports whether s is a 20-byte hex address, with or without
// the 0x prefix. Mixed-case input must carry a correct EIP-55 checksum;
// all-lower and all-upper hex are accepted as unchecksummed.
func IsValidAddress(s string) bool {
	if strings.HasPrefix(s, "0X") {
		return false
	}
	body := strings.TrimPrefix(s, "0x")
	if !common.IsHexAddress(body) || strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		return false
	}
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(body).Hex() == "0x"+body
}

// IsValidCommitment reports whether s is 0x followed by 64 hex characters.
func IsValidCommitment(s string) bool {
	return commitmentPattern.MatchString(s)
}

// IssueRequest is the validated input to issuance.
type IssueRequest struct {
	Subject    string
	Commitment string
	Type       string
}

// Validate checks fields in order and returns the first failure.
func (r IssueRequest) Validate() error {
	subject := strings.TrimSpace(r.Subject)
	commitment := strings.TrimSpace(r.Commitment)
	credType := strings.TrimSpace(r.Type)

	if subject == "" || commitment == "" || credType == "" {
		return dErrors.New(dErrors.CodeMissingField, "missing required fields: subject, commitment, type")
	}
	if !IsValidAddress(subject) {
		return dErrors.New(dErrors.CodeInvalidAddress, "invalid subject address")
	}
	if !IsValidCommitment(commitment) {
		return dErrors.New(dErrors.CodeInvalidCommitment, "invalid commitment format: expected 0x followed by 64 hex characters")
	}
	if _, ok := Lookup(CredentialType(credType)); !ok {
		return dErrors.New(dErrors.CodeUnsupportedType,
			"unsupported credential type: "+credType+"; supported types: "+strings.Join(SupportedTypeNames(), ", "))
	}
	return nil
}
