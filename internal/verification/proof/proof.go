// Package proof parses signed attestations and recovers their signer.
//
// A proof is a JSON object {message, signature, publicKey, credentialId?}
// where signature is an Ethereum personal-message signature over message and
// publicKey is the address the prover claims to control.
package proof

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/xeipuuv/gojsonschema"

	dErrors "credhub/pkg/domain-errors"
)

const schemaJSON = `{
	"type": "object",
	"required": ["message", "signature", "publicKey"],
	"properties": {
		"message":      {"type": "string", "minLength": 1},
		"signature":    {"type": "string", "minLength": 1},
		"publicKey":    {"type": "string", "minLength": 1},
		"credentialId": {"type": ["string", "null"]}
	}
}`

var schema = mustCompile(schemaJSON)

func mustCompile(s string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchemaLoader().Compile(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compile proof schema: %v", err))
	}
	return compiled
}

// Proof is a parsed attestation.
type Proof struct {
	Message      string `json:"message"`
	Signature    string `json:"signature"`
	PublicKey    string `json:"publicKey"`
	CredentialID string `json:"credentialId,omitempty"`
}

// Parse validates blob against the proof schema and decodes it. Every failure
// is a CodeMalformedProof error. A null credentialId reads as absent; any
// other value is kept verbatim for the lookup.
func Parse(blob string) (*Proof, error) {
	result, err := schema.Validate(gojsonschema.NewStringLoader(blob))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedProof, "proof is not valid JSON")
	}
	if !result.Valid() {
		return nil, dErrors.New(dErrors.CodeMalformedProof, "invalid proof format: "+describe(result.Errors()))
	}

	var p Proof
	if err := decode(blob, &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedProof, "proof is not valid JSON")
	}
	return &p, nil
}

// RecoverSigner returns the checksummed address whose key produced signature
// over message, using the EIP-191 personal-message hash. v may be 0/1 or 27/28.
func RecoverSigner(message, signature string) (string, error) {
	if !strings.HasPrefix(signature, "0x") && !strings.HasPrefix(signature, "0X") {
		signature = "0x" + signature
	}
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeMalformedProof, "signature is not hex")
	}
	if len(sig) != crypto.SignatureLength {
		return "", dErrors.New(dErrors.CodeMalformedProof,
			fmt.Sprintf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig)))
	}

	v := sig[crypto.RecoveryIDOffset]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", dErrors.New(dErrors.CodeMalformedProof, "signature recovery id out of range")
	}
	sig[crypto.RecoveryIDOffset] = v

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeMalformedProof, "signature does not recover a key")
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// SignedBy reports whether the recovered and claimed addresses match,
// ignoring case.
func SignedBy(recovered, claimed string) bool {
	return recovered != "" && strings.EqualFold(recovered, strings.TrimSpace(claimed))
}

func describe(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}
