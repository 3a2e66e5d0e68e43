package testutil

import (
	"crypto/ecdsa"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// Commitment is a well-formed commitment for issuance tests.
const Commitment = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcd"

// Wallet is a throwaway signing key and its checksummed address.
type Wallet struct {
	Key     *ecdsa.PrivateKey
	Address string
}

// NewWallet generates a fresh key.
func NewWallet(t *testing.T) Wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return Wallet{Key: key, Address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

// SignMessage produces a personal-message signature with v in {27, 28}, the
// form wallets hand out.
func (w Wallet) SignMessage(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.Key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

// Proof is the signed attestation submitted to verification.
type Proof struct {
	Message      string `json:"message"`
	Signature    string `json:"signature"`
	PublicKey    string `json:"publicKey"`
	CredentialID string `json:"credentialId,omitempty"`
}

// SignProof signs message and claims the wallet's own address.
func (w Wallet) SignProof(t *testing.T, message, credentialID string) Proof {
	t.Helper()
	return Proof{
		Message:      message,
		Signature:    w.SignMessage(t, message),
		PublicKey:    w.Address,
		CredentialID: credentialID,
	}
}

// Blob encodes the proof as the JSON string carried in proofBlob.
func (p Proof) Blob(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return string(raw)
}

// ZeroAddress is a valid address nobody signs for.
var ZeroAddress = common.Address{}.Hex()
