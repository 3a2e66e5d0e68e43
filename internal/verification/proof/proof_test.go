package proof

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credhub/pkg/domain-errors"
	"credhub/pkg/testutil"
)

func TestParse(t *testing.T) {
	t.Run("valid proof", func(t *testing.T) {
		p, err := Parse(`{"message":"hi","signature":"0x01","publicKey":"0xabc","credentialId":"vc_1","extra":1}`)
		require.NoError(t, err)
		assert.Equal(t, "hi", p.Message)
		assert.Equal(t, "vc_1", p.CredentialID)
	})

	t.Run("credential id is optional", func(t *testing.T) {
		p, err := Parse(`{"message":"hi","signature":"0x01","publicKey":"0xabc"}`)
		require.NoError(t, err)
		assert.Empty(t, p.CredentialID)
	})

	t.Run("null credential id reads as absent", func(t *testing.T) {
		p, err := Parse(`{"message":"hi","signature":"0x01","publicKey":"0xabc","credentialId":null}`)
		require.NoError(t, err)
		assert.Empty(t, p.CredentialID)
	})

	t.Run("credential id is kept verbatim", func(t *testing.T) {
		p, err := Parse(`{"message":"hi","signature":"0x01","publicKey":"0xabc","credentialId":" vc_1 "}`)
		require.NoError(t, err)
		assert.Equal(t, " vc_1 ", p.CredentialID)

		p, err = Parse(`{"message":"hi","signature":"0x01","publicKey":"0xabc","credentialId":"   "}`)
		require.NoError(t, err)
		assert.Equal(t, "   ", p.CredentialID)
	})

	malformed := map[string]string{
		"not json":              `{"message":`,
		"array":                 `[]`,
		"missing signature":     `{"message":"hi","publicKey":"0xabc"}`,
		"empty message":         `{"message":"","signature":"0x01","publicKey":"0xabc"}`,
		"numeric public key":    `{"message":"hi","signature":"0x01","publicKey":42}`,
		"numeric credential id": `{"message":"hi","signature":"0x01","publicKey":"0xabc","credentialId":7}`,
	}
	for name, blob := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(blob)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedProof), err.Error())
		})
	}
}

// Signatures below are what ethers' Wallet.signMessage returns for the key
// 0x0123456789012345678901234567890123456789012345678901234567890123.
func TestRecoverSignerKnownVectors(t *testing.T) {
	const address = "0x14791697260E4c9A71f18484C9f997B308e59325"
	vectors := map[string]string{
		"Hello World":              "0xe0ed34fbbe927a58267ce2e8067a611c69869e20e731bc99187a8bc97058664c16de07f7660f06ce0985d1d8e063726783033fda59b307897f26a21392d62b3a1c",
		"I hold credential vc_123": "0xfab3cfd1f5a7214acbb9308ed1c99d74616f83cc2a355f92b29977109f243b186a835ac792867a892f0ede1d8c6c796123b626582cbb051f4a5afc9b713ace911b",
	}
	for message, signature := range vectors {
		t.Run(message, func(t *testing.T) {
			got, err := RecoverSigner(message, signature)
			require.NoError(t, err)
			assert.Equal(t, address, got)
		})
	}
}

func TestRecoverSigner(t *testing.T) {
	wallet := testutil.NewWallet(t)
	message := "I hold credential vc_123"

	t.Run("v as 27/28", func(t *testing.T) {
		got, err := RecoverSigner(message, wallet.SignMessage(t, message))
		require.NoError(t, err)
		assert.Equal(t, wallet.Address, got)
	})

	t.Run("v as 0/1 without prefix", func(t *testing.T) {
		sig, err := hexutil.Decode(wallet.SignMessage(t, message))
		require.NoError(t, err)
		sig[64] -= 27
		got, err := RecoverSigner(message, hexutil.Encode(sig)[2:])
		require.NoError(t, err)
		assert.Equal(t, wallet.Address, got)
	})

	t.Run("different message recovers a different address", func(t *testing.T) {
		got, err := RecoverSigner("tampered", wallet.SignMessage(t, message))
		require.NoError(t, err)
		assert.NotEqual(t, wallet.Address, got)
	})

	bad := map[string]string{
		"not hex":      "0xzz",
		"short":        "0x" + strings.Repeat("ab", 64),
		"bad recovery": "0x" + strings.Repeat("ab", 64) + "05",
	}
	for name, sig := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := RecoverSigner(message, sig)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedProof))
		})
	}
}

func TestSignedBy(t *testing.T) {
	assert.True(t, SignedBy("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
	assert.False(t, SignedBy("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", testutil.ZeroAddress))
	assert.False(t, SignedBy("", ""))
}

func TestNormalize(t *testing.T) {
	obj := `{"message":"hi","signature":"0x01","publicKey":"0xabc"}`
	quoted, err := json.Marshal(obj)
	require.NoError(t, err)

	assert.Equal(t, obj, Normalize(json.RawMessage(obj)))
	assert.Equal(t, obj, Normalize(json.RawMessage(quoted)))
	assert.Equal(t, "", Normalize(json.RawMessage(`"   "`)))
	assert.Equal(t, "", Normalize(json.RawMessage(`null`)))
	assert.Equal(t, "", Normalize(nil))
	assert.Equal(t, "42", Normalize(json.RawMessage(`42`)))
}
