package cryptox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T, secret, salt string) *Cipher {
	t.Helper()
	key, err := DeriveKey(secret, salt)
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)
	return c
}

func TestDeriveKey_DeterministicAndSized(t *testing.T) {
	k1, err := DeriveKey("test-secret", "test-salt")
	require.NoError(t, err)
	k2, err := DeriveKey("test-secret", "test-salt")
	require.NoError(t, err)

	assert.Len(t, k1, KeySize)
	assert.Equal(t, k1, k2, "same secret+salt must derive the same key")

	k3, err := DeriveKey("other-secret", "other-salt")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestDeriveKey_EmptyInputs(t *testing.T) {
	_, err := DeriveKey("", "salt")
	assert.Error(t, err)
	_, err = DeriveKey("secret", "")
	assert.Error(t, err)
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t, "test-secret", "test-salt")

	plaintexts := []string{
		"hello neighbour",
		"",
		"short",
		"a much longer message body that spans multiple AES blocks for good measure",
		"privet, sosed! 🙂",
	}

	for _, pt := range plaintexts {
		token, err := c.Encrypt(pt)
		require.NoError(t, err)

		got, err := c.Decrypt(token)
		require.NoError(t, err)
		assert.Equal(t, pt, got)
	}
}

// Identical plaintext must yield identical tokens. This is the documented
// compatibility trade-off of the IV-less mode, asserted on purpose so that
// moving to a nonce-based mode is a conscious, test-breaking decision.
func TestCipher_Deterministic(t *testing.T) {
	c := newTestCipher(t, "test-secret", "test-salt")

	t1, err := c.Encrypt("same message")
	require.NoError(t, err)
	t2, err := c.Encrypt("same message")
	require.NoError(t, err)

	assert.Equal(t, t1, t2)
}

// Content written under a retired key must surface as ErrInvalidCiphertext,
// never as a panic or a generic failure: key rotation renders old content
// unreadable but must not corrupt the service.
func TestCipher_KeyChangeTolerance(t *testing.T) {
	oldCipher := newTestCipher(t, "test-secret", "test-salt")
	newCipher := newTestCipher(t, "other-secret", "other-salt")

	plaintexts := []string{
		"hello neighbour",
		"",
		"short",
		"a much longer message body that spans multiple AES blocks for good measure",
		"privet, sosed! 🙂",
	}

	for _, pt := range plaintexts {
		token, err := oldCipher.Encrypt(pt)
		require.NoError(t, err)

		_, err = newCipher.Decrypt(token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidCiphertext),
			"want ErrInvalidCiphertext for %q, got %v", pt, err)
	}
}

func TestCipher_Decrypt_MalformedToken(t *testing.T) {
	c := newTestCipher(t, "test-secret", "test-salt")

	tests := []struct {
		name  string
		token string
	}{
		{name: "not base64", token: "%%% not base64 %%%"},
		{name: "empty", token: ""},
		{name: "not whole blocks", token: "YWJjZA=="}, // 4 raw bytes
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedToken), "got %v", err)
		})
	}
}

func TestNewCipher_RejectsBadKeyLength(t *testing.T) {
	_, err := NewCipher([]byte("too short"))
	assert.Error(t, err)
}
