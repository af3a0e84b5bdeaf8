package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("generates 64 character hex string", func(t *testing.T) {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, _ := GenerateToken()
		token2, _ := GenerateToken()
		assert.NotEqual(t, token1, token2)
	})
}

func TestHashToken(t *testing.T) {
	t.Run("same input produces same hash", func(t *testing.T) {
		assert.Equal(t, HashToken("test-token"), HashToken("test-token"))
	})

	t.Run("different input produces different hash", func(t *testing.T) {
		assert.NotEqual(t, HashToken("token-1"), HashToken("token-2"))
	})
}

func TestEncryptDecrypt(t *testing.T) {
	key := strings.Repeat("ab", 32)

	t.Run("round trips", func(t *testing.T) {
		encrypted, err := Encrypt(key, `{"noiseKey":"secret"}`)
		require.NoError(t, err)
		assert.NotContains(t, encrypted, "noiseKey")

		plain, err := Decrypt(key, encrypted)
		require.NoError(t, err)
		assert.Equal(t, `{"noiseKey":"secret"}`, plain)
	})

	t.Run("unique ciphertext per call", func(t *testing.T) {
		a, err := Encrypt(key, "payload")
		require.NoError(t, err)
		b, err := Encrypt(key, "payload")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := Encrypt("abcd", "payload")
		assert.Error(t, err)
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		encrypted, err := Encrypt(key, "payload")
		require.NoError(t, err)
		_, err = Decrypt(strings.Repeat("cd", 32), encrypted)
		assert.Error(t, err)
	})

	t.Run("rejects truncated ciphertext", func(t *testing.T) {
		_, err := Decrypt(key, "aGVsbG8=")
		assert.Error(t, err)
	})
}

func TestIsValidPhoneNumber(t *testing.T) {
	assert.True(t, IsValidPhoneNumber("+2250700000000"))
	assert.True(t, IsValidPhoneNumber("2250700000000"))
	assert.False(t, IsValidPhoneNumber(""))
	assert.False(t, IsValidPhoneNumber("+07 00 00 00"))
	assert.False(t, IsValidPhoneNumber("0123"))
	assert.False(t, IsValidPhoneNumber("not-a-number"))
}
