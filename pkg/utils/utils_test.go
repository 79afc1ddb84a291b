package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundtrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("wrong-pass", hash))
}

func TestHashTokenIsDeterministic(t *testing.T) {
	assert.Equal(t, HashToken("tok"), HashToken("tok"))
	assert.NotEqual(t, HashToken("tok"), HashToken("tok2"))
	assert.Len(t, HashToken("tok"), 64)
}

func TestSignAndVerifyPayload(t *testing.T) {
	payload := []byte(`{"hello":"world"}`)
	sig := SignPayload(payload, "secret")

	assert.True(t, VerifySignature(payload, sig, "secret"))
	assert.False(t, VerifySignature(payload, sig, "other"))
	assert.False(t, VerifySignature([]byte("tampered"), sig, "secret"))
	assert.False(t, VerifySignature(payload, "deadbeef", "secret"))
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("abc", "abc"))
	assert.False(t, SecureCompare("abc", "abd"))
	assert.False(t, SecureCompare("abc", "abcd"))
	assert.False(t, SecureCompare("", "abc"))
}
