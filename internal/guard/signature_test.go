package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	signer := NewSigner("test-secret")
	body := []byte(`{"request_id":"abc","title":"hello"}`)

	sig := signer.Sign("1700000000", body)
	assert.Len(t, sig, 64) // hex-encoded SHA-256
	assert.True(t, signer.Verify("1700000000", body, sig))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	signer := NewSigner("test-secret")
	body := []byte(`{"request_id":"abc"}`)

	sig := signer.Sign("1700000000", body)
	require.NotEmpty(t, sig)

	// Flip the last byte of the signature
	tampered := sig[:len(sig)-1] + flipHexDigit(sig[len(sig)-1])
	assert.False(t, signer.Verify("1700000000", body, tampered))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	signer := NewSigner("test-secret")
	sig := signer.Sign("1700000000", []byte(`{"a":1}`))

	assert.False(t, signer.Verify("1700000000", []byte(`{"a":2}`), sig))
}

func TestVerifyRejectsWrongTimestamp(t *testing.T) {
	signer := NewSigner("test-secret")
	body := []byte(`{"a":1}`)
	sig := signer.Sign("1700000000", body)

	assert.False(t, signer.Verify("1700000001", body, sig))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"a":1}`)
	sig := NewSigner("secret-one").Sign("1700000000", body)

	assert.False(t, NewSigner("secret-two").Verify("1700000000", body, sig))
}

func TestSignSeparatorMatters(t *testing.T) {
	// "12.34" must not collide with "123.4"
	signer := NewSigner("test-secret")
	assert.NotEqual(t, signer.Sign("12", []byte("34")), signer.Sign("123", []byte("4")))
}

func flipHexDigit(c byte) string {
	if c == 'a' {
		return "b"
	}
	return "a"
}
