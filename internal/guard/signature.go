package guard

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer computes and verifies envelope signatures for vendor traffic.
// The signed message is the concatenation "<timestamp>.<body>" where body
// is the exact byte sequence on the wire.
type Signer struct {
	secretKey []byte
}

func NewSigner(secretKey string) *Signer {
	return &Signer{
		secretKey: []byte(secretKey),
	}
}

// Sign returns the lowercase hex HMAC-SHA256 of "<timestamp>.<body>".
func (s *Signer) Sign(timestamp string, body []byte) string {
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(timestamp))
	h.Write([]byte("."))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks a received signature against the expected one. The
// comparison is constant time; anything else leaks timing to an attacker
// probing signatures byte by byte.
func (s *Signer) Verify(timestamp string, body []byte, signature string) bool {
	expected := s.Sign(timestamp, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
