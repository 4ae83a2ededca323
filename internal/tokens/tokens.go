package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrMissingSandboxID = errors.New("token missing sandbox_id claim")
)

// Claims is the claim set carried by internally-issued bearer tokens.
// SandboxID binds the token to exactly one tenant namespace.
type Claims struct {
	SandboxID string `json:"sandbox_id"`
	jwt.RegisteredClaims
}

// Verifier validates internally-issued tenant tokens.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
	}
}

// Verify validates the token signature and expiry and requires a sandbox_id
// claim. Callers that need tenant binding must separately compare
// Claims.SandboxID against any tenant id in the request body; a mismatch is
// an authorization failure, not an authentication one.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.SandboxID == "" {
		return nil, ErrMissingSandboxID
	}

	return claims, nil
}

// Issue mints a tenant token. Used by internal platform services and tests;
// the relay itself only verifies.
func (v *Verifier) Issue(sandboxID string, ttl time.Duration) (string, error) {
	claims := Claims{
		SandboxID: sandboxID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "rylie-seo",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
