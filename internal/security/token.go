package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type sessionClaims struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates signed session tokens. The signing
// secret is process-wide configuration; rotation is out of scope.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer returns a TokenIssuer signing with secret and issuing
// tokens valid for ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// TTL returns the validity window of issued tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue creates a signed JWT for the subject. Email and phone claims are
// included when non-empty. Every token carries a unique jti so a
// revocation list can be added later without changing the format.
func (t *TokenIssuer) Issue(subject uuid.UUID, email, phone string) (string, error) {
	now := time.Now()
	claims := &sessionClaims{
		Email: email,
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify validates the token signature and expiry and returns the
// subject id. Any structural or cryptographic failure yields an error;
// there is no partial trust.
func (t *TokenIssuer) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, err
	}

	if claims, ok := token.Claims.(*sessionClaims); ok && token.Valid {
		return uuid.Parse(claims.Subject)
	}

	return uuid.Nil, jwt.ErrTokenInvalidClaims
}
