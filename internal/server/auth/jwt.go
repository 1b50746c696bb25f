// Package auth holds the credential primitives of the server: bcrypt password
// hashing, HMAC-signed JWT access tokens and opaque refresh tokens.
package auth

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrMalformedToken   = errors.New("malformed token")
)

// Claims are the verified contents of an access token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// Issuer mints and verifies access tokens with a single HMAC key.
type Issuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer for one of HS256, HS384 or HS512.
// ttl is used whenever IssueAccessToken is called without a positive ttl.
func NewIssuer(secret []byte, algorithm string, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: access token ttl must be positive")
	}
	return &Issuer{secret: secret, method: method, ttl: ttl, now: time.Now}, nil
}

// TTL is the default access token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// IssueAccessToken signs a token for subject. extra claims are merged in but
// never override sub, exp, iat or jti.
func (i *Issuer) IssueAccessToken(subject string, extra map[string]any, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = i.ttl
	}
	now := i.now()

	claims := jwt.MapClaims{}
	maps.Copy(claims, extra)
	claims["sub"] = subject
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(ttl))
	claims["jti"] = uuid.NewString()

	return jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
}

// VerifyAccessToken checks signature, algorithm and expiry and returns the
// claims. Failures are one of ErrMalformedToken, ErrInvalidSignature or
// ErrTokenExpired.
func (i *Issuer) VerifyAccessToken(token string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrInvalidSignature
	default:
		return nil, ErrMalformedToken
	}

	if claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}
