package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is used when the codec is built with a non-positive TTL.
const DefaultTokenTTL = 24 * time.Hour

var (
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")
	ErrEmptySigningKey   = errors.New("token signing key is empty")
)

// Claims is the signed payload of a session token.
// Subject is the username; IssuedAt and ExpiresAt bound its validity.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenCodec issues and validates HS256 session tokens. Tokens are stateless:
// once issued they stay valid until expiry, there is no revocation list.
type TokenCodec struct {
	key    []byte
	ttl    time.Duration
	issuer string
}

// NewTokenCodec copies key so later mutation by the caller cannot affect
// signing.
func NewTokenCodec(key []byte, ttl time.Duration, issuer string) (*TokenCodec, error) {
	if len(key) == 0 {
		return nil, ErrEmptySigningKey
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &TokenCodec{key: k, ttl: ttl, issuer: issuer}, nil
}

// TTL returns the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subject carrying role, valid from now until now+TTL.
// The exp claim has whole-second precision, so it is rounded up: a token never
// expires before now+TTL.
func (c *TokenCodec) Issue(subject, role string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ceilSecond(now.Add(c.ttl))),
			ID:        uuid.NewString(),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature and expiry of token as of now and returns
// the embedded claims. A token is expired only once now is strictly after
// its exp claim. Errors are ErrTokenMalformed, ErrTokenBadSignature or
// ErrTokenExpired.
func (c *TokenCodec) Validate(token string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		// exp is checked below; jwt/v5 treats now == exp as expired.
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrTokenMalformed)
	}
	if now.After(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing subject or role", ErrTokenMalformed)
	}
	return claims, nil
}

func ceilSecond(t time.Time) time.Time {
	if down := t.Truncate(time.Second); down.Before(t) {
		return down.Add(time.Second)
	}
	return t
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenBadSignature
	default:
		return ErrTokenMalformed
	}
}
