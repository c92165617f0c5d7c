package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ScopeAccess  = "access"
	ScopeRefresh = "refresh"
)

// ErrInvalidToken covers malformed input, bad signatures and expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed claim set carried by both token kinds. Scope tells
// an access token apart from a refresh token; checking it is the caller's
// responsibility, Decode only verifies signature and expiry.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens with a process-wide secret fixed at
// startup. Rotating the secret invalidates every outstanding token.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
}

func NewCodec(secret []byte, accessTTL, refreshTTL, leeway time.Duration) *Codec {
	return &Codec{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		leeway:     leeway,
	}
}

func (c *Codec) ttl(scope string) time.Duration {
	if scope == ScopeRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Encode issues a signed token for subject with the TTL of the given scope.
// Refresh tokens carry a unique jti so two issued in the same second never
// collide; rotation depends on the new value differing from the old one.
func (c *Codec) Encode(subject, scope string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl(scope))),
		},
	}
	if scope == ScopeRefresh {
		claims.ID = uuid.NewString()
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Decode verifies signature and expiry and returns the claims. Expiry is
// strict unless a non-zero leeway was configured.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return c.secret, nil
	}, jwt.WithLeeway(c.leeway))
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
