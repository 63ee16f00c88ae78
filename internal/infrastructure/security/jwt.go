package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

const DefaultAccessTTL = 15 * time.Minute

// JWTCodec signs and verifies HS256 access tokens. The only application
// claim is the subject; the token is never persisted.
type JWTCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTCodec(secret string, issuer string, ttl time.Duration) *JWTCodec {
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &JWTCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for iat/exp and for expiry checks.
func (c *JWTCodec) WithClock(now func() time.Time) *JWTCodec {
	if now != nil {
		c.now = now
	}
	return c
}

func (c *JWTCodec) TTL() time.Duration { return c.ttl }

func (c *JWTCodec) Issue(userID string) (string, int64, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", 0, domain.ErrTokenSignFailed(err)
	}
	return signed, int64(c.ttl / time.Second), nil
}

// Verify returns the subject of a valid token.
// Expired tokens map to AUTH_TOKEN_EXPIRED, everything else to AUTH_TOKEN_INVALID.
func (c *JWTCodec) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrTokenInvalid()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired()
		}
		return "", domain.ErrTokenInvalid()
	}
	if !parsed.Valid {
		return "", domain.ErrTokenInvalid()
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", domain.ErrTokenInvalid()
	}
	return claims.Subject, nil
}
