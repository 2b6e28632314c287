package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSecret is the insecure fallback signing key used when JWT_SECRET
// is not configured. Running on it is a deployment misconfiguration; the
// server warns loudly at startup.
const DefaultSecret = "your-secret-key"

// TokenTTL is how long issued tokens stay valid. There is no revocation:
// a token outlives password changes for its full lifetime.
const TokenTTL = 30 * 24 * time.Hour

// ErrInvalidToken is returned for every verification failure (malformed,
// bad signature, expired) so the caller cannot distinguish the cause.
var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// TokenService issues and verifies signed bearer tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService builds a token service signing with secret. An empty
// secret falls back to DefaultSecret.
func NewTokenService(secret string) *TokenService {
	if secret == "" {
		secret = DefaultSecret
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token embedding userID with a 30-day expiry.
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the embedded user ID.
func (s *TokenService) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", ErrInvalidToken
	}
	if parsed.UserID == "" {
		return "", ErrInvalidToken
	}
	return parsed.UserID, nil
}
