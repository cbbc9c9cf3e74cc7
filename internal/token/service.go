// Package token issues and verifies the signed bearer tokens that carry identity
// between requests. Verification needs no storage lookup.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken is returned for every malformed, mis-signed or expired token.
var ErrInvalidToken = errors.New("token: invalid token")

var signingMethod = jwt.SigningMethodHS256

// Config configures the token service.
type Config struct {
	// Secret is the HMAC signing key.
	Secret string
	// TTL is added to the issue time to get the expiry.
	TTL time.Duration
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Claims is the identity carried by a token.
type Claims struct {
	UserID    string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Service signs and verifies tokens with a single shared secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService validates cfg and builds a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: secret is required")
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("token: negative ttl %s", cfg.TTL)
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{secret: []byte(cfg.Secret), ttl: cfg.TTL, now: cfg.Now}, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs claims with the configured TTL.
func (s *Service) Issue(claims Claims) (string, error) {
	return s.IssueWithTTL(claims, s.ttl)
}

// IssueWithTTL signs claims expiring ttl after their issue time. A zero IssuedAt
// means now. Any ExpiresAt on the input is ignored.
func (s *Service) IssueWithTTL(claims Claims, ttl time.Duration) (string, error) {
	if claims.UserID == "" {
		return "", errors.New("token: user id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token: ttl must be positive, got %s", ttl)
	}
	issuedAt := claims.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		ID:   claims.UserID,
		Role: claims.Role,
	}
	signed, err := jwt.NewWithClaims(signingMethod, tc).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the embedded claims.
func (s *Service) Verify(raw string) (Claims, error) {
	var tc tokenClaims
	parsed, err := jwt.ParseWithClaims(raw, &tc, s.keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if tc.ID == "" || tc.IssuedAt == nil {
		return Claims{}, ErrInvalidToken
	}
	return Claims{
		UserID:    tc.ID,
		Role:      tc.Role,
		IssuedAt:  tc.IssuedAt.Time,
		ExpiresAt: tc.ExpiresAt.Time,
	}, nil
}

func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != signingMethod.Alg() {
		return nil, fmt.Errorf("token: unexpected signing method %s", t.Method.Alg())
	}
	return s.secret, nil
}
