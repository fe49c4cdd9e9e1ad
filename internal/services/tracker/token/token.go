// Package token issues and validates HS256-signed bearer tokens.
//
// A token carries the subject id (sub), issued-at (iat) and expiry (exp)
// registered claims. There is no refresh or revocation: rotating the secret
// invalidates every outstanding token.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/orion/internal/platform/errors"
)

// DefaultTTL is the lifetime of an access token.
const DefaultTTL = 30 * time.Minute

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = apperrors.New(apperrors.CodeInvalidToken, "Invalid token")

// Config defines how tokens are signed and validated.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// Service signs and validates access tokens with a process-wide secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService validates cfg and returns a token Service.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("token ttl must not be negative, got %s", cfg.TTL)
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &Service{secret: secret, ttl: cfg.TTL, now: cfg.Now}, nil
}

// TTL reports the lifetime applied to issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subjectID expiring TTL from now.
func (s *Service) Issue(subjectID string) (string, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return "", errors.New("token subject is required")
	}
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and expiry of raw and returns its subject.
// A token is expired once the current time reaches its exp claim.
func (s *Service) Validate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", mapJWTError(err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", apperrors.New(apperrors.CodeInvalidToken, "Invalid token")
	}
	return subject, nil
}

// mapJWTError translates jwt library errors to application errors.
// The client-facing message stays generic; the cause is kept for logs.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.CodeInvalidToken, "Invalid token", fmt.Errorf("token expired: %w", err))
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.CodeInvalidToken, "Invalid token", fmt.Errorf("token signature invalid: %w", err))
	default:
		return apperrors.Wrap(apperrors.CodeInvalidToken, "Invalid token", err)
	}
}
