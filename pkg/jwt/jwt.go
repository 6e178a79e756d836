package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minKeyLength is the floor for HMAC-SHA256 signing keys.
const minKeyLength = 32

// Claims is re-exported so callers don't need a second jwt import to
// implement custom claims types.
type Claims = jwt.Claims

// RegisteredClaims mirrors the standard temporal claims set.
type RegisteredClaims = jwt.RegisteredClaims

// Service signs and verifies bearer tokens with HS256. The signing key is
// process-wide configuration loaded once at startup and never regenerated
// at runtime.
type Service struct {
	signingKey []byte
}

// New creates a token service from a string signing key.
func New(signingKey string) (*Service, error) {
	if signingKey == "" {
		return nil, ErrMissingSigningKey
	}
	if len(signingKey) < minKeyLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrInvalidSigningKey, minKeyLength, len(signingKey))
	}
	return &Service{signingKey: []byte(signingKey)}, nil
}

// Generate signs the claims and returns the compact token string. Callers
// set expiry through their claims' RegisteredClaims; NewRegisteredClaims
// builds those from a ttl.
func (s *Service) Generate(claims jwt.Claims) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token signature and temporal claims, unmarshalling
// into the provided claims pointer. Expired tokens return ErrExpiredToken;
// every other failure returns ErrInvalidToken.
func (s *Service) Parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// NewRegisteredClaims builds the standard temporal claims for a token that
// expires ttl from now.
func NewRegisteredClaims(ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
