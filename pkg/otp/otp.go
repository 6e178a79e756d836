// Package otp produces short-lived numeric one-time codes for email
// step-up verification. Codes are uniform over [100000, 999999] and carry
// a server-issued expiry that is the single source of truth for clients.
package otp

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

const (
	codeMin  = 100000
	codeSpan = 900000

	// DefaultTTL matches the window the login flow advertises to clients.
	DefaultTTL = 60 * time.Second
)

// ErrGenerate means the random source failed.
var ErrGenerate = errors.New("otp: failed to generate code")

// Code is an issued one-time code with its expiry.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

// Generator issues codes with a fixed validity window.
type Generator struct {
	ttl time.Duration
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithTTL overrides the validity window.
func WithTTL(ttl time.Duration) Option {
	return func(g *Generator) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates a Generator with DefaultTTL unless overridden.
func New(opts ...Option) *Generator {
	g := &Generator{
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TTL returns the configured validity window.
func (g *Generator) TTL() time.Duration { return g.ttl }

// Generate draws a 6-digit code from crypto/rand.
func (g *Generator) Generate() (Code, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return Code{}, errors.Join(ErrGenerate, err)
	}

	value := n.Int64() + codeMin
	return Code{
		Value:     big.NewInt(value).String(),
		ExpiresAt: g.now().Add(g.ttl),
	}, nil
}
