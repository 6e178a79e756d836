// Package resettoken generates opaque password-reset secrets. The caller
// receives the plaintext for the one-time URL; only its SHA-256 digest is
// ever stored, so a leaked database cannot be replayed against the reset
// endpoint.
package resettoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// tokenBytes gives 256 bits of entropy, comfortably above the 160-bit
// floor for unguessable single-use secrets.
const tokenBytes = 32

// ErrGenerate means the random source failed.
var ErrGenerate = errors.New("resettoken: failed to generate token")

// Token pairs a plaintext reset secret with its storable digest.
type Token struct {
	Plaintext string
	Digest    string
}

// Generate draws a fresh reset token.
func Generate() (Token, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Token{}, errors.Join(ErrGenerate, err)
	}

	plaintext := base64.RawURLEncoding.EncodeToString(buf)
	return Token{
		Plaintext: plaintext,
		Digest:    Digest(plaintext),
	}, nil
}

// Digest deterministically hashes an incoming plaintext token so records
// are looked up by digest, never by secret.
func Digest(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
