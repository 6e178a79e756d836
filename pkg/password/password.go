// Package password provides one-way credential hashing and verification
// on top of bcrypt with an enforced minimum work factor.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinCost is the lowest accepted bcrypt cost. Anything weaker does not
// meaningfully resist offline brute force on current hardware.
const MinCost = 10

// Hasher hashes and verifies passwords. The zero value is not usable;
// construct with New.
type Hasher struct {
	cost int
}

// New creates a Hasher with the given bcrypt cost. Costs below MinCost are
// raised to MinCost.
func New(cost int) Hasher {
	if cost < MinCost {
		cost = MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return Hasher{cost: cost}
}

// Hash derives a salted digest of the password.
func (h Hasher) Hash(password string) ([]byte, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHash, err)
	}
	return digest, nil
}

// Verify compares a candidate password against a stored digest. It returns
// ErrMismatch when the password is wrong and ErrHash only on an internal
// fault (malformed digest). bcrypt's comparison does not leak correctness
// through timing.
func (h Hasher) Verify(candidate string, digest []byte) error {
	err := bcrypt.CompareHashAndPassword(digest, []byte(candidate))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return fmt.Errorf("%w: %w", ErrHash, err)
}
