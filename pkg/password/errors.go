package password

import "errors"

var (
	// ErrMismatch means the candidate password does not match the digest.
	ErrMismatch = errors.New("password does not match")

	// ErrHash means hashing or comparison failed internally.
	ErrHash = errors.New("password hashing failed")
)
