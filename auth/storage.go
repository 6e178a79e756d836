package auth

import "context"

// PrincipalStore is the persistence contract for one role's records.
// Implementations return ErrNotFound for absent records and the
// ErrDuplicate* sentinels for unique-index violations. Update replaces the
// whole document so the OTP and reset field pairs always land together.
type PrincipalStore interface {
	Create(ctx context.Context, p *Principal) error
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	GetByExternalID(ctx context.Context, externalID string) (*Principal, error)
	GetByResetDigest(ctx context.Context, digest string) (*Principal, error)
	Update(ctx context.Context, p *Principal) error
}
