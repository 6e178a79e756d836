package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/patshala/backend/pkg/sanitizer"
	"github.com/patshala/backend/roster"
)

// Lookup reports whether an identity attribute is already claimed, and by
// which role.
type Lookup struct {
	Exists bool
	Role   Role
}

// Registry answers cross-role uniqueness questions. Email addresses and
// external IDs are unique across both populations, so a registration in
// either store blocks the other.
type Registry struct {
	students PrincipalStore
	teachers PrincipalStore
	rosters  map[Role]*roster.Directory
}

type RegistryOption func(*Registry)

// WithRoster attaches an enrollment roster for a role. Roles without a
// roster skip the enrollment check.
func WithRoster(role Role, dir *roster.Directory) RegistryOption {
	return func(r *Registry) {
		r.rosters[role] = dir
	}
}

// NewRegistry builds a registry over the two role stores.
func NewRegistry(students, teachers PrincipalStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		students: students,
		teachers: teachers,
		rosters:  make(map[Role]*roster.Directory),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EmailExists checks both stores for the normalized email.
func (r *Registry) EmailExists(ctx context.Context, email string) (Lookup, error) {
	email = sanitizer.NormalizeEmail(email)

	if _, err := r.students.GetByEmail(ctx, email); err == nil {
		return Lookup{Exists: true, Role: RoleStudent}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Lookup{}, fmt.Errorf("failed to check student email: %w", err)
	}

	if _, err := r.teachers.GetByEmail(ctx, email); err == nil {
		return Lookup{Exists: true, Role: RoleTeacher}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Lookup{}, fmt.Errorf("failed to check teacher email: %w", err)
	}

	return Lookup{}, nil
}

// ExternalIDExists checks both stores for the external identifier
// (enrollment number or teacher ID).
func (r *Registry) ExternalIDExists(ctx context.Context, externalID string) (Lookup, error) {
	if _, err := r.students.GetByExternalID(ctx, externalID); err == nil {
		return Lookup{Exists: true, Role: RoleStudent}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Lookup{}, fmt.Errorf("failed to check student id: %w", err)
	}

	if _, err := r.teachers.GetByExternalID(ctx, externalID); err == nil {
		return Lookup{Exists: true, Role: RoleTeacher}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Lookup{}, fmt.Errorf("failed to check teacher id: %w", err)
	}

	return Lookup{}, nil
}

// EnrollmentStatus is the outcome of a roster check.
type EnrollmentStatus int

const (
	// EnrollmentUnchecked means no roster is loaded for the role.
	EnrollmentUnchecked EnrollmentStatus = iota
	// EnrollmentUnknown means the ID is not on the roster.
	EnrollmentUnknown
	// EnrollmentNameMismatch means the ID is on the roster under a
	// different name.
	EnrollmentNameMismatch
	// EnrollmentMatch means the ID and name agree with the roster.
	EnrollmentMatch
)

// CheckEnrollment compares a claimed identity against the role's roster.
func (r *Registry) CheckEnrollment(role Role, externalID, name string) EnrollmentStatus {
	dir, ok := r.rosters[role]
	if !ok || dir == nil {
		return EnrollmentUnchecked
	}
	if _, ok := dir.Lookup(externalID); !ok {
		return EnrollmentUnknown
	}
	if !dir.Matches(externalID, name) {
		return EnrollmentNameMismatch
	}
	return EnrollmentMatch
}

// EnrollmentMatches verifies the claimed identity against the role's
// roster. Roles without a loaded roster always pass.
func (r *Registry) EnrollmentMatches(role Role, externalID, name string) bool {
	switch r.CheckEnrollment(role, externalID, name) {
	case EnrollmentUnchecked, EnrollmentMatch:
		return true
	default:
		return false
	}
}
