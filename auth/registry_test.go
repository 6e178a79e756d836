package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patshala/backend/roster"
)

func seedPrincipal(t *testing.T, store *memStore, role Role, email, externalID string) {
	t.Helper()
	err := store.Create(context.Background(), &Principal{
		ID:               uuid.New(),
		Role:             role,
		Name:             "Seed Principal",
		Email:            email,
		ExternalID:       externalID,
		RegistrationDate: time.Now(),
	})
	require.NoError(t, err)
}

func TestRegistry_EmailExists(t *testing.T) {
	t.Parallel()

	students := newMemStore()
	teachers := newMemStore()
	seedPrincipal(t, students, RoleStudent, "ravi@example.com", "EN001")
	seedPrincipal(t, teachers, RoleTeacher, "anita@example.com", "T001")
	registry := NewRegistry(students, teachers)

	ctx := context.Background()

	lookup, err := registry.EmailExists(ctx, "ravi@example.com")
	require.NoError(t, err)
	assert.Equal(t, Lookup{Exists: true, Role: RoleStudent}, lookup)

	lookup, err = registry.EmailExists(ctx, "anita@example.com")
	require.NoError(t, err)
	assert.Equal(t, Lookup{Exists: true, Role: RoleTeacher}, lookup)

	// Case and surrounding whitespace are normalized before lookup.
	lookup, err = registry.EmailExists(ctx, "  RAVI@Example.com ")
	require.NoError(t, err)
	assert.True(t, lookup.Exists)

	lookup, err = registry.EmailExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, lookup.Exists)
}

func TestRegistry_ExternalIDExists(t *testing.T) {
	t.Parallel()

	students := newMemStore()
	teachers := newMemStore()
	seedPrincipal(t, students, RoleStudent, "ravi@example.com", "EN001")
	seedPrincipal(t, teachers, RoleTeacher, "anita@example.com", "T001")
	registry := NewRegistry(students, teachers)

	ctx := context.Background()

	lookup, err := registry.ExternalIDExists(ctx, "EN001")
	require.NoError(t, err)
	assert.Equal(t, Lookup{Exists: true, Role: RoleStudent}, lookup)

	lookup, err = registry.ExternalIDExists(ctx, "T001")
	require.NoError(t, err)
	assert.Equal(t, Lookup{Exists: true, Role: RoleTeacher}, lookup)

	lookup, err = registry.ExternalIDExists(ctx, "EN999")
	require.NoError(t, err)
	assert.False(t, lookup.Exists)
}

func TestRegistry_EnrollmentMatches(t *testing.T) {
	t.Parallel()

	dir := roster.New([]roster.Entry{
		{Enrollment: "EN001", Name: "Ravi Kumar Sharma"},
		{Enrollment: "EN002", Name: "Priya Verma"},
	})
	registry := NewRegistry(newMemStore(), newMemStore(), WithRoster(RoleStudent, dir))

	t.Run("matches with middle name omitted", func(t *testing.T) {
		t.Parallel()
		assert.True(t, registry.EnrollmentMatches(RoleStudent, "EN001", "Ravi Sharma"))
		assert.True(t, registry.EnrollmentMatches(RoleStudent, "en001", "ravi kumar sharma"))
	})

	t.Run("rejects unrelated names and unknown enrollments", func(t *testing.T) {
		t.Parallel()
		assert.False(t, registry.EnrollmentMatches(RoleStudent, "EN001", "Priya Verma"))
		assert.False(t, registry.EnrollmentMatches(RoleStudent, "EN001", "Ravi Kumar Gupta"))
		assert.False(t, registry.EnrollmentMatches(RoleStudent, "EN999", "Ravi Sharma"))
	})

	t.Run("roles without a roster always pass", func(t *testing.T) {
		t.Parallel()
		assert.True(t, registry.EnrollmentMatches(RoleTeacher, "T001", "Anyone At All"))
	})

	t.Run("status distinguishes unknown ids from name mismatches", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, EnrollmentMatch, registry.CheckEnrollment(RoleStudent, "EN001", "Ravi Sharma"))
		assert.Equal(t, EnrollmentNameMismatch, registry.CheckEnrollment(RoleStudent, "EN001", "Priya Verma"))
		assert.Equal(t, EnrollmentUnknown, registry.CheckEnrollment(RoleStudent, "EN999", "Ravi Sharma"))
		assert.Equal(t, EnrollmentUnchecked, registry.CheckEnrollment(RoleTeacher, "T001", "Anyone At All"))
	})
}
