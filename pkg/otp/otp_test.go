package otp_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patshala/backend/pkg/otp"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	gen := otp.New()

	for range 200 {
		code, err := gen.Generate()
		require.NoError(t, err)

		require.Len(t, code.Value, 6)
		n, err := strconv.Atoi(code.Value)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestExpiryWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	gen := otp.New(
		otp.WithTTL(90*time.Second),
		otp.WithClock(func() time.Time { return now }),
	)

	code, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, now.Add(90*time.Second), code.ExpiresAt)
	assert.Equal(t, 90*time.Second, gen.TTL())
}

func TestDefaultTTL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, otp.DefaultTTL, otp.New().TTL())
}

func TestCodesVary(t *testing.T) {
	t.Parallel()

	gen := otp.New()
	seen := make(map[string]bool)
	for range 50 {
		code, err := gen.Generate()
		require.NoError(t, err)
		seen[code.Value] = true
	}
	// 50 draws over 900k values colliding down to a single code would
	// indicate a broken random source.
	assert.Greater(t, len(seen), 1)
}
