package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patshala/backend/pkg/config"
)

type testConfig struct {
	Name string `env:"CONFIG_TEST_NAME" envDefault:"patshala"`
	Port int    `env:"CONFIG_TEST_PORT" envDefault:"8080"`
}

type requiredConfig struct {
	Secret string `env:"CONFIG_TEST_REQUIRED_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "patshala", cfg.Name)
		assert.Equal(t, 8080, cfg.Port)
	})

	t.Run("returns cached copy on second load", func(t *testing.T) {
		var first, second testConfig
		require.NoError(t, config.Load(&first))

		// Changing the environment after the first load must not matter.
		t.Setenv("CONFIG_TEST_NAME", "changed")
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first, second)
	})

	t.Run("nil pointer", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})

	t.Run("missing required variable", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})
}
