package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_APIURL(t *testing.T) {
	t.Run("VITE_API_URL sets base url", func(t *testing.T) {
		t.Setenv("VITE_API_URL", "http://vite:9000/api/v1")
		t.Setenv("SDLC_API_URL", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://vite:9000/api/v1", cfg.API.BaseURL)
	})

	t.Run("SDLC_API_URL wins over VITE_API_URL", func(t *testing.T) {
		t.Setenv("VITE_API_URL", "http://vite:9000/api/v1")
		t.Setenv("SDLC_API_URL", "http://pilot:8080/api/v1")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://pilot:8080/api/v1", cfg.API.BaseURL)
	})

	t.Run("no env keeps default", func(t *testing.T) {
		t.Setenv("VITE_API_URL", "")
		t.Setenv("SDLC_API_URL", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultAPIBaseURL, cfg.API.BaseURL)
	})
}

func TestEnvOverrides_StateAndHandoff(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SDLC_STATE_DIR", dir)
	t.Setenv("SDLC_HANDOFF", "memory")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, dir, cfg.StateDir)
	assert.Equal(t, "memory", cfg.Handoff.Backend)
}

func TestEnvOverrides_Debug(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "1"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("SDLC_DEBUG", v)
			cfg := DefaultConfig()
			cfg.applyEnvOverrides()
			assert.True(t, cfg.Logging.DebugMode)
			assert.Equal(t, "debug", cfg.Logging.Level)
		})
	}

	t.Run("other values ignored", func(t *testing.T) {
		t.Setenv("SDLC_DEBUG", "no")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Logging.DebugMode)
	})
}
