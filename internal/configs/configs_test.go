package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "EXEC_API_URL", "DEFAULT_LANGUAGE"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 3001, cfg.Port)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, DefaultExecAPIURL, cfg.ExecAPIURL)
	assert.Equal(t, "python", cfg.DefaultLanguage)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_PrivilegedPortRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "80")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_AllowedOriginsParsed(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoadConfig_InvalidExecURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXEC_API_URL", "not a url")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("EXEC_API_URL", "https://piston.internal/api/v2/execute")
	t.Setenv("DEFAULT_LANGUAGE", "javascript")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "https://piston.internal/api/v2/execute", cfg.ExecAPIURL)
	assert.Equal(t, "javascript", cfg.DefaultLanguage)
}
