package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/datadeck-io/datadeck-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEST_CLERK_KEY", "sk_test_abc")

	path := writeConfig(t, `
server:
  port: "8080"
  allowed_origins: "*"
  environment: development
  log_level: debug
database:
  type: sqlite
  file_path: datadeck.db
auth:
  clerk:
    secret_key: ${TEST_CLERK_KEY}
chat:
  provider: anthropic
  anthropic:
    api_key: ${MISSING_KEY:-fallback-key}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, models.StoreSQLite, cfg.Database.Type)
	assert.Equal(t, "sk_test_abc", cfg.ClerkSecretKey())
	assert.Equal(t, "fallback-key", cfg.Chat.Anthropic.APIKey)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "debug", cfg.GetNormalizedLogLevel())
}

func TestLoadFromFile_RejectsTraversalAndExtension(t *testing.T) {
	_, err := LoadFromFile("../../etc/passwd.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("PRESENT", "value")

	assert.Equal(t, "value", substituteEnvVars("${PRESENT}"))
	assert.Equal(t, "", substituteEnvVars("${ABSENT}"))
	assert.Equal(t, "default", substituteEnvVars("${ABSENT:-default}"))
	assert.Equal(t, "value", substituteEnvVars("${PRESENT:-default}"))
	assert.Equal(t, "plain text", substituteEnvVars("plain text"))
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.MissingFields, "server.port")
	assert.Contains(t, vErr.MissingFields, "server.allowed_origins")
	assert.Contains(t, vErr.MissingFields, "database")

	cfg = &Config{
		Server: models.ServerConfig{
			Port:           "8080",
			AllowedOrigins: "*",
		},
		Database: &models.DatabaseConfig{Type: models.StoreSQLite},
	}
	assert.NoError(t, cfg.Validate())
}

func TestAuthAccessors_NilSafe(t *testing.T) {
	cfg := &Config{}

	assert.Empty(t, cfg.ClerkSecretKey())
	assert.Empty(t, cfg.ClerkWebhookSecret())
	assert.False(t, cfg.DatabaseAuthEnabled())

	cfg.Auth = &models.AuthConfig{
		DatabaseConfig: &models.DatabaseAuthConfig{Enabled: true},
	}
	assert.True(t, cfg.DatabaseAuthEnabled())
}
