package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"TOKEN", "CLIENT_ID", "CLIENT_SECRET", "GUILD_ID",
	"CHANNEL_ID", "WELCOME_CHANNEL_ID", "GOOGLE_API_KEY",
	"COMPLETION_BACKEND", "COMPLETION_MODEL", "COMPLETION_BASE_URL", "COMPLETION_TIMEOUT",
	"PERSONA_FILE", "DEBUG", "LOG_DIR",
}

// clearEnv makes sure variables from the outer process don't leak into
// "defaults" tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, BackendREST, cfg.Completion.Backend)
	assert.Equal(t, "gemini-2.0-flash-exp", cfg.Completion.Model)
	assert.Equal(t, 60*time.Second, cfg.Completion.Timeout)
	assert.Empty(t, cfg.Discord.ChatChannelID)
	assert.Empty(t, cfg.Discord.WelcomeChannelID)
	assert.False(t, cfg.Debug)
}

func TestParse_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "bot-token")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("CHANNEL_ID", "111")
	t.Setenv("WELCOME_CHANNEL_ID", "222")
	t.Setenv("COMPLETION_BACKEND", "genai")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("DEBUG", "true")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "bot-token", cfg.Discord.Token)
	assert.Equal(t, "g-key", cfg.Completion.APIKey)
	assert.Equal(t, "111", cfg.Discord.ChatChannelID)
	assert.Equal(t, "222", cfg.Discord.WelcomeChannelID)
	assert.Equal(t, BackendGenAI, cfg.Completion.Backend)
	assert.Equal(t, 5*time.Second, cfg.Completion.Timeout)
	assert.True(t, cfg.Debug)
	assert.NoError(t, cfg.ValidateServe())
}

func TestParse_BadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("COMPLETION_TIMEOUT", "soon")

	_, err := Parse()
	assert.Error(t, err)
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TOKEN=from-file\nCHANNEL_ID=333\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("TOKEN", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Discord.Token)
	assert.Equal(t, "333", cfg.Discord.ChatChannelID)
}

func TestLoad_NoDotEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.NoError(t, err)
}

func TestValidateServe(t *testing.T) {
	cfg := &Config{Completion: CompletionConfig{Backend: "carrier-pigeon"}}
	err := cfg.ValidateServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN is required")
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY is required")
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestValidateDeploy(t *testing.T) {
	cfg := &Config{}
	err := cfg.ValidateDeploy()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLIENT_ID is required")

	cfg.Discord.ClientID = "app"
	cfg.Discord.ClientSecret = "secret"
	assert.NoError(t, cfg.ValidateDeploy())
}
