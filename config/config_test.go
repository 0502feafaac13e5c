package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/git2gpt/chat/openai"
	"github.com/byte4ever/git2gpt/config"
	"github.com/byte4ever/git2gpt/mutation"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	assert.Equal(t, config.DefaultModel, cfg.Model)
	assert.Equal(t, openai.DefaultBaseURL, cfg.APIBase)
	assert.Equal(t, config.DefaultAPIKeyEnv, cfg.APIKeyEnv)
	assert.Equal(t, config.DefaultMaxTokens, cfg.MaxTokens)
	assert.Equal(t, config.DefaultEnvFile, cfg.EnvFile)
	assert.Equal(t, config.DefaultCommitMessage, cfg.CommitMessage)
	assert.Equal(t, mutation.DefaultDumpPath, cfg.ResponseFile)
	require.NoError(t, cfg.Validate())
}

func TestLoad_parses_fields(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
model: gpt-4o
api_base: http://localhost:8080/v1
api_key_env: MY_KEY
max_tokens: 1000
timeout: 90s
commit_message: Model edit.
system_prompt: "You see {{snapshot}}"
`)

	cfg, err := config.Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "http://localhost:8080/v1", cfg.APIBase)
	assert.Equal(t, "MY_KEY", cfg.APIKeyEnv)
	assert.Equal(t, 1000, cfg.MaxTokens)
	assert.Equal(t, "Model edit.", cfg.CommitMessage)
	assert.Equal(t, "You see {{snapshot}}", cfg.SystemPrompt)
	assert.Equal(t, config.DefaultEnvFile, cfg.EnvFile)

	d, err := cfg.RequestTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestLoad_expands_env(t *testing.T) {
	t.Setenv("GIT2GPT_TEST_HOST", "llm.internal")

	path := writeConfig(t, "api_base: https://${GIT2GPT_TEST_HOST}/v1\n")

	cfg, err := config.Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "https://llm.internal/v1", cfg.APIBase)
}

func TestLoad_missing_file(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := config.Load(missing, true)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultModel, cfg.Model)

	_, err = config.Load(missing, false)
	require.Error(t, err)
}

func TestLoad_rejects_invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "model: [unterminated\n"},
		{name: "bad timeout", content: "timeout: soon\n"},
		{name: "negative timeout", content: "timeout: -5s\n"},
		{name: "negative max tokens", content: "max_tokens: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Load(writeConfig(t, tt.content), false)
			require.Error(t, err)
		})
	}
}

func TestRequestTimeout_empty(t *testing.T) {
	t.Parallel()

	d, err := config.Default().RequestTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestLoadEnv_and_APIKey(t *testing.T) {
	const name = "GIT2GPT_TEST_KEY"

	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(name+"=sk-test\n"), 0o600))

	cfg := config.Default()
	cfg.APIKeyEnv = name
	cfg.EnvFile = envFile

	_, err := cfg.APIKey()
	require.Error(t, err)

	require.NoError(t, cfg.LoadEnv())

	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}

func TestLoadEnv_keeps_existing(t *testing.T) {
	const name = "GIT2GPT_TEST_EXISTING"

	t.Setenv(name, "from-env")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(name+"=from-file\n"), 0o600))

	cfg := config.Default()
	cfg.EnvFile = envFile

	require.NoError(t, cfg.LoadEnv())
	assert.Equal(t, "from-env", os.Getenv(name))
}

func TestLoadEnv_missing_file(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.EnvFile = filepath.Join(t.TempDir(), "none.env")

	require.NoError(t, cfg.LoadEnv())
}

func TestProvider(t *testing.T) {
	const name = "GIT2GPT_TEST_PROVIDER_KEY"

	cfg := config.Default()
	cfg.APIKeyEnv = name

	t.Setenv(name, "")

	_, err := cfg.Provider()
	require.Error(t, err)

	t.Setenv(name, "sk-x")

	p, err := cfg.Provider()
	require.NoError(t, err)
	assert.NotNil(t, p)
}
