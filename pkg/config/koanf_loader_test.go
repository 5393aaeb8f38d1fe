package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigKoanf_BasicYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
chat:
  token: test-token

question_source:
  base_url: https://example.test
  rate_limit: 2
  retry_attempts: 3

generator:
  ollama_url: http://localhost:11434
  ollama_model: llama3
  temperature: 0.2

grading:
  embedding_enabled: true
  levenshtein_threshold: 0.25

logging:
  level: debug
  format: json
`

	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := LoadConfigKoanf(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "test-token", cfg.Chat.Token)
	assert.Equal(t, "https://example.test", cfg.QuestionSource.BaseURL)
	assert.Equal(t, 2.0, cfg.QuestionSource.RateLimit)
	assert.Equal(t, 3, cfg.QuestionSource.RetryAttempts)
	assert.Equal(t, "llama3", cfg.Generator.OllamaModel)
	assert.True(t, cfg.Grading.EmbeddingEnabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigKoanf_EmptyPath_DefaultsBaseURL(t *testing.T) {
	cfg, err := LoadConfigKoanf("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, defaultQuestionSourceBaseURL, cfg.QuestionSource.BaseURL)
}

func TestLoadConfigKoanf_EnvironmentVariablesOverrideYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
question_source:
  base_url: https://example.test
  rate_limit: 1

logging:
  level: info
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	os.Setenv("QB_QUESTION_SOURCE__BASE_URL", "https://override.test")
	os.Setenv("QB_LOGGING__LEVEL", "warn")
	defer os.Unsetenv("QB_QUESTION_SOURCE__BASE_URL")
	defer os.Unsetenv("QB_LOGGING__LEVEL")

	cfg, err := LoadConfigKoanf(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://override.test", cfg.QuestionSource.BaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 1.0, cfg.QuestionSource.RateLimit)
}

func TestLoadConfigKoanf_Validation(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			yaml: `
question_source:
  base_url: https://example.test
generator:
  temperature: 1.0
`,
			expectError: false,
		},
		{
			name: "invalid: negative rate limit",
			yaml: `
question_source:
  base_url: https://example.test
  rate_limit: -1
`,
			expectError: true,
			errorMsg:    "validation failed",
		},
		{
			name: "invalid: temperature too high",
			yaml: `
question_source:
  base_url: https://example.test
generator:
  temperature: 3.0
`,
			expectError: true,
			errorMsg:    "validation failed",
		},
		{
			name: "invalid: logging level",
			yaml: `
question_source:
  base_url: https://example.test
logging:
  level: verbose
`,
			expectError: true,
			errorMsg:    "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.yaml), 0644))

			cfg, err := LoadConfigKoanf(configPath)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				if tt.errorMsg != "" {
					assert.Contains(t, err.Error(), tt.errorMsg)
				}
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, cfg)
			}
		})
	}
}

func TestLoadConfigKoanf_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
question_source:
  base_url: https://example.test
  invalid indentation here
generator:
  broken yaml
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0644))

	cfg, err := LoadConfigKoanf(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoadConfigKoanf_NonexistentFile(t *testing.T) {
	cfg, err := LoadConfigKoanf("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoadConfigKoanf_NestedEnvVars(t *testing.T) {
	os.Setenv("QB_GENERATOR__OLLAMA_MODEL", "mistral")
	os.Setenv("QB_GENERATOR__TEMPERATURE", "0.9")
	defer os.Unsetenv("QB_GENERATOR__OLLAMA_MODEL")
	defer os.Unsetenv("QB_GENERATOR__TEMPERATURE")

	cfg, err := LoadConfigKoanf("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "mistral", cfg.Generator.OllamaModel)
	assert.Equal(t, 0.9, cfg.Generator.Temperature)
}

func TestLoadConfigKoanf_ProfilesLoadedButNotApplied(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
question_source:
  base_url: https://example.test

profiles:
  production:
    pacing:
      reveal_interval: 1s
      buzz_timeout: 15s
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := LoadConfigKoanf(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Contains(t, cfg.Profiles, "production")
	assert.Equal(t, "1s", cfg.Profiles["production"].Pacing.RevealInterval)
	assert.Empty(t, cfg.Pacing.RevealInterval)
}

func TestLoadConfigKoanf_EmptyConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte(""), 0644))

	cfg, err := LoadConfigKoanf(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, defaultQuestionSourceBaseURL, cfg.QuestionSource.BaseURL)
	assert.Equal(t, "", cfg.Chat.Token)
}
