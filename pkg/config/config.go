package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete qbbot configuration.
type Config struct {
	Chat           ChatConfig           `yaml:"chat" koanf:"chat"`
	QuestionSource QuestionSourceConfig `yaml:"question_source" koanf:"question_source"`
	Generator      GeneratorConfig      `yaml:"generator" koanf:"generator"`
	Grading        GradingConfig        `yaml:"grading,omitempty" koanf:"grading"`
	Pacing         PacingConfig         `yaml:"pacing,omitempty" koanf:"pacing"`
	Logging        LoggingConfig        `yaml:"logging,omitempty" koanf:"logging"`
	Profiles       map[string]Profile   `yaml:"profiles,omitempty" koanf:"profiles"`
}

// Profile represents a named configuration profile.
type Profile struct {
	Chat           ChatConfig           `yaml:"chat,omitempty"`
	QuestionSource QuestionSourceConfig `yaml:"question_source,omitempty"`
	Generator      GeneratorConfig      `yaml:"generator,omitempty"`
	Grading        GradingConfig        `yaml:"grading,omitempty"`
	Pacing         PacingConfig         `yaml:"pacing,omitempty"`
	Logging        LoggingConfig        `yaml:"logging,omitempty"`
}

// ChatConfig contains chat-platform credentials.
type ChatConfig struct {
	Token string `yaml:"token,omitempty" koanf:"token"`
}

// QuestionSourceConfig contains question-source adapter configuration.
type QuestionSourceConfig struct {
	BaseURL       string  `yaml:"base_url" koanf:"base_url" validate:"required"`
	RateLimit     float64 `yaml:"rate_limit,omitempty" koanf:"rate_limit" validate:"gte=0"` // requests per second, 0 = no limit
	RetryAttempts int     `yaml:"retry_attempts,omitempty" koanf:"retry_attempts" validate:"gte=0"`
}

// GeneratorConfig selects and configures the LLM judge backend. Per the
// polymorphic-backend design note: a Google-style API key takes priority
// over a local Ollama endpoint.
type GeneratorConfig struct {
	GoogleAPIKey string  `yaml:"google_api_key,omitempty" koanf:"google_api_key"`
	VertexModel  string  `yaml:"vertex_model,omitempty" koanf:"vertex_model"`
	OllamaURL    string  `yaml:"ollama_url,omitempty" koanf:"ollama_url"`
	OllamaModel  string  `yaml:"ollama_model,omitempty" koanf:"ollama_model"`
	Temperature  float64 `yaml:"temperature,omitempty" koanf:"temperature" validate:"gte=0,lte=2"`
}

// GradingConfig tunes the answer-grading pipeline's thresholds.
type GradingConfig struct {
	Prompted             bool    `yaml:"prompted,omitempty" koanf:"prompted"`
	EmbeddingEnabled     bool    `yaml:"embedding_enabled,omitempty" koanf:"embedding_enabled"`
	EmbeddingThreshold   float64 `yaml:"embedding_threshold,omitempty" koanf:"embedding_threshold" validate:"gte=0,lte=1"`
	LevenshteinThreshold float64 `yaml:"levenshtein_threshold,omitempty" koanf:"levenshtein_threshold" validate:"gte=0,lte=1"`
}

// PacingConfig contains the reader's timing constants, overridable so tests
// can run the FSM on a compressed clock.
type PacingConfig struct {
	RevealInterval     string `yaml:"reveal_interval,omitempty" koanf:"reveal_interval"`
	BuzzTimeout        string `yaml:"buzz_timeout,omitempty" koanf:"buzz_timeout"`
	PromptTimeout      string `yaml:"prompt_timeout,omitempty" koanf:"prompt_timeout"`
	PromptTimeoutShort string `yaml:"prompt_timeout_short,omitempty" koanf:"prompt_timeout_short"`
	EndGrace           string `yaml:"end_grace,omitempty" koanf:"end_grace"`
	PollInterval       string `yaml:"poll_interval,omitempty" koanf:"poll_interval"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format,omitempty" koanf:"format" validate:"omitempty,oneof=json text"`
}

// Validate validates the configuration and returns helpful error messages.
func (c *Config) Validate() error {
	if c.QuestionSource.BaseURL == "" {
		return fmt.Errorf("question_source.base_url is required")
	}
	if c.QuestionSource.RateLimit < 0 {
		return fmt.Errorf("question_source.rate_limit must be non-negative, got: %f", c.QuestionSource.RateLimit)
	}
	if c.QuestionSource.RetryAttempts < 0 {
		return fmt.Errorf("question_source.retry_attempts must be non-negative, got: %d", c.QuestionSource.RetryAttempts)
	}

	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		return fmt.Errorf("validation failed: generator.temperature must be between 0 and 2, got: %f", c.Generator.Temperature)
	}

	for _, d := range []struct {
		name  string
		value string
	}{
		{"pacing.reveal_interval", c.Pacing.RevealInterval},
		{"pacing.buzz_timeout", c.Pacing.BuzzTimeout},
		{"pacing.prompt_timeout", c.Pacing.PromptTimeout},
		{"pacing.prompt_timeout_short", c.Pacing.PromptTimeoutShort},
		{"pacing.end_grace", c.Pacing.EndGrace},
		{"pacing.poll_interval", c.Pacing.PollInterval},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}
	validFormats := map[string]bool{"": true, "json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}

// Merge merges another config into this one, with the other config taking precedence.
func (c *Config) Merge(other *Config) {
	if other.Chat.Token != "" {
		c.Chat.Token = other.Chat.Token
	}

	if other.QuestionSource.BaseURL != "" {
		c.QuestionSource.BaseURL = other.QuestionSource.BaseURL
	}
	if other.QuestionSource.RateLimit != 0 {
		c.QuestionSource.RateLimit = other.QuestionSource.RateLimit
	}
	if other.QuestionSource.RetryAttempts != 0 {
		c.QuestionSource.RetryAttempts = other.QuestionSource.RetryAttempts
	}

	if other.Generator.GoogleAPIKey != "" {
		c.Generator.GoogleAPIKey = other.Generator.GoogleAPIKey
	}
	if other.Generator.VertexModel != "" {
		c.Generator.VertexModel = other.Generator.VertexModel
	}
	if other.Generator.OllamaURL != "" {
		c.Generator.OllamaURL = other.Generator.OllamaURL
	}
	if other.Generator.OllamaModel != "" {
		c.Generator.OllamaModel = other.Generator.OllamaModel
	}
	if other.Generator.Temperature != 0 {
		c.Generator.Temperature = other.Generator.Temperature
	}

	if other.Grading.Prompted {
		c.Grading.Prompted = other.Grading.Prompted
	}
	if other.Grading.EmbeddingEnabled {
		c.Grading.EmbeddingEnabled = other.Grading.EmbeddingEnabled
	}
	if other.Grading.EmbeddingThreshold != 0 {
		c.Grading.EmbeddingThreshold = other.Grading.EmbeddingThreshold
	}
	if other.Grading.LevenshteinThreshold != 0 {
		c.Grading.LevenshteinThreshold = other.Grading.LevenshteinThreshold
	}

	if other.Pacing.RevealInterval != "" {
		c.Pacing.RevealInterval = other.Pacing.RevealInterval
	}
	if other.Pacing.BuzzTimeout != "" {
		c.Pacing.BuzzTimeout = other.Pacing.BuzzTimeout
	}
	if other.Pacing.PromptTimeout != "" {
		c.Pacing.PromptTimeout = other.Pacing.PromptTimeout
	}
	if other.Pacing.PromptTimeoutShort != "" {
		c.Pacing.PromptTimeoutShort = other.Pacing.PromptTimeoutShort
	}
	if other.Pacing.EndGrace != "" {
		c.Pacing.EndGrace = other.Pacing.EndGrace
	}
	if other.Pacing.PollInterval != "" {
		c.Pacing.PollInterval = other.Pacing.PollInterval
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
}

// ApplyProfile applies a named profile to this config.
func (c *Config) ApplyProfile(profileName string) error {
	profile, exists := c.Profiles[profileName]
	if !exists {
		return fmt.Errorf("profile %q not found", profileName)
	}

	profileConfig := &Config{
		Chat:           profile.Chat,
		QuestionSource: profile.QuestionSource,
		Generator:      profile.Generator,
		Grading:        profile.Grading,
		Pacing:         profile.Pacing,
		Logging:        profile.Logging,
	}

	c.Merge(profileConfig)
	return nil
}

// interpolateEnvVars replaces ${VAR} with environment variable values.
func interpolateEnvVars(s string, getenv func(string) (string, bool)) (string, error) {
	result := s
	start := 0
	for {
		idx := strings.Index(result[start:], "${")
		if idx == -1 {
			break
		}
		idx += start

		endIdx := strings.Index(result[idx:], "}")
		if endIdx == -1 {
			return "", fmt.Errorf("unclosed environment variable reference at position %d", idx)
		}
		endIdx += idx

		varName := result[idx+2 : endIdx]
		value, ok := getenv(varName)
		if !ok {
			return "", fmt.Errorf("environment variable %q is not set", varName)
		}

		result = result[:idx] + value + result[endIdx+1:]
		start = idx + len(value)
	}
	return result, nil
}
