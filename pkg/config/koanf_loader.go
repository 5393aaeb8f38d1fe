package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// defaultQuestionSourceBaseURL is used when no question-source base URL is
// configured, matching the original's hardcoded question-source endpoint.
const defaultQuestionSourceBaseURL = "https://www.qbreader.org"

// LoadConfigKoanf loads configuration using Koanf with proper precedence:
// Environment Variables > Config File > Defaults
func LoadConfigKoanf(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Load YAML config file (lowest priority)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// 2. Load environment variables (higher priority)
	// QB_QUESTION_SOURCE__BASE_URL -> question_source.base_url (double underscore becomes dot)
	// QB_GENERATOR__GOOGLE_API_KEY -> generator.google_api_key (single underscore preserved)
	// QB_LOGGING__LEVEL -> logging.level
	err := k.Load(env.Provider("QB_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "QB_")
		s = strings.Replace(s, "__", ".", -1) // Only double underscores become dots
		s = strings.ToLower(s)
		return s
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// 3. Unmarshal to struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf", // Use koanf tags that match env var transformation
	}); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if cfg.QuestionSource.BaseURL == "" {
		cfg.QuestionSource.BaseURL = defaultQuestionSourceBaseURL
	}

	// 4. Validate using validator library for struct tags
	v := validator.New()
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 5. Validate using custom validation method
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
