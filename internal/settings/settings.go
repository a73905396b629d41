// Package settings loads process-wide configuration from the environment.
package settings

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Settings holds process configuration. Loaded once, read-only afterwards.
type Settings struct {
	Env      string `mapstructure:"env"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	GeminiAPIKey   string        `mapstructure:"gemini_api_key"`
	LLMModel       string        `mapstructure:"llm_model"`
	FallbackModels string        `mapstructure:"fallback_models"`
	LLMTimeout     time.Duration `mapstructure:"llm_timeout"`

	RubricFilePath    string `mapstructure:"rubric_file_path"`
	GuardrailFilePath string `mapstructure:"guardrail_file_path"`
	DBPath            string `mapstructure:"db_path"`
	DefaultThreshold  int    `mapstructure:"default_threshold"`
}

// IsDevelopment reports whether the process runs in development mode.
func (s Settings) IsDevelopment() bool { return s.Env == "development" }

// IsProduction reports whether the process runs in production mode.
func (s Settings) IsProduction() bool { return s.Env == "production" }

// FallbackModelsList returns the configured fallback model identifiers
// in preference order.
func (s Settings) FallbackModelsList() []string {
	if strings.TrimSpace(s.FallbackModels) == "" {
		return nil
	}
	parts := strings.Split(s.FallbackModels, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

var (
	mu     sync.Mutex
	loaded *Settings
)

// Get returns the process settings singleton, loading it on first use.
func Get() (Settings, error) {
	mu.Lock()
	defer mu.Unlock()
	if loaded != nil {
		return *loaded, nil
	}
	s, err := load()
	if err != nil {
		return Settings{}, err
	}
	loaded = &s
	return s, nil
}

// Reset clears the cached settings so tests can reload with a fresh
// environment.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	loaded = nil
}

func load() (Settings, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("settings: loaded .env file")
	}

	v := viper.New()
	v.SetEnvPrefix("REQGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("port", 8000)
	v.SetDefault("log_level", "info")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("llm_model", "gemini-2.0-flash")
	v.SetDefault("fallback_models", "")
	v.SetDefault("llm_timeout", 30*time.Second)
	v.SetDefault("rubric_file_path", "config/scoring_rubric.yaml")
	v.SetDefault("guardrail_file_path", "config/guardrail_config.yaml")
	v.SetDefault("db_path", ".reqgate/reqgate.db")
	v.SetDefault("default_threshold", 60)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}
