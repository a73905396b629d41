package guardrail

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Mode controls how PII findings are treated.
type Mode string

// Guardrail modes.
const (
	ModeStrict  Mode = "strict"
	ModeLenient Mode = "lenient"
)

// InjectionAction selects what to do when an injection phrase matches.
type InjectionAction string

// Injection actions.
const (
	ActionReject   InjectionAction = "reject"
	ActionWarn     InjectionAction = "warn"
	ActionSanitize InjectionAction = "sanitize"
)

// PIIConfig configures PII detection.
type PIIConfig struct {
	Enabled  bool            `yaml:"enabled"`
	Mode     Mode            `yaml:"mode"`
	Patterns map[string]bool `yaml:"patterns"`
}

// InjectionConfig configures prompt-injection detection.
type InjectionConfig struct {
	Enabled  bool            `yaml:"enabled"`
	Action   InjectionAction `yaml:"action"`
	Patterns []string        `yaml:"patterns"`
}

// Config is the guardrail configuration, loaded from YAML or defaulted.
type Config struct {
	MinLength       int             `yaml:"min_length"`
	MaxLength       int             `yaml:"max_length"`
	PIIDetection    PIIConfig       `yaml:"pii_detection"`
	PromptInjection InjectionConfig `yaml:"prompt_injection"`
	DefaultMode     Mode            `yaml:"default_mode"`
}

// DefaultConfig returns the built-in guardrail configuration.
func DefaultConfig() Config {
	return Config{
		MinLength: 50,
		MaxLength: 10000,
		PIIDetection: PIIConfig{
			Enabled: true,
			Mode:    ModeLenient,
			Patterns: map[string]bool{
				"email":       true,
				"phone":       true,
				"credit_card": false,
				"ssn":         false,
			},
		},
		PromptInjection: InjectionConfig{
			Enabled: true,
			Action:  ActionReject,
			Patterns: []string{
				"ignore previous instructions",
				"ignore all previous",
				"disregard all previous",
				"forget everything",
				"you are now",
				"act as",
				"pretend to be",
				"system prompt",
				"reveal your instructions",
			},
		},
		DefaultMode: ModeLenient,
	}
}

type configFile struct {
	InputGuardrail Config `yaml:"input_guardrail"`
}

// LoadConfig reads a guardrail config YAML file, falling back to defaults
// when the file is missing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("guardrail config not found, using defaults")
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("read guardrail config: %w", err)
	}

	file := configFile{InputGuardrail: DefaultConfig()}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse guardrail config: %w", err)
	}
	cfg := file.InputGuardrail
	if cfg.MinLength <= 0 {
		cfg.MinLength = 50
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 10000
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = ModeLenient
	}
	return cfg, nil
}
