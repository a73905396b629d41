// Package rubric loads and caches the scoring rubric configuration.
package rubric

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/metalagman/reqgate/internal/requirement"
)

//go:embed default_rubric.yaml
var defaultRubricYAML []byte

// RequiredField names a field the rubric expects a requirement to carry.
type RequiredField struct {
	Field    string `mapstructure:"field"`
	ErrorMsg string `mapstructure:"error_msg"`
}

// NegativePattern flags undesirable phrasing.
type NegativePattern struct {
	Pattern  string `mapstructure:"pattern"`
	Severity string `mapstructure:"severity"`
	Message  string `mapstructure:"message"`
}

// ScenarioConfig is the per-category rubric section. The workflow core
// reads Threshold and Weights; the rule lists are passed through to prompts.
type ScenarioConfig struct {
	Threshold        int                `mapstructure:"threshold"`
	Weights          map[string]float64 `mapstructure:"weights"`
	RequiredFields   []RequiredField    `mapstructure:"required_fields"`
	NegativePatterns []NegativePattern  `mapstructure:"negative_patterns"`
}

// Loader loads and caches the rubric YAML. The core does not validate the
// file's own shape; unknown keys are ignored.
type Loader struct {
	path string

	mu    sync.Mutex
	cache map[string]map[string]any
}

// NewLoader creates a loader for the rubric file at path. An empty path
// uses the embedded default rubric.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) load() (map[string]map[string]any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache != nil {
		return l.cache, nil
	}

	data := defaultRubricYAML
	if l.path != "" {
		raw, err := os.ReadFile(l.path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read rubric file: %w", err)
			}
			log.Warn().Str("path", l.path).Msg("rubric file not found, using embedded default")
		} else {
			data = raw
		}
	}

	var parsed map[string]map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse rubric yaml: %w", err)
	}
	l.cache = parsed
	return parsed, nil
}

// Scenario returns the rubric section for a ticket type.
func (l *Loader) Scenario(ticketType requirement.TicketType) (ScenarioConfig, error) {
	rubric, err := l.load()
	if err != nil {
		return ScenarioConfig{}, err
	}

	scenario := "FEATURE"
	if ticketType == requirement.TicketBug {
		scenario = "BUG"
	}
	section, ok := rubric[scenario]
	if !ok {
		return ScenarioConfig{}, fmt.Errorf("unknown rubric scenario: %s", scenario)
	}

	var cfg ScenarioConfig
	if err := mapstructure.Decode(section, &cfg); err != nil {
		return ScenarioConfig{}, fmt.Errorf("decode rubric scenario %s: %w", scenario, err)
	}
	return cfg, nil
}

// Reset drops the cached rubric so the next access reloads from disk.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = nil
}

var (
	defaultMu     sync.Mutex
	defaultLoader *Loader
)

// Default returns the process-wide rubric loader for the given path,
// constructing it at most once.
func Default(path string) *Loader {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLoader == nil {
		defaultLoader = NewLoader(path)
	}
	return defaultLoader
}

// ResetDefault clears the process-wide loader for test isolation.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLoader = nil
}
