// Package guardrail implements the deterministic pre-flight input screen:
// length bounds, PII pattern detection, and prompt-injection phrase matching.
// It runs before any LLM spend and never makes network calls.
package guardrail

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// piiPatterns is the fixed regex family keyed by pattern name.
var piiPatterns = map[string]*regexp.Regexp{
	"email":       regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	"phone":       regexp.MustCompile(`\b(?:\+?1[-.\s]?)?(?:\(?[0-9]{3}\)?[-.\s]?)?[0-9]{3}[-.\s]?[0-9]{4}\b`),
	"credit_card": regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`),
	"ssn":         regexp.MustCompile(`\b\d{3}[-.\s]?\d{2}[-.\s]?\d{4}\b`),
}

// sanitizePlaceholder replaces matched injection spans in sanitize mode.
const sanitizePlaceholder = "[REMOVED]"

// Result of a guardrail validation pass.
type Result struct {
	Passed            bool
	Warnings          []string
	Errors            []string
	SanitizedText     string
	PIIDetected       []string
	InjectionDetected []string
}

// Guardrail validates raw input text against the configured rules.
type Guardrail struct {
	cfg Config
}

// New constructs a guardrail from a config.
func New(cfg Config) *Guardrail {
	return &Guardrail{cfg: cfg}
}

// Config returns the active configuration.
func (g *Guardrail) Config() Config { return g.cfg }

// Validate evaluates all checks independently; mode overrides the config
// default when non-empty.
func (g *Guardrail) Validate(text string, mode Mode) Result {
	effectiveMode := mode
	if effectiveMode == "" {
		effectiveMode = g.cfg.DefaultMode
	}

	result := Result{Passed: true, SanitizedText: text}

	g.checkLength(text, &result)
	if g.cfg.PIIDetection.Enabled {
		g.detectPII(text, &result, effectiveMode)
	}
	if g.cfg.PromptInjection.Enabled {
		g.detectInjection(text, &result)
	}

	for _, w := range result.Warnings {
		log.Warn().Str("warning", w).Msg("guardrail warning")
	}
	return result
}

func (g *Guardrail) checkLength(text string, result *Result) {
	length := len(strings.TrimSpace(text))
	if length < g.cfg.MinLength {
		result.Passed = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Input too short: %d characters (minimum: %d)", length, g.cfg.MinLength))
	}
	if length > g.cfg.MaxLength {
		result.Passed = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Input too long: %d characters (maximum: %d)", length, g.cfg.MaxLength))
	}
}

func (g *Guardrail) detectPII(text string, result *Result, mode Mode) {
	for name, enabled := range g.cfg.PIIDetection.Patterns {
		if !enabled {
			continue
		}
		pattern, ok := piiPatterns[name]
		if !ok {
			continue
		}
		matches := pattern.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}

		masked := make([]string, len(matches))
		for i, m := range matches {
			masked[i] = maskValue(m)
		}
		result.PIIDetected = append(result.PIIDetected, fmt.Sprintf("%s: %d found", name, len(matches)))

		msg := fmt.Sprintf("PII detected (%s): %v", name, masked)
		if mode == ModeStrict || g.cfg.PIIDetection.Mode == ModeStrict {
			result.Passed = false
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
	}
}

func (g *Guardrail) detectInjection(text string, result *Result) {
	lower := strings.ToLower(text)

	var detected []string
	for _, phrase := range g.cfg.PromptInjection.Patterns {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			detected = append(detected, phrase)
		}
	}
	if len(detected) == 0 {
		return
	}
	result.InjectionDetected = detected

	switch g.cfg.PromptInjection.Action {
	case ActionReject:
		result.Passed = false
		result.Errors = append(result.Errors, fmt.Sprintf("Prompt injection detected: %v", detected))
	case ActionWarn:
		result.Warnings = append(result.Warnings, fmt.Sprintf("Potential prompt injection: %v", detected))
	case ActionSanitize:
		sanitized := result.SanitizedText
		for _, phrase := range detected {
			re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
			sanitized = re.ReplaceAllString(sanitized, sanitizePlaceholder)
		}
		result.SanitizedText = sanitized
		result.Warnings = append(result.Warnings, fmt.Sprintf("Sanitized prompt injection patterns: %v", detected))
	}
}

// maskValue masks a PII value for safe logging.
func maskValue(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
}

var (
	singletonMu sync.Mutex
	singleton   *Guardrail
)

// Get returns the process-wide guardrail built from the config file at
// path, constructing it at most once. Reset clears it for tests.
func Get(path string) (*Guardrail, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton != nil {
		return singleton, nil
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	singleton = New(cfg)
	return singleton, nil
}

// Reset clears the cached guardrail instance.
func Reset() {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	singleton = nil
}
