package workflow

import (
	"time"

	"github.com/metalagman/reqgate/internal/guardrail"
	"github.com/metalagman/reqgate/internal/llm"
)

// Config selects the compiled graph topology and the resilience parameters
// of the LLM-calling stages. Feature toggles remove nodes from the graph
// entirely rather than short-circuiting them at runtime.
type Config struct {
	EnableGuardrail   bool `json:"enable_guardrail"`
	EnableStructuring bool `json:"enable_structuring"`
	EnableFallback    bool `json:"enable_fallback"`

	MaxRetries         int           `json:"max_retries"`
	LLMTimeout         time.Duration `json:"llm_timeout"`
	StructuringTimeout time.Duration `json:"structuring_timeout"`

	GuardrailMode guardrail.Mode `json:"guardrail_mode"`
}

// DefaultConfig returns the production workflow configuration: all stages
// enabled, lenient guardrail, three retries.
func DefaultConfig() Config {
	return Config{
		EnableGuardrail:    true,
		EnableStructuring:  true,
		EnableFallback:     true,
		MaxRetries:         3,
		LLMTimeout:         30 * time.Second,
		StructuringTimeout: 20 * time.Second,
		GuardrailMode:      guardrail.ModeLenient,
	}
}

func (c Config) normalized() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxRetries > llm.MaxRetryLimit {
		c.MaxRetries = llm.MaxRetryLimit
	}
	if c.LLMTimeout < 5*time.Second {
		c.LLMTimeout = 5 * time.Second
	}
	if c.LLMTimeout > 120*time.Second {
		c.LLMTimeout = 120 * time.Second
	}
	if c.StructuringTimeout < 5*time.Second {
		c.StructuringTimeout = 5 * time.Second
	}
	if c.StructuringTimeout > 60*time.Second {
		c.StructuringTimeout = 60 * time.Second
	}
	if c.GuardrailMode == "" {
		c.GuardrailMode = guardrail.ModeLenient
	}
	return c
}

func (c Config) retryPolicy(timeout time.Duration) llm.Policy {
	return llm.Policy{
		MaxRetries: c.MaxRetries,
		MinWait:    llm.DefaultMinWait,
		MaxWait:    llm.DefaultMaxWait,
		Timeout:    timeout,
	}
}
