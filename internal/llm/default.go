package llm

import (
	"context"
	"sync"

	"github.com/metalagman/reqgate/internal/settings"
)

var (
	defaultMu      sync.Mutex
	defaultGateway ModelGateway
)

// Default returns the process-wide gateway built from settings, constructing
// it at most once.
func Default(ctx context.Context) (ModelGateway, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultGateway != nil {
		return defaultGateway, nil
	}

	s, err := settings.Get()
	if err != nil {
		return nil, err
	}
	client, err := NewGeminiClient(ctx, GeminiConfig{
		APIKey:  s.GeminiAPIKey,
		Model:   s.LLMModel,
		Timeout: s.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}
	defaultGateway = client
	return defaultGateway, nil
}

// ResetDefault clears the cached gateway so tests can swap implementations.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultGateway = nil
}

// SetDefault overrides the cached gateway. Intended for tests.
func SetDefault(gw ModelGateway) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultGateway = gw
}
