// Package llm provides the gateway to the language-model provider and the
// resilience layers around it: a bounded-retry wrapper with exponential
// backoff and an independent multi-model fallback loop.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Gateway is the external LLM boundary: prompt in, response text or
// failure out. Implementations must enforce a per-call timeout.
type Gateway interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ModelGateway is a gateway that can address a specific model identifier.
type ModelGateway interface {
	Gateway
	InvokeModel(ctx context.Context, model, prompt string) (string, error)
}

// TimeoutError is raised after all retry attempts failed with timeouts.
type TimeoutError struct {
	Attempts int
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("llm call timed out after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// RateLimitError is raised after all retry attempts failed with rate limits.
type RateLimitError struct {
	Attempts int
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("llm call rate-limited after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

type failureClass int

const (
	failureFatal failureClass = iota
	failureTimeout
	failureRateLimit
)

var rateLimitKeywords = []string{"rate limit", "rate-limit", "ratelimit", "429", "resource exhausted", "quota"}

// classify sorts a gateway failure into timeout (retryable), rate limit
// (retryable, detected from the error text), or fatal.
func classify(err error) failureClass {
	if err == nil {
		return failureFatal
	}

	var te *TimeoutError
	if errors.As(err, &te) {
		return failureTimeout
	}
	var re *RateLimitError
	if errors.As(err, &re) {
		return failureRateLimit
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range rateLimitKeywords {
		if strings.Contains(msg, kw) {
			return failureRateLimit
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return failureTimeout
	}

	return failureFatal
}
