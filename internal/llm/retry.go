package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// Retry bounds.
const (
	MaxRetryLimit  = 10
	DefaultRetries = 3
	DefaultMinWait = 2 * time.Second
	DefaultMaxWait = 10 * time.Second
)

// Policy configures the retry wrapper. MaxRetries is the number of retries
// after the first attempt, so the wrapper makes MaxRetries+1 attempts total.
type Policy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
	Timeout    time.Duration
}

// DefaultPolicy returns the production retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultRetries,
		MinWait:    DefaultMinWait,
		MaxWait:    DefaultMaxWait,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.MaxRetries > MaxRetryLimit {
		p.MaxRetries = MaxRetryLimit
	}
	if p.MinWait <= 0 {
		p.MinWait = DefaultMinWait
	}
	if p.MaxWait < p.MinWait {
		p.MaxWait = p.MinWait
	}
	return p
}

// CallFunc is one logical gateway call.
type CallFunc func(ctx context.Context) (string, error)

// CallWithRetry invokes fn up to MaxRetries+1 times, sleeping with bounded
// exponential backoff between retryable failures. Timeouts and rate limits
// are retryable; any other failure propagates immediately without consuming
// the remaining budget. On exhaustion a typed TimeoutError or RateLimitError
// is returned, classified by the last failure and carrying the attempt
// count. The attempt count is also returned on success.
func CallWithRetry(ctx context.Context, fn CallFunc, policy Policy) (string, int, error) {
	policy = policy.normalized()

	wait := backoff.NewExponentialBackOff()
	wait.InitialInterval = policy.MinWait
	wait.MaxInterval = policy.MaxWait
	wait.Multiplier = 2
	wait.RandomizationFactor = 0
	wait.Reset()

	attempts := 0
	var lastErr error
	var lastClass failureClass

	for attempts <= policy.MaxRetries {
		attempts++

		resp, err := fn(ctx)
		if err == nil {
			return resp, attempts, nil
		}

		class := classify(err)
		if class == failureFatal {
			return "", attempts, err
		}
		lastErr = err
		lastClass = class
		log.Warn().
			Err(err).
			Int("attempt", attempts).
			Int("max_attempts", policy.MaxRetries+1).
			Msg("retryable llm failure")

		if attempts > policy.MaxRetries {
			break
		}

		delay := wait.NextBackOff()
		if delay > policy.MaxWait {
			delay = policy.MaxWait
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", attempts, &TimeoutError{Attempts: attempts, Timeout: policy.Timeout, Err: ctx.Err()}
		}
	}

	switch lastClass {
	case failureRateLimit:
		return "", attempts, &RateLimitError{Attempts: attempts, Err: lastErr}
	default:
		return "", attempts, &TimeoutError{Attempts: attempts, Timeout: policy.Timeout, Err: lastErr}
	}
}

// ModelCallFunc performs one logical call against a specific model.
type ModelCallFunc func(ctx context.Context, model string) (string, error)

// TryModels runs a full retry cycle per model in fixed preference order and
// returns on the first success. The outer loop and CallWithRetry are
// independent layers: each model gets its own full retry budget. When every
// model exhausts, the last encountered error propagates.
func TryModels(ctx context.Context, models []string, policy Policy, call ModelCallFunc) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("no models configured")
	}

	var lastErr error
	for _, model := range models {
		log.Info().Str("model", model).Msg("calling llm model")
		resp, attempts, err := CallWithRetry(ctx, func(ctx context.Context) (string, error) {
			return call(ctx, model)
		}, policy)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Warn().
			Err(err).
			Str("model", model).
			Int("attempts", attempts).
			Msg("model failed, trying next fallback")
	}
	return "", lastErr
}
