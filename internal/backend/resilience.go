package backend

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	MaxRetries          int           // Additional attempts after the first (default 0)
	InitialInterval     time.Duration // Initial retry interval (default 500ms)
	MaxInterval         time.Duration // Maximum retry interval (default 10s)
	MaxElapsedTime      time.Duration // Maximum total retry time (default 2min)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration.
// Provider calls are attempted once unless MaxRetries is raised.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:          0,
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// CircuitBreakerRegistry manages per-provider circuit breakers.
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewCircuitBreakerRegistry creates a new circuit breaker registry.
func NewCircuitBreakerRegistry() *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Get returns the circuit breaker for the given provider.
// Creates a new one if it doesn't exist.
func (r *CircuitBreakerRegistry) Get(provider string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[provider]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,                // One probe request in half-open state
		Interval:    0,                // Don't clear counts automatically
		Timeout:     30 * time.Second, // Stay open for 30s before testing recovery
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %q: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// Don't count user cancellation as provider failure
			if err == nil {
				return true
			}
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	r.breakers[provider] = cb
	return cb
}

// Resilient wraps a Backend with rate limiting, a circuit breaker and optional retries.
type Resilient struct {
	next    Backend
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	retry   RetryConfig
}

// NewResilient wraps next. requestsPerMinute <= 0 disables rate limiting.
func NewResilient(next Backend, breakers *CircuitBreakerRegistry, requestsPerMinute int, retry RetryConfig) *Resilient {
	r := &Resilient{
		next:    next,
		breaker: breakers.Get(next.Provider()),
		retry:   retry,
	}
	if requestsPerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return r
}

// Send forwards the request through the limiter and breaker, retrying transient failures.
func (r *Resilient) Send(ctx context.Context, req Request) (Response, error) {
	var resp Response

	operation := func() error {
		// Check context first - fail fast if cancelled
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		result, err := r.breaker.Execute(func() (interface{}, error) {
			return r.next.Send(ctx, req)
		})
		if err != nil {
			// Circuit is open - don't retry
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			// Empty responses are not retried
			if errors.Is(err, ErrEmptyResponse) {
				return backoff.Permanent(err)
			}
			return err
		}

		resp = result.(Response)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.retry.InitialInterval
	policy.MaxInterval = r.retry.MaxInterval
	policy.MaxElapsedTime = r.retry.MaxElapsedTime
	policy.Multiplier = r.retry.Multiplier
	policy.RandomizationFactor = r.retry.RandomizationFactor

	maxRetries := r.retry.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		log.Printf("WARNING: %s request failed, retrying in %s: %v", r.next.Provider(), wait.Round(time.Millisecond), err)
	}

	err := backoff.RetryNotify(operation, bo, notify)
	return resp, err
}

// Close closes the wrapped backend.
func (r *Resilient) Close() error {
	return r.next.Close()
}

// Provider returns the wrapped backend's provider name.
func (r *Resilient) Provider() string {
	return r.next.Provider()
}
