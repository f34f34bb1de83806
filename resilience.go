package speechgen

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// RetryConfig configures retry behavior for failed operations.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	// Set to 0 to disable retries.
	MaxRetries int

	// BaseDelay is the initial delay between retries.
	// Default: 1 second
	BaseDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	// Default: 30 seconds
	MaxDelay time.Duration

	// Multiplier is used for exponential backoff.
	// Each retry delay is multiplied by this factor.
	// Default: 2.0
	Multiplier float64

	// Jitter adds randomness to retry delays to avoid thundering herd.
	// Value between 0.0 and 1.0. Default: 0.1 (10% jitter)
	Jitter float64

	// RetryableErrors determines if an error should trigger a retry.
	// If nil, all errors are considered retryable.
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns a sensible default retry configuration:
// connection and transport failures are retried, configuration and
// protocol-reported errors are not.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
		RetryableErrors: func(err error) bool {
			var configErr *ConfigError
			if errors.As(err, &configErr) {
				return false
			}
			var protoErr *ProtocolError
			if errors.As(err, &protoErr) {
				return false
			}
			var connErr *ConnectionError
			var transErr *TransportError
			return errors.As(err, &connErr) || errors.As(err, &transErr)
		},
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func() error

// WithRetry executes an operation with retry logic based on the provided
// configuration.
func WithRetry(ctx context.Context, config RetryConfig, op RetryableOperation) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}

		lastErr = err

		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		// Don't delay after the last attempt
		if attempt == config.MaxRetries {
			break
		}

		delay := calculateDelay(attempt, config)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}

// calculateDelay computes the delay for a retry attempt with exponential
// backoff and jitter.
func calculateDelay(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter > 0 {
		jitterAmount := delay * config.Jitter
		delay += (2.0 * jitterAmount) - jitterAmount
	}

	return time.Duration(delay)
}

// DialSessionWithRetry dials a realtime session with automatic retry on
// connection failure.
func DialSessionWithRetry(ctx context.Context, cfg SessionConfig, retryConfig RetryConfig) (*RealtimeSession, error) {
	var sess *RealtimeSession
	err := WithRetry(ctx, retryConfig, func() error {
		var err error
		sess, err = DialSession(ctx, cfg)
		return err
	})
	return sess, err
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures that triggers the circuit breaker.
	FailureThreshold int

	// RecoveryTimeout is how long to wait before attempting to recover.
	RecoveryTimeout time.Duration

	// SuccessThreshold is the number of successes needed to close the circuit.
	SuccessThreshold int
}

// CircuitBreakerState represents the current state of the circuit breaker.
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// ErrCircuitOpen is returned by CircuitBreaker.Execute while the circuit is
// open and the recovery timeout has not elapsed.
var ErrCircuitOpen = errors.New("speechgen: circuit breaker is open")

// CircuitBreaker implements the circuit breaker pattern to stop hammering an
// endpoint that keeps failing (e.g., a misconfigured deployment).
// It is safe for concurrent use.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           CircuitBreakerState
	failures        int
	successes       int
	lastFailureTime time.Time
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		state:  CircuitClosed,
	}
}

// Execute runs an operation through the circuit breaker.
func (cb *CircuitBreaker) Execute(op func() error) error {
	if !cb.shouldAllow() {
		return ErrCircuitOpen
	}

	err := op()

	if err != nil {
		cb.onFailure()
		return err
	}

	cb.onSuccess()
	return nil
}

// shouldAllow determines if an operation should be allowed based on circuit
// breaker state.
func (cb *CircuitBreaker) shouldAllow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) >= cb.config.RecoveryTimeout {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	case CircuitHalfOpen:
		return true
	default:
		return false
	}
}

// onFailure handles a failed operation.
func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.successes = 0
	cb.lastFailureTime = time.Now()

	if cb.failures >= cb.config.FailureThreshold {
		cb.state = CircuitOpen
	}
}

// onSuccess handles a successful operation.
func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successes++
	cb.failures = 0

	if cb.state == CircuitHalfOpen && cb.successes >= cb.config.SuccessThreshold {
		cb.state = CircuitClosed
	}
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
