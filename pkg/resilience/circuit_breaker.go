package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Common errors
var (
	// ErrCircuitOpen is returned when a call is rejected without reaching
	// the protected dependency
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrCallTimeout is returned when a call exceeds its per-call budget
	// and is abandoned
	ErrCallTimeout = errors.New("circuit breaker call timed out")
)

// State is an observable circuit breaker state
type State string

const (
	StateClosed   State = "CLOSED"
	StateHalfOpen State = "HALF_OPEN"
	StateOpen     State = "OPEN"
)

func stateFromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	Name                     string
	CallTimeout              time.Duration // Per-call budget; calls running longer are abandoned and counted as timeouts
	ResetTimeout             time.Duration // How long to wait before transitioning from open to half-open
	VolumeThreshold          int           // Minimum completed calls in the window before the error percentage is evaluated
	ErrorThresholdPercentage float64       // Share of failed and timed-out calls that trips the circuit
	WindowDuration           time.Duration // Length of the rolling statistics window
	WindowBuckets            int           // Number of buckets the window is divided into
	MaxHalfOpenCalls         uint32        // Concurrent calls allowed through in half-open state

	// OnStateChange is called after every state transition
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns sensible defaults
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:                     name,
		CallTimeout:              DefaultCallTimeout,
		ResetTimeout:             DefaultResetTimeout,
		VolumeThreshold:          DefaultVolumeThreshold,
		ErrorThresholdPercentage: DefaultErrorThresholdPercentage,
		WindowDuration:           DefaultWindowDuration,
		WindowBuckets:            DefaultWindowBuckets,
		MaxHalfOpenCalls:         DefaultMaxHalfOpenCalls,
	}
}

func (c *CircuitBreakerConfig) normalized() *CircuitBreakerConfig {
	cfg := *c
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.VolumeThreshold <= 0 {
		cfg.VolumeThreshold = DefaultVolumeThreshold
	}
	if cfg.ErrorThresholdPercentage <= 0 {
		cfg.ErrorThresholdPercentage = DefaultErrorThresholdPercentage
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = DefaultWindowDuration
	}
	if cfg.WindowBuckets <= 0 {
		cfg.WindowBuckets = DefaultWindowBuckets
	}
	if cfg.MaxHalfOpenCalls == 0 {
		cfg.MaxHalfOpenCalls = DefaultMaxHalfOpenCalls
	}
	return &cfg
}

// LifetimeCounts aggregates call outcomes since the breaker was created.
// Unlike the rolling window these never age out and survive Reset.
type LifetimeCounts struct {
	Fires      uint64 `json:"fires"`
	Successes  uint64 `json:"successes"`
	Failures   uint64 `json:"failures"`
	Timeouts   uint64 `json:"timeouts"`
	Rejections uint64 `json:"rejections"`
	Fallbacks  uint64 `json:"fallbacks"`
}

// CircuitBreakerStats is a point-in-time view of a breaker
type CircuitBreakerStats struct {
	Name            string         `json:"name"`
	State           string         `json:"state"`
	Window          WindowCounts   `json:"window"`
	ErrorPercentage float64        `json:"errorPercentage"`
	Lifetime        LifetimeCounts `json:"lifetime"`
	LastTransition  time.Time      `json:"lastTransition"`
}

// CircuitBreaker guards calls to a remote dependency. It wraps the
// gobreaker state machine and drives the trip decision from its own
// rolling window of call outcomes: the circuit opens once the window
// holds at least VolumeThreshold completed calls and the share of
// failures plus timeouts reaches ErrorThresholdPercentage.
//
// The open-to-half-open transition happens lazily when the elapsed
// reset timeout is observed on the next call or state read; no
// background timer runs.
type CircuitBreaker struct {
	name   string
	config *CircuitBreakerConfig
	logger *slog.Logger
	window *rollingWindow

	mu             sync.RWMutex // guards cb, lifetime, lastTransition
	cb             *gobreaker.CircuitBreaker
	lifetime       LifetimeCounts
	lastTransition time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *CircuitBreakerConfig, logger *slog.Logger) *CircuitBreaker {
	cfg := config.normalized()
	breaker := &CircuitBreaker{
		name:           cfg.Name,
		config:         cfg,
		logger:         logger,
		window:         newRollingWindow(cfg.WindowDuration, cfg.WindowBuckets, nil),
		lastTransition: time.Now().UTC(),
	}
	breaker.cb = breaker.newStateMachine()
	return breaker
}

func (c *CircuitBreaker) newStateMachine() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        c.name,
		MaxRequests: c.config.MaxHalfOpenCalls,
		Timeout:     c.config.ResetTimeout,
		ReadyToTrip: func(gobreaker.Counts) bool {
			// The outcome of the call that just finished is already in the
			// window, so the decision covers it.
			counts := c.window.snapshot()
			return counts.Completed() >= uint64(c.config.VolumeThreshold) &&
				counts.ErrorPercentage() >= c.config.ErrorThresholdPercentage
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.transitioned(stateFromGobreaker(from), stateFromGobreaker(to))
		},
	})
}

// Execute runs a function through the circuit breaker. The function
// receives a context carrying the per-call timeout; if it outlives that
// budget the call is abandoned and reported as a timeout.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	c.lifetime.Fires++
	cb := c.cb
	c.mu.Unlock()

	result, err := cb.Execute(func() (interface{}, error) {
		return c.invoke(ctx, fn)
	})

	if err == gobreaker.ErrOpenState {
		c.record(outcomeRejection)
		c.logger.Warn("Circuit breaker is open", "name", c.name)
		return nil, fmt.Errorf("%s: %w", c.name, ErrCircuitOpen)
	}

	if err == gobreaker.ErrTooManyRequests {
		c.record(outcomeRejection)
		c.logger.Warn("Circuit breaker: too many requests", "name", c.name)
		return nil, fmt.Errorf("%s: %w", c.name, ErrCircuitOpen)
	}

	return result, err
}

// invoke runs fn with the per-call timeout and records the outcome
// before returning, so the trip decision made by the state machine
// immediately afterwards sees it.
func (c *CircuitBreaker) invoke(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	callCtx := ctx
	cancel := func() {}
	if c.config.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.config.CallTimeout)
	}
	defer cancel()

	type callResult struct {
		value interface{}
		err   error
	}
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			// A panic on this goroutine would crash the process
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("panic in circuit breaker call: %v", r)}
			}
		}()
		value, err := fn(callCtx)
		done <- callResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				c.record(outcomeTimeout)
			} else {
				c.record(outcomeFailure)
			}
			return nil, res.err
		}
		c.record(outcomeSuccess)
		return res.value, nil

	case <-callCtx.Done():
		// The call is abandoned; the goroutine drains into the buffered
		// channel whenever it finishes.
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			c.record(outcomeTimeout)
			return nil, fmt.Errorf("%s: %w", c.name, ErrCallTimeout)
		}
		c.record(outcomeFailure)
		return nil, callCtx.Err()
	}
}

func (c *CircuitBreaker) record(o outcome) {
	c.window.record(o)

	c.mu.Lock()
	switch o {
	case outcomeSuccess:
		c.lifetime.Successes++
	case outcomeFailure:
		c.lifetime.Failures++
	case outcomeTimeout:
		c.lifetime.Timeouts++
	case outcomeRejection:
		c.lifetime.Rejections++
	case outcomeFallback:
		c.lifetime.Fallbacks++
	}
	c.mu.Unlock()
}

func (c *CircuitBreaker) transitioned(from, to State) {
	c.mu.Lock()
	c.lastTransition = time.Now().UTC()
	c.mu.Unlock()

	// Closing re-arms the breaker with a clean window
	if to == StateClosed {
		c.window.reset()
	}

	c.logger.Warn("Circuit breaker state changed",
		"name", c.name,
		"from", string(from),
		"to", string(to),
	)

	if c.config.OnStateChange != nil {
		c.config.OnStateChange(c.name, from, to)
	}
}

// State returns the current state of the circuit breaker. Reading the
// state observes the reset timeout, so an expired open circuit reports
// half-open here before any call is attempted.
func (c *CircuitBreaker) State() State {
	c.mu.RLock()
	cb := c.cb
	c.mu.RUnlock()
	return stateFromGobreaker(cb.State())
}

// Name returns the circuit breaker name
func (c *CircuitBreaker) Name() string {
	return c.name
}

// Stats returns a point-in-time view of the breaker
func (c *CircuitBreaker) Stats() CircuitBreakerStats {
	state := c.State()
	window := c.window.snapshot()

	c.mu.RLock()
	lifetime := c.lifetime
	lastTransition := c.lastTransition
	c.mu.RUnlock()

	return CircuitBreakerStats{
		Name:            c.name,
		State:           string(state),
		Window:          window,
		ErrorPercentage: window.ErrorPercentage(),
		Lifetime:        lifetime,
		LastTransition:  lastTransition,
	}
}

// Reset forces the breaker back to closed with a clean window. Lifetime
// counts are preserved.
func (c *CircuitBreaker) Reset() {
	from := c.State()

	c.mu.Lock()
	c.cb = c.newStateMachine()
	c.mu.Unlock()

	c.window.reset()

	if from != StateClosed {
		c.transitioned(from, StateClosed)
	}
	c.logger.Info("Circuit breaker reset", "name", c.name)
}

// Result carries a value produced through a circuit breaker. Degraded is
// true when the value came from the fallback rather than the protected
// call; Cause then holds the error that triggered it. A degraded value
// must never be mistaken for an authoritative answer.
type Result[T any] struct {
	Value    T
	Degraded bool
	Cause    error
}

// Do runs a typed function through the circuit breaker
func Do[T any](ctx context.Context, cb *CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	value, err := cb.Execute(ctx, func(callCtx context.Context) (interface{}, error) {
		return fn(callCtx)
	})
	if err != nil {
		return zero, err
	}
	return value.(T), nil
}

// DoWithFallback runs a typed function through the circuit breaker and
// answers from the fallback when the call fails, times out, or is
// rejected. Fallback answers are tagged Degraded with the cause
// attached; an error from the fallback itself is returned as-is.
func DoWithFallback[T any](ctx context.Context, cb *CircuitBreaker, fn func(context.Context) (T, error), fallback func(context.Context, error) (T, error)) (Result[T], error) {
	value, err := Do(ctx, cb, fn)
	if err == nil {
		return Result[T]{Value: value}, nil
	}

	cb.record(outcomeFallback)
	cb.logger.Debug("Circuit breaker fallback used", "name", cb.name, "cause", err)

	fallbackValue, fallbackErr := fallback(ctx, err)
	if fallbackErr != nil {
		return Result[T]{}, fallbackErr
	}
	return Result[T]{Value: fallbackValue, Degraded: true, Cause: err}, nil
}
