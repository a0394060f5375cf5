package resilience

import (
	"log/slog"
	"sync"
)

// CircuitBreakerRegistry manages the circuit breakers of a process,
// keyed by dependency name. Breakers are created on first request and
// live for the lifetime of the registry. Safe for concurrent use.
//
// The registry is plain state handed to whoever needs it; there is no
// package-level instance.
type CircuitBreakerRegistry struct {
	mu            sync.RWMutex
	breakers      map[string]*CircuitBreaker
	logger        *slog.Logger
	onStateChange func(name string, from, to State)
}

// NewCircuitBreakerRegistry creates a new registry. The optional
// onStateChange hook is installed on every breaker the registry creates
// that does not carry its own.
func NewCircuitBreakerRegistry(logger *slog.Logger, onStateChange func(name string, from, to State)) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers:      make(map[string]*CircuitBreaker),
		logger:        logger,
		onStateChange: onStateChange,
	}
}

// Get returns a circuit breaker by name, creating it with default
// configuration if it doesn't exist
func (r *CircuitBreakerRegistry) Get(name string) *CircuitBreaker {
	return r.GetWithConfig(DefaultCircuitBreakerConfig(name))
}

// GetWithConfig returns a circuit breaker by name, creating it with the
// given configuration if it doesn't exist. The configuration is ignored
// when the breaker already exists.
func (r *CircuitBreakerRegistry) GetWithConfig(config *CircuitBreakerConfig) *CircuitBreaker {
	r.mu.RLock()
	cb, exists := r.breakers[config.Name]
	r.mu.RUnlock()
	if exists {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, exists := r.breakers[config.Name]; exists {
		return cb
	}

	if config.OnStateChange == nil {
		config.OnStateChange = r.onStateChange
	}
	cb = NewCircuitBreaker(config, r.logger)
	r.breakers[config.Name] = cb
	return cb
}

// State returns the state of a named breaker. The second return value
// is false when no breaker with that name exists.
func (r *CircuitBreakerRegistry) State(name string) (State, bool) {
	r.mu.RLock()
	cb, exists := r.breakers[name]
	r.mu.RUnlock()
	if !exists {
		return "", false
	}
	return cb.State(), true
}

// Stats returns the stats of a named breaker
func (r *CircuitBreakerRegistry) Stats(name string) (CircuitBreakerStats, bool) {
	r.mu.RLock()
	cb, exists := r.breakers[name]
	r.mu.RUnlock()
	if !exists {
		return CircuitBreakerStats{}, false
	}
	return cb.Stats(), true
}

// Status returns the stats of all registered circuit breakers
func (r *CircuitBreakerRegistry) Status() map[string]CircuitBreakerStats {
	r.mu.RLock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.RUnlock()

	// Stats reads the breaker state, which can trigger the lazy
	// open-to-half-open transition; collected outside the registry lock.
	status := make(map[string]CircuitBreakerStats, len(breakers))
	for _, cb := range breakers {
		status[cb.Name()] = cb.Stats()
	}
	return status
}
