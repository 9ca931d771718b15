package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the guarded function while the
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int
	// Cooldown is how long the breaker stays open before one trial call is
	// let through.
	Cooldown      time.Duration
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker fails fast after repeated failures and lets a single trial
// call through once the cooldown has passed. A successful trial closes it.
type CircuitBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trial    bool
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the breaker is open. Errors for which countFailure
// returns false pass through without affecting the breaker; a nil
// countFailure counts every error.
func (cb *CircuitBreaker) Execute(fn func() error, countFailure func(error) bool) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	switch {
	case err == nil:
		cb.record(false)
	case countFailure == nil || countFailure(err):
		cb.record(true)
	default:
		cb.release()
	}
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// Reset closes the breaker.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.trial = false
	cb.transition(StateClosed)
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.current() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.trial {
			return false
		}
		cb.trial = true
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	state := cb.current()
	if !failed {
		cb.failures = 0
		cb.trial = false
		cb.transition(StateClosed)
		return
	}
	cb.failures++
	if state == StateHalfOpen || cb.failures >= cb.cfg.MaxFailures {
		cb.trial = false
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

// release frees the half-open trial slot without judging the outcome.
func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.trial = false
}

// current moves an open breaker to half-open once the cooldown passed.
// The caller holds mu.
func (cb *CircuitBreaker) current() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
		cb.transition(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
