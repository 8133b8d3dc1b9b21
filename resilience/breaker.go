package resilience

import (
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	// StateClosed admits every call.
	StateClosed State = iota
	// StateOpen rejects every call until the cool-down passes.
	StateOpen
	// StateHalfOpen admits a limited number of probe calls.
	StateHalfOpen
)

// String returns the state name.
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

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// Name tags state change notifications. Callers set it to the
	// dependency the breaker guards.
	Name string `yaml:"name" mapstructure:"name"`

	// MaxFailures is the consecutive failure count that opens the
	// circuit. Zero means 5.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures" validate:"min=0"`

	// CoolDown is how long an open circuit rejects calls before letting
	// probes through. Zero means 30s.
	CoolDown time.Duration `yaml:"cool_down" mapstructure:"cool_down" validate:"min=0"`

	// ProbeCalls is how many calls the half-open state admits, and how
	// many of them must succeed to close the circuit. Zero means 1.
	ProbeCalls int `yaml:"probe_calls" mapstructure:"probe_calls" validate:"min=0"`

	// OnStateChange observes transitions. It runs with the breaker lock
	// held and must not call back into the breaker.
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

// DefaultBreakerConfig returns the breaker defaults for the named
// dependency.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:        name,
		MaxFailures: 5,
		CoolDown:    30 * time.Second,
		ProbeCalls:  1,
	}
}

// Breaker fails fast while a dependency keeps failing. After MaxFailures
// consecutive failures it opens and Allow reports false; once CoolDown
// has passed it turns half-open and admits ProbeCalls probes, closing
// again when they all succeed and reopening on the first that fails.
//
// The caller drives it: gate calls with Allow, then report the outcome
// with RecordSuccess or RecordFailure. A call that ends with no outcome
// to record must hand its probe slot back with ReleaseProbe, or an
// abandoned probe keeps the half-open state from ever resolving.
type Breaker struct {
	config BreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	probes      int
	lastFailure time.Time
}

// NewBreaker creates a closed Breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	def := DefaultBreakerConfig(config.Name)
	if config.MaxFailures <= 0 {
		config.MaxFailures = def.MaxFailures
	}
	if config.CoolDown <= 0 {
		config.CoolDown = def.CoolDown
	}
	if config.ProbeCalls <= 0 {
		config.ProbeCalls = def.ProbeCalls
	}
	return &Breaker{config: config}
}

// Allow reports whether a call may proceed. Half-open admits up to
// ProbeCalls probes; open rejects until the cool-down has passed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.transition() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.probes < b.config.ProbeCalls {
			b.probes++
			return true
		}
		return false
	default:
		return false
	}
}

// ReleaseProbe returns a probe slot consumed by Allow when the call
// ended without an outcome to record, such as a canceled request. It
// has no effect outside the half-open state.
func (b *Breaker) ReleaseProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen && b.probes > 0 {
		b.probes--
	}
}

// RecordSuccess reports a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.transition() {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.config.ProbeCalls {
			b.setState(StateClosed)
		}
	}
}

// RecordFailure reports a failed call. In the closed state it opens the
// circuit once MaxFailures consecutive failures accumulate; in the
// half-open state a single failure reopens it.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()
	switch b.transition() {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.MaxFailures {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.setState(StateOpen)
	}
}

// State returns the current state, applying the open to half-open
// transition when the cool-down has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transition()
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the circuit and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed)
	b.failures = 0
}

// transition applies the lazy open to half-open move and returns the
// resulting state. Callers must hold mu.
func (b *Breaker) transition() State {
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.config.CoolDown {
		b.setState(StateHalfOpen)
	}
	return b.state
}

// setState moves to next, resetting the counters that the new state
// starts from. Callers must hold mu.
func (b *Breaker) setState(next State) {
	if b.state == next {
		return
	}
	from := b.state
	b.state = next

	switch next {
	case StateClosed:
		b.failures = 0
		b.successes = 0
		b.probes = 0
	case StateHalfOpen:
		b.successes = 0
		b.probes = 0
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.config.Name, from, next)
	}
}
