// Package breaker implements a three-state circuit breaker that isolates
// callers from an upstream that keeps failing.
//
// State is recomputed lazily whenever it is read or a call is attempted;
// there is no background timer. Between calls a Breaker is inert data.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/quran-xref/pkg/logging"
	"github.com/rs/zerolog"
)

// ErrCircuitOpen is returned without invoking the wrapped operation while the
// breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// FailureThreshold is the number of consecutive failures in the closed
	// state that opens the breaker
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open after the last failure
	// before admitting trial calls
	ResetTimeout time.Duration
	// HalfOpenMaxAttempts bounds the trial calls admitted in the half-open state
	HalfOpenMaxAttempts int
	// IsNeutral reports errors that count as neither success nor failure,
	// such as the caller's own cancellation. When nil every error is a failure.
	IsNeutral func(err error) bool
	// OnStateChange is called whenever the state changes, with the lock held
	OnStateChange func(name string, from State, to State)
	// Now is the time source, time.Now when nil
	Now func() time.Time
}

// DefaultSettings returns the settings used for zero fields.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold:    5,
		ResetTimeout:        30 * time.Second,
		HalfOpenMaxAttempts: 1,
	}
}

// Counts is a snapshot of the breaker's bookkeeping
type Counts struct {
	ConsecutiveFailures int
	LastFailure         time.Time
	HalfOpenAttempts    int
}

// Breaker implements the circuit breaker pattern
type Breaker struct {
	name     string
	settings Settings
	logger   zerolog.Logger

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	trials      int
	generation  uint64
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	defaults := DefaultSettings()
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = defaults.FailureThreshold
	}
	if settings.ResetTimeout <= 0 {
		settings.ResetTimeout = defaults.ResetTimeout
	}
	if settings.HalfOpenMaxAttempts <= 0 {
		settings.HalfOpenMaxAttempts = defaults.HalfOpenMaxAttempts
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}

	breakerState.WithLabelValues(name).Set(float64(StateClosed))

	return &Breaker{
		name:     name,
		settings: settings,
		logger:   logging.NewLogger(logging.ComponentBreaker).With().Str("breaker", name).Logger(),
		state:    StateClosed,
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, promoting open to half_open once the
// reset timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.currentState(b.settings.Now())
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Counts{
		ConsecutiveFailures: b.failures,
		LastFailure:         b.lastFailure,
		HalfOpenAttempts:    b.trials,
	}
}

// Reset forces the breaker closed and clears all counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setState(StateClosed)
	b.failures = 0
	b.lastFailure = time.Time{}
	b.trials = 0
	// a call admitted before Reset must not count against the fresh state
	b.generation++
}

// Execute runs fn if the breaker admits it. ErrCircuitOpen is returned
// without calling fn; an error from fn is recorded as a failure unless
// Settings.IsNeutral accepts it, and is returned unchanged either way.
func (b *Breaker) Execute(fn func() error) error {
	generation, err := b.beforeRequest()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.afterRequest(generation, false)
			panic(e)
		}
	}()

	err = fn()
	if err != nil && b.settings.IsNeutral != nil && b.settings.IsNeutral(err) {
		b.releaseRequest(generation)
		return err
	}
	b.afterRequest(generation, err == nil)
	return err
}

// Call runs fn through b and returns its result.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

// beforeRequest is called before a request is executed
func (b *Breaker) beforeRequest() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState(b.settings.Now()) {
	case StateOpen:
		breakerRejections.WithLabelValues(b.name).Inc()
		return b.generation, ErrCircuitOpen
	case StateHalfOpen:
		if b.trials >= b.settings.HalfOpenMaxAttempts {
			breakerRejections.WithLabelValues(b.name).Inc()
			return b.generation, ErrCircuitOpen
		}
		b.trials++
	}

	return b.generation, nil
}

// afterRequest is called after a request is executed
func (b *Breaker) afterRequest(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.settings.Now()
	state := b.currentState(now)

	// the breaker moved on while the call was in flight
	if b.generation != before {
		return
	}

	if success {
		b.onSuccess(state)
	} else {
		b.onFailure(state, now)
	}
}

// releaseRequest gives back a half-open trial slot taken by a call whose
// outcome says nothing about the upstream.
func (b *Breaker) releaseRequest(before uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.generation != before {
		return
	}
	if b.state == StateHalfOpen && b.trials > 0 {
		b.trials--
	}
}

// onSuccess handles successful requests
func (b *Breaker) onSuccess(state State) {
	switch state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.setState(StateClosed)
		b.failures = 0
		b.lastFailure = time.Time{}
	}
}

// onFailure handles failed requests
func (b *Breaker) onFailure(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.failures++
		b.lastFailure = now
		if b.failures >= b.settings.FailureThreshold {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.lastFailure = now
		b.setState(StateOpen)
	}
}

// currentState returns the current state after applying the lazy
// open -> half_open promotion. Must be called with b.mu held.
func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && !now.Before(b.lastFailure.Add(b.settings.ResetTimeout)) {
		b.setState(StateHalfOpen)
	}
	return b.state
}

// setState changes the state of the circuit breaker. Must be called with b.mu held.
func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.trials = 0
	b.generation++

	breakerState.WithLabelValues(b.name).Set(float64(state))
	breakerTransitions.WithLabelValues(b.name, prev.String(), state.String()).Inc()

	event := b.logger.Info()
	if state == StateOpen {
		event = b.logger.Warn().Int("failures", b.failures)
	}
	event.
		Str("from", prev.String()).
		Str("to", state.String()).
		Msg("Circuit breaker state changed")

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
