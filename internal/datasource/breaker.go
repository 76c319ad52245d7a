package datasource

import (
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

// String implements fmt.Stringer
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker tracks failures for one data source and gates calls
// against it. State transitions:
//
//	CLOSED    --failures reach threshold-->  OPEN
//	OPEN      --cooldown elapsed-->          HALF_OPEN (one probe)
//	HALF_OPEN --probe succeeds-->            CLOSED (counter reset)
//	HALF_OPEN --probe fails-->               OPEN (cooldown restarts)
//
// All methods are safe for concurrent use; the mutex is never held
// across an outbound call.
type CircuitBreaker struct {
	mu sync.Mutex

	state        BreakerState
	failureCount int
	lastFailure  time.Time
	probing      bool

	threshold int
	cooldown  time.Duration
}

// BreakerSnapshot is a point-in-time copy of breaker state for status
// reporting.
type BreakerSnapshot struct {
	State        BreakerState `json:"state"`
	FailureCount int          `json:"failure_count"`
	LastFailure  time.Time    `json:"last_failure_time"`
}

// NewCircuitBreaker creates a breaker in CLOSED state
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		state:     StateClosed,
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// MayAttempt reports whether a call against the source is currently
// allowed. When the cooldown of an OPEN breaker has elapsed, the first
// caller is admitted as the single HALF_OPEN probe; subsequent callers
// are rejected until that probe records an outcome.
func (b *CircuitBreaker) MayAttempt(now time.Time) (allow, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true, false
	case StateOpen:
		if now.Before(b.lastFailure.Add(b.cooldown)) {
			return false, false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true, true
	case StateHalfOpen:
		if b.probing {
			return false, false
		}
		b.probing = true
		return true, true
	}
	return false, false
}

// RecordSuccess moves the breaker to CLOSED and resets the failure
// counter. The counter resets exactly when entering CLOSED.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failureCount = 0
	b.probing = false
}

// RecordFailure counts one failed call. A failed HALF_OPEN probe
// re-opens the breaker and restarts the cooldown; a CLOSED breaker
// opens once the counter reaches the threshold. Each adapter invocation
// records at most one failure.
func (b *CircuitBreaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = now

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.probing = false
		return
	}
	if b.failureCount >= b.threshold {
		b.state = StateOpen
	}
}

// abandonProbe releases a probe admission without recording an
// outcome, so the next caller can claim the probe instead.
func (b *CircuitBreaker) abandonProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probing = false
	}
}

// Reset forces the breaker to CLOSED with a zero counter regardless of
// current state. Used by the administrative reset endpoint.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failureCount = 0
	b.lastFailure = time.Time{}
	b.probing = false
}

// Reconfigure updates threshold and cooldown in place without touching
// state or counters. Called when a reload changes a surviving source's
// settings.
func (b *CircuitBreaker) Reconfigure(threshold int, cooldown time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if threshold < 1 {
		threshold = 1
	}
	b.threshold = threshold
	b.cooldown = cooldown
}

// Snapshot returns a copy of the current breaker state
func (b *CircuitBreaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerSnapshot{
		State:        b.state,
		FailureCount: b.failureCount,
		LastFailure:  b.lastFailure,
	}
}
