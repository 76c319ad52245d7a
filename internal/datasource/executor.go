package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Attempt outcomes, used for metrics labels and logging.
const (
	outcomeSuccess           = "success"
	outcomeTransportFailure  = "transport_failure"
	outcomeValidationFailure = "validation_failure"
	outcomeSkippedOpen       = "skipped_breaker_open"
	outcomeSkippedCredential = "skipped_no_credential"
	outcomeSkippedUnsupported = "skipped_unsupported"
)

// ExhaustionError is returned when every candidate for a capability was
// skipped or failed. Facades decide whether to propagate it, substitute
// an empty typed result or try the unmanaged bridge adapter.
type ExhaustionError struct {
	Capability Capability
	Attempted  []string
	LastErr    error
}

// Error implements the error interface
func (e *ExhaustionError) Error() string {
	if len(e.Attempted) == 0 {
		return fmt.Sprintf("no usable source for capability %q", e.Capability)
	}
	return fmt.Sprintf("all sources exhausted for capability %q (tried %s): %v",
		e.Capability, strings.Join(e.Attempted, ", "), e.LastErr)
}

// Unwrap returns the last underlying failure
func (e *ExhaustionError) Unwrap() error {
	return e.LastErr
}

// IsExhaustion reports whether err is an exhaustion error
func IsExhaustion(err error) bool {
	var ex *ExhaustionError
	return errors.As(err, &ex)
}

// Call invokes one adapter for a capability. Implementations type-assert
// the adapter to the capability's fetcher interface and return
// ErrCapabilityNotSupported when the assertion fails.
type Call[T any] func(ctx context.Context, a Adapter) (T, error)

// ExecOptions tunes one executor invocation.
type ExecOptions struct {
	// Sources overrides the capability's default candidate list.
	Sources []string
	// Timeout bounds each individual adapter call. Zero means the
	// manager default.
	Timeout time.Duration
}

// execute walks the candidate list for a capability in priority order,
// consults each breaker, invokes the adapter with a bounded timeout,
// applies the optional validity predicate and returns the first usable
// result. Failures — transport errors and rejected results alike — are
// recorded against the candidate's breaker and the walk continues.
func execute[T any](ctx context.Context, m *Manager, capability Capability, opts ExecOptions, validate func(T) bool, call Call[T]) (T, error) {
	var zero T

	if err := m.refresh(ctx); err != nil {
		// A failed reload keeps the previous registry; only fatal when
		// the registry has never been populated.
		m.log.WithError(err).Warn("source registry refresh failed, using previous configuration")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = m.callTimeout
	}

	candidates := m.registry.Candidates(capability, opts.Sources)
	attempted := make([]string, 0, len(candidates))
	var lastErr error

	for _, c := range candidates {
		// A token-gated source without its credential is a static
		// precondition failure: excluded, never counted.
		if carrier, ok := c.adapter.(CredentialCarrier); ok && carrier.RequiresCredential() && c.config.Credential == "" {
			m.metrics.RecordAttempt(c.name, string(capability), outcomeSkippedCredential, 0)
			continue
		}

		allow, probe := c.breaker.MayAttempt(time.Now())
		if !allow {
			m.metrics.RecordAttempt(c.name, string(capability), outcomeSkippedOpen, 0)
			m.log.WithField("source", c.name).Debugf("breaker open, skipping for %s", capability)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		result, err := call(callCtx, c.adapter)
		elapsed := time.Since(start)
		cancel()

		if errors.Is(err, ErrCapabilityNotSupported) {
			// Static mismatch between override list and adapter: not a
			// runtime fault, so the breaker is left untouched and any
			// probe admission is handed back.
			if probe {
				c.breaker.abandonProbe()
			}
			m.metrics.RecordAttempt(c.name, string(capability), outcomeSkippedUnsupported, 0)
			continue
		}

		attempted = append(attempted, c.name)

		if err != nil {
			c.breaker.RecordFailure(time.Now())
			m.publishBreakerState(c.name, c.breaker)
			m.metrics.RecordAttempt(c.name, string(capability), outcomeTransportFailure, elapsed)
			m.log.WithFields(map[string]interface{}{
				"source":     c.name,
				"capability": string(capability),
				"probe":      probe,
			}).WithError(err).Warn("source call failed")
			lastErr = err
			continue
		}

		if validate != nil && !validate(result) {
			c.breaker.RecordFailure(time.Now())
			m.publishBreakerState(c.name, c.breaker)
			m.metrics.RecordAttempt(c.name, string(capability), outcomeValidationFailure, elapsed)
			m.log.WithFields(map[string]interface{}{
				"source":     c.name,
				"capability": string(capability),
			}).Warn("source returned invalid result, counted as failure")
			lastErr = fmt.Errorf("source %s: result rejected by validity check", c.name)
			continue
		}

		c.breaker.RecordSuccess()
		m.publishBreakerState(c.name, c.breaker)
		m.metrics.RecordAttempt(c.name, string(capability), outcomeSuccess, elapsed)
		return result, nil
	}

	return zero, &ExhaustionError{Capability: capability, Attempted: attempted, LastErr: lastErr}
}
