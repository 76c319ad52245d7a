package datasource

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewCircuitBreaker(3, 300*time.Second)
	now := time.Now()

	for i := 0; i < 2; i++ {
		b.RecordFailure(now)
		if snap := b.Snapshot(); snap.State != StateClosed {
			t.Fatalf("expected CLOSED after %d failures, got %s", i+1, snap.State)
		}
	}

	b.RecordFailure(now)
	snap := b.Snapshot()
	if snap.State != StateOpen {
		t.Errorf("expected OPEN after threshold failures, got %s", snap.State)
	}
	if snap.FailureCount != 3 {
		t.Errorf("expected failure count 3, got %d", snap.FailureCount)
	}
	if !snap.LastFailure.Equal(now) {
		t.Errorf("expected last failure %v, got %v", now, snap.LastFailure)
	}
}

func TestBreakerDeniesWhileOpen(t *testing.T) {
	b := NewCircuitBreaker(1, 300*time.Second)
	now := time.Now()
	b.RecordFailure(now)

	if allow, _ := b.MayAttempt(now.Add(299 * time.Second)); allow {
		t.Error("expected attempt denied before cooldown elapses")
	}
}

func TestBreakerSingleProbeAfterCooldown(t *testing.T) {
	b := NewCircuitBreaker(1, 300*time.Second)
	now := time.Now()
	b.RecordFailure(now)

	after := now.Add(301 * time.Second)
	allow, probe := b.MayAttempt(after)
	if !allow || !probe {
		t.Fatalf("expected probe admission after cooldown, got allow=%v probe=%v", allow, probe)
	}
	if snap := b.Snapshot(); snap.State != StateHalfOpen {
		t.Errorf("expected HALF_OPEN during probe, got %s", snap.State)
	}

	// 探测未完成时拒绝后续调用
	if allow, _ := b.MayAttempt(after); allow {
		t.Error("expected second caller denied while probe is in flight")
	}
}

func TestBreakerProbeSuccessCloses(t *testing.T) {
	b := NewCircuitBreaker(1, time.Second)
	now := time.Now()
	b.RecordFailure(now)
	b.MayAttempt(now.Add(2 * time.Second))

	b.RecordSuccess()
	snap := b.Snapshot()
	if snap.State != StateClosed {
		t.Errorf("expected CLOSED after probe success, got %s", snap.State)
	}
	if snap.FailureCount != 0 {
		t.Errorf("expected failure count reset, got %d", snap.FailureCount)
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(1, time.Second)
	now := time.Now()
	b.RecordFailure(now)

	probeAt := now.Add(2 * time.Second)
	b.MayAttempt(probeAt)
	b.RecordFailure(probeAt)

	snap := b.Snapshot()
	if snap.State != StateOpen {
		t.Errorf("expected OPEN after probe failure, got %s", snap.State)
	}

	// Cooldown restarts from the probe failure.
	if allow, _ := b.MayAttempt(probeAt.Add(500 * time.Millisecond)); allow {
		t.Error("expected denial during restarted cooldown")
	}
	if allow, probe := b.MayAttempt(probeAt.Add(2 * time.Second)); !allow || !probe {
		t.Error("expected new probe after restarted cooldown")
	}
}

func TestBreakerAbandonProbe(t *testing.T) {
	b := NewCircuitBreaker(1, time.Second)
	now := time.Now()
	b.RecordFailure(now)

	after := now.Add(2 * time.Second)
	b.MayAttempt(after)
	b.abandonProbe()

	// The next caller can claim the released probe.
	allow, probe := b.MayAttempt(after)
	if !allow || !probe {
		t.Errorf("expected probe re-admission after abandon, got allow=%v probe=%v", allow, probe)
	}
}

func TestBreakerReset(t *testing.T) {
	b := NewCircuitBreaker(1, 300*time.Second)
	b.RecordFailure(time.Now())

	b.Reset()
	snap := b.Snapshot()
	if snap.State != StateClosed || snap.FailureCount != 0 {
		t.Errorf("expected clean CLOSED state after reset, got %+v", snap)
	}
	if allow, _ := b.MayAttempt(time.Now()); !allow {
		t.Error("expected attempts allowed after reset")
	}
}

func TestBreakerReconfigurePreservesState(t *testing.T) {
	b := NewCircuitBreaker(5, 300*time.Second)
	now := time.Now()
	b.RecordFailure(now)
	b.RecordFailure(now)

	b.Reconfigure(3, 60*time.Second)
	snap := b.Snapshot()
	if snap.State != StateClosed {
		t.Errorf("expected state preserved across reconfigure, got %s", snap.State)
	}
	if snap.FailureCount != 2 {
		t.Errorf("expected failure count preserved, got %d", snap.FailureCount)
	}

	// The lowered threshold applies to the next failure.
	b.RecordFailure(now)
	if snap := b.Snapshot(); snap.State != StateOpen {
		t.Errorf("expected OPEN under new threshold, got %s", snap.State)
	}
}

func TestBreakerStateString(t *testing.T) {
	cases := map[BreakerState]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half_open",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
