package datasource

import (
	"context"
	"errors"
	"testing"

	"stockaggr/internal/types"
)

func TestSeedsDefaultsWhenStoreEmpty(t *testing.T) {
	store := newMemStore()
	adapters := map[string]Adapter{
		SourceEastmoney: &stubAdapter{name: SourceEastmoney},
		SourceSina:      &stubAdapter{name: SourceSina},
		SourceTencent:   &stubAdapter{name: SourceTencent},
		SourceTushare:   &stubAdapter{name: SourceTushare},
	}
	m := newTestManager(t, store, adapters, nil)

	statuses, err := m.Statuses(context.Background())
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if len(statuses) != 4 {
		t.Fatalf("expected 4 seeded sources, got %d", len(statuses))
	}

	want := []string{SourceEastmoney, SourceSina, SourceTencent, SourceTushare}
	for i, name := range want {
		if statuses[i].Name != name {
			t.Errorf("status %d: got %s, want %s", i, statuses[i].Name, name)
		}
		if statuses[i].Breaker.State != StateClosed {
			t.Errorf("seeded source %s: expected CLOSED breaker, got %s", name, statuses[i].Breaker.State)
		}
	}

	// 种子配置应回写存储
	rows, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("expected seeds persisted, got %d rows", len(rows))
	}
}

func TestForceRefreshAppliesImmediately(t *testing.T) {
	store := newMemStore(enabledSource(SourceEastmoney, 0))
	adapters := map[string]Adapter{SourceEastmoney: &stubAdapter{name: SourceEastmoney}}
	m := newTestManager(t, store, adapters, nil)

	cfg := enabledSource(SourceEastmoney, 7)
	if err := store.Upsert(context.Background(), &cfg); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// The refresh interval has not elapsed, so the edit is invisible.
	st, err := m.Status(context.Background(), SourceEastmoney)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Priority != 0 {
		t.Errorf("expected stale priority 0 within refresh interval, got %d", st.Priority)
	}

	if err := m.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	st, err = m.Status(context.Background(), SourceEastmoney)
	if err != nil {
		t.Fatalf("Status after refresh: %v", err)
	}
	if st.Priority != 7 {
		t.Errorf("expected priority 7 after forced refresh, got %d", st.Priority)
	}
}

func TestResetBreakerClosesOpenBreaker(t *testing.T) {
	log := &callLog{}
	adapters := map[string]Adapter{
		SourceEastmoney: &fakeSource{stubAdapter: stubAdapter{name: SourceEastmoney}, callLog: log,
			klineFn: func() ([]types.Kline, error) { return nil, errors.New("upstream 502") }},
	}
	cfg := enabledSource(SourceEastmoney, 0)
	cfg.FailureThreshold = 1
	store := newMemStore(cfg)
	m := newTestManager(t, store, adapters, nil)
	ctx := context.Background()

	if _, err := m.GetKline(ctx, "600000.SH", "daily", 10); !IsExhaustion(err) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	st, err := m.Status(ctx, SourceEastmoney)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Breaker.State != StateOpen {
		t.Fatalf("expected OPEN breaker, got %s", st.Breaker.State)
	}

	if err := m.ResetBreaker(ctx, SourceEastmoney); err != nil {
		t.Fatalf("ResetBreaker: %v", err)
	}
	st, err = m.Status(ctx, SourceEastmoney)
	if err != nil {
		t.Fatalf("Status after reset: %v", err)
	}
	if st.Breaker.State != StateClosed || st.Breaker.FailureCount != 0 {
		t.Errorf("expected clean CLOSED breaker after reset, got %+v", st.Breaker)
	}
}

func TestResetBreakerUnknownSource(t *testing.T) {
	store := newMemStore(enabledSource(SourceEastmoney, 0))
	adapters := map[string]Adapter{SourceEastmoney: &stubAdapter{name: SourceEastmoney}}
	m := newTestManager(t, store, adapters, nil)

	if err := m.ResetBreaker(context.Background(), "no_such_source"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestStatusHidesCredentialValue(t *testing.T) {
	cfg := enabledSource(SourceTushare, 0)
	cfg.Credential = "tok-123"
	store := newMemStore(cfg)
	adapters := map[string]Adapter{SourceTushare: &stubAdapter{name: SourceTushare}}
	m := newTestManager(t, store, adapters, nil)

	st, err := m.Status(context.Background(), SourceTushare)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.HasCredential {
		t.Error("expected HasCredential true when a credential is stored")
	}
}

func TestCloseAllClosesEveryAdapter(t *testing.T) {
	em := &closeTrackingAdapter{stubAdapter: stubAdapter{name: SourceEastmoney}}
	bridge := &closeTrackingBridge{fakeBridge: fakeBridge{stubAdapter: stubAdapter{name: SourceBridge}}}
	store := newMemStore(enabledSource(SourceEastmoney, 0))
	m := newTestManager(t, store, map[string]Adapter{SourceEastmoney: em}, bridge)

	if err := m.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if !em.closed {
		t.Error("expected managed adapter closed")
	}
	if !bridge.closed {
		t.Error("expected bridge adapter closed")
	}
}

type closeTrackingAdapter struct {
	stubAdapter
	closed bool
}

func (a *closeTrackingAdapter) Close() error {
	a.closed = true
	return nil
}

type closeTrackingBridge struct {
	fakeBridge
	closed bool
}

func (b *closeTrackingBridge) Close() error {
	b.closed = true
	return nil
}
