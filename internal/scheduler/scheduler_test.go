package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"stockaggr/internal/config"
	"stockaggr/internal/datasource"
	"stockaggr/internal/logging"
)

// memStore is an in-memory datasource.Store for wiring a manager.
type memStore struct {
	mu      sync.Mutex
	configs map[string]datasource.SourceConfig
}

func newMemStore() *memStore {
	return &memStore{configs: make(map[string]datasource.SourceConfig)}
}

func (s *memStore) List(ctx context.Context) ([]datasource.SourceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]datasource.SourceConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	return out, nil
}

func (s *memStore) Get(ctx context.Context, name string) (*datasource.SourceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[name]
	if !ok {
		return nil, fmt.Errorf("source not found: %s", name)
	}
	return &cfg, nil
}

func (s *memStore) Upsert(ctx context.Context, cfg *datasource.SourceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.Name] = *cfg
	return nil
}

func (s *memStore) UpdatePriorities(ctx context.Context, priorities map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, p := range priorities {
		cfg := s.configs[name]
		cfg.Priority = p
		s.configs[name] = cfg
	}
	return nil
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	manager := datasource.NewManager(newMemStore(), map[string]datasource.Adapter{}, nil, datasource.Options{
		RefreshInterval: time.Hour,
		Logger:          logging.NewNopLogger(),
	})
	return New(manager, logging.NewNopLogger())
}

func TestRegisterSchedulesAllJobs(t *testing.T) {
	s := newTestScheduler(t)

	err := s.Register(&config.SchedulerConfig{
		Enabled:   true,
		IndexSpec: "*/5 * * * *",
		LimitSpec: "*/10 * * * *",
		NorthSpec: "*/15 * * * *",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	statuses := s.Statuses()
	if len(statuses) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(statuses))
	}

	want := map[string]string{
		"indices":     "*/5 * * * *",
		"limit_pools": "*/10 * * * *",
		"north_flow":  "*/15 * * * *",
	}
	for _, st := range statuses {
		if spec, ok := want[st.Name]; !ok || st.Schedule != spec {
			t.Errorf("unexpected job %q with schedule %q", st.Name, st.Schedule)
		}
		if !st.LastRun.IsZero() {
			t.Errorf("job %q should not have run yet", st.Name)
		}
	}
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := newTestScheduler(t)

	err := s.Register(&config.SchedulerConfig{
		IndexSpec: "not a cron spec",
		LimitSpec: "*/10 * * * *",
		NorthSpec: "*/15 * * * *",
	})
	if err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Register(&config.SchedulerConfig{
		IndexSpec: "0 0 * * *",
		LimitSpec: "0 0 * * *",
		NorthSpec: "0 0 * * *",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s.Start()
	s.Stop()
}
