package datasource

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"stockaggr/internal/logging"
)

// sourceEntry pairs a descriptor with its breaker and adapter handle.
// The breaker survives reloads as long as the source stays configured.
type sourceEntry struct {
	config  SourceConfig
	breaker *CircuitBreaker
	adapter Adapter
}

// Registry is the in-memory table of configured sources. Reload is the
// sole writer; candidate resolution and status reads take the read
// lock. Breaker mutation happens behind each breaker's own mutex, so
// recording outcomes never blocks unrelated sources.
type Registry struct {
	mu          sync.RWMutex
	entries     map[string]*sourceEntry
	fingerprint string

	adapters map[string]Adapter
	log      *logging.Logger
}

// NewRegistry creates a registry over the given adapter handles. Only
// sources with a registered adapter can be activated by configuration.
func NewRegistry(adapters map[string]Adapter, log *logging.Logger) *Registry {
	if log == nil {
		log = logging.GetGlobalLogger()
	}
	return &Registry{
		entries:  make(map[string]*sourceEntry),
		adapters: adapters,
		log:      log,
	}
}

// Reload rebuilds the table from configuration rows. It is idempotent:
// a fingerprint of the rows short-circuits unchanged configuration, and
// surviving sources keep their breaker state (thresholds are updated in
// place). New sources get a fresh CLOSED breaker; removed sources are
// dropped. Returns true when the table was actually rebuilt.
func (r *Registry) Reload(configs []SourceConfig) bool {
	fp := fingerprint(configs)

	r.mu.RLock()
	unchanged := fp == r.fingerprint
	r.mu.RUnlock()
	if unchanged {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check under the write lock; two concurrent reloads with the
	// same rows must not rebuild twice.
	if fp == r.fingerprint {
		return false
	}

	entries := make(map[string]*sourceEntry, len(configs))
	for _, cfg := range configs {
		adapter, ok := r.adapters[cfg.Name]
		if !ok {
			r.log.Warnf("source %q configured but no adapter registered, skipping", cfg.Name)
			continue
		}

		if prev, exists := r.entries[cfg.Name]; exists {
			prev.breaker.Reconfigure(cfg.FailureThreshold, cfg.Cooldown())
			entries[cfg.Name] = &sourceEntry{config: cfg, breaker: prev.breaker, adapter: adapter}
		} else {
			entries[cfg.Name] = &sourceEntry{
				config:  cfg,
				breaker: NewCircuitBreaker(cfg.FailureThreshold, cfg.Cooldown()),
				adapter: adapter,
			}
		}

		if carrier, ok := adapter.(CredentialCarrier); ok {
			carrier.SetCredential(cfg.Credential)
		}
	}

	r.entries = entries
	r.fingerprint = fp
	return true
}

// candidate is one resolved failover candidate.
type candidate struct {
	name    string
	config  SourceConfig
	breaker *CircuitBreaker
	adapter Adapter
}

// Candidates resolves the ordered candidate list for a capability. An
// explicit override replaces the capability's default list; in both
// cases only configured sources are returned, disabled sources are
// filtered out, and ordering is ascending priority with the source name
// as deterministic tie-break.
func (r *Registry) Candidates(capability Capability, override []string) []candidate {
	names := override
	if len(names) == 0 {
		names = capabilityTable[capability].defaults
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]candidate, 0, len(names))
	for _, name := range names {
		entry, ok := r.entries[name]
		if !ok || !entry.config.Enabled {
			continue
		}
		result = append(result, candidate{
			name:    name,
			config:  entry.config,
			breaker: entry.breaker,
			adapter: entry.adapter,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].config.Priority != result[j].config.Priority {
			return result[i].config.Priority < result[j].config.Priority
		}
		return result[i].name < result[j].name
	})

	return result
}

// Breaker returns the breaker for a source, or nil when unknown.
func (r *Registry) Breaker(name string) *CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.entries[name]; ok {
		return entry.breaker
	}
	return nil
}

// SourceStatus is the administrative view of one source.
type SourceStatus struct {
	Name             string          `json:"name"`
	Enabled          bool            `json:"enabled"`
	Priority         int             `json:"priority"`
	FailureThreshold int             `json:"failure_threshold"`
	CooldownSeconds  int             `json:"cooldown_seconds"`
	HasCredential    bool            `json:"has_credential"`
	Breaker          BreakerSnapshot `json:"breaker"`
}

// Statuses returns the administrative view of every configured source,
// ordered by priority then name.
func (r *Registry) Statuses() []SourceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]SourceStatus, 0, len(r.entries))
	for _, entry := range r.entries {
		statuses = append(statuses, SourceStatus{
			Name:             entry.config.Name,
			Enabled:          entry.config.Enabled,
			Priority:         entry.config.Priority,
			FailureThreshold: entry.config.FailureThreshold,
			CooldownSeconds:  entry.config.CooldownSeconds,
			HasCredential:    entry.config.Credential != "",
			Breaker:          entry.breaker.Snapshot(),
		})
	}

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Priority != statuses[j].Priority {
			return statuses[i].Priority < statuses[j].Priority
		}
		return statuses[i].Name < statuses[j].Name
	})

	return statuses
}

// Status returns the administrative view of one source.
func (r *Registry) Status(name string) (SourceStatus, bool) {
	for _, st := range r.Statuses() {
		if st.Name == name {
			return st, true
		}
	}
	return SourceStatus{}, false
}

// fingerprint derives a stable hash over the configuration rows so
// unchanged reloads are a cheap string comparison.
func fingerprint(configs []SourceConfig) string {
	rows := make([]string, 0, len(configs))
	for _, cfg := range configs {
		rows = append(rows, fmt.Sprintf("%s|%t|%d|%d|%d|%s",
			cfg.Name, cfg.Enabled, cfg.Priority, cfg.FailureThreshold, cfg.CooldownSeconds, cfg.Credential))
	}
	sort.Strings(rows)

	sum := sha256.Sum256([]byte(strings.Join(rows, ";")))
	return hex.EncodeToString(sum[:])
}
