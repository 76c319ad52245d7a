package datasource

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"stockaggr/internal/logging"
	"stockaggr/internal/monitor"
	"stockaggr/internal/types"
)

// BridgeAdapter is the unmanaged last-resort adapter: a heavier library
// bridge tried only after every breaker-managed candidate is exhausted,
// outside breaker bookkeeping.
type BridgeAdapter interface {
	Adapter
	KlineFetcher
	QuoteFetcher
}

// Options tunes manager construction.
type Options struct {
	RefreshInterval time.Duration
	CallTimeout     time.Duration
	Logger          *logging.Logger
	Metrics         *monitor.Metrics
}

// Manager is the facade over the source registry and failover executor.
// One instance is constructed at startup and passed to its callers
// explicitly; it is safe for concurrent use.
type Manager struct {
	store    Store
	registry *Registry
	bridge   BridgeAdapter
	adapters map[string]Adapter

	log     *logging.Logger
	metrics *monitor.Metrics

	refreshInterval time.Duration
	callTimeout     time.Duration

	refreshMu   sync.Mutex
	lastRefresh atomic.Int64 // unix nanos of the last store read
}

// NewManager creates the data source manager. bridge may be nil when no
// last-resort adapter is configured.
func NewManager(store Store, adapters map[string]Adapter, bridge BridgeAdapter, opts Options) *Manager {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 3 * time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetGlobalLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitor.NewMetrics()
	}

	return &Manager{
		store:           store,
		registry:        NewRegistry(adapters, opts.Logger),
		bridge:          bridge,
		adapters:        adapters,
		log:             opts.Logger,
		metrics:         opts.Metrics,
		refreshInterval: opts.RefreshInterval,
		callTimeout:     opts.CallTimeout,
	}
}

// Initialize loads the persisted configuration into the registry. It is
// cheap and idempotent: the store is read at most once per refresh
// interval and the registry is only rebuilt when the rows actually
// changed, so callers may invoke it on every request.
func (m *Manager) Initialize(ctx context.Context) error {
	return m.refresh(ctx)
}

// ForceRefresh bypasses the refresh-interval gate. The admin API calls
// this after committing configuration writes so edits apply
// immediately.
func (m *Manager) ForceRefresh(ctx context.Context) error {
	m.lastRefresh.Store(0)
	return m.refresh(ctx)
}

// refresh re-reads the configuration store when the refresh interval
// has passed and republishes the registry when rows changed. An empty
// store is seeded with the conventional default sources.
func (m *Manager) refresh(ctx context.Context) error {
	if m.fresh() {
		return nil
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	// Another request may have refreshed while we waited for the lock.
	if m.fresh() {
		return nil
	}

	configs, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to read source configuration: %w", err)
	}

	if len(configs) == 0 {
		configs = DefaultSourceConfigs()
		for i := range configs {
			if err := m.store.Upsert(ctx, &configs[i]); err != nil {
				m.log.WithError(err).Warnf("failed to persist seeded source %s", configs[i].Name)
			}
		}
		m.log.Info("configuration store empty, seeded default sources")
	}

	if m.registry.Reload(configs) {
		m.metrics.RecordRegistryReload()
		for _, st := range m.registry.Statuses() {
			m.metrics.SetBreakerState(st.Name, int(st.Breaker.State))
		}
		m.log.Infof("source registry reloaded with %d sources", len(configs))
	}

	m.lastRefresh.Store(time.Now().UnixNano())
	return nil
}

// fresh reports whether the last store read is within the refresh interval
func (m *Manager) fresh() bool {
	last := m.lastRefresh.Load()
	return last > 0 && time.Since(time.Unix(0, last)) < m.refreshInterval
}

// publishBreakerState exports a breaker state change to metrics
func (m *Manager) publishBreakerState(name string, b *CircuitBreaker) {
	m.metrics.SetBreakerState(name, int(b.Snapshot().State))
}

// Statuses returns the administrative view of every configured source.
func (m *Manager) Statuses(ctx context.Context) ([]SourceStatus, error) {
	if err := m.refresh(ctx); err != nil {
		return nil, err
	}
	return m.registry.Statuses(), nil
}

// Status returns the administrative view of one source.
func (m *Manager) Status(ctx context.Context, name string) (SourceStatus, error) {
	if err := m.refresh(ctx); err != nil {
		return SourceStatus{}, err
	}
	st, ok := m.registry.Status(name)
	if !ok {
		return SourceStatus{}, fmt.Errorf("source not found: %s", name)
	}
	return st, nil
}

// ResetBreaker forces a source's breaker to CLOSED with a zero counter.
// Linearizable with respect to in-flight calls against the same source.
func (m *Manager) ResetBreaker(ctx context.Context, name string) error {
	if err := m.refresh(ctx); err != nil {
		return err
	}
	b := m.registry.Breaker(name)
	if b == nil {
		return fmt.Errorf("source not found: %s", name)
	}
	b.Reset()
	m.publishBreakerState(name, b)
	m.log.Infof("breaker for source %s reset by administrator", name)
	return nil
}

// CloseAll disposes every adapter's underlying transport resources.
// Called once at process shutdown.
func (m *Manager) CloseAll() error {
	var firstErr error
	for name, a := range m.adapters {
		if err := a.Close(); err != nil {
			m.log.WithError(err).Warnf("failed to close adapter %s", name)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if m.bridge != nil {
		if err := m.bridge.Close(); err != nil {
			m.log.WithError(err).Warn("failed to close bridge adapter")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// --- Facade methods, one per capability ---

// GetKline returns candlestick bars for a symbol. On exhaustion of the
// breaker-managed sources it falls through to the unmanaged bridge.
func (m *Manager) GetKline(ctx context.Context, symbol, period string, limit int) ([]types.Kline, error) {
	result, err := execute(ctx, m, CapKline, ExecOptions{},
		func(ks []types.Kline) bool { return len(ks) > 0 },
		func(ctx context.Context, a Adapter) ([]types.Kline, error) {
			f, ok := a.(KlineFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchKline(ctx, symbol, period, limit)
		})
	if err == nil {
		return result, nil
	}
	if m.bridge != nil && IsExhaustion(err) {
		m.log.WithField("symbol", symbol).Info("kline sources exhausted, trying bridge adapter")
		if ks, berr := m.bridge.FetchKline(ctx, symbol, period, limit); berr == nil && len(ks) > 0 {
			return ks, nil
		}
	}
	return nil, err
}

// GetQuotes returns realtime quotes for the given symbols, with bridge
// fallback on exhaustion.
func (m *Manager) GetQuotes(ctx context.Context, symbols []string) ([]types.Quote, error) {
	result, err := execute(ctx, m, CapQuote, ExecOptions{},
		func(qs []types.Quote) bool { return len(qs) > 0 },
		func(ctx context.Context, a Adapter) ([]types.Quote, error) {
			f, ok := a.(QuoteFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchQuotes(ctx, symbols)
		})
	if err == nil {
		return result, nil
	}
	if m.bridge != nil && IsExhaustion(err) {
		if qs, berr := m.bridge.FetchQuotes(ctx, symbols); berr == nil && len(qs) > 0 {
			return qs, nil
		}
	}
	return nil, err
}

// GetIndices returns the major market index snapshots.
func (m *Manager) GetIndices(ctx context.Context) ([]types.IndexQuote, error) {
	return execute(ctx, m, CapIndex, ExecOptions{},
		func(is []types.IndexQuote) bool { return len(is) > 0 },
		func(ctx context.Context, a Adapter) ([]types.IndexQuote, error) {
			f, ok := a.(IndexFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchIndices(ctx)
		})
}

// GetSpotStatistics returns whole-market spot statistics.
func (m *Manager) GetSpotStatistics(ctx context.Context) (*types.MarketSnapshot, error) {
	return execute(ctx, m, CapSpot, ExecOptions{},
		func(s *types.MarketSnapshot) bool { return s != nil },
		func(ctx context.Context, a Adapter) (*types.MarketSnapshot, error) {
			f, ok := a.(SpotFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchSpotStatistics(ctx)
		})
}

// GetIndustryRank returns the industry board ranking.
func (m *Manager) GetIndustryRank(ctx context.Context, limit int) ([]types.IndustryRank, error) {
	return execute(ctx, m, CapIndustryRank, ExecOptions{},
		func(rs []types.IndustryRank) bool { return len(rs) > 0 },
		func(ctx context.Context, a Adapter) ([]types.IndustryRank, error) {
			f, ok := a.(IndustryRankFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchIndustryRank(ctx, limit)
		})
}

// GetConceptRank returns the concept board ranking.
func (m *Manager) GetConceptRank(ctx context.Context, limit int) ([]types.ConceptRank, error) {
	return execute(ctx, m, CapConceptRank, ExecOptions{},
		func(rs []types.ConceptRank) bool { return len(rs) > 0 },
		func(ctx context.Context, a Adapter) ([]types.ConceptRank, error) {
			f, ok := a.(ConceptRankFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchConceptRank(ctx, limit)
		})
}

// GetSectorStocks returns the constituent stocks of a board.
func (m *Manager) GetSectorStocks(ctx context.Context, boardCode string) ([]types.SectorStock, error) {
	return execute(ctx, m, CapSectorStocks, ExecOptions{},
		func(ss []types.SectorStock) bool { return len(ss) > 0 },
		func(ctx context.Context, a Adapter) ([]types.SectorStock, error) {
			f, ok := a.(SectorStocksFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchSectorStocks(ctx, boardCode)
		})
}

// GetMoneyFlow returns intraday money flow for one symbol. Exhaustion
// yields a nil result without error; callers treat it as "no data".
func (m *Manager) GetMoneyFlow(ctx context.Context, symbol string) (*types.MoneyFlow, error) {
	result, err := execute(ctx, m, CapMoneyFlow, ExecOptions{},
		func(f *types.MoneyFlow) bool { return f != nil },
		func(ctx context.Context, a Adapter) (*types.MoneyFlow, error) {
			f, ok := a.(MoneyFlowFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchMoneyFlow(ctx, symbol)
		})
	if err != nil && IsExhaustion(err) {
		return nil, nil
	}
	return result, err
}

// GetMoneyFlowRank returns the per-stock money flow ranking. Exhaustion
// yields an empty list.
func (m *Manager) GetMoneyFlowRank(ctx context.Context, limit int) ([]types.MoneyFlowRank, error) {
	result, err := execute(ctx, m, CapMoneyFlowRank, ExecOptions{},
		func(rs []types.MoneyFlowRank) bool { return len(rs) > 0 },
		func(ctx context.Context, a Adapter) ([]types.MoneyFlowRank, error) {
			f, ok := a.(MoneyFlowRankFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchMoneyFlowRank(ctx, limit)
		})
	if err != nil && IsExhaustion(err) {
		return []types.MoneyFlowRank{}, nil
	}
	return result, err
}

// GetNorthFlow returns northbound capital flow. Exhaustion yields nil.
func (m *Manager) GetNorthFlow(ctx context.Context) (*types.NorthFlow, error) {
	result, err := execute(ctx, m, CapNorthFlow, ExecOptions{},
		func(f *types.NorthFlow) bool { return f != nil },
		func(ctx context.Context, a Adapter) (*types.NorthFlow, error) {
			f, ok := a.(NorthFlowFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchNorthFlow(ctx)
		})
	if err != nil && IsExhaustion(err) {
		return nil, nil
	}
	return result, err
}

// GetLongTiger returns the dragon-tiger list for a date. Exhaustion
// yields an empty list.
func (m *Manager) GetLongTiger(ctx context.Context, date time.Time) ([]types.LongTigerEntry, error) {
	result, err := execute(ctx, m, CapLongTiger, ExecOptions{},
		func(es []types.LongTigerEntry) bool { return len(es) > 0 },
		func(ctx context.Context, a Adapter) ([]types.LongTigerEntry, error) {
			f, ok := a.(LongTigerFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchLongTiger(ctx, date)
		})
	if err != nil && IsExhaustion(err) {
		return []types.LongTigerEntry{}, nil
	}
	return result, err
}

// GetLimitUpPool returns the limit-up pool for a date. Exhaustion
// yields an empty list.
func (m *Manager) GetLimitUpPool(ctx context.Context, date time.Time) ([]types.LimitPoolStock, error) {
	result, err := execute(ctx, m, CapLimitUpPool, ExecOptions{},
		func(ss []types.LimitPoolStock) bool { return len(ss) > 0 },
		func(ctx context.Context, a Adapter) ([]types.LimitPoolStock, error) {
			f, ok := a.(LimitPoolFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchLimitUpPool(ctx, date)
		})
	if err != nil && IsExhaustion(err) {
		return []types.LimitPoolStock{}, nil
	}
	return result, err
}

// GetLimitDownPool returns the limit-down pool for a date. Exhaustion
// yields an empty list.
func (m *Manager) GetLimitDownPool(ctx context.Context, date time.Time) ([]types.LimitPoolStock, error) {
	result, err := execute(ctx, m, CapLimitDownPool, ExecOptions{},
		func(ss []types.LimitPoolStock) bool { return len(ss) > 0 },
		func(ctx context.Context, a Adapter) ([]types.LimitPoolStock, error) {
			f, ok := a.(LimitPoolFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchLimitDownPool(ctx, date)
		})
	if err != nil && IsExhaustion(err) {
		return []types.LimitPoolStock{}, nil
	}
	return result, err
}

// GetVolumeRatioRank returns the volume ratio ranking. Exhaustion
// yields an empty list.
func (m *Manager) GetVolumeRatioRank(ctx context.Context, limit int) ([]types.VolumeRatioEntry, error) {
	result, err := execute(ctx, m, CapVolumeRatioRank, ExecOptions{},
		func(es []types.VolumeRatioEntry) bool { return len(es) > 0 },
		func(ctx context.Context, a Adapter) ([]types.VolumeRatioEntry, error) {
			f, ok := a.(VolumeRatioFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchVolumeRatioRank(ctx, limit)
		})
	if err != nil && IsExhaustion(err) {
		return []types.VolumeRatioEntry{}, nil
	}
	return result, err
}

// GetBoardDict returns the industry/concept board dictionary.
func (m *Manager) GetBoardDict(ctx context.Context) ([]types.BoardInfo, error) {
	return execute(ctx, m, CapBoardDict, ExecOptions{},
		func(bs []types.BoardInfo) bool { return len(bs) > 0 },
		func(ctx context.Context, a Adapter) ([]types.BoardInfo, error) {
			f, ok := a.(BoardDictFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchBoardDict(ctx)
		})
}

// GetEconomicCalendar returns macro economic calendar entries.
func (m *Manager) GetEconomicCalendar(ctx context.Context, from, to time.Time) ([]types.EconomicEvent, error) {
	return execute(ctx, m, CapEconomicData, ExecOptions{},
		nil, // an empty calendar window is a legitimate result
		func(ctx context.Context, a Adapter) ([]types.EconomicEvent, error) {
			f, ok := a.(EconomicDataFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchEconomicCalendar(ctx, from, to)
		})
}

// GetInteractiveQA returns investor Q&A entries for a symbol.
// Exhaustion yields an empty list.
func (m *Manager) GetInteractiveQA(ctx context.Context, symbol string, limit int) ([]types.InteractiveQA, error) {
	result, err := execute(ctx, m, CapInteractiveQA, ExecOptions{},
		func(qs []types.InteractiveQA) bool { return len(qs) > 0 },
		func(ctx context.Context, a Adapter) ([]types.InteractiveQA, error) {
			f, ok := a.(InteractiveQAFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchInteractiveQA(ctx, symbol, limit)
		})
	if err != nil && IsExhaustion(err) {
		return []types.InteractiveQA{}, nil
	}
	return result, err
}

// GetResearchReports returns broker research reports for a symbol.
// Exhaustion yields an empty list.
func (m *Manager) GetResearchReports(ctx context.Context, symbol string, limit int) ([]types.ResearchReport, error) {
	result, err := execute(ctx, m, CapResearchReport, ExecOptions{},
		func(rs []types.ResearchReport) bool { return len(rs) > 0 },
		func(ctx context.Context, a Adapter) ([]types.ResearchReport, error) {
			f, ok := a.(ResearchReportFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchResearchReports(ctx, symbol, limit)
		})
	if err != nil && IsExhaustion(err) {
		return []types.ResearchReport{}, nil
	}
	return result, err
}

// GetNotices returns company announcements for a symbol. Exhaustion
// yields an empty list.
func (m *Manager) GetNotices(ctx context.Context, symbol string, limit int) ([]types.Notice, error) {
	result, err := execute(ctx, m, CapNotice, ExecOptions{},
		func(ns []types.Notice) bool { return len(ns) > 0 },
		func(ctx context.Context, a Adapter) ([]types.Notice, error) {
			f, ok := a.(NoticeFetcher)
			if !ok {
				return nil, ErrCapabilityNotSupported
			}
			return f.FetchNotices(ctx, symbol, limit)
		})
	if err != nil && IsExhaustion(err) {
		return []types.Notice{}, nil
	}
	return result, err
}
