package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/banbox/banexg"
	"github.com/banbox/banexg/bex"

	"stockaggr/internal/types"
)

// BridgeConfig configures the banexg-backed last-resort adapter.
type BridgeConfig struct {
	Exchange  string `yaml:"exchange"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	TestNet   bool   `yaml:"testnet"`
}

// Bridge adapts banexg.BanExchange to the manager's bridge contract. It
// sits outside the registry: no configuration row, no circuit breaker,
// tried once per request after every managed source is exhausted.
type Bridge struct {
	exchange banexg.BanExchange
	name     string
}

// NewBridge creates the bridge adapter
func NewBridge(cfg *BridgeConfig) (*Bridge, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "binance"
	}

	options := map[string]interface{}{
		banexg.OptApiKey:     cfg.APIKey,
		banexg.OptApiSecret:  cfg.APISecret,
		banexg.OptMarketType: banexg.MarketSpot,
	}
	if cfg.TestNet {
		options[banexg.OptEnv] = "test"
		options[banexg.OptDebugApi] = false
	}

	exg, err := bex.New(cfg.Exchange, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge exchange: %w", err)
	}

	return &Bridge{exchange: exg, name: "bridge"}, nil
}

// Name implements the adapter contract
func (b *Bridge) Name() string { return b.name }

// Close releases the underlying exchange connection.
func (b *Bridge) Close() error {
	if b.exchange != nil {
		return b.exchange.Close()
	}
	return nil
}

// bridgeTimeframes maps bar periods to the exchange timeframe notation
var bridgeTimeframes = map[string]string{
	"1m": "1m", "5m": "5m", "15m": "15m", "30m": "30m", "60m": "1h",
	"daily": "1d", "weekly": "1w", "monthly": "1M",
}

// FetchKline returns candlestick bars through the bridge library.
func (b *Bridge) FetchKline(ctx context.Context, symbol, period string, limit int) ([]types.Kline, error) {
	timeframe, ok := bridgeTimeframes[period]
	if !ok {
		return nil, fmt.Errorf("unsupported kline period: %s", period)
	}
	if limit <= 0 {
		limit = 120
	}

	bars, err := b.exchange.FetchOHLCV(symbol, timeframe, 0, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ohlcv: %w", err)
	}

	klines := make([]types.Kline, 0, len(bars))
	for _, bar := range bars {
		klines = append(klines, types.Kline{
			Symbol:   symbol,
			Period:   period,
			OpenTime: time.UnixMilli(bar.Time),
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			Volume:   bar.Volume,
		})
	}
	return klines, nil
}

// FetchQuotes returns ticker snapshots through the bridge library.
func (b *Bridge) FetchQuotes(ctx context.Context, symbols []string) ([]types.Quote, error) {
	quotes := make([]types.Quote, 0, len(symbols))
	for _, symbol := range symbols {
		ticker, err := b.exchange.FetchTicker(symbol, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch ticker for %s: %w", symbol, err)
		}
		quotes = append(quotes, types.Quote{
			Symbol:        symbol,
			Price:         ticker.Last,
			Open:          ticker.Open,
			High:          ticker.High,
			Low:           ticker.Low,
			PrevClose:     ticker.PreviousClose,
			Volume:        ticker.BaseVolume,
			Turnover:      ticker.QuoteVolume,
			ChangePercent: ticker.Percentage,
			Time:          time.UnixMilli(ticker.TimeStamp),
		})
	}
	return quotes, nil
}
