package datasource

import (
	"context"
	"errors"
	"time"

	"stockaggr/internal/types"
)

// Adapter is the minimal contract every data source fulfils. Each
// adapter additionally implements the fetcher interfaces for the
// capabilities it serves; the executor discovers support through type
// assertions, so the mapping is checked at compile time in the facade.
type Adapter interface {
	Name() string
	Close() error
}

// CredentialCarrier is implemented by token-gated adapters. The
// registry pushes the persisted credential into the adapter on every
// reload; an adapter requiring a credential is excluded from candidate
// selection while the credential is empty.
type CredentialCarrier interface {
	SetCredential(credential string)
	RequiresCredential() bool
}

// ErrCapabilityNotSupported is returned by a capability call when the
// selected adapter does not implement the required fetcher interface.
// It is a static precondition, never counted as a runtime failure.
var ErrCapabilityNotSupported = errors.New("capability not supported by source")

// Fetcher interfaces, one per capability.

type KlineFetcher interface {
	FetchKline(ctx context.Context, symbol, period string, limit int) ([]types.Kline, error)
}

type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, symbols []string) ([]types.Quote, error)
}

type IndexFetcher interface {
	FetchIndices(ctx context.Context) ([]types.IndexQuote, error)
}

type SpotFetcher interface {
	FetchSpotStatistics(ctx context.Context) (*types.MarketSnapshot, error)
}

type IndustryRankFetcher interface {
	FetchIndustryRank(ctx context.Context, limit int) ([]types.IndustryRank, error)
}

type ConceptRankFetcher interface {
	FetchConceptRank(ctx context.Context, limit int) ([]types.ConceptRank, error)
}

type SectorStocksFetcher interface {
	FetchSectorStocks(ctx context.Context, boardCode string) ([]types.SectorStock, error)
}

type MoneyFlowFetcher interface {
	FetchMoneyFlow(ctx context.Context, symbol string) (*types.MoneyFlow, error)
}

type MoneyFlowRankFetcher interface {
	FetchMoneyFlowRank(ctx context.Context, limit int) ([]types.MoneyFlowRank, error)
}

type NorthFlowFetcher interface {
	FetchNorthFlow(ctx context.Context) (*types.NorthFlow, error)
}

type LongTigerFetcher interface {
	FetchLongTiger(ctx context.Context, date time.Time) ([]types.LongTigerEntry, error)
}

type LimitPoolFetcher interface {
	FetchLimitUpPool(ctx context.Context, date time.Time) ([]types.LimitPoolStock, error)
	FetchLimitDownPool(ctx context.Context, date time.Time) ([]types.LimitPoolStock, error)
}

type VolumeRatioFetcher interface {
	FetchVolumeRatioRank(ctx context.Context, limit int) ([]types.VolumeRatioEntry, error)
}

type BoardDictFetcher interface {
	FetchBoardDict(ctx context.Context) ([]types.BoardInfo, error)
}

type EconomicDataFetcher interface {
	FetchEconomicCalendar(ctx context.Context, from, to time.Time) ([]types.EconomicEvent, error)
}

type InteractiveQAFetcher interface {
	FetchInteractiveQA(ctx context.Context, symbol string, limit int) ([]types.InteractiveQA, error)
}

type ResearchReportFetcher interface {
	FetchResearchReports(ctx context.Context, symbol string, limit int) ([]types.ResearchReport, error)
}

type NoticeFetcher interface {
	FetchNotices(ctx context.Context, symbol string, limit int) ([]types.Notice, error)
}
