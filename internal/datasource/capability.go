package datasource

// Capability identifies one named domain operation a source may serve.
// The set is closed: adding a capability means adding a constant here,
// a fetcher interface in adapter.go and an entry in capabilityTable.
type Capability string

const (
	CapKline           Capability = "kline"
	CapQuote           Capability = "quote"
	CapIndex           Capability = "market_index"
	CapSpot            Capability = "spot_statistics"
	CapIndustryRank    Capability = "industry_rank"
	CapConceptRank     Capability = "concept_rank"
	CapSectorStocks    Capability = "sector_stocks"
	CapMoneyFlow       Capability = "money_flow"
	CapMoneyFlowRank   Capability = "money_flow_rank"
	CapNorthFlow       Capability = "north_flow"
	CapLongTiger       Capability = "long_tiger"
	CapLimitUpPool     Capability = "limit_up_pool"
	CapLimitDownPool   Capability = "limit_down_pool"
	CapVolumeRatioRank Capability = "volume_ratio_rank"
	CapBoardDict       Capability = "board_dict"
	CapEconomicData    Capability = "economic_calendar"
	CapInteractiveQA   Capability = "interactive_qa"
	CapResearchReport  Capability = "research_report"
	CapNotice          Capability = "notice"
)

// fallbackPolicy decides what a facade method does when every candidate
// is exhausted.
type fallbackPolicy int

const (
	// fallbackError propagates the exhaustion error to the caller.
	fallbackError fallbackPolicy = iota
	// fallbackEmpty substitutes an empty typed result.
	fallbackEmpty
	// fallbackBridge tries the unmanaged bridge adapter once, outside
	// breaker bookkeeping, then propagates if that also fails.
	fallbackBridge
)

// capabilitySpec holds the static per-capability configuration: the
// default candidate ordering and the exhaustion policy.
type capabilitySpec struct {
	defaults []string
	policy   fallbackPolicy
}

// capabilityTable maps every capability to its default candidates in
// preference order. Runtime priority from the configuration store
// decides the actual attempt order; this list only scopes which sources
// serve the capability at all.
var capabilityTable = map[Capability]capabilitySpec{
	CapKline:           {defaults: []string{SourceEastmoney, SourceSina, SourceTencent, SourceTushare}, policy: fallbackBridge},
	CapQuote:           {defaults: []string{SourceSina, SourceTencent, SourceEastmoney}, policy: fallbackBridge},
	CapIndex:           {defaults: []string{SourceSina, SourceEastmoney}, policy: fallbackError},
	CapSpot:            {defaults: []string{SourceEastmoney}, policy: fallbackError},
	CapIndustryRank:    {defaults: []string{SourceEastmoney}, policy: fallbackError},
	CapConceptRank:     {defaults: []string{SourceEastmoney}, policy: fallbackError},
	CapSectorStocks:    {defaults: []string{SourceEastmoney}, policy: fallbackError},
	CapMoneyFlow:       {defaults: []string{SourceEastmoney, SourceTushare}, policy: fallbackEmpty},
	CapMoneyFlowRank:   {defaults: []string{SourceEastmoney, SourceTushare}, policy: fallbackEmpty},
	CapNorthFlow:       {defaults: []string{SourceEastmoney}, policy: fallbackEmpty},
	CapLongTiger:       {defaults: []string{SourceEastmoney, SourceTushare}, policy: fallbackEmpty},
	CapLimitUpPool:     {defaults: []string{SourceEastmoney, SourceTushare}, policy: fallbackEmpty},
	CapLimitDownPool:   {defaults: []string{SourceEastmoney, SourceTushare}, policy: fallbackEmpty},
	CapVolumeRatioRank: {defaults: []string{SourceEastmoney}, policy: fallbackEmpty},
	CapBoardDict:       {defaults: []string{SourceEastmoney}, policy: fallbackError},
	CapEconomicData:    {defaults: []string{SourceEastmoney}, policy: fallbackError},
	CapInteractiveQA:   {defaults: []string{SourceEastmoney}, policy: fallbackEmpty},
	CapResearchReport:  {defaults: []string{SourceEastmoney}, policy: fallbackEmpty},
	CapNotice:          {defaults: []string{SourceEastmoney, SourceTencent}, policy: fallbackEmpty},
}

// Well-known source names. These match the rows seeded into the
// configuration store on first start.
const (
	SourceEastmoney = "eastmoney"
	SourceSina      = "sina"
	SourceTencent   = "tencent"
	SourceTushare   = "tushare"
	SourceBridge    = "bridge"
)
