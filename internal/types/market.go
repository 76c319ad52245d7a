package types

import "time"

// Kline represents a single candlestick bar.
type Kline struct {
	Symbol    string    `json:"symbol"`
	Period    string    `json:"period"`
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Turnover  float64   `json:"turnover,omitempty"`
}

// Quote represents a realtime snapshot quote for one security.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PrevClose     float64   `json:"prev_close"`
	Volume        float64   `json:"volume"`
	Turnover      float64   `json:"turnover"`
	ChangePercent float64   `json:"change_percent"`
	Time          time.Time `json:"time"`
}

// IndexQuote represents a market index snapshot.
type IndexQuote struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Current       float64 `json:"current"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume"`
	Turnover      float64 `json:"turnover"`
}

// IndustryRank represents one row of the industry board ranking.
type IndustryRank struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	ChangePercent float64 `json:"change_percent"`
	Turnover      float64 `json:"turnover"`
	NetInflow     float64 `json:"net_inflow"`
	LeaderSymbol  string  `json:"leader_symbol"`
	LeaderName    string  `json:"leader_name"`
	RiseCount     int     `json:"rise_count"`
	FallCount     int     `json:"fall_count"`
}

// ConceptRank represents one row of the concept board ranking.
type ConceptRank struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	ChangePercent float64 `json:"change_percent"`
	NetInflow     float64 `json:"net_inflow"`
	LeaderSymbol  string  `json:"leader_symbol"`
	LeaderName    string  `json:"leader_name"`
}

// SectorStock represents a constituent stock of an industry or concept board.
type SectorStock struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	Turnover      float64 `json:"turnover"`
	VolumeRatio   float64 `json:"volume_ratio"`
}

// MoneyFlow represents intraday money flow for one security or the whole market.
type MoneyFlow struct {
	Symbol       string    `json:"symbol"`
	MainInflow   float64   `json:"main_inflow"`
	SmallInflow  float64   `json:"small_inflow"`
	MediumInflow float64   `json:"medium_inflow"`
	LargeInflow  float64   `json:"large_inflow"`
	SuperInflow  float64   `json:"super_inflow"`
	Date         time.Time `json:"date"`
}

// MoneyFlowRank represents one row of the per-stock money flow ranking.
type MoneyFlowRank struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	ChangePercent  float64 `json:"change_percent"`
	MainInflow     float64 `json:"main_inflow"`
	MainInflowRate float64 `json:"main_inflow_rate"`
}

// NorthFlow represents northbound capital flow figures.
type NorthFlow struct {
	Date        time.Time `json:"date"`
	SHConnect   float64   `json:"sh_connect"`
	SZConnect   float64   `json:"sz_connect"`
	Total       float64   `json:"total"`
	TotalBuy    float64   `json:"total_buy"`
	TotalSell   float64   `json:"total_sell"`
}

// LongTigerEntry represents one row of the dragon-tiger (top trading) list.
type LongTigerEntry struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Date          time.Time `json:"date"`
	Reason        string    `json:"reason"`
	ChangePercent float64   `json:"change_percent"`
	NetBuy        float64   `json:"net_buy"`
	BuyAmount     float64   `json:"buy_amount"`
	SellAmount    float64   `json:"sell_amount"`
}

// LimitPoolStock represents a stock in the limit-up or limit-down pool.
type LimitPoolStock struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"change_percent"`
	Turnover      float64   `json:"turnover"`
	SealAmount    float64   `json:"seal_amount"`
	FirstSealTime string    `json:"first_seal_time,omitempty"`
	OpenCount     int       `json:"open_count"`
	Date          time.Time `json:"date"`
}

// VolumeRatioEntry represents one row of the volume ratio ranking.
type VolumeRatioEntry struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	VolumeRatio   float64 `json:"volume_ratio"`
	Turnover      float64 `json:"turnover"`
}

// BoardInfo represents one entry of the board dictionary (industry/concept code table).
type BoardInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Type string `json:"type"` // industry | concept | region
}

// EconomicEvent represents one entry of the macro economic calendar.
type EconomicEvent struct {
	Date      time.Time `json:"date"`
	Country   string    `json:"country"`
	Indicator string    `json:"indicator"`
	Previous  string    `json:"previous"`
	Forecast  string    `json:"forecast"`
	Actual    string    `json:"actual"`
}

// InteractiveQA represents one investor Q&A entry from the interactive platform.
type InteractiveQA struct {
	Symbol   string    `json:"symbol"`
	Company  string    `json:"company"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// ResearchReport represents one broker research report entry.
type ResearchReport struct {
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Institution string    `json:"institution"`
	Rating      string    `json:"rating"`
	TargetPrice float64   `json:"target_price,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Notice represents one company announcement entry.
type Notice struct {
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// MarketSnapshot aggregates whole-market spot statistics.
type MarketSnapshot struct {
	Time          time.Time `json:"time"`
	RiseCount     int       `json:"rise_count"`
	FallCount     int       `json:"fall_count"`
	FlatCount     int       `json:"flat_count"`
	LimitUpCount  int       `json:"limit_up_count"`
	LimitDownCount int      `json:"limit_down_count"`
	TotalTurnover float64   `json:"total_turnover"`
}
