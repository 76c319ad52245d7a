package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"stockaggr/internal/types"
)

// Tushare is the token-gated provider. Every call is a POST against the
// single RPC endpoint with the api name, the token and a params map.
// Without a token the adapter is excluded from candidate selection, so
// the fetchers may assume the credential is present.
type Tushare struct {
	baseURL string
	http    *httpClient

	mu    sync.RWMutex
	token string
}

// NewTushare creates the tushare adapter
func NewTushare(timeout time.Duration) *Tushare {
	return &Tushare{
		baseURL: "https://api.tushare.pro",
		http:    newHTTPClient(timeout, nil),
	}
}

// Name implements the adapter contract
func (t *Tushare) Name() string { return "tushare" }

// Close implements the adapter contract
func (t *Tushare) Close() error { return nil }

// SetCredential stores the API token. Called by the registry on every
// configuration reload.
func (t *Tushare) SetCredential(credential string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = credential
}

// RequiresCredential reports that this adapter cannot operate without a
// token.
func (t *Tushare) RequiresCredential() bool { return true }

// tushareResponse is the envelope every RPC answers with
type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

// rowSet pairs the column index with the item rows for field lookup
type rowSet struct {
	index map[string]int
	items [][]interface{}
}

func (r *rowSet) str(row []interface{}, field string) string {
	i, ok := r.index[field]
	if !ok || i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return s
}

func (r *rowSet) num(row []interface{}, field string) float64 {
	i, ok := r.index[field]
	if !ok || i >= len(row) {
		return 0
	}
	n, _ := row[i].(float64)
	return n
}

// call performs one RPC and returns the decoded row set
func (t *Tushare) call(ctx context.Context, apiName string, params map[string]interface{}, fields string) (*rowSet, error) {
	t.mu.RLock()
	token := t.token
	t.mu.RUnlock()

	payload := map[string]interface{}{
		"api_name": apiName,
		"token":    token,
		"params":   params,
		"fields":   fields,
	}

	var resp tushareResponse
	if err := t.http.postJSON(ctx, t.baseURL, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("tushare api %s failed: %s", apiName, resp.Msg)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("tushare api %s returned no data", apiName)
	}

	index := make(map[string]int, len(resp.Data.Fields))
	for i, f := range resp.Data.Fields {
		index[f] = i
	}
	return &rowSet{index: index, items: resp.Data.Items}, nil
}

// tushareAPIs maps bar periods to the bar RPC name
var tushareAPIs = map[string]string{
	"daily":   "daily",
	"weekly":  "weekly",
	"monthly": "monthly",
}

// FetchKline returns candlestick bars. Only daily and coarser periods
// are available on the free tiers; finer periods report unsupported.
func (t *Tushare) FetchKline(ctx context.Context, symbol, period string, limit int) ([]types.Kline, error) {
	apiName, ok := tushareAPIs[period]
	if !ok {
		return nil, fmt.Errorf("unsupported kline period: %s", period)
	}
	if limit <= 0 {
		limit = 120
	}

	rows, err := t.call(ctx, apiName, map[string]interface{}{
		"ts_code": strings.ToUpper(symbol),
	}, "ts_code,trade_date,open,high,low,close,vol,amount")
	if err != nil {
		return nil, err
	}

	klines := make([]types.Kline, 0, len(rows.items))
	for _, row := range rows.items {
		openTime, err := time.ParseInLocation("20060102", rows.str(row, "trade_date"), time.Local)
		if err != nil {
			continue
		}
		klines = append(klines, types.Kline{
			Symbol:   symbol,
			Period:   period,
			OpenTime: openTime,
			Open:     rows.num(row, "open"),
			High:     rows.num(row, "high"),
			Low:      rows.num(row, "low"),
			Close:    rows.num(row, "close"),
			Volume:   rows.num(row, "vol") * 100,      // 手 -> 股
			Turnover: rows.num(row, "amount") * 1000, // 千元 -> 元
		})
	}

	// The RPC answers newest-first; callers expect chronological order.
	sort.Slice(klines, func(i, j int) bool { return klines[i].OpenTime.Before(klines[j].OpenTime) })
	if len(klines) > limit {
		klines = klines[len(klines)-limit:]
	}
	return klines, nil
}

// FetchMoneyFlow returns the latest daily money flow for one symbol.
func (t *Tushare) FetchMoneyFlow(ctx context.Context, symbol string) (*types.MoneyFlow, error) {
	rows, err := t.call(ctx, "moneyflow", map[string]interface{}{
		"ts_code": strings.ToUpper(symbol),
	}, "ts_code,trade_date,net_mf_amount,buy_sm_amount,sell_sm_amount,buy_md_amount,sell_md_amount,buy_lg_amount,sell_lg_amount,buy_elg_amount,sell_elg_amount")
	if err != nil {
		return nil, err
	}
	if len(rows.items) == 0 {
		return nil, fmt.Errorf("no money flow rows for %s", symbol)
	}

	row := rows.items[0] // newest first
	date, err := time.ParseInLocation("20060102", rows.str(row, "trade_date"), time.Local)
	if err != nil {
		return nil, fmt.Errorf("malformed money flow date: %w", err)
	}

	// Amounts are reported in 万元 per bucket; net per bucket.
	const wan = 1e4
	small := (rows.num(row, "buy_sm_amount") - rows.num(row, "sell_sm_amount")) * wan
	medium := (rows.num(row, "buy_md_amount") - rows.num(row, "sell_md_amount")) * wan
	large := (rows.num(row, "buy_lg_amount") - rows.num(row, "sell_lg_amount")) * wan
	super := (rows.num(row, "buy_elg_amount") - rows.num(row, "sell_elg_amount")) * wan

	return &types.MoneyFlow{
		Symbol:       symbol,
		MainInflow:   rows.num(row, "net_mf_amount") * wan,
		SmallInflow:  small,
		MediumInflow: medium,
		LargeInflow:  large,
		SuperInflow:  super,
		Date:         date,
	}, nil
}

// FetchMoneyFlowRank returns the main inflow ranking for the latest
// trading day, sorted client-side since the RPC has no sort parameter.
func (t *Tushare) FetchMoneyFlowRank(ctx context.Context, limit int) ([]types.MoneyFlowRank, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := t.call(ctx, "moneyflow", map[string]interface{}{
		"trade_date": lastTradeDate(time.Now()),
	}, "ts_code,trade_date,net_mf_amount")
	if err != nil {
		return nil, err
	}

	ranks := make([]types.MoneyFlowRank, 0, len(rows.items))
	for _, row := range rows.items {
		ranks = append(ranks, types.MoneyFlowRank{
			Symbol:     rows.str(row, "ts_code"),
			MainInflow: rows.num(row, "net_mf_amount") * 1e4,
		})
	}

	sort.Slice(ranks, func(i, j int) bool { return ranks[i].MainInflow > ranks[j].MainInflow })
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}

// FetchLongTiger returns the dragon-tiger list from the top_list RPC.
func (t *Tushare) FetchLongTiger(ctx context.Context, date time.Time) ([]types.LongTigerEntry, error) {
	rows, err := t.call(ctx, "top_list", map[string]interface{}{
		"trade_date": date.Format("20060102"),
	}, "ts_code,name,trade_date,explain,pct_change,net_amount,l_buy,l_sell")
	if err != nil {
		return nil, err
	}

	entries := make([]types.LongTigerEntry, 0, len(rows.items))
	for _, row := range rows.items {
		entries = append(entries, types.LongTigerEntry{
			Symbol:        rows.str(row, "ts_code"),
			Name:          rows.str(row, "name"),
			Date:          date,
			Reason:        rows.str(row, "explain"),
			ChangePercent: rows.num(row, "pct_change"),
			NetBuy:        rows.num(row, "net_amount") * 1e4,
			BuyAmount:     rows.num(row, "l_buy") * 1e4,
			SellAmount:    rows.num(row, "l_sell") * 1e4,
		})
	}
	return entries, nil
}

// fetchLimitList queries the limit_list_d RPC for one direction
func (t *Tushare) fetchLimitList(ctx context.Context, date time.Time, limitType string) ([]types.LimitPoolStock, error) {
	rows, err := t.call(ctx, "limit_list_d", map[string]interface{}{
		"trade_date": date.Format("20060102"),
		"limit_type": limitType,
	}, "ts_code,name,close,pct_chg,amount,fd_amount,first_time,open_times")
	if err != nil {
		return nil, err
	}

	stocks := make([]types.LimitPoolStock, 0, len(rows.items))
	for _, row := range rows.items {
		stocks = append(stocks, types.LimitPoolStock{
			Symbol:        rows.str(row, "ts_code"),
			Name:          rows.str(row, "name"),
			Price:         rows.num(row, "close"),
			ChangePercent: rows.num(row, "pct_chg"),
			Turnover:      rows.num(row, "amount") * 1000,
			SealAmount:    rows.num(row, "fd_amount"),
			FirstSealTime: rows.str(row, "first_time"),
			OpenCount:     int(rows.num(row, "open_times")),
			Date:          date,
		})
	}
	return stocks, nil
}

// FetchLimitUpPool returns the limit-up list for a trading day.
func (t *Tushare) FetchLimitUpPool(ctx context.Context, date time.Time) ([]types.LimitPoolStock, error) {
	return t.fetchLimitList(ctx, date, "U")
}

// FetchLimitDownPool returns the limit-down list for a trading day.
func (t *Tushare) FetchLimitDownPool(ctx context.Context, date time.Time) ([]types.LimitPoolStock, error) {
	return t.fetchLimitList(ctx, date, "D")
}

// lastTradeDate approximates the most recent trading day by skipping
// weekends. Holidays fall back to an empty RPC result, which the
// failover layer treats as a failure and routes around.
func lastTradeDate(now time.Time) string {
	d := now
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d.Format("20060102")
}

// SetBaseURL points the RPC endpoint at a test host.
func (t *Tushare) SetBaseURL(base string) {
	t.baseURL = base
}
