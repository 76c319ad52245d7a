package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockaggr/internal/types"
)

// Eastmoney is the primary provider. It serves nearly every capability
// through the push2 quote endpoints and the datacenter report API.
type Eastmoney struct {
	quoteURL      string // push2 realtime quote host
	historyURL    string // push2his history host
	poolURL       string // push2ex limit pool host
	datacenterURL string // datacenter-web report host
	reportURL     string // research report host
	noticeURL     string // announcement host

	http *httpClient
}

// NewEastmoney creates the eastmoney adapter
func NewEastmoney(timeout time.Duration) *Eastmoney {
	return &Eastmoney{
		quoteURL:      "https://push2.eastmoney.com",
		historyURL:    "https://push2his.eastmoney.com",
		poolURL:       "https://push2ex.eastmoney.com",
		datacenterURL: "https://datacenter-web.eastmoney.com",
		reportURL:     "https://reportapi.eastmoney.com",
		noticeURL:     "https://np-anotice-stock.eastmoney.com",
		http:          newHTTPClient(timeout, nil),
	}
}

// Name implements the adapter contract
func (e *Eastmoney) Name() string { return "eastmoney" }

// Close implements the adapter contract. The pooled transport needs no
// explicit teardown.
func (e *Eastmoney) Close() error { return nil }

// secID converts "600000.SH" style symbols to the push2 "1.600000"
// market-prefixed form.
func secID(symbol string) string {
	code, exchange := splitSymbol(symbol)
	switch exchange {
	case "SH":
		return "1." + code
	case "SZ", "BJ":
		return "0." + code
	}
	// No suffix: Shanghai codes start with 5/6/9, everything else is Shenzhen.
	if len(code) > 0 && (code[0] == '5' || code[0] == '6' || code[0] == '9') {
		return "1." + code
	}
	return "0." + code
}

// kltCodes maps bar periods to the push2 klt parameter
var kltCodes = map[string]string{
	"1m": "1", "5m": "5", "15m": "15", "30m": "30", "60m": "60",
	"daily": "101", "weekly": "102", "monthly": "103",
}

// FetchKline returns candlestick bars from the push2his kline endpoint.
// Bars arrive as comma-joined strings, one per line.
func (e *Eastmoney) FetchKline(ctx context.Context, symbol, period string, limit int) ([]types.Kline, error) {
	klt, ok := kltCodes[period]
	if !ok {
		return nil, fmt.Errorf("unsupported kline period: %s", period)
	}
	if limit <= 0 {
		limit = 120
	}

	params := url.Values{}
	params.Set("secid", secID(symbol))
	params.Set("klt", klt)
	params.Set("fqt", "1") // 前复权
	params.Set("lmt", strconv.Itoa(limit))
	params.Set("end", "20500101")
	params.Set("fields1", "f1,f2,f3,f4,f5,f6")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")

	var resp struct {
		Data *struct {
			Code   string   `json:"code"`
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.historyURL+"/api/qt/stock/kline/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty kline payload for %s", symbol)
	}

	klines := make([]types.Kline, 0, len(resp.Data.Klines))
	for _, raw := range resp.Data.Klines {
		// date,open,close,high,low,volume,turnover
		parts := strings.Split(raw, ",")
		if len(parts) < 7 {
			continue
		}
		openTime, err := time.ParseInLocation("2006-01-02", parts[0][:10], time.Local)
		if err != nil {
			// Intraday periods carry a time component.
			openTime, err = time.ParseInLocation("2006-01-02 15:04", parts[0], time.Local)
			if err != nil {
				continue
			}
		}
		open, _ := strconv.ParseFloat(parts[1], 64)
		closePrice, _ := strconv.ParseFloat(parts[2], 64)
		high, _ := strconv.ParseFloat(parts[3], 64)
		low, _ := strconv.ParseFloat(parts[4], 64)
		volume, _ := strconv.ParseFloat(parts[5], 64)
		turnover, _ := strconv.ParseFloat(parts[6], 64)

		klines = append(klines, types.Kline{
			Symbol:   symbol,
			Period:   period,
			OpenTime: openTime,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
			Turnover: turnover,
		})
	}
	return klines, nil
}

// push2 returns prices as integers scaled by 100
func scaled(v float64) float64 { return v / 100 }

// FetchQuotes returns realtime quotes via the push2 ulist endpoint.
func (e *Eastmoney) FetchQuotes(ctx context.Context, symbols []string) ([]types.Quote, error) {
	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		ids = append(ids, secID(s))
	}

	params := url.Values{}
	params.Set("secids", strings.Join(ids, ","))
	params.Set("fields", "f2,f3,f5,f6,f12,f14,f15,f16,f17,f18")
	params.Set("fltt", "1")

	var resp struct {
		Data *struct {
			Diff []struct {
				Price     float64 `json:"f2"`
				ChangePct float64 `json:"f3"`
				Volume    float64 `json:"f5"`
				Turnover  float64 `json:"f6"`
				Code      string  `json:"f12"`
				Name      string  `json:"f14"`
				High      float64 `json:"f15"`
				Low       float64 `json:"f16"`
				Open      float64 `json:"f17"`
				PrevClose float64 `json:"f18"`
			} `json:"diff"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.quoteURL+"/api/qt/ulist.np/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty quote payload")
	}

	now := time.Now()
	quotes := make([]types.Quote, 0, len(resp.Data.Diff))
	for i, d := range resp.Data.Diff {
		symbol := d.Code
		if i < len(symbols) {
			symbol = symbols[i]
		}
		quotes = append(quotes, types.Quote{
			Symbol:        symbol,
			Name:          d.Name,
			Price:         scaled(d.Price),
			Open:          scaled(d.Open),
			High:          scaled(d.High),
			Low:           scaled(d.Low),
			PrevClose:     scaled(d.PrevClose),
			Volume:        d.Volume,
			Turnover:      d.Turnover,
			ChangePercent: scaled(d.ChangePct),
			Time:          now,
		})
	}
	return quotes, nil
}

// majorIndexIDs are the index snapshots served by FetchIndices
var majorIndexIDs = []string{"1.000001", "0.399001", "0.399006", "1.000300", "1.000688"}

// FetchIndices returns the major market index snapshots.
func (e *Eastmoney) FetchIndices(ctx context.Context) ([]types.IndexQuote, error) {
	params := url.Values{}
	params.Set("secids", strings.Join(majorIndexIDs, ","))
	params.Set("fields", "f2,f3,f4,f5,f6,f12,f14")
	params.Set("fltt", "1")

	var resp struct {
		Data *struct {
			Diff []struct {
				Current   float64 `json:"f2"`
				ChangePct float64 `json:"f3"`
				Change    float64 `json:"f4"`
				Volume    float64 `json:"f5"`
				Turnover  float64 `json:"f6"`
				Code      string  `json:"f12"`
				Name      string  `json:"f14"`
			} `json:"diff"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.quoteURL+"/api/qt/ulist.np/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty index payload")
	}

	indices := make([]types.IndexQuote, 0, len(resp.Data.Diff))
	for _, d := range resp.Data.Diff {
		indices = append(indices, types.IndexQuote{
			Code:          d.Code,
			Name:          d.Name,
			Current:       scaled(d.Current),
			Change:        scaled(d.Change),
			ChangePercent: scaled(d.ChangePct),
			Volume:        d.Volume,
			Turnover:      d.Turnover,
		})
	}
	return indices, nil
}

// FetchSpotStatistics aggregates whole-market rise/fall statistics from
// the full clist snapshot counters.
func (e *Eastmoney) FetchSpotStatistics(ctx context.Context) (*types.MarketSnapshot, error) {
	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", "1")
	params.Set("fs", "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23")
	params.Set("fields", "f104,f105,f106")

	var resp struct {
		Data *struct {
			Total int `json:"total"`
			Diff  []struct {
				RiseCount int `json:"f104"`
				FallCount int `json:"f105"`
				FlatCount int `json:"f106"`
			} `json:"diff"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.quoteURL+"/api/qt/clist/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.Diff) == 0 {
		return nil, fmt.Errorf("empty spot statistics payload")
	}

	d := resp.Data.Diff[0]
	return &types.MarketSnapshot{
		Time:      time.Now(),
		RiseCount: d.RiseCount,
		FallCount: d.FallCount,
		FlatCount: d.FlatCount,
	}, nil
}

// boardRow is the shared clist row shape for board rankings
type boardRow struct {
	ChangePct    float64 `json:"f3"`
	Turnover     float64 `json:"f6"`
	Code         string  `json:"f12"`
	Name         string  `json:"f14"`
	NetInflow    float64 `json:"f62"`
	RiseCount    int     `json:"f104"`
	FallCount    int     `json:"f105"`
	LeaderName   string  `json:"f128"`
	LeaderSymbol string  `json:"f140"`
}

// fetchBoardRank queries the clist endpoint for one board universe
func (e *Eastmoney) fetchBoardRank(ctx context.Context, fs string, limit int) ([]boardRow, error) {
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", strconv.Itoa(limit))
	params.Set("po", "1")
	params.Set("fid", "f3")
	params.Set("fs", fs)
	params.Set("fields", "f3,f6,f12,f14,f62,f104,f105,f128,f140")
	params.Set("fltt", "2")

	var resp struct {
		Data *struct {
			Diff []boardRow `json:"diff"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.quoteURL+"/api/qt/clist/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty board payload")
	}
	return resp.Data.Diff, nil
}

// FetchIndustryRank returns the industry board ranking.
func (e *Eastmoney) FetchIndustryRank(ctx context.Context, limit int) ([]types.IndustryRank, error) {
	rows, err := e.fetchBoardRank(ctx, "m:90+t:2+f:!50", limit)
	if err != nil {
		return nil, err
	}

	ranks := make([]types.IndustryRank, 0, len(rows))
	for _, r := range rows {
		ranks = append(ranks, types.IndustryRank{
			Code:          r.Code,
			Name:          r.Name,
			ChangePercent: r.ChangePct,
			Turnover:      r.Turnover,
			NetInflow:     r.NetInflow,
			LeaderSymbol:  r.LeaderSymbol,
			LeaderName:    r.LeaderName,
			RiseCount:     r.RiseCount,
			FallCount:     r.FallCount,
		})
	}
	return ranks, nil
}

// FetchConceptRank returns the concept board ranking.
func (e *Eastmoney) FetchConceptRank(ctx context.Context, limit int) ([]types.ConceptRank, error) {
	rows, err := e.fetchBoardRank(ctx, "m:90+t:3+f:!50", limit)
	if err != nil {
		return nil, err
	}

	ranks := make([]types.ConceptRank, 0, len(rows))
	for _, r := range rows {
		ranks = append(ranks, types.ConceptRank{
			Code:          r.Code,
			Name:          r.Name,
			ChangePercent: r.ChangePct,
			NetInflow:     r.NetInflow,
			LeaderSymbol:  r.LeaderSymbol,
			LeaderName:    r.LeaderName,
		})
	}
	return ranks, nil
}

// FetchSectorStocks returns the constituents of one board.
func (e *Eastmoney) FetchSectorStocks(ctx context.Context, boardCode string) ([]types.SectorStock, error) {
	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", "100")
	params.Set("po", "1")
	params.Set("fid", "f3")
	params.Set("fs", "b:"+boardCode)
	params.Set("fields", "f2,f3,f6,f10,f12,f14")
	params.Set("fltt", "2")

	var resp struct {
		Data *struct {
			Diff []struct {
				Price       float64 `json:"f2"`
				ChangePct   float64 `json:"f3"`
				Turnover    float64 `json:"f6"`
				VolumeRatio float64 `json:"f10"`
				Code        string  `json:"f12"`
				Name        string  `json:"f14"`
			} `json:"diff"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.quoteURL+"/api/qt/clist/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty sector payload for board %s", boardCode)
	}

	stocks := make([]types.SectorStock, 0, len(resp.Data.Diff))
	for _, d := range resp.Data.Diff {
		stocks = append(stocks, types.SectorStock{
			Symbol:        d.Code,
			Name:          d.Name,
			Price:         d.Price,
			ChangePercent: d.ChangePct,
			Turnover:      d.Turnover,
			VolumeRatio:   d.VolumeRatio,
		})
	}
	return stocks, nil
}

// FetchMoneyFlow returns today's intraday money flow for one symbol.
func (e *Eastmoney) FetchMoneyFlow(ctx context.Context, symbol string) (*types.MoneyFlow, error) {
	params := url.Values{}
	params.Set("secid", secID(symbol))
	params.Set("klt", "101")
	params.Set("lmt", "1")
	params.Set("fields1", "f1,f2,f3,f7")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56")

	var resp struct {
		Data *struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.historyURL+"/api/qt/stock/fflow/daykline/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil, fmt.Errorf("empty money flow payload for %s", symbol)
	}

	// date,main,small,medium,large,super
	parts := strings.Split(resp.Data.Klines[len(resp.Data.Klines)-1], ",")
	if len(parts) < 6 {
		return nil, fmt.Errorf("malformed money flow row for %s", symbol)
	}
	date, err := time.ParseInLocation("2006-01-02", parts[0], time.Local)
	if err != nil {
		return nil, fmt.Errorf("malformed money flow date: %w", err)
	}
	main, _ := strconv.ParseFloat(parts[1], 64)
	small, _ := strconv.ParseFloat(parts[2], 64)
	medium, _ := strconv.ParseFloat(parts[3], 64)
	large, _ := strconv.ParseFloat(parts[4], 64)
	super, _ := strconv.ParseFloat(parts[5], 64)

	return &types.MoneyFlow{
		Symbol:       symbol,
		MainInflow:   main,
		SmallInflow:  small,
		MediumInflow: medium,
		LargeInflow:  large,
		SuperInflow:  super,
		Date:         date,
	}, nil
}

// FetchMoneyFlowRank returns the per-stock main inflow ranking.
func (e *Eastmoney) FetchMoneyFlowRank(ctx context.Context, limit int) ([]types.MoneyFlowRank, error) {
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", strconv.Itoa(limit))
	params.Set("po", "1")
	params.Set("fid", "f62")
	params.Set("fs", "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23")
	params.Set("fields", "f2,f3,f12,f14,f62,f184")
	params.Set("fltt", "2")

	var resp struct {
		Data *struct {
			Diff []struct {
				Price      float64 `json:"f2"`
				ChangePct  float64 `json:"f3"`
				Code       string  `json:"f12"`
				Name       string  `json:"f14"`
				MainInflow float64 `json:"f62"`
				InflowRate float64 `json:"f184"`
			} `json:"diff"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.quoteURL+"/api/qt/clist/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty money flow rank payload")
	}

	ranks := make([]types.MoneyFlowRank, 0, len(resp.Data.Diff))
	for _, d := range resp.Data.Diff {
		ranks = append(ranks, types.MoneyFlowRank{
			Symbol:         d.Code,
			Name:           d.Name,
			Price:          d.Price,
			ChangePercent:  d.ChangePct,
			MainInflow:     d.MainInflow,
			MainInflowRate: d.InflowRate,
		})
	}
	return ranks, nil
}

// FetchNorthFlow returns realtime northbound capital flow.
func (e *Eastmoney) FetchNorthFlow(ctx context.Context) (*types.NorthFlow, error) {
	params := url.Values{}
	params.Set("fields1", "f1,f3")
	params.Set("fields2", "f51,f52,f54,f56")

	var resp struct {
		Data *struct {
			S2N []string `json:"s2n"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.quoteURL+"/api/qt/kamt.rtmin/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.S2N) == 0 {
		return nil, fmt.Errorf("empty north flow payload")
	}

	// Walk back to the last populated minute; trailing rows carry "-".
	for i := len(resp.Data.S2N) - 1; i >= 0; i-- {
		parts := strings.Split(resp.Data.S2N[i], ",")
		if len(parts) < 4 || parts[1] == "-" {
			continue
		}
		sh, _ := strconv.ParseFloat(parts[1], 64)
		sz, _ := strconv.ParseFloat(parts[2], 64)
		total, _ := strconv.ParseFloat(parts[3], 64)
		return &types.NorthFlow{
			Date:      time.Now(),
			SHConnect: sh,
			SZConnect: sz,
			Total:     total,
		}, nil
	}
	return nil, fmt.Errorf("north flow payload has no populated rows")
}

// FetchLongTiger returns the dragon-tiger list from the datacenter
// report API.
func (e *Eastmoney) FetchLongTiger(ctx context.Context, date time.Time) ([]types.LongTigerEntry, error) {
	day := date.Format("2006-01-02")
	params := url.Values{}
	params.Set("reportName", "RPT_DAILYBILLBOARD_DETAILSNEW")
	params.Set("columns", "SECURITY_CODE,SECURITY_NAME_ABBR,TRADE_DATE,EXPLANATION,CHANGE_RATE,BILLBOARD_NET_AMT,BILLBOARD_BUY_AMT,BILLBOARD_SELL_AMT")
	params.Set("filter", fmt.Sprintf("(TRADE_DATE='%s')", day))
	params.Set("pageSize", "200")
	params.Set("sortColumns", "BILLBOARD_NET_AMT")
	params.Set("sortTypes", "-1")

	var resp struct {
		Result *struct {
			Data []struct {
				Code       string  `json:"SECURITY_CODE"`
				Name       string  `json:"SECURITY_NAME_ABBR"`
				TradeDate  string  `json:"TRADE_DATE"`
				Reason     string  `json:"EXPLANATION"`
				ChangeRate float64 `json:"CHANGE_RATE"`
				NetBuy     float64 `json:"BILLBOARD_NET_AMT"`
				BuyAmount  float64 `json:"BILLBOARD_BUY_AMT"`
				SellAmount float64 `json:"BILLBOARD_SELL_AMT"`
			} `json:"data"`
		} `json:"result"`
	}
	if err := e.http.getJSON(ctx, e.datacenterURL+"/api/data/v1/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("empty long tiger payload for %s", day)
	}

	entries := make([]types.LongTigerEntry, 0, len(resp.Result.Data))
	for _, d := range resp.Result.Data {
		entries = append(entries, types.LongTigerEntry{
			Symbol:        d.Code,
			Name:          d.Name,
			Date:          date,
			Reason:        d.Reason,
			ChangePercent: d.ChangeRate,
			NetBuy:        d.NetBuy,
			BuyAmount:     d.BuyAmount,
			SellAmount:    d.SellAmount,
		})
	}
	return entries, nil
}

// limitPoolRow is the shared row shape of the limit up/down pool APIs
type limitPoolRow struct {
	Code          string  `json:"c"`
	Name          string  `json:"n"`
	Price         float64 `json:"p"`
	ChangePct     float64 `json:"zdp"`
	Turnover      float64 `json:"amount"`
	SealAmount    float64 `json:"fund"`
	FirstSealTime int     `json:"fbt"`
	OpenCount     int     `json:"zbc"`
}

// fetchLimitPool queries one of the push2ex topic pool endpoints
func (e *Eastmoney) fetchLimitPool(ctx context.Context, endpoint string, date time.Time) ([]types.LimitPoolStock, error) {
	params := url.Values{}
	params.Set("Pageindex", "0")
	params.Set("pagesize", "200")
	params.Set("dpt", "wz.ztzt")
	params.Set("date", date.Format("20060102"))

	var resp struct {
		Data *struct {
			Pool []limitPoolRow `json:"pool"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.poolURL+endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty limit pool payload")
	}

	stocks := make([]types.LimitPoolStock, 0, len(resp.Data.Pool))
	for _, r := range resp.Data.Pool {
		sealTime := ""
		if r.FirstSealTime > 0 {
			sealTime = fmt.Sprintf("%06d", r.FirstSealTime)
		}
		stocks = append(stocks, types.LimitPoolStock{
			Symbol:        r.Code,
			Name:          r.Name,
			Price:         scaled(r.Price) / 10, // 千分之一元
			ChangePercent: r.ChangePct,
			Turnover:      r.Turnover,
			SealAmount:    r.SealAmount,
			FirstSealTime: sealTime,
			OpenCount:     r.OpenCount,
			Date:          date,
		})
	}
	return stocks, nil
}

// FetchLimitUpPool returns the limit-up pool for a trading day.
func (e *Eastmoney) FetchLimitUpPool(ctx context.Context, date time.Time) ([]types.LimitPoolStock, error) {
	return e.fetchLimitPool(ctx, "/getTopicZTPool", date)
}

// FetchLimitDownPool returns the limit-down pool for a trading day.
func (e *Eastmoney) FetchLimitDownPool(ctx context.Context, date time.Time) ([]types.LimitPoolStock, error) {
	return e.fetchLimitPool(ctx, "/getTopicDTPool", date)
}

// FetchVolumeRatioRank returns the volume ratio ranking.
func (e *Eastmoney) FetchVolumeRatioRank(ctx context.Context, limit int) ([]types.VolumeRatioEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", strconv.Itoa(limit))
	params.Set("po", "1")
	params.Set("fid", "f10")
	params.Set("fs", "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23")
	params.Set("fields", "f2,f3,f6,f10,f12,f14")
	params.Set("fltt", "2")

	var resp struct {
		Data *struct {
			Diff []struct {
				Price       float64 `json:"f2"`
				ChangePct   float64 `json:"f3"`
				Turnover    float64 `json:"f6"`
				VolumeRatio float64 `json:"f10"`
				Code        string  `json:"f12"`
				Name        string  `json:"f14"`
			} `json:"diff"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.quoteURL+"/api/qt/clist/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty volume ratio payload")
	}

	entries := make([]types.VolumeRatioEntry, 0, len(resp.Data.Diff))
	for _, d := range resp.Data.Diff {
		entries = append(entries, types.VolumeRatioEntry{
			Symbol:        d.Code,
			Name:          d.Name,
			Price:         d.Price,
			ChangePercent: d.ChangePct,
			VolumeRatio:   d.VolumeRatio,
			Turnover:      d.Turnover,
		})
	}
	return entries, nil
}

// FetchBoardDict returns the industry and concept board code table.
func (e *Eastmoney) FetchBoardDict(ctx context.Context) ([]types.BoardInfo, error) {
	var boards []types.BoardInfo

	universes := []struct {
		fs  string
		typ string
	}{
		{"m:90+t:2", "industry"},
		{"m:90+t:3", "concept"},
		{"m:90+t:1", "region"},
	}
	for _, u := range universes {
		params := url.Values{}
		params.Set("pn", "1")
		params.Set("pz", "500")
		params.Set("fs", u.fs)
		params.Set("fields", "f12,f14")

		var resp struct {
			Data *struct {
				Diff []struct {
					Code string `json:"f12"`
					Name string `json:"f14"`
				} `json:"diff"`
			} `json:"data"`
		}
		if err := e.http.getJSON(ctx, e.quoteURL+"/api/qt/clist/get?"+params.Encode(), &resp); err != nil {
			return nil, err
		}
		if resp.Data == nil {
			continue
		}
		for _, d := range resp.Data.Diff {
			boards = append(boards, types.BoardInfo{Code: d.Code, Name: d.Name, Type: u.typ})
		}
	}

	if len(boards) == 0 {
		return nil, fmt.Errorf("empty board dictionary payload")
	}
	return boards, nil
}

// FetchEconomicCalendar returns macro calendar entries from the
// datacenter report API.
func (e *Eastmoney) FetchEconomicCalendar(ctx context.Context, from, to time.Time) ([]types.EconomicEvent, error) {
	params := url.Values{}
	params.Set("reportName", "RPT_ECONOMICVALUE_CALENDAR")
	params.Set("columns", "REPORT_DATE,COUNTRY,INDICATOR_NAME,PREVIOUS_VALUE,FORECAST_VALUE,PUBLISH_VALUE")
	params.Set("filter", fmt.Sprintf("(REPORT_DATE>='%s')(REPORT_DATE<='%s')",
		from.Format("2006-01-02"), to.Format("2006-01-02")))
	params.Set("pageSize", "200")
	params.Set("sortColumns", "REPORT_DATE")
	params.Set("sortTypes", "1")

	var resp struct {
		Result *struct {
			Data []struct {
				Date      string `json:"REPORT_DATE"`
				Country   string `json:"COUNTRY"`
				Indicator string `json:"INDICATOR_NAME"`
				Previous  string `json:"PREVIOUS_VALUE"`
				Forecast  string `json:"FORECAST_VALUE"`
				Actual    string `json:"PUBLISH_VALUE"`
			} `json:"data"`
		} `json:"result"`
	}
	if err := e.http.getJSON(ctx, e.datacenterURL+"/api/data/v1/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return []types.EconomicEvent{}, nil
	}

	events := make([]types.EconomicEvent, 0, len(resp.Result.Data))
	for _, d := range resp.Result.Data {
		date, err := time.ParseInLocation("2006-01-02", d.Date[:10], time.Local)
		if err != nil {
			continue
		}
		events = append(events, types.EconomicEvent{
			Date:      date,
			Country:   d.Country,
			Indicator: d.Indicator,
			Previous:  d.Previous,
			Forecast:  d.Forecast,
			Actual:    d.Actual,
		})
	}
	return events, nil
}

// FetchInteractiveQA returns investor Q&A entries for one symbol.
func (e *Eastmoney) FetchInteractiveQA(ctx context.Context, symbol string, limit int) ([]types.InteractiveQA, error) {
	if limit <= 0 {
		limit = 20
	}
	code, _ := splitSymbol(symbol)

	params := url.Values{}
	params.Set("reportName", "RPT_INTERACTIVE_QA")
	params.Set("columns", "SECURITY_CODE,COMPANY_NAME,QUESTION_CONTENT,ANSWER_CONTENT,QUESTION_TIME")
	params.Set("filter", fmt.Sprintf("(SECURITY_CODE=\"%s\")", code))
	params.Set("pageSize", strconv.Itoa(limit))
	params.Set("sortColumns", "QUESTION_TIME")
	params.Set("sortTypes", "-1")

	var resp struct {
		Result *struct {
			Data []struct {
				Code     string `json:"SECURITY_CODE"`
				Company  string `json:"COMPANY_NAME"`
				Question string `json:"QUESTION_CONTENT"`
				Answer   string `json:"ANSWER_CONTENT"`
				AskedAt  string `json:"QUESTION_TIME"`
			} `json:"data"`
		} `json:"result"`
	}
	if err := e.http.getJSON(ctx, e.datacenterURL+"/api/data/v1/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return []types.InteractiveQA{}, nil
	}

	qas := make([]types.InteractiveQA, 0, len(resp.Result.Data))
	for _, d := range resp.Result.Data {
		askedAt, _ := time.ParseInLocation("2006-01-02 15:04:05", d.AskedAt, time.Local)
		qas = append(qas, types.InteractiveQA{
			Symbol:   symbol,
			Company:  d.Company,
			Question: d.Question,
			Answer:   d.Answer,
			AskedAt:  askedAt,
		})
	}
	return qas, nil
}

// FetchResearchReports returns broker research reports for one symbol.
func (e *Eastmoney) FetchResearchReports(ctx context.Context, symbol string, limit int) ([]types.ResearchReport, error) {
	if limit <= 0 {
		limit = 20
	}
	code, _ := splitSymbol(symbol)

	params := url.Values{}
	params.Set("code", code)
	params.Set("pageSize", strconv.Itoa(limit))
	params.Set("pageNo", "1")
	params.Set("industryCode", "*")
	params.Set("ratingChange", "*")
	params.Set("rating", "*")

	var resp struct {
		Data []struct {
			Title       string  `json:"title"`
			OrgSName    string  `json:"orgSName"`
			Rating      string  `json:"emRatingName"`
			TargetPrice float64 `json:"indvAimPriceT,string"`
			PublishDate string  `json:"publishDate"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.reportURL+"/report/list?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	reports := make([]types.ResearchReport, 0, len(resp.Data))
	for _, d := range resp.Data {
		publishedAt, _ := time.ParseInLocation("2006-01-02 15:04:05", d.PublishDate, time.Local)
		reports = append(reports, types.ResearchReport{
			Symbol:      symbol,
			Title:       d.Title,
			Institution: d.OrgSName,
			Rating:      d.Rating,
			TargetPrice: d.TargetPrice,
			PublishedAt: publishedAt,
		})
	}
	return reports, nil
}

// FetchNotices returns company announcements for one symbol.
func (e *Eastmoney) FetchNotices(ctx context.Context, symbol string, limit int) ([]types.Notice, error) {
	if limit <= 0 {
		limit = 20
	}
	code, _ := splitSymbol(symbol)

	params := url.Values{}
	params.Set("sr", "-1")
	params.Set("page_size", strconv.Itoa(limit))
	params.Set("page_index", "1")
	params.Set("ann_type", "A")
	params.Set("stock_list", code)

	var resp struct {
		Data *struct {
			List []struct {
				Title      string `json:"title"`
				ArtCode    string `json:"art_code"`
				NoticeDate string `json:"notice_date"`
				Columns    []struct {
					ColumnName string `json:"column_name"`
				} `json:"columns"`
			} `json:"list"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, e.noticeURL+"/api/security/ann?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []types.Notice{}, nil
	}

	notices := make([]types.Notice, 0, len(resp.Data.List))
	for _, d := range resp.Data.List {
		publishedAt, _ := time.ParseInLocation("2006-01-02 15:04:05", d.NoticeDate, time.Local)
		category := ""
		if len(d.Columns) > 0 {
			category = d.Columns[0].ColumnName
		}
		notices = append(notices, types.Notice{
			Symbol:      symbol,
			Title:       d.Title,
			Category:    category,
			URL:         "https://data.eastmoney.com/notices/detail/" + code + "/" + d.ArtCode + ".html",
			PublishedAt: publishedAt,
		})
	}
	return notices, nil
}

// SetBaseURLs points every endpoint at one host. Used by tests to stub
// the upstream with httptest.
func (e *Eastmoney) SetBaseURLs(base string) {
	e.quoteURL = base
	e.historyURL = base
	e.poolURL = base
	e.datacenterURL = base
	e.reportURL = base
	e.noticeURL = base
}
