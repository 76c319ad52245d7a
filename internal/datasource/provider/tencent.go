package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockaggr/internal/types"
)

// Tencent serves kline, quote and announcement data through the gtimg
// endpoints. Like sina, the realtime feed is delimited text.
type Tencent struct {
	klineURL  string // web.ifzq.gtimg.cn history host
	quoteURL  string // qt.gtimg.cn realtime host
	noticeURL string // proxy.finance.qq.com announcement host

	http *httpClient
}

// NewTencent creates the tencent adapter
func NewTencent(timeout time.Duration) *Tencent {
	return &Tencent{
		klineURL:  "https://web.ifzq.gtimg.cn",
		quoteURL:  "https://qt.gtimg.cn",
		noticeURL: "https://proxy.finance.qq.com",
		http:      newHTTPClient(timeout, nil),
	}
}

// Name implements the adapter contract
func (t *Tencent) Name() string { return "tencent" }

// Close implements the adapter contract
func (t *Tencent) Close() error { return nil }

// tencentSymbol converts "600000.SH" to the "sh600000" form.
func tencentSymbol(symbol string) string {
	return sinaSymbol(symbol) // same market-prefix scheme
}

// tencentPeriods maps bar periods to the fqkline period parameter and
// the response keys the payload may use for it (adjusted key first).
var tencentPeriods = map[string][]string{
	"daily":   {"qfqday", "day"},
	"weekly":  {"qfqweek", "week"},
	"monthly": {"qfqmonth", "month"},
	"1m":      {"m1"},
	"5m":      {"m5"},
	"15m":     {"m15"},
	"30m":     {"m30"},
	"60m":     {"m60"},
}

// FetchKline returns candlestick bars from the fqkline endpoint. The
// payload nests bars under the symbol and a period-dependent key, each
// bar an array of strings.
func (t *Tencent) FetchKline(ctx context.Context, symbol, period string, limit int) ([]types.Kline, error) {
	keys, ok := tencentPeriods[period]
	if !ok {
		return nil, fmt.Errorf("unsupported kline period: %s", period)
	}
	if limit <= 0 {
		limit = 120
	}

	id := tencentSymbol(symbol)
	param := keys[len(keys)-1]
	url := fmt.Sprintf("%s/appstock/app/fqkline/get?param=%s,%s,,,%d,qfq", t.klineURL, id, param, limit)

	var resp struct {
		Data map[string]map[string]json.RawMessage `json:"data"`
	}
	if err := t.http.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}

	sections, ok := resp.Data[id]
	if !ok {
		return nil, fmt.Errorf("empty kline payload for %s", symbol)
	}

	var raw json.RawMessage
	for _, key := range keys {
		if section, ok := sections[key]; ok {
			raw = section
			break
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("kline payload for %s has no %s section", symbol, param)
	}

	var bars [][]string
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("failed to decode kline bars: %w", err)
	}

	klines := make([]types.Kline, 0, len(bars))
	for _, bar := range bars {
		// date,open,close,high,low,volume
		if len(bar) < 6 {
			continue
		}
		openTime, err := time.ParseInLocation("2006-01-02", bar[0], time.Local)
		if err != nil {
			openTime, err = time.ParseInLocation("200601021504", bar[0], time.Local)
			if err != nil {
				continue
			}
		}
		open, _ := strconv.ParseFloat(bar[1], 64)
		closePrice, _ := strconv.ParseFloat(bar[2], 64)
		high, _ := strconv.ParseFloat(bar[3], 64)
		low, _ := strconv.ParseFloat(bar[4], 64)
		volume, _ := strconv.ParseFloat(bar[5], 64)

		klines = append(klines, types.Kline{
			Symbol:   symbol,
			Period:   period,
			OpenTime: openTime,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		})
	}
	return klines, nil
}

// FetchQuotes returns realtime quotes from the qt.gtimg feed. Each line
// has the form `v_sh600000="1~name~code~price~...";` with ~ separators.
func (t *Tencent) FetchQuotes(ctx context.Context, symbols []string) ([]types.Quote, error) {
	ids := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		ids = append(ids, tencentSymbol(sym))
	}

	body, err := t.http.getText(ctx, t.quoteURL+"/q="+strings.Join(ids, ","))
	if err != nil {
		return nil, err
	}

	quotes := make([]types.Quote, 0, len(symbols))
	for i, line := range strings.Split(body, ";") {
		line = strings.TrimSpace(line)
		if line == "" || i >= len(symbols) {
			continue
		}
		start := strings.Index(line, "\"")
		end := strings.LastIndex(line, "\"")
		if start < 0 || end <= start {
			continue
		}
		fields := strings.Split(line[start+1:end], "~")
		if len(fields) < 38 {
			continue
		}

		price, _ := strconv.ParseFloat(fields[3], 64)
		prevClose, _ := strconv.ParseFloat(fields[4], 64)
		open, _ := strconv.ParseFloat(fields[5], 64)
		changePct, _ := strconv.ParseFloat(fields[32], 64)
		high, _ := strconv.ParseFloat(fields[33], 64)
		low, _ := strconv.ParseFloat(fields[34], 64)
		volume, _ := strconv.ParseFloat(fields[36], 64)
		turnover, _ := strconv.ParseFloat(fields[37], 64)

		quoteTime, _ := time.ParseInLocation("20060102150405", fields[30], time.Local)

		quotes = append(quotes, types.Quote{
			Symbol:        symbols[i],
			Name:          fields[1],
			Price:         price,
			Open:          open,
			High:          high,
			Low:           low,
			PrevClose:     prevClose,
			Volume:        volume * 100,   // 手 -> 股
			Turnover:      turnover * 1e4, // 万元 -> 元
			ChangePercent: changePct,
			Time:          quoteTime,
		})
	}
	return quotes, nil
}

// FetchNotices returns company announcements.
func (t *Tencent) FetchNotices(ctx context.Context, symbol string, limit int) ([]types.Notice, error) {
	if limit <= 0 {
		limit = 20
	}
	url := fmt.Sprintf("%s/ifzqgtimg/appstock/news/noticeList/search?symbol=%s&n=%d&page=1",
		t.noticeURL, tencentSymbol(symbol), limit)

	var resp struct {
		Data *struct {
			Data []struct {
				Title string `json:"title"`
				Time  string `json:"time"`
				URL   string `json:"url"`
				Type  string `json:"type"`
			} `json:"data"`
		} `json:"data"`
	}
	if err := t.http.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []types.Notice{}, nil
	}

	notices := make([]types.Notice, 0, len(resp.Data.Data))
	for _, d := range resp.Data.Data {
		publishedAt, _ := time.ParseInLocation("2006-01-02 15:04:05", d.Time, time.Local)
		notices = append(notices, types.Notice{
			Symbol:      symbol,
			Title:       d.Title,
			Category:    d.Type,
			URL:         d.URL,
			PublishedAt: publishedAt,
		})
	}
	return notices, nil
}

// SetBaseURLs points every endpoint at one host for tests.
func (t *Tencent) SetBaseURLs(base string) {
	t.klineURL = base
	t.quoteURL = base
	t.noticeURL = base
}
