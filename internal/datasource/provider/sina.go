package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockaggr/internal/types"
)

// Sina serves kline, quote and index data. The realtime feed answers
// with semicolon-delimited javascript assignments rather than JSON and
// requires a Referer header.
type Sina struct {
	quoteURL string // hq.sinajs realtime host
	klineURL string // quotes_service history host

	http *httpClient
}

// NewSina creates the sina adapter
func NewSina(timeout time.Duration) *Sina {
	return &Sina{
		quoteURL: "https://hq.sinajs.cn",
		klineURL: "https://money.finance.sina.com.cn",
		http: newHTTPClient(timeout, map[string]string{
			"Referer": "https://finance.sina.com.cn",
		}),
	}
}

// Name implements the adapter contract
func (s *Sina) Name() string { return "sina" }

// Close implements the adapter contract
func (s *Sina) Close() error { return nil }

// sinaSymbol converts "600000.SH" to the "sh600000" form.
func sinaSymbol(symbol string) string {
	code, exchange := splitSymbol(symbol)
	switch exchange {
	case "SH":
		return "sh" + code
	case "SZ":
		return "sz" + code
	case "BJ":
		return "bj" + code
	}
	if len(code) > 0 && (code[0] == '5' || code[0] == '6' || code[0] == '9') {
		return "sh" + code
	}
	return "sz" + code
}

// sinaScales maps bar periods to the quotes_service scale parameter
// (minutes per bar; daily and above reuse the 240-minute bar).
var sinaScales = map[string]string{
	"1m": "1", "5m": "5", "15m": "15", "30m": "30", "60m": "60",
	"daily": "240", "weekly": "1200", "monthly": "7200",
}

// FetchKline returns candlestick bars from the CN_MarketDataService API.
func (s *Sina) FetchKline(ctx context.Context, symbol, period string, limit int) ([]types.Kline, error) {
	scale, ok := sinaScales[period]
	if !ok {
		return nil, fmt.Errorf("unsupported kline period: %s", period)
	}
	if limit <= 0 {
		limit = 120
	}

	url := fmt.Sprintf("%s/quotes_service/api/json_v2.php/CN_MarketDataService.getKLineData?symbol=%s&scale=%s&ma=no&datalen=%d",
		s.klineURL, sinaSymbol(symbol), scale, limit)

	var rows []struct {
		Day    string `json:"day"`
		Open   string `json:"open"`
		High   string `json:"high"`
		Low    string `json:"low"`
		Close  string `json:"close"`
		Volume string `json:"volume"`
	}
	if err := s.http.getJSON(ctx, url, &rows); err != nil {
		return nil, err
	}

	klines := make([]types.Kline, 0, len(rows))
	for _, r := range rows {
		openTime, err := time.ParseInLocation("2006-01-02", r.Day, time.Local)
		if err != nil {
			openTime, err = time.ParseInLocation("2006-01-02 15:04:05", r.Day, time.Local)
			if err != nil {
				continue
			}
		}
		open, _ := strconv.ParseFloat(r.Open, 64)
		high, _ := strconv.ParseFloat(r.High, 64)
		low, _ := strconv.ParseFloat(r.Low, 64)
		closePrice, _ := strconv.ParseFloat(r.Close, 64)
		volume, _ := strconv.ParseFloat(r.Volume, 64)

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

// FetchQuotes returns realtime quotes from the hq.sinajs list endpoint.
// Each line has the form `var hq_str_sh600000="name,open,prev,...";`.
func (s *Sina) FetchQuotes(ctx context.Context, symbols []string) ([]types.Quote, error) {
	ids := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		ids = append(ids, sinaSymbol(sym))
	}

	body, err := s.http.getText(ctx, s.quoteURL+"/list="+strings.Join(ids, ","))
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
		fields := strings.Split(line[start+1:end], ",")
		if len(fields) < 32 {
			continue
		}

		open, _ := strconv.ParseFloat(fields[1], 64)
		prevClose, _ := strconv.ParseFloat(fields[2], 64)
		price, _ := strconv.ParseFloat(fields[3], 64)
		high, _ := strconv.ParseFloat(fields[4], 64)
		low, _ := strconv.ParseFloat(fields[5], 64)
		volume, _ := strconv.ParseFloat(fields[8], 64)
		turnover, _ := strconv.ParseFloat(fields[9], 64)

		changePct := 0.0
		if prevClose > 0 {
			changePct = (price - prevClose) / prevClose * 100
		}

		quoteTime, _ := time.ParseInLocation("2006-01-02 15:04:05", fields[30]+" "+fields[31], time.Local)

		quotes = append(quotes, types.Quote{
			Symbol:        symbols[i],
			Name:          fields[0],
			Price:         price,
			Open:          open,
			High:          high,
			Low:           low,
			PrevClose:     prevClose,
			Volume:        volume,
			Turnover:      turnover,
			ChangePercent: changePct,
			Time:          quoteTime,
		})
	}
	return quotes, nil
}

// majorSinaIndices are the index snapshots served by FetchIndices
var majorSinaIndices = []struct {
	id   string
	code string
}{
	{"s_sh000001", "000001"},
	{"s_sz399001", "399001"},
	{"s_sz399006", "399006"},
	{"s_sh000300", "000300"},
	{"s_sh000688", "000688"},
}

// FetchIndices returns the major index snapshots. The short "s_" feed
// answers `name,current,change,changePercent,volume,turnover` per line.
func (s *Sina) FetchIndices(ctx context.Context) ([]types.IndexQuote, error) {
	ids := make([]string, 0, len(majorSinaIndices))
	for _, idx := range majorSinaIndices {
		ids = append(ids, idx.id)
	}

	body, err := s.http.getText(ctx, s.quoteURL+"/list="+strings.Join(ids, ","))
	if err != nil {
		return nil, err
	}

	indices := make([]types.IndexQuote, 0, len(majorSinaIndices))
	for i, line := range strings.Split(body, ";") {
		line = strings.TrimSpace(line)
		if line == "" || i >= len(majorSinaIndices) {
			continue
		}
		start := strings.Index(line, "\"")
		end := strings.LastIndex(line, "\"")
		if start < 0 || end <= start {
			continue
		}
		fields := strings.Split(line[start+1:end], ",")
		if len(fields) < 6 {
			continue
		}

		current, _ := strconv.ParseFloat(fields[1], 64)
		change, _ := strconv.ParseFloat(fields[2], 64)
		changePct, _ := strconv.ParseFloat(fields[3], 64)
		volume, _ := strconv.ParseFloat(fields[4], 64)
		turnover, _ := strconv.ParseFloat(fields[5], 64)

		indices = append(indices, types.IndexQuote{
			Code:          majorSinaIndices[i].code,
			Name:          fields[0],
			Current:       current,
			Change:        change,
			ChangePercent: changePct,
			Volume:        volume,
			Turnover:      turnover,
		})
	}
	return indices, nil
}

// SetBaseURLs points both endpoints at one host for tests.
func (s *Sina) SetBaseURLs(base string) {
	s.quoteURL = base
	s.klineURL = base
}
