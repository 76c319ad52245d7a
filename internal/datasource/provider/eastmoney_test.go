package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSecID(t *testing.T) {
	cases := []struct {
		symbol string
		want   string
	}{
		{"600000.SH", "1.600000"},
		{"000001.SZ", "0.000001"},
		{"430047.BJ", "0.430047"},
		{"600000", "1.600000"},
		{"510300", "1.510300"},
		{"000001", "0.000001"},
		{"300750", "0.300750"},
	}
	for _, c := range cases {
		if got := secID(c.symbol); got != c.want {
			t.Errorf("secID(%q) = %q, want %q", c.symbol, got, c.want)
		}
	}
}

func TestEastmoneyFetchKline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/qt/stock/kline/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("secid"); got != "1.600000" {
			t.Errorf("secid = %q, want 1.600000", got)
		}
		if got := r.URL.Query().Get("klt"); got != "101" {
			t.Errorf("klt = %q, want 101", got)
		}
		fmt.Fprint(w, `{"data":{"code":"600000","klines":[
			"2024-06-03,10.10,10.40,10.50,10.00,120000,125000000.0",
			"2024-06-04,10.40,10.30,10.60,10.20,98000,101000000.0"
		]}}`)
	}))
	defer srv.Close()

	e := NewEastmoney(time.Second)
	e.SetBaseURLs(srv.URL)

	ks, err := e.FetchKline(context.Background(), "600000.SH", "daily", 120)
	if err != nil {
		t.Fatalf("FetchKline: %v", err)
	}
	if len(ks) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(ks))
	}

	first := ks[0]
	if first.Symbol != "600000.SH" || first.Period != "daily" {
		t.Errorf("unexpected identity fields: %+v", first)
	}
	if first.Open != 10.10 || first.Close != 10.40 || first.High != 10.50 || first.Low != 10.00 {
		t.Errorf("unexpected OHLC: %+v", first)
	}
	if first.Volume != 120000 {
		t.Errorf("volume = %v, want 120000", first.Volume)
	}
	wantTime := time.Date(2024, 6, 3, 0, 0, 0, 0, time.Local)
	if !first.OpenTime.Equal(wantTime) {
		t.Errorf("open time = %v, want %v", first.OpenTime, wantTime)
	}
}

func TestEastmoneyFetchKlineUnsupportedPeriod(t *testing.T) {
	e := NewEastmoney(time.Second)
	if _, err := e.FetchKline(context.Background(), "600000.SH", "3m", 10); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestEastmoneyFetchQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// fltt=1 时价格为百倍整数
		fmt.Fprint(w, `{"data":{"diff":[
			{"f2":1042,"f3":125,"f5":120000,"f6":125000000,"f12":"600000","f14":"浦发银行","f15":1050,"f16":1000,"f17":1010,"f18":1029}
		]}}`)
	}))
	defer srv.Close()

	e := NewEastmoney(time.Second)
	e.SetBaseURLs(srv.URL)

	qs, err := e.FetchQuotes(context.Background(), []string{"600000.SH"})
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if len(qs) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(qs))
	}

	q := qs[0]
	if q.Symbol != "600000.SH" || q.Name != "浦发银行" {
		t.Errorf("unexpected identity fields: %+v", q)
	}
	if q.Price != 10.42 {
		t.Errorf("price = %v, want 10.42 (scaled)", q.Price)
	}
	if q.PrevClose != 10.29 || q.Open != 10.10 {
		t.Errorf("unexpected scaled prices: %+v", q)
	}
	if q.ChangePercent != 1.25 {
		t.Errorf("change percent = %v, want 1.25", q.ChangePercent)
	}
	if q.Volume != 120000 {
		t.Errorf("volume must not be scaled, got %v", q.Volume)
	}
}

func TestEastmoneyFetchIndustryRank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("fs"); got != "m:90+t:2+f:!50" {
			t.Errorf("fs = %q, want industry universe", got)
		}
		fmt.Fprint(w, `{"data":{"diff":[
			{"f3":3.21,"f6":5200000000,"f12":"BK0475","f14":"银行","f62":120000000,"f104":30,"f105":8,"f128":"招商银行","f140":"600036"}
		]}}`)
	}))
	defer srv.Close()

	e := NewEastmoney(time.Second)
	e.SetBaseURLs(srv.URL)

	ranks, err := e.FetchIndustryRank(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchIndustryRank: %v", err)
	}
	if len(ranks) != 1 {
		t.Fatalf("expected 1 row, got %d", len(ranks))
	}

	r := ranks[0]
	if r.Code != "BK0475" || r.Name != "银行" {
		t.Errorf("unexpected board identity: %+v", r)
	}
	if r.ChangePercent != 3.21 || r.NetInflow != 120000000 {
		t.Errorf("unexpected figures: %+v", r)
	}
	if r.LeaderSymbol != "600036" || r.LeaderName != "招商银行" {
		t.Errorf("unexpected leader: %+v", r)
	}
	if r.RiseCount != 30 || r.FallCount != 8 {
		t.Errorf("unexpected counts: %+v", r)
	}
}

func TestEastmoneyFetchMoneyFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/qt/stock/fflow/daykline/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":{"klines":[
			"2024-06-03,1000000,-200000,-300000,400000,600000",
			"2024-06-04,2500000,-500000,-700000,1200000,1300000"
		]}}`)
	}))
	defer srv.Close()

	e := NewEastmoney(time.Second)
	e.SetBaseURLs(srv.URL)

	flow, err := e.FetchMoneyFlow(context.Background(), "600000.SH")
	if err != nil {
		t.Fatalf("FetchMoneyFlow: %v", err)
	}

	// 取最后一行
	if flow.MainInflow != 2500000 {
		t.Errorf("main inflow = %v, want last row 2500000", flow.MainInflow)
	}
	if flow.SmallInflow != -500000 || flow.SuperInflow != 1300000 {
		t.Errorf("unexpected buckets: %+v", flow)
	}
	wantDate := time.Date(2024, 6, 4, 0, 0, 0, 0, time.Local)
	if !flow.Date.Equal(wantDate) {
		t.Errorf("date = %v, want %v", flow.Date, wantDate)
	}
}

func TestEastmoneyFetchNorthFlowSkipsUnpopulatedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"s2n":[
			"09:30,120000,80000,200000",
			"09:31,150000,90000,240000",
			"09:32,-,-,-"
		]}}`)
	}))
	defer srv.Close()

	e := NewEastmoney(time.Second)
	e.SetBaseURLs(srv.URL)

	flow, err := e.FetchNorthFlow(context.Background())
	if err != nil {
		t.Fatalf("FetchNorthFlow: %v", err)
	}
	if flow.SHConnect != 150000 || flow.SZConnect != 90000 || flow.Total != 240000 {
		t.Errorf("expected last populated minute, got %+v", flow)
	}
}

func TestEastmoneyFetchLimitUpPool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getTopicZTPool" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "20240604" {
			t.Errorf("date = %q, want 20240604", got)
		}
		fmt.Fprint(w, `{"data":{"pool":[
			{"c":"603123","n":"翠微股份","p":12340,"zdp":10.01,"amount":520000000,"fund":86000000,"fbt":93015,"zbc":2}
		]}}`)
	}))
	defer srv.Close()

	e := NewEastmoney(time.Second)
	e.SetBaseURLs(srv.URL)

	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.Local)
	pool, err := e.FetchLimitUpPool(context.Background(), date)
	if err != nil {
		t.Fatalf("FetchLimitUpPool: %v", err)
	}
	if len(pool) != 1 {
		t.Fatalf("expected 1 stock, got %d", len(pool))
	}

	s := pool[0]
	if s.Price != 12.34 {
		t.Errorf("price = %v, want 12.34", s.Price)
	}
	if s.FirstSealTime != "093015" {
		t.Errorf("first seal time = %q, want zero-padded 093015", s.FirstSealTime)
	}
	if s.OpenCount != 2 {
		t.Errorf("open count = %v, want 2", s.OpenCount)
	}
}

func TestEastmoneyFetchLongTiger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/data/v1/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"result":{"data":[
			{"SECURITY_CODE":"600000","SECURITY_NAME_ABBR":"浦发银行","TRADE_DATE":"2024-06-04 00:00:00",
			 "EXPLANATION":"日涨幅偏离值达7%","CHANGE_RATE":9.98,"BILLBOARD_NET_AMT":52000000,
			 "BILLBOARD_BUY_AMT":92000000,"BILLBOARD_SELL_AMT":40000000}
		]}}`)
	}))
	defer srv.Close()

	e := NewEastmoney(time.Second)
	e.SetBaseURLs(srv.URL)

	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.Local)
	entries, err := e.FetchLongTiger(context.Background(), date)
	if err != nil {
		t.Fatalf("FetchLongTiger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].NetBuy != 52000000 || entries[0].Reason != "日涨幅偏离值达7%" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestEastmoneyFetchBoardDict(t *testing.T) {
	var universes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs := r.URL.Query().Get("fs")
		universes = append(universes, fs)
		fmt.Fprintf(w, `{"data":{"diff":[{"f12":"BK%03d","f14":"板块"}]}}`, len(universes))
	}))
	defer srv.Close()

	e := NewEastmoney(time.Second)
	e.SetBaseURLs(srv.URL)

	boards, err := e.FetchBoardDict(context.Background())
	if err != nil {
		t.Fatalf("FetchBoardDict: %v", err)
	}
	if len(boards) != 3 {
		t.Fatalf("expected one row per universe, got %d", len(boards))
	}
	if boards[0].Type != "industry" || boards[1].Type != "concept" || boards[2].Type != "region" {
		t.Errorf("unexpected board types: %+v", boards)
	}
	if len(universes) != 3 {
		t.Errorf("expected 3 universe queries, got %v", universes)
	}
}

func TestEastmoneyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewEastmoney(time.Second)
	e.SetBaseURLs(srv.URL)

	if _, err := e.FetchQuotes(context.Background(), []string{"600000.SH"}); err == nil {
		t.Error("expected error on non-200 response")
	}
}
