package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// tushareRequest mirrors the RPC envelope for request assertions
type tushareRequest struct {
	APIName string                 `json:"api_name"`
	Token   string                 `json:"token"`
	Params  map[string]interface{} `json:"params"`
	Fields  string                 `json:"fields"`
}

func TestTushareFetchKline(t *testing.T) {
	var req tushareRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// 最新在前
		fmt.Fprint(w, `{"code":0,"msg":"","data":{
			"fields":["ts_code","trade_date","open","high","low","close","vol","amount"],
			"items":[
				["600000.SH","20240604",10.40,10.60,10.20,10.30,980.0,1010.0],
				["600000.SH","20240603",10.10,10.50,10.00,10.40,1200.0,1250.0]
			]}}`)
	}))
	defer srv.Close()

	ts := NewTushare(time.Second)
	ts.SetBaseURL(srv.URL)
	ts.SetCredential("tok-123")

	ks, err := ts.FetchKline(context.Background(), "600000.SH", "daily", 120)
	if err != nil {
		t.Fatalf("FetchKline: %v", err)
	}

	if req.APIName != "daily" {
		t.Errorf("api_name = %q, want daily", req.APIName)
	}
	if req.Token != "tok-123" {
		t.Errorf("expected token in request body, got %q", req.Token)
	}
	if req.Params["ts_code"] != "600000.SH" {
		t.Errorf("ts_code = %v", req.Params["ts_code"])
	}

	if len(ks) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(ks))
	}
	// 按时间升序返回
	if !ks[0].OpenTime.Before(ks[1].OpenTime) {
		t.Errorf("expected chronological order, got %v then %v", ks[0].OpenTime, ks[1].OpenTime)
	}
	if ks[0].Volume != 120000 {
		t.Errorf("volume = %v, want 手 converted to 120000 股", ks[0].Volume)
	}
	if ks[0].Turnover != 1250000 {
		t.Errorf("turnover = %v, want 千元 converted to 1250000 元", ks[0].Turnover)
	}
}

func TestTushareFetchKlineLimitTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"msg":"","data":{
			"fields":["ts_code","trade_date","open","high","low","close","vol","amount"],
			"items":[
				["600000.SH","20240605",10.3,10.4,10.2,10.3,100.0,100.0],
				["600000.SH","20240604",10.4,10.6,10.2,10.3,100.0,100.0],
				["600000.SH","20240603",10.1,10.5,10.0,10.4,100.0,100.0]
			]}}`)
	}))
	defer srv.Close()

	ts := NewTushare(time.Second)
	ts.SetBaseURL(srv.URL)
	ts.SetCredential("tok-123")

	ks, err := ts.FetchKline(context.Background(), "600000.SH", "daily", 2)
	if err != nil {
		t.Fatalf("FetchKline: %v", err)
	}
	if len(ks) != 2 {
		t.Fatalf("expected tail-limited 2 bars, got %d", len(ks))
	}
	// Keep the newest bars when truncating.
	want := time.Date(2024, 6, 5, 0, 0, 0, 0, time.Local)
	if !ks[1].OpenTime.Equal(want) {
		t.Errorf("last bar = %v, want %v", ks[1].OpenTime, want)
	}
}

func TestTushareErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":2002,"msg":"token invalid","data":null}`)
	}))
	defer srv.Close()

	ts := NewTushare(time.Second)
	ts.SetBaseURL(srv.URL)
	ts.SetCredential("bad-token")

	_, err := ts.FetchKline(context.Background(), "600000.SH", "daily", 10)
	if err == nil {
		t.Fatal("expected error on non-zero code")
	}
}

func TestTushareFetchMoneyFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"msg":"","data":{
			"fields":["ts_code","trade_date","net_mf_amount","buy_sm_amount","sell_sm_amount","buy_md_amount","sell_md_amount","buy_lg_amount","sell_lg_amount","buy_elg_amount","sell_elg_amount"],
			"items":[["600000.SH","20240604",250.0,100.0,150.0,200.0,270.0,300.0,180.0,400.0,270.0]]}}`)
	}))
	defer srv.Close()

	ts := NewTushare(time.Second)
	ts.SetBaseURL(srv.URL)
	ts.SetCredential("tok-123")

	flow, err := ts.FetchMoneyFlow(context.Background(), "600000.SH")
	if err != nil {
		t.Fatalf("FetchMoneyFlow: %v", err)
	}

	// 万元换算为元，各档取净买入
	if flow.MainInflow != 2500000 {
		t.Errorf("main inflow = %v, want 2500000", flow.MainInflow)
	}
	if flow.SmallInflow != -500000 {
		t.Errorf("small inflow = %v, want buy-sell diff -500000", flow.SmallInflow)
	}
	if flow.LargeInflow != 1200000 || flow.SuperInflow != 1300000 {
		t.Errorf("unexpected large/super buckets: %+v", flow)
	}
}

func TestTushareFetchLongTiger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tushareRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.APIName != "top_list" {
			t.Errorf("api_name = %q, want top_list", req.APIName)
		}
		if req.Params["trade_date"] != "20240604" {
			t.Errorf("trade_date = %v", req.Params["trade_date"])
		}
		fmt.Fprint(w, `{"code":0,"msg":"","data":{
			"fields":["ts_code","name","trade_date","explain","pct_change","net_amount","l_buy","l_sell"],
			"items":[["600000.SH","浦发银行","20240604","日涨幅偏离值达7%",9.98,5200.0,9200.0,4000.0]]}}`)
	}))
	defer srv.Close()

	ts := NewTushare(time.Second)
	ts.SetBaseURL(srv.URL)
	ts.SetCredential("tok-123")

	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.Local)
	entries, err := ts.FetchLongTiger(context.Background(), date)
	if err != nil {
		t.Fatalf("FetchLongTiger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].NetBuy != 52000000 {
		t.Errorf("net buy = %v, want 万元 converted", entries[0].NetBuy)
	}
}

func TestTushareFetchLimitPools(t *testing.T) {
	var limitTypes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tushareRequest
		json.NewDecoder(r.Body).Decode(&req)
		if lt, ok := req.Params["limit_type"].(string); ok {
			limitTypes = append(limitTypes, lt)
		}
		fmt.Fprint(w, `{"code":0,"msg":"","data":{
			"fields":["ts_code","name","close","pct_chg","amount","fd_amount","first_time","open_times"],
			"items":[["603123.SH","翠微股份",12.34,10.01,520000.0,86000000.0,"093015",2.0]]}}`)
	}))
	defer srv.Close()

	ts := NewTushare(time.Second)
	ts.SetBaseURL(srv.URL)
	ts.SetCredential("tok-123")
	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.Local)

	up, err := ts.FetchLimitUpPool(context.Background(), date)
	if err != nil {
		t.Fatalf("FetchLimitUpPool: %v", err)
	}
	if _, err := ts.FetchLimitDownPool(context.Background(), date); err != nil {
		t.Fatalf("FetchLimitDownPool: %v", err)
	}

	if len(limitTypes) != 2 || limitTypes[0] != "U" || limitTypes[1] != "D" {
		t.Errorf("expected limit types [U D], got %v", limitTypes)
	}
	if up[0].FirstSealTime != "093015" || up[0].OpenCount != 2 {
		t.Errorf("unexpected pool row: %+v", up[0])
	}
}

func TestLastTradeDateSkipsWeekends(t *testing.T) {
	// 2024-06-08 is a Saturday; the preceding trading day is Friday the 7th.
	saturday := time.Date(2024, 6, 8, 12, 0, 0, 0, time.Local)
	if got := lastTradeDate(saturday); got != "20240607" {
		t.Errorf("lastTradeDate(saturday) = %q, want 20240607", got)
	}

	sunday := time.Date(2024, 6, 9, 12, 0, 0, 0, time.Local)
	if got := lastTradeDate(sunday); got != "20240607" {
		t.Errorf("lastTradeDate(sunday) = %q, want 20240607", got)
	}

	wednesday := time.Date(2024, 6, 5, 12, 0, 0, 0, time.Local)
	if got := lastTradeDate(wednesday); got != "20240605" {
		t.Errorf("lastTradeDate(wednesday) = %q, want same day", got)
	}
}
