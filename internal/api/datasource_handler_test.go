package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"stockaggr/internal/datasource"
	"stockaggr/internal/logging"
)

func newAdminRouter(t *testing.T, manager *datasource.Manager, store datasource.Store) *gin.Engine {
	t.Helper()
	h := NewDataSourceHandler(manager, store, logging.NewNopLogger())
	r := gin.New()
	r.GET("/api/v1/datasources", h.List)
	r.GET("/api/v1/datasources/:name", h.Get)
	r.PUT("/api/v1/datasources/:name", h.Update)
	r.POST("/api/v1/datasources/:name/reset", h.ResetBreaker)
	r.PUT("/api/v1/datasources/priorities", h.UpdatePriorities)
	return r
}

func TestDataSourceList(t *testing.T) {
	store := newFakeStore(
		enabledConfig(datasource.SourceEastmoney),
		enabledConfig(datasource.SourceSina),
	)
	manager := newTestManager(t, store, map[string]datasource.Adapter{
		datasource.SourceEastmoney: &indexAdapter{},
		datasource.SourceSina:      &indexAdapter{},
	})
	router := newAdminRouter(t, manager, store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/datasources", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var env successEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var statuses []datasource.SourceStatus
	if err := json.Unmarshal(env.Data, &statuses); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(statuses) != 2 {
		t.Errorf("expected 2 sources, got %d", len(statuses))
	}
}

func TestDataSourceUpdatePartial(t *testing.T) {
	store := newFakeStore(enabledConfig(datasource.SourceEastmoney))
	manager := newTestManager(t, store, map[string]datasource.Adapter{
		datasource.SourceEastmoney: &indexAdapter{},
	})
	router := newAdminRouter(t, manager, store)

	// Only priority changes; everything else keeps its stored value.
	body := strings.NewReader(`{"priority": 9}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/datasources/eastmoney", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var env successEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var status datasource.SourceStatus
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode data: %v", err)
	}

	// 写入后立即生效
	if status.Priority != 9 {
		t.Errorf("priority = %d, want 9", status.Priority)
	}
	if !status.Enabled || status.FailureThreshold != 3 {
		t.Errorf("expected untouched fields preserved, got %+v", status)
	}
}

func TestDataSourceUpdateRejectsBadThreshold(t *testing.T) {
	store := newFakeStore(enabledConfig(datasource.SourceEastmoney))
	manager := newTestManager(t, store, map[string]datasource.Adapter{
		datasource.SourceEastmoney: &indexAdapter{},
	})
	router := newAdminRouter(t, manager, store)

	body := strings.NewReader(`{"failure_threshold": 0}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/datasources/eastmoney", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDataSourceUpdateUnknownSource(t *testing.T) {
	store := newFakeStore(enabledConfig(datasource.SourceEastmoney))
	manager := newTestManager(t, store, map[string]datasource.Adapter{
		datasource.SourceEastmoney: &indexAdapter{},
	})
	router := newAdminRouter(t, manager, store)

	body := strings.NewReader(`{"priority": 1}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/datasources/nope", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		t.Errorf("expected error for unknown source, got 200: %s", w.Body.String())
	}
}

func TestDataSourceResetBreaker(t *testing.T) {
	store := newFakeStore(enabledConfig(datasource.SourceEastmoney))
	manager := newTestManager(t, store, map[string]datasource.Adapter{
		datasource.SourceEastmoney: &indexAdapter{},
	})
	router := newAdminRouter(t, manager, store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/datasources/eastmoney/reset", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/datasources/nope/reset", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown source", w.Code)
	}
}

func TestDataSourceUpdatePriorities(t *testing.T) {
	store := newFakeStore(
		enabledConfig(datasource.SourceEastmoney),
		enabledConfig(datasource.SourceSina),
	)
	manager := newTestManager(t, store, map[string]datasource.Adapter{
		datasource.SourceEastmoney: &indexAdapter{},
		datasource.SourceSina:      &indexAdapter{},
	})
	router := newAdminRouter(t, manager, store)

	body := strings.NewReader(`{"eastmoney": 5, "sina": 1}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/datasources/priorities", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var env successEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var statuses []datasource.SourceStatus
	if err := json.Unmarshal(env.Data, &statuses); err != nil {
		t.Fatalf("decode data: %v", err)
	}

	// Statuses are ordered by priority; sina moves ahead of eastmoney.
	if statuses[0].Name != datasource.SourceSina || statuses[0].Priority != 1 {
		t.Errorf("unexpected first status: %+v", statuses[0])
	}
	if statuses[1].Priority != 5 {
		t.Errorf("eastmoney priority = %d, want 5", statuses[1].Priority)
	}
}

func TestDataSourceUpdatePrioritiesEmptyBody(t *testing.T) {
	store := newFakeStore(enabledConfig(datasource.SourceEastmoney))
	manager := newTestManager(t, store, map[string]datasource.Adapter{
		datasource.SourceEastmoney: &indexAdapter{},
	})
	router := newAdminRouter(t, manager, store)

	body := strings.NewReader(`{}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/datasources/priorities", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
