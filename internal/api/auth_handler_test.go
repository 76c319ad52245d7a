package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"stockaggr/internal/auth"
	"stockaggr/internal/config"
	"stockaggr/internal/logging"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.JWTManager) {
	t.Helper()
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	jwtManager := auth.NewJWTManager("test-signing-key", time.Hour)
	h := NewAuthHandler(jwtManager, &config.AdminConfig{
		Username:     "admin",
		PasswordHash: hash,
	}, logging.NewNopLogger())

	r := gin.New()
	r.POST("/api/v1/auth/login", h.Login)
	return r, jwtManager
}

func TestLoginSuccess(t *testing.T) {
	router, jwtManager := newAuthRouter(t)

	body := strings.NewReader(`{"username":"admin","password":"s3cret"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Token == "" {
		t.Fatal("expected a token in the response")
	}

	// 签发的令牌必须可验证
	claims, err := jwtManager.ValidateToken(resp.Data.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Username != "admin" {
		t.Errorf("claims username = %q, want admin", claims.Username)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newAuthRouter(t)

	body := strings.NewReader(`{"username":"admin","password":"wrong"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	router, _ := newAuthRouter(t)

	body := strings.NewReader(`{"username":"root","password":"s3cret"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLoginMissingFields(t *testing.T) {
	router, _ := newAuthRouter(t)

	body := strings.NewReader(`{"username":"admin"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
