package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practicum/backend/config"
	"practicum/backend/internal/model"
	"practicum/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "middleware-test-secret-2026",
		AccessTokenTTL: 15 * time.Minute,
	})
}

// ──────────────────────────── JWTAuth ────────────────────────────

func TestJWTAuth(t *testing.T) {
	mgr := newTestJWT()
	valid, _ := mgr.GenerateAccessToken("sv-1", "school_supervisor")
	unknownRole, _ := mgr.GenerateAccessToken("x-1", "mentor")
	other := jwt.NewManager(&config.AuthConfig{JWTSecret: "another-secret", AccessTokenTTL: time.Minute})
	forged, _ := other.GenerateAccessToken("sv-1", "admin")

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", "Bearer " + valid, 200},
		{"missing_header", "", 401},
		{"bad_scheme", "Token " + valid, 401},
		{"forged", "Bearer " + forged, 401},
		{"unknown_role", "Bearer " + unknownRole, 401},
		{"garbage", "Bearer abc.def.ghi", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRole model.CallerRole
			var gotUser string

			r := gin.New()
			r.GET("/me", JWTAuth(mgr, nil, zap.NewNop()), func(c *gin.Context) {
				gotUser = c.GetString(ctxUserID)
				gotRole, _ = c.MustGet(ctxRole).(model.CallerRole)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == 200 {
				if gotUser != "sv-1" || gotRole != model.RoleSchoolSupervisor {
					t.Errorf("身份注入错误: user=%s role=%v", gotUser, gotRole)
				}
			}
		})
	}
}

// ──────────────────────────── RoleAuth ────────────────────────────

func TestRoleAuth(t *testing.T) {
	tests := []struct {
		name       string
		role       any
		wantStatus int
	}{
		{"admin_allowed", model.RoleAdmin, 200},
		{"student_denied", model.RoleStudent, 403},
		{"string_role_denied", "admin", 403},
		{"no_role", nil, 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/admin", func(c *gin.Context) {
				if tt.role != nil {
					c.Set(ctxRole, tt.role)
				}
				c.Next()
			}, RoleAuth(model.RoleAdmin), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

// ──────────────────────────── RequestID ────────────────────────────

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	t.Run("propagates", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/ping", nil)
		req.Header.Set(requestIDHeader, "gw-123")
		r.ServeHTTP(w, req)

		if got := w.Header().Get(requestIDHeader); got != "gw-123" {
			t.Errorf("expected gw-123, got %q", got)
		}
		if w.Body.String() != "gw-123" {
			t.Errorf("context request_id = %q", w.Body.String())
		}
	})

	t.Run("regenerates_invalid", func(t *testing.T) {
		for _, bad := range []string{strings.Repeat("a", 65), "a b", "x\ty"} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ping", nil)
			req.Header.Set(requestIDHeader, bad)
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got == bad || len(got) != 36 {
				t.Errorf("非法 ID %q 应被替换为 UUID，got %q", bad, got)
			}
		}
	})
}

// ──────────────────────────── BodyLimit ────────────────────────────

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/echo", strings.NewReader(`{"a":"short"}`)))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/echo", strings.NewReader(strings.Repeat("x", 64))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

// ──────────────────────────── CORS ────────────────────────────

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://practicum.example.edu/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "https://practicum.example.edu")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://practicum.example.edu" {
		t.Errorf("allowed origin not echoed, got %q", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/x", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight expected 204, got %d", w.Code)
	}
}

func TestRateLimit_NilRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.POST("/auto", RateLimit(nil, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/auto", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}
