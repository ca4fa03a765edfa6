package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	rid := w.Header().Get(RequestIDHeader)
	if len(rid) != 32 || w.Body.String() != rid {
		t.Errorf("expected 32 char hex id echoed, got header %q body %q", rid, w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("expected caller id to be reused, got %q", w.Header().Get(RequestIDHeader))
	}
}

func TestErrorBoundaryLogsPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := gin.New()
	r.Use(RequestID(), ErrorBoundary(zap.New(core)), OptionalAuth())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	token, _ := utils.GenerateToken(9, "u@test.com", "customer")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	entries := logs.FilterMessage("UNHANDLED_EXCEPTION").All()
	if len(entries) != 1 {
		t.Fatalf("expected one UNHANDLED_EXCEPTION, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/boom" || fields["method"] != "GET" || fields["request_id"] != "rid-1" || fields["user_id"] != uint64(9) {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestSecurityEvents(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := gin.New()
	r.Use(RequestID(), SecurityEvents(zap.New(core)))
	r.GET("/*path", func(c *gin.Context) {
		if c.Param("path") == "/forbidden" {
			c.Status(http.StatusForbidden)
			return
		}
		c.Status(http.StatusNotFound)
	})

	for _, path := range []string{"/.env", "/WP-Admin/setup.php", "/products", "/forbidden"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if n := logs.FilterMessage("SUSPICIOUS_PATH").Len(); n != 2 {
		t.Errorf("expected 2 suspicious paths, got %d", n)
	}
	denied := logs.FilterMessage("PERMISSION_DENIED").All()
	if len(denied) != 1 || denied[0].ContextMap()["path"] != "/forbidden" {
		t.Errorf("expected one PERMISSION_DENIED, got %v", denied)
	}
}
