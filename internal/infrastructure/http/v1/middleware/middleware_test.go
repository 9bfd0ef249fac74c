package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serviceshop/internal/core/apperror"
	appctx "serviceshop/internal/core/context"
	"serviceshop/pkg/logger"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Trace(), Logger(logger.NewNop()), Recovery(), ErrorHandler())

	r.GET("/panic", func(c *gin.Context) { panic("lot table on fire") })
	r.GET("/plain", func(c *gin.Context) { _ = c.Error(errors.New("pool exhausted")) })
	r.GET("/short", func(c *gin.Context) {
		_ = c.Error(apperror.NewInsufficientStock("stock", 7, 3, 1))
	})
	r.GET("/meta", func(c *gin.Context) {
		c.String(http.StatusOK, appctx.RequestID(c.Request.Context()))
	})
	return r
}

func do(t *testing.T, r http.Handler, path string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestRecovery_RendersInternalError(t *testing.T) {
	w, body := do(t, newTestRouter(), "/panic", map[string]string{HeaderRequestID: "req-1"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, body["code"])
	assert.Equal(t, "req-1", body["details"].(map[string]any)["requestId"])
	assert.NotContains(t, w.Body.String(), "on fire")
}

func TestErrorHandler(t *testing.T) {
	r := newTestRouter()

	w, body := do(t, r, "/plain", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, body["code"])
	assert.NotContains(t, w.Body.String(), "pool exhausted")

	w, body = do(t, r, "/short", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInsufficientStock, body["code"])
}

func TestTrace_RequestIDs(t *testing.T) {
	r := newTestRouter()

	w, _ := do(t, r, "/meta", map[string]string{HeaderRequestID: "abc"})
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(HeaderTraceID))

	w, _ = do(t, r, "/meta", map[string]string{HeaderRequestID: strings.Repeat("x", maxInboundIDLen+1)})
	assert.Len(t, w.Body.String(), 36)
}

type stubVerifier map[string]*appctx.UserContext

func (s stubVerifier) Verify(raw string) (*appctx.UserContext, error) {
	if u, ok := s[raw]; ok {
		return u, nil
	}
	return nil, errors.New("bad token")
}

func TestAuth_RequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(), Auth(stubVerifier{
		"adm":  {UserID: "a", Role: appctx.RoleAdmin},
		"tech": {UserID: "t", Role: appctx.RoleTechnician},
		"cust": {UserID: "c", Role: appctx.RoleCustomer},
	}))
	r.GET("/staff", RequireRole(appctx.RoleTechnician), func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetUserID(c.Request.Context()))
	})

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"no header", "", http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"wrong scheme", "Basic tech", http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"customer", "Bearer cust", http.StatusForbidden, apperror.CodeForbidden},
		{"technician", "bearer tech", http.StatusOK, ""},
		{"admin", "Bearer adm", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.header != "" {
				header["Authorization"] = tt.header
			}
			w, body := do(t, r, "/staff", header)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
			}
		})
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://shop.example"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	preflight := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	preflight.Header.Set("Origin", "https://shop.example")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, preflight)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)

	other := httptest.NewRequest(http.MethodGet, "/ping", nil)
	other.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
