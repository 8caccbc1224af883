package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/trace"
)

func serveWithRequestID(t *testing.T, pre gin.HandlerFunc, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if pre != nil {
		router.Use(pre)
	}
	router.Use(RequestID())
	var seen string
	router.GET("/", func(c *gin.Context) {
		seen, _ = trace.GetTraceId(c.Request.Context())
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("X-Request-Id", header)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp, seen
}

func TestRequestIDEchoesExistingTraceID(t *testing.T) {
	// the engine's trace middleware runs first in production; the echoed
	// header must be the id the logger sees, not a second one
	pre := func(c *gin.Context) {
		c.Request = c.Request.WithContext(trace.WithTraceId(c.Request.Context(), "trace-abc"))
		c.Next()
	}
	resp, seen := serveWithRequestID(t, pre, "")
	assert.Equal(t, "trace-abc", resp.Header().Get("X-Request-Id"))
	assert.Equal(t, "trace-abc", seen)
}

func TestRequestIDAdoptsClientHeader(t *testing.T) {
	resp, seen := serveWithRequestID(t, nil, "client-supplied")
	assert.Equal(t, "client-supplied", resp.Header().Get("X-Request-Id"))
	assert.Equal(t, "client-supplied", seen)
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	resp, seen := serveWithRequestID(t, nil, "")
	echoed := resp.Header().Get("X-Request-Id")
	require.NotEmpty(t, echoed)
	assert.Equal(t, echoed, seen)
}
