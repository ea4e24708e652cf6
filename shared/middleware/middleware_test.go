package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingMiddlewareAssignsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(LoggingMiddleware(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, 1, logs.FilterMessage("request completed").Len())
}

func TestLoggingMiddlewareKeepsCallerRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(LoggingMiddleware(zap.New(core)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	entries := logs.FilterMessage("request rejected").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
	}
}

type sampleRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=DEPOSIT WITHDRAWAL"`
	Phone string `json:"phone" validate:"max=5"`
}

func TestValidateRequest(t *testing.T) {
	assert.Nil(t, ValidateRequest(sampleRequest{Kind: "DEPOSIT"}))

	errs := ValidateRequest(sampleRequest{Kind: "REFUND", Phone: "0123456789"})
	if assert.Len(t, errs, 2) {
		assert.Equal(t, "Kind", errs[0].Field)
		assert.Equal(t, "oneof", errs[0].Type)
		assert.Equal(t, "Value must be one of: DEPOSIT WITHDRAWAL", errs[0].Message)
		assert.Equal(t, "max", errs[1].Type)
	}
}
