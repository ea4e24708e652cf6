// Package proxy forwards gateway requests to the customer and account
// services.
package proxy

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/eaglebank/banking/shared/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Upstream forwards requests to one backing service.
type Upstream struct {
	name    string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewUpstream(name, baseURL string, timeout time.Duration, log *zap.Logger) *Upstream {
	return &Upstream{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With(zap.String("upstream", name)),
	}
}

// Handler proxies the request path and query unchanged and relays the
// upstream response. The request ID set by the logging middleware is
// forwarded so both hops log under the same ID.
func (u *Upstream) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		targetURL := u.baseURL + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			targetURL += "?" + c.Request.URL.RawQuery
		}

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, bytes.NewReader(bodyBytes))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create request"})
			return
		}
		for key, values := range c.Request.Header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
		if id := c.GetString("requestId"); id != "" {
			req.Header.Set(middleware.RequestIDHeader, id)
		}

		resp, err := u.client.Do(req)
		if err != nil {
			u.log.Error("proxy request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"message": "Service unavailable"})
			return
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"message": "Failed to read response"})
			return
		}

		for key, values := range resp.Header {
			if key == "Content-Length" || key == middleware.RequestIDHeader {
				continue
			}
			for _, value := range values {
				c.Header(key, value)
			}
		}
		c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), respBody)
	}
}

// RegisterRoutes maps the public API onto the two services. Customer
// accounts are listed by the account service.
func RegisterRoutes(r gin.IRouter, customers, accounts *Upstream) {
	v1 := r.Group("/v1")

	v1.POST("/customers", customers.Handler())
	v1.GET("/customers", customers.Handler())
	v1.GET("/customers/:customerId", customers.Handler())
	v1.PATCH("/customers/:customerId", customers.Handler())
	v1.DELETE("/customers/:customerId", customers.Handler())
	v1.GET("/customers/:customerId/accounts", accounts.Handler())

	v1.Any("/accounts", accounts.Handler())
	v1.Any("/accounts/*path", accounts.Handler())
	v1.Any("/movements", accounts.Handler())
	v1.Any("/movements/*path", accounts.Handler())
	v1.GET("/reports", accounts.Handler())
}
