package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func rateLimitedRouter(limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ping", NewRateLimiter(limit).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doRequest(router *gin.Engine, ip string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Forwarded-For", ip)
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	router := rateLimitedRouter(5)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, "1.2.3.4"))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "1.2.3.4"))
}

func TestRateLimiterPerIP(t *testing.T) {
	router := rateLimitedRouter(2)

	assert.Equal(t, http.StatusOK, doRequest(router, "1.1.1.1"))
	assert.Equal(t, http.StatusOK, doRequest(router, "1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "1.1.1.1"))

	// A different client still has a full bucket.
	assert.Equal(t, http.StatusOK, doRequest(router, "2.2.2.2"))
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "10.0.0.9, 172.16.0.1")

	assert.Equal(t, "10.0.0.9", ClientIP(c))
}
