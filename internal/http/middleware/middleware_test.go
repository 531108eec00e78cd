package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/models"
	"github.com/router-for-me/ReportStudio/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	provider := func() ratelimit.SettingsConfig { return ratelimit.SettingsConfig{Rate: 2} }
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	manager := ratelimit.NewManager(provider, func() time.Time { return now }, nil)
	t.Cleanup(manager.Close)

	r := gin.New()
	r.Use(RateLimit(manager, nil))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if i == 0 {
			assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func headerCaller(c *gin.Context) ratelimit.Caller {
	return ratelimit.Caller{UserID: c.GetHeader("X-User"), Tier: models.SubscriptionTier(c.GetHeader("X-Tier"))}
}

func TestRateLimit_SeparatesUsers(t *testing.T) {
	provider := func() ratelimit.SettingsConfig { return ratelimit.SettingsConfig{Rate: 1} }
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	manager := ratelimit.NewManager(provider, func() time.Time { return now }, nil)
	t.Cleanup(manager.Close)

	r := gin.New()
	r.Use(RateLimit(manager, headerCaller))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for _, user := range []string{"alice", "bob"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-User", user)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "first request for %s", user)
	}
}

func TestRateLimit_UsesTierRate(t *testing.T) {
	provider := func() ratelimit.SettingsConfig {
		return ratelimit.SettingsConfig{
			Rate: 1,
			TierRates: map[models.SubscriptionTier]int{
				models.TierPremium:    3,
				models.TierEnterprise: 0,
			},
		}
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	manager := ratelimit.NewManager(provider, func() time.Time { return now }, nil)
	t.Cleanup(manager.Close)

	r := gin.New()
	r.Use(RateLimit(manager, headerCaller))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	send := func(user, tier string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-User", user)
		req.Header.Set("X-Tier", tier)
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("free-user", "free").Code)
	assert.Equal(t, http.StatusTooManyRequests, send("free-user", "free").Code)

	for i := 0; i < 3; i++ {
		w := send("premium-user", "premium")
		require.Equal(t, http.StatusOK, w.Code, "premium request %d", i)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusTooManyRequests, send("premium-user", "premium").Code)

	for i := 0; i < 5; i++ {
		w := send("big-user", "enterprise")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	provider := func() ratelimit.SettingsConfig { return ratelimit.SettingsConfig{} }
	manager := ratelimit.NewManager(provider, nil, nil)
	t.Cleanup(manager.Close)

	r := gin.New()
	r.Use(RateLimit(manager, nil))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestMetrics_ExposesRequestCounter(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", MetricsHandler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `reportstudio_http_requests_total{method="GET",path="/ping",status="200"}`), "metrics body missing request counter")
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(func(c *gin.Context) string { return "user-1" }))
	r.GET("/missing", func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"message": "nope"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
