package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/ratelimit"
	log "github.com/sirupsen/logrus"
)

// CallerFunc returns the signed-in account of a request, or a zero Caller.
type CallerFunc func(c *gin.Context) ratelimit.Caller

// RateLimit enforces the per-second request rate of the caller's tier.
// Anonymous requests are limited per client address. Limiter failures let
// the request through.
func RateLimit(manager *ratelimit.Manager, caller CallerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var who ratelimit.Caller
		if caller != nil {
			who = caller(c)
		}
		result, errCheck := manager.Check(c.Request.Context(), who, c.ClientIP())
		if errCheck != nil {
			log.WithError(errCheck).Warn("rate limit: check failed")
			c.Next()
			return
		}
		if result.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))
		}
		if !result.Allowed {
			rateLimitedTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}
		c.Next()
	}
}
