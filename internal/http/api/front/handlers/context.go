package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/models"
	"github.com/router-for-me/ReportStudio/internal/ratelimit"
)

// SessionCookieName is the cookie carrying the session token for browser redirects.
const SessionCookieName = "session"

const (
	contextUserIDKey = "userID"
	contextUserKey   = "user"
)

// SetCurrentUser stores the authenticated user on the request context.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(contextUserIDKey, user.ID)
	c.Set(contextUserKey, user)
}

// getUserID returns the authenticated user ID or "".
func getUserID(c *gin.Context) string {
	if v, ok := c.Get(contextUserIDKey); ok {
		if id, okID := v.(string); okID {
			return id
		}
	}
	return ""
}

// getUser returns the authenticated user or nil.
func getUser(c *gin.Context) *models.User {
	if v, ok := c.Get(contextUserKey); ok {
		if user, okUser := v.(*models.User); okUser {
			return user
		}
	}
	return nil
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func TokenFromRequest(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if token := strings.TrimPrefix(authHeader, "Bearer "); token != authHeader {
			return strings.TrimSpace(token)
		}
	}
	if cookie, errCookie := c.Cookie(SessionCookieName); errCookie == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// respondMessage writes the standard {message} error body.
func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// requireUser writes 401 and returns "" when nobody is signed in.
func requireUser(c *gin.Context) string {
	userID := getUserID(c)
	if userID == "" {
		respondMessage(c, http.StatusUnauthorized, "Not authenticated")
	}
	return userID
}

// CurrentUserID returns the authenticated user ID or "" for middleware outside this package.
func CurrentUserID(c *gin.Context) string {
	return getUserID(c)
}

// CurrentCaller returns the signed-in account and its tier for rate limiting,
// or a zero Caller on public routes.
func CurrentCaller(c *gin.Context) ratelimit.Caller {
	user := getUser(c)
	if user == nil {
		return ratelimit.Caller{}
	}
	return ratelimit.Caller{UserID: user.ID, Tier: user.SubscriptionTier}
}
