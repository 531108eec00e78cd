package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/oauth"
	"github.com/router-for-me/ReportStudio/internal/store"
	log "github.com/sirupsen/logrus"
)

// OAuthHandler runs the data source authorization flow.
type OAuthHandler struct {
	oauth       *oauth.Service
	store       *store.GormDataSourceStore
	frontendURL string
}

// NewOAuthHandler constructs an OAuthHandler.
func NewOAuthHandler(svc *oauth.Service, s *store.GormDataSourceStore, frontendURL string) *OAuthHandler {
	return &OAuthHandler{oauth: svc, store: s, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// Authorize redirects the signed-in user to the provider consent page.
func (h *OAuthHandler) Authorize(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	authURL, errURL := h.oauth.AuthURL(provider, userID)
	if errURL != nil {
		respondMessage(c, http.StatusBadRequest, errURL.Error())
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the flow and marks the provider's data source connected.
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	code := strings.TrimSpace(c.Query("code"))
	state := strings.TrimSpace(c.Query("state"))
	if code == "" || state == "" {
		respondMessage(c, http.StatusBadRequest, oauth.ErrInvalidState.Error())
		return
	}
	userID, errState := h.oauth.VerifyState(provider, state)
	if errState != nil {
		respondMessage(c, http.StatusBadRequest, errState.Error())
		return
	}

	ctx := c.Request.Context()
	tokens, errExchange := h.oauth.Exchange(ctx, provider, code)
	if errExchange != nil {
		status := http.StatusInternalServerError
		if errors.Is(errExchange, oauth.ErrUnknownProvider) || errors.Is(errExchange, oauth.ErrNotConfigured) {
			status = http.StatusBadRequest
		}
		log.WithError(errExchange).WithField("provider", provider).Warn("oauth: code exchange failed")
		respondMessage(c, status, errExchange.Error())
		return
	}
	if _, errConnect := h.store.Connect(ctx, userID, provider, tokens, time.Now().UTC()); errConnect != nil {
		respondMessage(c, http.StatusInternalServerError, errConnect.Error())
		return
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/data-sources?connected="+url.QueryEscape(provider))
}
