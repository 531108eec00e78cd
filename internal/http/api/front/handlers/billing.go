package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/billing"
	log "github.com/sirupsen/logrus"
)

// maxWebhookBody bounds the Stripe webhook payload.
const maxWebhookBody = 64 << 10

// SubscriptionHandler handles Stripe subscription endpoints. Errors use the
// {error:{message}} body the payment form expects.
type SubscriptionHandler struct {
	billing *billing.Service
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(svc *billing.Service) *SubscriptionHandler {
	return &SubscriptionHandler{billing: svc}
}

// Create returns the user's subscription, creating a premium one when needed.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	user := getUser(c)
	if user == nil {
		respondMessage(c, http.StatusUnauthorized, "Not authenticated")
		return
	}
	sub, errSub := h.billing.CreateSubscription(c.Request.Context(), user)
	if errSub != nil {
		log.WithError(errSub).WithField("user_id", user.ID).Warn("billing: create subscription failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": errSub.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subscriptionId": sub.ID,
		"clientSecret":   sub.ClientSecret,
	})
}

// Webhook applies signed Stripe subscription events.
func (h *SubscriptionHandler) Webhook(c *gin.Context) {
	payload, errRead := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "read body failed"}})
		return
	}
	if errHandle := h.billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); errHandle != nil {
		log.WithError(errHandle).Warn("billing: webhook rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": errHandle.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
