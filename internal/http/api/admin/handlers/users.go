package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	dbutil "github.com/router-for-me/ReportStudio/internal/db"
	"github.com/router-for-me/ReportStudio/internal/models"
	internalsettings "github.com/router-for-me/ReportStudio/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 200
)

// UserHandler lets operators inspect accounts and adjust tiers and usage.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// List returns users filtered by search text and tier, newest first.
func (h *UserHandler) List(c *gin.Context) {
	var (
		searchQ = strings.TrimSpace(c.Query("search"))
		tierQ   = strings.TrimSpace(c.Query("tier"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if searchQ != "" {
		pattern := dbutil.ContainsPattern(h.db, searchQ)
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "username")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "email"),
			pattern,
			pattern,
		)
	}
	if tierQ != "" {
		tier := models.SubscriptionTier(strings.ToLower(tierQ))
		if !tier.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
			return
		}
		q = q.Where("subscription_tier = ?", tier)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count users failed"})
		return
	}

	limit := parsePageParam(c.Query("limit"), defaultUserPageSize)
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}
	offset := parsePageParam(c.Query("offset"), 0)

	var rows []models.User
	if errFind := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatUser(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "total": total})
}

// Get returns a user by ID.
func (h *UserHandler) Get(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatUser(user))
}

// updateTierRequest defines the request body for tier changes.
type updateTierRequest struct {
	Tier       string `json:"tier"`
	ResetUsage bool   `json:"reset_usage"`
}

// UpdateTier moves a user to another tier and applies that tier's limit.
func (h *UserHandler) UpdateTier(c *gin.Context) {
	var body updateTierRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	tier := models.SubscriptionTier(strings.ToLower(strings.TrimSpace(body.Tier)))
	if !tier.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
		return
	}
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	updates := map[string]any{
		"subscription_tier": tier,
		"api_limit":         internalsettings.TierLimit(tier),
	}
	if body.ResetUsage {
		updates["api_usage"] = 0
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update user failed"})
		return
	}
	log.WithFields(log.Fields{"user_id": user.ID, "tier": tier}).Info("admin: tier changed")
	h.respondFresh(c, user.ID)
}

// ResetUsage zeroes the user's generation counter for the current period.
func (h *UserHandler) ResetUsage(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("api_usage", 0).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset usage failed"})
		return
	}
	h.respondFresh(c, user.ID)
}

func (h *UserHandler) loadUser(c *gin.Context) (*models.User, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("id = ?", id).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	return &user, true
}

func (h *UserHandler) respondFresh(c *gin.Context, id string) {
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("id = ?", id).First(&user).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatUser(&user))
}

func parsePageParam(raw string, def int) int {
	parsed, errParse := strconv.Atoi(strings.TrimSpace(raw))
	if errParse != nil || parsed < 0 {
		return def
	}
	return parsed
}

// formatUser renders a user for operators. The password hash is never included.
func formatUser(u *models.User) gin.H {
	return gin.H{
		"id":                     u.ID,
		"username":               u.Username,
		"email":                  u.Email,
		"subscription_tier":      u.SubscriptionTier,
		"stripe_customer_id":     u.StripeCustomerID,
		"stripe_subscription_id": u.StripeSubscriptionID,
		"api_usage":              u.APIUsage,
		"api_limit":              u.APILimit,
		"usage_period_start":     u.UsagePeriodStart,
		"created_at":             u.CreatedAt,
		"updated_at":             u.UpdatedAt,
	}
}
