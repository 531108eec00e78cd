package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/config"
	"github.com/router-for-me/ReportStudio/internal/models"
	"github.com/router-for-me/ReportStudio/internal/security"
	internalsettings "github.com/router-for-me/ReportStudio/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthHandler handles registration, login and session endpoints.
type AuthHandler struct {
	db            *gorm.DB
	jwtCfg        config.JWTConfig
	secureCookies bool
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, secureCookies bool) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, secureCookies: secureCookies}
}

// registerRequest defines the request body for registration.
type registerRequest struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user account and signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Username == "" || body.Email == "" || body.Password == "" {
		respondMessage(c, http.StatusBadRequest, "Username, email and password are required")
		return
	}
	if !strings.Contains(body.Email, "@") {
		respondMessage(c, http.StatusBadRequest, "Invalid email address")
		return
	}

	ctx := c.Request.Context()
	var existing int64
	if errCount := h.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ? OR username = ?", body.Email, body.Username).
		Count(&existing).Error; errCount != nil {
		respondMessage(c, http.StatusInternalServerError, "check user failed")
		return
	}
	if existing > 0 {
		respondMessage(c, http.StatusBadRequest, "User already exists")
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		respondMessage(c, http.StatusBadRequest, errHash.Error())
		return
	}
	user := &models.User{
		Username:         body.Username,
		Email:            body.Email,
		Password:         hash,
		FirstName:        trimmedOrNil(body.FirstName),
		LastName:         trimmedOrNil(body.LastName),
		SubscriptionTier: models.TierFree,
		APILimit:         internalsettings.TierLimit(models.TierFree),
	}
	if errCreate := h.db.WithContext(ctx).Create(user).Error; errCreate != nil {
		log.WithError(errCreate).Error("auth: create user failed")
		respondMessage(c, http.StatusInternalServerError, "create user failed")
		return
	}
	h.startSession(c, user)
}

// Login verifies email and password and starts a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || body.Password == "" {
		respondMessage(c, http.StatusBadRequest, "Invalid credentials")
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("email = ?", email).
		First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondMessage(c, http.StatusBadRequest, "Invalid credentials")
			return
		}
		respondMessage(c, http.StatusInternalServerError, "query user failed")
		return
	}
	if !security.CheckPassword(user.Password, body.Password) {
		respondMessage(c, http.StatusBadRequest, "Invalid credentials")
		return
	}
	h.startSession(c, &user)
}

// Logout clears the session cookie. Bearer tokens expire on their own.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c *gin.Context) {
	user := getUser(c)
	if user == nil {
		respondMessage(c, http.StatusUnauthorized, "Not authenticated")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": formatUser(user), "siteName": siteName()})
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User) {
	token, expiresAt, errToken := security.IssueUserToken(h.jwtCfg.Secret, user.ID, h.jwtCfg.Expiry)
	if errToken != nil {
		log.WithError(errToken).Error("auth: issue token failed")
		respondMessage(c, http.StatusInternalServerError, "Login failed")
		return
	}
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, maxAge, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{
		"user":      formatUser(user),
		"token":     token,
		"expiresAt": expiresAt,
	})
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
