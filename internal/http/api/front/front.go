package front

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/billing"
	"github.com/router-for-me/ReportStudio/internal/config"
	handlers "github.com/router-for-me/ReportStudio/internal/http/api/front/handlers"
	"github.com/router-for-me/ReportStudio/internal/http/middleware"
	"github.com/router-for-me/ReportStudio/internal/models"
	"github.com/router-for-me/ReportStudio/internal/oauth"
	"github.com/router-for-me/ReportStudio/internal/ratelimit"
	"github.com/router-for-me/ReportStudio/internal/reports"
	"github.com/router-for-me/ReportStudio/internal/security"
	"github.com/router-for-me/ReportStudio/internal/store"
	"gorm.io/gorm"
)

// Dependencies are the services behind the user-facing API.
type Dependencies struct {
	DB          *gorm.DB
	JWT         config.JWTConfig
	Server      config.ServerConfig
	Reports     *reports.Service
	DataSources *store.GormDataSourceStore
	OAuth       *oauth.Service
	// Billing is nil when no Stripe key is configured; subscription routes are then absent.
	Billing *billing.Service

	RateLimiter *ratelimit.Manager
}

// RegisterFrontRoutes registers user routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, deps Dependencies) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/metrics", middleware.MetricsHandler())

	limit := middleware.RateLimit(deps.RateLimiter, handlers.CurrentCaller)

	public := r.Group("/api")
	public.Use(limit)

	authed := r.Group("/api")
	authed.Use(userAuthMiddleware(deps.DB, deps.JWT))
	authed.Use(limit)

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT, deps.Server.SecureCookies)
	public.POST("/auth/register", authHandler.Register)
	public.POST("/auth/login", authHandler.Login)
	public.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)

	userHandler := handlers.NewUserHandler(deps.Reports)
	authed.GET("/users/stats", userHandler.Stats)

	dataSourceHandler := handlers.NewDataSourceHandler(deps.DataSources)
	authed.GET("/data-sources", dataSourceHandler.List)
	authed.POST("/data-sources", dataSourceHandler.Create)
	authed.DELETE("/data-sources/:id", dataSourceHandler.Delete)

	oauthHandler := handlers.NewOAuthHandler(deps.OAuth, deps.DataSources, deps.Server.FrontendURL)
	authed.GET("/oauth/:provider/auth", oauthHandler.Authorize)
	public.GET("/oauth/:provider/callback", oauthHandler.Callback)

	uploadHandler := handlers.NewUploadHandler()
	authed.POST("/upload", uploadHandler.Upload)

	reportHandler := handlers.NewReportHandler(deps.Reports)
	authed.GET("/reports", reportHandler.List)
	authed.GET("/reports/recent", reportHandler.Recent)
	authed.POST("/reports/generate", reportHandler.Generate)
	authed.POST("/reports/save-canvas", reportHandler.SaveCanvas)
	authed.GET("/reports/:id", reportHandler.Get)
	authed.PUT("/reports/:id", reportHandler.Update)
	authed.DELETE("/reports/:id", reportHandler.Delete)
	authed.GET("/reports/:id/download", reportHandler.Download)
	authed.POST("/reports/:id/insights", reportHandler.Insights)
	authed.POST("/reports/:id/sections/:sectionId/content", reportHandler.SectionContent)

	canvasHandler := handlers.NewCanvasHandler()
	public.GET("/canvas/components", canvasHandler.Components)
	authed.POST("/canvas/export", canvasHandler.Export)

	if deps.Billing != nil {
		subscriptionHandler := handlers.NewSubscriptionHandler(deps.Billing)
		authed.POST("/create-subscription", subscriptionHandler.Create)
		public.POST("/stripe/webhook", subscriptionHandler.Webhook)
	}
}

// userAuthMiddleware validates session tokens and loads the user.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := handlers.TokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
			return
		}

		claims, errJWT := security.ParseUserToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).
			Where("id = ?", claims.UserID).
			First(&user).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
			return
		}
		handlers.SetCurrentUser(c, &user)
		c.Next()
	}
}
