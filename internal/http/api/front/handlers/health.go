package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/db"
	internalsettings "github.com/router-for-me/ReportStudio/internal/settings"
	"gorm.io/gorm"
)

// HealthHandler reports process and database health.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(conn *gorm.DB) *HealthHandler {
	return &HealthHandler{db: conn}
}

// Healthz answers 200 when the database responds. The body carries the
// configured site name so the UI can brand itself before login.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if errPing := db.Ping(h.db); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": errPing.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "siteName": siteName()})
}

func siteName() string {
	return internalsettings.StringValue(internalsettings.SiteNameKey, internalsettings.DefaultSiteName)
}
