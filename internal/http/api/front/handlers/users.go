package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/reports"
)

// UserHandler serves per-user dashboard data.
type UserHandler struct {
	reports *reports.Service
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *reports.Service) *UserHandler {
	return &UserHandler{reports: svc}
}

// Stats returns the dashboard counters of the signed-in user.
func (h *UserHandler) Stats(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	stats, errStats := h.reports.Stats(c.Request.Context(), userID)
	if errStats != nil {
		respondMessage(c, http.StatusInternalServerError, errStats.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}
