package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/models"
	"github.com/router-for-me/ReportStudio/internal/reports"
	log "github.com/sirupsen/logrus"
)

// ReportHandler handles report endpoints.
type ReportHandler struct {
	svc *reports.Service
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(svc *reports.Service) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// generateReportRequest defines the request body for AI generation.
type generateReportRequest struct {
	AIPrompt     string `json:"aiPrompt"`
	DataSourceID string `json:"dataSourceId"`
}

// saveCanvasRequest defines the request body for canvas saves.
type saveCanvasRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Components   json.RawMessage `json:"components"`
	DataSourceID string          `json:"dataSourceId"`
}

// updateReportRequest defines the request body for report updates.
type updateReportRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.ReportStatus `json:"status"`
	Components  json.RawMessage      `json:"components"`
}

// List returns the user's reports with optional status and title filters.
func (h *ReportHandler) List(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	rows, errList := h.svc.List(c.Request.Context(), userID, reports.ListOptions{
		Status: models.ReportStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Query:  c.Query("q"),
	})
	if errList != nil {
		writeReportError(c, errList)
		return
	}
	c.JSON(http.StatusOK, formatReports(rows))
}

// Recent returns the user's latest reports.
func (h *ReportHandler) Recent(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	rows, errList := h.svc.Recent(c.Request.Context(), userID)
	if errList != nil {
		writeReportError(c, errList)
		return
	}
	c.JSON(http.StatusOK, formatReports(rows))
}

// Generate builds a report from a prompt.
func (h *ReportHandler) Generate(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	var body generateReportRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	result, errGenerate := h.svc.Generate(c.Request.Context(), userID, body.AIPrompt, body.DataSourceID)
	if errGenerate != nil {
		writeReportError(c, errGenerate)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":    formatReport(result.Report),
		"structure": result.Structure,
	})
}

// SaveCanvas persists a canvas-built draft.
func (h *ReportHandler) SaveCanvas(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	var body saveCanvasRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	board, errLoad := reports.LoadBoard(body.Title, body.Description, body.Components)
	if errLoad != nil {
		writeReportError(c, errLoad)
		return
	}
	report, errSave := h.svc.SaveCanvas(c.Request.Context(), userID, board, body.DataSourceID)
	if errSave != nil {
		writeReportError(c, errSave)
		return
	}
	c.JSON(http.StatusOK, formatReport(report))
}

// Get returns one report.
func (h *ReportHandler) Get(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	report, errGet := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if errGet != nil {
		writeReportError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, formatReport(report))
}

// Update edits title, description, status or components.
func (h *ReportHandler) Update(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	var body updateReportRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	components := body.Components
	if strings.TrimSpace(string(components)) == "null" {
		components = nil
	}
	report, errUpdate := h.svc.Update(c.Request.Context(), userID, c.Param("id"), reports.UpdateInput{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		Components:  components,
	})
	if errUpdate != nil {
		writeReportError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, formatReport(report))
}

// Delete removes a report.
func (h *ReportHandler) Delete(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	if errDelete := h.svc.Delete(c.Request.Context(), userID, c.Param("id")); errDelete != nil {
		writeReportError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report deleted"})
}

// Download returns the report as a JSON attachment.
func (h *ReportHandler) Download(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	doc, errDownload := h.svc.Download(c.Request.Context(), userID, c.Param("id"))
	if errDownload != nil {
		writeReportError(c, errDownload)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.JSON(http.StatusOK, doc)
}

// Insights regenerates the insights of a report.
func (h *ReportHandler) Insights(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	insights, errInsights := h.svc.RefreshInsights(c.Request.Context(), userID, c.Param("id"))
	if errInsights != nil {
		writeReportError(c, errInsights)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": insights})
}

// SectionContent fills one section with generated text.
func (h *ReportHandler) SectionContent(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	report, errFill := h.svc.FillSection(c.Request.Context(), userID, c.Param("id"), c.Param("sectionId"))
	if errFill != nil {
		writeReportError(c, errFill)
		return
	}
	c.JSON(http.StatusOK, formatReport(report))
}

// writeReportError maps report service errors to status codes.
func writeReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reports.ErrValidation):
		respondMessage(c, http.StatusBadRequest, reports.ValidationMessage(err))
	case errors.Is(err, reports.ErrQuotaExceeded):
		respondMessage(c, http.StatusTooManyRequests, reports.ErrQuotaExceeded.Error())
	case errors.Is(err, reports.ErrNotFound),
		errors.Is(err, reports.ErrDataSourceNotFound),
		errors.Is(err, reports.ErrSectionNotFound):
		respondMessage(c, http.StatusNotFound, err.Error())
	default:
		log.WithError(err).Error("reports: request failed")
		respondMessage(c, http.StatusInternalServerError, err.Error())
	}
}
