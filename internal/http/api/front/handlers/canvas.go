package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/canvas"
)

// CanvasHandler serves the component palette and unsaved canvas exports.
type CanvasHandler struct{}

// NewCanvasHandler constructs a CanvasHandler.
func NewCanvasHandler() *CanvasHandler {
	return &CanvasHandler{}
}

// exportCanvasRequest defines the request body for canvas exports.
type exportCanvasRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Components  json.RawMessage `json:"components"`
}

// Components returns the palette, flat and grouped.
func (h *CanvasHandler) Components(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"components": canvas.Palette(),
		"groups":     canvas.PaletteGroups(),
	})
}

// Export returns the posted canvas as a JSON attachment without saving it.
func (h *CanvasHandler) Export(c *gin.Context) {
	if requireUser(c) == "" {
		return
	}
	var body exportCanvasRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	board, errLoad := canvas.Load(body.Title, body.Description, body.Components)
	if errLoad != nil {
		respondMessage(c, http.StatusBadRequest, "Components array is required")
		return
	}
	if board.Len() == 0 {
		respondMessage(c, http.StatusBadRequest, canvas.ErrEmptyCanvas.Error())
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+board.ExportFileName()+`"`)
	c.JSON(http.StatusOK, board.Export())
}
