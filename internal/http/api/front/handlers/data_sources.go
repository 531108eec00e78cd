package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/store"
)

// DataSourceHandler handles data source CRUD.
type DataSourceHandler struct {
	store *store.GormDataSourceStore
}

// NewDataSourceHandler constructs a DataSourceHandler.
func NewDataSourceHandler(s *store.GormDataSourceStore) *DataSourceHandler {
	return &DataSourceHandler{store: s}
}

// createDataSourceRequest defines the request body for creating data sources.
type createDataSourceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// List returns the user's data sources, newest first.
func (h *DataSourceHandler) List(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	rows, errList := h.store.List(c.Request.Context(), userID)
	if errList != nil {
		respondMessage(c, http.StatusInternalServerError, errList.Error())
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatDataSource(&rows[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Create adds an unconnected data source.
func (h *DataSourceHandler) Create(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	var body createDataSourceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" || strings.TrimSpace(body.Type) == "" {
		respondMessage(c, http.StatusBadRequest, "Name and type are required")
		return
	}
	created, errCreate := h.store.Create(c.Request.Context(), userID, body.Name, body.Type)
	if errCreate != nil {
		respondMessage(c, http.StatusInternalServerError, errCreate.Error())
		return
	}
	c.JSON(http.StatusOK, formatDataSource(created))
}

// Delete removes one of the user's data sources.
func (h *DataSourceHandler) Delete(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	if errDelete := h.store.Delete(c.Request.Context(), userID, c.Param("id")); errDelete != nil {
		if errors.Is(errDelete, store.ErrNotFound) {
			respondMessage(c, http.StatusNotFound, store.ErrNotFound.Error())
			return
		}
		respondMessage(c, http.StatusInternalServerError, errDelete.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Data source deleted"})
}
