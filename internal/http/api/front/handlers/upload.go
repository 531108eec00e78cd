package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/upload"
	log "github.com/sirupsen/logrus"
)

// UploadHandler summarizes uploaded tabular files.
type UploadHandler struct{}

// NewUploadHandler constructs an UploadHandler.
func NewUploadHandler() *UploadHandler {
	return &UploadHandler{}
}

// Upload parses the multipart "files" field and returns a summary per file.
// Files are processed in memory and never stored.
func (h *UploadHandler) Upload(c *gin.Context) {
	userID := requireUser(c)
	if userID == "" {
		return
	}
	form, errForm := c.MultipartForm()
	if errForm != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		respondMessage(c, http.StatusBadRequest, "No files uploaded")
		return
	}
	if len(files) > upload.MaxFiles {
		respondMessage(c, http.StatusBadRequest, upload.ErrTooManyFiles.Error())
		return
	}
	for _, file := range files {
		if !upload.Allowed(file.Filename, file.Header.Get("Content-Type")) {
			respondMessage(c, http.StatusBadRequest, upload.ErrInvalidType.Error())
			return
		}
		if file.Size > upload.MaxFileSize {
			respondMessage(c, http.StatusBadRequest, upload.ErrTooLarge.Error())
			return
		}
	}

	summaries := make([]upload.FileSummary, 0, len(files))
	for _, file := range files {
		f, errOpen := file.Open()
		if errOpen != nil {
			respondMessage(c, http.StatusInternalServerError, errOpen.Error())
			return
		}
		summary, errParse := upload.Parse(file.Filename, file.Size, f)
		_ = f.Close()
		if errParse != nil {
			if errors.Is(errParse, upload.ErrTooLarge) {
				respondMessage(c, http.StatusBadRequest, errParse.Error())
				return
			}
			log.WithError(errParse).WithField("user_id", userID).Warn("upload: parse failed")
			respondMessage(c, http.StatusInternalServerError, errParse.Error())
			return
		}
		summaries = append(summaries, summary)
	}
	c.JSON(http.StatusOK, gin.H{"files": summaries})
}
