// Package reports creates, stores and serves user reports, both generated
// from a prompt and hand-built on the canvas.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/ReportStudio/internal/canvas"
	"github.com/router-for-me/ReportStudio/internal/db"
	"github.com/router-for-me/ReportStudio/internal/generator"
	"github.com/router-for-me/ReportStudio/internal/models"
	"github.com/router-for-me/ReportStudio/internal/store"
	"github.com/router-for-me/ReportStudio/internal/usage"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecentLimit is the number of reports returned by Recent.
const RecentLimit = 5

// defaultDataSourceType is the generator hint when no data source is linked.
const defaultDataSourceType = "general"

var (
	// ErrQuotaExceeded is returned when the user has no generation requests left.
	ErrQuotaExceeded = usage.ErrQuotaExceeded
	// ErrNotFound is returned for missing reports and reports owned by someone else.
	ErrNotFound = errors.New("Report not found")
	// ErrDataSourceNotFound is returned when the linked data source is not the user's.
	ErrDataSourceNotFound = errors.New("Data source not found")
	// ErrSectionNotFound is returned when a section id is not in the report.
	ErrSectionNotFound = errors.New("Section not found")
	// ErrValidation marks request validation failures.
	ErrValidation = errors.New("validation failed")
)

// Structurer is the generative backend used by the service.
type Structurer interface {
	GenerateStructure(ctx context.Context, prompt, dataSourceType string) (*generator.ReportStructure, error)
	GenerateInsights(ctx context.Context, data any, reportType string) []string
	GenerateSectionContent(ctx context.Context, section models.Section, data any) string
}

// Service implements report operations for a single user at a time.
type Service struct {
	db      *gorm.DB
	ai      Structurer
	quota   *usage.Tracker
	sources *store.GormDataSourceStore
}

// NewService constructs a Service.
func NewService(db *gorm.DB, ai Structurer, quota *usage.Tracker) *Service {
	return &Service{db: db, ai: ai, quota: quota, sources: store.NewGormDataSourceStore(db)}
}

// GenerateResult is returned by Generate.
type GenerateResult struct {
	Report    *models.Report
	Structure *generator.ReportStructure
}

// UpdateInput holds the editable report fields. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *models.ReportStatus
	Components  json.RawMessage
}

// ListOptions filters List.
type ListOptions struct {
	Status models.ReportStatus
	Query  string
}

// Download is the downloadable JSON document of a report.
type Download struct {
	FileName    string          `json:"-"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Components  json.RawMessage `json:"components"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Stats summarizes a user's activity for the dashboard.
type Stats struct {
	ReportsGenerated     int64 `json:"reportsGenerated"`
	DataSourcesConnected int64 `json:"dataSourcesConnected"`
	APIRequests          int   `json:"apiRequests"`
	DownloadsCount       int64 `json:"downloadsCount"`
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// ValidationMessage returns the user-facing message of a validation error.
func ValidationMessage(err error) string {
	msg := err.Error()
	return strings.TrimPrefix(msg, ErrValidation.Error()+": ")
}

// Generate checks the quota, asks the model for a report structure and stores
// it as a generated report. The usage counter is bumped after the report is saved.
func (s *Service) Generate(ctx context.Context, userID, prompt, dataSourceID string) (*GenerateResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, validationError("AI prompt is required")
	}

	user, errUser := s.loadUser(ctx, userID)
	if errUser != nil {
		return nil, errUser
	}
	if errQuota := s.quota.Check(ctx, user); errQuota != nil {
		return nil, errQuota
	}

	dataSourceType := defaultDataSourceType
	var dataSourceRef *string
	if id := strings.TrimSpace(dataSourceID); id != "" {
		source, errSource := s.loadDataSource(ctx, userID, id)
		if errSource != nil {
			return nil, errSource
		}
		if source.Type != "" {
			dataSourceType = source.Type
		}
		dataSourceRef = &source.ID
	}

	structure, errGenerate := s.ai.GenerateStructure(ctx, prompt, dataSourceType)
	if errGenerate != nil {
		return nil, errGenerate
	}
	structure.Sections = models.NormalizeSections(structure.Sections)
	if structure.Insights == nil {
		structure.Insights = []string{}
	}

	components, errComponents := json.Marshal(structure.Sections)
	if errComponents != nil {
		return nil, fmt.Errorf("reports: encode sections: %w", errComponents)
	}
	generated, errGenerated := json.Marshal(structure)
	if errGenerated != nil {
		return nil, fmt.Errorf("reports: encode structure: %w", errGenerated)
	}
	description := "Generated from: " + prompt
	report := &models.Report{
		UserID:           userID,
		Title:            structure.Title,
		Description:      &description,
		DataSourceID:     dataSourceRef,
		Components:       datatypes.JSON(components),
		GeneratedContent: datatypes.JSON(generated),
		Status:           models.ReportStatusGenerated,
		AIPrompt:         &prompt,
		PageCount:        len(structure.Sections),
	}
	if errCreate := s.db.WithContext(ctx).Create(report).Error; errCreate != nil {
		return nil, fmt.Errorf("reports: create report: %w", errCreate)
	}

	if errIncrement := s.quota.Increment(ctx, userID); errIncrement != nil {
		log.WithError(errIncrement).WithField("user_id", userID).Warn("reports: failed to record api usage")
	}
	return &GenerateResult{Report: report, Structure: structure}, nil
}

// SaveCanvas stores board as a draft report. dataSourceID is optional.
func (s *Service) SaveCanvas(ctx context.Context, userID string, board *canvas.Canvas, dataSourceID string) (*models.Report, error) {
	req, errSave := board.SaveRequest()
	if errSave != nil {
		if errors.Is(errSave, canvas.ErrEmptyCanvas) || errors.Is(errSave, canvas.ErrTitleRequired) {
			return nil, validationError(errSave.Error())
		}
		return nil, fmt.Errorf("reports: save canvas: %w", errSave)
	}

	description := req.Description
	if description == "" {
		description = canvas.DefaultDescription
	}
	var dataSourceRef *string
	if id := strings.TrimSpace(dataSourceID); id != "" {
		source, errSource := s.loadDataSource(ctx, userID, id)
		if errSource != nil {
			return nil, errSource
		}
		dataSourceRef = &source.ID
	}

	report := &models.Report{
		UserID:       userID,
		Title:        req.Title,
		Description:  &description,
		DataSourceID: dataSourceRef,
		Components:   datatypes.JSON(req.Components),
		Status:       models.ReportStatusDraft,
		PageCount:    1,
	}
	if errCreate := s.db.WithContext(ctx).Create(report).Error; errCreate != nil {
		return nil, fmt.Errorf("reports: save canvas: %w", errCreate)
	}
	return report, nil
}

// LoadBoard decodes a posted canvas. Anything but a JSON array of placed
// components is a validation error.
func LoadBoard(title, description string, components json.RawMessage) (*canvas.Canvas, error) {
	board, errLoad := canvas.Load(title, description, components)
	if errLoad != nil {
		return nil, validationError(canvas.ErrComponentsRequired.Error())
	}
	return board, nil
}

// List returns the user's reports, newest first.
func (s *Service) List(ctx context.Context, userID string, opts ListOptions) ([]models.Report, error) {
	q := s.db.WithContext(ctx).Model(&models.Report{}).Where("user_id = ?", userID)
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if term := strings.TrimSpace(opts.Query); term != "" {
		q = q.Where(db.CaseInsensitiveLikeExpr(s.db, "title"), db.ContainsPattern(s.db, term))
	}
	var rows []models.Report
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("reports: list: %w", errFind)
	}
	return rows, nil
}

// Recent returns the user's latest reports.
func (s *Service) Recent(ctx context.Context, userID string) ([]models.Report, error) {
	var rows []models.Report
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(RecentLimit).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("reports: recent: %w", errFind)
	}
	return rows, nil
}

// Get returns one of the user's reports.
func (s *Service) Get(ctx context.Context, userID, reportID string) (*models.Report, error) {
	var report models.Report
	if errFind := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", reportID, userID).
		First(&report).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reports: get: %w", errFind)
	}
	return &report, nil
}

// Update changes the editable fields of a report.
func (s *Service) Update(ctx context.Context, userID, reportID string, in UpdateInput) (*models.Report, error) {
	report, errGet := s.Get(ctx, userID, reportID)
	if errGet != nil {
		return nil, errGet
	}

	updates := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, validationError(canvas.ErrTitleRequired.Error())
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil {
		status := models.ReportStatus(strings.ToLower(strings.TrimSpace(string(*in.Status))))
		if !status.Valid() {
			return nil, validationError("Invalid report status")
		}
		if status == models.ReportStatusGenerated && !hasSections(report) {
			return nil, validationError("Only AI generation can mark a report as generated")
		}
		updates["status"] = status
	}
	if len(in.Components) > 0 {
		if !isJSONArray(in.Components) {
			return nil, validationError("Components array is required")
		}
		if hasSections(report) {
			sections, errDecode := decodeSections(in.Components)
			if errDecode != nil {
				return nil, errDecode
			}
			normalized, errMarshal := json.Marshal(sections)
			if errMarshal != nil {
				return nil, fmt.Errorf("reports: encode sections: %w", errMarshal)
			}
			updates["components"] = datatypes.JSON(normalized)
			updates["page_count"] = len(sections)
		} else {
			updates["components"] = datatypes.JSON(in.Components)
		}
	}
	if len(updates) == 0 {
		return report, nil
	}

	if errUpdate := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ? AND user_id = ?", reportID, userID).
		Updates(updates).Error; errUpdate != nil {
		return nil, fmt.Errorf("reports: update: %w", errUpdate)
	}
	return s.Get(ctx, userID, reportID)
}

// Delete removes one of the user's reports and its export counters.
func (s *Service) Delete(ctx context.Context, userID, reportID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report models.Report
		if errFind := tx.Select("id").
			Where("id = ? AND user_id = ?", reportID, userID).
			First(&report).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("reports: delete: %w", errFind)
		}
		if errExports := tx.Where("report_id = ?", report.ID).
			Delete(&models.ReportExport{}).Error; errExports != nil {
			return fmt.Errorf("reports: delete exports: %w", errExports)
		}
		if errDelete := tx.Delete(&models.Report{}, "id = ?", report.ID).Error; errDelete != nil {
			return fmt.Errorf("reports: delete: %w", errDelete)
		}
		return nil
	})
}

// Download returns the JSON document of a report and counts the download.
func (s *Service) Download(ctx context.Context, userID, reportID string) (*Download, error) {
	report, errGet := s.Get(ctx, userID, reportID)
	if errGet != nil {
		return nil, errGet
	}
	if errRecord := s.recordDownload(ctx, report.ID, models.ExportFormatJSON); errRecord != nil {
		log.WithError(errRecord).WithField("report_id", report.ID).Warn("reports: failed to record download")
	}
	return &Download{
		FileName:    canvas.FileName(report.Title, "_report.json"),
		Title:       report.Title,
		Description: report.Description,
		Components:  json.RawMessage(report.Components),
		CreatedAt:   report.CreatedAt,
		UpdatedAt:   report.UpdatedAt,
	}, nil
}

func (s *Service) recordDownload(ctx context.Context, reportID string, format models.ExportFormat) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var export models.ReportExport
		if errFind := tx.Where("report_id = ? AND format = ?", reportID, format).
			Attrs(models.ReportExport{ReportID: reportID, Format: format}).
			FirstOrCreate(&export).Error; errFind != nil {
			return errFind
		}
		return tx.Model(&models.ReportExport{}).
			Where("id = ?", export.ID).
			UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error
	})
}

// Stats returns the dashboard counters for a user.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	user, errUser := s.loadUser(ctx, userID)
	if errUser != nil {
		return nil, errUser
	}
	stats := &Stats{APIRequests: user.APIUsage}

	conn := s.db.WithContext(ctx)
	if errCount := conn.Model(&models.Report{}).
		Where("user_id = ?", userID).
		Count(&stats.ReportsGenerated).Error; errCount != nil {
		return nil, fmt.Errorf("reports: count reports: %w", errCount)
	}
	connected, errConnected := s.sources.CountConnected(ctx, userID)
	if errConnected != nil {
		return nil, errConnected
	}
	stats.DataSourcesConnected = connected
	var downloads struct{ Total int64 }
	if errSum := conn.Model(&models.ReportExport{}).
		Select("COALESCE(SUM(report_exports.download_count), 0) AS total").
		Joins("JOIN reports ON reports.id = report_exports.report_id").
		Where("reports.user_id = ?", userID).
		Scan(&downloads).Error; errSum != nil {
		return nil, fmt.Errorf("reports: sum downloads: %w", errSum)
	}
	stats.DownloadsCount = downloads.Total
	return stats, nil
}

// RefreshInsights regenerates the insights of a report from its sections and
// stores them with the generated content. It counts as one generation request.
func (s *Service) RefreshInsights(ctx context.Context, userID, reportID string) ([]string, error) {
	user, errUser := s.loadUser(ctx, userID)
	if errUser != nil {
		return nil, errUser
	}
	report, errGet := s.Get(ctx, userID, reportID)
	if errGet != nil {
		return nil, errGet
	}
	if errQuota := s.quota.Check(ctx, user); errQuota != nil {
		return nil, errQuota
	}

	reportType := defaultDataSourceType
	if report.DataSourceID != nil {
		if source, errSource := s.loadDataSource(ctx, userID, *report.DataSourceID); errSource == nil && source.Type != "" {
			reportType = source.Type
		}
	}
	insights := s.ai.GenerateInsights(ctx, json.RawMessage(report.Components), reportType)

	content := map[string]json.RawMessage{}
	if len(report.GeneratedContent) > 0 {
		if errUnmarshal := json.Unmarshal(report.GeneratedContent, &content); errUnmarshal != nil {
			content = map[string]json.RawMessage{}
		}
	}
	encoded, errMarshal := json.Marshal(insights)
	if errMarshal != nil {
		return nil, fmt.Errorf("reports: encode insights: %w", errMarshal)
	}
	content["insights"] = encoded
	merged, errMerged := json.Marshal(content)
	if errMerged != nil {
		return nil, fmt.Errorf("reports: encode generated content: %w", errMerged)
	}
	if errUpdate := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", report.ID).
		Update("generated_content", datatypes.JSON(merged)).Error; errUpdate != nil {
		return nil, fmt.Errorf("reports: save insights: %w", errUpdate)
	}

	if errIncrement := s.quota.Increment(ctx, userID); errIncrement != nil {
		log.WithError(errIncrement).WithField("user_id", userID).Warn("reports: failed to record api usage")
	}
	return insights, nil
}

// FillSection writes model-generated text into one section of a generated
// report. It counts as one generation request.
func (s *Service) FillSection(ctx context.Context, userID, reportID, sectionID string) (*models.Report, error) {
	user, errUser := s.loadUser(ctx, userID)
	if errUser != nil {
		return nil, errUser
	}
	report, errGet := s.Get(ctx, userID, reportID)
	if errGet != nil {
		return nil, errGet
	}

	if !hasSections(report) {
		return nil, validationError("Only generated reports have sections to fill")
	}
	sections, errDecode := decodeSections(report.Components)
	if errDecode != nil {
		return nil, errDecode
	}
	index := -1
	for i := range sections {
		if sections[i].ID == sectionID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrSectionNotFound
	}
	if errQuota := s.quota.Check(ctx, user); errQuota != nil {
		return nil, errQuota
	}

	var data any
	if len(sections[index].Data) > 0 {
		data = sections[index].Data
	}
	sections[index].Content = s.ai.GenerateSectionContent(ctx, sections[index], data)

	components, errMarshal := json.Marshal(sections)
	if errMarshal != nil {
		return nil, fmt.Errorf("reports: encode sections: %w", errMarshal)
	}
	if errUpdate := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", report.ID).
		Update("components", datatypes.JSON(components)).Error; errUpdate != nil {
		return nil, fmt.Errorf("reports: save section: %w", errUpdate)
	}

	if errIncrement := s.quota.Increment(ctx, userID); errIncrement != nil {
		log.WithError(errIncrement).WithField("user_id", userID).Warn("reports: failed to record api usage")
	}
	return s.Get(ctx, userID, reportID)
}

func (s *Service) loadUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; errFind != nil {
		return nil, fmt.Errorf("reports: load user: %w", errFind)
	}
	return &user, nil
}

func (s *Service) loadDataSource(ctx context.Context, userID, id string) (*models.DataSource, error) {
	source, errGet := s.sources.Get(ctx, userID, id)
	if errors.Is(errGet, store.ErrNotFound) {
		return nil, ErrDataSourceNotFound
	}
	return source, errGet
}

// hasSections reports whether the report's components are generated sections
// rather than placed canvas components. Only Generate sets the prompt.
func hasSections(report *models.Report) bool {
	return report.AIPrompt != nil
}

// decodeSections parses raw as sections and normalizes them. Every entry needs
// an id and a known section type.
func decodeSections(raw json.RawMessage) ([]models.Section, error) {
	var sections []models.Section
	if errUnmarshal := json.Unmarshal(raw, &sections); errUnmarshal != nil {
		return nil, validationError("Report components are not sections")
	}
	sections = models.NormalizeSections(sections)
	for _, section := range sections {
		if strings.TrimSpace(section.ID) == "" || !section.Type.Valid() {
			return nil, validationError("Report components are not sections")
		}
	}
	return sections, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return false
	}
	return json.Valid([]byte(trimmed))
}
