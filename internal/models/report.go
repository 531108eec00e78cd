package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

// ReportStatus constants define report lifecycle states.
const (
	// ReportStatusDraft marks a canvas-built or empty report.
	ReportStatusDraft ReportStatus = "draft"
	// ReportStatusGenerated marks a report whose sections came from the generator.
	ReportStatusGenerated ReportStatus = "generated"
	// ReportStatusPublished marks a report the owner has published.
	ReportStatusPublished ReportStatus = "published"
)

// Valid reports whether the status is a known lifecycle state.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusDraft, ReportStatusGenerated, ReportStatusPublished:
		return true
	default:
		return false
	}
}

// SectionType is the kind of a report section.
type SectionType string

// SectionType constants.
const (
	SectionTypeText  SectionType = "text"
	SectionTypeChart SectionType = "chart"
	SectionTypeTable SectionType = "table"
)

// Valid reports whether the section type is known.
func (t SectionType) Valid() bool {
	switch t {
	case SectionTypeText, SectionTypeChart, SectionTypeTable:
		return true
	default:
		return false
	}
}

// ChartType is the chart kind of a chart section.
type ChartType string

// ChartType constants.
const (
	ChartTypeBar  ChartType = "bar"
	ChartTypeLine ChartType = "line"
	ChartTypePie  ChartType = "pie"
	ChartTypeArea ChartType = "area"
)

// Valid reports whether the chart kind is one of the four permitted kinds.
func (c ChartType) Valid() bool {
	switch c {
	case ChartTypeBar, ChartTypeLine, ChartTypePie, ChartTypeArea:
		return true
	default:
		return false
	}
}

// Section is one structural unit of a report.
type Section struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Type      SectionType     `json:"type"`
	ChartType ChartType       `json:"chartType,omitempty"`
	Content   string          `json:"content,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NormalizeSections lowercases type tags and enforces the chart kind rule:
// non-chart sections carry no chart kind, chart sections carry a permitted
// kind or none.
func NormalizeSections(sections []Section) []Section {
	out := make([]Section, 0, len(sections))
	for _, section := range sections {
		section.Type = SectionType(strings.ToLower(strings.TrimSpace(string(section.Type))))
		section.ChartType = ChartType(strings.ToLower(strings.TrimSpace(string(section.ChartType))))
		if section.Type != SectionTypeChart || !section.ChartType.Valid() {
			section.ChartType = ""
		}
		out = append(out, section)
	}
	return out
}

// Report is a user report: an ordered list of components plus metadata.
// Components holds sections for generated reports and placed canvas
// components for canvas-built drafts. Canvas components are stored verbatim;
// sections are normalized on every write.
type Report struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Primary key (UUID).

	UserID string `gorm:"type:varchar(36);not null;index:idx_reports_user_created,priority:1"` // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"`                                                   // Owning user.

	Title       string  `gorm:"type:text;not null"` // Report title.
	Description *string `gorm:"type:text"`          // Optional description.

	DataSourceID *string     `gorm:"type:varchar(36);index"`  // Linked data source ID.
	DataSource   *DataSource `gorm:"foreignKey:DataSourceID"` // Linked data source.

	Components       datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`                // Report structure.
	GeneratedContent datatypes.JSON `gorm:"type:jsonb"`                                      // Full generator output.
	Status           ReportStatus   `gorm:"type:varchar(32);not null;default:'draft';index"` // Lifecycle state.
	AIPrompt         *string        `gorm:"column:ai_prompt;type:text"`                      // Originating prompt.
	PageCount        int            `gorm:"not null;default:0"`                              // Page count.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_reports_user_created,priority:2"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`                                           // Last update timestamp.
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (r *Report) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	return nil
}
