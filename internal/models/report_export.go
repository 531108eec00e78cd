package models

import (
	"time"

	"gorm.io/gorm"
)

// ExportFormat is the file format of a report export.
type ExportFormat string

// ExportFormat constants. Only JSON is produced; the others are reserved.
const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatDOCX ExportFormat = "docx"
	ExportFormatHTML ExportFormat = "html"
	ExportFormatCSV  ExportFormat = "csv"
)

// ReportExport counts downloads of a report in a given format.
type ReportExport struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Primary key (UUID).

	ReportID string  `gorm:"type:varchar(36);not null;uniqueIndex:idx_report_exports_report_format"` // Exported report ID.
	Report   *Report `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`                        // Exported report.

	Format        ExportFormat `gorm:"type:varchar(16);not null;uniqueIndex:idx_report_exports_report_format"` // Export format.
	FilePath      *string      `gorm:"type:text"`                                                              // Stored file, when any.
	DownloadCount int          `gorm:"not null;default:0"`                                                     // Number of downloads.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (e *ReportExport) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	return nil
}
