package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DataSource is an external integration or uploaded file that feeds reports.
// It is created unconnected and becomes connected once an OAuth callback completes.
type DataSource struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Primary key (UUID).

	UserID string `gorm:"type:varchar(36);not null;index"` // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"`               // Owning user.

	Name        string         `gorm:"type:text;not null"`              // Display name.
	Type        string         `gorm:"type:varchar(64);not null;index"` // Provider tag (shopify, google, ...).
	IsConnected bool           `gorm:"not null;default:false"`          // Whether OAuth completed.
	OAuthTokens datatypes.JSON `gorm:"column:oauth_tokens;type:jsonb"`  // Token blob returned by the provider.
	LastSyncAt  *time.Time     `gorm:"column:last_sync_at"`             // Last successful sync.
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime;index"`   // Creation timestamp.
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime"`         // Last update timestamp.
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (d *DataSource) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = NewID()
	}
	return nil
}
