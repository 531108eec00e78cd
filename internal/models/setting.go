package models

import (
	"encoding/json"
	"time"
)

// Setting stores a JSON-encoded configuration value by key.
type Setting struct {
	Key       string          `gorm:"type:varchar(255);primaryKey"` // Setting key.
	Value     json.RawMessage `gorm:"type:jsonb"`                   // JSON value.
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime"`      // Last update timestamp.
}
