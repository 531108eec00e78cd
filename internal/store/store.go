package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/ReportStudio/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound indicates the data source does not exist or belongs to another user.
var ErrNotFound = errors.New("Data source not found")

// GormDataSourceStore persists data sources and their OAuth token blobs via GORM.
type GormDataSourceStore struct {
	db *gorm.DB

	mu sync.Mutex
}

// NewGormDataSourceStore constructs a GormDataSourceStore.
func NewGormDataSourceStore(db *gorm.DB) *GormDataSourceStore {
	return &GormDataSourceStore{db: db}
}

// List returns the user's data sources, newest first.
func (s *GormDataSourceStore) List(ctx context.Context, userID string) ([]models.DataSource, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("data source store: not initialized")
	}
	var rows []models.DataSource
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("data source store: list: %w", errFind)
	}
	return rows, nil
}

// Get loads one of the user's data sources.
func (s *GormDataSourceStore) Get(ctx context.Context, userID, id string) (*models.DataSource, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("data source store: not initialized")
	}
	var row models.DataSource
	if errFind := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("data source store: get: %w", errFind)
	}
	return &row, nil
}

// Create inserts an unconnected data source.
func (s *GormDataSourceStore) Create(ctx context.Context, userID, name, sourceType string) (*models.DataSource, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("data source store: not initialized")
	}
	name = strings.TrimSpace(name)
	sourceType = strings.ToLower(strings.TrimSpace(sourceType))
	if name == "" || sourceType == "" {
		return nil, fmt.Errorf("data source store: name and type are required")
	}
	row := models.DataSource{
		UserID: userID,
		Name:   name,
		Type:   sourceType,
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, fmt.Errorf("data source store: create: %w", errCreate)
	}
	return &row, nil
}

// Delete removes one of the user's data sources and detaches reports that referenced it.
func (s *GormDataSourceStore) Delete(ctx context.Context, userID, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("data source store: not initialized")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDetach := tx.Model(&models.Report{}).
			Where("data_source_id = ? AND user_id = ?", id, userID).
			Update("data_source_id", nil).Error; errDetach != nil {
			return fmt.Errorf("data source store: detach reports: %w", errDetach)
		}
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.DataSource{})
		if res.Error != nil {
			return fmt.Errorf("data source store: delete: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CountConnected returns how many of the user's data sources are connected.
func (s *GormDataSourceStore) CountConnected(ctx context.Context, userID string) (int64, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).
		Model(&models.DataSource{}).
		Where("user_id = ? AND is_connected = ?", userID, true).
		Count(&count).Error; errCount != nil {
		return 0, fmt.Errorf("data source store: count connected: %w", errCount)
	}
	return count, nil
}

// Connect records a completed OAuth flow. The user's existing data source of
// that provider type is updated, otherwise a new one named after the provider
// is created.
func (s *GormDataSourceStore) Connect(ctx context.Context, userID, provider string, tokens []byte, now time.Time) (*models.DataSource, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("data source store: not initialized")
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if userID == "" || provider == "" {
		return nil, fmt.Errorf("data source store: missing user or provider")
	}
	payload := datatypes.JSON(tokens)
	syncedAt := now.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing models.DataSource
	errFind := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, provider).
		Order("created_at ASC").
		First(&existing).Error
	switch {
	case errFind == nil:
		updates := map[string]any{
			"is_connected": true,
			"last_sync_at": syncedAt,
			"oauth_tokens": payload,
		}
		if errUpdate := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; errUpdate != nil {
			return nil, fmt.Errorf("data source store: update connection: %w", errUpdate)
		}
		existing.IsConnected = true
		existing.OAuthTokens = payload
		existing.LastSyncAt = &syncedAt
		return &existing, nil
	case errors.Is(errFind, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("data source store: find connection: %w", errFind)
	}

	row := models.DataSource{
		UserID:      userID,
		Name:        IntegrationName(provider),
		Type:        provider,
		IsConnected: true,
		OAuthTokens: payload,
		LastSyncAt:  &syncedAt,
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, fmt.Errorf("data source store: create connection: %w", errCreate)
	}
	return &row, nil
}

// IntegrationName returns the display name for a provider-created data source.
func IntegrationName(provider string) string {
	if provider == "" {
		return "Integration"
	}
	return strings.ToUpper(provider[:1]) + provider[1:] + " Integration"
}
