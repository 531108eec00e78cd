package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/ReportStudio/internal/models"
	"gorm.io/gorm"
)

// Reload reads every settings row and swaps the in-memory snapshot.
func Reload(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("settings: nil db")
	}
	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return fmt.Errorf("settings: load rows: %w", errFind)
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if rowUpdatedAt := row.UpdatedAt.UTC(); rowUpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = rowUpdatedAt
		}
	}
	StoreDBConfig(maxUpdatedAt, values)
	return nil
}

// TierLimit returns the monthly generation limit configured for tier.
func TierLimit(tier models.SubscriptionTier) int {
	switch tier {
	case models.TierPremium:
		return IntValue(APILimitPremiumKey, DefaultAPILimitPremium)
	case models.TierEnterprise:
		return IntValue(APILimitEnterpriseKey, DefaultAPILimitEnterprise)
	default:
		return IntValue(APILimitFreeKey, DefaultAPILimitFree)
	}
}

// TierRate returns the per-second request rate configured for tier and whether
// the tier has its own row. Callers fall back to RateLimitKey when it does not.
func TierRate(tier models.SubscriptionTier) (int, bool) {
	key := ""
	switch tier {
	case models.TierFree:
		key = RateLimitFreeKey
	case models.TierPremium:
		key = RateLimitPremiumKey
	case models.TierEnterprise:
		key = RateLimitEnterpriseKey
	default:
		return 0, false
	}
	raw, ok := DBConfigValue(key)
	if !ok {
		return 0, false
	}
	return ParseNonNegativeInt(raw)
}
