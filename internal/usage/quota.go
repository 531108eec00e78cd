package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/router-for-me/ReportStudio/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrQuotaExceeded indicates the user has used up the generation allowance.
var ErrQuotaExceeded = errors.New("API usage limit exceeded")

// Tracker enforces the per-user monthly generation allowance.
type Tracker struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewTracker constructs a Tracker. nowFn defaults to time.Now.
func NewTracker(db *gorm.DB, nowFn func() time.Time) *Tracker {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Tracker{db: db, nowFn: nowFn}
}

// PeriodStart returns the first instant of the calendar month containing t, in UTC.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Check rejects the request when the user is at or above the limit. A counter
// left over from a previous month is reset first and the change is written to user.
func (t *Tracker) Check(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("usage: nil user")
	}
	if errReset := t.resetIfNewPeriod(ctx, user); errReset != nil {
		return errReset
	}
	if user.APIUsage >= user.APILimit {
		return ErrQuotaExceeded
	}
	return nil
}

func (t *Tracker) resetIfNewPeriod(ctx context.Context, user *models.User) error {
	current := PeriodStart(t.nowFn())
	if user.UsagePeriodStart != nil && !user.UsagePeriodStart.Before(current) {
		return nil
	}

	updates := map[string]any{"usage_period_start": current}
	// Only a finished period clears the counter; an account without a
	// recorded period keeps its count and just starts tracking.
	reset := user.UsagePeriodStart != nil
	if reset {
		updates["api_usage"] = 0
	}
	if errUpdate := t.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error; errUpdate != nil {
		return fmt.Errorf("usage: reset period: %w", errUpdate)
	}
	if reset {
		log.WithField("user_id", user.ID).Infof("usage: new period %s, counter reset from %d", current.Format("2006-01"), user.APIUsage)
		user.APIUsage = 0
	}
	user.UsagePeriodStart = &current
	return nil
}

// Increment adds one generation request to the user's counter. The read and
// the write are separate statements, so concurrent requests may lose counts.
func (t *Tracker) Increment(ctx context.Context, userID string) error {
	var user models.User
	if errFind := t.db.WithContext(ctx).
		Select("id", "api_usage").
		Where("id = ?", userID).
		First(&user).Error; errFind != nil {
		return fmt.Errorf("usage: load user: %w", errFind)
	}
	if errUpdate := t.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("api_usage", user.APIUsage+1).Error; errUpdate != nil {
		return fmt.Errorf("usage: increment: %w", errUpdate)
	}
	return nil
}
