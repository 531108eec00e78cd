package usage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/router-for-me/ReportStudio/internal/db"
	"github.com/router-for-me/ReportStudio/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "usage-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func createUser(t *testing.T, conn *gorm.DB, usage, limit int, periodStart *time.Time) *models.User {
	t.Helper()
	user := &models.User{
		Username:         "alice",
		Email:            "alice@example.com",
		Password:         "hash",
		SubscriptionTier: models.TierFree,
		APIUsage:         usage,
		APILimit:         limit,
		UsagePeriodStart: periodStart,
	}
	if errCreate := conn.Create(user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return user
}

func TestCheck_RejectsAtLimit(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	period := PeriodStart(now)
	user := createUser(t, conn, 3, 3, &period)

	tracker := NewTracker(conn, func() time.Time { return now })
	if err := tracker.Check(context.Background(), user); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestCheck_AllowsBelowLimit(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	period := PeriodStart(now)
	user := createUser(t, conn, 2, 3, &period)

	tracker := NewTracker(conn, func() time.Time { return now })
	if err := tracker.Check(context.Background(), user); err != nil {
		t.Fatalf("expected allowed, got %v", err)
	}
}

func TestCheck_ResetsAfterMonthRollover(t *testing.T) {
	conn := openTestDB(t)
	previous := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	user := createUser(t, conn, 5, 5, &previous)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tracker := NewTracker(conn, func() time.Time { return now })
	if err := tracker.Check(context.Background(), user); err != nil {
		t.Fatalf("expected allowed after rollover, got %v", err)
	}
	if user.APIUsage != 0 {
		t.Fatalf("expected in-memory usage reset, got %d", user.APIUsage)
	}

	var stored models.User
	if errFind := conn.First(&stored, "id = ?", user.ID).Error; errFind != nil {
		t.Fatalf("reload user: %v", errFind)
	}
	if stored.APIUsage != 0 {
		t.Fatalf("expected stored usage reset, got %d", stored.APIUsage)
	}
	if stored.UsagePeriodStart == nil || !stored.UsagePeriodStart.UTC().Equal(PeriodStart(now)) {
		t.Fatalf("expected period start %s, got %v", PeriodStart(now), stored.UsagePeriodStart)
	}
}

func TestCheck_FirstPeriodKeepsCounter(t *testing.T) {
	conn := openTestDB(t)
	user := createUser(t, conn, 4, 4, nil)

	tracker := NewTracker(conn, nil)
	if err := tracker.Check(context.Background(), user); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded without a recorded period, got %v", err)
	}
	if user.UsagePeriodStart == nil {
		t.Fatalf("expected period start to be recorded")
	}
}

func TestIncrement_AddsOne(t *testing.T) {
	conn := openTestDB(t)
	user := createUser(t, conn, 0, 10, nil)

	tracker := NewTracker(conn, nil)
	for i := 0; i < 2; i++ {
		if err := tracker.Increment(context.Background(), user.ID); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}

	var stored models.User
	if errFind := conn.First(&stored, "id = ?", user.ID).Error; errFind != nil {
		t.Fatalf("reload user: %v", errFind)
	}
	if stored.APIUsage != 2 {
		t.Fatalf("expected usage=2, got %d", stored.APIUsage)
	}
}

func TestIncrement_UnknownUser(t *testing.T) {
	conn := openTestDB(t)
	tracker := NewTracker(conn, nil)
	if err := tracker.Increment(context.Background(), "missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
