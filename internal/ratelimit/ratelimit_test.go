package ratelimit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/router-for-me/ReportStudio/internal/config"
	"github.com/router-for-me/ReportStudio/internal/models"
	internalsettings "github.com/router-for-me/ReportStudio/internal/settings"
)

func TestMemoryCounter_ResetsPerWindow(t *testing.T) {
	counter := NewMemoryCounter()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		hits, err := counter.Incr(ctx, "user:free:1", 100)
		if err != nil || hits != want {
			t.Fatalf("expected %d hits, got %d (err=%v)", want, hits, err)
		}
	}
	if hits, _ := counter.Incr(ctx, "user:free:1", 101); hits != 1 {
		t.Fatalf("expected a new window to start at 1, got %d", hits)
	}
	if hits, _ := counter.Incr(ctx, "user:free:2", 101); hits != 1 {
		t.Fatalf("expected keys to count separately, got %d", hits)
	}
}

func TestResolve_TierRates(t *testing.T) {
	cfg := SettingsConfig{
		Rate:      5,
		TierRates: map[models.SubscriptionTier]int{models.TierPremium: 50, models.TierEnterprise: 0},
	}

	free := Resolve(cfg, Caller{UserID: "u1", Tier: models.TierFree}, "10.0.0.1")
	if free.Rate != 5 || free.Key() != "user:free:u1" {
		t.Fatalf("expected free tier to use the default rate, got %+v key=%q", free, free.Key())
	}

	premium := Resolve(cfg, Caller{UserID: "u2", Tier: models.TierPremium}, "10.0.0.1")
	if premium.Rate != 50 || premium.Key() != "user:premium:u2" {
		t.Fatalf("unexpected premium decision %+v key=%q", premium, premium.Key())
	}

	enterprise := Resolve(cfg, Caller{UserID: "u3", Tier: models.TierEnterprise}, "10.0.0.1")
	if enterprise.Key() != "" {
		t.Fatalf("expected enterprise rate 0 to disable limiting, got %+v", enterprise)
	}

	unknown := Resolve(cfg, Caller{UserID: "u4", Tier: "gold"}, "")
	if unknown.Tier != models.TierFree || unknown.Key() != "user:free:u4" {
		t.Fatalf("expected unknown tier treated as free, got %+v", unknown)
	}

	anonymous := Resolve(cfg, Caller{}, " 10.0.0.9 ")
	if anonymous.Scope != ScopeClient || anonymous.Key() != "ip:10.0.0.9" {
		t.Fatalf("expected client scope, got %+v", anonymous)
	}

	if none := Resolve(cfg, Caller{}, ""); none.Key() != "" {
		t.Fatalf("expected no key without a subject, got %+v", none)
	}
}

func TestLoadSettingsConfig_FromSnapshot(t *testing.T) {
	internalsettings.StoreDBConfig(time.Now(), map[string]json.RawMessage{
		internalsettings.RateLimitKey:             json.RawMessage(`"12"`),
		internalsettings.RateLimitPremiumKey:      json.RawMessage(`120`),
		internalsettings.RateLimitRedisEnabledKey: json.RawMessage(`"yes"`),
		internalsettings.RateLimitRedisAddrKey:    json.RawMessage(`" redis:6379 "`),
	})
	t.Cleanup(func() { internalsettings.StoreDBConfig(time.Time{}, nil) })

	cfg := LoadSettingsConfig()
	if cfg.Rate != 12 {
		t.Fatalf("expected rate 12, got %d", cfg.Rate)
	}
	if cfg.RateFor(models.TierPremium) != 120 || cfg.RateFor(models.TierFree) != 12 {
		t.Fatalf("unexpected tier rates %+v", cfg.TierRates)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("unexpected redis settings: %+v", cfg.Redis)
	}
	if cfg.Redis.Prefix != internalsettings.DefaultRateLimitRedisPrefix {
		t.Fatalf("expected default prefix, got %q", cfg.Redis.Prefix)
	}
}

func TestWithRedisFallback_UsesConfigAddr(t *testing.T) {
	base := func() SettingsConfig { return SettingsConfig{Rate: 3} }
	provider := WithRedisFallback(base, config.RedisConfig{Addr: "cache:6379", DB: 2})

	cfg := provider()
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "cache:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("expected config redis fallback, got %+v", cfg.Redis)
	}

	provider = WithRedisFallback(base, config.RedisConfig{})
	if cfg = provider(); cfg.Redis.Enabled {
		t.Fatalf("expected redis disabled without an address, got %+v", cfg.Redis)
	}
}

func TestManager_TierRatesAreIndependent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	provider := func() SettingsConfig {
		return SettingsConfig{Rate: 1, TierRates: map[models.SubscriptionTier]int{models.TierPremium: 3}}
	}
	manager := NewManager(provider, func() time.Time { return now }, nil)
	t.Cleanup(manager.Close)
	ctx := context.Background()

	free := Caller{UserID: "u1", Tier: models.TierFree}
	if result, _ := manager.Check(ctx, free, ""); !result.Allowed || result.Limit != 1 || result.Remaining != 0 {
		t.Fatalf("expected first free request allowed, got %+v", result)
	}
	if result, _ := manager.Check(ctx, free, ""); result.Allowed {
		t.Fatalf("expected second free request rejected")
	}

	// The same account on premium counts in its own window.
	premium := Caller{UserID: "u1", Tier: models.TierPremium}
	for i := 0; i < 3; i++ {
		result, err := manager.Check(ctx, premium, "")
		if err != nil || !result.Allowed {
			t.Fatalf("premium request %d: expected allowed, got %+v (err=%v)", i, result, err)
		}
	}
	result, _ := manager.Check(ctx, premium, "")
	if result.Allowed || result.Limit != 3 {
		t.Fatalf("expected fourth premium request rejected, got %+v", result)
	}
	if !result.Reset.Equal(now.Add(time.Second)) {
		t.Fatalf("expected reset at the next second, got %s", result.Reset)
	}

	now = now.Add(time.Second)
	if result, _ := manager.Check(ctx, free, ""); !result.Allowed {
		t.Fatalf("expected a new window to allow the free caller again")
	}
}

func TestManager_UnlimitedWhenRateZero(t *testing.T) {
	manager := NewManager(func() SettingsConfig { return SettingsConfig{} }, nil, nil)
	t.Cleanup(manager.Close)

	for i := 0; i < 10; i++ {
		result, err := manager.Check(context.Background(), Caller{UserID: "u1"}, "10.0.0.1")
		if err != nil || !result.Allowed || result.Limit != 0 {
			t.Fatalf("expected unlimited request, got %+v (err=%v)", result, err)
		}
	}
}

func TestManager_FallsBackToMemoryWhenRedisDown(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	provider := func() SettingsConfig {
		return SettingsConfig{Rate: 1, Redis: RedisSettings{Enabled: true, Addr: "127.0.0.1:1", Prefix: "test"}}
	}
	manager := NewManager(provider, func() time.Time { return now }, nil)
	t.Cleanup(manager.Close)

	first, err := manager.Check(context.Background(), Caller{}, "10.0.0.1")
	if err != nil || !first.Allowed {
		t.Fatalf("expected first request allowed, got %+v (err=%v)", first, err)
	}
	second, err := manager.Check(context.Background(), Caller{}, "10.0.0.1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if second.Allowed {
		t.Fatalf("expected second request rejected by the memory counter")
	}
}
