package ratelimit

import (
	"strings"

	"github.com/router-for-me/ReportStudio/internal/config"
	"github.com/router-for-me/ReportStudio/internal/models"
	internalsettings "github.com/router-for-me/ReportStudio/internal/settings"
)

// tiers lists the subscription tiers that may carry their own rate.
var tiers = []models.SubscriptionTier{models.TierFree, models.TierPremium, models.TierEnterprise}

// RedisSettings selects the shared counter backend.
type RedisSettings struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// SettingsConfig is the rate limit view of the settings snapshot. Rates are
// requests per second; zero disables limiting.
type SettingsConfig struct {
	// Rate applies to anonymous callers and to tiers missing from TierRates.
	Rate      int
	TierRates map[models.SubscriptionTier]int
	Redis     RedisSettings
}

// SettingsProvider supplies the latest settings snapshot.
type SettingsProvider func() SettingsConfig

// RateFor returns the per-second rate of tier.
func (c SettingsConfig) RateFor(tier models.SubscriptionTier) int {
	if rate, ok := c.TierRates[tier]; ok {
		return rate
	}
	return c.Rate
}

// LoadSettingsConfig reads rates and Redis options from the settings snapshot.
func LoadSettingsConfig() SettingsConfig {
	cfg := SettingsConfig{
		Rate:      internalsettings.IntValue(internalsettings.RateLimitKey, internalsettings.DefaultRateLimit),
		TierRates: make(map[models.SubscriptionTier]int, len(tiers)),
		Redis: RedisSettings{
			Enabled:  internalsettings.BoolValue(internalsettings.RateLimitRedisEnabledKey, false),
			Addr:     internalsettings.StringValue(internalsettings.RateLimitRedisAddrKey, ""),
			Password: internalsettings.StringValue(internalsettings.RateLimitRedisPasswordKey, ""),
			DB:       internalsettings.IntValue(internalsettings.RateLimitRedisDBKey, 0),
			Prefix:   internalsettings.StringValue(internalsettings.RateLimitRedisPrefixKey, internalsettings.DefaultRateLimitRedisPrefix),
		},
	}
	for _, tier := range tiers {
		if rate, ok := internalsettings.TierRate(tier); ok {
			cfg.TierRates[tier] = rate
		}
	}
	return cfg
}

// WithRedisFallback wraps provider so that a Redis address from the config
// file enables the Redis backend when the settings table does not name one.
func WithRedisFallback(provider SettingsProvider, redisCfg config.RedisConfig) SettingsProvider {
	if provider == nil {
		provider = LoadSettingsConfig
	}
	addr := strings.TrimSpace(redisCfg.Addr)
	return func() SettingsConfig {
		cfg := provider()
		if cfg.Redis.Addr != "" || addr == "" {
			return cfg
		}
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = addr
		cfg.Redis.Password = redisCfg.Password
		cfg.Redis.DB = redisCfg.DB
		return cfg
	}
}
