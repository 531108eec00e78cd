package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "ReportStudio"
	// APILimitFreeKey is the monthly generation limit for the free tier.
	APILimitFreeKey = "API_LIMIT_FREE"
	// APILimitPremiumKey is the monthly generation limit for the premium tier.
	APILimitPremiumKey = "API_LIMIT_PREMIUM"
	// APILimitEnterpriseKey is the monthly generation limit for the enterprise tier.
	APILimitEnterpriseKey = "API_LIMIT_ENTERPRISE"
	// RateLimitKey is the per-second request rate for anonymous callers and for
	// tiers without their own rate.
	RateLimitKey = "RATE_LIMIT"
	// RateLimitFreeKey is the per-second request rate for free accounts.
	RateLimitFreeKey = "RATE_LIMIT_FREE"
	// RateLimitPremiumKey is the per-second request rate for premium accounts.
	RateLimitPremiumKey = "RATE_LIMIT_PREMIUM"
	// RateLimitEnterpriseKey is the per-second request rate for enterprise accounts.
	RateLimitEnterpriseKey = "RATE_LIMIT_ENTERPRISE"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// DefaultAPILimitFree is the fallback free tier limit.
	DefaultAPILimitFree = 100
	// DefaultAPILimitPremium is the fallback premium tier limit.
	DefaultAPILimitPremium = 1000
	// DefaultAPILimitEnterprise is the fallback enterprise tier limit.
	DefaultAPILimitEnterprise = 10000
	// DefaultRateLimit is the fallback rate limit (0 means unlimited).
	DefaultRateLimit = 0
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "reports:rl"
)
