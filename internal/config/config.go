package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"

	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvGoogleAIAPIKey = "GOOGLE_AI_API_KEY"

	EnvStripeSecretKey    = "STRIPE_SECRET_KEY"
	EnvStripePricePremium = "STRIPE_PRICE_ID_PREMIUM"
	EnvStripeWebhook      = "STRIPE_WEBHOOK_SECRET"

	EnvFrontendURL   = "FRONTEND_URL"
	EnvPublicBaseURL = "PUBLIC_BASE_URL"

	EnvRedisAddr  = "REDIS_ADDR"
	EnvLogLevel   = "LOG_LEVEL"
	EnvAdminToken = "ADMIN_TOKEN"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// GeminiConfig selects the generative models used for reports.
type GeminiConfig struct {
	APIKey         string `yaml:"api-key"`
	StructureModel string `yaml:"structure-model"`
	ContentModel   string `yaml:"content-model"`
}

// StripeConfig holds Stripe credentials. An empty secret key disables billing routes.
type StripeConfig struct {
	SecretKey      string `yaml:"secret-key"`
	PremiumPriceID string `yaml:"premium-price-id"`
	WebhookSecret  string `yaml:"webhook-secret"`
}

// OAuthClient holds client credentials for one data source provider.
type OAuthClient struct {
	ClientID     string `yaml:"client-id"`
	ClientSecret string `yaml:"client-secret"`
}

// OAuthConfig holds provider credentials keyed by provider tag.
type OAuthConfig struct {
	Providers map[string]OAuthClient `yaml:"providers"`
}

// ServerConfig holds public URLs and logging options. An empty AdminToken
// leaves the operator API unregistered.
type ServerConfig struct {
	Port          int    `yaml:"port"`
	PublicBaseURL string `yaml:"public-base-url"`
	FrontendURL   string `yaml:"frontend-url"`
	LogLevel      string `yaml:"log-level"`
	LogJSON       bool   `yaml:"log-json"`
	SecureCookies bool   `yaml:"secure-cookies"`
	AdminToken    string `yaml:"admin-token"`
}

// RedisConfig configures the optional Redis backend for rate limiting.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

const (
	defaultStructureModel = "gemini-2.5-pro"
	defaultContentModel   = "gemini-2.5-flash"
	defaultPremiumPriceID = "price_premium"
	defaultFrontendURL    = "http://localhost:5000"
)

// defaultSQLitePath is used when neither the env nor the config file carries a DSN.
const defaultSQLitePath = "reportstudio.db"

// readConfigFile unmarshals the YAML config into out. A missing file is not an error.
func readConfigFile(configPath string, out any) error {
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return nil
		}
		return fmt.Errorf("read config file: %w", errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, out); errUnmarshal != nil {
		return fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return nil
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// DefaultSQLitePath returns the fallback SQLite file name.
func DefaultSQLitePath() string { return defaultSQLitePath }

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// LoadGeminiConfig loads generative model settings. The API key may come from
// GEMINI_API_KEY or GOOGLE_AI_API_KEY, in that order.
func LoadGeminiConfig(configPath string) (GeminiConfig, error) {
	type fileConfig struct {
		Gemini GeminiConfig `yaml:"gemini"`
	}
	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return GeminiConfig{}, errRead
	}
	result := cfg.Gemini
	if key := strings.TrimSpace(os.Getenv(EnvGeminiAPIKey)); key != "" {
		result.APIKey = key
	} else if key = strings.TrimSpace(os.Getenv(EnvGoogleAIAPIKey)); key != "" {
		result.APIKey = key
	}
	result.APIKey = strings.TrimSpace(result.APIKey)
	if strings.TrimSpace(result.StructureModel) == "" {
		result.StructureModel = defaultStructureModel
	}
	if strings.TrimSpace(result.ContentModel) == "" {
		result.ContentModel = defaultContentModel
	}
	return result, nil
}

// LoadStripeConfig loads Stripe billing settings.
func LoadStripeConfig(configPath string) (StripeConfig, error) {
	type fileConfig struct {
		Stripe StripeConfig `yaml:"stripe"`
	}
	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return StripeConfig{}, errRead
	}
	result := cfg.Stripe
	if key := strings.TrimSpace(os.Getenv(EnvStripeSecretKey)); key != "" {
		result.SecretKey = key
	}
	if price := strings.TrimSpace(os.Getenv(EnvStripePricePremium)); price != "" {
		result.PremiumPriceID = price
	}
	if secret := strings.TrimSpace(os.Getenv(EnvStripeWebhook)); secret != "" {
		result.WebhookSecret = secret
	}
	if strings.TrimSpace(result.PremiumPriceID) == "" {
		result.PremiumPriceID = defaultPremiumPriceID
	}
	return result, nil
}

// LoadOAuthConfig loads data source OAuth client credentials. For every known
// provider, <PROVIDER>_CLIENT_ID and <PROVIDER>_CLIENT_SECRET override the file.
func LoadOAuthConfig(configPath string, providers []string) (OAuthConfig, error) {
	type fileConfig struct {
		OAuth OAuthConfig `yaml:"oauth"`
	}
	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return OAuthConfig{}, errRead
	}
	result := OAuthConfig{Providers: make(map[string]OAuthClient, len(providers))}
	for name, client := range cfg.OAuth.Providers {
		result.Providers[strings.ToLower(strings.TrimSpace(name))] = client
	}
	for _, provider := range providers {
		key := strings.ToLower(strings.TrimSpace(provider))
		client := result.Providers[key]
		envPrefix := strings.ToUpper(key)
		if id := strings.TrimSpace(os.Getenv(envPrefix + "_CLIENT_ID")); id != "" {
			client.ClientID = id
		}
		if secret := strings.TrimSpace(os.Getenv(envPrefix + "_CLIENT_SECRET")); secret != "" {
			client.ClientSecret = secret
		}
		result.Providers[key] = client
	}
	return result, nil
}

// LoadServerConfig loads listener, URL and logging settings.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	type fileConfig struct {
		Port          int    `yaml:"port"`
		PublicBaseURL string `yaml:"public-base-url"`
		FrontendURL   string `yaml:"frontend-url"`
		LogLevel      string `yaml:"log-level"`
		LogJSON       bool   `yaml:"log-json"`
		SecureCookies bool   `yaml:"secure-cookies"`
		AdminToken    string `yaml:"admin-token"`
	}
	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return ServerConfig{}, errRead
	}
	result := ServerConfig(cfg)
	if frontend := strings.TrimSpace(os.Getenv(EnvFrontendURL)); frontend != "" {
		result.FrontendURL = frontend
	}
	if base := strings.TrimSpace(os.Getenv(EnvPublicBaseURL)); base != "" {
		result.PublicBaseURL = base
	}
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		result.LogLevel = level
	}
	if token := strings.TrimSpace(os.Getenv(EnvAdminToken)); token != "" {
		result.AdminToken = token
	}
	result.AdminToken = strings.TrimSpace(result.AdminToken)
	result.FrontendURL = strings.TrimRight(strings.TrimSpace(result.FrontendURL), "/")
	if result.FrontendURL == "" {
		result.FrontendURL = defaultFrontendURL
	}
	result.PublicBaseURL = strings.TrimRight(strings.TrimSpace(result.PublicBaseURL), "/")
	return result, nil
}

// LoadRedisConfig loads the optional Redis settings.
func LoadRedisConfig(configPath string) (RedisConfig, error) {
	type fileConfig struct {
		Redis RedisConfig `yaml:"redis"`
	}
	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return RedisConfig{}, errRead
	}
	result := cfg.Redis
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		result.Addr = addr
	}
	result.Addr = strings.TrimSpace(result.Addr)
	if result.DB < 0 {
		result.DB = 0
	}
	return result, nil
}
