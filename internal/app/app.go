package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/billing"
	"github.com/router-for-me/ReportStudio/internal/config"
	"github.com/router-for-me/ReportStudio/internal/db"
	"github.com/router-for-me/ReportStudio/internal/generator"
	"github.com/router-for-me/ReportStudio/internal/http/api/admin"
	"github.com/router-for-me/ReportStudio/internal/http/api/front"
	"github.com/router-for-me/ReportStudio/internal/http/api/front/handlers"
	"github.com/router-for-me/ReportStudio/internal/http/middleware"
	"github.com/router-for-me/ReportStudio/internal/oauth"
	"github.com/router-for-me/ReportStudio/internal/ratelimit"
	"github.com/router-for-me/ReportStudio/internal/reports"
	internalsettings "github.com/router-for-me/ReportStudio/internal/settings"
	"github.com/router-for-me/ReportStudio/internal/store"
	"github.com/router-for-me/ReportStudio/internal/upload"
	internalusage "github.com/router-for-me/ReportStudio/internal/usage"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn := resolveDSN(configPath)
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close(conn)
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("migrations applied")
	return nil
}

// RunServer boots the report API and blocks until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	serverCfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return err
	}
	configureLogging(serverCfg)

	dsn := resolveDSN(configPath)
	if info, errDescribe := db.DescribeDSN(dsn); errDescribe == nil {
		log.WithFields(log.Fields{"type": info.Type, "host": info.Host, "name": info.Name, "path": info.Path}).Info("opening database")
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errReload := internalsettings.Reload(ctx, conn); errReload != nil {
		return errReload
	}

	jwtConfig, _ := config.LoadJWTConfig(configPath)
	if strings.TrimSpace(jwtConfig.Secret) == "" {
		return fmt.Errorf("jwt secret is required (set `jwt.secret` or %s)", config.EnvJWTSecret)
	}

	port := serverCfg.Port
	if port <= 0 {
		port = defaultPort
	}
	if serverCfg.PublicBaseURL == "" {
		serverCfg.PublicBaseURL = fmt.Sprintf("http://localhost:%d", port)
	}

	deps, cleanup, err := buildDependencies(ctx, configPath, conn, jwtConfig, serverCfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewEngine(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting server on %s with config=%s", srv.Addr, configPath)
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	log.Info("server stopped")
	return nil
}

// buildDependencies wires the services behind the HTTP routes.
func buildDependencies(ctx context.Context, configPath string, conn *gorm.DB, jwtConfig config.JWTConfig, serverCfg config.ServerConfig) (front.Dependencies, func(), error) {
	geminiCfg, err := config.LoadGeminiConfig(configPath)
	if err != nil {
		return front.Dependencies{}, nil, err
	}
	gen, err := generator.New(ctx, geminiCfg)
	if err != nil {
		return front.Dependencies{}, nil, err
	}
	if !gen.Configured() {
		log.Warnf("no %s configured; report generation will fail", config.EnvGeminiAPIKey)
	}

	oauthCfg, err := config.LoadOAuthConfig(configPath, oauth.ProviderNames())
	if err != nil {
		return front.Dependencies{}, nil, err
	}
	stripeCfg, err := config.LoadStripeConfig(configPath)
	if err != nil {
		return front.Dependencies{}, nil, err
	}
	redisCfg, err := config.LoadRedisConfig(configPath)
	if err != nil {
		return front.Dependencies{}, nil, err
	}

	tracker := internalusage.NewTracker(conn, time.Now)
	limiterSettings := ratelimit.WithRedisFallback(ratelimit.LoadSettingsConfig, redisCfg)
	limiter := ratelimit.NewManager(limiterSettings, time.Now, nil)

	deps := front.Dependencies{
		DB:          conn,
		JWT:         jwtConfig,
		Server:      serverCfg,
		Reports:     reports.NewService(conn, gen, tracker),
		DataSources: store.NewGormDataSourceStore(conn),
		OAuth:       oauth.NewService(oauthCfg, serverCfg.PublicBaseURL, jwtConfig.Secret),
		RateLimiter: limiter,
	}
	if strings.TrimSpace(stripeCfg.SecretKey) != "" {
		deps.Billing = billing.NewService(conn, billing.NewStripeGateway(stripeCfg.SecretKey), stripeCfg.PremiumPriceID, stripeCfg.WebhookSecret)
	} else {
		log.Info("stripe not configured; subscription routes disabled")
	}
	return deps, limiter.Close, nil
}

// NewEngine builds the gin engine with the ambient middleware and all routes.
func NewEngine(deps front.Dependencies) *gin.Engine {
	engine := gin.New()
	engine.MaxMultipartMemory = int64(upload.MaxFiles) * upload.MaxFileSize
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(handlers.CurrentUserID))
	engine.Use(middleware.Metrics())

	front.RegisterFrontRoutes(engine, deps)
	admin.RegisterAdminRoutes(engine, deps.DB, deps.Server.AdminToken)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})
	return engine
}

// resolveDSN returns the configured DSN or the default local SQLite file.
func resolveDSN(configPath string) string {
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err == nil {
		return dsn
	}
	if !errors.Is(err, config.ErrMissingDatabaseDSN) && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("config: could not read database dsn")
	}
	fallback := db.SQLiteDSN(config.DefaultSQLitePath())
	log.Infof("no database dsn configured, using %s", fallback)
	return fallback
}

// configureLogging applies the configured log level and format.
func configureLogging(cfg config.ServerConfig) {
	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level := log.InfoLevel
	if raw := strings.TrimSpace(cfg.LogLevel); raw != "" {
		if parsed, errParse := log.ParseLevel(raw); errParse == nil {
			level = parsed
		} else {
			log.Warnf("unknown log level %q, using info", raw)
		}
	}
	log.SetLevel(level)
	if level >= log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}
