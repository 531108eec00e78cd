package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/config"
	"github.com/router-for-me/ReportStudio/internal/db"
)

func TestNewEngine_ServesHealthAndRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, key := range []string{
		config.EnvDBConnection, config.EnvGeminiAPIKey, config.EnvGoogleAIAPIKey,
		config.EnvStripeSecretKey, config.EnvRedisAddr,
	} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	conn, err := db.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	configPath := filepath.Join(dir, "missing.yaml")
	jwtCfg := config.JWTConfig{Secret: "test-secret"}
	serverCfg := config.ServerConfig{FrontendURL: "http://localhost:5000", PublicBaseURL: "http://localhost:5000", AdminToken: "ops"}
	deps, cleanup, err := buildDependencies(context.Background(), configPath, conn, jwtCfg, serverCfg)
	if err != nil {
		t.Fatalf("buildDependencies: %v", err)
	}
	t.Cleanup(cleanup)
	if deps.Billing != nil {
		t.Fatalf("expected billing to be disabled without a stripe key")
	}

	engine := NewEngine(deps)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/auth/me", http.StatusUnauthorized},
		{http.MethodGet, "/api/canvas/components", http.StatusOK},
		{http.MethodPost, "/api/stripe/webhook", http.StatusNotFound},
		{http.MethodGet, "/v0/admin/settings", http.StatusUnauthorized},
		{http.MethodGet, "/does-not-exist", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		engine.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d body=%s", tc.method, tc.path, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestResolveDSN_FallsBackToSQLite(t *testing.T) {
	t.Setenv(config.EnvDBConnection, "")

	dsn := resolveDSN(filepath.Join(t.TempDir(), "missing.yaml"))
	if dsn != db.SQLiteDSN(config.DefaultSQLitePath()) {
		t.Fatalf("expected sqlite fallback, got %q", dsn)
	}
}

func TestConfigureLogging_ParsesLevel(t *testing.T) {
	configureLogging(config.ServerConfig{LogLevel: "warn", LogJSON: true})
	if gin.Mode() != gin.ReleaseMode {
		t.Fatalf("expected release mode, got %s", gin.Mode())
	}
	configureLogging(config.ServerConfig{LogLevel: "debug"})
	if gin.Mode() != gin.DebugMode {
		t.Fatalf("expected debug mode, got %s", gin.Mode())
	}
	gin.SetMode(gin.TestMode)
}
