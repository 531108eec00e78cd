package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/router-for-me/ReportStudio/internal/config"
	"github.com/router-for-me/ReportStudio/internal/db"
	"github.com/router-for-me/ReportStudio/internal/security"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Port        int    `yaml:"port"`
	DatabaseDSN string `yaml:"database-dsn"`
	FrontendURL string `yaml:"frontend-url"`
	LogLevel    string `yaml:"log-level"`
	JWT         jwtCfg `yaml:"jwt"`
}

// jwtCfg holds JWT settings for the generated config file.
type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

// generateJWTSecret creates a random JWT secret string.
func generateJWTSecret() string {
	secret, err := security.GenerateRandomString(32)
	if err != nil {
		return "change-me-to-a-secure-random-string"
	}
	return secret
}

// WriteConfigFile writes the initial config file to disk.
func WriteConfigFile(configPath string, dsn string, port int) error {
	cfg := configFile{
		Port:        port,
		DatabaseDSN: dsn,
		FrontendURL: "http://localhost:5000",
		LogLevel:    "info",
		JWT: jwtCfg{
			Secret: generateJWTSecret(),
			Expiry: "24h",
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}

	return nil
}

// EnsureConfigFile writes a config with a local SQLite database and a fresh
// JWT secret when none exists and DB_CONNECTION is unset. It reports whether
// a file was created.
func EnsureConfigFile(configPath string, port int) (bool, error) {
	if ConfigExists(configPath) || strings.TrimSpace(os.Getenv(config.EnvDBConnection)) != "" {
		return false, nil
	}
	dsnPath := filepath.Join(filepath.Dir(configPath), config.DefaultSQLitePath())
	dsn := db.SQLiteDSN(dsnPath)
	if errTest := TestDatabaseConnection(dsn); errTest != nil {
		return false, errTest
	}
	if errWrite := WriteConfigFile(configPath, dsn, port); errWrite != nil {
		return false, errWrite
	}
	log.Infof("wrote default config to %s", configPath)
	return true, nil
}

// TestDatabaseConnection validates that the DSN can connect and ping.
func TestDatabaseConnection(dsn string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close(conn)
	if errPing := db.Ping(conn); errPing != nil {
		return fmt.Errorf("failed to ping database: %w", errPing)
	}
	return nil
}
