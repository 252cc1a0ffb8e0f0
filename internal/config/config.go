package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Retrieval RetrievalConfig
	Export    ExportConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds the connection settings of the land-registry database.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// RetrievalConfig controls how identifier lists are queried against the
// land-registry table.
type RetrievalConfig struct {
	Table          string
	BatchSize      int
	MaxConcurrency int
	Timeout        time.Duration
}

// ExportConfig holds spreadsheet export and import settings.
type ExportConfig struct {
	SheetName      string
	Filename       string
	ImportMaxBytes int64
}

// Load reads configuration from environment variables, with defaults suited
// to local development.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "foncier")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:8501")
	v.SetDefault("RETRIEVAL_TABLE", "parcelles_pm")
	v.SetDefault("RETRIEVAL_BATCH_SIZE", 500)
	v.SetDefault("RETRIEVAL_MAX_CONCURRENCY", 4)
	v.SetDefault("RETRIEVAL_TIMEOUT", "60s")
	v.SetDefault("EXPORT_SHEET_NAME", "PPM")
	v.SetDefault("EXPORT_FILENAME", "Énergie_Foncière_parcellaire_PM.xlsx")
	v.SetDefault("IMPORT_MAX_BYTES", 10<<20)

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseList(v.GetString("CORS_ORIGINS")),
		},
		Retrieval: RetrievalConfig{
			Table:          v.GetString("RETRIEVAL_TABLE"),
			BatchSize:      v.GetInt("RETRIEVAL_BATCH_SIZE"),
			MaxConcurrency: v.GetInt("RETRIEVAL_MAX_CONCURRENCY"),
			Timeout:        v.GetDuration("RETRIEVAL_TIMEOUT"),
		},
		Export: ExportConfig{
			SheetName:      v.GetString("EXPORT_SHEET_NAME"),
			Filename:       v.GetString("EXPORT_FILENAME"),
			ImportMaxBytes: v.GetInt64("IMPORT_MAX_BYTES"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	if !isIdentifier(c.Retrieval.Table) {
		return fmt.Errorf("RETRIEVAL_TABLE must be a plain SQL identifier, got %q", c.Retrieval.Table)
	}
	if c.Retrieval.BatchSize < 1 {
		return fmt.Errorf("RETRIEVAL_BATCH_SIZE must be at least 1")
	}
	if c.Retrieval.MaxConcurrency < 1 {
		return fmt.Errorf("RETRIEVAL_MAX_CONCURRENCY must be at least 1")
	}
	if c.Retrieval.Timeout <= 0 {
		return fmt.Errorf("RETRIEVAL_TIMEOUT must be positive")
	}

	if c.Export.SheetName == "" || len(c.Export.SheetName) > 31 {
		return fmt.Errorf("EXPORT_SHEET_NAME must be between 1 and 31 characters")
	}
	if c.Export.Filename == "" {
		return fmt.Errorf("EXPORT_FILENAME is required")
	}
	if c.Export.ImportMaxBytes < 1 {
		return fmt.Errorf("IMPORT_MAX_BYTES must be positive")
	}

	return nil
}

// parseList splits a comma-separated string into trimmed, non-empty items.
func parseList(raw string) []string {
	if raw == "" {
		return []string{}
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// isIdentifier reports whether s is safe to interpolate as a table name,
// optionally schema-qualified.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			switch {
			case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9' && i > 0:
			default:
				return false
			}
		}
	}
	return true
}
