package config

import (
	"testing"
	"time"
)

var configEnvVars = []string{
	"PORT", "ENV",
	"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE", "DB_POOL_MIN", "DB_POOL_MAX",
	"CORS_ORIGINS",
	"RETRIEVAL_TABLE", "RETRIEVAL_BATCH_SIZE", "RETRIEVAL_MAX_CONCURRENCY", "RETRIEVAL_TIMEOUT",
	"EXPORT_SHEET_NAME", "EXPORT_FILENAME", "IMPORT_MAX_BYTES",
}

// clearConfigEnv blanks every config variable for the duration of the test.
// Empty variables are ignored by viper, so defaults apply.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
}

// validConfig returns a configuration that passes Validate.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Env: "development"},
		Database: DatabaseConfig{
			Host: "localhost", Port: "5432", Name: "foncier",
			User: "postgres", Password: "postgres", SSLMode: "disable", PoolMin: 2, PoolMax: 10,
		},
		CORS:      CORSConfig{Origins: []string{"http://localhost:3000"}},
		Retrieval: RetrievalConfig{Table: "parcelles_pm", BatchSize: 500, MaxConcurrency: 4, Timeout: time.Minute},
		Export:    ExportConfig{SheetName: "PPM", Filename: "export.xlsx", ImportMaxBytes: 1 << 20},
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DB_PASSWORD", "testpass")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.Env != "development" {
		t.Errorf("Expected env development, got %s", cfg.Server.Env)
	}
	if cfg.Database.Name != "foncier" {
		t.Errorf("Expected db name foncier, got %s", cfg.Database.Name)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Errorf("Expected sslmode disable, got %s", cfg.Database.SSLMode)
	}
	if cfg.Database.PoolMin != 2 || cfg.Database.PoolMax != 10 {
		t.Errorf("Expected pool 2..10, got %d..%d", cfg.Database.PoolMin, cfg.Database.PoolMax)
	}
	if len(cfg.CORS.Origins) != 2 {
		t.Errorf("Expected 2 CORS origins, got %d", len(cfg.CORS.Origins))
	}
	if cfg.Retrieval.Table != "parcelles_pm" {
		t.Errorf("Expected retrieval table parcelles_pm, got %s", cfg.Retrieval.Table)
	}
	if cfg.Retrieval.BatchSize != 500 {
		t.Errorf("Expected batch size 500, got %d", cfg.Retrieval.BatchSize)
	}
	if cfg.Retrieval.MaxConcurrency != 4 {
		t.Errorf("Expected max concurrency 4, got %d", cfg.Retrieval.MaxConcurrency)
	}
	if cfg.Retrieval.Timeout != 60*time.Second {
		t.Errorf("Expected timeout 60s, got %s", cfg.Retrieval.Timeout)
	}
	if cfg.Export.SheetName != "PPM" {
		t.Errorf("Expected sheet name PPM, got %s", cfg.Export.SheetName)
	}
	if cfg.Export.Filename != "Énergie_Foncière_parcellaire_PM.xlsx" {
		t.Errorf("Unexpected export filename %s", cfg.Export.Filename)
	}
	if cfg.Export.ImportMaxBytes != 10<<20 {
		t.Errorf("Expected import limit 10MiB, got %d", cfg.Export.ImportMaxBytes)
	}
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("CORS_ORIGINS", "http://example.com, https://app.example.com")
	t.Setenv("RETRIEVAL_TABLE", "majic.parcelles_pm")
	t.Setenv("RETRIEVAL_BATCH_SIZE", "100")
	t.Setenv("RETRIEVAL_MAX_CONCURRENCY", "2")
	t.Setenv("RETRIEVAL_TIMEOUT", "15s")
	t.Setenv("EXPORT_SHEET_NAME", "Parcelles")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.Env != "production" {
		t.Errorf("Unexpected server config %+v", cfg.Server)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.SSLMode != "require" {
		t.Errorf("Unexpected database config %+v", cfg.Database)
	}
	if len(cfg.CORS.Origins) != 2 || cfg.CORS.Origins[1] != "https://app.example.com" {
		t.Errorf("Unexpected CORS origins %v", cfg.CORS.Origins)
	}
	if cfg.Retrieval.Table != "majic.parcelles_pm" {
		t.Errorf("Expected schema-qualified table, got %s", cfg.Retrieval.Table)
	}
	if cfg.Retrieval.BatchSize != 100 || cfg.Retrieval.MaxConcurrency != 2 {
		t.Errorf("Unexpected retrieval config %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.Timeout != 15*time.Second {
		t.Errorf("Expected timeout 15s, got %s", cfg.Retrieval.Timeout)
	}
	if cfg.Export.SheetName != "Parcelles" {
		t.Errorf("Expected sheet name Parcelles, got %s", cfg.Export.SheetName)
	}
}

func TestLoad_MissingPassword(t *testing.T) {
	clearConfigEnv(t)

	_, err := Load()
	if err == nil {
		t.Error("Expected error when DB_PASSWORD is missing")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: true},
		{name: "missing db host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: true},
		{name: "missing db password", mutate: func(c *Config) { c.Database.Password = "" }, wantErr: true},
		{name: "negative pool min", mutate: func(c *Config) { c.Database.PoolMin = -1 }, wantErr: true},
		{name: "zero pool max", mutate: func(c *Config) { c.Database.PoolMin = 0; c.Database.PoolMax = 0 }, wantErr: true},
		{name: "pool min greater than max", mutate: func(c *Config) { c.Database.PoolMin = 15 }, wantErr: true},
		{name: "missing CORS origins", mutate: func(c *Config) { c.CORS.Origins = []string{} }, wantErr: true},
		{name: "table with injection", mutate: func(c *Config) { c.Retrieval.Table = "parcelles; DROP TABLE x" }, wantErr: true},
		{name: "table starting with digit", mutate: func(c *Config) { c.Retrieval.Table = "1parcelles" }, wantErr: true},
		{name: "schema qualified table", mutate: func(c *Config) { c.Retrieval.Table = "majic.parcelles_pm" }, wantErr: false},
		{name: "empty schema part", mutate: func(c *Config) { c.Retrieval.Table = ".parcelles" }, wantErr: true},
		{name: "zero batch size", mutate: func(c *Config) { c.Retrieval.BatchSize = 0 }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.Retrieval.MaxConcurrency = 0 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Retrieval.Timeout = 0 }, wantErr: true},
		{name: "empty sheet name", mutate: func(c *Config) { c.Export.SheetName = "" }, wantErr: true},
		{name: "sheet name too long", mutate: func(c *Config) { c.Export.SheetName = "abcdefghijklmnopqrstuvwxyz012345" }, wantErr: true},
		{name: "missing filename", mutate: func(c *Config) { c.Export.Filename = "" }, wantErr: true},
		{name: "zero import limit", mutate: func(c *Config) { c.Export.ImportMaxBytes = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{name: "single origin", input: "http://localhost:3000", expect: []string{"http://localhost:3000"}},
		{name: "multiple origins", input: "http://localhost:3000,http://localhost:3001", expect: []string{"http://localhost:3000", "http://localhost:3001"}},
		{name: "origins with spaces", input: " http://localhost:3000 , http://localhost:3001 ", expect: []string{"http://localhost:3000", "http://localhost:3001"}},
		{name: "empty string", input: "", expect: []string{}},
		{name: "only commas", input: ",,,", expect: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseList(tt.input)
			if len(result) != len(tt.expect) {
				t.Errorf("Expected %d items, got %d", len(tt.expect), len(result))
				return
			}
			for i, item := range result {
				if item != tt.expect[i] {
					t.Errorf("Expected %s at index %d, got %s", tt.expect[i], i, item)
				}
			}
		})
	}
}
