package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATASET_SOURCE", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DATASET_PAGE_SIZE", "")
	t.Setenv("DATASET_DEDUP_VIN", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Dataset.Source != SourceFile {
		t.Errorf("Dataset.Source = %q, want %q", cfg.Dataset.Source, SourceFile)
	}
	if cfg.Dataset.PageSize != 10 {
		t.Errorf("Dataset.PageSize = %d, want 10", cfg.Dataset.PageSize)
	}
	if cfg.Dataset.DedupVIN {
		t.Error("Dataset.DedupVIN should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATASET_SOURCE", "URL")
	t.Setenv("DATASET_URL", "https://example.com/ev.csv")
	t.Setenv("DATASET_DEDUP_VIN", "true")
	t.Setenv("DATASET_FETCH_TIMEOUT", "5s")
	t.Setenv("DATASET_PARSER", "legacy")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Dataset.Source != SourceURL {
		t.Errorf("Dataset.Source = %q, want url", cfg.Dataset.Source)
	}
	if !cfg.Dataset.DedupVIN {
		t.Error("Dataset.DedupVIN should be true")
	}
	if cfg.Dataset.FetchTimeout != 5*time.Second {
		t.Errorf("Dataset.FetchTimeout = %v, want 5s", cfg.Dataset.FetchTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_PORT":           "eighty",
		"DATASET_DEDUP_VIN":     "maybe",
		"DATASET_FETCH_TIMEOUT": "soon",
	}

	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig() with %s=%s should fail", key, val)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{MaxOpenConns: 10},
			Dataset: DatasetConfig{
				Source:     SourceFile,
				Path:       "data.csv",
				Table:      "ev_registrations",
				ParserMode: ParserCSV,
				PageSize:   10,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid file source", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "unknown source", mutate: func(c *Config) { c.Dataset.Source = "s3" }, wantErr: true},
		{name: "file source without path", mutate: func(c *Config) { c.Dataset.Path = "" }, wantErr: true},
		{name: "url source without scheme", mutate: func(c *Config) {
			c.Dataset.Source = SourceURL
			c.Dataset.URL = "example.com/ev.csv"
		}, wantErr: true},
		{name: "postgres source", mutate: func(c *Config) { c.Dataset.Source = SourcePostgres }},
		{name: "postgres source with schema", mutate: func(c *Config) {
			c.Dataset.Source = SourcePostgres
			c.Dataset.Table = "public.ev_registrations"
		}},
		{name: "postgres source with injected table", mutate: func(c *Config) {
			c.Dataset.Source = SourcePostgres
			c.Dataset.Table = "ev; DROP TABLE x"
		}, wantErr: true},
		{name: "unknown parser", mutate: func(c *Config) { c.Dataset.ParserMode = "xml" }, wantErr: true},
		{name: "zero page size", mutate: func(c *Config) { c.Dataset.PageSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_Connection(t *testing.T) {
	d := DatabaseConfig{
		Host:            "db",
		Port:            5433,
		User:            "ev",
		Database:        "ev_dashboard",
		SSLMode:         "require",
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Minute,
	}

	conn := d.Connection()
	if conn.Host != "db" || conn.Port != 5433 || conn.MaxOpenConns != 4 || conn.ConnMaxLifetime != time.Minute {
		t.Errorf("Connection() = %+v", conn)
	}
	if want := "host=db port=5433 user=ev password= dbname=ev_dashboard sslmode=require"; conn.DSN() != want {
		t.Errorf("DSN() = %q, want %q", conn.DSN(), want)
	}
}
