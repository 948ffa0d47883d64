package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"slot-history-backend/internal/history"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Input    InputConfig    `yaml:"input"`
	Timezone TimezoneConfig `yaml:"timezone"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Database DatabaseConfig `yaml:"database"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// InputConfig describes where snapshot files are read from.
type InputConfig struct {
	// Paths are glob patterns.
	Paths []string `yaml:"paths"`
	// Delimiter is ";" or ","; empty detects it from the header line.
	Delimiter       string        `yaml:"delimiter"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
}

// TimezoneConfig names the reference zone appointments are expressed in and
// the zone grab timestamps are recorded in.
type TimezoneConfig struct {
	Local string        `yaml:"local"`
	Grab  string        `yaml:"grab"`
	Zones history.Zones `yaml:"-"`
}

// PipelineConfig holds the computation options.
type PipelineConfig struct {
	Workers        int                  `yaml:"workers"`
	RestrictToPast bool                 `yaml:"restrict_to_past"`
	ArtifactRule   string               `yaml:"artifact_rule"`
	Rule           history.ArtifactRule `yaml:"-"`
}

// Options returns the pipeline options this configuration describes.
func (p PipelineConfig) Options() history.Options {
	return history.Options{
		RestrictToPast: p.RestrictToPast,
		ArtifactRule:   p.Rule,
		Workers:        p.Workers,
	}
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
	LogLevel               string `yaml:"log_level"`
}

// ExportConfig controls the table writers.
type ExportConfig struct {
	Dir       string `yaml:"dir"`
	Delimiter string `yaml:"delimiter"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Input.IntervalSeconds < 0 {
		cfg.Input.IntervalSeconds = 0
	}
	cfg.Input.Interval = time.Duration(cfg.Input.IntervalSeconds) * time.Second
	switch cfg.Input.Delimiter {
	case "", ";", ",":
	default:
		return fmt.Errorf("input.delimiter must be \";\" or \",\", got %q", cfg.Input.Delimiter)
	}

	if cfg.Timezone.Local == "" {
		cfg.Timezone.Local = "Europe/London"
	}
	if cfg.Timezone.Grab == "" {
		cfg.Timezone.Grab = "UTC"
	}
	zones, err := history.LoadZones(cfg.Timezone.Local, cfg.Timezone.Grab)
	if err != nil {
		return err
	}
	cfg.Timezone.Zones = zones

	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 1
	}
	rule, err := history.ParseArtifactRule(cfg.Pipeline.ArtifactRule)
	if err != nil {
		return fmt.Errorf("pipeline.artifact_rule: %w", err)
	}
	cfg.Pipeline.Rule = rule

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", cfg.Database.Driver)
	}

	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "./out"
	}
	if cfg.Export.Delimiter == "" {
		cfg.Export.Delimiter = ";"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}
