// Package config loads application configuration from YAML files and
// SCANLAB_* environment variables, with validated defaults for every
// setting.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/scanlab-io/scanlab/internal/logging"
	"github.com/scanlab-io/scanlab/internal/scanner"
	"github.com/scanlab-io/scanlab/internal/workers"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// SCANLAB_SCANNING_COOLDOWN=120s.
const EnvPrefix = "SCANLAB"

// Config represents the complete application configuration.
type Config struct {
	// Scanning configuration
	Scanning ScanningConfig `yaml:"scanning" json:"scanning" mapstructure:"scanning"`

	// Database configuration
	Database DatabaseConfig `yaml:"database" json:"database" mapstructure:"database"`

	// API server configuration
	API APIConfig `yaml:"api" json:"api" mapstructure:"api"`

	// Worker pool configuration
	Workers WorkersConfig `yaml:"workers" json:"workers" mapstructure:"workers"`

	// Automatic scheduled scans
	AutoScan AutoScanConfig `yaml:"auto_scan" json:"auto_scan" mapstructure:"auto_scan"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
}

// ScanningConfig holds scan policy and engine settings.
type ScanningConfig struct {
	// Maximum time a single scan may run
	ScanTimeout time.Duration `yaml:"scan_timeout" json:"scan_timeout" mapstructure:"scan_timeout"`

	// Maximum number of addresses in a scan target
	MaxNetworkSize int `yaml:"max_network_size" json:"max_network_size" mapstructure:"max_network_size"`

	// Minimum pause between consecutive scans
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown" mapstructure:"cooldown"`

	// Port range for quick scans
	DefaultPortRange string `yaml:"default_port_range" json:"default_port_range" mapstructure:"default_port_range"`

	// Port range for deep scans
	DeepPortRange string `yaml:"deep_port_range" json:"deep_port_range" mapstructure:"deep_port_range"`

	// Permit live nmap scans. When false only the simulated engine
	// is available, regardless of the network mode preference.
	EnableRealScanning bool `yaml:"enable_real_scanning" json:"enable_real_scanning" mapstructure:"enable_real_scanning"`
}

// DatabaseConfig holds SQLite storage settings.
type DatabaseConfig struct {
	// Path to the SQLite database file
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	// Enable the HTTP API server
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`

	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr" mapstructure:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port" mapstructure:"port"`

	// Per-request timeout
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" mapstructure:"request_timeout"`

	// Maximum request body size in bytes
	MaxRequestSize int64 `yaml:"max_request_size" json:"max_request_size" mapstructure:"max_request_size"`

	// CORS settings
	CORS CORSConfig `yaml:"cors" json:"cors" mapstructure:"cors"`
}

// CORSConfig holds CORS settings for the API server.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers" mapstructure:"allowed_headers"`
}

// WorkersConfig holds worker pool settings.
type WorkersConfig struct {
	// Number of worker goroutines
	PoolSize int `yaml:"pool_size" json:"pool_size" mapstructure:"pool_size"`

	// Maximum number of queued jobs
	QueueSize int `yaml:"queue_size" json:"queue_size" mapstructure:"queue_size"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// AutoScanConfig holds scheduled scan settings. The enabled flag and
// target can also be toggled at runtime through preferences.
type AutoScanConfig struct {
	// Enable the scheduler
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`

	// Cron expression for scan times
	Schedule string `yaml:"schedule" json:"schedule" mapstructure:"schedule"`

	// Target to scan; empty means auto-detect the local network
	Target string `yaml:"target" json:"target" mapstructure:"target"`

	// Scan type for scheduled scans
	ScanType string `yaml:"scan_type" json:"scan_type" mapstructure:"scan_type"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" mapstructure:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format" mapstructure:"format"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output" mapstructure:"output"`

	// Include source locations in log records
	AddSource bool `yaml:"add_source" json:"add_source" mapstructure:"add_source"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			ScanTimeout:        scanner.DefaultScanTimeout,
			MaxNetworkSize:     256,
			Cooldown:           60 * time.Second,
			DefaultPortRange:   scanner.DefaultPortRange,
			DeepPortRange:      scanner.DeepPortRange,
			EnableRealScanning: false,
		},
		Database: DatabaseConfig{
			Path: "data/scanlab.db",
		},
		API: APIConfig{
			Enabled:        true,
			ListenAddr:     "127.0.0.1",
			Port:           8080,
			RequestTimeout: 30 * time.Second,
			MaxRequestSize: 1024 * 1024, // 1MB
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
			},
		},
		Workers: WorkersConfig{
			PoolSize:        4,
			QueueSize:       16,
			ShutdownTimeout: 30 * time.Second,
		},
		AutoScan: AutoScanConfig{
			Enabled:  false,
			Schedule: "@hourly",
			Target:   "",
			ScanType: "quick",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			Output:    "stdout",
			AddSource: false,
		},
	}
}

// Load loads configuration from an optional YAML file and SCANLAB_*
// environment variables layered over the defaults. An empty path loads
// defaults and environment only; a named file that does not exist is an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := Default()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so environment overrides work even
// without a config file.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("scanning.scan_timeout", defaults.Scanning.ScanTimeout)
	v.SetDefault("scanning.max_network_size", defaults.Scanning.MaxNetworkSize)
	v.SetDefault("scanning.cooldown", defaults.Scanning.Cooldown)
	v.SetDefault("scanning.default_port_range", defaults.Scanning.DefaultPortRange)
	v.SetDefault("scanning.deep_port_range", defaults.Scanning.DeepPortRange)
	v.SetDefault("scanning.enable_real_scanning", defaults.Scanning.EnableRealScanning)

	v.SetDefault("database.path", defaults.Database.Path)

	v.SetDefault("api.enabled", defaults.API.Enabled)
	v.SetDefault("api.listen_addr", defaults.API.ListenAddr)
	v.SetDefault("api.port", defaults.API.Port)
	v.SetDefault("api.request_timeout", defaults.API.RequestTimeout)
	v.SetDefault("api.max_request_size", defaults.API.MaxRequestSize)
	v.SetDefault("api.cors.enabled", defaults.API.CORS.Enabled)
	v.SetDefault("api.cors.allowed_origins", defaults.API.CORS.AllowedOrigins)
	v.SetDefault("api.cors.allowed_methods", defaults.API.CORS.AllowedMethods)
	v.SetDefault("api.cors.allowed_headers", defaults.API.CORS.AllowedHeaders)

	v.SetDefault("workers.pool_size", defaults.Workers.PoolSize)
	v.SetDefault("workers.queue_size", defaults.Workers.QueueSize)
	v.SetDefault("workers.shutdown_timeout", defaults.Workers.ShutdownTimeout)

	v.SetDefault("auto_scan.enabled", defaults.AutoScan.Enabled)
	v.SetDefault("auto_scan.schedule", defaults.AutoScan.Schedule)
	v.SetDefault("auto_scan.target", defaults.AutoScan.Target)
	v.SetDefault("auto_scan.scan_type", defaults.AutoScan.ScanType)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.output", defaults.Logging.Output)
	v.SetDefault("logging.add_source", defaults.Logging.AddSource)
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Scanning.ScanTimeout <= 0 {
		return fmt.Errorf("scan timeout must be positive")
	}
	if c.Scanning.MaxNetworkSize <= 0 {
		return fmt.Errorf("max network size must be positive")
	}
	if c.Scanning.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			return fmt.Errorf("API port must be between 1 and 65535")
		}
		if c.API.ListenAddr == "" {
			return fmt.Errorf("API listen address is required when API is enabled")
		}
	}

	if c.Workers.PoolSize <= 0 {
		return fmt.Errorf("worker pool size must be positive")
	}

	if c.AutoScan.Enabled && c.AutoScan.Schedule == "" {
		return fmt.Errorf("auto scan schedule is required when auto scan is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// GetAPIAddress returns the full API listen address.
func (c *Config) GetAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.ListenAddr, c.API.Port)
}

// WorkerPoolConfig converts the worker settings for the workers package.
func (c *Config) WorkerPoolConfig() workers.Config {
	cfg := workers.DefaultConfig()
	cfg.Size = c.Workers.PoolSize
	cfg.QueueSize = c.Workers.QueueSize
	cfg.ShutdownTimeout = c.Workers.ShutdownTimeout
	return cfg
}

// NmapConfig converts the scan settings for the nmap engine.
func (c *Config) NmapConfig() scanner.NmapConfig {
	return scanner.NmapConfig{
		Timeout:          c.Scanning.ScanTimeout,
		DefaultPortRange: c.Scanning.DefaultPortRange,
		DeepPortRange:    c.Scanning.DeepPortRange,
	}
}

// LoggerConfig converts the logging settings for the logging package.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:     logging.LogLevel(c.Logging.Level),
		Format:    logging.LogFormat(c.Logging.Format),
		Output:    c.Logging.Output,
		AddSource: c.Logging.AddSource,
	}
}
