package configs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/i2y/bqmcp/internal/domain"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "bqmcp"

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

var (
	ErrProjectIDRequired = errors.New("project id is required (--project-id or BQMCP_PROJECT_ID)")
	ErrInvalidTransport  = errors.New("transport must be stdio or sse")
)

// Config holds the final application configuration, merged from defaults,
// the optional YAML file and environment variables with the prefix "BQMCP_".
// Fields have no envconfig defaults so that unset variables keep file values.
type Config struct {
	// Config File Path (Loaded first from env)
	ConfigFilePath string `envconfig:"CONFIG_FILE" yaml:"-"`

	// BigQuery
	ProjectID             string `envconfig:"PROJECT_ID" yaml:"project_id"`
	Location              string `envconfig:"LOCATION" yaml:"location"`
	KeyFile               string `envconfig:"KEY_FILE" yaml:"key_file"`
	MaxResults            int    `envconfig:"MAX_RESULTS" yaml:"max_results"`
	MaxBytesBilled        int64  `envconfig:"MAX_BYTES_BILLED" yaml:"max_bytes_billed"`
	TableFetchConcurrency int    `envconfig:"TABLE_FETCH_CONCURRENCY" yaml:"table_fetch_concurrency"`

	// Server
	Transport       string        `envconfig:"TRANSPORT" yaml:"transport"`
	ListenAddr      string        `envconfig:"LISTEN_ADDR" yaml:"listen_addr"`
	AdminAddr       string        `envconfig:"ADMIN_ADDR" yaml:"admin_addr"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`

	// Observability
	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" yaml:"otel_exporter_otlp_endpoint"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" yaml:"otel_exporter_otlp_insecure"`
	LogLevel                 string `envconfig:"LOG_LEVEL" yaml:"log_level"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Location:                 domain.DefaultLocation,
		MaxResults:               domain.DefaultMaxResultRows,
		MaxBytesBilled:           domain.DefaultMaxBytesBilled,
		TableFetchConcurrency:    domain.DefaultTableFetchWorkers,
		Transport:                TransportStdio,
		ListenAddr:               ":8080",
		AdminAddr:                ":8081",
		ShutdownTimeout:          5 * time.Second,
		OtelExporterOtlpInsecure: true,
		LogLevel:                 "info",
	}
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Validate reports the first setting that prevents startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProjectID) == "" {
		return ErrProjectIDRequired
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("max results must not be negative: %d", c.MaxResults)
	}
	if c.MaxBytesBilled < 0 {
		return fmt.Errorf("max bytes billed must not be negative: %d", c.MaxBytesBilled)
	}
	if c.TableFetchConcurrency < 0 {
		return fmt.Errorf("table fetch concurrency must not be negative: %d", c.TableFetchConcurrency)
	}
	if c.Transport != TransportStdio && c.Transport != TransportSSE {
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Transport)
	}
	return nil
}

// ServerConfig returns the settings shared by the tool handlers.
func (c *Config) ServerConfig() domain.ServerConfig {
	return domain.ServerConfig{
		ProjectID:             c.ProjectID,
		Location:              c.Location,
		KeyFile:               c.KeyFile,
		MaxResultRows:         c.MaxResults,
		MaxBytesBilled:        c.MaxBytesBilled,
		TableFetchConcurrency: c.TableFetchConcurrency,
	}
}

// Load loads configuration first from environment variables (to get file path),
// then from the specified YAML file, and finally overrides with environment variables.
// A non-empty configFile takes precedence over BQMCP_CONFIG_FILE.
// The result is not validated; command line flags are applied by the caller first.
func Load(configFile string) (*Config, error) {
	// 1. Load the file path from Env
	var initialCfg struct {
		ConfigFilePath string `envconfig:"CONFIG_FILE"`
	}
	if err := envconfig.Process(EnvPrefix, &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}

	cfg := Default()
	cfg.ConfigFilePath = initialCfg.ConfigFilePath
	if configFile != "" {
		cfg.ConfigFilePath = configFile
	}

	// 2. Load config from YAML file if path is specified
	if cfg.ConfigFilePath != "" {
		if err := cfg.mergeFile(cfg.ConfigFilePath); err != nil {
			return nil, err
		}
		slog.Info("Loaded configuration from file.", "path", cfg.ConfigFilePath)
	}

	// 3. Process environment variables to allow overrides over file settings.
	path := cfg.ConfigFilePath
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}
	cfg.ConfigFilePath = path

	return cfg, nil
}

// mergeFile overlays the YAML file at path onto c. Keys missing from the
// file keep their current values.
func (c *Config) mergeFile(path string) error {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(yamlFile, c); err != nil {
		return fmt.Errorf("failed to unmarshal config file '%s': %w", path, err)
	}
	return nil
}
