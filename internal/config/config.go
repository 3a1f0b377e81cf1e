package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const DefaultMemoryLimitRatio = 0.9

// Config is the sink's single configuration tree, populated from flags and
// then from an optional YAML file; any field the file sets takes
// precedence over the matching flag.
type Config struct {
	Server      ServerConfig      `yaml:"server,omitempty"`
	Database    DatabaseConfig    `yaml:"database,omitempty"`
	Sink        SinkConfig        `yaml:"sink,omitempty"`
	Scraper     ScraperConfig     `yaml:"scraper,omitempty"`
	Tracing     TracingConfig     `yaml:"tracing,omitempty"`
	MemoryLimit MemoryLimitConfig `yaml:"memory_limit,omitempty"`
}

// ServerConfig is the gRPC ingest listener and the ambient metrics/health
// HTTP server.
type ServerConfig struct {
	GRPCListenAddress       string        `yaml:"grpc_listen_address,omitempty"`
	MetricsListenAddress    string        `yaml:"metrics_listen_address,omitempty"`
	GRPCMaxRecvMsgSizeBytes int           `yaml:"grpc_max_recv_msg_size_bytes,omitempty"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout,omitempty"`
	DrainDelay              time.Duration `yaml:"drain_delay,omitempty"`
}

type DatabaseConfig struct {
	PostgreSQL PostgreSQLConfig `yaml:"postgresql,omitempty"`
}

type PostgreSQLConfig struct {
	ConnString string `yaml:"conn_string,omitempty"`
	MaxConns   int32  `yaml:"max_conns,omitempty"`
}

// SinkConfig tunes the send queue + consumer's batching behavior.
type SinkConfig struct {
	CoalesceWindow time.Duration `yaml:"coalesce_window,omitempty"`
}

// ScraperConfig configures the optional Prometheus-exposition-format
// poller, which is a producer external to the sink core (spec.md §6).
type ScraperConfig struct {
	Enabled          bool              `yaml:"enabled,omitempty"`
	EndpointURL      string            `yaml:"endpoint_url,omitempty"`
	Interval         time.Duration     `yaml:"interval,omitempty"`
	Timeout          time.Duration     `yaml:"timeout,omitempty"`
	TablePrefix      string            `yaml:"table_prefix,omitempty"`
	BonusDimensions  map[string]string `yaml:"bonus_dimensions,omitempty"`
}

type TracingConfig struct {
	Enabled        bool   `yaml:"enabled,omitempty"`
	OTLPEndpoint   string `yaml:"otlp_endpoint,omitempty"`
	ServiceName    string `yaml:"service_name,omitempty"`
	SamplerRatio   float64 `yaml:"sampler_ratio,omitempty"`
}

type MemoryLimitConfig struct {
	Enabled         bool          `yaml:"enabled,omitempty"`
	Ratio           float64       `yaml:"ratio,omitempty"`
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
}

var DefaultConfig = &Config{
	Server: ServerConfig{
		GRPCListenAddress:       ":4317",
		MetricsListenAddress:    ":9090",
		GRPCMaxRecvMsgSizeBytes: 10 * 1024 * 1024,
		GracefulShutdownTimeout: 30 * time.Second,
		DrainDelay:              2 * time.Second,
	},
	Database: DatabaseConfig{
		PostgreSQL: PostgreSQLConfig{
			MaxConns: 16,
		},
	},
	Sink: SinkConfig{
		CoalesceWindow: 5 * time.Second,
	},
	Scraper: ScraperConfig{
		Enabled:  false,
		Interval: 15 * time.Second,
		Timeout:  10 * time.Second,
	},
	MemoryLimit: MemoryLimitConfig{
		Enabled:         false,
		Ratio:           DefaultMemoryLimitRatio,
		RefreshInterval: time.Minute,
	},
}

// LoadConfig reads path as YAML and merges it onto DefaultConfig. main.go
// calls it after flag parsing, so values in the file override the flags.
func LoadConfig(path string) error {
	f, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(f, DefaultConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return nil
}

// GetSanitizedConfig returns a copy of c with secrets (the Postgres
// connection string) scrubbed, safe to log or expose over /config.
func (c *Config) GetSanitizedConfig() *Config {
	sanitized := *c
	sanitized.Database.PostgreSQL.ConnString = ""
	return &sanitized
}

// RegisterServerFlags exposes CLI overrides for the gRPC/metrics listeners.
func RegisterServerFlags(flagSet *flag.FlagSet) {
	flagSet.StringVar(&DefaultConfig.Server.GRPCListenAddress, "grpc-listen-address", DefaultConfig.Server.GRPCListenAddress, "Address the ingest gRPC server listens on")
	flagSet.StringVar(&DefaultConfig.Server.MetricsListenAddress, "metrics-listen-address", DefaultConfig.Server.MetricsListenAddress, "Address the Prometheus metrics/health HTTP server listens on")
	flagSet.DurationVar(&DefaultConfig.Server.GracefulShutdownTimeout, "graceful-shutdown-timeout", DefaultConfig.Server.GracefulShutdownTimeout, "Time to wait for in-flight RPCs to drain before forcing shutdown")
	flagSet.DurationVar(&DefaultConfig.Server.DrainDelay, "drain-delay", DefaultConfig.Server.DrainDelay, "Delay after marking health NOT_SERVING before beginning graceful shutdown")
}

// RegisterDatabaseFlags exposes CLI overrides for the Postgres connection.
func RegisterDatabaseFlags(flagSet *flag.FlagSet) {
	flagSet.StringVar(&DefaultConfig.Database.PostgreSQL.ConnString, "postgres-conn-string", DefaultConfig.Database.PostgreSQL.ConnString, "PostgreSQL connection string the sink writes to")
	flagSet.Func("postgres-max-conns", "Maximum PostgreSQL pool connections", func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid -postgres-max-conns %q: %w", v, err)
		}
		DefaultConfig.Database.PostgreSQL.MaxConns = int32(n)
		return nil
	})
}

// RegisterSinkFlags exposes CLI overrides for batching behavior.
func RegisterSinkFlags(flagSet *flag.FlagSet) {
	flagSet.DurationVar(&DefaultConfig.Sink.CoalesceWindow, "sink-coalesce-window", DefaultConfig.Sink.CoalesceWindow, "Time the consumer waits after its first drained batch before writing")
}

// RegisterScraperFlags exposes CLI overrides for the optional Prometheus
// exposition-format poller.
func RegisterScraperFlags(flagSet *flag.FlagSet) {
	flagSet.BoolVar(&DefaultConfig.Scraper.Enabled, "scraper-enabled", DefaultConfig.Scraper.Enabled, "Enable the Prometheus exposition-format scraper producer")
	flagSet.StringVar(&DefaultConfig.Scraper.EndpointURL, "scraper-endpoint-url", DefaultConfig.Scraper.EndpointURL, "URL of the Prometheus exposition-format endpoint to poll")
	flagSet.DurationVar(&DefaultConfig.Scraper.Interval, "scraper-interval", DefaultConfig.Scraper.Interval, "Interval between scrapes")
	flagSet.DurationVar(&DefaultConfig.Scraper.Timeout, "scraper-timeout", DefaultConfig.Scraper.Timeout, "Timeout for a single scrape")
	flagSet.StringVar(&DefaultConfig.Scraper.TablePrefix, "scraper-table-prefix", DefaultConfig.Scraper.TablePrefix, "Prefix applied to every metric name the scraper enqueues")
}

// RegisterMemoryLimitFlags exposes CLI overrides for automatic GOMEMLIMIT management.
func RegisterMemoryLimitFlags(flagSet *flag.FlagSet) {
	flagSet.BoolVar(&DefaultConfig.MemoryLimit.Enabled, "memory-limit-enabled", DefaultConfig.MemoryLimit.Enabled, "Enable automatic GOMEMLIMIT management via automemlimit")
	flagSet.Float64Var(&DefaultConfig.MemoryLimit.Ratio, "memory-limit-ratio", DefaultConfig.MemoryLimit.Ratio, "Ratio (0 < ratio <= 1) of detected memory limit used for GOMEMLIMIT")
	flagSet.DurationVar(&DefaultConfig.MemoryLimit.RefreshInterval, "memory-limit-refresh-interval", DefaultConfig.MemoryLimit.RefreshInterval, "Interval for refreshing the computed memory limit (0 disables refresh)")
}

// RegisterTracingFlags exposes CLI overrides for OTLP trace export.
func RegisterTracingFlags(flagSet *flag.FlagSet) {
	flagSet.BoolVar(&DefaultConfig.Tracing.Enabled, "tracing-enabled", DefaultConfig.Tracing.Enabled, "Enable OTLP trace export")
	flagSet.StringVar(&DefaultConfig.Tracing.OTLPEndpoint, "tracing-otlp-endpoint", DefaultConfig.Tracing.OTLPEndpoint, "OTLP/gRPC trace collector endpoint")
	flagSet.StringVar(&DefaultConfig.Tracing.ServiceName, "tracing-service-name", DefaultConfig.Tracing.ServiceName, "Service name reported on exported spans")
}
