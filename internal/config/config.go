// Package config defines all configuration for the order-book engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// overrides via OBD_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	NumOutputLevels int           `mapstructure:"num_output_levels"`
	ErrorThreshold  int           `mapstructure:"error_threshold"`
	HTTP            HTTPConfig    `mapstructure:"http"`
	WS              WSConfig      `mapstructure:"ws"`
	Products        ProductConfig `mapstructure:"products"`
	Logging         LoggingConfig `mapstructure:"logging"`
	Metrics         MetricsConfig `mapstructure:"metrics"`
	Writer          WriterConfig  `mapstructure:"writer"`
}

// HTTPConfig tunes the Snapshot Loader's REST client.
type HTTPConfig struct {
	Attempts        int           `mapstructure:"attempts"`
	Timeout         time.Duration `mapstructure:"timeout"`
	SnapshotBaseURL string        `mapstructure:"snapshot_base_url"`
}

// WSConfig points the feed subscription at the exchange's full channel.
type WSConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// ProductConfig controls which products this instance maintains books for.
// SubscribedProductIDs must be a subset of AllowedProductIDs or startup fails.
type ProductConfig struct {
	AllowedProductIDs     []string `mapstructure:"allowed_product_ids"`
	SubscribedProductIDs  []string `mapstructure:"subscribed_product_ids"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the prometheus/health HTTP surface.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// WriterConfig selects the L2 outbox sink.
type WriterConfig struct {
	Kind       string `mapstructure:"kind"` // "stdout" or "nats"
	NATSURL    string `mapstructure:"nats_url"`
	NATSPrefix string `mapstructure:"nats_subject_prefix"`
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("OBD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("num_output_levels", 25)
	v.SetDefault("error_threshold", 10)
	v.SetDefault("http.attempts", 5)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("writer.kind", "stdout")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if url := os.Getenv("OBD_WS_ENDPOINT"); url != "" {
		cfg.WS.Endpoint = url
	}
	if url := os.Getenv("OBD_NATS_URL"); url != "" {
		cfg.Writer.NATSURL = url
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges, and enforces
// that every subscribed product is in the allowed product list before
// any task starts.
func (c *Config) Validate() error {
	if c.WS.Endpoint == "" {
		return fmt.Errorf("ws.endpoint is required")
	}
	if c.HTTP.SnapshotBaseURL == "" {
		return fmt.Errorf("http.snapshot_base_url is required")
	}
	if c.NumOutputLevels <= 0 {
		return fmt.Errorf("num_output_levels must be > 0")
	}
	if c.ErrorThreshold <= 0 {
		return fmt.Errorf("error_threshold must be > 0")
	}
	if c.HTTP.Attempts <= 0 {
		return fmt.Errorf("http.attempts must be > 0")
	}
	if len(c.Products.SubscribedProductIDs) == 0 {
		return fmt.Errorf("products.subscribed_product_ids must not be empty")
	}

	allowed := make(map[string]bool, len(c.Products.AllowedProductIDs))
	for _, p := range c.Products.AllowedProductIDs {
		allowed[p] = true
	}
	for _, p := range c.Products.SubscribedProductIDs {
		if !allowed[p] {
			return fmt.Errorf("subscribed product %q is not in allowed_product_ids", p)
		}
	}

	switch c.Writer.Kind {
	case "stdout", "nats", "":
	default:
		return fmt.Errorf("writer.kind must be one of: stdout, nats")
	}
	if c.Writer.Kind == "nats" && c.Writer.NATSURL == "" {
		return fmt.Errorf("writer.nats_url is required when writer.kind is nats")
	}

	return nil
}
