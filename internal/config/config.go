// Package config loads datajoin-ctl settings from the environment,
// optionally overlaid by a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/withObsrvr/obsrvr-datajoin/internal/kvstore"
	"github.com/withObsrvr/obsrvr-datajoin/internal/logging"
	"github.com/withObsrvr/obsrvr-datajoin/internal/metrics"
	"github.com/withObsrvr/obsrvr-datajoin/internal/watchdog"
)

// FileEnv names the YAML overlay file.
const FileEnv = "DATAJOIN_CONFIG"

type Config struct {
	DataSource string          `yaml:"data_source"`
	Store      kvstore.Config  `yaml:"store"`
	Watchdog   WatchdogConfig  `yaml:"watchdog"`
	Log        logging.Config  `yaml:"log"`
	Metrics    metrics.Config  `yaml:"metrics"`
	Publisher  PublisherConfig `yaml:"publisher"`
	Anchor     AnchorConfig    `yaml:"anchor"`
}

type WatchdogConfig struct {
	// MemLimit is a byte count, "auto", or empty for the default ceiling.
	MemLimit   string  `yaml:"mem_limit"`
	WaterLevel float64 `yaml:"water_level"`
}

type PublisherConfig struct {
	PubDir string `yaml:"pub_dir"`
}

type AnchorConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads the environment, then applies the file named by
// DATAJOIN_CONFIG if set. Values in the file win.
func Load() (Config, error) {
	cfg, err := fromEnv()
	if err != nil {
		return Config{}, err
	}

	if path := os.Getenv(FileEnv); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is Load for main packages. It exits on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(2)
	}
	return cfg
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if _, err := watchdog.ParseLimit(c.Watchdog.MemLimit); err != nil {
		return fmt.Errorf("watchdog.mem_limit: %w", err)
	}
	if c.Watchdog.WaterLevel <= 0 || c.Watchdog.WaterLevel > 1 {
		return fmt.Errorf("watchdog.water_level must be in (0, 1], got %v", c.Watchdog.WaterLevel)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address required when metrics are enabled")
	}
	return nil
}

// MemLimit resolves the configured ceiling in bytes.
func (c Config) MemLimit() (int64, error) {
	return watchdog.ParseLimit(c.Watchdog.MemLimit)
}

func fromEnv() (Config, error) {
	waterLevel := watchdog.DefaultWaterLevel
	if v := os.Getenv("MEM_WATER_LEVEL"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("MEM_WATER_LEVEL: %w", err)
		}
		waterLevel = parsed
	}

	var dialTimeout time.Duration
	if v := os.Getenv("ETCD_DIAL_TIMEOUT"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("ETCD_DIAL_TIMEOUT: %w", err)
		}
		dialTimeout = parsed
	}

	return Config{
		DataSource: os.Getenv("DATA_SOURCE"),
		Store: kvstore.Config{
			Backend:         getenvDefault("STORE_BACKEND", "memory"),
			Prefix:          os.Getenv("STORE_PREFIX"),
			BlobURL:         os.Getenv("STORE_BLOB_URL"),
			Compress:        os.Getenv("STORE_COMPRESS") == "true",
			EtcdEndpoints:   splitList(os.Getenv("ETCD_ENDPOINTS")),
			EtcdDialTimeout: dialTimeout,
			PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		},
		Watchdog: WatchdogConfig{
			MemLimit:   os.Getenv(watchdog.LimitEnv),
			WaterLevel: waterLevel,
		},
		Log: logging.Config{
			Format: getenvDefault("LOG_FORMAT", "text"),
			Level:  getenvDefault("LOG_LEVEL", "info"),
		},
		Metrics: metrics.Config{
			Enabled: os.Getenv("METRICS_ENABLED") == "true",
			Address: getenvDefault("METRICS_ADDR", ":9090"),
		},
		Publisher: PublisherConfig{
			PubDir: os.Getenv("RAW_DATA_PUB_DIR"),
		},
		Anchor: AnchorConfig{
			Enabled: getenvDefault("ANCHOR_ENABLED", "true") == "true",
		},
	}, nil
}

func overlayFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
