package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Fleet       FleetConfig     `toml:"fleet"`
	Extractor   ExtractorConfig `toml:"extractor"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// CrawlerConfig contains HTTP fetching configuration shared by all scrapers
type CrawlerConfig struct {
	UserAgent         string        `toml:"user_agent"`          // User agent sent with every request
	RequestTimeout    time.Duration `toml:"request_timeout"`     // Full page request timeout
	HeadTimeout       time.Duration `toml:"head_timeout"`        // Timeout for content-type probe requests
	RequestRetries    int           `toml:"request_retries"`     // Attempts per URL before giving up
	RequestsPerSecond float64       `toml:"requests_per_second"` // Fleet-wide outbound rate limit
}

// FleetConfig controls the crawler fleet scheduler
type FleetConfig struct {
	WaitFor                 time.Duration `toml:"wait_for"`                  // Pause between scheduler passes
	RingPopTimeout          time.Duration `toml:"ring_pop_timeout"`          // How long a pop blocks on an empty ring
	TransactionsLimit       int           `toml:"transactions_limit"`        // Daily page-fetch budget across the fleet
	ConcurrentRequestsLimit int           `toml:"concurrent_requests_limit"` // In-flight crawl ceiling
	PulseSchedule           string        `toml:"pulse_schedule"`            // Cron spec for the reconcile pulse
}

// ExtractorConfig controls entity extraction behavior
type ExtractorConfig struct {
	CacheSize      int  `toml:"cache_size"`      // Per-cache entry cap for the catalog lookup caches
	TitleWeight    int  `toml:"title_weight"`    // Multiplier for title chunks when ranking suggestions
	EntityWeight   int  `toml:"entity_weight"`   // Multiplier for known entities over candidates
	KeepCandidates bool `toml:"keep_candidates"` // Persist unmatched chunks as candidates
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Crawler: CrawlerConfig{
			UserAgent:         "TrendIn",
			RequestTimeout:    180 * time.Second,
			HeadTimeout:       30 * time.Second,
			RequestRetries:    2,
			RequestsPerSecond: 4,
		},
		Fleet: FleetConfig{
			WaitFor:                 1 * time.Second,
			RingPopTimeout:          3 * time.Second,
			TransactionsLimit:       950,
			ConcurrentRequestsLimit: 2,
			PulseSchedule:           "* * * * *",
		},
		Extractor: ExtractorConfig{
			CacheSize:      120,
			TitleWeight:    2,
			EntityWeight:   2,
			KeepCandidates: true,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files override
// earlier files; environment variables override everything.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TRENDIN_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Storage configuration
	if badgerPath := os.Getenv("TRENDIN_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("TRENDIN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("TRENDIN_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("TRENDIN_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Crawler configuration
	if userAgent := os.Getenv("TRENDIN_CRAWLER_USER_AGENT"); userAgent != "" {
		config.Crawler.UserAgent = userAgent
	}
	if requestTimeout := os.Getenv("TRENDIN_CRAWLER_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.Crawler.RequestTimeout = rt
		}
	}
	if headTimeout := os.Getenv("TRENDIN_CRAWLER_HEAD_TIMEOUT"); headTimeout != "" {
		if ht, err := time.ParseDuration(headTimeout); err == nil {
			config.Crawler.HeadTimeout = ht
		}
	}
	if retries := os.Getenv("TRENDIN_CRAWLER_REQUEST_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil {
			config.Crawler.RequestRetries = r
		}
	}
	if rps := os.Getenv("TRENDIN_CRAWLER_REQUESTS_PER_SECOND"); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil {
			config.Crawler.RequestsPerSecond = r
		}
	}

	// Fleet configuration
	if waitFor := os.Getenv("TRENDIN_FLEET_WAIT_FOR"); waitFor != "" {
		if w, err := time.ParseDuration(waitFor); err == nil {
			config.Fleet.WaitFor = w
		}
	}
	if popTimeout := os.Getenv("TRENDIN_FLEET_RING_POP_TIMEOUT"); popTimeout != "" {
		if p, err := time.ParseDuration(popTimeout); err == nil {
			config.Fleet.RingPopTimeout = p
		}
	}
	if txLimit := os.Getenv("TRENDIN_FLEET_TRANSACTIONS_LIMIT"); txLimit != "" {
		if t, err := strconv.Atoi(txLimit); err == nil {
			config.Fleet.TransactionsLimit = t
		}
	}
	if concurrent := os.Getenv("TRENDIN_FLEET_CONCURRENT_REQUESTS_LIMIT"); concurrent != "" {
		if c, err := strconv.Atoi(concurrent); err == nil {
			config.Fleet.ConcurrentRequestsLimit = c
		}
	}
	if pulse := os.Getenv("TRENDIN_FLEET_PULSE_SCHEDULE"); pulse != "" {
		config.Fleet.PulseSchedule = pulse
	}

	// Extractor configuration
	if cacheSize := os.Getenv("TRENDIN_EXTRACTOR_CACHE_SIZE"); cacheSize != "" {
		if c, err := strconv.Atoi(cacheSize); err == nil {
			config.Extractor.CacheSize = c
		}
	}
	if keep := os.Getenv("TRENDIN_EXTRACTOR_KEEP_CANDIDATES"); keep != "" {
		if k, err := strconv.ParseBool(keep); err == nil {
			config.Extractor.KeepCandidates = k
		}
	}
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
