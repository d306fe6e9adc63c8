// Package config loads CypherGraph's compiler-wide settings from
// environment variables, each one prefixed with CYPHERGRAPH_.
//
// Example:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every compiler setting loaded from the environment.
type Config struct {
	Planner  PlannerConfig
	Catalog  CatalogConfig
	Cache    CacheConfig
	Logging  LoggingConfig
}

// PlannerConfig bounds the logical planner and path-expansion stages
// (spec.md §4, §5 resource limits).
type PlannerConfig struct {
	// MaxCTEDepth caps how many chained CTEs a single render plan may emit
	// before the compiler rejects the query as too complex.
	MaxCTEDepth int
	// MaxInferredTypes caps how many candidate types the type-inference
	// pass will track for a single variable before giving up and requiring
	// an explicit label.
	MaxInferredTypes int
	// MaxHeterogeneousVLPLength caps the maximum hop count the
	// heterogeneous variable-length-path DFS enumerator will unroll.
	MaxHeterogeneousVLPLength int
}

// CatalogConfig controls catalog loading and background refresh.
type CatalogConfig struct {
	// Path to the catalog YAML document.
	Path string
	// RefreshInterval is how often the background Refresher polls for a
	// new catalog version.
	RefreshInterval time.Duration
	// NamingConvention is the default naming convention applied during
	// auto-discovery when a node/edge definition doesn't set its own.
	NamingConvention string
}

// CacheConfig controls the compiled-SQL cache.
type CacheConfig struct {
	Enabled bool
	Size    int
	TTL     time.Duration
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// LoadFromEnv reads configuration from the environment, applying the
// defaults from spec.md §4-5 where a variable is unset.
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Planner.MaxCTEDepth = getEnvInt("CYPHERGRAPH_MAX_CTE_DEPTH", 100)
	cfg.Planner.MaxInferredTypes = getEnvInt("CYPHERGRAPH_MAX_INFERRED_TYPES", 8)
	cfg.Planner.MaxHeterogeneousVLPLength = getEnvInt("CYPHERGRAPH_MAX_HETEROGENEOUS_VLP_LENGTH", 3)

	cfg.Catalog.Path = getEnv("CYPHERGRAPH_CATALOG_PATH", "./catalog.yaml")
	cfg.Catalog.RefreshInterval = getEnvDuration("CYPHERGRAPH_CATALOG_REFRESH_INTERVAL", 60*time.Second)
	cfg.Catalog.NamingConvention = getEnv("CYPHERGRAPH_CATALOG_NAMING_CONVENTION", "snake_case")

	cfg.Cache.Enabled = getEnvBool("CYPHERGRAPH_CACHE_ENABLED", true)
	cfg.Cache.Size = getEnvInt("CYPHERGRAPH_CACHE_SIZE", 1000)
	cfg.Cache.TTL = getEnvDuration("CYPHERGRAPH_CACHE_TTL", 5*time.Minute)

	cfg.Logging.Level = getEnv("CYPHERGRAPH_LOG_LEVEL", "INFO")
	cfg.Logging.Format = getEnv("CYPHERGRAPH_LOG_FORMAT", "json")
	cfg.Logging.Output = getEnv("CYPHERGRAPH_LOG_OUTPUT", "stdout")

	return cfg
}

// Validate checks the configuration for logically invalid values.
func (c *Config) Validate() error {
	if c.Planner.MaxCTEDepth <= 0 {
		return fmt.Errorf("config: max_cte_depth must be positive, got %d", c.Planner.MaxCTEDepth)
	}
	if c.Planner.MaxInferredTypes <= 0 {
		return fmt.Errorf("config: max_inferred_types must be positive, got %d", c.Planner.MaxInferredTypes)
	}
	if c.Planner.MaxHeterogeneousVLPLength <= 0 {
		return fmt.Errorf("config: max_heterogeneous_vlp_length must be positive, got %d", c.Planner.MaxHeterogeneousVLPLength)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("config: catalog path must not be empty")
	}
	if c.Catalog.RefreshInterval <= 0 {
		return fmt.Errorf("config: catalog refresh interval must be positive, got %s", c.Catalog.RefreshInterval)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("config: cache size must not be negative, got %d", c.Cache.Size)
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("config: unsupported log level %q", c.Logging.Level)
	}
	return nil
}

// String returns a representation safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Catalog: %s, MaxCTEDepth: %d, CacheSize: %d, LogLevel: %s}",
		c.Catalog.Path, c.Planner.MaxCTEDepth, c.Cache.Size, c.Logging.Level,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
