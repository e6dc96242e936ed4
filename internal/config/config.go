package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the semsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeoutSec  int             `yaml:"read_timeout_sec"`
	WriteTimeoutSec int             `yaml:"write_timeout_sec"`
	ShutdownSec     int             `yaml:"shutdown_timeout_sec"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds the per-client-IP request limit. Requests = 0 disables it.
type RateLimitConfig struct {
	Requests  int `yaml:"requests"`
	WindowSec int `yaml:"window_sec"`
}

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// StoreConfig holds document store settings.
type StoreConfig struct {
	Driver           string `yaml:"driver"` // postgres, sqlite (default: sqlite)
	DSN              string `yaml:"dsn"`    // postgres connection string
	Path             string `yaml:"path"`   // sqlite database file
	Metric           string `yaml:"metric"` // cosine, inner_product (default: cosine)
	HNSWIndex        bool   `yaml:"hnsw_index"`
	MaxConns         int    `yaml:"max_conns"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// Cache drivers.
const (
	CacheRedis = "redis"
	CacheBolt  = "bolt"
	CacheNone  = "none"
)

// CacheConfig holds search and embedding cache settings.
type CacheConfig struct {
	Driver            string   `yaml:"driver"` // redis, bolt, none (default: none)
	Addrs             []string `yaml:"addrs"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	DB                int      `yaml:"db"`
	Path              string   `yaml:"path"` // bolt database file
	KeyPrefix         string   `yaml:"key_prefix"`
	TTLSec            int      `yaml:"ttl_sec"`
	InvalidateOnWrite bool     `yaml:"invalidate_on_write"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // label for logs and metrics
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	RequestDimensions   bool   `yaml:"request_dimensions"`
	Normalize           *bool  `yaml:"normalize"` // default: true
	TimeoutSec          int    `yaml:"timeout_sec"`
	CacheTTLSec         int    `yaml:"cache_ttl_sec"` // 0 disables the embedding cache
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	HealthCheck         bool   `yaml:"health_check"`
}

// NormalizeEnabled reports whether vectors are scaled to unit length.
func (e EmbeddingConfig) NormalizeEnabled() bool {
	return e.Normalize == nil || *e.Normalize
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	MaxBatchSize     int `yaml:"max_batch_size"`
	Concurrency      int `yaml:"concurrency"`
	ItemTimeoutSec   int `yaml:"item_timeout_sec"`
	MinContentLength int `yaml:"min_content_length"`
	MaxContentLength int `yaml:"max_content_length"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	DefaultLimit    int `yaml:"default_limit"`
	MaxLimit        int `yaml:"max_limit"`
	MinQueryLength  int `yaml:"min_query_length"`
	MaxQueryLength  int `yaml:"max_query_length"`
	OverfetchFactor int `yaml:"overfetch_factor"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RateLimit.WindowSec <= 0 {
		c.HTTP.RateLimit.WindowSec = 600
	}

	if c.Store.Driver == "" {
		c.Store.Driver = StoreSQLite
	}
	if c.Store.Driver == StoreSQLite && c.Store.Path == "" {
		c.Store.Path = "semsearch.db"
	}
	if c.Store.Metric == "" {
		c.Store.Metric = "cosine"
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheNone
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "semsearch:"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}

	if c.Ingest.MaxBatchSize <= 0 {
		c.Ingest.MaxBatchSize = 100
	}
	if c.Ingest.Concurrency <= 0 {
		c.Ingest.Concurrency = 8
	}
	if c.Ingest.ItemTimeoutSec <= 0 {
		c.Ingest.ItemTimeoutSec = 30
	}
	if c.Ingest.MinContentLength <= 0 {
		c.Ingest.MinContentLength = 3
	}
	if c.Ingest.MaxContentLength <= 0 {
		c.Ingest.MaxContentLength = 10000
	}

	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 50
	}
	if c.Search.MinQueryLength <= 0 {
		c.Search.MinQueryLength = 2
	}
	if c.Search.MaxQueryLength <= 0 {
		c.Search.MaxQueryLength = 500
	}
	if c.Search.OverfetchFactor <= 0 {
		c.Search.OverfetchFactor = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.RateLimit.Requests < 0 {
		return fmt.Errorf("http.rate_limit.requests must not be negative, got %d", c.HTTP.RateLimit.Requests)
	}

	switch c.Store.Driver {
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", StorePostgres)
		}
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for driver %q", StoreSQLite)
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", StorePostgres, StoreSQLite, c.Store.Driver)
	}
	switch c.Store.Metric {
	case "cosine", "inner_product":
	default:
		return fmt.Errorf("store.metric must be \"cosine\" or \"inner_product\", got %q", c.Store.Metric)
	}

	switch c.Cache.Driver {
	case CacheRedis:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", CacheRedis)
		}
	case CacheBolt:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for driver %q", CacheBolt)
		}
	case CacheNone:
	default:
		return fmt.Errorf("cache.driver must be %q, %q or %q, got %q", CacheRedis, CacheBolt, CacheNone, c.Cache.Driver)
	}

	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}

	if c.Ingest.MinContentLength > c.Ingest.MaxContentLength {
		return fmt.Errorf("ingest.min_content_length (%d) exceeds max_content_length (%d)",
			c.Ingest.MinContentLength, c.Ingest.MaxContentLength)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.MinQueryLength > c.Search.MaxQueryLength {
		return fmt.Errorf("search.min_query_length (%d) exceeds max_query_length (%d)",
			c.Search.MinQueryLength, c.Search.MaxQueryLength)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
