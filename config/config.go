package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Extraction ExtractionConfig
	Retailer   RetailerConfig
	Matching   MatchingConfig
	Cache      CacheConfig
	Workflow   WorkflowConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"` // 0 disables
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
}

// ExtractionConfig holds recipe extraction service configuration
type ExtractionConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RetailerConfig holds retailer browser automation configuration
type RetailerConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Headless          bool          `mapstructure:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	MaxResults        int           `mapstructure:"max_results"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// MatchingConfig holds candidate matching configuration
type MatchingConfig struct {
	MinConfidence       float64 `mapstructure:"min_confidence"` // 0..1
	EnableFuzzyMatching bool    `mapstructure:"enable_fuzzy_matching"`
	FuzzyEditDistance   int     `mapstructure:"fuzzy_edit_distance"`
	EnableDebugLogging  bool    `mapstructure:"enable_debug_logging"`
}

// CacheConfig holds search cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// WorkflowConfig holds cart workflow configuration
type WorkflowConfig struct {
	LoginTimeout      time.Duration `mapstructure:"login_timeout"` // 0 waits forever
	SearchConcurrency int           `mapstructure:"search_concurrency"`
	AddConcurrency    int           `mapstructure:"add_concurrency"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/thoughttotable/")

	// Environment variable settings: T2T_SERVER_PORT overrides server.port
	v.SetEnvPrefix("T2T")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.rate_limit_rps", 0)
	v.SetDefault("server.rate_limit_burst", 20)

	// Extraction defaults
	v.SetDefault("extraction.base_url", "http://localhost:9090")
	v.SetDefault("extraction.timeout", "30s")

	// Retailer defaults
	v.SetDefault("retailer.base_url", "https://www.walmart.com")
	v.SetDefault("retailer.headless", false)
	v.SetDefault("retailer.navigation_timeout", "30s")
	v.SetDefault("retailer.max_results", 8)
	v.SetDefault("retailer.requests_per_minute", 12)

	// Matching defaults
	v.SetDefault("matching.min_confidence", 0.4)
	v.SetDefault("matching.enable_fuzzy_matching", true)
	v.SetDefault("matching.fuzzy_edit_distance", 1)
	v.SetDefault("matching.enable_debug_logging", false)

	// Cache defaults
	v.SetDefault("cache.ttl", "15m")

	// Workflow defaults
	v.SetDefault("workflow.login_timeout", "0")
	v.SetDefault("workflow.search_concurrency", 3)
	v.SetDefault("workflow.add_concurrency", 1)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Extraction.BaseURL == "" {
		return fmt.Errorf("extraction service URL is required (set T2T_EXTRACTION_BASE_URL)")
	}

	if config.Matching.MinConfidence < 0 || config.Matching.MinConfidence > 1 {
		return fmt.Errorf("matching confidence must be in [0,1], got: %v", config.Matching.MinConfidence)
	}

	if config.Workflow.SearchConcurrency < 1 {
		return fmt.Errorf("workflow search concurrency must be at least 1, got: %d", config.Workflow.SearchConcurrency)
	}

	if config.Workflow.AddConcurrency < 1 {
		return fmt.Errorf("workflow add concurrency must be at least 1, got: %d", config.Workflow.AddConcurrency)
	}

	if config.Retailer.MaxResults < 1 {
		return fmt.Errorf("retailer max results must be at least 1, got: %d", config.Retailer.MaxResults)
	}

	return nil
}
