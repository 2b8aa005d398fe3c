package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrUnknownCacheBackend   = errors.New("unknown persistent cache backend")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// CurrentVersion is the current version of the config file.
const CurrentVersion = 1

// Persistent cache backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version        int            `koanf:"version"`
	Debug          Debug          `koanf:"debug"`
	API            API            `koanf:"api"`
	CircuitBreaker CircuitBreaker `koanf:"circuit_breaker"`
	Cache          Cache          `koanf:"cache"`
	Redis          Redis          `koanf:"redis"`
	Stats          Stats          `koanf:"stats"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// API contains remote API configuration.
type API struct {
	// Base URL of the Codeforces API.
	BaseURL string `koanf:"base_url"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Number of most recent submissions to fetch per user.
	SubmissionCount int `koanf:"submission_count"`
}

// CircuitBreaker contains circuit breaker configuration.
type CircuitBreaker struct {
	// Maximum number of requests allowed to pass through when the circuit is half-open.
	MaxRequests uint32 `koanf:"max_requests"`
	// The cyclic period of the closed state for the circuit breaker to clear the internal counts.
	Interval int `koanf:"interval"`
	// The period of the open state after which the state of the circuit breaker becomes half-open.
	Timeout int `koanf:"timeout"`
}

// Cache contains cache store configuration.
type Cache struct {
	// Backend for the persistent store (sqlite, redis, memory).
	PersistentBackend string `koanf:"persistent_backend"`
	// Path of the sqlite cache file.
	SQLitePath string `koanf:"sqlite_path"`
	// Persistent store TTL in minutes.
	PersistentTTL int `koanf:"persistent_ttl"`
	// Session store TTL in minutes.
	SessionTTL int `koanf:"session_ttl"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Stats contains aggregation configuration.
type Stats struct {
	// Offset from UTC in minutes used for calendar days.
	TimezoneOffset int `koanf:"timezone_offset"`
	// Number of named buckets in language charts.
	TopLanguages int `koanf:"top_languages"`
	// Number of named buckets in tag charts.
	TopTags int `koanf:"top_tags"`
}

// Default returns the configuration used when no config file is found.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Debug: Debug{
			LogLevel:      "info",
			MaxLogsToKeep: 10,
			MaxLogLines:   10000,
		},
		API: API{
			BaseURL:         "https://codeforces.com/api",
			RequestTimeout:  15000,
			SubmissionCount: 2000,
		},
		CircuitBreaker: CircuitBreaker{
			MaxRequests: 1,
			Interval:    60000,
			Timeout:     30000,
		},
		Cache: Cache{
			PersistentBackend: BackendSQLite,
			SQLitePath:        "cache.db",
			PersistentTTL:     30,
			SessionTTL:        10,
		},
		Redis: Redis{
			Host: "localhost",
			Port: 6379,
		},
		Stats: Stats{
			TimezoneOffset: 330,
			TopLanguages:   6,
			TopTags:        8,
		},
	}
}

// LoadConfig loads the configuration from the first config.toml found in the search paths.
// Returns the config along with the used config directory, which is empty when defaults are used.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".cfvisualizer",
		homeDir + "/.cfvisualizer/config",
		"/etc/cfvisualizer/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := path + "/config.toml"
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	cfg, err := unmarshal(k)
	if err != nil {
		return nil, "", err
	}

	return cfg, usedConfigPath, nil
}

// LoadFile loads the configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	return unmarshal(k)
}

// unmarshal decodes loaded values over the defaults and validates the result.
func unmarshal(k *koanf.Koanf) (*Config, error) {
	config := Default()
	if err := k.Unmarshal("", config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentVersion); err != nil {
		return nil, err
	}

	switch config.Cache.PersistentBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCacheBackend, config.Cache.PersistentBackend)
	}

	return config, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current, expected int) error {
	if current != expected {
		return fmt.Errorf(
			"%w: config.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/shashank2401/cf-visualizer/tree/%s/config/config.toml",
			ErrConfigVersionMismatch,
			current,
			expected,
			RepositoryVersion,
		)
	}

	return nil
}
