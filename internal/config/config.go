// Package config handles YAML configuration loading with environment variable
// expansion and OFFLINE_* overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/Sternrassler/offline-cache-gateway/pkg/cache"
	"github.com/Sternrassler/offline-cache-gateway/pkg/gateway"
	"github.com/Sternrassler/offline-cache-gateway/pkg/logging"
	"github.com/caarlos0/env/v11"
	"go.yaml.in/yaml/v3"
)

// EnvPrefix prefixes every environment override, e.g. OFFLINE_REDIS_ADDR.
const EnvPrefix = "OFFLINE_"

// Config is the top-level proxy configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"   envPrefix:"SERVER_"`
	Upstream UpstreamConfig `yaml:"upstream" envPrefix:"UPSTREAM_"`
	Redis    RedisConfig    `yaml:"redis"    envPrefix:"REDIS_"`
	Gateway  GatewayConfig  `yaml:"gateway"  envPrefix:"GATEWAY_"`
	Buckets  BucketsConfig  `yaml:"buckets"  envPrefix:"BUCKETS_"`
	Log      LogConfig      `yaml:"log"      envPrefix:"LOG_"`
	Precache PrecacheConfig `yaml:"precache" envPrefix:"PRECACHE_"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// UpstreamConfig describes the origin every proxied request is sent to.
type UpstreamConfig struct {
	URL              string        `yaml:"url"               env:"URL"`
	UserAgent        string        `yaml:"user_agent"        env:"USER_AGENT"`
	Timeout          time.Duration `yaml:"timeout"           env:"TIMEOUT"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"    env:"MAX_BODY_BYTES"`
	DNSRefresh       time.Duration `yaml:"dns_refresh"       env:"DNS_REFRESH"`       // 0 disables DNS caching
	OfflineThreshold int           `yaml:"offline_threshold" env:"OFFLINE_THRESHOLD"` // consecutive failures before offline
}

// RedisConfig selects the Redis backend. An empty Addr keeps buckets and the
// retry queue in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"     env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db"       env:"DB"`
}

// GatewayConfig holds the caching policy settings.
type GatewayConfig struct {
	APIPrefix     string        `yaml:"api_prefix"     env:"API_PREFIX"`
	Retention     time.Duration `yaml:"retention"      env:"RETENTION"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// BucketsConfig holds the eviction policy of every bucket.
type BucketsConfig struct {
	Images   BucketEntry `yaml:"images"   envPrefix:"IMAGES_"`
	API      BucketEntry `yaml:"api"      envPrefix:"API_"`
	Precache BucketEntry `yaml:"precache" envPrefix:"PRECACHE_"`
}

// BucketEntry is the eviction policy of one bucket.
type BucketEntry struct {
	MaxEntries int           `yaml:"max_entries" env:"MAX_ENTRIES"` // memory backend only
	MaxAge     time.Duration `yaml:"max_age"     env:"MAX_AGE"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LEVEL"`
	Pretty bool   `yaml:"pretty" env:"PRETTY"`
}

// PrecacheConfig lists requests warmed on startup.
type PrecacheConfig struct {
	URLs        []string `yaml:"urls"        env:"URLS" envSeparator:","`
	Images      []string `yaml:"images"      env:"IMAGES" envSeparator:","`
	Concurrency int      `yaml:"concurrency" env:"CONCURRENCY"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Upstream: UpstreamConfig{
			UserAgent:        "offline-cache-gateway/1.0",
			Timeout:          30 * time.Second,
			MaxBodyBytes:     10 << 20,
			DNSRefresh:       5 * time.Minute,
			OfflineThreshold: 1,
		},
		Gateway: GatewayConfig{
			APIPrefix:     gateway.DefaultAPIPrefix,
			Retention:     gateway.DefaultRetention,
			SweepInterval: gateway.DefaultSweepInterval,
		},
		Buckets: BucketsConfig{
			Images:   BucketEntry{MaxEntries: 60, MaxAge: 30 * 24 * time.Hour},
			API:      BucketEntry{MaxEntries: 500},
			Precache: BucketEntry{MaxEntries: 200},
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		Precache: PrecacheConfig{
			Concurrency: 4,
		},
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads the YAML file at path over the defaults, applies OFFLINE_*
// environment overrides, then the overrides in order, and validates the
// result. An empty path skips the file.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Upstream.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream.url must be an absolute http(s) URL (got %q)", c.Upstream.URL)
	}
	if c.Upstream.UserAgent == "" {
		return fmt.Errorf("upstream.user_agent is required")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be > 0")
	}
	if c.Upstream.MaxBodyBytes <= 0 {
		return fmt.Errorf("upstream.max_body_bytes must be > 0")
	}
	if c.Upstream.DNSRefresh < 0 {
		return fmt.Errorf("upstream.dns_refresh must be >= 0")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !strings.HasPrefix(c.Gateway.APIPrefix, "/") {
		return fmt.Errorf("gateway.api_prefix must start with / (got %q)", c.Gateway.APIPrefix)
	}
	if c.Gateway.Retention <= 0 {
		return fmt.Errorf("gateway.retention must be > 0")
	}
	if c.Gateway.SweepInterval <= 0 {
		return fmt.Errorf("gateway.sweep_interval must be > 0")
	}
	for _, b := range c.BucketConfigs() {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("buckets: %w", err)
		}
	}
	if !logging.ValidLevel(logging.LogLevel(c.Log.Level)) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.Precache.Concurrency < 0 {
		return fmt.Errorf("precache.concurrency must be >= 0")
	}
	return nil
}

// BucketConfigs returns the store configuration of every bucket.
func (c *Config) BucketConfigs() []cache.BucketConfig {
	return []cache.BucketConfig{
		{Name: gateway.DefaultImageBucket, MaxEntries: c.Buckets.Images.MaxEntries, MaxAge: c.Buckets.Images.MaxAge},
		{Name: gateway.DefaultAPIBucket, MaxEntries: c.Buckets.API.MaxEntries, MaxAge: c.Buckets.API.MaxAge},
		{Name: gateway.DefaultPrecacheBucket, MaxEntries: c.Buckets.Precache.MaxEntries, MaxAge: c.Buckets.Precache.MaxAge},
	}
}

// UseRedis reports whether buckets and the retry queue live in Redis.
func (c *Config) UseRedis() bool {
	return c.Redis.Addr != ""
}
