package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Download  DownloadConfig  `mapstructure:"download"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Network   NetworkConfig   `mapstructure:"network"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DataDir  string `mapstructure:"data_dir"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or text
	Output     string `mapstructure:"output"` // stdout or file
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	ExpireTime int    `mapstructure:"expire_time"` // hours
	Issuer     string `mapstructure:"issuer"`
}

type DownloadConfig struct {
	// MaxConcurrent caps how many queue items run at once; 0 means
	// unbounded (the executor imposes its own limits)
	MaxConcurrent int `mapstructure:"max_concurrent"`
	MaxRetries    int `mapstructure:"max_retries"`
	// RetryBaseDelayMs is the first retry delay; each attempt doubles it
	RetryBaseDelayMs int64 `mapstructure:"retry_base_delay_ms"`
	RetryMaxDelayMs  int64 `mapstructure:"retry_max_delay_ms"`
	// CancelAckTimeoutMs bounds how long a cancel waits for the executor
	CancelAckTimeoutMs int64 `mapstructure:"cancel_ack_timeout_ms"`
}

type CacheConfig struct {
	// MediaInfoCapacity is the LRU size of the media info cache
	MediaInfoCapacity int `mapstructure:"media_info_capacity"`
	// MediaInfoTTLMinutes is how long a cached media info entry stays fresh
	MediaInfoTTLMinutes int `mapstructure:"media_info_ttl_minutes"`
	// PlaylistTTLMinutes is the TTL of cached playlist expansions
	PlaylistTTLMinutes int `mapstructure:"playlist_ttl_minutes"`
}

type NetworkConfig struct {
	// ProbeEndpoints are tried in order until one answers
	ProbeEndpoints []string `mapstructure:"probe_endpoints"`
	// ProbeTimeoutSeconds bounds each individual probe
	ProbeTimeoutSeconds int `mapstructure:"probe_timeout_seconds"`
	// CheckIntervalSeconds is the background verification interval
	CheckIntervalSeconds int `mapstructure:"check_interval_seconds"`
}

type SchedulerConfig struct {
	// ScanIntervalSeconds is how often due scheduled downloads are promoted
	ScanIntervalSeconds int `mapstructure:"scan_interval_seconds"`
}

func Load() *Config {
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("no config file found, using defaults")
		} else {
			log.Fatalf("failed to read config file: %v", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	if err := validateConfig(&config); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	return &config
}

// setDefaults registers the default configuration
func setDefaults() {
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.data_dir", "data")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24)
	viper.SetDefault("jwt.issuer", "downpour")

	viper.SetDefault("download.max_concurrent", 0)
	viper.SetDefault("download.max_retries", 3)
	viper.SetDefault("download.retry_base_delay_ms", 1000)
	viper.SetDefault("download.retry_max_delay_ms", 30000)
	viper.SetDefault("download.cancel_ack_timeout_ms", 3000)

	viper.SetDefault("cache.media_info_capacity", 50)
	viper.SetDefault("cache.media_info_ttl_minutes", 30)
	viper.SetDefault("cache.playlist_ttl_minutes", 30)

	viper.SetDefault("network.probe_endpoints", []string{
		"https://www.gstatic.com/generate_204",
		"https://cloudflare.com/cdn-cgi/trace",
		"https://www.apple.com/library/test/success.html",
	})
	viper.SetDefault("network.probe_timeout_seconds", 5)
	viper.SetDefault("network.check_interval_seconds", 60)

	viper.SetDefault("scheduler.scan_interval_seconds", 60)
}

// validateConfig rejects configurations the services cannot run with
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is not set")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is not set")
	}
	if config.Download.MaxRetries < 0 {
		return fmt.Errorf("download.max_retries must not be negative")
	}
	if config.Cache.MediaInfoCapacity <= 0 {
		return fmt.Errorf("cache.media_info_capacity must be positive")
	}
	if len(config.Network.ProbeEndpoints) == 0 {
		return fmt.Errorf("network.probe_endpoints must not be empty")
	}
	return nil
}

// MediaInfoTTL returns the cache TTL as a duration.
func (c *CacheConfig) MediaInfoTTL() time.Duration {
	return time.Duration(c.MediaInfoTTLMinutes) * time.Minute
}

// ProbeTimeout returns the per-endpoint probe timeout as a duration.
func (c *NetworkConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}
