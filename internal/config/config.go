package config

import (
	"time"

	"github.com/spf13/viper"
)

// Engine holds every knob the lifecycle engine recognizes. Zero values are
// replaced by defaults so a partial yaml section works.
type Engine struct {
	PriceCacheTTL     time.Duration `mapstructure:"price_cache_ttl"`
	IndicatorCacheTTL time.Duration `mapstructure:"indicator_cache_ttl"`
	OracleCacheTTL    time.Duration `mapstructure:"oracle_cache_ttl"`
	SentimentCacheTTL time.Duration `mapstructure:"sentiment_cache_ttl"`
	DedupWindow       time.Duration `mapstructure:"dedup_window"`

	ScanInterval      time.Duration `mapstructure:"scan_interval"`
	MonitorInterval   time.Duration `mapstructure:"monitor_interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	PostCooldown    time.Duration `mapstructure:"post_cooldown"`
	CloseCooldown   time.Duration `mapstructure:"close_cooldown"`
	ScanCooldownMin time.Duration `mapstructure:"scan_cooldown_min"`
	ScanCooldownMax time.Duration `mapstructure:"scan_cooldown_max"`

	MonitorConcurrency    int `mapstructure:"monitor_concurrency"`
	RequiredConfirmations int `mapstructure:"required_confirmations"`
	ScanSampleSize        int `mapstructure:"scan_sample_size"`

	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerOpenFor  time.Duration `mapstructure:"breaker_open_for"`
}

func Default() Engine {
	return Engine{
		PriceCacheTTL:         45 * time.Second,
		IndicatorCacheTTL:     2 * time.Minute,
		OracleCacheTTL:        10 * time.Minute,
		SentimentCacheTTL:     30 * time.Minute,
		DedupWindow:           10 * time.Minute,
		ScanInterval:          5 * time.Minute,
		MonitorInterval:       10 * time.Minute,
		HeartbeatInterval:     10 * time.Minute,
		PostCooldown:          10 * time.Minute,
		CloseCooldown:         10 * time.Minute,
		ScanCooldownMin:       40 * time.Minute,
		ScanCooldownMax:       60 * time.Minute,
		MonitorConcurrency:    4,
		RequiredConfirmations: 6,
		ScanSampleSize:        10,
		BreakerFailures:       3,
		BreakerOpenFor:        time.Minute,
	}
}

// FromViper reads the engine section, falling back to defaults for any
// unset key.
func FromViper() (Engine, error) {
	cfg := Engine{}
	if err := viper.UnmarshalKey("engine", &cfg); err != nil {
		return Engine{}, err
	}
	return cfg.withDefaults(), nil
}

func (c Engine) withDefaults() Engine {
	def := Default()
	if c.PriceCacheTTL <= 0 {
		c.PriceCacheTTL = def.PriceCacheTTL
	}
	if c.IndicatorCacheTTL <= 0 {
		c.IndicatorCacheTTL = def.IndicatorCacheTTL
	}
	if c.OracleCacheTTL <= 0 {
		c.OracleCacheTTL = def.OracleCacheTTL
	}
	if c.SentimentCacheTTL <= 0 {
		c.SentimentCacheTTL = def.SentimentCacheTTL
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = def.DedupWindow
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = def.ScanInterval
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = def.MonitorInterval
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.PostCooldown <= 0 {
		c.PostCooldown = def.PostCooldown
	}
	if c.CloseCooldown <= 0 {
		c.CloseCooldown = def.CloseCooldown
	}
	if c.ScanCooldownMin <= 0 {
		c.ScanCooldownMin = def.ScanCooldownMin
	}
	if c.ScanCooldownMax <= c.ScanCooldownMin {
		c.ScanCooldownMax = c.ScanCooldownMin + (def.ScanCooldownMax - def.ScanCooldownMin)
	}
	if c.MonitorConcurrency <= 0 {
		c.MonitorConcurrency = def.MonitorConcurrency
	}
	if c.RequiredConfirmations <= 0 {
		c.RequiredConfirmations = def.RequiredConfirmations
	}
	if c.ScanSampleSize <= 0 {
		c.ScanSampleSize = def.ScanSampleSize
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = def.BreakerFailures
	}
	if c.BreakerOpenFor <= 0 {
		c.BreakerOpenFor = def.BreakerOpenFor
	}
	return c
}
