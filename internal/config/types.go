package config

import "time"

// FileName is the default config file in the working directory.
const FileName = ".frontdesk.yml"

// EnvPrefix prefixes environment overrides. Nested keys use a double
// underscore: FRONTDESK_SERVER__PORT sets server.port.
const EnvPrefix = "FRONTDESK_"

// Config is the top-level frontdesk configuration, corresponding to
// .frontdesk.yml.
type Config struct {
	DatabasePath         string        `yaml:"database_path" koanf:"database_path"`
	ProfileFile          string        `yaml:"profile_file" koanf:"profile_file"`
	TimeoutMinutes       int           `yaml:"timeout_minutes" koanf:"timeout_minutes"`
	SweepIntervalSeconds int           `yaml:"sweep_interval_seconds" koanf:"sweep_interval_seconds"`
	StoreTimeoutSeconds  int           `yaml:"store_timeout_seconds" koanf:"store_timeout_seconds"`
	CallTimeoutSeconds   int           `yaml:"call_timeout_seconds" koanf:"call_timeout_seconds"`
	RetentionDays        int           `yaml:"retention_days" koanf:"retention_days"`
	Matcher              MatcherConfig `yaml:"matcher" koanf:"matcher"`
	Server               ServerConfig  `yaml:"server" koanf:"server"`
	Notify               NotifyConfig  `yaml:"notify" koanf:"notify"`
	Log                  LogConfig     `yaml:"log" koanf:"log"`
}

// MatcherConfig holds knowledge matching thresholds.
type MatcherConfig struct {
	OverlapThreshold float64 `yaml:"overlap_threshold" koanf:"overlap_threshold"`
	FuzzyThreshold   float64 `yaml:"fuzzy_threshold" koanf:"fuzzy_threshold"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int     `yaml:"port" koanf:"port"`
	AllowAllOrigins bool    `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps" koanf:"rate_limit_rps"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" koanf:"rate_limit_burst"`
}

// NotifyConfig holds supervisor alert and answer delivery settings.
type NotifyConfig struct {
	SupervisorWebhook  string `yaml:"supervisor_webhook" koanf:"supervisor_webhook"`
	RedisAddr          string `yaml:"redis_addr" koanf:"redis_addr"`
	RedisPassword      string `yaml:"redis_password" koanf:"redis_password"`
	RedisDB            int    `yaml:"redis_db" koanf:"redis_db"`
	RedisChannelPrefix string `yaml:"redis_channel_prefix" koanf:"redis_channel_prefix"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`   // debug, info, warn, error
	Format string `yaml:"format" koanf:"format"` // console or json
}

// Timeout is how long a help request may stay pending.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// SweepInterval is how often the timeout sweeper runs.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// StoreTimeout bounds every database call.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSeconds) * time.Second
}

// CallTimeout bounds each notification and answer delivery.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// Retention is how long closed requests are kept before purge.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
