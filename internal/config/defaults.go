package config

import "github.com/ziadkadry99/frontdesk/internal/notifications"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:         ".frontdesk/frontdesk.db",
		ProfileFile:          "profile.yml",
		TimeoutMinutes:       30,
		SweepIntervalSeconds: 60,
		StoreTimeoutSeconds:  5,
		CallTimeoutSeconds:   10,
		RetentionDays:        90,
		Matcher: MatcherConfig{
			OverlapThreshold: 0.6,
			FuzzyThreshold:   0.8,
		},
		Server: ServerConfig{
			Port:           8080,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Notify: NotifyConfig{
			RedisChannelPrefix: notifications.DefaultRedisPrefix,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
