package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string          `yaml:"discord_token"`
	DatabasePath  string          `yaml:"database_path"`
	LogLevel      string          `yaml:"log_level"`
	Health        HealthConfig    `yaml:"health"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
	Automod       AutomodConfig   `yaml:"automod"`
	Notifications NotifyConfig    `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type SchedulerConfig struct {
	PollSeconds int `yaml:"poll_seconds"`
}

func (c SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

type AutomodConfig struct {
	DuplicateWindowSeconds int `yaml:"duplicate_window_seconds"`
	FingerprintCacheSize   int `yaml:"fingerprint_cache_size"`
}

type NotifyConfig struct {
	ModLogToChannel bool        `yaml:"modlog_to_channel"`
	EmbedColors     EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/botdata.db",
		LogLevel:     "info",
		Health:       HealthConfig{Enabled: false, Addr: ":8080"},
		Scheduler:    SchedulerConfig{PollSeconds: 30},
		Automod: AutomodConfig{
			DuplicateWindowSeconds: 4,
			FingerprintCacheSize:   4096,
		},
		Notifications: NotifyConfig{
			ModLogToChannel: true,
			EmbedColors: EmbedColors{
				Action:  0x5865F2,
				Warning: 0xF59E0B,
				Error:   0xEF4444,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.Scheduler.PollSeconds <= 0 {
		cfg.Scheduler.PollSeconds = 30
	}
	if cfg.Automod.DuplicateWindowSeconds <= 0 {
		cfg.Automod.DuplicateWindowSeconds = 4
	}
	if cfg.Automod.FingerprintCacheSize <= 0 {
		cfg.Automod.FingerprintCacheSize = 4096
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Scheduler.PollSeconds = envInt("SCHEDULER_POLL_SECONDS", cfg.Scheduler.PollSeconds)
	cfg.Automod.DuplicateWindowSeconds = envInt("DUPLICATE_WINDOW_SECONDS", cfg.Automod.DuplicateWindowSeconds)
	cfg.Automod.FingerprintCacheSize = envInt("FINGERPRINT_CACHE_SIZE", cfg.Automod.FingerprintCacheSize)
	cfg.Notifications.ModLogToChannel = envBool("MODLOG_TO_CHANNEL", cfg.Notifications.ModLogToChannel)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
