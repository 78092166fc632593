// Package config loads the coordination engine's typed configuration from
// the environment, failing fast with every validation gap aggregated into
// one error rather than stopping at the first missing variable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully resolved, validated process configuration.
type Config struct {
	DiscordToken          string
	DatabaseDSN           string
	LogLevel              string
	LogJSON               bool
	AdvisoryLockNamespace string
	MetricsAddr           string
	DebounceWindow        time.Duration
	DebounceCooldown      time.Duration
	ConnectRetries        int
	MaxOpenConns          int
	MaxIdleConns          int
	ConnMaxLifetime       time.Duration

	// PrivilegedUserID is read from PRIVILEGED_USER_ID (0 when unset). No
	// code in this module reads it: ResolveRemoteTarget and the other
	// handlers do not check the caller against it.
	PrivilegedUserID uint64

	// DBEcho enables SQL statement logging at debug level.
	DBEcho bool

	// EnableMessageContentIntent is read from ENABLE_MESSAGE_CONTENT_INTENT.
	// No code in this module reads it; Orchestrator.AwardXP awards XP
	// whatever its value.
	EnableMessageContentIntent bool

	LevelPersistInterval        time.Duration
	MessageXPInterval           time.Duration
	LevelupMessageCooldown      time.Duration
	LogGuildID                  uint64
	LogChannelID                uint64
	SelfTestInterval            time.Duration
	BackupInterval              time.Duration
	RaidlistDebugChannelID      uint64
	MemberlistDebugChannelID    uint64
	DiscordLogLevel             string
	BackupDir                   string

	// StaleRaidMaxAge and StaleRaidCheckInterval drive the stale-raid worker:
	// every StaleRaidCheckInterval it cancels raids older than StaleRaidMaxAge.
	StaleRaidMaxAge       time.Duration
	StaleRaidCheckInterval time.Duration

	// ReminderWorkerInterval is shared by the reminder and auto-reminder
	// loops, which run as one ticker per the original's combined worker.
	ReminderWorkerInterval time.Duration

	IntegrityCleanupInterval time.Duration

	// UsernameSyncInterval gates how often the worker wakes up; UsernameSyncThrottle
	// is the minimum time between two full rescans of the same guild.
	UsernameSyncInterval time.Duration
	UsernameSyncThrottle time.Duration

	LogForwardQueueMax      int
	LogForwardFlushInterval time.Duration
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		DiscordToken:          os.Getenv("DISCORD_TOKEN"),
		DatabaseDSN:           envOr("DATABASE_URL", os.Getenv("DATABASE_DSN")),
		LogLevel:              envOr("LOG_LEVEL", "info"),
		LogJSON:               envBool("LOG_JSON", false),
		AdvisoryLockNamespace: envOr("ADVISORY_LOCK_NAMESPACE", "dmw-coordinator"),
		MetricsAddr:           envOr("METRICS_ADDR", ":9090"),
		DebounceWindow:        envDuration("DEBOUNCE_WINDOW_MS", 1500*time.Millisecond),
		DebounceCooldown:      envDuration("DEBOUNCE_COOLDOWN_MS", 800*time.Millisecond),
		ConnectRetries:        envInt("DB_CONNECT_RETRIES", 30),
		MaxOpenConns:          envInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:          envInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:       envDuration("DB_CONN_MAX_LIFETIME_MS", 5*time.Minute),

		PrivilegedUserID:           envUint64("PRIVILEGED_USER_ID", 0),
		DBEcho:                     envBool("DB_ECHO", false),
		EnableMessageContentIntent: envBool("ENABLE_MESSAGE_CONTENT_INTENT", false),

		LevelPersistInterval:     envSeconds("LEVEL_PERSIST_INTERVAL_SECONDS", 30),
		MessageXPInterval:        envSeconds("MESSAGE_XP_INTERVAL_SECONDS", 60),
		LevelupMessageCooldown:   envSeconds("LEVELUP_MESSAGE_COOLDOWN_SECONDS", 30),
		LogGuildID:               envUint64("LOG_GUILD_ID", 0),
		LogChannelID:             envUint64("LOG_CHANNEL_ID", 0),
		SelfTestInterval:         envSeconds("SELF_TEST_INTERVAL_SECONDS", 60),
		BackupInterval:           envSeconds("BACKUP_INTERVAL_SECONDS", 3600),
		RaidlistDebugChannelID:   envUint64("RAIDLIST_DEBUG_CHANNEL_ID", 0),
		MemberlistDebugChannelID: envUint64("MEMBERLIST_DEBUG_CHANNEL_ID", 0),
		DiscordLogLevel:          envOr("DISCORD_LOG_LEVEL", "INFO"),
		BackupDir:                envOr("BACKUP_DIR", "./backups"),

		StaleRaidMaxAge:        envSeconds("STALE_RAID_MAX_AGE_SECONDS", 7*24*3600),
		StaleRaidCheckInterval: envSeconds("STALE_RAID_CHECK_INTERVAL_SECONDS", 15*60),
		ReminderWorkerInterval: envSeconds("REMINDER_WORKER_INTERVAL_SECONDS", 30),
		IntegrityCleanupInterval: envSeconds("INTEGRITY_CLEANUP_INTERVAL_SECONDS", 15*60),
		UsernameSyncInterval:   envSeconds("USERNAME_SYNC_INTERVAL_SECONDS", 10*60),
		UsernameSyncThrottle:   envSeconds("USERNAME_SYNC_THROTTLE_SECONDS", 12*3600),
		LogForwardQueueMax:     envInt("LOG_FORWARD_QUEUE_MAX", 1000),
		LogForwardFlushInterval: envSeconds("LOG_FORWARD_FLUSH_INTERVAL_SECONDS", 2),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var problems []string
	if c.DiscordToken == "" {
		problems = append(problems, "DISCORD_TOKEN is required")
	}
	if c.DatabaseDSN == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.DebounceWindow <= 0 {
		problems = append(problems, "DEBOUNCE_WINDOW_MS must be positive")
	}
	if c.DebounceCooldown < 0 {
		problems = append(problems, "DEBOUNCE_COOLDOWN_MS must not be negative")
	}
	if c.LevelPersistInterval < 5*time.Second {
		problems = append(problems, "LEVEL_PERSIST_INTERVAL_SECONDS must be >= 5")
	}
	if c.MessageXPInterval < time.Second {
		problems = append(problems, "MESSAGE_XP_INTERVAL_SECONDS must be >= 1")
	}
	if c.LevelupMessageCooldown < time.Second {
		problems = append(problems, "LEVELUP_MESSAGE_COOLDOWN_SECONDS must be >= 1")
	}
	if c.SelfTestInterval < 30*time.Second {
		problems = append(problems, "SELF_TEST_INTERVAL_SECONDS must be >= 30")
	}
	if c.BackupInterval < 300*time.Second {
		problems = append(problems, "BACKUP_INTERVAL_SECONDS must be >= 300")
	}
	switch strings.ToUpper(c.DiscordLogLevel) {
	case "DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL":
	default:
		problems = append(problems, fmt.Sprintf("DISCORD_LOG_LEVEL %q is not one of DEBUG, INFO, WARNING, ERROR, CRITICAL", c.DiscordLogLevel))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(problems, "; "))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envUint64(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}

func envSeconds(key string, fallbackSeconds int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallbackSeconds) * time.Second
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return time.Duration(fallbackSeconds) * time.Second
	}
	return time.Duration(parsed) * time.Second
}
