package config

import (
	"CrowdGuard/pkg/backup"
	"CrowdGuard/pkg/cache"
	"CrowdGuard/pkg/logger"
	"CrowdGuard/pkg/storage"
	"CrowdGuard/pkg/util"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	DBDriver      string `env:"DB_DRIVER"`
	DSN           string `env:"DSN"`
	Log           logger.LogConfig
	Cache         cache.Config
	Storage       storage.Config
	Backup        backup.Config
	Addr          string `env:"ADDR"`
	Mode          string `env:"MODE"`
	APIPrefix     string `env:"API_PREFIX"`
	DocsPrefix    string `env:"DOCS_PREFIX"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	AppScheme     string `env:"APP_SCHEME"`

	SessionSecret     string `env:"SESSION_SECRET"`
	SessionExpireDays int    `env:"SESSION_EXPIRE_DAYS"`
	JWTSecret         string `env:"JWT_SECRET"`
	JWTExpireHours    int    `env:"JWT_EXPIRE_HOURS"`

	InvitationExpireDays    int    `env:"INVITATION_EXPIRE_DAYS"`
	InvitationSweepSchedule string `env:"INVITATION_SWEEP_SCHEDULE"`

	RateLimit       string `env:"RATE_LIMIT"`
	LanguageDefault string `env:"LANGUAGE_DEFAULT"`
	GeoIPDB         string `env:"GEOIP_DB"`
}

var GlobalConfig *Config

func Load() error {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	GlobalConfig = &Config{
		DBDriver:      util.GetEnvDefault("DB_DRIVER", "sqlite"),
		DSN:           util.GetEnvDefault("DSN", "crowdguard.db"),
		Addr:          util.GetEnvDefault("ADDR", ":8000"),
		Mode:          util.GetEnvDefault("MODE", "debug"),
		APIPrefix:     util.GetEnvDefault("API_PREFIX", "/api"),
		DocsPrefix:    util.GetEnvDefault("DOCS_PREFIX", "/api/docs/"),
		PublicBaseURL: util.GetEnvDefault("PUBLIC_BASE_URL", "http://localhost:8000"),
		AppScheme:     util.GetEnvDefault("APP_SCHEME", "appscheme"),

		SessionSecret:     util.GetEnv("SESSION_SECRET"),
		SessionExpireDays: int(util.GetIntEnvDefault("SESSION_EXPIRE_DAYS", 7)),
		JWTSecret:         util.GetEnv("JWT_SECRET"),
		JWTExpireHours:    int(util.GetIntEnvDefault("JWT_EXPIRE_HOURS", 24)),

		InvitationExpireDays:    int(util.GetIntEnvDefault("INVITATION_EXPIRE_DAYS", 7)),
		InvitationSweepSchedule: util.GetEnv("INVITATION_SWEEP_SCHEDULE"),

		RateLimit:       util.GetEnvDefault("RATE_LIMIT", "300-M"),
		LanguageDefault: util.GetEnvDefault("LANGUAGE_DEFAULT", "en"),
		GeoIPDB:         util.GetEnv("GEOIP_DB"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Cache: cache.Config{
			Type: util.GetEnvDefault("CACHE_TYPE", "gocache"),
			Redis: cache.RedisConfig{
				Addr:     util.GetEnvDefault("REDIS_ADDR", "localhost:6379"),
				Password: util.GetEnv("REDIS_PASSWORD"),
				DB:       int(util.GetIntEnv("REDIS_DB")),
				PoolSize: int(util.GetIntEnvDefault("REDIS_POOL_SIZE", 10)),
			},
			Local: cache.LocalConfig{
				MaxSize:           int(util.GetIntEnvDefault("LOCAL_CACHE_MAX_SIZE", 1000)),
				DefaultExpiration: time.Duration(util.GetIntEnvDefault("LOCAL_CACHE_TTL_SECONDS", 60)) * time.Second,
				CleanupInterval:   10 * time.Minute,
			},
		},
		Backup: backup.Config{
			Schedule: util.GetEnv("BACKUP_SCHEDULE"),
			Dir:      util.GetEnvDefault("BACKUP_PATH", "backups"),
			Keep:     int(util.GetIntEnvDefault("BACKUP_KEEP", 7)),
		},
		Storage: storage.Config{
			Driver:    util.GetEnvDefault("STORAGE_DRIVER", "local"),
			LocalPath: util.GetEnvDefault("STORAGE_LOCAL_PATH", "media"),
			BaseURL:   util.GetEnv("STORAGE_PUBLIC_BASE"),
			Minio: storage.MinioConfig{
				Endpoint:  util.GetEnv("MINIO_ENDPOINT"),
				AccessKey: util.GetEnv("MINIO_ACCESS_KEY"),
				SecretKey: util.GetEnv("MINIO_SECRET_KEY"),
				Bucket:    util.GetEnvDefault("MINIO_BUCKET", "crowdguard"),
				UseSSL:    util.GetBoolEnv("MINIO_USE_SSL"),
				BaseURL:   util.GetEnv("MINIO_PUBLIC_BASE"),
			},
		},
	}
	return nil
}

// Validate rejects settings the server must not run with. Release mode requires both
// signing secrets; other modes fall back to per-process keys.
func (c *Config) Validate() error {
	if c.Mode != "release" {
		return nil
	}
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("release mode requires %s", strings.Join(missing, ", "))
	}
	return nil
}

// Default returns a configuration suitable for tests and local runs without an
// environment: in-memory sqlite, local cache and storage, no rate limit.
func Default() *Config {
	return &Config{
		DBDriver:             "sqlite",
		Addr:                 ":8000",
		Mode:                 "test",
		APIPrefix:            "/api",
		DocsPrefix:           "/api/docs/",
		PublicBaseURL:        "http://localhost:8000",
		AppScheme:            "appscheme",
		SessionSecret:        "dev-session-secret",
		SessionExpireDays:    7,
		JWTSecret:            "dev-jwt-secret",
		JWTExpireHours:       24,
		InvitationExpireDays: 7,
		LanguageDefault:      "en",
		Cache: cache.Config{
			Type:  "gocache",
			Local: cache.LocalConfig{MaxSize: 100, DefaultExpiration: time.Minute, CleanupInterval: 10 * time.Minute},
		},
		Storage: storage.Config{Driver: "local", LocalPath: os.TempDir()},
	}
}

// InvitationTTL is the lifetime of a new family invitation.
func (c *Config) InvitationTTL() time.Duration {
	days := c.InvitationExpireDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}
