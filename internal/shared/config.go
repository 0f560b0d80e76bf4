package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string

	RedisAddr string
	RedisDB   int
	RedisPass string

	// Internal services gateway (appointments, workers, users).
	DirectoryBase string
	DirectoryKey  string

	// Push gateway.
	PushBase string
	PushKey  string

	// SMTP for preferred-cleaner mail.
	SMTPHost string
	SMTPPort string
	SMTPFrom string
	SMTPPass string

	FanoutWorkers    int
	ReconcileWorkers int
	CacheTTL         time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:           env("APP_ENV", "prod"),
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		MetricsAddr:      env("METRICS_ADDR", ":9100"),
		MySQLDSN:         env("MYSQL_DSN", "root:root@tcp(localhost:3306)/brightnest?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:        env("REDIS_ADDR", "localhost:6379"),
		RedisPass:        env("REDIS_PASSWORD", ""),
		RedisDB:          atoi("REDIS_DB", 0),
		DirectoryBase:    env("DIRECTORY_BASE_URL", "http://appointments.internal:8080"),
		DirectoryKey:     env("DIRECTORY_API_KEY", ""),
		PushBase:         env("PUSH_BASE_URL", ""),
		PushKey:          env("PUSH_API_KEY", ""),
		SMTPHost:         env("SMTP_HOST", ""),
		SMTPPort:         env("SMTP_PORT", "587"),
		SMTPFrom:         env("SMTP_FROM", ""),
		SMTPPass:         env("SMTP_PASSWORD", ""),
		FanoutWorkers:    atoi("FANOUT_WORKERS", 4),
		ReconcileWorkers: atoi("RECONCILE_WORKERS", 8),
		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.SMTPHost == "" {
		log.Warn().Msg("SMTP_HOST is empty; preferred-cleaner email disabled")
	}
	if c.PushBase == "" {
		log.Warn().Msg("PUSH_BASE_URL is empty; push notifications disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
