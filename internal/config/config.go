// Package config loads the storefront configuration from the environment.
package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Port        string
	HTTPTimeout time.Duration

	// Hosted backend (PostgREST + GoTrue style). When PostgresDSN is set
	// the record store talks to Postgres directly instead.
	BackendURL  string
	BackendKey  string
	PostgresDSN string

	// Session state store. Redis when set, otherwise files under
	// StateDir, otherwise in-memory.
	RedisAddr     string
	RedisPassword string
	StateDir      string

	// RabbitMQ. Empty disables event publishing.
	AMQPURL string

	// SiteURL is the email-verification redirect target.
	SiteURL string

	// DevLogins enables the fixed development accounts. Never enable in
	// production.
	DevLogins bool

	CORSAllowOrigins []string
}

func Load() Config {
	return Config{
		Port:        getenv("PORT", "8090"),
		HTTPTimeout: parseDuration(getenv("HTTP_TIMEOUT", "10s"), 10*time.Second),

		BackendURL:  getenv("BACKEND_URL", "http://localhost:54321"),
		BackendKey:  getenv("BACKEND_ANON_KEY", ""),
		PostgresDSN: getenv("POSTGRES_DSN", ""),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		StateDir:      getenv("STATE_DIR", ""),

		AMQPURL: getenv("AMQP_URL", ""),

		SiteURL: getenv("SITE_URL", "http://localhost:5173"),

		DevLogins: getenv("DEV_LOGINS", "false") == "true",

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
