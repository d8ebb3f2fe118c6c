package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/cadete/internal/timex"
)

// envFile is loaded before reading the environment; already-set variables win.
var envFile = ".env"

// parseEnv overlays Config with environment variables. Durations named after
// the session settings are whole seconds; DB_TIMEOUT and S3_PRESIGN_TTL use
// time.ParseDuration syntax.
func parseEnv(c *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Errorf("load %s: %w", envFile, err))
	}

	envString("HTTP_ADDR", &c.HTTPAddr)
	envString("DATABASE_URI", &c.DatabaseDSN)
	envString("SECRET_KEY", &c.SecretKey)

	if v, ok := envInt("PERMANENT_SESSION_LIFETIME"); ok {
		c.SessionLifetime = timex.Seconds(v)
	}
	if v, ok := envInt("SESSION_IDLE_TIMEOUT"); ok {
		c.SessionIdleTimeout = timex.Seconds(v)
	}
	if v, ok := envInt("SESSION_TOUCH_INTERVAL"); ok {
		c.SessionTouchInterval = timex.Seconds(v)
	}
	envBool("SESSION_COOKIE_SECURE", &c.SessionCookieSecure)
	envString("SESSION_COOKIE_SAMESITE", &c.SessionCookieSameSite)
	envString("SESSION_BACKEND", &c.SessionBackend)

	envString("REDIS_ADDR", &c.RedisAddr)
	envString("REDIS_PASSWORD", &c.RedisPassword)
	if v, ok := envInt("REDIS_DB"); ok {
		c.RedisDB = v
	}

	envDuration("DB_TIMEOUT", &c.DBTimeout)

	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_FORMAT", &c.LogFormat)
	envString("LOG_BACKEND", &c.LogBackend)
	envString("LOG_FILE", &c.LogFile)

	envString("S3_ROOT_USER", &c.S3RootUser)
	envString("S3_ROOT_PASSWORD", &c.S3RootPassword)
	envString("S3_BUCKET", &c.S3Bucket)
	envString("S3_REGION", &c.S3Region)
	envString("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	envDuration("S3_PRESIGN_TTL", &c.S3PresignTTL)

	if v, ok := envInt("LOGIN_RATE_PER_MINUTE"); ok {
		c.LoginRatePerMinute = v
	}
	if v, ok := envInt("LOGIN_RATE_BURST"); ok {
		c.LoginRateBurst = v
	}
	envBool("HIDE_USER_ENUMERATION", &c.HideUserEnumeration)
	envBool("CSRF_ENABLED", &c.CSRFEnabled)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	return n, true
}

func envBool(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = b
}

func envDuration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = d
}
