package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/cadete/internal/flagx"
	"github.com/dmitrijs2005/cadete/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Pointer
// fields distinguish "absent" from zero values, so a partial file only
// overrides what it names. Durations accept "15m" or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr    *string `json:"http_addr"`
	DatabaseDSN *string `json:"database_dsn"`
	SecretKey   *string `json:"secret_key"`

	SessionLifetime       *timex.Duration `json:"session_lifetime"`
	SessionIdleTimeout    *timex.Duration `json:"session_idle_timeout"`
	SessionTouchInterval  *timex.Duration `json:"session_touch_interval"`
	SessionCookieSecure   *bool           `json:"session_cookie_secure"`
	SessionCookieSameSite *string         `json:"session_cookie_samesite"`
	SessionBackend        *string         `json:"session_backend"`

	RedisAddr     *string `json:"redis_addr"`
	RedisPassword *string `json:"redis_password"`
	RedisDB       *int    `json:"redis_db"`

	DBTimeout *timex.Duration `json:"db_timeout"`

	LogLevel   *string `json:"log_level"`
	LogFormat  *string `json:"log_format"`
	LogBackend *string `json:"log_backend"`
	LogFile    *string `json:"log_file"`

	S3RootUser     *string         `json:"s3_root_user"`
	S3RootPassword *string         `json:"s3_root_password"`
	S3Bucket       *string         `json:"s3_bucket"`
	S3Region       *string         `json:"s3_region"`
	S3BaseEndpoint *string         `json:"s3_base_endpoint"`
	S3PresignTTL   *timex.Duration `json:"s3_presign_ttl"`

	LoginRatePerMinute  *int  `json:"login_rate_per_minute"`
	LoginRateBurst      *int  `json:"login_rate_burst"`
	HideUserEnumeration *bool `json:"hide_user_enumeration"`

	CSRFEnabled *bool `json:"csrf_enabled"`
}

// parseJson loads the file named by -c/-config in args, if any, and copies
// the fields it sets into config. An unreadable or invalid file panics.
func parseJson(config *Config, args []string) {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)

	setDuration(&config.SessionLifetime, c.SessionLifetime)
	setDuration(&config.SessionIdleTimeout, c.SessionIdleTimeout)
	setDuration(&config.SessionTouchInterval, c.SessionTouchInterval)
	if c.SessionCookieSecure != nil {
		config.SessionCookieSecure = *c.SessionCookieSecure
	}
	setString(&config.SessionCookieSameSite, c.SessionCookieSameSite)
	setString(&config.SessionBackend, c.SessionBackend)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}

	setDuration(&config.DBTimeout, c.DBTimeout)

	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogFile, c.LogFile)

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&config.S3PresignTTL, c.S3PresignTTL)

	if c.LoginRatePerMinute != nil {
		config.LoginRatePerMinute = *c.LoginRatePerMinute
	}
	if c.LoginRateBurst != nil {
		config.LoginRateBurst = *c.LoginRateBurst
	}
	if c.HideUserEnumeration != nil {
		config.HideUserEnumeration = *c.HideUserEnumeration
	}
	if c.CSRFEnabled != nil {
		config.CSRFEnabled = *c.CSRFEnabled
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
