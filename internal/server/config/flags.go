package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/cadete/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   session signing secret key
//	-t int      absolute session lifetime, seconds
//	-i int      session idle timeout, seconds
//	-k string   session backend: postgres | redis
//	-r string   Redis address
//	-l string   log level
//	-b string   S3 bucket name
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Args are filtered first with flagx.FilterArgs so that flags of other
// components (such as -c) do not trip the parser.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-i", "-k", "-r", "-l", "-b", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	lifetime := fs.Int("t", int(config.SessionLifetime.Seconds()), "session lifetime (in seconds)")
	idle := fs.Int("i", int(config.SessionIdleTimeout.Seconds()), "session idle timeout (in seconds)")

	fs.StringVar(&config.SessionBackend, "k", config.SessionBackend, "session backend (postgres|redis)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionLifetime = time.Duration(*lifetime) * time.Second
	config.SessionIdleTimeout = time.Duration(*idle) * time.Second
}
