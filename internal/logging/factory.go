package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects and tunes a Logger implementation.
//
// Backend is "slog" (default) or "zap". Level is one of debug, info, warn,
// error. Format is "json" (default) or "text". When File is set, output goes
// to a daily-rotated file with a symlink at File instead of stdout.
type Options struct {
	Backend string
	Level   string
	Format  string
	File    string
	MaxAge  time.Duration
}

// New builds a Logger from opts. The returned close func releases the output
// file, if any, and flushes zap buffers.
func New(opts Options) (Logger, func() error, error) {
	out, closeOut, err := openOutput(opts)
	if err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(opts.Backend) {
	case "", "slog":
		return NewSlogLogger(slog.New(slogHandler(out, opts))), closeOut, nil
	case "zap":
		zl := NewZapLogger(zapLogger(out, opts))
		return zl, func() error {
			_ = zl.Sync()
			return closeOut()
		}, nil
	default:
		_ = closeOut()
		return nil, nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}

func openOutput(opts Options) (io.Writer, func() error, error) {
	if opts.File == "" {
		return os.Stdout, func() error { return nil }, nil
	}

	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	rl, err := rotatelogs.New(
		opts.File+".%Y%m%d",
		rotatelogs.WithLinkName(filepath.Clean(opts.File)),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return rl, rl.Close, nil
}

func slogHandler(out io.Writer, opts Options) slog.Handler {
	ho := &slog.HandlerOptions{Level: slogLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "text") {
		return slog.NewTextHandler(out, ho)
	}
	return slog.NewJSONHandler(out, ho)
}

func zapLogger(out io.Writer, opts Options) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(opts.Format, "text") {
		enc = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), zapLevel(opts.Level))
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
}

func slogLevel(l string) slog.Level {
	switch strings.ToLower(l) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zapLevel(l string) zapcore.Level {
	switch strings.ToLower(l) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
