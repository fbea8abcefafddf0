package logging

import (
	"fmt"
	"io"

	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Development mode writes colored console
// lines to stdout; otherwise JSON goes to stderr.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	if development {
		return NewConsole(colorable.NewColorableStdout(), lvl), nil
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// NewConsole writes human-readable, level-colored lines to w.
func NewConsole(w io.Writer, lvl zapcore.Level) *zap.Logger {
	config := zap.NewDevelopmentEncoderConfig()
	config.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(config),
		zapcore.AddSync(w),
		lvl,
	))
}

// Wallet shortens an address for log lines.
func Wallet(addr string) zap.Field {
	if len(addr) > 12 {
		addr = addr[:4] + "..." + addr[len(addr)-4:]
	}
	return zap.String("wallet", addr)
}
