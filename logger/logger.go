// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"confessbot/model"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// New builds a logger from the log section of the config.
func New(cfg model.Log) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// Init builds the logger and installs it as the process logger.
func Init(cfg model.Log) (*zap.Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	Set(l)
	return l, nil
}

// Set replaces the process logger and routes discordgo's own log output
// into it. A nil l restores the defaults.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()

	if l == nil {
		global = zap.NewNop()
		discordgo.Logger = nil
		return
	}
	global = l
	discordgo.Logger = discordLogger(l.Named("discordgo"))
}

func discordLogger(l *zap.Logger) func(msgL, caller int, format string, a ...any) {
	return func(msgL, _ int, format string, a ...any) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			l.Error(msg)
		case discordgo.LogWarning:
			l.Warn(msg)
		case discordgo.LogInformational:
			l.Info(msg)
		default:
			l.Debug(msg)
		}
	}
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = global.Sync()
}
