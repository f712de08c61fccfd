// logger.go: slog loggers for the themis command line tool.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package logger builds the structured loggers used by the CLI: slog text
// on the console, or slog JSON into a size-rotated file.
package logger

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/agilira/themis/internal/config"
	"github.com/natefinch/lumberjack"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New validates settings and returns a logger together with the closer of
// its sink. Console loggers write to console.
func New(settings *config.LoggerSettings, console io.Writer) (*slog.Logger, io.Closer, error) {
	if settings == nil {
		return nil, nil, fmt.Errorf("logger settings are required")
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(settings.LogLevel)}
	switch settings.LogType {
	case config.LogTypeConsole:
		return slog.New(slog.NewTextHandler(console, opts)), nopCloser{}, nil
	case config.LogTypeFile:
		writer := &lumberjack.Logger{
			Filename:   settings.FilePath,
			MaxSize:    settings.MaxSize,
			MaxBackups: settings.MaxBackups,
			MaxAge:     settings.MaxAge,
			Compress:   true,
		}
		return slog.New(slog.NewJSONHandler(writer, opts)), writer, nil
	default:
		return nil, nil, fmt.Errorf("unsupported log type: %s", settings.LogType)
	}
}

// ParseLevel maps a configured level name to its slog level. Unknown names
// fall back to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarning:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
