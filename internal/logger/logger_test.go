// logger_test.go: Tests for CLI logger construction.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/agilira/themis/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	settings := &config.LoggerSettings{LogLevel: config.LogLevelInfo, LogType: config.LogTypeConsole}

	log, closer, err := New(settings, &buf)
	require.NoError(t, err)
	defer closer.Close()

	log.Debug("hidden message")
	log.Info("info message", "context", "abc")
	log.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "hidden message")
	assert.Contains(t, out, "info message")
	assert.Contains(t, out, "context=abc")
	assert.Contains(t, out, "level=ERROR")
}

func TestNewFileLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "themis.log")
	settings := &config.LoggerSettings{
		LogLevel:   config.LogLevelDebug,
		LogType:    config.LogTypeFile,
		FilePath:   logPath,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	}

	log, closer, err := New(settings, nil)
	require.NoError(t, err)

	log.Debug("debug message")
	log.Warn("warn message")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"debug message"`)
	assert.Contains(t, string(content), `"level":"WARN"`)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	_, _, err := New(nil, nil)
	assert.Error(t, err)

	_, _, err = New(&config.LoggerSettings{LogLevel: "loud", LogType: config.LogTypeConsole}, nil)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(config.LogLevelDebug))
	assert.Equal(t, slog.LevelInfo, ParseLevel(config.LogLevelInfo))
	assert.Equal(t, slog.LevelWarn, ParseLevel(config.LogLevelWarning))
	assert.Equal(t, slog.LevelError, ParseLevel(config.LogLevelError))
	assert.Equal(t, slog.LevelInfo, ParseLevel("unknown"))
}
