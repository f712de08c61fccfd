// common.go: Shared state and helpers of the themis sub-commands.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package commands implements the themis sub-commands.
package commands

import (
	"fmt"
	"io"
	"log/slog"

	themis "github.com/agilira/themis"
	"github.com/agilira/themis/internal/config"
	"github.com/agilira/themis/internal/logger"
	"github.com/spf13/cobra"
)

// App carries the logger settings shared by every sub-command.
type App struct {
	settings *config.LoggerSettings
	log      *slog.Logger
	closer   io.Closer
}

// NewApp returns an App with the default logger settings.
func NewApp() *App {
	return &App{settings: config.DefaultLoggerSettings()}
}

// InitRootFlags binds the logging flags and sets up the logger before any
// sub-command runs.
func (a *App) InitRootFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.settings.LogLevel, "log-level", a.settings.LogLevel, "Log level (debug, info, warning, error)")
	flags.StringVar(&a.settings.LogType, "log-type", a.settings.LogType, "Log sink (console, file)")
	flags.StringVar(&a.settings.FilePath, "log-file", "", "Log file path, required with --log-type file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.setupLogger(cmd.ErrOrStderr())
	}
	rootCmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		return a.Close()
	}
	return nil
}

func (a *App) setupLogger(console io.Writer) error {
	log, closer, err := logger.New(a.settings, console)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	a.log, a.closer = log, closer
	return nil
}

// Logger returns the configured logger, or a discarding one before setup.
func (a *App) Logger() *slog.Logger {
	if a.log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.log
}

// Close releases the log sink.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// teardown destroys resources in reverse creation order.
type teardown []func() error

func (t *teardown) push(fn func() error) { *t = append(*t, fn) }

func (t teardown) run(log *slog.Logger) {
	for i := len(t) - 1; i >= 0; i-- {
		if err := t[i](); err != nil {
			log.Warn("resource release failed", "error", err)
		}
	}
}

// newGlobalContext creates a context with every software provider
// registered. The context's own Destroy is pushed onto td.
func (a *App) newGlobalContext(td *teardown) (*themis.GlobalContext, error) {
	gc, err := themis.Create(&themis.Config{Logger: a.Logger()})
	if err != nil {
		return nil, err
	}
	td.push(gc.Destroy)
	if err := themis.RegisterSoftwareProviders(gc); err != nil {
		return nil, err
	}
	return gc, nil
}
