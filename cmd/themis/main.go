// main.go: Entry point of the themis command line tool.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package main is the entry point for the themis CLI. It builds the root
// command, registers the sub-commands and executes it.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/agilira/themis/cmd/themis/internal/commands"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "themis",
		Short: "Provider-dispatch cryptography tool",
		Long: `themis exposes the themis cryptographic core on the command line.
It can run the known-answer self tests, encrypt and decrypt files with
AES-GCM or Twofish-GCM, and compute message digests.`,
		SilenceUsage: true,
	}

	if err := initializeCommands(rootCmd); err != nil {
		return fmt.Errorf("failed to initialize commands: %w", err)
	}

	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}

// initializeCommands registers all command groups with the root command.
func initializeCommands(rootCmd *cobra.Command) error {
	app := commands.NewApp()
	if err := app.InitRootFlags(rootCmd); err != nil {
		return fmt.Errorf("failed to initialize root flags: %w", err)
	}
	if err := commands.InitInfoCommands(rootCmd, app); err != nil {
		return fmt.Errorf("failed to initialize info commands: %w", err)
	}
	if err := commands.InitCipherCommands(rootCmd, app); err != nil {
		return fmt.Errorf("failed to initialize cipher commands: %w", err)
	}
	if err := commands.InitDigestCommands(rootCmd, app); err != nil {
		return fmt.Errorf("failed to initialize digest commands: %w", err)
	}
	return nil
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stderr)
}
