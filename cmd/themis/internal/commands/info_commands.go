// info_commands.go: version and selftest sub-commands.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package commands

import (
	"fmt"

	themis "github.com/agilira/themis"
	"github.com/spf13/cobra"
)

// InitInfoCommands registers the version and selftest commands.
func InitInfoCommands(rootCmd *cobra.Command, app *App) error {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the library build identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), themis.Version())
			return err
		},
	}
	rootCmd.AddCommand(versionCmd)

	selftestCmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the known-answer self tests",
		Args:  cobra.NoArgs,
		RunE:  app.runSelfTest,
	}
	rootCmd.AddCommand(selftestCmd)
	return nil
}

func (a *App) runSelfTest(cmd *cobra.Command, _ []string) error {
	var td teardown
	defer func() { td.run(a.Logger()) }()

	gc, err := a.newGlobalContext(&td)
	if err != nil {
		return err
	}
	results, runErr := themis.RunSelfTests(gc)
	out := cmd.OutOrStdout()
	for _, r := range results {
		status := "PASS"
		switch {
		case r.Skipped:
			status = "SKIP"
		case r.Err != nil:
			status = "FAIL"
		}
		fmt.Fprintf(out, "%-4s %s\n", status, r.Name)
	}
	return runErr
}
