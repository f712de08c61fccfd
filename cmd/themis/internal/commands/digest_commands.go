// digest_commands.go: digest sub-command.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	themis "github.com/agilira/themis"
	"github.com/spf13/cobra"
)

// InitDigestCommands registers the digest command.
func InitDigestCommands(rootCmd *cobra.Command, app *App) error {
	var algorithm string
	digestCmd := &cobra.Command{
		Use:   "digest [file...]",
		Short: "Print message digests of files, or of standard input",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.digestFiles(cmd, algorithm, args)
		},
	}
	digestCmd.Flags().StringVar(&algorithm, "algorithm", "SHA-256", "Digest algorithm, e.g. SHA-256, SHA3-512, RIPEMD-160")
	rootCmd.AddCommand(digestCmd)
	return nil
}

func (a *App) digestFiles(cmd *cobra.Command, algorithm string, files []string) error {
	alg, ok := themis.ParseAlgorithm(algorithm)
	if !ok {
		return fmt.Errorf("unknown algorithm %q", algorithm)
	}

	var td teardown
	defer func() { td.run(a.Logger()) }()
	gc, err := a.newGlobalContext(&td)
	if err != nil {
		return err
	}
	params, err := gc.CreateDigestParams(alg, nil)
	if err != nil {
		return err
	}
	td.push(params.Destroy)

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		sum, err := digestReader(params, cmd.InOrStdin())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s  -\n", hex.EncodeToString(sum))
		return err
	}
	for _, name := range files {
		f, err := os.Open(filepath.Clean(name))
		if err != nil {
			return err
		}
		sum, err := digestReader(params, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Fprintf(out, "%s  %s\n", hex.EncodeToString(sum), name)
	}
	return nil
}

func digestReader(params *themis.Params, r io.Reader) ([]byte, error) {
	d, err := params.NewDigestContext()
	if err != nil {
		return nil, err
	}
	defer func() { _ = d.Destroy() }()

	buf := make([]byte, themis.DefaultChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if uerr := d.Update(buf[:n]); uerr != nil {
				return nil, uerr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	sum := make([]byte, d.Size())
	if _, err := d.End(sum); err != nil {
		return nil, err
	}
	return sum, nil
}
