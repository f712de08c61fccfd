// cipher_commands.go: encrypt and decrypt sub-commands.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	themis "github.com/agilira/themis"
	"github.com/spf13/cobra"
)

// Envelope layout: magic | nonce | ciphertext | tag. The magic and nonce
// are authenticated as associated data.
const (
	envelopeMagic = "THM1"
	nonceSize     = 12
	headerSize    = len(envelopeMagic) + nonceSize
)

var cipherAlgorithms = map[string]themis.Algorithm{
	"aes":     themis.AlgAES,
	"twofish": themis.AlgTwofish,
}

type cipherFlags struct {
	in, out   string
	keyFile   string
	keyHex    string
	encoding  string
	algorithm string
}

func (f *cipherFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.in, "input-file", "", "Path of the input file")
	cmd.Flags().StringVar(&f.out, "output-file", "", "Path of the output file")
	cmd.Flags().StringVar(&f.keyHex, "key", "", "Symmetric key as hex")
	cmd.Flags().StringVar(&f.keyFile, "key-file", "", "Path of a file holding the encoded symmetric key")
	cmd.Flags().StringVar(&f.encoding, "key-encoding", "hex", "Encoding of --key-file (hex, base64)")
	cmd.Flags().StringVar(&f.algorithm, "algorithm", "aes", "Block cipher (aes, twofish)")
	_ = cmd.MarkFlagRequired("input-file")
	_ = cmd.MarkFlagRequired("output-file")
	cmd.MarkFlagsMutuallyExclusive("key", "key-file")
	cmd.MarkFlagsOneRequired("key", "key-file")
}

func (f *cipherFlags) keyMaterial() ([]byte, error) {
	if f.keyHex != "" {
		return themis.DecodeKeyMaterial(f.keyHex, themis.EncodingHex)
	}
	enc := themis.EncodingHex
	switch strings.ToLower(f.encoding) {
	case "hex":
	case "base64":
		enc = themis.EncodingBase64
	default:
		return nil, fmt.Errorf("unsupported key encoding %q", f.encoding)
	}
	raw, err := os.ReadFile(filepath.Clean(f.keyFile))
	if err != nil {
		return nil, err
	}
	defer themis.Zeroize(raw)
	return themis.DecodeKeyMaterial(string(raw), enc)
}

// openKey builds an RNG, GCM parameters and the imported key.
func (a *App) openKey(f *cipherFlags, td *teardown) (*themis.Key, *themis.RNG, error) {
	alg, ok := cipherAlgorithms[strings.ToLower(f.algorithm)]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported algorithm %q", f.algorithm)
	}
	material, err := f.keyMaterial()
	if err != nil {
		return nil, nil, err
	}
	defer themis.Zeroize(material)

	gc, err := a.newGlobalContext(td)
	if err != nil {
		return nil, nil, err
	}
	rng, err := gc.CreateRNG(themis.AlgHMACDRBG, []byte("themis-cli"))
	if err != nil {
		return nil, nil, err
	}
	td.push(rng.Destroy)
	params, err := gc.CreateAEADParams(alg, themis.VariantGCM, &themis.ParamsOptions{RNG: rng})
	if err != nil {
		return nil, nil, err
	}
	td.push(params.Destroy)
	key, err := params.ImportKey(len(material)*8, material, nil)
	if err != nil {
		return nil, nil, err
	}
	td.push(key.Destroy)
	return key, rng, nil
}

// InitCipherCommands registers the encrypt and decrypt commands.
func InitCipherCommands(rootCmd *cobra.Command, app *App) error {
	var encFlags cipherFlags
	encryptCmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a file with AES-GCM or Twofish-GCM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.encryptFile(&encFlags)
		},
	}
	encFlags.bind(encryptCmd)
	rootCmd.AddCommand(encryptCmd)

	var decFlags cipherFlags
	decryptCmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt and authenticate a file produced by encrypt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.decryptFile(&decFlags)
		},
	}
	decFlags.bind(decryptCmd)
	rootCmd.AddCommand(decryptCmd)
	return nil
}

func (a *App) encryptFile(f *cipherFlags) error {
	var td teardown
	defer func() { td.run(a.Logger()) }()

	key, rng, err := a.openKey(f, &td)
	if err != nil {
		return err
	}
	nonce := make([]byte, nonceSize)
	if err := rng.GetBytes(nonce, nil); err != nil {
		return err
	}
	header := append([]byte(envelopeMagic), nonce...)

	actx, err := key.NewAEADContext(themis.Encrypt, themis.AEADOptions{Nonce: nonce})
	if err != nil {
		return err
	}
	td.push(actx.Destroy)
	if err := actx.Authenticate(header); err != nil {
		return err
	}

	in, err := os.Open(filepath.Clean(f.in))
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(filepath.Clean(f.out), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.Write(header); err != nil {
		return err
	}
	w, err := themis.NewSealWriter(out, actx)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	a.Logger().Info("encrypted file written", "output", f.out)
	return out.Sync()
}

func (a *App) decryptFile(f *cipherFlags) (err error) {
	var td teardown
	defer func() { td.run(a.Logger()) }()

	key, _, err := a.openKey(f, &td)
	if err != nil {
		return err
	}

	in, err := os.Open(filepath.Clean(f.in))
	if err != nil {
		return err
	}
	defer in.Close()

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(in, header); err != nil {
		return fmt.Errorf("input is not a themis envelope: %w", err)
	}
	if !bytes.Equal(header[:len(envelopeMagic)], []byte(envelopeMagic)) {
		return fmt.Errorf("input is not a themis envelope: bad magic")
	}

	actx, err := key.NewAEADContext(themis.Decrypt, themis.AEADOptions{Nonce: header[len(envelopeMagic):]})
	if err != nil {
		return err
	}
	td.push(actx.Destroy)
	if err := actx.Authenticate(header); err != nil {
		return err
	}
	r, err := themis.NewOpenReader(in, actx)
	if err != nil {
		return err
	}

	outPath := filepath.Clean(f.out)
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	// Unauthenticated output is never left behind.
	defer func() {
		cerr := out.Close()
		if err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(outPath)
		}
	}()

	if _, err := io.Copy(out, r); err != nil {
		return err
	}
	a.Logger().Info("decrypted file written", "output", f.out)
	return nil
}
