// commands_test.go: End-to-end tests of the themis sub-commands.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package commands

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	themis "github.com/agilira/themis"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "themis", SilenceUsage: true, SilenceErrors: true}
	app := NewApp()
	require.NoError(t, app.InitRootFlags(root))
	require.NoError(t, InitInfoCommands(root, app))
	require.NoError(t, InitCipherCommands(root, app))
	require.NoError(t, InitDigestCommands(root, app))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.Equal(t, themis.Version()+"\n", out)
}

func TestSelfTestCommand(t *testing.T) {
	out, err := execute(t, nil, "selftest")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS AES-128-CBC zero vector")
	assert.NotContains(t, out, "FAIL")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, alg := range []string{"aes", "twofish"} {
		t.Run(alg, func(t *testing.T) {
			dir := t.TempDir()
			plain := filepath.Join(dir, "plain.txt")
			sealed := filepath.Join(dir, "sealed.bin")
			opened := filepath.Join(dir, "opened.txt")
			content := bytes.Repeat([]byte("themis streaming payload "), 10000)
			require.NoError(t, os.WriteFile(plain, content, 0o600))

			_, err := execute(t, nil, "encrypt", "--algorithm", alg, "--key", testKeyHex,
				"--input-file", plain, "--output-file", sealed)
			require.NoError(t, err)

			sealedBytes, err := os.ReadFile(sealed)
			require.NoError(t, err)
			assert.Equal(t, headerSize+len(content)+16, len(sealedBytes))
			assert.Equal(t, envelopeMagic, string(sealedBytes[:4]))

			_, err = execute(t, nil, "decrypt", "--algorithm", alg, "--key", testKeyHex,
				"--input-file", sealed, "--output-file", opened)
			require.NoError(t, err)

			got, err := os.ReadFile(opened)
			require.NoError(t, err)
			assert.Equal(t, content, got)
		})
	}
}

func TestDecryptRejectsTamperedInput(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.txt")
	sealed := filepath.Join(dir, "sealed.bin")
	opened := filepath.Join(dir, "opened.txt")
	require.NoError(t, os.WriteFile(plain, []byte("attack at dawn"), 0o600))

	_, err := execute(t, nil, "encrypt", "--key", testKeyHex, "--input-file", plain, "--output-file", sealed)
	require.NoError(t, err)

	data, err := os.ReadFile(sealed)
	require.NoError(t, err)
	data[headerSize] ^= 0x01
	require.NoError(t, os.WriteFile(sealed, data, 0o600))

	_, err = execute(t, nil, "decrypt", "--key", testKeyHex, "--input-file", sealed, "--output-file", opened)
	require.Error(t, err)
	assert.True(t, errors.Is(err, themis.ErrMACInvalid))
	_, statErr := os.Stat(opened)
	assert.True(t, os.IsNotExist(statErr), "unauthenticated output must be removed")
}

func TestDecryptWithKeyFile(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key.b64")
	material, err := themis.DecodeKeyMaterial(testKeyHex, themis.EncodingHex)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(keyFile, []byte(themis.EncodeKeyMaterial(material, themis.EncodingBase64)+"\n"), 0o600))

	plain := filepath.Join(dir, "plain.txt")
	sealed := filepath.Join(dir, "sealed.bin")
	opened := filepath.Join(dir, "opened.txt")
	require.NoError(t, os.WriteFile(plain, []byte("key file payload"), 0o600))

	_, err = execute(t, nil, "encrypt", "--key", testKeyHex, "--input-file", plain, "--output-file", sealed)
	require.NoError(t, err)
	_, err = execute(t, nil, "decrypt", "--key-file", keyFile, "--key-encoding", "base64",
		"--input-file", sealed, "--output-file", opened)
	require.NoError(t, err)

	got, err := os.ReadFile(opened)
	require.NoError(t, err)
	assert.Equal(t, "key file payload", string(got))
}

func TestEncryptRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o600))

	_, err := execute(t, nil, "encrypt", "--algorithm", "rot13", "--key", testKeyHex,
		"--input-file", plain, "--output-file", filepath.Join(dir, "out"))
	assert.Error(t, err)

	_, err = execute(t, nil, "encrypt", "--key", "abcd",
		"--input-file", plain, "--output-file", filepath.Join(dir, "out"))
	assert.True(t, errors.Is(err, themis.ErrBadKeyLen))

	_, err = execute(t, nil, "encrypt", "--input-file", plain, "--output-file", filepath.Join(dir, "out"))
	assert.Error(t, err, "a key flag is required")
}

func TestDigestCommand(t *testing.T) {
	out, err := execute(t, strings.NewReader("abc"), "digest")
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad  -\n", out)

	file := filepath.Join(t.TempDir(), "abc.txt")
	require.NoError(t, os.WriteFile(file, []byte("abc"), 0o600))
	out, err = execute(t, nil, "digest", "--algorithm", "sha1", file)
	require.NoError(t, err)
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d  "+file+"\n", out)

	_, err = execute(t, nil, "digest", "--algorithm", "nope")
	assert.Error(t, err)
}
