// helpers_test.go: Shared fixtures for the package tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// counterEntropy is a reproducible entropy source: byte i of the stream is
// i+offset modulo 256.
type counterEntropy struct {
	next byte
}

func (c *counterEntropy) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = c.next
		c.next++
	}
	return len(p), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy source offline") }

// newTestContext returns a context with every software provider registered
// and reproducible entropy.
func newTestContext(t *testing.T) *GlobalContext {
	t.Helper()
	gc, err := Create(&Config{Entropy: &counterEntropy{}})
	require.NoError(t, err)
	require.NoError(t, RegisterSoftwareProviders(gc))
	return gc
}

// newTestRNG returns an HMAC_DRBG owned by gc.
func newTestRNG(t *testing.T, gc *GlobalContext) *RNG {
	t.Helper()
	rng, err := gc.CreateRNG(AlgHMACDRBG, []byte("test"))
	require.NoError(t, err)
	return rng
}

// importKey creates params with mk and imports material into them.
func importKey(t *testing.T, mk func() (*Params, error), material []byte) (*Params, *Key) {
	t.Helper()
	p, err := mk()
	require.NoError(t, err)
	k, err := p.ImportKey(len(material)*8, material, nil)
	require.NoError(t, err)
	return p, k
}

// blockKey imports material for alg in mode.
func blockKey(t *testing.T, gc *GlobalContext, alg Algorithm, mode Mode, blockLen int, material []byte) (*Params, *Key) {
	t.Helper()
	return importKey(t, func() (*Params, error) {
		return gc.CreateBlockCipherParams(alg, mode, blockLen, nil)
	}, material)
}

// destroyAll destroys resources in the given order and fails the test on
// the first error.
func destroyAll(t *testing.T, rs ...interface{ Destroy() error }) {
	t.Helper()
	for _, r := range rs {
		require.NoError(t, r.Destroy())
	}
}

// crypt runs src through a fresh context in one Update and ends it.
func crypt(t *testing.T, k *Key, dir Direction, iv, src []byte) []byte {
	t.Helper()
	c, err := k.NewCipherContext(dir, iv)
	require.NoError(t, err)
	out, err := c.UpdateAlloc(src)
	require.NoError(t, err)
	require.NoError(t, c.End())
	require.NoError(t, c.Destroy())
	return out
}

func seq(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}
