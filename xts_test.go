// xts_test.go: XTS mode tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/xts"
)

func TestXTSIV(t *testing.T) {
	iv, err := XTSIV(0, 0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), iv)

	iv, err = XTSIV(0x0102030405060708, 0x0ABCDE)
	require.NoError(t, err)
	assert.Equal(t, unhex("0807060504030201debc0a0000000000"), iv)

	_, err = XTSIV(1, 1<<20)
	assert.ErrorIs(t, err, ErrBadIV)
}

func TestParseXTSIV(t *testing.T) {
	iv, err := XTSIV(42, 3)
	require.NoError(t, err)

	unit, index, err := parseXTSIV(iv, 32)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), unit)
	assert.Equal(t, uint32(3), index)

	_, _, err = parseXTSIV(iv, 3)
	assert.ErrorIs(t, err, ErrBadIV, "index outside the data unit")

	iv[15] = 1
	_, _, err = parseXTSIV(iv, 32)
	assert.ErrorIs(t, err, ErrBadIV, "reserved bytes must be zero")

	_, _, err = parseXTSIV(iv[:8], 32)
	assert.ErrorIs(t, err, ErrBadIV)
}

// TestXTSAgainstReference compares whole data units with
// golang.org/x/crypto/xts, whose sector number matches the data unit
// sequence number.
func TestXTSAgainstReference(t *testing.T) {
	gc := newTestContext(t)
	const unit = 64
	key := seq(32, 0x40)
	pt := seq(3*unit, 0x80)

	ref, err := xts.NewCipher(aes.NewCipher, key)
	require.NoError(t, err)
	want := make([]byte, len(pt))
	for i := 0; i < 3; i++ {
		ref.Encrypt(want[i*unit:(i+1)*unit], pt[i*unit:(i+1)*unit], uint64(5+i))
	}

	p, k := blockKey(t, gc, AlgAES, XTSMode(unit), 16, key)
	defer destroyAll(t, k, p)

	iv, err := XTSIV(5, 0)
	require.NoError(t, err)
	ct := crypt(t, k, Encrypt, iv, pt)
	assert.Equal(t, want, ct, "consecutive units continue with the next sequence number")
	assert.Equal(t, pt, crypt(t, k, Decrypt, iv, ct))

	// Starting inside a unit addresses the same ciphertext.
	mid, err := XTSIV(6, 2)
	require.NoError(t, err)
	assert.Equal(t, want[unit+32:], crypt(t, k, Encrypt, mid, pt[unit+32:]))
}

func TestXTSRejectsPartialBlocks(t *testing.T) {
	gc := newTestContext(t)
	p, k := blockKey(t, gc, AlgAES, XTSMode(512), 16, seq(32, 0))
	defer destroyAll(t, k, p)

	iv, err := XTSIV(0, 0)
	require.NoError(t, err)
	c, err := k.NewCipherContext(Encrypt, iv)
	require.NoError(t, err)
	_, err = c.UpdateAlloc(seq(20, 0))
	require.NoError(t, err)
	assert.ErrorIs(t, c.End(), ErrBadInputLength)
	require.NoError(t, c.Destroy())

	bad, err := XTSIV(0, 32)
	require.NoError(t, err)
	_, err = k.NewCipherContext(Encrypt, bad)
	assert.ErrorIs(t, err, ErrBadIV, "block 32 is past a 512 byte unit")
}

func TestMulAlpha(t *testing.T) {
	var tw [16]byte
	tw[15] = 0x80
	mulAlpha(&tw)
	var want [16]byte
	want[0] = 0x87
	assert.Equal(t, want, tw)

	tw = [16]byte{0x01}
	mulAlpha(&tw)
	assert.Equal(t, [16]byte{0x02}, tw)
}
