// digest_test.go: Hash provider and digest context tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func TestDigestAlgorithms(t *testing.T) {
	gc := newTestContext(t)
	msg := []byte("abc")

	sum := func(b [32]byte) []byte { return b[:] }
	tests := []struct {
		alg  Algorithm
		want []byte
	}{
		{AlgSHA1, func() []byte { s := sha1.Sum(msg); return s[:] }()},
		{AlgSHA224, func() []byte { s := sha256.Sum224(msg); return s[:] }()},
		{AlgSHA256, sum(sha256.Sum256(msg))},
		{AlgSHA384, func() []byte { s := sha512.Sum384(msg); return s[:] }()},
		{AlgSHA512, func() []byte { s := sha512.Sum512(msg); return s[:] }()},
		{AlgSHA512_224, func() []byte { s := sha512.Sum512_224(msg); return s[:] }()},
		{AlgSHA512_256, sum(sha512.Sum512_256(msg))},
		{AlgMD5, func() []byte { s := md5.Sum(msg); return s[:] }()},
		{AlgMD4, unhex("a448017aaf21d8525fc10ae87aa6729d")},
		{AlgRIPEMD160, unhex("8eb208f7e05d987a9b044a8e98c6b087f15a0bfc")},
		{AlgSHA3_256, sum(sha3.Sum256(msg))},
		{AlgSHA3_512, func() []byte { s := sha3.Sum512(msg); return s[:] }()},
	}
	for _, tt := range tests {
		t.Run(tt.alg.String(), func(t *testing.T) {
			p, err := gc.CreateDigestParams(tt.alg, nil)
			require.NoError(t, err)
			defer destroyAll(t, p)

			got, err := p.Digest(msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, 0, gc.LiveResources())
}

func TestDigestContextIncremental(t *testing.T) {
	gc := newTestContext(t)
	p, err := gc.CreateDigestParams(AlgSHA256, nil)
	require.NoError(t, err)

	d, err := p.NewDigestContext()
	require.NoError(t, err)
	assert.Equal(t, 32, d.Size())

	require.NoError(t, d.Update([]byte("a")))
	mid, err := allocOut(d.DigestGet)
	require.NoError(t, err)
	want := sha256.Sum256([]byte("a"))
	assert.Equal(t, want[:], mid)

	require.NoError(t, d.Update([]byte("bc")))

	n, err := d.End(nil)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
	_, err = d.End(make([]byte, 31))
	assert.ErrorIs(t, err, ErrBufferTooSmall)

	out := make([]byte, 32)
	_, err = d.End(out)
	require.NoError(t, err)
	want = sha256.Sum256([]byte("abc"))
	assert.Equal(t, want[:], out)

	assert.ErrorIs(t, d.Update([]byte("x")), ErrBadState)

	// An ended context no longer pins its parameter set.
	require.NoError(t, p.Destroy())
	_, err = p.NewDigestContext()
	assert.ErrorIs(t, err, ErrBadParams)
	assert.ErrorIs(t, d.Reset(), ErrBadParams)
	require.NoError(t, d.Destroy())
	assert.Equal(t, 0, gc.LiveResources())
}

func TestDigestDuplicate(t *testing.T) {
	gc := newTestContext(t)
	p, err := gc.CreateDigestParams(AlgSHA512, nil)
	require.NoError(t, err)
	defer destroyAll(t, p)

	d, err := p.NewDigestContext()
	require.NoError(t, err)
	require.NoError(t, d.Update([]byte("ab")))

	dup, err := d.Duplicate()
	require.NoError(t, err)
	require.NoError(t, d.Update([]byte("c")))
	require.NoError(t, dup.Update([]byte("c")))

	a, err := allocOut(d.End)
	require.NoError(t, err)
	b, err := allocOut(dup.End)
	require.NoError(t, err)
	want := sha512.Sum512([]byte("abc"))
	assert.Equal(t, want[:], a)
	assert.Equal(t, a, b)

	destroyAll(t, d, dup)
}

func TestDigestDuplicateUnsupported(t *testing.T) {
	gc := newTestContext(t)
	p, err := gc.CreateDigestParams(AlgMD4, nil)
	require.NoError(t, err)
	defer destroyAll(t, p)

	d, err := p.NewDigestContext()
	require.NoError(t, err)
	defer destroyAll(t, d)

	_, err = d.Duplicate()
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestDigestReset(t *testing.T) {
	gc := newTestContext(t)
	p, err := gc.CreateDigestParams(AlgSHA256, nil)
	require.NoError(t, err)
	defer destroyAll(t, p)

	d, err := p.NewDigestContext()
	require.NoError(t, err)
	require.NoError(t, d.Update([]byte("garbage")))
	_, err = allocOut(d.End)
	require.NoError(t, err)

	require.NoError(t, d.Reset())
	require.NoError(t, d.Update([]byte("abc")))
	out, err := allocOut(d.End)
	require.NoError(t, err)
	want := sha256.Sum256([]byte("abc"))
	assert.Equal(t, want[:], out)
	require.NoError(t, d.Destroy())
	assert.ErrorIs(t, d.Destroy(), ErrBadContext)
}

func TestDigestOnWrongClass(t *testing.T) {
	gc := newTestContext(t)
	p, err := gc.CreateMACParams(AlgSHA256, VariantHMAC, nil)
	require.NoError(t, err)
	defer destroyAll(t, p)

	_, err = p.Digest([]byte("abc"))
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestNewDigestProviderUnknown(t *testing.T) {
	_, err := NewDigestProvider(AlgAES)
	assert.ErrorIs(t, err, ErrNotSupported)
}
