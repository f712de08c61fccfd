// modes_test.go: Block cipher mode engines and cipher context tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rc4"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20"
)

// cfb8Reference is CFB with an 8-bit feedback segment (SP 800-38A 6.3).
func cfb8Reference(b cipher.Block, iv, src []byte, decrypt bool) []byte {
	reg := append([]byte(nil), iv...)
	ks := make([]byte, b.BlockSize())
	out := make([]byte, len(src))
	for i, in := range src {
		b.Encrypt(ks, reg)
		out[i] = in ^ ks[0]
		fb := out[i]
		if decrypt {
			fb = in
		}
		copy(reg, reg[1:])
		reg[len(reg)-1] = fb
	}
	return out
}

func TestModesAgainstStandardLibrary(t *testing.T) {
	gc := newTestContext(t)
	key := seq(16, 0x30)
	iv := seq(16, 0xA0)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	aligned := seq(64, 0x01)
	ragged := seq(61, 0x01)

	tests := []struct {
		name string
		mode Mode
		iv   []byte
		pt   []byte
		want func() []byte
	}{
		{"ECB", ModeECB, nil, aligned, func() []byte {
			out := make([]byte, len(aligned))
			for i := 0; i < len(aligned); i += 16 {
				block.Encrypt(out[i:i+16], aligned[i:i+16])
			}
			return out
		}},
		{"CBC", ModeCBC, iv, aligned, func() []byte {
			out := make([]byte, len(aligned))
			cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, aligned)
			return out
		}},
		{"CFB128", ModeCFB128, iv, ragged, func() []byte {
			out := make([]byte, len(ragged))
			cipher.NewCFBEncrypter(block, iv).XORKeyStream(out, ragged)
			return out
		}},
		{"CFB8", ModeCFB8, iv, ragged, func() []byte {
			return cfb8Reference(block, iv, ragged, false)
		}},
		{"OFB128", ModeOFB128, iv, ragged, func() []byte {
			out := make([]byte, len(ragged))
			cipher.NewOFB(block, iv).XORKeyStream(out, ragged)
			return out
		}},
		{"CTR", CTRMode(0), iv, ragged, func() []byte {
			out := make([]byte, len(ragged))
			cipher.NewCTR(block, iv).XORKeyStream(out, ragged)
			return out
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, k := blockKey(t, gc, AlgAES, tt.mode, 16, key)
			defer destroyAll(t, k, p)

			ct := crypt(t, k, Encrypt, tt.iv, tt.pt)
			assert.Equal(t, tt.want(), ct)
			assert.Equal(t, tt.pt, crypt(t, k, Decrypt, tt.iv, ct))
		})
	}
}

func TestChunkingInvariance(t *testing.T) {
	gc := newTestContext(t)
	key := seq(32, 0x55)
	pt := seq(64, 0x10)
	chunks := []int{1, 15, 16, 17, 5, 10}

	for _, mode := range []Mode{ModeECB, ModeCBC, ModeCFB128, ModeCFB8, ModeOFB128, CTRMode(32), XTSMode(32)} {
		t.Run(mode.String(), func(t *testing.T) {
			material := key
			if mode.Kind() == KindXTS {
				material = seq(64, 0x55)
			}
			p, k := blockKey(t, gc, AlgAES, mode, 16, material)
			defer destroyAll(t, k, p)
			iv := make([]byte, p.IVLen())
			for i := 0; i < 8 && i < len(iv); i++ {
				iv[i] = byte(i + 1)
			}

			want := crypt(t, k, Encrypt, iv, pt)

			c, err := k.NewCipherContext(Encrypt, iv)
			require.NoError(t, err)
			var got []byte
			off := 0
			for _, n := range chunks {
				out, err := c.UpdateAlloc(pt[off : off+n])
				require.NoError(t, err)
				got = append(got, out...)
				off += n
			}
			assert.Equal(t, 0, c.Pending())
			require.NoError(t, c.End())
			require.NoError(t, c.Destroy())
			assert.Equal(t, want, got)
		})
	}
}

func TestCTRCounterWidth(t *testing.T) {
	gc := newTestContext(t)
	key := seq(16, 0)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	t.Run("8-bit counter wraps in the leading byte", func(t *testing.T) {
		iv := make([]byte, 16)
		for i := range iv {
			iv[i] = 0xAB
		}
		iv[0] = 0xFF

		p, k := blockKey(t, gc, AlgAES, CTRMode(8), 16, key)
		defer destroyAll(t, k, p)
		ks := crypt(t, k, Encrypt, iv, make([]byte, 48))

		want := make([]byte, 48)
		ctr := append([]byte(nil), iv...)
		for i, first := range []byte{0xFF, 0x00, 0x01} {
			ctr[0] = first
			block.Encrypt(want[i*16:(i+1)*16], ctr)
		}
		assert.Equal(t, want, ks)
	})

	t.Run("32-bit counter leaves trailing bytes fixed", func(t *testing.T) {
		iv := seq(16, 0x10)
		p, k := blockKey(t, gc, AlgAES, CTRMode(32), 16, key)
		defer destroyAll(t, k, p)
		ks := crypt(t, k, Encrypt, iv, make([]byte, 32))

		second := append([]byte(nil), iv...)
		second[3]++
		want := make([]byte, 32)
		block.Encrypt(want[:16], iv)
		block.Encrypt(want[16:], second)
		assert.Equal(t, want, ks)
	})

	t.Run("carry stays inside the field", func(t *testing.T) {
		ctr := []byte{0x00, 0xFF, 0xFF, 0x42}
		incrementLeadingCounter(ctr, 3)
		assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x42}, ctr)
		ctr = []byte{0xFF, 0xFF, 0x42}
		incrementLeadingCounter(ctr, 2)
		assert.Equal(t, []byte{0x00, 0x00, 0x42}, ctr)
	})
}

func TestCipherContextSizing(t *testing.T) {
	gc := newTestContext(t)
	p, k := blockKey(t, gc, AlgAES, ModeCBC, 16, make([]byte, 16))
	defer destroyAll(t, k, p)

	c, err := k.NewCipherContext(Encrypt, make([]byte, 16))
	require.NoError(t, err)
	src := make([]byte, 20)

	n, err := c.Update(nil, src)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, 0, c.Pending(), "a size query consumes nothing")

	n, err = c.Update(make([]byte, 8), src)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
	assert.Equal(t, 16, n)
	assert.Equal(t, 0, c.Pending())

	out := make([]byte, 16)
	n, err = c.Update(out, src)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, 4, c.Pending())
	assert.Equal(t, unhex("66e94bd4ef8a2c3b884cfa59ca342b2e"), out)

	assert.ErrorIs(t, c.End(), ErrBadInputLength)
	require.NoError(t, c.Destroy())
}

func TestCipherContextStates(t *testing.T) {
	gc := newTestContext(t)
	p, k := blockKey(t, gc, AlgAES, ModeCBC, 16, seq(16, 9))
	defer destroyAll(t, k, p)

	iv := seq(16, 3)
	_, err := k.NewCipherContext(Encrypt, iv[:8])
	assert.ErrorIs(t, err, ErrBadIV)

	c, err := k.NewCipherContext(Encrypt, iv)
	require.NoError(t, err)
	first, err := c.UpdateAlloc(seq(32, 0))
	require.NoError(t, err)
	require.NoError(t, c.End())

	_, err = c.Update(nil, seq(16, 0))
	assert.ErrorIs(t, err, ErrBadState)
	assert.ErrorIs(t, c.End(), ErrBadState)

	assert.ErrorIs(t, c.Reset(iv[:4]), ErrBadIV)
	require.NoError(t, c.Reset(iv))
	again, err := c.UpdateAlloc(seq(32, 0))
	require.NoError(t, err)
	assert.Equal(t, first, again, "reset restarts the chain from the iv")

	require.NoError(t, c.Destroy())
	assert.ErrorIs(t, c.Destroy(), ErrBadContext)
	assert.ErrorIs(t, c.Reset(iv), ErrBadContext)

	var nilCtx *CipherContext
	assert.NoError(t, nilCtx.Destroy())
	_, err = nilCtx.Update(nil, nil)
	assert.ErrorIs(t, err, ErrNullContext)
}

func TestCipherContextInPlace(t *testing.T) {
	gc := newTestContext(t)
	p, k := blockKey(t, gc, AlgAES, ModeCBC, 16, seq(16, 9))
	defer destroyAll(t, k, p)

	pt := seq(48, 7)
	want := crypt(t, k, Encrypt, make([]byte, 16), pt)

	buf := append([]byte(nil), pt...)
	c, err := k.NewCipherContext(Encrypt, make([]byte, 16))
	require.NoError(t, err)
	n, err := c.Update(buf, buf)
	require.NoError(t, err)
	assert.Equal(t, 48, n)
	require.NoError(t, c.End())
	require.NoError(t, c.Destroy())
	assert.Equal(t, want, buf)
}

func TestKeyWrapRejectsCipherContext(t *testing.T) {
	gc := newTestContext(t)
	p, k := blockKey(t, gc, AlgAES, ModeKeyWrap, 16, make([]byte, 16))
	defer destroyAll(t, k, p)

	_, err := k.NewCipherContext(Encrypt, nil)
	assert.ErrorIs(t, err, ErrBadMode)
}

func TestStreamCiphers(t *testing.T) {
	gc := newTestContext(t)
	pt := seq(100, 0x61)

	t.Run("ChaCha20", func(t *testing.T) {
		key, nonce := seq(32, 1), seq(12, 2)
		p, k := importKey(t, func() (*Params, error) { return gc.CreateStreamCipherParams(AlgChaCha20, nil) }, key)
		defer destroyAll(t, k, p)

		ref, err := chacha20.NewUnauthenticatedCipher(key, nonce)
		require.NoError(t, err)
		want := make([]byte, len(pt))
		ref.XORKeyStream(want, pt)

		ct := crypt(t, k, Encrypt, nonce, pt)
		assert.Equal(t, want, ct)
		assert.Equal(t, pt, crypt(t, k, Decrypt, nonce, ct))
	})

	t.Run("RC4", func(t *testing.T) {
		key := seq(16, 3)
		p, k := importKey(t, func() (*Params, error) { return gc.CreateStreamCipherParams(AlgRC4, nil) }, key)
		defer destroyAll(t, k, p)

		ref, err := rc4.NewCipher(key)
		require.NoError(t, err)
		want := make([]byte, len(pt))
		ref.XORKeyStream(want, pt)

		assert.Equal(t, want, crypt(t, k, Encrypt, nil, pt))
	})

	t.Run("ChaCha20 key length", func(t *testing.T) {
		p, err := gc.CreateStreamCipherParams(AlgChaCha20, nil)
		require.NoError(t, err)
		defer destroyAll(t, p)
		_, err = p.ImportKey(128, make([]byte, 16), nil)
		assert.ErrorIs(t, err, ErrBadKeyLen)
	})
}

func TestOtherBlockCiphersRoundTrip(t *testing.T) {
	gc := newTestContext(t)
	tests := []struct {
		alg   Algorithm
		block int
		key   int
	}{
		{AlgDES, 8, 8},
		{AlgTripleDES, 8, 24},
		{AlgTwofish, 16, 32},
		{AlgBlowfish, 8, 16},
		{AlgCAST5, 8, 16},
	}
	for _, tt := range tests {
		t.Run(tt.alg.String(), func(t *testing.T) {
			p, k := blockKey(t, gc, tt.alg, ModeCBC, tt.block, seq(tt.key, 0x13))
			defer destroyAll(t, k, p)

			iv := seq(tt.block, 0x77)
			pt := seq(tt.block*5, 0)
			ct := crypt(t, k, Encrypt, iv, pt)
			assert.NotEqual(t, pt, ct)
			assert.Equal(t, pt, crypt(t, k, Decrypt, iv, ct))
		})
	}
}
