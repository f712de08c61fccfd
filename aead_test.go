// aead_test.go: GCM, CCM and CCM* tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aeadKey(t *testing.T, gc *GlobalContext, alg Algorithm, v Variant, material []byte) (*Params, *Key) {
	t.Helper()
	return importKey(t, func() (*Params, error) { return gc.CreateAEADParams(alg, v, nil) }, material)
}

func TestGCMVectors(t *testing.T) {
	gc := newTestContext(t)

	// Test case 4 of the GCM specification.
	p, k := aeadKey(t, gc, AlgAES, VariantGCM, unhex("feffe9928665731c6d6a8f9467308308"))
	defer destroyAll(t, k, p)

	opts := AEADOptions{Nonce: unhex("cafebabefacedbaddecaf888")}
	pt := unhex("d9313225f88406e5a55909c5aff5269a86a7a9531534f7da2e4c303d8a318a721c3c0c95956809532fcf0e2449a6b525b16aedf5aa0de657ba637b39")
	aad := unhex("feedfacedeadbeeffeedfacedeadbeefabaddad2")

	ct, tag, err := k.AuthenticateEncryptMsg(opts, aad, pt)
	require.NoError(t, err)
	assert.Equal(t, unhex("42831ec2217774244b7221b784d0d49ce3aa212f2c02a4e035c17e2329aca12e21d514b25466931c7d8f6a5aac84aa051ba30b396a0aac973d58e091"), ct)
	assert.Equal(t, unhex("5bc94fbc3221a5db94fae95ae7121a47"), tag)

	out, err := k.AuthenticateDecryptMsg(opts, aad, ct, tag)
	require.NoError(t, err)
	assert.Equal(t, pt, out)
}

func TestGCMAgainstStandardLibrary(t *testing.T) {
	gc := newTestContext(t)
	key := seq(32, 0x5A)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	p, k := aeadKey(t, gc, AlgAES, VariantGCM, key)
	defer destroyAll(t, k, p)

	pt := seq(77, 0)
	aad := seq(21, 0xC0)

	tests := []struct {
		name   string
		nonce  []byte
		macLen int
		ref    func() (cipher.AEAD, error)
	}{
		{"96-bit nonce", seq(12, 1), 16, func() (cipher.AEAD, error) { return cipher.NewGCM(block) }},
		{"64-bit nonce", seq(8, 1), 16, func() (cipher.AEAD, error) { return cipher.NewGCMWithNonceSize(block, 8) }},
		{"long nonce", seq(60, 1), 16, func() (cipher.AEAD, error) { return cipher.NewGCMWithNonceSize(block, 60) }},
		{"96-bit tag", seq(12, 1), 12, func() (cipher.AEAD, error) { return cipher.NewGCMWithTagSize(block, 12) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := tt.ref()
			require.NoError(t, err)
			sealed := ref.Seal(nil, tt.nonce, pt, aad)

			opts := AEADOptions{Nonce: tt.nonce, MACLen: tt.macLen}
			ct, tag, err := k.AuthenticateEncryptMsg(opts, aad, pt)
			require.NoError(t, err)
			assert.Equal(t, sealed[:len(pt)], ct)
			assert.Equal(t, sealed[len(pt):], tag)
		})
	}
}

func TestCCMRFC3610(t *testing.T) {
	gc := newTestContext(t)
	p, k := aeadKey(t, gc, AlgAES, VariantCCM, unhex("C0C1C2C3C4C5C6C7C8C9CACBCCCDCECF"))
	defer destroyAll(t, k, p)

	aad := unhex("0001020304050607")
	pt := unhex("08090A0B0C0D0E0F101112131415161718191A1B1C1D1E")
	opts := AEADOptions{
		Nonce:   unhex("00000003020100A0A1A2A3A4A5"),
		MACLen:  8,
		Lengths: &AEADLengths{AAD: int64(len(aad)), Payload: int64(len(pt))},
	}

	ct, tag, err := k.AuthenticateEncryptMsg(opts, aad, pt)
	require.NoError(t, err)
	assert.Equal(t, unhex("588C979A61C663D2F066D0C2C0F989806D5F6B61DAC384"), ct)
	assert.Equal(t, unhex("17E8D12CFDF926E0"), tag)

	out, err := k.AuthenticateDecryptMsg(opts, aad, ct, tag)
	require.NoError(t, err)
	assert.Equal(t, pt, out)
}

func TestAEADTamperDetection(t *testing.T) {
	gc := newTestContext(t)
	key := seq(16, 0x70)
	aad := []byte("header")
	pt := seq(40, 0x20)

	tests := []struct {
		name    string
		variant Variant
		nonce   int
		macLen  int
	}{
		{"GCM 16", VariantGCM, 12, 16},
		{"GCM 8", VariantGCM, 12, 8},
		{"GCM 4", VariantGCM, 12, 4},
		{"CCM 16", VariantCCM, 13, 16},
		{"CCM 8", VariantCCM, 12, 8},
		{"CCM 4", VariantCCM, 7, 4},
		{"CCM* 16", VariantCCMStar, 13, 16},
		{"CCM* 8", VariantCCMStar, 13, 8},
		{"CCM* 4", VariantCCMStar, 13, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, k := aeadKey(t, gc, AlgAES, tt.variant, key)
			defer destroyAll(t, k, p)

			opts := AEADOptions{
				Nonce:   seq(tt.nonce, 1),
				MACLen:  tt.macLen,
				Lengths: &AEADLengths{AAD: int64(len(aad)), Payload: int64(len(pt))},
			}
			ct, tag, err := k.AuthenticateEncryptMsg(opts, aad, pt)
			require.NoError(t, err)
			require.Len(t, tag, tt.macLen)

			out, err := k.AuthenticateDecryptMsg(opts, aad, ct, tag)
			require.NoError(t, err)
			assert.Equal(t, pt, out)

			badCT := append([]byte(nil), ct...)
			badCT[3] ^= 0x40
			out, err = k.AuthenticateDecryptMsg(opts, aad, badCT, tag)
			assert.ErrorIs(t, err, ErrMACInvalid)
			assert.Nil(t, out)

			badTag := append([]byte(nil), tag...)
			badTag[len(badTag)-1] ^= 0x01
			_, err = k.AuthenticateDecryptMsg(opts, aad, ct, badTag)
			assert.ErrorIs(t, err, ErrMACInvalid)

			badAAD := []byte("Header")
			_, err = k.AuthenticateDecryptMsg(opts, badAAD, ct, tag)
			assert.ErrorIs(t, err, ErrMACInvalid)

			assert.Equal(t, 2, gc.LiveResources(), "one-shot helpers release their contexts")
		})
	}
}

func TestCCMStarWithoutTag(t *testing.T) {
	gc := newTestContext(t)
	p, k := aeadKey(t, gc, AlgAES, VariantCCMStar, seq(16, 0))
	defer destroyAll(t, k, p)

	pt := seq(19, 0)
	opts := AEADOptions{Nonce: seq(13, 0), Lengths: &AEADLengths{Payload: int64(len(pt))}}
	ct, tag, err := k.AuthenticateEncryptMsg(opts, nil, pt)
	require.NoError(t, err)
	assert.Empty(t, tag)
	assert.NotEqual(t, pt, ct)

	out, err := k.AuthenticateDecryptMsg(opts, nil, ct, nil)
	require.NoError(t, err)
	assert.Equal(t, pt, out)
}

func TestAEADOptionValidation(t *testing.T) {
	gc := newTestContext(t)
	gp, gk := aeadKey(t, gc, AlgAES, VariantGCM, seq(16, 0))
	cp, ck := aeadKey(t, gc, AlgAES, VariantCCM, seq(16, 0))
	defer destroyAll(t, gk, gp, ck, cp)

	lengths := &AEADLengths{AAD: 0, Payload: 16}

	_, err := gk.NewAEADContext(Encrypt, AEADOptions{})
	assert.ErrorIs(t, err, ErrBadNonceLen)
	_, err = gk.NewAEADContext(Encrypt, AEADOptions{Nonce: seq(12, 0), MACLen: 3})
	assert.ErrorIs(t, err, ErrBadMACLen)
	_, err = gk.NewAEADContext(Encrypt, AEADOptions{Nonce: seq(12, 0), Lengths: &AEADLengths{AAD: -1}})
	assert.ErrorIs(t, err, ErrBadInputLength)

	_, err = ck.NewAEADContext(Encrypt, AEADOptions{Nonce: seq(13, 0)})
	assert.ErrorIs(t, err, ErrBadInputLength, "CCM needs lengths up front")
	_, err = ck.NewAEADContext(Encrypt, AEADOptions{Nonce: seq(6, 0), Lengths: lengths})
	assert.ErrorIs(t, err, ErrBadNonceLen)
	_, err = ck.NewAEADContext(Encrypt, AEADOptions{Nonce: seq(14, 0), Lengths: lengths})
	assert.ErrorIs(t, err, ErrBadNonceLen)
	_, err = ck.NewAEADContext(Encrypt, AEADOptions{Nonce: seq(13, 0), MACLen: 5, Lengths: lengths})
	assert.ErrorIs(t, err, ErrBadMACLen)
	_, err = ck.NewAEADContext(Encrypt, AEADOptions{Nonce: seq(13, 0), MACLen: 18, Lengths: lengths})
	assert.ErrorIs(t, err, ErrBadMACLen)

	assert.Equal(t, 4, gc.LiveResources(), "failed creations leave nothing behind")
}

func TestAEADContextStateMachine(t *testing.T) {
	gc := newTestContext(t)
	p, k := aeadKey(t, gc, AlgAES, VariantGCM, seq(16, 0))
	defer destroyAll(t, k, p)

	opts := AEADOptions{Nonce: seq(12, 0), Lengths: &AEADLengths{AAD: 4, Payload: 32}}
	c, err := k.NewAEADContext(Encrypt, opts)
	require.NoError(t, err)
	assert.Equal(t, 16, c.MACLen())

	require.NoError(t, c.Authenticate([]byte("ab")))
	assert.ErrorIs(t, c.Authenticate([]byte("cde")), ErrBadInputLength, "more AAD than declared")

	_, err = c.Encrypt(make([]byte, 16), seq(16, 0))
	assert.ErrorIs(t, err, ErrBadInputLength, "AAD shorter than declared")

	require.NoError(t, c.Authenticate([]byte("cd")))
	_, err = c.Decrypt(make([]byte, 16), seq(16, 0))
	assert.ErrorIs(t, err, ErrBadState, "direction is fixed at creation")

	n, err := c.Encrypt(nil, seq(16, 0))
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	_, err = c.Encrypt(make([]byte, 16), seq(16, 0))
	require.NoError(t, err)
	assert.ErrorIs(t, c.Authenticate([]byte("x")), ErrBadState, "AAD after payload")

	_, err = c.EncryptEnd(make([]byte, 16))
	assert.ErrorIs(t, err, ErrBadInputLength, "payload shorter than declared")

	_, err = c.Encrypt(make([]byte, 16), seq(16, 16))
	require.NoError(t, err)
	_, err = c.Encrypt(make([]byte, 1), seq(1, 0))
	assert.ErrorIs(t, err, ErrBadInputLength, "payload longer than declared")

	n, err = c.EncryptEnd(nil)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	tag := make([]byte, 16)
	_, err = c.EncryptEnd(tag)
	require.NoError(t, err)

	_, err = c.Encrypt(make([]byte, 1), seq(1, 0))
	assert.ErrorIs(t, err, ErrBadState)
	require.NoError(t, c.Destroy())
	assert.ErrorIs(t, c.Destroy(), ErrBadContext)
}

func TestAEADStreamingMatchesOneShot(t *testing.T) {
	gc := newTestContext(t)
	p, k := aeadKey(t, gc, AlgTwofish, VariantGCM, seq(32, 3))
	defer destroyAll(t, k, p)

	opts := AEADOptions{Nonce: seq(12, 9)}
	aad, pt := seq(33, 0xA0), seq(100, 0)
	wantCT, wantTag, err := k.AuthenticateEncryptMsg(opts, aad, pt)
	require.NoError(t, err)

	c, err := k.NewAEADContext(Encrypt, opts)
	require.NoError(t, err)
	require.NoError(t, c.Authenticate(aad[:7]))
	require.NoError(t, c.Authenticate(aad[7:]))
	var ct []byte
	for _, r := range [][2]int{{0, 1}, {1, 17}, {17, 50}, {50, 100}} {
		chunk := make([]byte, r[1]-r[0])
		_, err := c.Encrypt(chunk, pt[r[0]:r[1]])
		require.NoError(t, err)
		ct = append(ct, chunk...)
	}
	tag := make([]byte, c.MACLen())
	_, err = c.EncryptEnd(tag)
	require.NoError(t, err)
	require.NoError(t, c.Destroy())

	assert.Equal(t, wantCT, ct)
	assert.Equal(t, wantTag, tag)

	d, err := k.NewAEADContext(Decrypt, opts)
	require.NoError(t, err)
	defer destroyAll(t, d)
	require.NoError(t, d.Authenticate(aad))
	out := make([]byte, len(ct))
	_, err = d.Decrypt(out, ct)
	require.NoError(t, err)
	assert.ErrorIs(t, d.DecryptEnd(tag[:8]), ErrBadMACLen)
	require.NoError(t, d.DecryptEnd(tag))
	assert.Equal(t, pt, out)
}

func TestAEADParamsRequireWideBlock(t *testing.T) {
	gc := newTestContext(t)
	require.NoError(t, gc.Register(NewAEADProvider(AlgDES, VariantGCM)))

	_, err := gc.CreateAEADParams(AlgDES, VariantGCM, nil)
	assert.ErrorIs(t, err, ErrBadBlockLen)

	_, err = gc.CreateAEADParams(AlgBlowfish, VariantCCM, nil)
	assert.ErrorIs(t, err, ErrNoProvider)
}
