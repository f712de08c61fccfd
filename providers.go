// providers.go: Built-in software providers for symmetric primitives.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"math/bits"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
	"golang.org/x/crypto/twofish"
)

// block cipher mode sets
var (
	allModes = []ModeKind{KindECB, KindCBC, KindCFB128, KindOFB128, KindKeyWrap, KindCFB8, KindCTR, KindXTS}
	// 64-bit block ciphers cannot run key wrap or XTS.
	narrowModes = []ModeKind{KindECB, KindCBC, KindCFB128, KindOFB128, KindCFB8, KindCTR}
)

type blockProvider struct {
	alg       Algorithm
	name      string
	blockSize int
	keyBits   func(bits int) bool
	modes     []ModeKind
	newBlock  func(key []byte) (cipher.Block, error)
}

func (p *blockProvider) Capability() Capability { return BlockCipherCapability(p.alg) }
func (p *blockProvider) Name() string           { return p.name }
func (p *blockProvider) BlockSize() int         { return p.blockSize }
func (p *blockProvider) ValidKeyBits(n int) bool {
	return n > 0 && n%8 == 0 && p.keyBits(n)
}

func (p *blockProvider) SupportsMode(kind ModeKind) bool {
	for _, m := range p.modes {
		if m == kind {
			return true
		}
	}
	return false
}

func (p *blockProvider) NewBlock(key []byte) (cipher.Block, error) { return p.newBlock(key) }

func oneOf(sizes ...int) func(int) bool {
	return func(n int) bool {
		for _, s := range sizes {
			if n == s {
				return true
			}
		}
		return false
	}
}

// AESProvider returns the AES block cipher (128, 192 and 256-bit keys).
func AESProvider() BlockCipherProvider {
	return &blockProvider{
		alg: AlgAES, name: "software-aes", blockSize: aes.BlockSize,
		keyBits: oneOf(128, 192, 256), modes: allModes, newBlock: aes.NewCipher,
	}
}

// TwofishProvider returns Twofish (128, 192 and 256-bit keys).
func TwofishProvider() BlockCipherProvider {
	return &blockProvider{
		alg: AlgTwofish, name: "software-twofish", blockSize: twofish.BlockSize,
		keyBits: oneOf(128, 192, 256), modes: allModes,
		newBlock: func(key []byte) (cipher.Block, error) { return twofish.NewCipher(key) },
	}
}

// BlowfishProvider returns Blowfish (32 to 448-bit keys).
func BlowfishProvider() BlockCipherProvider {
	return &blockProvider{
		alg: AlgBlowfish, name: "software-blowfish", blockSize: blowfish.BlockSize,
		keyBits: func(n int) bool { return n >= 32 && n <= 448 }, modes: narrowModes,
		newBlock: func(key []byte) (cipher.Block, error) { return blowfish.NewCipher(key) },
	}
}

// CAST5Provider returns CAST5 with 128-bit keys.
func CAST5Provider() BlockCipherProvider {
	return &blockProvider{
		alg: AlgCAST5, name: "software-cast5", blockSize: cast5.BlockSize,
		keyBits: oneOf(128), modes: narrowModes,
		newBlock: func(key []byte) (cipher.Block, error) { return cast5.NewCipher(key) },
	}
}

// desProvider adds parity and weak-key handling to DES and 3DES.
type desProvider struct {
	blockProvider
}

// DESProvider returns single DES with 64-bit keys (56 effective bits).
func DESProvider() BlockCipherProvider {
	return &desProvider{blockProvider{
		alg: AlgDES, name: "software-des", blockSize: des.BlockSize,
		keyBits: oneOf(64), modes: narrowModes, newBlock: des.NewCipher,
	}}
}

// TripleDESProvider returns EDE triple DES with two-key (128-bit) or
// three-key (192-bit) material.
func TripleDESProvider() BlockCipherProvider {
	return &desProvider{blockProvider{
		alg: AlgTripleDES, name: "software-3des", blockSize: des.BlockSize,
		keyBits: oneOf(128, 192), modes: narrowModes,
		newBlock: func(key []byte) (cipher.Block, error) {
			if len(key) == 16 {
				k := make([]byte, 24)
				copy(k, key)
				copy(k[16:], key[:8])
				defer Zeroize(k)
				return des.NewTripleDESCipher(k)
			}
			return des.NewTripleDESCipher(key)
		},
	}}
}

// desWeakKeys lists the weak and semi-weak DES keys with parity bits
// cleared.
var desWeakKeys = func() [][8]byte {
	raw := []uint64{
		0x0101010101010101, 0xFEFEFEFEFEFEFEFE, 0xE0E0E0E0F1F1F1F1, 0x1F1F1F1F0E0E0E0E,
		0x01FE01FE01FE01FE, 0xFE01FE01FE01FE01, 0x1FE01FE00EF10EF1, 0xE01FE01FF10EF10E,
		0x01E001E001F101F1, 0xE001E001F101F101, 0x1FFE1FFE0EFE0EFE, 0xFE1FFE1FFE0EFE0E,
		0x011F011F010E010E, 0x1F011F010E010E01, 0xE0FEE0FEF1FEF1FE, 0xFEE0FEE0FEF1FEF1,
	}
	out := make([][8]byte, len(raw))
	for i, k := range raw {
		for j := 0; j < 8; j++ {
			out[i][j] = byte(k>>(56-8*j)) & 0xFE
		}
	}
	return out
}()

func isDESWeak(k []byte) bool {
	var masked [8]byte
	for i := range masked {
		masked[i] = k[i] & 0xFE
	}
	for _, w := range desWeakKeys {
		if masked == w {
			return true
		}
	}
	return false
}

func oddParity(b byte) bool { return bits.OnesCount8(b)%2 == 1 }

func (p *desProvider) ApplyKeyPolicy(material []byte, parity ParityPolicy, weak WeakKeyPolicy) error {
	switch parity {
	case ParityFix:
		for i, b := range material {
			if !oddParity(b) {
				material[i] = b ^ 1
			}
		}
	case ParityCheck:
		for _, b := range material {
			if !oddParity(b) {
				return newError(ErrBadParity, ErrCodeBadParity, "key byte does not have odd parity")
			}
		}
	}
	if weak == WeakKeysRejected {
		for off := 0; off+8 <= len(material); off += 8 {
			if isDESWeak(material[off : off+8]) {
				return newError(ErrWeakKey, ErrCodeWeakKey, fmt.Sprintf("%s key contains a weak DES subkey", p.alg))
			}
		}
	}
	return nil
}

func isWeakKey(err error) bool { return errors.Is(err, ErrWeakKey) }

type streamProvider struct {
	alg       Algorithm
	name      string
	nonceSize int
	keyBits   func(int) bool
	newStream func(key, nonce []byte) (cipher.Stream, error)
}

func (p *streamProvider) Capability() Capability { return StreamCipherCapability(p.alg) }
func (p *streamProvider) Name() string           { return p.name }
func (p *streamProvider) NonceSize() int         { return p.nonceSize }
func (p *streamProvider) ValidKeyBits(n int) bool {
	return n > 0 && n%8 == 0 && p.keyBits(n)
}

func (p *streamProvider) NewStream(key, nonce []byte) (cipher.Stream, error) {
	return p.newStream(key, nonce)
}

// RC4Provider returns RC4 with 40 to 2048-bit keys and no IV.
func RC4Provider() StreamCipherProvider {
	return &streamProvider{
		alg: AlgRC4, name: "software-rc4",
		keyBits: func(n int) bool { return n >= 40 && n <= 2048 },
		newStream: func(key, _ []byte) (cipher.Stream, error) {
			return rc4.NewCipher(key)
		},
	}
}

// ChaCha20Provider returns ChaCha20 (RFC 8439) with a 96-bit nonce.
func ChaCha20Provider() StreamCipherProvider {
	return &streamProvider{
		alg: AlgChaCha20, name: "software-chacha20", nonceSize: chacha20.NonceSize,
		keyBits: oneOf(256),
		newStream: func(key, nonce []byte) (cipher.Stream, error) {
			return chacha20.NewUnauthenticatedCipher(key, nonce)
		},
	}
}

type digestProvider struct {
	alg     Algorithm
	newHash func() hash.Hash
	size    int
	block   int
}

func (p *digestProvider) Capability() Capability { return DigestCapability(p.alg) }
func (p *digestProvider) Name() string           { return "software-" + p.alg.String() }
func (p *digestProvider) Size() int              { return p.size }
func (p *digestProvider) BlockSize() int         { return p.block }
func (p *digestProvider) New() hash.Hash         { return p.newHash() }

var digestConstructors = map[Algorithm]func() hash.Hash{
	AlgSHA1:       sha1.New,
	AlgSHA224:     sha256.New224,
	AlgSHA256:     sha256.New,
	AlgSHA384:     sha512.New384,
	AlgSHA512:     sha512.New,
	AlgSHA512_224: sha512.New512_224,
	AlgSHA512_256: sha512.New512_256,
	AlgMD5:        md5.New,
	AlgMD4:        md4.New,
	AlgRIPEMD160:  ripemd160.New,
	AlgSHA3_224:   sha3.New224,
	AlgSHA3_256:   sha3.New256,
	AlgSHA3_384:   sha3.New384,
	AlgSHA3_512:   sha3.New512,
}

// digestAlgorithms is the registration order of built-in digests.
var digestAlgorithms = []Algorithm{
	AlgSHA1, AlgSHA224, AlgSHA256, AlgSHA384, AlgSHA512, AlgSHA512_224, AlgSHA512_256,
	AlgMD5, AlgMD4, AlgRIPEMD160, AlgSHA3_224, AlgSHA3_256, AlgSHA3_384, AlgSHA3_512,
}

// NewDigestProvider returns the built-in provider for a digest algorithm.
func NewDigestProvider(alg Algorithm) (DigestProvider, error) {
	ctor, ok := digestConstructors[alg]
	if !ok {
		return nil, newError(ErrNotSupported, ErrCodeNotSupported, alg.String()+" is not a built-in digest")
	}
	h := ctor()
	return &digestProvider{alg: alg, newHash: ctor, size: h.Size(), block: h.BlockSize()}, nil
}

type hmacProvider struct {
	digest DigestProvider
}

// NewHMACProvider returns HMAC over a digest provider.
func NewHMACProvider(d DigestProvider) MACProvider { return &hmacProvider{digest: d} }

func (p *hmacProvider) Capability() Capability {
	return MACCapability(p.digest.Capability().Algorithm, VariantHMAC)
}
func (p *hmacProvider) Name() string            { return "hmac-" + p.digest.Name() }
func (p *hmacProvider) TagSize() int            { return p.digest.Size() }
func (p *hmacProvider) ValidKeyBits(n int) bool { return n > 0 && n%8 == 0 }

func (p *hmacProvider) NewMAC(key []byte) (MACState, error) {
	return newHMACState(p.digest.New, p.digest.BlockSize(), key), nil
}

type cmacProvider struct {
	block BlockCipherProvider
}

// NewCMACProvider returns CMAC over a 64 or 128-bit block cipher provider.
func NewCMACProvider(b BlockCipherProvider) MACProvider { return &cmacProvider{block: b} }

func (p *cmacProvider) Capability() Capability {
	return MACCapability(p.block.Capability().Algorithm, VariantCMAC)
}
func (p *cmacProvider) Name() string            { return "cmac-" + p.block.Name() }
func (p *cmacProvider) TagSize() int            { return p.block.BlockSize() }
func (p *cmacProvider) ValidKeyBits(n int) bool { return p.block.ValidKeyBits(n) }

func (p *cmacProvider) NewMAC(key []byte) (MACState, error) {
	b, err := p.block.NewBlock(key)
	if err != nil {
		return nil, err
	}
	return newCMACState(b)
}

type aeadProvider struct {
	alg          Algorithm
	construction Variant
}

// NewAEADProvider enables an AEAD construction (VariantGCM, VariantCCM or
// VariantCCMStar) over the block cipher alg, which must also be registered.
func NewAEADProvider(alg Algorithm, construction Variant) AEADProvider {
	return &aeadProvider{alg: alg, construction: construction}
}

func (p *aeadProvider) Capability() Capability { return AEADCapability(p.alg, p.construction) }
func (p *aeadProvider) Name() string           { return "core-" + p.construction.String() }
func (p *aeadProvider) Construction() Variant  { return p.construction }

// symmetricProviders returns every built-in symmetric provider.
func symmetricProviders() []Provider {
	aesP := AESProvider()
	tdes := TripleDESProvider()
	twofishP := TwofishProvider()
	out := []Provider{
		aesP, DESProvider(), tdes, twofishP, BlowfishProvider(), CAST5Provider(),
		RC4Provider(), ChaCha20Provider(),
		NewAEADProvider(AlgAES, VariantGCM), NewAEADProvider(AlgAES, VariantCCM), NewAEADProvider(AlgAES, VariantCCMStar),
		NewAEADProvider(AlgTwofish, VariantGCM), NewAEADProvider(AlgTwofish, VariantCCM),
		NewCMACProvider(aesP), NewCMACProvider(tdes), NewCMACProvider(twofishP),
	}
	for _, alg := range digestAlgorithms {
		d, _ := NewDigestProvider(alg)
		out = append(out, d, NewHMACProvider(d))
	}
	return out
}
