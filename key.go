// key.go: Keys bound to a parameter set.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto"
	"crypto/cipher"
	"fmt"
	"time"
)

// Usage restricts what a key may be used for.
type Usage uint8

const (
	// UsageEncryptDecrypt is the default for symmetric keys.
	UsageEncryptDecrypt Usage = iota
	UsageEncryptOnly
	UsageDecryptOnly
	// UsagePrivate and UsagePublic mark the halves of an asymmetric key pair.
	UsagePrivate
	UsagePublic
)

func (u Usage) String() string {
	switch u {
	case UsageEncryptDecrypt:
		return "encrypt/decrypt"
	case UsageEncryptOnly:
		return "encrypt-only"
	case UsageDecryptOnly:
		return "decrypt-only"
	case UsagePrivate:
		return "private"
	case UsagePublic:
		return "public"
	}
	return fmt.Sprintf("usage(%d)", uint8(u))
}

// ParityPolicy controls how DES-family parity bits are treated on import.
type ParityPolicy uint8

const (
	ParityIgnore ParityPolicy = iota
	// ParityFix sets each byte to odd parity.
	ParityFix
	// ParityCheck rejects material whose bytes do not have odd parity.
	ParityCheck
)

// WeakKeyPolicy controls whether known weak keys are accepted.
type WeakKeyPolicy uint8

const (
	WeakKeysAllowed WeakKeyPolicy = iota
	WeakKeysRejected
)

// KeyOptions are the optional knobs of key import and generation.
type KeyOptions struct {
	Usage    Usage
	Parity   ParityPolicy
	WeakKeys WeakKeyPolicy
}

// Direction selects encryption or decryption for an operation context.
type Direction uint8

const (
	Encrypt Direction = iota + 1
	Decrypt
)

func (d Direction) String() string {
	switch d {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// Key is key material bound to the parameter set it was created from. The
// key schedule of block cipher keys is computed once and reused by every
// context created from the key.
type Key struct {
	params *Params
	h      handle
	usage  Usage
	bits   int

	// material is allocator-backed and wiped on Destroy.
	material []byte
	block    cipher.Block
	// tweak is the second XTS key schedule.
	tweak cipher.Block

	priv crypto.PrivateKey
	pub  crypto.PublicKey

	created time.Time
}

// ImportKey creates a symmetric key from material. keyBits must equal
// len(material)*8. The material is copied; the caller keeps ownership of
// its slice.
func (p *Params) ImportKey(keyBits int, material []byte, opts *KeyOptions) (*Key, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if keyBits <= 0 || keyBits != len(material)*8 {
		return nil, newError(ErrBadKeyLen, ErrCodeBadKeyLen,
			fmt.Sprintf("key size %d bits does not match %d bytes of material", keyBits, len(material)))
	}
	var o KeyOptions
	if opts != nil {
		o = *opts
	}
	return p.newSymmetricKey(keyBits, material, o)
}

// GenerateKey creates a random symmetric key using the RNG attached to the
// parameter set.
func (p *Params) GenerateKey(keyBits int, opts *KeyOptions) (*Key, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if p.rng == nil {
		return nil, newError(ErrNoRNG, ErrCodeNoRNG, "key generation requires an rng on the parameter set")
	}
	if keyBits <= 0 || keyBits%8 != 0 {
		return nil, newError(ErrBadKeyLen, ErrCodeBadKeyLen, fmt.Sprintf("key size %d bits is not a whole number of bytes", keyBits))
	}
	var o KeyOptions
	if opts != nil {
		o = *opts
	}
	if err := p.checkSymmetricBits(keyBits); err != nil {
		return nil, err
	}

	buf, err := p.gc.allocSecret(keyBits / 8)
	if err != nil {
		return nil, err
	}
	defer p.gc.freeSecret(buf)

	_, policy := p.provider.(KeyPolicyProvider)
	if policy && o.Parity == ParityCheck {
		o.Parity = ParityFix
	}
	for attempt := 0; ; attempt++ {
		if err := yieldPoint(p.yield); err != nil {
			return nil, err
		}
		if err := p.rng.GetBytes(buf, nil); err != nil {
			return nil, err
		}
		k, err := p.newSymmetricKey(keyBits, buf, o)
		if err == nil {
			return k, nil
		}
		// A freshly drawn weak key is discarded and redrawn.
		if !isWeakKey(err) || attempt >= 16 {
			return nil, err
		}
	}
}

func (p *Params) checkSymmetricBits(bits int) error {
	ok := false
	switch p.cap.Class {
	case ClassBlockCipher:
		bp := p.provider.(BlockCipherProvider)
		if p.spec.kind == KindXTS {
			ok = bits%16 == 0 && bp.ValidKeyBits(bits/2)
		} else {
			ok = bp.ValidKeyBits(bits)
		}
	case ClassAEAD:
		ok = p.block.ValidKeyBits(bits)
	case ClassStreamCipher:
		ok = p.provider.(StreamCipherProvider).ValidKeyBits(bits)
	case ClassMAC:
		ok = p.provider.(MACProvider).ValidKeyBits(bits)
	default:
		return newError(ErrNotSupported, ErrCodeNotSupported,
			fmt.Sprintf("%s parameters do not take symmetric keys", p.cap.Class))
	}
	if !ok {
		return newError(ErrBadKeyLen, ErrCodeBadKeyLen,
			fmt.Sprintf("%d-bit keys are not valid for %s", bits, p.cap))
	}
	return nil
}

func (p *Params) newSymmetricKey(bits int, material []byte, o KeyOptions) (*Key, error) {
	if err := p.checkSymmetricBits(bits); err != nil {
		return nil, err
	}
	if o.Usage > UsageDecryptOnly {
		return nil, newError(ErrBadKeyUsage, ErrCodeBadKeyUsage, o.Usage.String()+" is not a symmetric key usage")
	}

	buf, err := p.gc.allocSecret(len(material))
	if err != nil {
		return nil, err
	}
	copy(buf, material)

	k := &Key{params: p, usage: o.Usage, bits: bits, material: buf, created: p.gc.now()}
	if err := k.schedule(o); err != nil {
		p.gc.freeSecret(buf)
		return nil, err
	}

	h, err := p.gc.arena.acquire(kindKey, p.h)
	if err != nil {
		p.gc.freeSecret(buf)
		return nil, err
	}
	k.h = h
	p.gc.log.Debug("key created", "capability", p.cap.String(), "bits", bits)
	return k, nil
}

// schedule applies key policies and expands block cipher key schedules.
func (k *Key) schedule(o KeyOptions) error {
	p := k.params
	var bp BlockCipherProvider
	switch p.cap.Class {
	case ClassBlockCipher:
		bp = p.provider.(BlockCipherProvider)
	case ClassAEAD:
		bp = p.block
	default:
		return nil
	}

	halves := [][]byte{k.material}
	if p.spec.kind == KindXTS {
		n := len(k.material) / 2
		halves = [][]byte{k.material[:n], k.material[n:]}
	}
	if kp, ok := bp.(KeyPolicyProvider); ok {
		for _, h := range halves {
			if err := kp.ApplyKeyPolicy(h, o.Parity, o.WeakKeys); err != nil {
				return err
			}
		}
	}

	blocks := make([]cipher.Block, len(halves))
	for i, h := range halves {
		b, err := bp.NewBlock(h)
		if err != nil {
			return wrapError(ErrBadKey, err, ErrCodeBadKey, "key schedule expansion failed")
		}
		blocks[i] = b
	}
	k.block = blocks[0]
	if len(blocks) == 2 {
		k.tweak = blocks[1]
	}
	return nil
}

func (k *Key) check() error {
	if k == nil {
		return newError(ErrNullKey, ErrCodeNullKey, "key is nil")
	}
	if err := k.params.gc.check(); err != nil {
		return err
	}
	if !k.params.gc.arena.valid(k.h, kindKey) {
		return newError(ErrBadKey, ErrCodeBadKey, "key has been destroyed")
	}
	return nil
}

// permits checks the key usage against a direction.
func (k *Key) permits(dir Direction) error {
	switch dir {
	case Encrypt:
		if k.usage == UsageDecryptOnly {
			return newError(ErrBadKeyUsage, ErrCodeBadKeyUsage, "key is decrypt-only")
		}
	case Decrypt:
		if k.usage == UsageEncryptOnly {
			return newError(ErrBadKeyUsage, ErrCodeBadKeyUsage, "key is encrypt-only")
		}
	default:
		return newError(ErrBadState, ErrCodeBadState, "unknown direction "+dir.String())
	}
	if k.usage == UsagePrivate || k.usage == UsagePublic {
		return newError(ErrBadKeyUsage, ErrCodeBadKeyUsage, "asymmetric keys cannot drive a symmetric operation")
	}
	return nil
}

// Destroy wipes the key material and releases the key. It fails with
// ErrResourceInUse while contexts created from the key are live.
// Destroying a nil key is a no-op.
func (k *Key) Destroy() error {
	if k == nil {
		return nil
	}
	gc := k.params.gc
	if err := gc.check(); err != nil {
		return err
	}
	if err := gc.arena.release(k.h, kindKey); err != nil {
		return err
	}
	gc.freeSecret(k.material)
	k.material = nil
	k.block = nil
	k.tweak = nil
	k.priv = nil
	k.pub = nil
	return nil
}

// Bits returns the key size in bits.
func (k *Key) Bits() int { return k.bits }

// Usage returns the usage restriction of the key.
func (k *Key) Usage() Usage { return k.usage }

// Params returns the parameter set the key was created from.
func (k *Key) Params() *Params { return k.params }

// CreatedAt returns the key creation time as reported by the context clock.
func (k *Key) CreatedAt() time.Time { return k.created }
