// asymmetric.go: Key pairs, signatures and key encapsulation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto"
	"errors"
	"io"
)

// deterministicSigner is implemented by signature providers whose Sign
// ignores its randomness argument.
type deterministicSigner interface {
	deterministic() bool
}

// providerError classifies a provider failure. Errors raised by the RNG the
// provider read from keep their own status.
func providerError(err error, msg string) error {
	if errors.Is(err, ErrRNGLock) || errors.Is(err, ErrRNGFailure) || errors.Is(err, ErrYieldAborted) {
		return err
	}
	return wrapError(ErrProviderFault, err, ErrCodeProvider, msg)
}

// GenerateKeyPair creates a private and a public key for the signature or
// KEM scheme of the parameter set, drawing randomness from its RNG. The two
// halves are independent resources and are destroyed separately.
func (p *Params) GenerateKeyPair() (priv, pub *Key, err error) {
	if err := p.check(); err != nil {
		return nil, nil, err
	}
	if err := p.expectClass(ClassSignature, ClassKEM); err != nil {
		return nil, nil, err
	}
	if p.rng == nil {
		return nil, nil, newError(ErrNoRNG, ErrCodeNoRNG, "key pair generation requires an rng on the parameter set")
	}
	if err := yieldPoint(p.yield); err != nil {
		return nil, nil, err
	}

	var (
		sk  crypto.PrivateKey
		pk  crypto.PublicKey
		gen error
	)
	switch prov := p.provider.(type) {
	case SignatureProvider:
		sk, pk, gen = prov.GenerateKey(p.rng)
	case KEMProvider:
		sk, pk, gen = prov.GenerateKey(p.rng)
	}
	if gen != nil {
		return nil, nil, providerError(gen, "key pair generation failed")
	}
	if err := yieldPoint(p.yield); err != nil {
		return nil, nil, err
	}

	priv, err = p.newAsymmetricKey(UsagePrivate, sk, pk)
	if err != nil {
		return nil, nil, err
	}
	pub, err = p.newAsymmetricKey(UsagePublic, nil, pk)
	if err != nil {
		_ = priv.Destroy()
		return nil, nil, err
	}
	return priv, pub, nil
}

// ImportPublicKey creates a public key from its encoded form, as produced
// by Key.Export on a public half.
func (p *Params) ImportPublicKey(raw []byte) (*Key, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if err := p.expectClass(ClassSignature, ClassKEM); err != nil {
		return nil, err
	}
	var (
		pk  crypto.PublicKey
		err error
	)
	switch prov := p.provider.(type) {
	case SignatureProvider:
		pk, err = prov.ParsePublicKey(raw)
	case KEMProvider:
		pk, err = prov.ParsePublicKey(raw)
	}
	if err != nil {
		return nil, wrapError(ErrBadPublicKey, err, ErrCodeBadPublicKey, "public key could not be parsed")
	}
	return p.newAsymmetricKey(UsagePublic, nil, pk)
}

func (p *Params) newAsymmetricKey(usage Usage, sk crypto.PrivateKey, pk crypto.PublicKey) (*Key, error) {
	h, err := p.gc.arena.acquire(kindKey, p.h)
	if err != nil {
		return nil, err
	}
	k := &Key{params: p, h: h, usage: usage, priv: sk, pub: pk, created: p.gc.now()}
	if raw, err := k.publicBytes(); err == nil {
		k.bits = len(raw) * 8
	}
	return k, nil
}

func (k *Key) publicBytes() ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch prov := k.params.provider.(type) {
	case SignatureProvider:
		raw, err = prov.MarshalPublicKey(k.pub)
	case KEMProvider:
		raw, err = prov.MarshalPublicKey(k.pub)
	default:
		return nil, newError(ErrNotSupported, ErrCodeNotSupported, "key has no public component")
	}
	if err != nil {
		return nil, wrapError(ErrProviderFault, err, ErrCodeProvider, "public key encoding failed")
	}
	return raw, nil
}

func (k *Key) requireUsage(u Usage) error {
	if k.usage != u {
		return newError(ErrBadKeyUsage, ErrCodeBadKeyUsage, "operation requires a "+u.String()+" key, got "+k.usage.String())
	}
	return nil
}

func (k *Key) randomness() (io.Reader, error) {
	if k.params.rng == nil {
		return nil, newError(ErrNoRNG, ErrCodeNoRNG, "operation requires an rng on the parameter set")
	}
	return k.params.rng, nil
}

// Sign signs msg with a private signature key. dst follows the sizing
// convention against an upper bound; the returned count is the actual
// signature length.
func (k *Key) Sign(dst, msg []byte) (int, error) {
	if err := k.check(); err != nil {
		return 0, err
	}
	if err := k.params.expectClass(ClassSignature); err != nil {
		return 0, err
	}
	if err := k.requireUsage(UsagePrivate); err != nil {
		return 0, err
	}
	prov := k.params.provider.(SignatureProvider)
	return sized(dst, prov.SignatureSize(k.priv), func(out []byte) (int, error) {
		var rand io.Reader
		if d, ok := prov.(deterministicSigner); !ok || !d.deterministic() {
			r, err := k.randomness()
			if err != nil {
				return 0, err
			}
			rand = r
		}
		sig, err := prov.Sign(rand, k.priv, msg)
		if err != nil {
			return 0, providerError(err, "signing failed")
		}
		return copy(out, sig), nil
	})
}

// SignAlloc is Sign into a newly allocated buffer of the exact length.
func (k *Key) SignAlloc(msg []byte) ([]byte, error) {
	return allocOut(func(dst []byte) (int, error) { return k.Sign(dst, msg) })
}

// Verify checks sig over msg with a public signature key. An invalid
// signature is reported as (false, nil).
func (k *Key) Verify(msg, sig []byte) (bool, error) {
	if err := k.check(); err != nil {
		return false, err
	}
	if err := k.params.expectClass(ClassSignature); err != nil {
		return false, err
	}
	if err := k.requireUsage(UsagePublic); err != nil {
		return false, err
	}
	return k.params.provider.(SignatureProvider).Verify(k.pub, msg, sig), nil
}

// Encapsulate generates a shared secret and its encapsulation under a
// public KEM key.
func (k *Key) Encapsulate() (ciphertext, sharedKey []byte, err error) {
	if err := k.check(); err != nil {
		return nil, nil, err
	}
	if err := k.params.expectClass(ClassKEM); err != nil {
		return nil, nil, err
	}
	if err := k.requireUsage(UsagePublic); err != nil {
		return nil, nil, err
	}
	rand, err := k.randomness()
	if err != nil {
		return nil, nil, err
	}
	ct, ss, err := k.params.provider.(KEMProvider).Encapsulate(rand, k.pub)
	if err != nil {
		return nil, nil, providerError(err, "encapsulation failed")
	}
	return ct, ss, nil
}

// Decapsulate recovers the shared secret with a private KEM key.
func (k *Key) Decapsulate(ciphertext []byte) ([]byte, error) {
	if err := k.check(); err != nil {
		return nil, err
	}
	if err := k.params.expectClass(ClassKEM); err != nil {
		return nil, err
	}
	if err := k.requireUsage(UsagePrivate); err != nil {
		return nil, err
	}
	prov := k.params.provider.(KEMProvider)
	if len(ciphertext) != prov.CiphertextSize() {
		return nil, newError(ErrBadInputLength, ErrCodeBadInputLen, "ciphertext has the wrong length")
	}
	ss, err := prov.Decapsulate(k.priv, ciphertext)
	if err != nil {
		return nil, wrapError(ErrProviderFault, err, ErrCodeProvider, "decapsulation failed")
	}
	return ss, nil
}
