// registry.go: Provider interfaces and the per-context capability registry.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto"
	"crypto/cipher"
	"fmt"
	"hash"
	"io"
	"sort"
	"sync"
)

// Provider is the common surface of every registered implementation.
type Provider interface {
	// Capability is the tag the provider is registered under.
	Capability() Capability
	// Name is a human readable implementation name, used in logs.
	Name() string
}

// BlockCipherProvider supplies a block cipher and its key schedule.
type BlockCipherProvider interface {
	Provider
	BlockSize() int
	// ValidKeyBits reports whether a key of the given size is accepted for
	// single-key modes. XTS doubles the size.
	ValidKeyBits(bits int) bool
	// SupportsMode reports whether the provider permits the mode family.
	SupportsMode(kind ModeKind) bool
	// NewBlock expands key into a key schedule.
	NewBlock(key []byte) (cipher.Block, error)
}

// KeyPolicyProvider is implemented by block ciphers with parity bits or
// weak keys. ApplyKeyPolicy may rewrite parity bits of material in place.
type KeyPolicyProvider interface {
	ApplyKeyPolicy(material []byte, parity ParityPolicy, weak WeakKeyPolicy) error
}

// StreamCipherProvider supplies a keystream generator.
type StreamCipherProvider interface {
	Provider
	ValidKeyBits(bits int) bool
	// NonceSize is the IV length NewStream expects; zero for none.
	NonceSize() int
	NewStream(key, nonce []byte) (cipher.Stream, error)
}

// DigestProvider supplies a hash function.
type DigestProvider interface {
	Provider
	Size() int
	BlockSize() int
	New() hash.Hash
}

// MACProvider supplies a keyed MAC construction.
type MACProvider interface {
	Provider
	TagSize() int
	ValidKeyBits(bits int) bool
	NewMAC(key []byte) (MACState, error)
}

// AEADProvider marks an AEAD construction as available over a block cipher
// provider. The construction itself is implemented by the core.
type AEADProvider interface {
	Provider
	Construction() Variant
}

// SignatureProvider supplies an asymmetric signature scheme.
type SignatureProvider interface {
	Provider
	GenerateKey(rand io.Reader) (crypto.PrivateKey, crypto.PublicKey, error)
	// SignatureSize is an upper bound on the encoded signature length.
	SignatureSize(priv crypto.PrivateKey) int
	Sign(rand io.Reader, priv crypto.PrivateKey, msg []byte) ([]byte, error)
	Verify(pub crypto.PublicKey, msg, sig []byte) bool
	MarshalPublicKey(pub crypto.PublicKey) ([]byte, error)
	ParsePublicKey(raw []byte) (crypto.PublicKey, error)
}

// KEMProvider supplies a key encapsulation mechanism.
type KEMProvider interface {
	Provider
	GenerateKey(rand io.Reader) (crypto.PrivateKey, crypto.PublicKey, error)
	CiphertextSize() int
	SharedKeySize() int
	Encapsulate(rand io.Reader, pub crypto.PublicKey) (ciphertext, sharedKey []byte, err error)
	Decapsulate(priv crypto.PrivateKey, ciphertext []byte) ([]byte, error)
	MarshalPublicKey(pub crypto.PublicKey) ([]byte, error)
	ParsePublicKey(raw []byte) (crypto.PublicKey, error)
}

// RNGProvider creates random sources for one generator mechanism.
type RNGProvider interface {
	Provider
	NewSource(env RNGEnv) RandomSource
}

// registry maps capability tags to providers. It is guarded by an
// RWMutex: lookups vastly outnumber registrations.
type registry struct {
	mu        sync.RWMutex
	providers map[Capability]Provider
}

func newRegistry() *registry {
	return &registry{providers: make(map[Capability]Provider)}
}

// add registers p. A tag that is already present keeps its first provider
// and the call succeeds; added reports whether p was stored.
func (r *registry) add(p Provider) (added bool, err error) {
	if p == nil {
		return false, newError(ErrBadProvider, ErrCodeBadProvider, "provider cannot be nil")
	}
	c := p.Capability()
	if c.Class == 0 || c.Algorithm == 0 {
		return false, newError(ErrBadProvider, ErrCodeBadProvider,
			fmt.Sprintf("provider %q declares an incomplete capability", p.Name()))
	}
	if err := checkProviderShape(p); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[c]; exists {
		return false, nil
	}
	r.providers[c] = p
	return true, nil
}

// checkProviderShape rejects a provider whose concrete interface does not
// match the class it registers under.
func checkProviderShape(p Provider) error {
	var ok bool
	switch p.Capability().Class {
	case ClassBlockCipher:
		_, ok = p.(BlockCipherProvider)
	case ClassStreamCipher:
		_, ok = p.(StreamCipherProvider)
	case ClassDigest:
		_, ok = p.(DigestProvider)
	case ClassMAC:
		_, ok = p.(MACProvider)
	case ClassAEAD:
		_, ok = p.(AEADProvider)
	case ClassSignature:
		_, ok = p.(SignatureProvider)
	case ClassKEM:
		_, ok = p.(KEMProvider)
	case ClassRNG:
		_, ok = p.(RNGProvider)
	}
	if !ok {
		return newError(ErrBadProvider, ErrCodeBadProvider,
			fmt.Sprintf("provider %q does not implement the %s interface", p.Name(), p.Capability().Class))
	}
	return nil
}

func (r *registry) lookup(c Capability) (Provider, bool) {
	r.mu.RLock()
	p, ok := r.providers[c]
	r.mu.RUnlock()
	return p, ok
}

// list returns the registered capabilities in a stable order.
func (r *registry) list() []Capability {
	r.mu.RLock()
	out := make([]Capability, 0, len(r.providers))
	for c := range r.providers {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Algorithm != b.Algorithm {
			return a.Algorithm < b.Algorithm
		}
		return a.Variant < b.Variant
	})
	return out
}

// copyTo registers every provider of r into dst.
func (r *registry) copyTo(dst *registry) {
	r.mu.RLock()
	snapshot := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		snapshot = append(snapshot, p)
	}
	r.mu.RUnlock()

	dst.mu.Lock()
	defer dst.mu.Unlock()
	for _, p := range snapshot {
		c := p.Capability()
		if _, exists := dst.providers[c]; !exists {
			dst.providers[c] = p
		}
	}
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
