// providers_asym.go: Built-in signature, KEM and random generator providers.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	signschemes "github.com/cloudflare/circl/sign/schemes"
)

var errWrongKeyType = errors.New("key type does not belong to this provider")

type ecdsaProvider struct {
	variant Variant
	curve   elliptic.Curve
	digest  func([]byte) []byte
	sigSize int
}

// ECDSAProvider returns ECDSA over P-256 (SHA-256) or P-384 (SHA-384).
// Signatures are ASN.1 DER encoded.
func ECDSAProvider(v Variant) (SignatureProvider, error) {
	switch v {
	case VariantP256:
		return &ecdsaProvider{variant: v, curve: elliptic.P256(), sigSize: 72,
			digest: func(m []byte) []byte { s := sha256.Sum256(m); return s[:] }}, nil
	case VariantP384:
		return &ecdsaProvider{variant: v, curve: elliptic.P384(), sigSize: 104,
			digest: func(m []byte) []byte { s := sha512.Sum384(m); return s[:] }}, nil
	}
	return nil, newError(ErrNotSupported, ErrCodeNotSupported, "unsupported ECDSA curve "+v.String())
}

func (p *ecdsaProvider) Capability() Capability { return SignatureCapability(AlgECDSA, p.variant) }
func (p *ecdsaProvider) Name() string           { return "software-ecdsa-" + p.variant.String() }

func (p *ecdsaProvider) GenerateKey(rand io.Reader) (crypto.PrivateKey, crypto.PublicKey, error) {
	sk, err := ecdsa.GenerateKey(p.curve, rand)
	if err != nil {
		return nil, nil, err
	}
	return sk, &sk.PublicKey, nil
}

func (p *ecdsaProvider) SignatureSize(crypto.PrivateKey) int { return p.sigSize }

func (p *ecdsaProvider) Sign(rand io.Reader, priv crypto.PrivateKey, msg []byte) ([]byte, error) {
	sk, ok := priv.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errWrongKeyType
	}
	return ecdsa.SignASN1(rand, sk, p.digest(msg))
}

func (p *ecdsaProvider) Verify(pub crypto.PublicKey, msg, sig []byte) bool {
	pk, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return false
	}
	return ecdsa.VerifyASN1(pk, p.digest(msg), sig)
}

func (p *ecdsaProvider) MarshalPublicKey(pub crypto.PublicKey) ([]byte, error) {
	pk, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, errWrongKeyType
	}
	ek, err := pk.ECDH()
	if err != nil {
		return nil, err
	}
	return ek.Bytes(), nil
}

func (p *ecdsaProvider) ParsePublicKey(raw []byte) (crypto.PublicKey, error) {
	x, y := elliptic.Unmarshal(p.curve, raw) //nolint:staticcheck // uncompressed point decoding
	if x == nil {
		return nil, errors.New("invalid uncompressed point")
	}
	return &ecdsa.PublicKey{Curve: p.curve, X: x, Y: y}, nil
}

type ed25519Provider struct{}

// Ed25519Provider returns pure Ed25519 (RFC 8032).
func Ed25519Provider() SignatureProvider { return ed25519Provider{} }

func (ed25519Provider) Capability() Capability { return SignatureCapability(AlgEdDSA, Variant25519) }
func (ed25519Provider) Name() string           { return "software-ed25519" }
func (ed25519Provider) deterministic() bool    { return true }

func (ed25519Provider) GenerateKey(rand io.Reader) (crypto.PrivateKey, crypto.PublicKey, error) {
	pk, sk, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, nil, err
	}
	return sk, pk, nil
}

func (ed25519Provider) SignatureSize(crypto.PrivateKey) int { return ed25519.SignatureSize }

func (ed25519Provider) Sign(_ io.Reader, priv crypto.PrivateKey, msg []byte) ([]byte, error) {
	sk, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errWrongKeyType
	}
	return ed25519.Sign(sk, msg), nil
}

func (ed25519Provider) Verify(pub crypto.PublicKey, msg, sig []byte) bool {
	pk, ok := pub.(ed25519.PublicKey)
	if !ok || len(pk) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pk, msg, sig)
}

func (ed25519Provider) MarshalPublicKey(pub crypto.PublicKey) ([]byte, error) {
	pk, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, errWrongKeyType
	}
	return append([]byte(nil), pk...), nil
}

func (ed25519Provider) ParsePublicKey(raw []byte) (crypto.PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ed25519 public key must be %d bytes", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(append([]byte(nil), raw...)), nil
}

type rsaPSSProvider struct {
	variant Variant
	bits    int
}

// RSAPSSProvider returns RSASSA-PSS with SHA-256 for a 2048, 3072 or
// 4096-bit modulus.
func RSAPSSProvider(v Variant) (SignatureProvider, error) {
	bits := map[Variant]int{VariantRSA2048: 2048, VariantRSA3072: 3072, VariantRSA4096: 4096}[v]
	if bits == 0 {
		return nil, newError(ErrNotSupported, ErrCodeNotSupported, "unsupported RSA modulus "+v.String())
	}
	return &rsaPSSProvider{variant: v, bits: bits}, nil
}

func (p *rsaPSSProvider) Capability() Capability { return SignatureCapability(AlgRSAPSS, p.variant) }
func (p *rsaPSSProvider) Name() string           { return "software-rsa-pss-" + p.variant.String() }

func (p *rsaPSSProvider) GenerateKey(rand io.Reader) (crypto.PrivateKey, crypto.PublicKey, error) {
	sk, err := rsa.GenerateKey(rand, p.bits)
	if err != nil {
		return nil, nil, err
	}
	return sk, &sk.PublicKey, nil
}

func (p *rsaPSSProvider) SignatureSize(crypto.PrivateKey) int { return p.bits / 8 }

func (p *rsaPSSProvider) Sign(rand io.Reader, priv crypto.PrivateKey, msg []byte) ([]byte, error) {
	sk, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, errWrongKeyType
	}
	d := sha256.Sum256(msg)
	return rsa.SignPSS(rand, sk, crypto.SHA256, d[:], nil)
}

func (p *rsaPSSProvider) Verify(pub crypto.PublicKey, msg, sig []byte) bool {
	pk, ok := pub.(*rsa.PublicKey)
	if !ok {
		return false
	}
	d := sha256.Sum256(msg)
	return rsa.VerifyPSS(pk, crypto.SHA256, d[:], sig, nil) == nil
}

func (p *rsaPSSProvider) MarshalPublicKey(pub crypto.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

func (p *rsaPSSProvider) ParsePublicKey(raw []byte) (crypto.PublicKey, error) {
	pk, err := x509.ParsePKIXPublicKey(raw)
	if err != nil {
		return nil, err
	}
	rk, ok := pk.(*rsa.PublicKey)
	if !ok || rk.N.BitLen() != p.bits {
		return nil, fmt.Errorf("not a %d-bit RSA public key", p.bits)
	}
	return rk, nil
}

// circlSignProvider adapts a circl signature scheme. Keys are derived
// from a seed drawn from the caller's RNG, so generation stays
// reproducible under a deterministic generator.
type circlSignProvider struct {
	cap    Capability
	scheme sign.Scheme
}

// Ed448Provider returns pure Ed448 (RFC 8032).
func Ed448Provider() SignatureProvider {
	return &circlSignProvider{cap: SignatureCapability(AlgEdDSA, Variant448), scheme: signschemes.ByName("Ed448")}
}

// MLDSA65Provider returns ML-DSA-65 (FIPS 204).
func MLDSA65Provider() SignatureProvider {
	return &circlSignProvider{cap: SignatureCapability(AlgMLDSA, VariantMLDSA65), scheme: mldsa65.Scheme()}
}

func (p *circlSignProvider) Capability() Capability { return p.cap }
func (p *circlSignProvider) Name() string           { return "circl-" + p.scheme.Name() }
func (p *circlSignProvider) deterministic() bool    { return true }

func (p *circlSignProvider) GenerateKey(rand io.Reader) (crypto.PrivateKey, crypto.PublicKey, error) {
	seed := make([]byte, p.scheme.SeedSize())
	defer Zeroize(seed)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, nil, err
	}
	pk, sk := p.scheme.DeriveKey(seed)
	return sk, pk, nil
}

func (p *circlSignProvider) SignatureSize(crypto.PrivateKey) int { return p.scheme.SignatureSize() }

func (p *circlSignProvider) Sign(_ io.Reader, priv crypto.PrivateKey, msg []byte) ([]byte, error) {
	sk, ok := priv.(sign.PrivateKey)
	if !ok {
		return nil, errWrongKeyType
	}
	return p.scheme.Sign(sk, msg, nil), nil
}

func (p *circlSignProvider) Verify(pub crypto.PublicKey, msg, sig []byte) bool {
	pk, ok := pub.(sign.PublicKey)
	if !ok {
		return false
	}
	return p.scheme.Verify(pk, msg, sig, nil)
}

func (p *circlSignProvider) MarshalPublicKey(pub crypto.PublicKey) ([]byte, error) {
	pk, ok := pub.(sign.PublicKey)
	if !ok {
		return nil, errWrongKeyType
	}
	return pk.MarshalBinary()
}

func (p *circlSignProvider) ParsePublicKey(raw []byte) (crypto.PublicKey, error) {
	return p.scheme.UnmarshalBinaryPublicKey(raw)
}

// circlKEMProvider adapts a circl KEM scheme.
type circlKEMProvider struct {
	cap    Capability
	scheme kem.Scheme
}

// MLKEM768Provider returns ML-KEM-768 (FIPS 203).
func MLKEM768Provider() KEMProvider {
	return &circlKEMProvider{cap: KEMCapability(AlgMLKEM, VariantMLKEM768), scheme: mlkem768.Scheme()}
}

// X25519KEMProvider returns DHKEM(X25519, HKDF-SHA256) of RFC 9180.
func X25519KEMProvider() KEMProvider {
	return &circlKEMProvider{cap: KEMCapability(AlgX25519, VariantNone), scheme: hpke.KEM_X25519_HKDF_SHA256.Scheme()}
}

func (p *circlKEMProvider) Capability() Capability { return p.cap }
func (p *circlKEMProvider) Name() string           { return "circl-" + p.scheme.Name() }
func (p *circlKEMProvider) CiphertextSize() int    { return p.scheme.CiphertextSize() }
func (p *circlKEMProvider) SharedKeySize() int     { return p.scheme.SharedKeySize() }

func (p *circlKEMProvider) GenerateKey(rand io.Reader) (crypto.PrivateKey, crypto.PublicKey, error) {
	seed := make([]byte, p.scheme.SeedSize())
	defer Zeroize(seed)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, nil, err
	}
	pk, sk := p.scheme.DeriveKeyPair(seed)
	return sk, pk, nil
}

func (p *circlKEMProvider) Encapsulate(rand io.Reader, pub crypto.PublicKey) ([]byte, []byte, error) {
	pk, ok := pub.(kem.PublicKey)
	if !ok {
		return nil, nil, errWrongKeyType
	}
	seed := make([]byte, p.scheme.EncapsulationSeedSize())
	defer Zeroize(seed)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, nil, err
	}
	return p.scheme.EncapsulateDeterministically(pk, seed)
}

func (p *circlKEMProvider) Decapsulate(priv crypto.PrivateKey, ciphertext []byte) ([]byte, error) {
	sk, ok := priv.(kem.PrivateKey)
	if !ok {
		return nil, errWrongKeyType
	}
	return p.scheme.Decapsulate(sk, ciphertext)
}

func (p *circlKEMProvider) MarshalPublicKey(pub crypto.PublicKey) ([]byte, error) {
	pk, ok := pub.(kem.PublicKey)
	if !ok {
		return nil, errWrongKeyType
	}
	return pk.MarshalBinary()
}

func (p *circlKEMProvider) ParsePublicKey(raw []byte) (crypto.PublicKey, error) {
	return p.scheme.UnmarshalBinaryPublicKey(raw)
}

type rngProvider struct {
	alg Algorithm
	mk  func(env RNGEnv) RandomSource
}

func (p *rngProvider) Capability() Capability            { return RNGCapability(p.alg) }
func (p *rngProvider) Name() string                      { return "software-" + p.alg.String() }
func (p *rngProvider) NewSource(env RNGEnv) RandomSource { return p.mk(env) }

// X931Provider returns the ANSI X9.31 AES-128 generator.
func X931Provider() RNGProvider {
	return &rngProvider{alg: AlgX931, mk: func(env RNGEnv) RandomSource { return &x931Source{env: env} }}
}

// HMACDRBGProvider returns HMAC_DRBG with SHA-256.
func HMACDRBGProvider() RNGProvider {
	return &rngProvider{alg: AlgHMACDRBG, mk: func(env RNGEnv) RandomSource {
		return &drbgCore{env: env, mech: &hmacDRBG{}}
	}}
}

// HashDRBGProvider returns Hash_DRBG with SHA-256.
func HashDRBGProvider() RNGProvider {
	return &rngProvider{alg: AlgHashDRBG, mk: func(env RNGEnv) RandomSource {
		return &drbgCore{env: env, mech: &hashDRBG{}}
	}}
}

// CTRDRBGProvider returns CTR_DRBG with AES-256 and a derivation function.
func CTRDRBGProvider() RNGProvider {
	return &rngProvider{alg: AlgCTRDRBG, mk: func(env RNGEnv) RandomSource {
		return &drbgCore{env: env, mech: &ctrDRBG{}}
	}}
}

// asymmetricProviders returns every built-in signature, KEM and RNG provider.
func asymmetricProviders() []Provider {
	p256, _ := ECDSAProvider(VariantP256)
	p384, _ := ECDSAProvider(VariantP384)
	out := []Provider{
		p256, p384, Ed25519Provider(), Ed448Provider(), MLDSA65Provider(),
		MLKEM768Provider(), X25519KEMProvider(),
		X931Provider(), HMACDRBGProvider(), HashDRBGProvider(), CTRDRBGProvider(),
	}
	for _, v := range []Variant{VariantRSA2048, VariantRSA3072, VariantRSA4096} {
		p, _ := RSAPSSProvider(v)
		out = append(out, p)
	}
	return out
}

// SoftwareProviders returns every built-in provider.
func SoftwareProviders() []Provider {
	return append(symmetricProviders(), asymmetricProviders()...)
}

// RegisterSoftwareProviders registers every built-in provider with gc.
func RegisterSoftwareProviders(gc *GlobalContext) error {
	return gc.Register(SoftwareProviders()...)
}
