// capability.go: Capability tags naming what a provider implements.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"fmt"
	"strings"
)

// Class is the broad kind of primitive a capability belongs to.
type Class uint8

const (
	ClassBlockCipher Class = iota + 1
	ClassStreamCipher
	ClassDigest
	ClassMAC
	ClassAEAD
	ClassSignature
	ClassKEM
	ClassRNG
)

var classNames = map[Class]string{
	ClassBlockCipher:  "block",
	ClassStreamCipher: "stream",
	ClassDigest:       "digest",
	ClassMAC:          "mac",
	ClassAEAD:         "aead",
	ClassSignature:    "signature",
	ClassKEM:          "kem",
	ClassRNG:          "rng",
}

func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Algorithm identifies a primitive within a class.
type Algorithm uint16

const (
	AlgAES Algorithm = iota + 1
	AlgDES
	AlgTripleDES
	AlgTwofish
	AlgBlowfish
	AlgCAST5
	AlgRC4
	AlgChaCha20

	AlgSHA1
	AlgSHA224
	AlgSHA256
	AlgSHA384
	AlgSHA512
	AlgSHA512_224
	AlgSHA512_256
	AlgMD5
	AlgMD4
	AlgRIPEMD160
	AlgSHA3_224
	AlgSHA3_256
	AlgSHA3_384
	AlgSHA3_512

	AlgECDSA
	AlgEdDSA
	AlgRSAPSS
	AlgMLDSA

	AlgMLKEM
	AlgX25519

	AlgX931
	AlgHashDRBG
	AlgHMACDRBG
	AlgCTRDRBG
)

var algorithmNames = map[Algorithm]string{
	AlgAES:        "AES",
	AlgDES:        "DES",
	AlgTripleDES:  "3DES",
	AlgTwofish:    "Twofish",
	AlgBlowfish:   "Blowfish",
	AlgCAST5:      "CAST5",
	AlgRC4:        "RC4",
	AlgChaCha20:   "ChaCha20",
	AlgSHA1:       "SHA-1",
	AlgSHA224:     "SHA-224",
	AlgSHA256:     "SHA-256",
	AlgSHA384:     "SHA-384",
	AlgSHA512:     "SHA-512",
	AlgSHA512_224: "SHA-512/224",
	AlgSHA512_256: "SHA-512/256",
	AlgMD5:        "MD5",
	AlgMD4:        "MD4",
	AlgRIPEMD160:  "RIPEMD-160",
	AlgSHA3_224:   "SHA3-224",
	AlgSHA3_256:   "SHA3-256",
	AlgSHA3_384:   "SHA3-384",
	AlgSHA3_512:   "SHA3-512",
	AlgECDSA:      "ECDSA",
	AlgEdDSA:      "EdDSA",
	AlgRSAPSS:     "RSA-PSS",
	AlgMLDSA:      "ML-DSA",
	AlgMLKEM:      "ML-KEM",
	AlgX25519:     "X25519",
	AlgX931:       "X9.31",
	AlgHashDRBG:   "Hash_DRBG",
	AlgHMACDRBG:   "HMAC_DRBG",
	AlgCTRDRBG:    "CTR_DRBG",
}

func (a Algorithm) String() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return fmt.Sprintf("alg(%d)", uint16(a))
}

// ParseAlgorithm looks an algorithm up by name, ignoring case and the
// hyphens and underscores in names such as "SHA-256" or "sha3_256".
func ParseAlgorithm(name string) (Algorithm, bool) {
	want := normalizeName(name)
	for a, s := range algorithmNames {
		if normalizeName(s) == want {
			return a, true
		}
	}
	return 0, false
}

func normalizeName(s string) string {
	return strings.NewReplacer("-", "", "_", "", "/", "").Replace(strings.ToLower(s))
}

// Variant refines an algorithm: a curve or parameter set, an AEAD
// construction, or a MAC construction.
type Variant uint16

const (
	VariantNone Variant = iota

	VariantP256
	VariantP384
	Variant25519
	Variant448
	VariantRSA2048
	VariantRSA3072
	VariantRSA4096
	VariantMLDSA65
	VariantMLKEM768

	VariantGCM
	VariantCCM
	// VariantCCMStar is CCM as profiled by IEEE 802.15.4: tag length zero is allowed.
	VariantCCMStar

	VariantHMAC
	VariantCMAC
)

var variantNames = map[Variant]string{
	VariantP256:     "P-256",
	VariantP384:     "P-384",
	Variant25519:    "25519",
	Variant448:      "448",
	VariantRSA2048:  "2048",
	VariantRSA3072:  "3072",
	VariantRSA4096:  "4096",
	VariantMLDSA65:  "65",
	VariantMLKEM768: "768",
	VariantGCM:      "GCM",
	VariantCCM:      "CCM",
	VariantCCMStar:  "CCM*",
	VariantHMAC:     "HMAC",
	VariantCMAC:     "CMAC",
}

func (v Variant) String() string {
	if v == VariantNone {
		return ""
	}
	if s, ok := variantNames[v]; ok {
		return s
	}
	return fmt.Sprintf("variant(%d)", uint16(v))
}

// Capability is the registry key: class, algorithm and optional variant.
// It is comparable and can be used directly as a map key.
type Capability struct {
	Class     Class
	Algorithm Algorithm
	Variant   Variant
}

// String renders the capability as class/algorithm[/variant].
func (c Capability) String() string {
	if c.Variant == VariantNone {
		return c.Class.String() + "/" + c.Algorithm.String()
	}
	return c.Class.String() + "/" + c.Algorithm.String() + "/" + c.Variant.String()
}

// BlockCipherCapability returns the tag for a block cipher algorithm.
func BlockCipherCapability(alg Algorithm) Capability {
	return Capability{Class: ClassBlockCipher, Algorithm: alg}
}

// StreamCipherCapability returns the tag for a stream cipher algorithm.
func StreamCipherCapability(alg Algorithm) Capability {
	return Capability{Class: ClassStreamCipher, Algorithm: alg}
}

// DigestCapability returns the tag for a digest algorithm.
func DigestCapability(alg Algorithm) Capability {
	return Capability{Class: ClassDigest, Algorithm: alg}
}

// MACCapability returns the tag for a MAC construction over alg, which is
// a digest for HMAC and a block cipher for CMAC.
func MACCapability(alg Algorithm, construction Variant) Capability {
	return Capability{Class: ClassMAC, Algorithm: alg, Variant: construction}
}

// AEADCapability returns the tag for an AEAD construction over a block cipher.
func AEADCapability(alg Algorithm, construction Variant) Capability {
	return Capability{Class: ClassAEAD, Algorithm: alg, Variant: construction}
}

// SignatureCapability returns the tag for a signature scheme.
func SignatureCapability(alg Algorithm, v Variant) Capability {
	return Capability{Class: ClassSignature, Algorithm: alg, Variant: v}
}

// KEMCapability returns the tag for a key encapsulation mechanism.
func KEMCapability(alg Algorithm, v Variant) Capability {
	return Capability{Class: ClassKEM, Algorithm: alg, Variant: v}
}

// RNGCapability returns the tag for a random generator mechanism.
func RNGCapability(alg Algorithm) Capability {
	return Capability{Class: ClassRNG, Algorithm: alg}
}
