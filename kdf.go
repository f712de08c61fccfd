// kdf.go: Derivation of symmetric keys from passwords and input keying material.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// Default Argon2id cost parameters.
const (
	// DefaultTime is the default number of Argon2id passes.
	DefaultTime = 3

	// DefaultMemory is the default Argon2id memory cost in MB.
	DefaultMemory = 64

	// DefaultThreads is the default Argon2id parallelism.
	DefaultThreads = 4

	// DefaultPBKDF2Iterations is used when KDFSpec.Iterations is zero.
	DefaultPBKDF2Iterations = 600000
)

// KDF selects the derivation function.
type KDF uint8

const (
	// KDFArgon2id derives from a low-entropy password (RFC 9106).
	KDFArgon2id KDF = iota
	// KDFPBKDF2 derives from a password with PBKDF2-HMAC (RFC 8018).
	KDFPBKDF2
	// KDFHKDF derives from high-entropy keying material (RFC 5869).
	KDFHKDF
)

func (k KDF) String() string {
	switch k {
	case KDFArgon2id:
		return "argon2id"
	case KDFPBKDF2:
		return "pbkdf2"
	case KDFHKDF:
		return "hkdf"
	}
	return fmt.Sprintf("kdf(%d)", uint8(k))
}

// KDFParams defines custom Argon2id costs. Zero fields use the defaults.
//
// Example:
//
//	spec := &crypto.KDFSpec{
//		Function: crypto.KDFArgon2id,
//		Salt:     salt,
//		Argon2:   &crypto.KDFParams{Time: 4, Memory: 128, Threads: 2},
//	}
//	key, err := params.DeriveKey(256, password, spec, nil)
type KDFParams struct {
	Time    uint32 `json:"time,omitempty"`
	Memory  uint32 `json:"memory,omitempty"`
	Threads uint8  `json:"threads,omitempty"`
}

// HighSecurityKDFParams returns Argon2id costs for long-lived master keys.
//
// Parameters: Time=5, Memory=128MB, Threads=4
func HighSecurityKDFParams() *KDFParams {
	return &KDFParams{Time: 5, Memory: 128, Threads: 4}
}

// FastKDFParams returns Argon2id costs suited to tests and development.
//
// Parameters: Time=1, Memory=32MB, Threads=2
func FastKDFParams() *KDFParams {
	return &KDFParams{Time: 1, Memory: 32, Threads: 2}
}

// KDFSpec describes one derivation.
type KDFSpec struct {
	Function KDF
	// Salt is required for the password functions and optional for HKDF.
	Salt []byte
	// Info is the HKDF context string; ignored otherwise.
	Info []byte
	// Digest names the hash used by PBKDF2 and HKDF. It is resolved
	// through the registry, so it must be registered. Zero means SHA-256.
	Digest Algorithm
	// Iterations is the PBKDF2 iteration count.
	Iterations int
	// Argon2 overrides the Argon2id costs.
	Argon2 *KDFParams
}

// DeriveKey derives a keyBits-long symmetric key for the parameter set
// from secret. The derived key is subject to the same length and policy
// checks as ImportKey.
func (p *Params) DeriveKey(keyBits int, secret []byte, spec *KDFSpec, opts *KeyOptions) (*Key, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, newError(ErrBadParams, ErrCodeBadParams, "key derivation requires a KDF spec")
	}
	if keyBits <= 0 || keyBits%8 != 0 {
		return nil, newError(ErrBadKeyLen, ErrCodeBadKeyLen, fmt.Sprintf("key size %d bits is not a whole number of bytes", keyBits))
	}
	if err := p.checkSymmetricBits(keyBits); err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, newError(ErrBadInputLength, ErrCodeBadInputLen, "secret cannot be empty")
	}
	if spec.Function != KDFHKDF && len(spec.Salt) == 0 {
		return nil, newError(ErrBadInputLength, ErrCodeBadInputLen, spec.Function.String()+" requires a salt")
	}
	if err := yieldPoint(p.yield); err != nil {
		return nil, err
	}

	n := keyBits / 8
	buf, err := p.gc.allocSecret(n)
	if err != nil {
		return nil, err
	}
	defer p.gc.freeSecret(buf)

	switch spec.Function {
	case KDFArgon2id:
		t, m, th := uint32(DefaultTime), uint32(DefaultMemory), uint8(DefaultThreads)
		if a := spec.Argon2; a != nil {
			if a.Time > 0 {
				t = a.Time
			}
			if a.Memory > 0 {
				m = a.Memory
			}
			if a.Threads > 0 {
				th = a.Threads
			}
		}
		out := argon2.IDKey(secret, spec.Salt, t, m*1024, th, uint32(n)) // #nosec G115 -- n is a validated key size
		copy(buf, out)
		Zeroize(out)
	case KDFPBKDF2:
		newHash, err := p.gc.kdfHash(spec.Digest)
		if err != nil {
			return nil, err
		}
		iter := spec.Iterations
		if iter == 0 {
			iter = DefaultPBKDF2Iterations
		}
		if iter < 0 {
			return nil, newError(ErrBadParams, ErrCodeBadParams, "iterations must be positive")
		}
		out := pbkdf2.Key(secret, spec.Salt, iter, n, newHash)
		copy(buf, out)
		Zeroize(out)
	case KDFHKDF:
		newHash, err := p.gc.kdfHash(spec.Digest)
		if err != nil {
			return nil, err
		}
		if n > 255*newHash().Size() {
			return nil, newError(ErrBadKeyLen, ErrCodeBadKeyLen, "key length too large for HKDF with this digest")
		}
		if _, err := io.ReadFull(hkdf.New(newHash, secret, spec.Salt, spec.Info), buf); err != nil {
			return nil, wrapError(ErrProviderFault, err, ErrCodeProvider, "hkdf expansion failed")
		}
	default:
		return nil, newError(ErrNotSupported, ErrCodeNotSupported, "unknown key derivation function "+spec.Function.String())
	}

	if err := yieldPoint(p.yield); err != nil {
		return nil, err
	}
	var o KeyOptions
	if opts != nil {
		o = *opts
	}
	return p.newSymmetricKey(keyBits, buf, o)
}

func (gc *GlobalContext) kdfHash(alg Algorithm) (func() hash.Hash, error) {
	if alg == 0 {
		alg = AlgSHA256
	}
	prov, err := gc.provider(DigestCapability(alg))
	if err != nil {
		return nil, err
	}
	return prov.(DigestProvider).New, nil
}
