// params.go: Parameter sets binding a capability to a mode and options.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import "fmt"

// ParamsOptions are optional attachments of a parameter set.
type ParamsOptions struct {
	// RNG is used for key generation, signing and encapsulation. The RNG
	// cannot be destroyed while the parameter set exists.
	RNG *RNG
	// Yield is invoked during long-running operations on this parameter set.
	Yield Yielder
}

// Params is an immutable description of how keys created from it will be
// used: the capability, and for block ciphers the mode and block length.
type Params struct {
	gc       *GlobalContext
	h        handle
	cap      Capability
	provider Provider

	mode     Mode
	spec     modeSpec
	blockLen int
	// block is the cipher under an AEAD or CMAC construction.
	block BlockCipherProvider

	rng   *RNG
	yield Yielder
}

func (gc *GlobalContext) newParams(c Capability, p Provider, opts *ParamsOptions, fill func(*Params)) (*Params, error) {
	params := &Params{gc: gc, cap: c, provider: p}
	if fill != nil {
		fill(params)
	}

	var parents []handle
	if opts != nil {
		params.yield = opts.Yield
		if opts.RNG != nil {
			if err := opts.RNG.check(); err != nil {
				return nil, err
			}
			if opts.RNG.gc != gc {
				return nil, newError(ErrBadRNG, ErrCodeBadRNG, "rng belongs to a different global context")
			}
			params.rng = opts.RNG
			parents = append(parents, opts.RNG.h)
		}
	}

	h, err := gc.arena.acquire(kindParams, parents...)
	if err != nil {
		return nil, err
	}
	params.h = h
	return params, nil
}

// CreateBlockCipherParams returns parameters for alg in mode. blockLen is
// in bytes and must equal the provider's block size.
func (gc *GlobalContext) CreateBlockCipherParams(alg Algorithm, mode Mode, blockLen int, opts *ParamsOptions) (*Params, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	c := BlockCipherCapability(alg)
	p, err := gc.provider(c)
	if err != nil {
		return nil, err
	}
	bp := p.(BlockCipherProvider)
	if blockLen != bp.BlockSize() {
		return nil, newError(ErrBadBlockLen, ErrCodeBadBlockLen,
			fmt.Sprintf("%s has a %d byte block, got %d", alg, bp.BlockSize(), blockLen))
	}
	spec, err := mode.decode(blockLen)
	if err != nil {
		return nil, err
	}
	if !bp.SupportsMode(spec.kind) {
		return nil, badMode(mode, "not supported by "+alg.String())
	}
	return gc.newParams(c, p, opts, func(params *Params) {
		params.mode = mode
		params.spec = spec
		params.blockLen = blockLen
		params.block = bp
	})
}

// CreateStreamCipherParams returns parameters for a stream cipher.
func (gc *GlobalContext) CreateStreamCipherParams(alg Algorithm, opts *ParamsOptions) (*Params, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	c := StreamCipherCapability(alg)
	p, err := gc.provider(c)
	if err != nil {
		return nil, err
	}
	return gc.newParams(c, p, opts, nil)
}

// CreateDigestParams returns parameters for a hash function.
func (gc *GlobalContext) CreateDigestParams(alg Algorithm, opts *ParamsOptions) (*Params, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	c := DigestCapability(alg)
	p, err := gc.provider(c)
	if err != nil {
		return nil, err
	}
	return gc.newParams(c, p, opts, nil)
}

// CreateMACParams returns parameters for a MAC construction over alg.
func (gc *GlobalContext) CreateMACParams(alg Algorithm, construction Variant, opts *ParamsOptions) (*Params, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	c := MACCapability(alg, construction)
	p, err := gc.provider(c)
	if err != nil {
		return nil, err
	}
	return gc.newParams(c, p, opts, nil)
}

// CreateAEADParams returns parameters for an AEAD construction over the
// block cipher alg. Both the construction and the cipher must be
// registered, and the cipher must have a 128-bit block.
func (gc *GlobalContext) CreateAEADParams(alg Algorithm, construction Variant, opts *ParamsOptions) (*Params, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	c := AEADCapability(alg, construction)
	p, err := gc.provider(c)
	if err != nil {
		return nil, err
	}
	bpRaw, err := gc.provider(BlockCipherCapability(alg))
	if err != nil {
		return nil, err
	}
	bp := bpRaw.(BlockCipherProvider)
	if bp.BlockSize() != 16 {
		return nil, newError(ErrBadBlockLen, ErrCodeBadBlockLen,
			fmt.Sprintf("%s requires a 128-bit block cipher", c))
	}
	return gc.newParams(c, p, opts, func(params *Params) {
		params.block = bp
		params.blockLen = 16
	})
}

// CreateSignatureParams returns parameters for a signature scheme.
func (gc *GlobalContext) CreateSignatureParams(alg Algorithm, v Variant, opts *ParamsOptions) (*Params, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	c := SignatureCapability(alg, v)
	p, err := gc.provider(c)
	if err != nil {
		return nil, err
	}
	return gc.newParams(c, p, opts, nil)
}

// CreateKEMParams returns parameters for a key encapsulation mechanism.
func (gc *GlobalContext) CreateKEMParams(alg Algorithm, v Variant, opts *ParamsOptions) (*Params, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	c := KEMCapability(alg, v)
	p, err := gc.provider(c)
	if err != nil {
		return nil, err
	}
	return gc.newParams(c, p, opts, nil)
}

func (p *Params) check() error {
	if p == nil {
		return newError(ErrNullParams, ErrCodeNullParams, "parameter set is nil")
	}
	if err := p.gc.check(); err != nil {
		return err
	}
	if !p.gc.arena.valid(p.h, kindParams) {
		return newError(ErrBadParams, ErrCodeBadParams, "parameter set has been destroyed")
	}
	return nil
}

func (p *Params) expectClass(classes ...Class) error {
	for _, c := range classes {
		if p.cap.Class == c {
			return nil
		}
	}
	return newError(ErrBadParams, ErrCodeBadParams,
		fmt.Sprintf("operation not available for %s parameters", p.cap.Class))
}

// Destroy releases the parameter set. It fails with ErrResourceInUse while
// keys created from it exist. Destroying a nil parameter set is a no-op.
func (p *Params) Destroy() error {
	if p == nil {
		return nil
	}
	if err := p.gc.check(); err != nil {
		return err
	}
	return p.gc.arena.release(p.h, kindParams)
}

// Capability returns the capability the parameters were created for.
func (p *Params) Capability() Capability { return p.cap }

// Mode returns the block cipher mode, zero for other classes.
func (p *Params) Mode() Mode { return p.mode }

// BlockLen returns the cipher block length in bytes, zero when not a block cipher.
func (p *Params) BlockLen() int { return p.blockLen }

// IVLen returns the IV length a cipher context created from these
// parameters requires.
func (p *Params) IVLen() int {
	switch p.cap.Class {
	case ClassBlockCipher:
		return p.spec.ivLen(p.blockLen)
	case ClassStreamCipher:
		return p.provider.(StreamCipherProvider).NonceSize()
	}
	return 0
}
