// modes.go: Block cipher mode engines.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import "crypto/cipher"

// engine is the per-context transform driven by CipherContext. Aligned
// engines are only ever handed whole blocks; the others accept any length
// and keep their own position within the keystream.
type engine interface {
	crypt(dst, src []byte)
	reset(iv []byte) error
	wipe()
}

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

type ecbEngine struct {
	b       cipher.Block
	decrypt bool
}

func (e *ecbEngine) crypt(dst, src []byte) {
	bs := e.b.BlockSize()
	for i := 0; i < len(src); i += bs {
		if e.decrypt {
			e.b.Decrypt(dst[i:i+bs], src[i:i+bs])
		} else {
			e.b.Encrypt(dst[i:i+bs], src[i:i+bs])
		}
	}
}

func (e *ecbEngine) reset([]byte) error { return nil }
func (e *ecbEngine) wipe()              {}

type cbcEngine struct {
	b       cipher.Block
	decrypt bool
	chain   []byte
	tmp     []byte
}

func newCBCEngine(b cipher.Block, decrypt bool) *cbcEngine {
	bs := b.BlockSize()
	return &cbcEngine{b: b, decrypt: decrypt, chain: make([]byte, bs), tmp: make([]byte, bs)}
}

func (e *cbcEngine) crypt(dst, src []byte) {
	bs := len(e.chain)
	for i := 0; i < len(src); i += bs {
		in, out := src[i:i+bs], dst[i:i+bs]
		if e.decrypt {
			copy(e.tmp, in)
			e.b.Decrypt(out, in)
			xorBytes(out, out, e.chain)
			copy(e.chain, e.tmp)
		} else {
			xorBytes(out, in, e.chain)
			e.b.Encrypt(out, out)
			copy(e.chain, out)
		}
	}
}

func (e *cbcEngine) reset(iv []byte) error { copy(e.chain, iv); return nil }
func (e *cbcEngine) wipe()                 { Zeroize(e.chain); Zeroize(e.tmp) }

// cfbEngine is full-block cipher feedback with byte granularity: a partial
// block at the end of one call continues at the same keystream offset in
// the next.
type cfbEngine struct {
	b       cipher.Block
	decrypt bool
	reg     []byte
	ks      []byte
	pos     int
}

func newCFBEngine(b cipher.Block, decrypt bool) *cfbEngine {
	bs := b.BlockSize()
	return &cfbEngine{b: b, decrypt: decrypt, reg: make([]byte, bs), ks: make([]byte, bs), pos: bs}
}

func (e *cfbEngine) crypt(dst, src []byte) {
	bs := len(e.reg)
	for i, in := range src {
		if e.pos == bs {
			e.b.Encrypt(e.ks, e.reg)
			e.pos = 0
		}
		out := in ^ e.ks[e.pos]
		if e.decrypt {
			e.reg[e.pos] = in
		} else {
			e.reg[e.pos] = out
		}
		dst[i] = out
		e.pos++
	}
}

func (e *cfbEngine) reset(iv []byte) error {
	copy(e.reg, iv)
	e.pos = len(e.reg)
	return nil
}

func (e *cfbEngine) wipe() { Zeroize(e.reg); Zeroize(e.ks) }

// cfb8Engine feeds back one byte per cipher invocation.
type cfb8Engine struct {
	b       cipher.Block
	decrypt bool
	reg     []byte
	ks      []byte
}

func newCFB8Engine(b cipher.Block, decrypt bool) *cfb8Engine {
	bs := b.BlockSize()
	return &cfb8Engine{b: b, decrypt: decrypt, reg: make([]byte, bs), ks: make([]byte, bs)}
}

func (e *cfb8Engine) crypt(dst, src []byte) {
	bs := len(e.reg)
	for i, in := range src {
		e.b.Encrypt(e.ks, e.reg)
		out := in ^ e.ks[0]
		copy(e.reg, e.reg[1:])
		if e.decrypt {
			e.reg[bs-1] = in
		} else {
			e.reg[bs-1] = out
		}
		dst[i] = out
	}
}

func (e *cfb8Engine) reset(iv []byte) error { copy(e.reg, iv); return nil }
func (e *cfb8Engine) wipe()                 { Zeroize(e.reg); Zeroize(e.ks) }

type ofbEngine struct {
	b   cipher.Block
	reg []byte
	pos int
}

func newOFBEngine(b cipher.Block) *ofbEngine {
	bs := b.BlockSize()
	return &ofbEngine{b: b, reg: make([]byte, bs), pos: bs}
}

func (e *ofbEngine) crypt(dst, src []byte) {
	bs := len(e.reg)
	for i, in := range src {
		if e.pos == bs {
			e.b.Encrypt(e.reg, e.reg)
			e.pos = 0
		}
		dst[i] = in ^ e.reg[e.pos]
		e.pos++
	}
}

func (e *ofbEngine) reset(iv []byte) error {
	copy(e.reg, iv)
	e.pos = len(e.reg)
	return nil
}

func (e *ofbEngine) wipe() { Zeroize(e.reg) }

// ctrEngine treats the leading width bytes of the counter block as a
// big-endian counter, wrapping within that field. The trailing bytes stay
// fixed.
type ctrEngine struct {
	b     cipher.Block
	width int
	ctr   []byte
	ks    []byte
	pos   int
}

func newCTREngine(b cipher.Block, width int) *ctrEngine {
	bs := b.BlockSize()
	return &ctrEngine{b: b, width: width, ctr: make([]byte, bs), ks: make([]byte, bs), pos: bs}
}

func (e *ctrEngine) crypt(dst, src []byte) {
	bs := len(e.ctr)
	for i, in := range src {
		if e.pos == bs {
			e.b.Encrypt(e.ks, e.ctr)
			incrementLeadingCounter(e.ctr, e.width)
			e.pos = 0
		}
		dst[i] = in ^ e.ks[e.pos]
		e.pos++
	}
}

func (e *ctrEngine) reset(iv []byte) error {
	copy(e.ctr, iv)
	e.pos = len(e.ctr)
	return nil
}

func (e *ctrEngine) wipe() { Zeroize(e.ctr); Zeroize(e.ks) }

// incrementLeadingCounter adds one to the big-endian field ctr[:width].
func incrementLeadingCounter(ctr []byte, width int) {
	for i := width - 1; i >= 0; i-- {
		ctr[i]++
		if ctr[i] != 0 {
			return
		}
	}
}

// incrementCounter adds one to the trailing width bytes of ctr.
func incrementCounter(ctr []byte, width int) {
	for i := len(ctr) - 1; i >= len(ctr)-width; i-- {
		ctr[i]++
		if ctr[i] != 0 {
			return
		}
	}
}

// streamEngine drives a stream cipher provider. Reset re-keys the
// keystream from the key material and the new nonce.
type streamEngine struct {
	provider StreamCipherProvider
	key      []byte
	s        cipher.Stream
}

func (e *streamEngine) crypt(dst, src []byte) { e.s.XORKeyStream(dst, src) }

func (e *streamEngine) reset(iv []byte) error {
	s, err := e.provider.NewStream(e.key, iv)
	if err != nil {
		return wrapError(ErrProviderFault, err, ErrCodeProvider, "stream cipher rejected key or nonce")
	}
	e.s = s
	return nil
}

func (e *streamEngine) wipe() { e.s = nil }

// newEngine builds the engine for a block cipher key in the given direction.
func newEngine(k *Key, dir Direction) engine {
	dec := dir == Decrypt
	spec := k.params.spec
	switch spec.kind {
	case KindECB:
		return &ecbEngine{b: k.block, decrypt: dec}
	case KindCBC:
		return newCBCEngine(k.block, dec)
	case KindCFB128:
		return newCFBEngine(k.block, dec)
	case KindCFB8:
		return newCFB8Engine(k.block, dec)
	case KindOFB128:
		return newOFBEngine(k.block)
	case KindCTR:
		return newCTREngine(k.block, spec.counterBytes)
	case KindXTS:
		return newXTSEngine(k.block, k.tweak, dec, spec.unitBlocks)
	}
	return nil
}
