// gcm.go: Galois/Counter Mode (NIST SP 800-38D).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/cipher"
	"encoding/binary"
)

// gfElement is a GF(2^128) element in GCM bit order: bit 0 of the field
// element is the most significant bit of hi.
type gfElement struct {
	hi, lo uint64
}

func gfLoad(b []byte) gfElement {
	return gfElement{hi: binary.BigEndian.Uint64(b[0:8]), lo: binary.BigEndian.Uint64(b[8:16])}
}

func (x gfElement) store(b []byte) {
	binary.BigEndian.PutUint64(b[0:8], x.hi)
	binary.BigEndian.PutUint64(b[8:16], x.lo)
}

// gfMul multiplies in GF(2^128) with the GCM polynomial, bit by bit
// without data-dependent branches.
func gfMul(x, y gfElement) gfElement {
	var z gfElement
	v := y
	for i := 0; i < 128; i++ {
		var bit uint64
		if i < 64 {
			bit = (x.hi >> (63 - i)) & 1
		} else {
			bit = (x.lo >> (127 - i)) & 1
		}
		mask := -bit
		z.hi ^= v.hi & mask
		z.lo ^= v.lo & mask

		lsb := v.lo & 1
		v.lo = v.lo>>1 | v.hi<<63
		v.hi >>= 1
		v.hi ^= 0xe100000000000000 & -lsb
	}
	return z
}

// ghash absorbs data in 16 byte blocks, zero-padding a trailing partial
// block only when flush is called.
type ghash struct {
	h    gfElement
	y    gfElement
	buf  [16]byte
	nbuf int
}

func (g *ghash) write(p []byte) {
	for len(p) > 0 {
		n := copy(g.buf[g.nbuf:], p)
		g.nbuf += n
		p = p[n:]
		if g.nbuf == 16 {
			g.block(g.buf[:])
			g.nbuf = 0
		}
	}
}

func (g *ghash) block(b []byte) {
	x := gfLoad(b)
	g.y.hi ^= x.hi
	g.y.lo ^= x.lo
	g.y = gfMul(g.y, g.h)
}

func (g *ghash) flush() {
	if g.nbuf == 0 {
		return
	}
	for i := g.nbuf; i < 16; i++ {
		g.buf[i] = 0
	}
	g.block(g.buf[:])
	g.nbuf = 0
}

type gcmEngine struct {
	b      cipher.Block
	macLen int
	g      ghash
	j0     [16]byte
	ctr    [16]byte
	ks     [16]byte
	pos    int

	aadLen, ctLen uint64
}

func newGCMEngine(b cipher.Block, nonce []byte, macLen int) *gcmEngine {
	e := &gcmEngine{b: b, macLen: macLen, pos: 16}
	var h [16]byte
	b.Encrypt(h[:], h[:])
	e.g.h = gfLoad(h[:])

	if len(nonce) == 12 {
		copy(e.j0[:], nonce)
		e.j0[15] = 1
	} else {
		var j ghash
		j.h = e.g.h
		j.write(nonce)
		j.flush()
		var lens [16]byte
		binary.BigEndian.PutUint64(lens[8:], uint64(len(nonce))*8)
		j.block(lens[:])
		j.y.store(e.j0[:])
	}
	e.ctr = e.j0
	gcmInc32(&e.ctr)
	return e
}

func gcmInc32(ctr *[16]byte) {
	binary.BigEndian.PutUint32(ctr[12:], binary.BigEndian.Uint32(ctr[12:])+1)
}

func (e *gcmEngine) authenticate(aad []byte) {
	e.aadLen += uint64(len(aad))
	e.g.write(aad)
}

func (e *gcmEngine) finishAAD() { e.g.flush() }

func (e *gcmEngine) keystream(dst, src []byte) {
	for i, in := range src {
		if e.pos == 16 {
			e.b.Encrypt(e.ks[:], e.ctr[:])
			gcmInc32(&e.ctr)
			e.pos = 0
		}
		dst[i] = in ^ e.ks[e.pos]
		e.pos++
	}
}

func (e *gcmEngine) crypt(dst, src []byte, decrypt bool) {
	e.ctLen += uint64(len(src))
	if decrypt {
		e.g.write(src)
		e.keystream(dst, src)
		return
	}
	e.keystream(dst, src)
	e.g.write(dst[:len(src)])
}

func (e *gcmEngine) tag(out []byte) {
	e.g.flush()
	var lens [16]byte
	binary.BigEndian.PutUint64(lens[0:8], e.aadLen*8)
	binary.BigEndian.PutUint64(lens[8:16], e.ctLen*8)
	e.g.block(lens[:])

	var s, t [16]byte
	e.g.y.store(s[:])
	e.b.Encrypt(t[:], e.j0[:])
	xorBytes(t[:], t[:], s[:])
	copy(out, t[:e.macLen])
}

func (e *gcmEngine) wipe() {
	Zeroize(e.ks[:])
	Zeroize(e.ctr[:])
	Zeroize(e.g.buf[:])
	e.g.y = gfElement{}
	e.g.h = gfElement{}
}
