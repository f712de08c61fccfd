// ccm.go: Counter with CBC-MAC (RFC 3610) and its CCM* profile.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

type ccmEngine struct {
	b      cipher.Block
	macLen int
	l      int

	// CBC-MAC over B0, the encoded AAD and the plaintext.
	x    [16]byte
	buf  [16]byte
	nbuf int

	ctr [16]byte
	ks  [16]byte
	pos int
	s0  [16]byte
}

// newCCMEngine formats B0 and the counter blocks. Lengths are mandatory
// because B0 encodes them.
func newCCMEngine(b cipher.Block, nonce []byte, macLen int, aadLen, payloadLen int64) (*ccmEngine, error) {
	if len(nonce) < 7 || len(nonce) > 13 {
		return nil, newError(ErrBadNonceLen, ErrCodeBadNonceLen,
			fmt.Sprintf("CCM nonce must be 7 to 13 bytes, got %d", len(nonce)))
	}
	l := 15 - len(nonce)
	if l < 8 && uint64(payloadLen) >= uint64(1)<<(8*uint(l)) {
		return nil, newError(ErrBadInputLength, ErrCodeBadInputLen,
			fmt.Sprintf("payload of %d bytes does not fit a %d byte length field", payloadLen, l))
	}
	e := &ccmEngine{b: b, macLen: macLen, l: l, pos: 16}

	var b0 [16]byte
	flags := byte(l - 1)
	if macLen > 0 {
		flags |= byte((macLen-2)/2) << 3
	}
	if aadLen > 0 {
		flags |= 0x40
	}
	b0[0] = flags
	copy(b0[1:], nonce)
	putCCMLength(b0[16-l:], uint64(payloadLen))
	b.Encrypt(e.x[:], b0[:])

	if aadLen > 0 {
		e.mac(ccmAADPrefix(uint64(aadLen)))
	}

	e.ctr[0] = byte(l - 1)
	copy(e.ctr[1:], nonce)
	b.Encrypt(e.s0[:], e.ctr[:])
	e.ctr[15] = 1
	return e, nil
}

func putCCMLength(dst []byte, n uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(n)
		n >>= 8
	}
}

// ccmAADPrefix encodes the AAD length as RFC 3610 section 2.2 specifies.
func ccmAADPrefix(n uint64) []byte {
	switch {
	case n < 0xFF00:
		return []byte{byte(n >> 8), byte(n)}
	case n <= 0xFFFFFFFF:
		out := []byte{0xFF, 0xFE, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(out[2:], uint32(n))
		return out
	default:
		out := make([]byte, 10)
		out[0], out[1] = 0xFF, 0xFF
		binary.BigEndian.PutUint64(out[2:], n)
		return out
	}
}

func (e *ccmEngine) mac(p []byte) {
	for len(p) > 0 {
		n := copy(e.buf[e.nbuf:], p)
		e.nbuf += n
		p = p[n:]
		if e.nbuf == 16 {
			xorBytes(e.x[:], e.x[:], e.buf[:])
			e.b.Encrypt(e.x[:], e.x[:])
			e.nbuf = 0
		}
	}
}

func (e *ccmEngine) macFlush() {
	if e.nbuf == 0 {
		return
	}
	for i := e.nbuf; i < 16; i++ {
		e.buf[i] = 0
	}
	xorBytes(e.x[:], e.x[:], e.buf[:])
	e.b.Encrypt(e.x[:], e.x[:])
	e.nbuf = 0
}

func (e *ccmEngine) authenticate(aad []byte) { e.mac(aad) }

func (e *ccmEngine) finishAAD() { e.macFlush() }

func (e *ccmEngine) keystream(dst, src []byte) {
	for i, in := range src {
		if e.pos == 16 {
			e.b.Encrypt(e.ks[:], e.ctr[:])
			incrementCounter(e.ctr[:], e.l)
			e.pos = 0
		}
		dst[i] = in ^ e.ks[e.pos]
		e.pos++
	}
}

func (e *ccmEngine) crypt(dst, src []byte, decrypt bool) {
	if decrypt {
		e.keystream(dst, src)
		e.mac(dst[:len(src)])
		return
	}
	e.mac(src)
	e.keystream(dst, src)
}

func (e *ccmEngine) tag(out []byte) {
	e.macFlush()
	for i := 0; i < e.macLen; i++ {
		out[i] = e.x[i] ^ e.s0[i]
	}
}

func (e *ccmEngine) wipe() {
	Zeroize(e.x[:])
	Zeroize(e.buf[:])
	Zeroize(e.ks[:])
	Zeroize(e.s0[:])
}
