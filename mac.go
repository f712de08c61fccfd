// mac.go: HMAC and CMAC constructions and streaming MAC contexts.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/cipher"
	"fmt"
	"hash"
)

// MACState is the running state of one MAC computation.
type MACState interface {
	Write(p []byte)
	// Sum appends the tag of the input so far to b without changing the state.
	Sum(b []byte) []byte
	Reset()
	Clone() (MACState, error)
	Size() int
}

// hmacState keeps the inner hash live; the outer hash is computed on Sum
// so the state can be cloned through the inner hash alone.
type hmacState struct {
	newHash func() hash.Hash
	inner   hash.Hash
	ipad    []byte
	opad    []byte
}

func newHMACState(newHash func() hash.Hash, blockSize int, key []byte) *hmacState {
	if len(key) > blockSize {
		h := newHash()
		h.Write(key)
		key = h.Sum(nil)
	}
	s := &hmacState{
		newHash: newHash,
		inner:   newHash(),
		ipad:    make([]byte, blockSize),
		opad:    make([]byte, blockSize),
	}
	copy(s.ipad, key)
	copy(s.opad, key)
	for i := range s.ipad {
		s.ipad[i] ^= 0x36
		s.opad[i] ^= 0x5c
	}
	s.inner.Write(s.ipad)
	return s
}

func (s *hmacState) Write(p []byte) { s.inner.Write(p) }

func (s *hmacState) Sum(b []byte) []byte {
	innerSum := s.inner.Sum(nil)
	outer := s.newHash()
	outer.Write(s.opad)
	outer.Write(innerSum)
	return outer.Sum(b)
}

func (s *hmacState) Reset() {
	s.inner.Reset()
	s.inner.Write(s.ipad)
}

func (s *hmacState) Size() int { return s.inner.Size() }

func (s *hmacState) Clone() (MACState, error) {
	inner, err := cloneHash(s.inner, s.newHash)
	if err != nil {
		return nil, err
	}
	return &hmacState{
		newHash: s.newHash,
		inner:   inner,
		ipad:    append([]byte(nil), s.ipad...),
		opad:    append([]byte(nil), s.opad...),
	}, nil
}

// cmacState implements CMAC (NIST SP 800-38B) over a 64 or 128-bit block
// cipher. The last block is held back until Sum because it is masked with
// a subkey.
type cmacState struct {
	b      cipher.Block
	k1, k2 []byte
	x      []byte
	buf    []byte
	nbuf   int
}

func newCMACState(b cipher.Block) (*cmacState, error) {
	bs := b.BlockSize()
	var rb byte
	switch bs {
	case 16:
		rb = 0x87
	case 8:
		rb = 0x1b
	default:
		return nil, newError(ErrBadBlockLen, ErrCodeBadBlockLen, fmt.Sprintf("CMAC needs a 64 or 128-bit block, got %d bytes", bs))
	}
	l := make([]byte, bs)
	b.Encrypt(l, l)
	k1 := cmacDouble(l, rb)
	k2 := cmacDouble(k1, rb)
	Zeroize(l)
	return &cmacState{b: b, k1: k1, k2: k2, x: make([]byte, bs), buf: make([]byte, bs)}, nil
}

// cmacDouble multiplies by x in GF(2^n), big-endian.
func cmacDouble(in []byte, rb byte) []byte {
	out := make([]byte, len(in))
	var carry byte
	for i := len(in) - 1; i >= 0; i-- {
		out[i] = in[i]<<1 | carry
		carry = in[i] >> 7
	}
	if carry != 0 {
		out[len(out)-1] ^= rb
	}
	return out
}

func (s *cmacState) Write(p []byte) {
	bs := len(s.x)
	for len(p) > 0 {
		if s.nbuf == bs {
			xorBytes(s.x, s.x, s.buf)
			s.b.Encrypt(s.x, s.x)
			s.nbuf = 0
		}
		n := copy(s.buf[s.nbuf:], p)
		s.nbuf += n
		p = p[n:]
	}
}

func (s *cmacState) Sum(b []byte) []byte {
	bs := len(s.x)
	last := make([]byte, bs)
	copy(last, s.buf[:s.nbuf])
	if s.nbuf == bs {
		xorBytes(last, last, s.k1)
	} else {
		last[s.nbuf] = 0x80
		xorBytes(last, last, s.k2)
	}
	tag := make([]byte, bs)
	xorBytes(tag, s.x, last)
	s.b.Encrypt(tag, tag)
	return append(b, tag...)
}

func (s *cmacState) Reset() {
	Zeroize(s.x)
	Zeroize(s.buf)
	s.nbuf = 0
}

func (s *cmacState) Size() int { return len(s.x) }

func (s *cmacState) Clone() (MACState, error) {
	return &cmacState{
		b:    s.b,
		k1:   s.k1,
		k2:   s.k2,
		x:    append([]byte(nil), s.x...),
		buf:  append([]byte(nil), s.buf...),
		nbuf: s.nbuf,
	}, nil
}

// MACContext computes or verifies one tag under a MAC key.
type MACContext struct {
	key   *Key
	h     handle
	state contextState
	mac   MACState
}

// NewMACContext begins a MAC computation.
func (k *Key) NewMACContext() (*MACContext, error) {
	if err := k.check(); err != nil {
		return nil, err
	}
	if err := k.params.expectClass(ClassMAC); err != nil {
		return nil, err
	}
	st, err := k.params.provider.(MACProvider).NewMAC(k.material)
	if err != nil {
		return nil, wrapError(ErrProviderFault, err, ErrCodeProvider, "MAC provider rejected key")
	}
	return k.attachMAC(st)
}

func (k *Key) attachMAC(st MACState) (*MACContext, error) {
	h, err := k.params.gc.arena.acquire(kindContext, k.h)
	if err != nil {
		return nil, err
	}
	return &MACContext{key: k, h: h, mac: st}, nil
}

func (m *MACContext) check() error {
	if m == nil {
		return newError(ErrNullContext, ErrCodeNullContext, "mac context is nil")
	}
	if err := m.key.params.gc.check(); err != nil {
		return err
	}
	switch m.state {
	case stateFinalized:
		return newError(ErrBadState, ErrCodeBadState, "mac context has ended, call Reset to reuse it")
	case stateDestroyed:
		return newError(ErrBadContext, ErrCodeBadContext, "mac context has been destroyed")
	}
	if !m.key.params.gc.arena.valid(m.h, kindContext) {
		return newError(ErrBadContext, ErrCodeBadContext, "mac context is no longer valid")
	}
	return nil
}

// Size returns the tag length in bytes.
func (m *MACContext) Size() int { return m.mac.Size() }

// Update absorbs data.
func (m *MACContext) Update(data []byte) error {
	if err := m.check(); err != nil {
		return err
	}
	m.state = stateAccumulating
	m.mac.Write(data)
	return nil
}

// TagGet writes the tag of the input so far without finalizing.
func (m *MACContext) TagGet(dst []byte) (int, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	return sized(dst, m.mac.Size(), func(out []byte) (int, error) {
		return copy(out, m.mac.Sum(nil)), nil
	})
}

func (m *MACContext) finalize() error {
	if err := m.key.params.gc.arena.release(m.h, kindContext); err != nil {
		return err
	}
	m.state = stateFinalized
	return nil
}

// End writes the final tag and detaches the context.
func (m *MACContext) End(dst []byte) (int, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	return sized(dst, m.mac.Size(), func(out []byte) (int, error) {
		n := copy(out, m.mac.Sum(nil))
		if err := m.finalize(); err != nil {
			return 0, err
		}
		return n, nil
	})
}

// Verify compares tag with the computed tag in constant time and
// finalizes the context. A truncated tag is accepted when it is at least
// half the full length, and never shorter than 4 bytes.
func (m *MACContext) Verify(tag []byte) (bool, error) {
	if err := m.check(); err != nil {
		return false, err
	}
	full := m.mac.Size()
	if len(tag) > full || len(tag) < 4 || len(tag) < full/2 {
		return false, newError(ErrBadMACLen, ErrCodeBadMACLen,
			fmt.Sprintf("tag of %d bytes is not acceptable for a %d byte MAC", len(tag), full))
	}
	sum := m.mac.Sum(nil)
	ok := m.key.params.gc.equal(sum[:len(tag)], tag)
	if err := m.finalize(); err != nil {
		return false, err
	}
	return ok, nil
}

// Duplicate returns an independent context with the same absorbed input.
func (m *MACContext) Duplicate() (*MACContext, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	st, err := m.mac.Clone()
	if err != nil {
		return nil, err
	}
	dup, err := m.key.attachMAC(st)
	if err != nil {
		return nil, err
	}
	dup.state = m.state
	return dup, nil
}

// Reset discards the absorbed input. A finalized context is re-attached to
// its key, which must still exist.
func (m *MACContext) Reset() error {
	if m == nil {
		return newError(ErrNullContext, ErrCodeNullContext, "mac context is nil")
	}
	if err := m.key.params.gc.check(); err != nil {
		return err
	}
	switch m.state {
	case stateDestroyed:
		return newError(ErrBadContext, ErrCodeBadContext, "mac context has been destroyed")
	case stateFinalized:
		if err := m.key.check(); err != nil {
			return err
		}
		h, err := m.key.params.gc.arena.acquire(kindContext, m.key.h)
		if err != nil {
			return err
		}
		m.h = h
	}
	m.mac.Reset()
	m.state = stateIdle
	return nil
}

// Destroy releases the context. Destroying a nil context is a no-op.
func (m *MACContext) Destroy() error {
	if m == nil {
		return nil
	}
	switch m.state {
	case stateDestroyed:
		return newError(ErrBadContext, ErrCodeBadContext, "mac context already destroyed")
	case stateIdle, stateAccumulating:
		if err := m.key.params.gc.arena.release(m.h, kindContext); err != nil {
			return err
		}
	}
	m.mac.Reset()
	m.state = stateDestroyed
	return nil
}

// MAC computes the tag of data in one call.
func (k *Key) MAC(data []byte) ([]byte, error) {
	m, err := k.NewMACContext()
	if err != nil {
		return nil, err
	}
	if err := m.Update(data); err != nil {
		_ = m.Destroy()
		return nil, err
	}
	tag, err := allocOut(m.End)
	if err != nil {
		_ = m.Destroy()
		return nil, err
	}
	return tag, m.Destroy()
}
