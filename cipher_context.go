// cipher_context.go: Streaming encryption and decryption contexts.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import "fmt"

type contextState uint8

const (
	stateIdle contextState = iota
	stateAccumulating
	stateFinalized
	stateDestroyed
)

// CipherContext is one streaming encryption or decryption under a block
// or stream cipher key.
//
// Update may be called any number of times with inputs of any length;
// modes that only process whole blocks (ECB, CBC, XTS) buffer the trailing
// partial block internally, so splitting the input differently never
// changes the output. End fails with ErrBadInputLength if such a partial
// block remains.
//
// A CipherContext is not safe for concurrent use.
type CipherContext struct {
	key   *Key
	h     handle
	dir   Direction
	state contextState

	eng      engine
	aligned  bool
	blockLen int

	partial  []byte
	npartial int
}

// NewCipherContext begins an operation in direction dir. iv must have the
// length reported by Params.IVLen; ECB takes none. For XTS build iv with
// XTSIV.
func (k *Key) NewCipherContext(dir Direction, iv []byte) (*CipherContext, error) {
	if err := k.check(); err != nil {
		return nil, err
	}
	if err := k.permits(dir); err != nil {
		return nil, err
	}
	p := k.params
	if err := p.expectClass(ClassBlockCipher, ClassStreamCipher); err != nil {
		return nil, err
	}

	c := &CipherContext{key: k, dir: dir}
	switch p.cap.Class {
	case ClassBlockCipher:
		if p.spec.kind == KindKeyWrap {
			return nil, badMode(p.mode, "key wrap is a single-shot operation, use Key.Wrap")
		}
		c.eng = newEngine(k, dir)
		c.aligned = p.spec.aligned()
		c.blockLen = p.blockLen
	case ClassStreamCipher:
		c.eng = &streamEngine{provider: p.provider.(StreamCipherProvider), key: k.material}
		c.blockLen = 1
	}
	if err := c.checkIV(iv); err != nil {
		return nil, err
	}
	if err := c.eng.reset(iv); err != nil {
		return nil, err
	}

	if c.aligned {
		buf, err := p.gc.allocSecret(c.blockLen)
		if err != nil {
			return nil, err
		}
		c.partial = buf
	}

	h, err := p.gc.arena.acquire(kindContext, k.h)
	if err != nil {
		p.gc.freeSecret(c.partial)
		return nil, err
	}
	c.h = h
	return c, nil
}

func (c *CipherContext) checkIV(iv []byte) error {
	want := c.key.params.IVLen()
	if len(iv) != want {
		return newError(ErrBadIV, ErrCodeBadIV, fmt.Sprintf("iv must be %d bytes, got %d", want, len(iv)))
	}
	return nil
}

// check validates the context for Update and End.
func (c *CipherContext) check() error {
	if c == nil {
		return newError(ErrNullContext, ErrCodeNullContext, "cipher context is nil")
	}
	if err := c.key.params.gc.check(); err != nil {
		return err
	}
	switch c.state {
	case stateFinalized:
		return newError(ErrBadState, ErrCodeBadState, "cipher context has ended, call Reset to reuse it")
	case stateDestroyed:
		return newError(ErrBadContext, ErrCodeBadContext, "cipher context has been destroyed")
	}
	if !c.key.params.gc.arena.valid(c.h, kindContext) {
		return newError(ErrBadContext, ErrCodeBadContext, "cipher context is no longer valid")
	}
	return nil
}

// outputLen is the number of bytes Update(src) emits.
func (c *CipherContext) outputLen(n int) int {
	if !c.aligned {
		return n
	}
	return (c.npartial + n) / c.blockLen * c.blockLen
}

// Update processes src and writes the output to dst, following the sizing
// convention: with dst == nil it only reports how many bytes would be
// written. dst may be src itself for in-place operation.
func (c *CipherContext) Update(dst, src []byte) (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	required := c.outputLen(len(src))
	return sized(dst, required, func(out []byte) (int, error) {
		c.state = stateAccumulating
		if !c.aligned {
			c.eng.crypt(out, src)
			return len(src), nil
		}
		return c.updateAligned(out, src)
	})
}

func (c *CipherContext) updateAligned(out, src []byte) (int, error) {
	bs := c.blockLen
	in := src
	// Output lags input by npartial bytes, so in-place calls would overwrite
	// unread input. Work from a private copy instead.
	if c.npartial > 0 && len(out) > 0 {
		tmp, err := c.key.params.gc.allocSecret(len(src))
		if err != nil {
			return 0, err
		}
		defer c.key.params.gc.freeSecret(tmp)
		copy(tmp, src)
		in = tmp
	}

	written := 0
	if c.npartial > 0 {
		n := copy(c.partial[c.npartial:], in)
		c.npartial += n
		in = in[n:]
		if c.npartial < bs {
			return 0, nil
		}
		c.eng.crypt(out[:bs], c.partial)
		c.npartial = 0
		written = bs
	}

	full := len(in) / bs * bs
	if full > 0 {
		c.eng.crypt(out[written:written+full], in[:full])
		written += full
	}
	c.npartial = copy(c.partial, in[full:])
	return written, nil
}

// UpdateAlloc is Update into a newly allocated buffer owned by the caller.
func (c *CipherContext) UpdateAlloc(src []byte) ([]byte, error) {
	return allocOut(func(dst []byte) (int, error) { return c.Update(dst, src) })
}

// Pending returns the number of buffered input bytes not yet processed.
func (c *CipherContext) Pending() int {
	if c == nil {
		return 0
	}
	return c.npartial
}

// End finalizes the operation. The context is detached from its key and
// can only be reset or destroyed afterwards.
func (c *CipherContext) End() error {
	if err := c.check(); err != nil {
		return err
	}
	if c.aligned && c.npartial != 0 {
		return newError(ErrBadInputLength, ErrCodeBadInputLen,
			fmt.Sprintf("%d trailing bytes do not fill a %d byte block", c.npartial, c.blockLen))
	}
	if err := c.key.params.gc.arena.release(c.h, kindContext); err != nil {
		return err
	}
	c.eng.wipe()
	c.state = stateFinalized
	return nil
}

// Reset returns the context to its freshly created state with a new iv,
// reusing the key schedule. A finalized context is re-attached to its key,
// which must still exist.
func (c *CipherContext) Reset(iv []byte) error {
	if c == nil {
		return newError(ErrNullContext, ErrCodeNullContext, "cipher context is nil")
	}
	gc := c.key.params.gc
	if err := gc.check(); err != nil {
		return err
	}
	if c.state == stateDestroyed {
		return newError(ErrBadContext, ErrCodeBadContext, "cipher context has been destroyed")
	}
	if err := c.checkIV(iv); err != nil {
		return err
	}
	if c.state == stateFinalized {
		if err := c.key.check(); err != nil {
			return err
		}
		h, err := gc.arena.acquire(kindContext, c.key.h)
		if err != nil {
			return err
		}
		if err := c.eng.reset(iv); err != nil {
			_ = gc.arena.release(h, kindContext)
			return err
		}
		c.h = h
	} else if err := c.eng.reset(iv); err != nil {
		return err
	}

	if c.partial != nil {
		Zeroize(c.partial)
	}
	c.npartial = 0
	c.state = stateIdle
	return nil
}

// Destroy releases the context whatever its state. Destroying a nil
// context is a no-op.
func (c *CipherContext) Destroy() error {
	if c == nil {
		return nil
	}
	gc := c.key.params.gc
	switch c.state {
	case stateDestroyed:
		return newError(ErrBadContext, ErrCodeBadContext, "cipher context already destroyed")
	case stateIdle, stateAccumulating:
		if err := gc.arena.release(c.h, kindContext); err != nil {
			return err
		}
	}
	c.eng.wipe()
	gc.freeSecret(c.partial)
	c.partial = nil
	c.npartial = 0
	c.state = stateDestroyed
	return nil
}

// Direction returns the direction the context was created for.
func (c *CipherContext) Direction() Direction { return c.dir }
