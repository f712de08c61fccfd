// digest.go: Streaming digest contexts.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"encoding"
	"hash"
)

// DigestContext accumulates input for one hash computation.
type DigestContext struct {
	params *Params
	h      handle
	state  contextState
	hash   hash.Hash
}

// NewDigestContext begins a hash computation.
func (p *Params) NewDigestContext() (*DigestContext, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if err := p.expectClass(ClassDigest); err != nil {
		return nil, err
	}
	return p.attachDigest(p.provider.(DigestProvider).New())
}

func (p *Params) attachDigest(h hash.Hash) (*DigestContext, error) {
	hd, err := p.gc.arena.acquire(kindContext, p.h)
	if err != nil {
		return nil, err
	}
	return &DigestContext{params: p, h: hd, hash: h}, nil
}

// Digest hashes data in one call.
func (p *Params) Digest(data []byte) ([]byte, error) {
	d, err := p.NewDigestContext()
	if err != nil {
		return nil, err
	}
	if err := d.Update(data); err != nil {
		_ = d.Destroy()
		return nil, err
	}
	out, err := allocOut(d.End)
	if err != nil {
		_ = d.Destroy()
		return nil, err
	}
	return out, d.Destroy()
}

func (d *DigestContext) check() error {
	if d == nil {
		return newError(ErrNullContext, ErrCodeNullContext, "digest context is nil")
	}
	if err := d.params.gc.check(); err != nil {
		return err
	}
	switch d.state {
	case stateFinalized:
		return newError(ErrBadState, ErrCodeBadState, "digest context has ended, call Reset to reuse it")
	case stateDestroyed:
		return newError(ErrBadContext, ErrCodeBadContext, "digest context has been destroyed")
	}
	if !d.params.gc.arena.valid(d.h, kindContext) {
		return newError(ErrBadContext, ErrCodeBadContext, "digest context is no longer valid")
	}
	return nil
}

// Size returns the digest length in bytes.
func (d *DigestContext) Size() int { return d.hash.Size() }

// Update absorbs data.
func (d *DigestContext) Update(data []byte) error {
	if err := d.check(); err != nil {
		return err
	}
	d.state = stateAccumulating
	d.hash.Write(data)
	return nil
}

// DigestGet writes the digest of the input so far without finalizing;
// further Update calls continue from the same state.
func (d *DigestContext) DigestGet(dst []byte) (int, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	return sized(dst, d.hash.Size(), func(out []byte) (int, error) {
		sum := d.hash.Sum(nil)
		return copy(out, sum), nil
	})
}

// End writes the final digest and detaches the context. A size query with a
// nil dst does not finalize.
func (d *DigestContext) End(dst []byte) (int, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	return sized(dst, d.hash.Size(), func(out []byte) (int, error) {
		n := copy(out, d.hash.Sum(nil))
		if err := d.params.gc.arena.release(d.h, kindContext); err != nil {
			return 0, err
		}
		d.state = stateFinalized
		return n, nil
	})
}

// Duplicate returns an independent context with the same absorbed input.
// Hash implementations that cannot export their state report
// ErrNotSupported.
func (d *DigestContext) Duplicate() (*DigestContext, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	clone, err := cloneHash(d.hash, d.params.provider.(DigestProvider).New)
	if err != nil {
		return nil, err
	}
	dup, err := d.params.attachDigest(clone)
	if err != nil {
		return nil, err
	}
	dup.state = d.state
	return dup, nil
}

// Reset discards the absorbed input. A finalized context is re-attached to
// its parameter set.
func (d *DigestContext) Reset() error {
	if d == nil {
		return newError(ErrNullContext, ErrCodeNullContext, "digest context is nil")
	}
	if err := d.params.gc.check(); err != nil {
		return err
	}
	switch d.state {
	case stateDestroyed:
		return newError(ErrBadContext, ErrCodeBadContext, "digest context has been destroyed")
	case stateFinalized:
		if err := d.params.check(); err != nil {
			return err
		}
		h, err := d.params.gc.arena.acquire(kindContext, d.params.h)
		if err != nil {
			return err
		}
		d.h = h
	}
	d.hash.Reset()
	d.state = stateIdle
	return nil
}

// Destroy releases the context. Destroying a nil context is a no-op.
func (d *DigestContext) Destroy() error {
	if d == nil {
		return nil
	}
	switch d.state {
	case stateDestroyed:
		return newError(ErrBadContext, ErrCodeBadContext, "digest context already destroyed")
	case stateIdle, stateAccumulating:
		if err := d.params.gc.arena.release(d.h, kindContext); err != nil {
			return err
		}
	}
	d.hash.Reset()
	d.state = stateDestroyed
	return nil
}

// cloneHash copies the internal state of h into a fresh instance.
func cloneHash(h hash.Hash, newHash func() hash.Hash) (hash.Hash, error) {
	m, ok := h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, newError(ErrNotSupported, ErrCodeNotSupported, "hash state cannot be duplicated")
	}
	state, err := m.MarshalBinary()
	if err != nil {
		return nil, wrapError(ErrNotSupported, err, ErrCodeNotSupported, "hash state cannot be duplicated")
	}
	clone := newHash()
	u, ok := clone.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, newError(ErrNotSupported, ErrCodeNotSupported, "hash state cannot be restored")
	}
	if err := u.UnmarshalBinary(state); err != nil {
		return nil, wrapError(ErrNotSupported, err, ErrCodeNotSupported, "hash state cannot be restored")
	}
	return clone, nil
}
