// rng.go: Random generator resources.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"io"
	"sync"
)

// RandomSource is a pluggable generator. Init receives the optional seed
// or personalization string; GetBytes fills dst, mixing in optional
// additional input; Reseed adds fresh seed material on top of the current
// state.
type RandomSource interface {
	Init(seed []byte) error
	GetBytes(dst, additional []byte) error
	Reseed(seed []byte) error
	End() error
}

// RNGLock brackets every use of a generator. Lock and Unlock failures are
// reported as ErrRNGLock.
type RNGLock interface {
	Lock() error
	Unlock() error
}

// MutexLock is an RNGLock over a sync.Mutex, for generators shared by
// several goroutines.
type MutexLock struct {
	mu sync.Mutex
}

// Lock acquires the mutex.
func (l *MutexLock) Lock() error {
	l.mu.Lock()
	return nil
}

// Unlock releases the mutex.
func (l *MutexLock) Unlock() error {
	l.mu.Unlock()
	return nil
}

// RNGEnv is what a generator mechanism may draw on.
type RNGEnv struct {
	Entropy io.Reader
	Clock   Clock
}

// rngChunk is the largest request passed to a source in one call, the
// SP 800-90A per-request limit of 2^19 bits.
const rngChunk = 1 << 16

// RNG is a random generator owned by a GlobalContext. It implements
// io.Reader so it can drive standard library key generation.
type RNG struct {
	gc   *GlobalContext
	h    handle
	src  RandomSource
	name string

	mu    sync.Mutex
	lock  RNGLock
	yield Yielder
}

// CreateRNG instantiates the registered generator mechanism alg. seed is
// used as the personalization string and may be nil.
func (gc *GlobalContext) CreateRNG(alg Algorithm, seed []byte) (*RNG, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	p, err := gc.provider(RNGCapability(alg))
	if err != nil {
		return nil, err
	}
	src := p.(RNGProvider).NewSource(RNGEnv{Entropy: gc.entropy, Clock: gc.clock})
	return gc.attachRNG(src, seed, p.Name())
}

// CreateCustomRNG wraps a caller-supplied generator.
func (gc *GlobalContext) CreateCustomRNG(src RandomSource, seed []byte) (*RNG, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, newError(ErrNullRNG, ErrCodeNullRNG, "random source is nil")
	}
	return gc.attachRNG(src, seed, "custom")
}

func (gc *GlobalContext) attachRNG(src RandomSource, seed []byte, name string) (*RNG, error) {
	if err := src.Init(seed); err != nil {
		return nil, wrapError(ErrRNGFailure, err, ErrCodeRNG, "random source initialization failed")
	}
	h, err := gc.arena.acquire(kindRNG)
	if err != nil {
		_ = src.End()
		return nil, err
	}
	gc.log.Debug("rng created", "mechanism", name)
	return &RNG{gc: gc, h: h, src: src, name: name, lock: gc.rngLock}, nil
}

func (r *RNG) check() error {
	if r == nil {
		return newError(ErrNullRNG, ErrCodeNullRNG, "rng is nil")
	}
	if err := r.gc.check(); err != nil {
		return err
	}
	if !r.gc.arena.valid(r.h, kindRNG) {
		return newError(ErrBadRNG, ErrCodeBadRNG, "rng has been destroyed")
	}
	return nil
}

// SetLock replaces the critical-section hooks. A nil lock removes them.
func (r *RNG) SetLock(l RNGLock) error {
	if err := r.check(); err != nil {
		return err
	}
	r.mu.Lock()
	r.lock = l
	r.mu.Unlock()
	return nil
}

func (r *RNG) locked(fn func() error) error {
	r.mu.Lock()
	l := r.lock
	r.mu.Unlock()

	if l != nil {
		if err := l.Lock(); err != nil {
			return wrapError(ErrRNGLock, err, ErrCodeRNGLock, "rng lock failed")
		}
	}
	ferr := fn()
	if l != nil {
		if err := l.Unlock(); err != nil && ferr == nil {
			return wrapError(ErrRNGLock, err, ErrCodeRNGLock, "rng unlock failed")
		}
	}
	return ferr
}

// SetYield installs a yield callback invoked between the chunks of large
// requests.
func (r *RNG) SetYield(y Yielder) error {
	if err := r.check(); err != nil {
		return err
	}
	r.mu.Lock()
	r.yield = y
	r.mu.Unlock()
	return nil
}

// GetBytes fills dst with random bytes. additional is optional input mixed
// into the generation. Requests above 64 KiB are served in chunks; on
// error dst is wiped.
func (r *RNG) GetBytes(dst, additional []byte) error {
	if err := r.check(); err != nil {
		return err
	}
	r.mu.Lock()
	y := r.yield
	r.mu.Unlock()

	err := r.locked(func() error {
		for off := 0; off < len(dst) || off == 0; off += rngChunk {
			if off > 0 {
				if err := yieldPoint(y); err != nil {
					return err
				}
			}
			end := min(off+rngChunk, len(dst))
			if err := r.src.GetBytes(dst[off:end], additional); err != nil {
				return wrapError(ErrRNGFailure, err, ErrCodeRNG, "random generation failed")
			}
			if end == len(dst) {
				break
			}
		}
		return nil
	})
	if err != nil {
		Zeroize(dst)
	}
	return err
}

// Read implements io.Reader.
func (r *RNG) Read(p []byte) (int, error) {
	if err := r.GetBytes(p, nil); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Reseed mixes seed into the generator state.
func (r *RNG) Reseed(seed []byte) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.locked(func() error {
		if err := r.src.Reseed(seed); err != nil {
			return wrapError(ErrRNGFailure, err, ErrCodeRNG, "reseed failed")
		}
		return nil
	})
}

// Destroy releases the generator. It fails with ErrResourceInUse while a
// parameter set holds it. Destroying a nil RNG is a no-op.
func (r *RNG) Destroy() error {
	if r == nil {
		return nil
	}
	if err := r.gc.check(); err != nil {
		return err
	}
	if err := r.gc.arena.release(r.h, kindRNG); err != nil {
		return err
	}
	if err := r.src.End(); err != nil {
		return wrapError(ErrRNGFailure, err, ErrCodeRNG, "random source teardown failed")
	}
	return nil
}

// Name returns the mechanism name, "custom" for caller-supplied sources.
func (r *RNG) Name() string { return r.name }
