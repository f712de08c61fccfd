// global.go: Global context owning the registry, allocator and resource arena.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	timecache "github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// Clock supplies the date/time source consulted by X9.31 generation and
// key creation timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

type cachedClock struct{}

func (cachedClock) Now() time.Time { return timecache.CachedTime() }

// Config carries the platform hooks of a GlobalContext. Nil fields take
// defaults, see Create.
type Config struct {
	// Allocator holds key material and cipher state. Default: NewPooledAllocator().
	Allocator Allocator
	// Clock default: go-timecache cached time.
	Clock Clock
	// Compare must run in time independent of the contents of a and b.
	// Default: crypto/subtle.ConstantTimeCompare.
	Compare func(a, b []byte) bool
	// Wipe overwrites secret buffers before they are freed. Default: Zeroize.
	Wipe func(b []byte)
	// Entropy seeds deterministic random generators. Default: crypto/rand.Reader.
	Entropy io.Reader
	// RNGLock, when set, guards every RNG created in the context.
	RNGLock RNGLock
	// Logger receives lifecycle events. Default: a discarding logger.
	Logger *slog.Logger
}

// GlobalContext is the root of every resource. It owns a capability
// registry, the platform hooks and the arena tracking live parameter sets,
// keys, operation contexts and random generators.
//
// Registration and lookup are safe for concurrent use. Individual
// operation contexts are not.
type GlobalContext struct {
	id     uuid.UUID
	origin uuid.UUID

	alloc   Allocator
	clock   Clock
	compare func(a, b []byte) bool
	wipe    func(b []byte)
	entropy io.Reader
	rngLock RNGLock
	log     *slog.Logger

	reg       *registry
	arena     arena
	destroyed atomic.Bool
}

// CreateDefault returns a global context with default hooks and an empty
// registry.
func CreateDefault() (*GlobalContext, error) {
	return Create(nil)
}

// Create returns a global context configured by cfg. A nil cfg is the same
// as an empty Config. The context starts with no providers registered.
func Create(cfg *Config) (*GlobalContext, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Allocator == nil {
		c.Allocator = NewPooledAllocator()
	}
	if c.Clock == nil {
		c.Clock = cachedClock{}
	}
	if c.Compare == nil {
		c.Compare = func(a, b []byte) bool { return subtle.ConstantTimeCompare(a, b) == 1 }
	}
	if c.Wipe == nil {
		c.Wipe = Zeroize
	}
	if c.Entropy == nil {
		c.Entropy = rand.Reader
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Fail closed if the allocator cannot serve a single block.
	trial, err := c.Allocator.Alloc(smallTier)
	if err != nil {
		return nil, wrapError(ErrAllocFailure, err, ErrCodeAlloc, "allocator rejected initial allocation")
	}
	c.Allocator.Free(trial)

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, wrapError(ErrAllocFailure, err, ErrCodeAlloc, "failed to allocate context identifier")
	}

	gc := &GlobalContext{
		id:      id,
		origin:  id,
		alloc:   c.Allocator,
		clock:   c.Clock,
		compare: c.Compare,
		wipe:    c.Wipe,
		entropy: c.Entropy,
		rngLock: c.RNGLock,
		log:     c.Logger.With("context", id.String()),
		reg:     newRegistry(),
	}
	gc.log.Debug("global context created")
	return gc, nil
}

func (gc *GlobalContext) check() error {
	if gc == nil {
		return newError(ErrNullGlobal, ErrCodeNullGlobal, "global context is nil")
	}
	if gc.destroyed.Load() {
		return newError(ErrBadGlobal, ErrCodeBadGlobal, "global context has been destroyed")
	}
	return nil
}

// ID returns the unique identifier of the context.
func (gc *GlobalContext) ID() string {
	if gc == nil {
		return ""
	}
	return gc.id.String()
}

// Register adds providers to the registry. Registering a capability that is
// already present is a successful no-op and keeps the first provider.
func (gc *GlobalContext) Register(providers ...Provider) error {
	if err := gc.check(); err != nil {
		return err
	}
	for _, p := range providers {
		added, err := gc.reg.add(p)
		if err != nil {
			return err
		}
		if added {
			gc.log.Debug("provider registered", "capability", p.Capability().String(), "provider", p.Name())
		}
	}
	return nil
}

// Lookup returns the provider registered for c.
func (gc *GlobalContext) Lookup(c Capability) (Provider, bool) {
	if gc.check() != nil {
		return nil, false
	}
	return gc.reg.lookup(c)
}

// Capabilities lists the registered capability tags.
func (gc *GlobalContext) Capabilities() []Capability {
	if gc.check() != nil {
		return nil
	}
	return gc.reg.list()
}

func (gc *GlobalContext) provider(c Capability) (Provider, error) {
	p, ok := gc.reg.lookup(c)
	if !ok {
		return nil, newError(ErrNoProvider, ErrCodeNoProvider, "no provider registered for "+c.String())
	}
	return p, nil
}

// DuplicateWithoutCrypto returns a new context with the same hooks and an
// empty registry. The copy remembers its source so CopyCrypto can later
// fill it.
func (gc *GlobalContext) DuplicateWithoutCrypto() (*GlobalContext, error) {
	if err := gc.check(); err != nil {
		return nil, err
	}
	dup, err := Create(&Config{
		Allocator: gc.alloc,
		Clock:     gc.clock,
		Compare:   gc.compare,
		Wipe:      gc.wipe,
		Entropy:   gc.entropy,
		RNGLock:   gc.rngLock,
		Logger:    gc.log,
	})
	if err != nil {
		return nil, err
	}
	dup.origin = gc.id
	return dup, nil
}

// CopyCrypto copies every registration of gc into dst, which must have been
// produced by gc.DuplicateWithoutCrypto.
func (gc *GlobalContext) CopyCrypto(dst *GlobalContext) error {
	if err := gc.check(); err != nil {
		return err
	}
	if err := dst.check(); err != nil {
		return err
	}
	if dst.origin != gc.id || dst == gc {
		return newError(ErrBadGlobal, ErrCodeBadGlobal, "destination was not duplicated from this context")
	}
	gc.reg.copyTo(dst.reg)
	return nil
}

// Destroy releases the context. It fails with ErrResourceInUse while any
// parameter set, key, operation context or RNG created from it is live.
// Destroying a nil context is a no-op.
func (gc *GlobalContext) Destroy() error {
	if gc == nil {
		return nil
	}
	if gc.destroyed.Load() {
		return newError(ErrBadGlobal, ErrCodeBadGlobal, "global context already destroyed")
	}
	if n := gc.arena.liveCount(); n > 0 {
		gc.log.Warn("global context destroy refused", "live", n)
		return newError(ErrResourceInUse, ErrCodeResourceInUse, "global context still owns live resources")
	}
	if !gc.destroyed.CompareAndSwap(false, true) {
		return newError(ErrBadGlobal, ErrCodeBadGlobal, "global context already destroyed")
	}
	gc.log.Debug("global context destroyed")
	return nil
}

// LiveResources reports how many resources created from the context have
// not yet been destroyed.
func (gc *GlobalContext) LiveResources() int {
	if gc == nil {
		return 0
	}
	return gc.arena.liveCount()
}

// allocSecret allocates a buffer for secret state through the configured
// allocator.
func (gc *GlobalContext) allocSecret(n int) ([]byte, error) {
	buf, err := gc.alloc.Alloc(n)
	if err != nil {
		return nil, wrapError(ErrAllocFailure, err, ErrCodeAlloc, "allocator failed")
	}
	if len(buf) != n {
		return nil, newError(ErrAllocFailure, ErrCodeAlloc, "allocator returned a short buffer")
	}
	return buf, nil
}

// freeSecret wipes and frees a buffer from allocSecret.
func (gc *GlobalContext) freeSecret(buf []byte) {
	if buf == nil {
		return
	}
	gc.wipe(buf)
	gc.alloc.Free(buf)
}

func (gc *GlobalContext) equal(a, b []byte) bool {
	return gc.compare(a, b)
}

func (gc *GlobalContext) now() time.Time {
	return gc.clock.Now()
}
