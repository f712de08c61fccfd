// lifecycle.go: Handle arena tracking live resources and their dependents.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import "sync"

// resourceKind tags what an arena slot holds.
type resourceKind uint8

const (
	kindParams resourceKind = iota + 1
	kindKey
	kindContext
	kindRNG
)

func (k resourceKind) String() string {
	switch k {
	case kindParams:
		return "params"
	case kindKey:
		return "key"
	case kindContext:
		return "context"
	case kindRNG:
		return "rng"
	}
	return "unknown"
}

// handle is a generation-checked index into the arena. The zero handle is
// never valid because generations start at 1.
type handle struct {
	index uint32
	gen   uint32
}

type slot struct {
	gen      uint32
	kind     resourceKind
	live     bool
	children int
	parents  []handle
}

// arena owns the lifecycle bookkeeping of one GlobalContext. A resource can
// only be released once every resource created from it is gone, so a
// destroy can never leave a dangling dependent behind.
type arena struct {
	mu    sync.Mutex
	slots []slot
	free  []uint32
	live  int
}

func (a *arena) validLocked(h handle, kind resourceKind) bool {
	if int(h.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.index]
	return s.live && s.gen == h.gen && s.kind == kind
}

// acquire allocates a slot of the given kind depending on parents. Every
// parent must still be live.
func (a *arena) acquire(kind resourceKind, parents ...handle) (handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range parents {
		if int(p.index) >= len(a.slots) || !a.slots[p.index].live || a.slots[p.index].gen != p.gen {
			return handle{}, staleHandle(kindOf(a, p))
		}
	}

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.kind = kind
	s.live = true
	s.children = 0
	s.parents = append(s.parents[:0], parents...)
	for _, p := range parents {
		a.slots[p.index].children++
	}
	a.live++
	return handle{index: idx, gen: s.gen}, nil
}

func kindOf(a *arena, h handle) resourceKind {
	if int(h.index) < len(a.slots) {
		return a.slots[h.index].kind
	}
	return 0
}

func (a *arena) valid(h handle, kind resourceKind) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.validLocked(h, kind)
}

// release frees the slot. It fails with ErrResourceInUse while dependents
// remain and with the kind's Bad error when the handle is stale.
func (a *arena) release(h handle, kind resourceKind) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.validLocked(h, kind) {
		return staleHandle(kind)
	}
	s := &a.slots[h.index]
	if s.children > 0 {
		return newError(ErrResourceInUse, ErrCodeResourceInUse,
			kind.String()+" still has dependent resources")
	}
	for _, p := range s.parents {
		a.slots[p.index].children--
	}
	s.parents = s.parents[:0]
	s.live = false
	s.gen++
	a.free = append(a.free, h.index)
	a.live--
	return nil
}

func (a *arena) liveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

func (a *arena) children(h handle) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(h.index) >= len(a.slots) || a.slots[h.index].gen != h.gen {
		return 0
	}
	return a.slots[h.index].children
}

func staleHandle(kind resourceKind) error {
	switch kind {
	case kindParams:
		return newError(ErrBadParams, ErrCodeBadParams, "parameter set has been destroyed")
	case kindKey:
		return newError(ErrBadKey, ErrCodeBadKey, "key has been destroyed")
	case kindRNG:
		return newError(ErrBadRNG, ErrCodeBadRNG, "rng has been destroyed")
	default:
		return newError(ErrBadContext, ErrCodeBadContext, "context has been destroyed or finalized")
	}
}
