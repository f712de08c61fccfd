// pool.go: Default allocator backed by tiered buffer pools
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Allocator supplies the memory that holds key material and intermediate
// cipher state. Free must accept every slice returned by Alloc; the core
// wipes each buffer before freeing it.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(buf []byte)
}

// Pool tiers. Small covers keys, IVs and single blocks; medium covers DRBG
// state and key schedules copied out of providers; large covers bulk
// scratch buffers.
const (
	smallTier  = 64
	mediumTier = 1024
	largeTier  = 16 * 1024
)

// AllocatorStats reports allocator activity.
type AllocatorStats struct {
	Allocs uint64
	Frees  uint64
	InUse  int64
}

// pooledAllocator is the Allocator used when a Config leaves it unset.
type pooledAllocator struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool

	allocs atomic.Uint64
	frees  atomic.Uint64
	inUse  atomic.Int64
}

// NewPooledAllocator returns an allocator that recycles zeroed buffers
// through size-tiered sync.Pools.
func NewPooledAllocator() Allocator {
	p := &pooledAllocator{}
	p.small.New = func() interface{} {
		buf := make([]byte, smallTier)
		return &buf // pointer avoids an allocation on Put (SA6002)
	}
	p.medium.New = func() interface{} {
		buf := make([]byte, mediumTier)
		return &buf
	}
	p.large.New = func() interface{} {
		buf := make([]byte, largeTier)
		return &buf
	}
	return p
}

func (p *pooledAllocator) tier(size int) *sync.Pool {
	switch {
	case size <= smallTier:
		return &p.small
	case size <= mediumTier:
		return &p.medium
	case size <= largeTier:
		return &p.large
	}
	return nil
}

func (p *pooledAllocator) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative allocation size %d", n)
	}
	p.allocs.Add(1)
	p.inUse.Add(1)

	pool := p.tier(n)
	if pool == nil {
		return make([]byte, n), nil
	}
	buf := pool.Get().(*[]byte)
	return (*buf)[:n], nil
}

func (p *pooledAllocator) Free(buf []byte) {
	if buf == nil {
		return
	}
	p.frees.Add(1)
	p.inUse.Add(-1)

	full := buf[:cap(buf)]
	clearBuffer(full)

	// Only buffers with an exact tier capacity go back to a pool.
	switch cap(buf) {
	case smallTier:
		p.small.Put(&full)
	case mediumTier:
		p.medium.Put(&full)
	case largeTier:
		p.large.Put(&full)
	}
}

// Stats returns a snapshot of allocator activity.
func (p *pooledAllocator) Stats() AllocatorStats {
	return AllocatorStats{
		Allocs: p.allocs.Load(),
		Frees:  p.frees.Load(),
		InUse:  p.inUse.Load(),
	}
}

// StatsOf returns the activity counters of an allocator created by
// NewPooledAllocator, and false for any other allocator.
func StatsOf(a Allocator) (AllocatorStats, bool) {
	p, ok := a.(*pooledAllocator)
	if !ok {
		return AllocatorStats{}, false
	}
	return p.Stats(), true
}

// clearBuffer zeroes buf, unrolled over cache lines for large buffers.
func clearBuffer(buf []byte) {
	if len(buf) <= 64 {
		for i := range buf {
			buf[i] = 0
		}
		return
	}

	i := 0
	for i < len(buf)-7 {
		buf[i] = 0
		buf[i+1] = 0
		buf[i+2] = 0
		buf[i+3] = 0
		buf[i+4] = 0
		buf[i+5] = 0
		buf[i+6] = 0
		buf[i+7] = 0
		i += 8
	}
	for i < len(buf) {
		buf[i] = 0
		i++
	}
}
