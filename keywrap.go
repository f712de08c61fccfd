// keywrap.go: AES key wrap (RFC 3394).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"encoding/binary"
	"fmt"
)

// DefaultKeyWrapIV is the initial value of RFC 3394 section 2.2.3.1.
var DefaultKeyWrapIV = []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

const keyWrapRounds = 6

func (k *Key) checkKeyWrap(dir Direction, iv []byte) error {
	if err := k.check(); err != nil {
		return err
	}
	if err := k.permits(dir); err != nil {
		return err
	}
	p := k.params
	if p.cap.Class != ClassBlockCipher || p.spec.kind != KindKeyWrap {
		return newError(ErrBadMode, ErrCodeBadMode, "key is not bound to key wrap parameters")
	}
	if iv != nil && len(iv) != 8 {
		return newError(ErrBadIV, ErrCodeBadIV, fmt.Sprintf("key wrap iv must be 8 bytes, got %d", len(iv)))
	}
	return nil
}

// Wrap encrypts src, a whole number of 64-bit blocks and at least two of
// them, under the key. A nil iv selects DefaultKeyWrapIV. The output is
// len(src)+8 bytes and dst follows the sizing convention.
func (k *Key) Wrap(dst, src, iv []byte) (int, error) {
	if err := k.checkKeyWrap(Encrypt, iv); err != nil {
		return 0, err
	}
	if len(src) < 16 || len(src)%8 != 0 {
		return 0, newError(ErrBadInputLength, ErrCodeBadInputLen,
			fmt.Sprintf("key wrap input must be a multiple of 8 bytes and at least 16, got %d", len(src)))
	}
	if iv == nil {
		iv = DefaultKeyWrapIV
	}
	return sized(dst, len(src)+8, func(out []byte) (int, error) {
		gc := k.params.gc
		// Work in scratch so an aborted wrap leaves out untouched.
		r, err := gc.allocSecret(len(src) + 8)
		if err != nil {
			return 0, err
		}
		defer gc.freeSecret(r)
		copy(r[8:], src)

		var a, b [16]byte
		copy(a[:8], iv)
		n := len(src) / 8
		for j := 0; j < keyWrapRounds; j++ {
			if err := yieldPoint(k.params.yield); err != nil {
				return 0, err
			}
			for i := 1; i <= n; i++ {
				copy(a[8:], r[i*8:i*8+8])
				k.block.Encrypt(b[:], a[:])
				t := uint64(n*j + i)
				binary.BigEndian.PutUint64(a[:8], binary.BigEndian.Uint64(b[:8])^t)
				copy(r[i*8:i*8+8], b[8:])
			}
		}
		copy(r[:8], a[:8])
		Zeroize(a[:])
		Zeroize(b[:])
		return copy(out, r), nil
	})
}

// Unwrap reverses Wrap. An integrity failure is reported as ErrMACInvalid
// and nothing is written to dst.
func (k *Key) Unwrap(dst, src, iv []byte) (int, error) {
	if err := k.checkKeyWrap(Decrypt, iv); err != nil {
		return 0, err
	}
	if len(src) < 24 || len(src)%8 != 0 {
		return 0, newError(ErrBadInputLength, ErrCodeBadInputLen,
			fmt.Sprintf("wrapped key must be a multiple of 8 bytes and at least 24, got %d", len(src)))
	}
	if iv == nil {
		iv = DefaultKeyWrapIV
	}
	return sized(dst, len(src)-8, func(out []byte) (int, error) {
		gc := k.params.gc
		r, err := gc.allocSecret(len(src))
		if err != nil {
			return 0, err
		}
		defer gc.freeSecret(r)
		copy(r, src)

		var a, b [16]byte
		copy(a[:8], r[:8])
		n := len(src)/8 - 1
		for j := keyWrapRounds - 1; j >= 0; j-- {
			if err := yieldPoint(k.params.yield); err != nil {
				return 0, err
			}
			for i := n; i >= 1; i-- {
				t := uint64(n*j + i)
				binary.BigEndian.PutUint64(a[:8], binary.BigEndian.Uint64(a[:8])^t)
				copy(a[8:], r[i*8:i*8+8])
				k.block.Decrypt(b[:], a[:])
				copy(a[:8], b[:8])
				copy(r[i*8:i*8+8], b[8:])
			}
		}
		ok := gc.equal(a[:8], iv)
		Zeroize(a[:])
		Zeroize(b[:])
		if !ok {
			return 0, newError(ErrMACInvalid, ErrCodeMACInvalid, "key unwrap integrity check failed")
		}
		return copy(out, r[8:]), nil
	})
}

// WrapAlloc is Wrap into a newly allocated buffer.
func (k *Key) WrapAlloc(src, iv []byte) ([]byte, error) {
	return allocOut(func(dst []byte) (int, error) { return k.Wrap(dst, src, iv) })
}

// UnwrapAlloc is Unwrap into a newly allocated buffer.
func (k *Key) UnwrapAlloc(src, iv []byte) ([]byte, error) {
	return allocOut(func(dst []byte) (int, error) { return k.Unwrap(dst, src, iv) })
}
