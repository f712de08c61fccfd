// x931.go: ANSI X9.31 AES-128 generator.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// x931Source implements the ANSI X9.31 appendix A.2.4 generator over
// AES-128. Each block consumes a date/time vector DT taken from the
// context clock, made unique by a running counter.
type x931Source struct {
	env   RNGEnv
	block cipher.Block
	key   []byte
	v     [16]byte
	seq   uint64
}

func (x *x931Source) Init(seed []byte) error {
	material, err := readEntropy(x.env.Entropy, 16+aes.BlockSize)
	if err != nil {
		return err
	}
	x.key = material[:16]
	b, err := aes.NewCipher(x.key)
	if err != nil {
		return err
	}
	x.block = b
	copy(x.v[:], material[16:])
	x.mix(seed)
	Zeroize(material[16:])
	return nil
}

// mix folds arbitrary input into V.
func (x *x931Source) mix(in []byte) {
	for i, b := range in {
		x.v[i%16] ^= b
	}
}

func (x *x931Source) dt() [16]byte {
	var dt [16]byte
	binary.BigEndian.PutUint64(dt[0:8], uint64(x.env.Clock.Now().UnixNano()))
	binary.BigEndian.PutUint64(dt[8:16], x.seq)
	x.seq++
	return dt
}

func (x *x931Source) GetBytes(dst, additional []byte) error {
	if x.block == nil {
		return errDRBGNotInstantiated
	}
	x.mix(additional)
	var i, r [16]byte
	for off := 0; off < len(dst); {
		dt := x.dt()
		x.block.Encrypt(i[:], dt[:])
		xorBytes(r[:], i[:], x.v[:])
		x.block.Encrypt(r[:], r[:])
		xorBytes(x.v[:], r[:], i[:])
		x.block.Encrypt(x.v[:], x.v[:])
		off += copy(dst[off:], r[:])
	}
	Zeroize(i[:])
	Zeroize(r[:])
	return nil
}

// Reseed augments V with fresh entropy and the caller's seed.
func (x *x931Source) Reseed(seed []byte) error {
	if x.block == nil {
		return errDRBGNotInstantiated
	}
	fresh, err := readEntropy(x.env.Entropy, aes.BlockSize)
	if err != nil {
		return err
	}
	x.mix(fresh)
	x.mix(seed)
	Zeroize(fresh)
	return nil
}

func (x *x931Source) End() error {
	Zeroize(x.key)
	Zeroize(x.v[:])
	x.block = nil
	return nil
}
