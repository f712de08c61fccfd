// xts.go: XTS engine and IV layout.
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

// An XTS IV is 16 bytes: the data unit sequence number as 8 little-endian
// bytes, then the index of the first block within that unit as 3
// little-endian bytes (20 bits used), then zeros.
const xtsIVLen = 16

// XTSIV builds the IV addressing block blockIndex of data unit unitNo.
// blockIndex must be below 2^20.
func XTSIV(unitNo uint64, blockIndex uint32) ([]byte, error) {
	if blockIndex >= maxXTSUnitBlocks {
		return nil, newError(ErrBadIV, ErrCodeBadIV,
			fmt.Sprintf("block index %d does not fit in 20 bits", blockIndex))
	}
	iv := make([]byte, xtsIVLen)
	binary.LittleEndian.PutUint64(iv[0:8], unitNo)
	iv[8] = byte(blockIndex)
	iv[9] = byte(blockIndex >> 8)
	iv[10] = byte(blockIndex >> 16)
	return iv, nil
}

// parseXTSIV validates an IV against the data unit length of a parameter set.
func parseXTSIV(iv []byte, unitBlocks uint32) (unitNo uint64, blockIndex uint32, err error) {
	if len(iv) != xtsIVLen {
		return 0, 0, newError(ErrBadIV, ErrCodeBadIV, fmt.Sprintf("XTS IV must be %d bytes, got %d", xtsIVLen, len(iv)))
	}
	for _, b := range iv[11:] {
		if b != 0 {
			return 0, 0, newError(ErrBadIV, ErrCodeBadIV, "XTS IV has non-zero reserved bytes")
		}
	}
	unitNo = binary.LittleEndian.Uint64(iv[0:8])
	blockIndex = uint32(iv[8]) | uint32(iv[9])<<8 | uint32(iv[10])<<16
	if blockIndex >= maxXTSUnitBlocks || blockIndex >= unitBlocks {
		return 0, 0, newError(ErrBadIV, ErrCodeBadIV,
			fmt.Sprintf("block index %d is outside a %d block data unit", blockIndex, unitBlocks))
	}
	return unitNo, blockIndex, nil
}

// xtsEngine implements IEEE 1619 XTS over whole blocks. Crossing the end
// of a data unit moves to block 0 of the next unit.
type xtsEngine struct {
	data, tweakKey cipher.Block
	decrypt        bool
	unitBlocks     uint32

	unitNo uint64
	index  uint32
	tweak  [16]byte
	buf    [16]byte
}

func newXTSEngine(data, tweakKey cipher.Block, decrypt bool, unitBlocks uint32) *xtsEngine {
	return &xtsEngine{data: data, tweakKey: tweakKey, decrypt: decrypt, unitBlocks: unitBlocks}
}

func (e *xtsEngine) reset(iv []byte) error {
	unitNo, index, err := parseXTSIV(iv, e.unitBlocks)
	if err != nil {
		return err
	}
	e.unitNo, e.index = unitNo, index
	e.computeTweak()
	return nil
}

// computeTweak derives E_K2(unitNo) advanced by index multiplications by alpha.
func (e *xtsEngine) computeTweak() {
	var t [16]byte
	binary.LittleEndian.PutUint64(t[0:8], e.unitNo)
	e.tweakKey.Encrypt(e.tweak[:], t[:])
	for i := uint32(0); i < e.index; i++ {
		mulAlpha(&e.tweak)
	}
}

func (e *xtsEngine) crypt(dst, src []byte) {
	for i := 0; i < len(src); i += 16 {
		xorBytes(e.buf[:], src[i:i+16], e.tweak[:])
		if e.decrypt {
			e.data.Decrypt(e.buf[:], e.buf[:])
		} else {
			e.data.Encrypt(e.buf[:], e.buf[:])
		}
		xorBytes(dst[i:i+16], e.buf[:], e.tweak[:])

		e.index++
		if e.index == e.unitBlocks {
			e.unitNo++
			e.index = 0
			e.computeTweak()
		} else {
			mulAlpha(&e.tweak)
		}
	}
}

func (e *xtsEngine) wipe() {
	Zeroize(e.tweak[:])
	Zeroize(e.buf[:])
}

// mulAlpha multiplies the tweak by x in GF(2^128), little-endian byte order,
// reduction polynomial x^128 + x^7 + x^2 + x + 1.
func mulAlpha(t *[16]byte) {
	var carry byte
	for i := 0; i < 16; i++ {
		next := t[i] >> 7
		t[i] = t[i]<<1 | carry
		carry = next
	}
	if carry != 0 {
		t[0] ^= 0x87
	}
}
