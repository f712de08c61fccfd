// mode.go: Block cipher mode encoding.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import "fmt"

// Mode is a packed mode identifier. The low byte selects the mode family;
// CTR and XTS carry a parameter in the bits above it (see CTRMode and
// XTSMode).
type Mode uint32

// ModeKind is the mode family, the low byte of a Mode.
type ModeKind uint8

const (
	KindECB ModeKind = iota + 1
	KindCBC
	KindCFB128
	KindOFB128
	KindKeyWrap
	KindCFB8
	KindCTR
	KindXTS
)

// Fixed modes. CFB128 and OFB128 feed back a full block, whatever the
// block size of the cipher.
const (
	ModeECB     = Mode(KindECB)
	ModeCBC     = Mode(KindCBC)
	ModeCFB128  = Mode(KindCFB128)
	ModeOFB128  = Mode(KindOFB128)
	ModeKeyWrap = Mode(KindKeyWrap)
	ModeCFB8    = Mode(KindCFB8)
)

// maxXTSUnitBlocks bounds the data unit so block indices fit the 20 bit
// field of an XTS IV.
const maxXTSUnitBlocks = 1 << 20

// CTRMode returns counter mode incrementing the leading counterBits bits
// of the counter block. counterBits must be a positive multiple of 8 no
// wider than the cipher block; zero selects the whole block.
func CTRMode(counterBits int) Mode {
	if counterBits < 0 || counterBits > 0xFFFF {
		counterBits = 0xFFFF
	}
	return Mode(KindCTR) | Mode(counterBits)<<8
}

// XTSMode returns XTS with the given data unit size in bytes. unitBytes
// must be a positive multiple of 16.
func XTSMode(unitBytes int) Mode {
	if unitBytes <= 0 || unitBytes%16 != 0 {
		return Mode(KindXTS)
	}
	blocks := unitBytes / 16
	if blocks > maxXTSUnitBlocks {
		blocks = maxXTSUnitBlocks + 1
	}
	return Mode(KindXTS) | Mode(blocks)<<8
}

// Kind returns the mode family.
func (m Mode) Kind() ModeKind { return ModeKind(m & 0xFF) }

func (m Mode) param() int { return int(m >> 8) }

func (m Mode) String() string {
	switch m.Kind() {
	case KindECB:
		return "ECB"
	case KindCBC:
		return "CBC"
	case KindCFB128:
		return "CFB128"
	case KindOFB128:
		return "OFB128"
	case KindKeyWrap:
		return "KeyWrap"
	case KindCFB8:
		return "CFB8"
	case KindCTR:
		return fmt.Sprintf("CTR(%d)", m.param())
	case KindXTS:
		return fmt.Sprintf("XTS(%d)", m.param()*16)
	}
	return fmt.Sprintf("mode(%#x)", uint32(m))
}

// modeSpec is a Mode decoded against a concrete block length.
type modeSpec struct {
	kind ModeKind
	// counterBytes is the CTR counter width.
	counterBytes int
	// unitBlocks is the XTS data unit length in blocks.
	unitBlocks uint32
}

func badMode(m Mode, why string) error {
	return newError(ErrBadMode, ErrCodeBadMode, fmt.Sprintf("mode %s: %s", m, why))
}

// decode validates m for a cipher with the given block length.
func (m Mode) decode(blockLen int) (modeSpec, error) {
	spec := modeSpec{kind: m.Kind()}
	switch spec.kind {
	case KindECB, KindCBC, KindCFB128, KindOFB128, KindCFB8:
		if m.param() != 0 {
			return modeSpec{}, badMode(m, "unexpected parameter bits")
		}
	case KindKeyWrap:
		if m.param() != 0 {
			return modeSpec{}, badMode(m, "unexpected parameter bits")
		}
		if blockLen != 16 {
			return modeSpec{}, badMode(m, "key wrap requires a 128-bit block cipher")
		}
	case KindCTR:
		bits := m.param()
		if bits == 0 {
			bits = blockLen * 8
		}
		if bits%8 != 0 || bits > blockLen*8 {
			return modeSpec{}, badMode(m, "counter width must be a multiple of 8 within the block")
		}
		spec.counterBytes = bits / 8
	case KindXTS:
		if blockLen != 16 {
			return modeSpec{}, badMode(m, "XTS requires a 128-bit block cipher")
		}
		blocks := m.param()
		if blocks == 0 || blocks > maxXTSUnitBlocks {
			return modeSpec{}, badMode(m, "data unit must be 16 bytes to 16 MiB in 16 byte steps")
		}
		spec.unitBlocks = uint32(blocks)
	default:
		return modeSpec{}, badMode(m, "unknown mode family")
	}
	return spec, nil
}

// aligned reports whether the mode only processes whole blocks.
func (s modeSpec) aligned() bool {
	return s.kind == KindECB || s.kind == KindCBC || s.kind == KindXTS
}

// ivLen is the IV length a context in this mode requires.
func (s modeSpec) ivLen(blockLen int) int {
	switch s.kind {
	case KindECB, KindKeyWrap:
		return 0
	case KindXTS:
		return 16
	}
	return blockLen
}
