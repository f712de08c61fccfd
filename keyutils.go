// keyutils.go: Key material encoding, zeroization and fingerprinting.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	goerrors "github.com/agilira/go-errors"
)

// Encoding selects a text representation for raw key material.
type Encoding uint8

const (
	EncodingHex Encoding = iota
	EncodingBase64
)

// EncodeKeyMaterial renders raw key bytes as text.
//
// Example:
//
//	s := crypto.EncodeKeyMaterial(material, crypto.EncodingHex)
func EncodeKeyMaterial(material []byte, enc Encoding) string {
	if enc == EncodingBase64 {
		return base64.StdEncoding.EncodeToString(material)
	}
	return hex.EncodeToString(material)
}

// DecodeKeyMaterial parses text produced by EncodeKeyMaterial. Surrounding
// whitespace is ignored, so values read from files or flags can be passed
// unmodified.
//
// Example:
//
//	material, err := crypto.DecodeKeyMaterial("000102030405060708090a0b0c0d0e0f", crypto.EncodingHex)
//	if err != nil {
//		log.Fatal(err)
//	}
//	key, err := params.ImportKey(len(material)*8, material, nil)
func DecodeKeyMaterial(s string, enc Encoding) ([]byte, error) {
	s = strings.TrimSpace(s)
	var (
		out []byte
		err error
	)
	switch enc {
	case EncodingBase64:
		out, err = base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, goerrors.Wrap(err, "BASE64_DECODE_ERROR", "failed to decode base64 key material")
		}
	default:
		out, err = hex.DecodeString(s)
		if err != nil {
			return nil, goerrors.Wrap(err, "HEX_DECODE_ERROR", "failed to decode hex key material")
		}
	}
	return out, nil
}

// Zeroize overwrites b with zeros. It is the default wipe hook of a
// GlobalContext.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// fingerprintOf returns the first 8 bytes of SHA-256(b) as hex. It
// identifies material without exposing it.
func fingerprintOf(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// Fingerprint returns a short, non-secret identifier of the key: a SHA-256
// prefix of the symmetric material or of the encoded public key.
func (k *Key) Fingerprint() (string, error) {
	if err := k.check(); err != nil {
		return "", err
	}
	if k.material != nil {
		return fingerprintOf(k.material), nil
	}
	raw, err := k.publicBytes()
	if err != nil {
		return "", err
	}
	return fingerprintOf(raw), nil
}

// Export copies out the key: raw material for symmetric keys, the encoded
// public key for public halves. Private asymmetric halves cannot be
// exported. dst follows the usual sizing convention.
func (k *Key) Export(dst []byte) (int, error) {
	if err := k.check(); err != nil {
		return 0, err
	}
	var src []byte
	switch {
	case k.material != nil:
		src = k.material
	case k.usage == UsagePublic:
		raw, err := k.publicBytes()
		if err != nil {
			return 0, err
		}
		src = raw
	default:
		return 0, newError(ErrBadKeyUsage, ErrCodeBadKeyUsage,
			fmt.Sprintf("%s key cannot be exported", k.usage))
	}
	return sized(dst, len(src), func(out []byte) (int, error) {
		return copy(out, src), nil
	})
}
