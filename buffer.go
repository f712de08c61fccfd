// buffer.go: Caller-supplied output buffer convention.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

// sized implements the output-sizing convention used by every operation
// that writes into a caller buffer:
//
//   - dst == nil: nothing is processed, the required size is returned with a nil error
//   - len(dst) < required: nothing is processed, the required size is returned with ErrBufferTooSmall
//   - otherwise fill runs and its byte count is returned
//
// fill receives dst[:required].
func sized(dst []byte, required int, fill func(out []byte) (int, error)) (int, error) {
	if dst == nil {
		return required, nil
	}
	if len(dst) < required {
		return required, bufferTooSmall(required, len(dst))
	}
	return fill(dst[:required])
}

// allocOut runs an operation twice: once to learn its size and once into a
// freshly allocated buffer the caller owns.
func allocOut(op func(dst []byte) (int, error)) ([]byte, error) {
	n, err := op(nil)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	n, err = op(out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
