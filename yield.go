// yield.go: Cooperative yield hook for long-running operations.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

// Yielder is invoked at safe points inside long-running operations: key
// generation, key derivation, key-wrap rounds and large DRBG requests.
// Digest and MAC updates never yield.
//
// A non-nil error aborts the operation with ErrYieldAborted; no partial
// output is released.
type Yielder interface {
	Yield() error
}

// YieldFunc adapts an ordinary function to the Yielder interface.
type YieldFunc func() error

// Yield calls f.
func (f YieldFunc) Yield() error { return f() }

func yieldPoint(y Yielder) error {
	if y == nil {
		return nil
	}
	if err := y.Yield(); err != nil {
		return wrapError(ErrYieldAborted, err, ErrCodeYieldAborted, "operation aborted by yield callback")
	}
	return nil
}
