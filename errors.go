// errors.go: Error taxonomy shared by every operation of the provider core.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"errors"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// Sentinel errors. Every failure returned by this package wraps exactly one
// of them, so callers can branch with errors.Is.
var (
	// ErrNullGlobal is returned when a nil *GlobalContext is used.
	ErrNullGlobal = errors.New("crypto: null global context")
	// ErrBadGlobal is returned when a destroyed or mismatched global context is used.
	ErrBadGlobal = errors.New("crypto: bad global context")

	ErrNullParams = errors.New("crypto: null parameter set")
	ErrBadParams  = errors.New("crypto: bad parameter set")
	ErrNullKey    = errors.New("crypto: null key")
	ErrBadKey     = errors.New("crypto: bad key")
	ErrNullRNG    = errors.New("crypto: null rng")
	ErrBadRNG     = errors.New("crypto: bad rng")

	// ErrNullContext and ErrBadContext refer to streaming operation contexts
	// (cipher, AEAD, digest and MAC contexts).
	ErrNullContext = errors.New("crypto: null context")
	ErrBadContext  = errors.New("crypto: bad context")
	// ErrBadState is returned when an operation is invoked in the wrong lifecycle state.
	ErrBadState = errors.New("crypto: operation not valid in current state")

	ErrAllocFailure  = errors.New("crypto: allocation failure")
	ErrNoProvider    = errors.New("crypto: no provider registered for capability")
	ErrBadProvider   = errors.New("crypto: invalid provider")
	ErrProviderFault = errors.New("crypto: provider failure")
	ErrNotSupported  = errors.New("crypto: operation not supported")

	ErrBadMode        = errors.New("crypto: bad mode")
	ErrBadBlockLen    = errors.New("crypto: bad block length")
	ErrBadKeyLen      = errors.New("crypto: bad key length")
	ErrBadIV          = errors.New("crypto: bad iv")
	ErrBadNonceLen    = errors.New("crypto: bad nonce length")
	ErrBadMACLen      = errors.New("crypto: bad mac length")
	ErrBadInputLength = errors.New("crypto: bad input length")
	ErrBufferTooSmall = errors.New("crypto: output buffer too small")

	ErrMACInvalid    = errors.New("crypto: mac verification failed")
	ErrBadSignature  = errors.New("crypto: malformed signature")
	ErrBadPublicKey  = errors.New("crypto: malformed public key")
	ErrWeakKey       = errors.New("crypto: weak key rejected")
	ErrBadParity     = errors.New("crypto: key parity check failed")
	ErrBadKeyUsage   = errors.New("crypto: key usage does not permit operation")
	ErrResourceInUse = errors.New("crypto: resource still has dependents")

	ErrNoRNG        = errors.New("crypto: parameter set has no rng attached")
	ErrRNGLock      = errors.New("crypto: rng lock failure")
	ErrRNGFailure   = errors.New("crypto: rng failure")
	ErrYieldAborted = errors.New("crypto: aborted by yield callback")
)

// Error codes carried by the structured error attached to each sentinel.
const (
	ErrCodeNullGlobal    goerrors.ErrorCode = "CRYPTO_NULL_GLOBAL"
	ErrCodeBadGlobal     goerrors.ErrorCode = "CRYPTO_BAD_GLOBAL"
	ErrCodeNullParams    goerrors.ErrorCode = "CRYPTO_NULL_PARAMS"
	ErrCodeBadParams     goerrors.ErrorCode = "CRYPTO_BAD_PARAMS"
	ErrCodeNullKey       goerrors.ErrorCode = "CRYPTO_NULL_KEY"
	ErrCodeBadKey        goerrors.ErrorCode = "CRYPTO_BAD_KEY"
	ErrCodeNullRNG       goerrors.ErrorCode = "CRYPTO_NULL_RNG"
	ErrCodeBadRNG        goerrors.ErrorCode = "CRYPTO_BAD_RNG"
	ErrCodeNullContext   goerrors.ErrorCode = "CRYPTO_NULL_CONTEXT"
	ErrCodeBadContext    goerrors.ErrorCode = "CRYPTO_BAD_CONTEXT"
	ErrCodeBadState      goerrors.ErrorCode = "CRYPTO_BAD_STATE"
	ErrCodeAlloc         goerrors.ErrorCode = "CRYPTO_ALLOC"
	ErrCodeNoProvider    goerrors.ErrorCode = "CRYPTO_NO_PROVIDER"
	ErrCodeBadProvider   goerrors.ErrorCode = "CRYPTO_BAD_PROVIDER"
	ErrCodeProvider      goerrors.ErrorCode = "CRYPTO_PROVIDER"
	ErrCodeNotSupported  goerrors.ErrorCode = "CRYPTO_NOT_SUPPORTED"
	ErrCodeBadMode       goerrors.ErrorCode = "CRYPTO_BAD_MODE"
	ErrCodeBadBlockLen   goerrors.ErrorCode = "CRYPTO_BAD_BLOCK_LEN"
	ErrCodeBadKeyLen     goerrors.ErrorCode = "CRYPTO_BAD_KEY_LEN"
	ErrCodeBadIV         goerrors.ErrorCode = "CRYPTO_BAD_IV"
	ErrCodeBadNonceLen   goerrors.ErrorCode = "CRYPTO_BAD_NONCE_LEN"
	ErrCodeBadMACLen     goerrors.ErrorCode = "CRYPTO_BAD_MAC_LEN"
	ErrCodeBadInputLen   goerrors.ErrorCode = "CRYPTO_BAD_INPUT_LEN"
	ErrCodeBufferSmall   goerrors.ErrorCode = "CRYPTO_BUFFER_TOO_SMALL"
	ErrCodeMACInvalid    goerrors.ErrorCode = "CRYPTO_MAC_INVALID"
	ErrCodeBadSignature  goerrors.ErrorCode = "CRYPTO_BAD_SIGNATURE"
	ErrCodeBadPublicKey  goerrors.ErrorCode = "CRYPTO_BAD_PUBLIC_KEY"
	ErrCodeWeakKey       goerrors.ErrorCode = "CRYPTO_WEAK_KEY"
	ErrCodeBadParity     goerrors.ErrorCode = "CRYPTO_BAD_PARITY"
	ErrCodeBadKeyUsage   goerrors.ErrorCode = "CRYPTO_BAD_KEY_USAGE"
	ErrCodeResourceInUse goerrors.ErrorCode = "CRYPTO_RESOURCE_IN_USE"
	ErrCodeNoRNG         goerrors.ErrorCode = "CRYPTO_NO_RNG"
	ErrCodeRNGLock       goerrors.ErrorCode = "CRYPTO_RNG_LOCK"
	ErrCodeRNG           goerrors.ErrorCode = "CRYPTO_RNG"
	ErrCodeYieldAborted  goerrors.ErrorCode = "CRYPTO_YIELD_ABORTED"
)

// Status is the integer form of the error taxonomy, for callers that need
// a stable numeric code (FFI bridges, audit logs).
type Status int

// Status values. StatusOK is zero; the remaining values are stable.
const (
	StatusOK Status = iota
	StatusNullGlobal
	StatusBadGlobal
	StatusNullParams
	StatusBadParams
	StatusNullKey
	StatusBadKey
	StatusNullRNG
	StatusBadRNG
	StatusNullContext
	StatusBadContext
	StatusBadState
	StatusAllocFailure
	StatusNoProvider
	StatusBadProvider
	StatusProviderFault
	StatusNotSupported
	StatusBadMode
	StatusBadBlockLen
	StatusBadKeyLen
	StatusBadIV
	StatusBadNonceLen
	StatusBadMACLen
	StatusBadInputLength
	StatusBufferTooSmall
	StatusMACInvalid
	StatusBadSignature
	StatusBadPublicKey
	StatusWeakKey
	StatusBadParity
	StatusBadKeyUsage
	StatusResourceInUse
	StatusNoRNG
	StatusRNGLock
	StatusRNGFailure
	StatusYieldAborted
	// StatusUnknown is reported for errors that wrap no sentinel of this package.
	StatusUnknown Status = 255
)

var statusTable = []struct {
	err    error
	status Status
}{
	{ErrNullGlobal, StatusNullGlobal},
	{ErrBadGlobal, StatusBadGlobal},
	{ErrNullParams, StatusNullParams},
	{ErrBadParams, StatusBadParams},
	{ErrNullKey, StatusNullKey},
	{ErrBadKey, StatusBadKey},
	{ErrNullRNG, StatusNullRNG},
	{ErrBadRNG, StatusBadRNG},
	{ErrNullContext, StatusNullContext},
	{ErrBadContext, StatusBadContext},
	{ErrBadState, StatusBadState},
	{ErrAllocFailure, StatusAllocFailure},
	{ErrNoProvider, StatusNoProvider},
	{ErrBadProvider, StatusBadProvider},
	{ErrProviderFault, StatusProviderFault},
	{ErrNotSupported, StatusNotSupported},
	{ErrBadMode, StatusBadMode},
	{ErrBadBlockLen, StatusBadBlockLen},
	{ErrBadKeyLen, StatusBadKeyLen},
	{ErrBadIV, StatusBadIV},
	{ErrBadNonceLen, StatusBadNonceLen},
	{ErrBadMACLen, StatusBadMACLen},
	{ErrBadInputLength, StatusBadInputLength},
	{ErrBufferTooSmall, StatusBufferTooSmall},
	{ErrMACInvalid, StatusMACInvalid},
	{ErrBadSignature, StatusBadSignature},
	{ErrBadPublicKey, StatusBadPublicKey},
	{ErrWeakKey, StatusWeakKey},
	{ErrBadParity, StatusBadParity},
	{ErrBadKeyUsage, StatusBadKeyUsage},
	{ErrResourceInUse, StatusResourceInUse},
	{ErrNoRNG, StatusNoRNG},
	{ErrRNGLock, StatusRNGLock},
	{ErrRNGFailure, StatusRNGFailure},
	{ErrYieldAborted, StatusYieldAborted},
}

// StatusOf maps an error returned by this package to its Status.
// A nil error maps to StatusOK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return StatusUnknown
}

// newError pairs a sentinel with a structured go-errors value.
func newError(sentinel error, code goerrors.ErrorCode, msg string) error {
	return fmt.Errorf("%w: %w", sentinel, goerrors.New(code, msg))
}

// wrapError is newError for failures caused by an underlying error.
func wrapError(sentinel, cause error, code goerrors.ErrorCode, msg string) error {
	return fmt.Errorf("%w: %w", sentinel, goerrors.Wrap(cause, code, msg))
}

func bufferTooSmall(required, got int) error {
	return newError(ErrBufferTooSmall, ErrCodeBufferSmall,
		fmt.Sprintf("output buffer holds %d bytes, %d required", got, required))
}
