// errors_test.go: Status mapping and error wrapping tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/agilira/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusUnknown, StatusOf(errors.New("unrelated")))

	for _, e := range statusTable {
		t.Run(e.err.Error(), func(t *testing.T) {
			err := fmt.Errorf("outer: %w", newError(e.err, "TEST_CODE", "message"))
			assert.ErrorIs(t, err, e.err)
			assert.Equal(t, e.status, StatusOf(err))
		})
	}
}

func TestStatusValuesAreDistinct(t *testing.T) {
	seen := make(map[Status]error)
	for _, e := range statusTable {
		prev, dup := seen[e.status]
		assert.False(t, dup, "status %d used by %v and %v", e.status, prev, e.err)
		seen[e.status] = e.err
		assert.NotEqual(t, StatusOK, e.status)
	}
}

func TestWrapErrorKeepsSentinel(t *testing.T) {
	cause := errors.New("disk on fire")
	err := wrapError(ErrProviderFault, cause, ErrCodeProvider, "provider failed")

	assert.ErrorIs(t, err, ErrProviderFault)
	assert.Contains(t, err.Error(), "provider failed")
}

func TestErrorCarriesCode(t *testing.T) {
	cause := errors.New("disk on fire")
	tests := []struct {
		name string
		err  error
		code goerrors.ErrorCode
	}{
		{"new", newError(ErrBadParams, ErrCodeBadParams, "bad params"), ErrCodeBadParams},
		{"wrap", wrapError(ErrProviderFault, cause, ErrCodeProvider, "provider failed"), ErrCodeProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ge *goerrors.Error
			require.True(t, errors.As(tt.err, &ge))
			assert.Equal(t, tt.code, ge.Code)
			assert.Contains(t, tt.err.Error(), "["+string(tt.code)+"]")
		})
	}
}

func TestBufferTooSmall(t *testing.T) {
	err := bufferTooSmall(32, 16)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
	assert.Equal(t, StatusBufferTooSmall, StatusOf(err))
}

func TestSized(t *testing.T) {
	called := 0
	fill := func(out []byte) (int, error) {
		called++
		for i := range out {
			out[i] = 0xAA
		}
		return len(out), nil
	}

	n, err := sized(nil, 8, fill)
	assert.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 0, called)

	n, err = sized(make([]byte, 4), 8, fill)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
	assert.Equal(t, 8, n)
	assert.Equal(t, 0, called)

	dst := make([]byte, 12)
	n, err = sized(dst, 8, fill)
	assert.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 1, called)
	assert.Equal(t, make([]byte, 4), dst[8:], "bytes past the required size must be untouched")
}

func TestAllocOut(t *testing.T) {
	out, err := allocOut(func(dst []byte) (int, error) {
		return sized(dst, 5, func(o []byte) (int, error) { return copy(o, "hello"), nil })
	})
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), out)
}
