// entropy_test.go: Entropy plugin manager tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	goplugins "github.com/agilira/go-plugins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEntropy is an in-process EntropyPlugin serving a fixed byte.
type mockEntropy struct {
	name     string
	fill     byte
	healthy  bool
	short    bool
	genErr   error
	initErr  error
	config   map[string]interface{}
	calls    int
	closed   bool
	closeErr error
}

func newMockEntropy(name string, fill byte) *mockEntropy {
	return &mockEntropy{name: name, fill: fill, healthy: true}
}

func (m *mockEntropy) Name() string { return m.name }

func (m *mockEntropy) Initialize(_ context.Context, config map[string]interface{}) error {
	m.config = config
	return m.initErr
}

func (m *mockEntropy) IsHealthy() bool { return m.healthy }

func (m *mockEntropy) GenerateRandom(ctx context.Context, length int) ([]byte, error) {
	m.calls++
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("operation context has no deadline")
	}
	if m.genErr != nil {
		return nil, m.genErr
	}
	if m.short {
		length--
	}
	return filled(length, m.fill), nil
}

func (m *mockEntropy) Close() error {
	m.closed = true
	return m.closeErr
}

func filled(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestEntropyManagerRead(t *testing.T) {
	m := NewEntropyManager(nil, nil)
	assert.Nil(t, m.PluginManager())

	buf := make([]byte, 4)
	_, err := m.Read(buf)
	assert.ErrorIs(t, err, ErrRNGFailure)

	src := newMockEntropy("hw", 0x5A)
	require.NoError(t, m.RegisterSource(src))
	n, err := m.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, filled(4, 0x5A), buf)
}

func TestEntropyManagerDefaultAndFailover(t *testing.T) {
	cfg := &EntropyManagerConfig{
		DefaultSource:    "primary",
		FailoverEnabled:  true,
		OperationTimeout: time.Second,
		SourceConfigs:    map[string]map[string]interface{}{"primary": {"device": "/dev/hwrng"}},
	}
	m := NewEntropyManager(cfg, nil)
	backup := newMockEntropy("backup", 0x02)
	primary := newMockEntropy("primary", 0x01)
	require.NoError(t, m.RegisterSource(backup))
	require.NoError(t, m.RegisterSource(primary))
	assert.Equal(t, []string{"backup", "primary"}, m.Sources())
	assert.Equal(t, "/dev/hwrng", primary.config["device"])

	buf := make([]byte, 8)
	_, err := m.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, filled(8, 0x01), buf)

	primary.genErr = errors.New("device busy")
	_, err = m.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, filled(8, 0x02), buf)

	primary.genErr = nil
	primary.healthy = false
	_, err = m.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, filled(8, 0x02), buf)

	backup.short = true
	_, err = m.Read(buf)
	assert.ErrorIs(t, err, ErrRNGFailure)
}

func TestEntropyManagerWithoutFailover(t *testing.T) {
	m := NewEntropyManager(&EntropyManagerConfig{OperationTimeout: time.Second}, nil)
	first := newMockEntropy("a", 0x01)
	second := newMockEntropy("b", 0x02)
	require.NoError(t, m.RegisterSource(first))
	require.NoError(t, m.RegisterSource(second))

	first.genErr = errors.New("offline")
	_, err := m.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrRNGFailure)
	assert.Equal(t, 0, second.calls)

	first.genErr = nil
	first.short = true
	_, err = m.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrRNGFailure)
}

func TestEntropyManagerRegisterErrors(t *testing.T) {
	m := NewEntropyManager(nil, nil)
	assert.ErrorIs(t, m.RegisterSource(nil), ErrBadProvider)

	bad := newMockEntropy("bad", 0)
	bad.initErr = errors.New("no device")
	assert.ErrorIs(t, m.RegisterSource(bad), ErrProviderFault)
	assert.Empty(t, m.Sources())
}

func TestEntropyManagerClose(t *testing.T) {
	m := NewEntropyManager(nil, nil)
	a := newMockEntropy("a", 1)
	b := newMockEntropy("b", 2)
	b.closeErr = errors.New("stuck")
	require.NoError(t, m.RegisterSource(a))
	require.NoError(t, m.RegisterSource(b))

	err := m.Close()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "stuck")
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Empty(t, m.Sources())
	require.NoError(t, m.Close())
}

func TestEntropyManagerSeedsRNG(t *testing.T) {
	m := NewEntropyManager(nil, nil)
	src := newMockEntropy("hw", 0x77)
	require.NoError(t, m.RegisterSource(src))

	gc, err := Create(&Config{Entropy: m})
	require.NoError(t, err)
	require.NoError(t, RegisterSoftwareProviders(gc))

	r, err := gc.CreateRNG(AlgHMACDRBG, nil)
	require.NoError(t, err)
	out := make([]byte, 16)
	require.NoError(t, r.GetBytes(out, nil))
	assert.Equal(t, 2, src.calls, "entropy and nonce")
	require.NoError(t, r.Destroy())

	src.healthy = false
	_, err = gc.CreateRNG(AlgCTRDRBG, nil)
	assert.ErrorIs(t, err, ErrRNGFailure)
}

// remoteEntropy is a go-plugins entropy plugin answering from memory.
type remoteEntropy struct {
	name  string
	fill  byte
	fail  bool
	calls []EntropyRequest
}

func (r *remoteEntropy) Info() goplugins.PluginInfo {
	return goplugins.PluginInfo{Name: r.name, Version: "1.0.0"}
}

func (r *remoteEntropy) Execute(_ context.Context, _ goplugins.ExecutionContext, req EntropyRequest) (EntropyResponse, error) {
	r.calls = append(r.calls, req)
	if r.fail {
		return EntropyResponse{Error: "device unplugged"}, nil
	}
	return EntropyResponse{Success: true, Data: filled(req.Length, r.fill)}, nil
}

func (r *remoteEntropy) Health(context.Context) goplugins.HealthStatus {
	return goplugins.HealthStatus{Status: goplugins.StatusHealthy}
}

func (r *remoteEntropy) Close() error { return nil }

func TestEntropyManagerRemoteSource(t *testing.T) {
	pm := goplugins.NewManager[EntropyRequest, EntropyResponse](slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = pm.Shutdown(context.Background()) })
	remote := &remoteEntropy{name: "remote", fill: 0x3C}
	require.NoError(t, pm.Register(remote))

	m := NewEntropyManager(&EntropyManagerConfig{DefaultSource: "remote", OperationTimeout: time.Second}, pm)
	assert.Same(t, pm, m.PluginManager())

	buf := make([]byte, 12)
	n, err := m.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, filled(12, 0x3C), buf)
	require.Len(t, remote.calls, 1)
	assert.Equal(t, EntropyRequest{Length: 12, Source: "remote"}, remote.calls[0])

	// In-process sources are preferred while healthy.
	local := newMockEntropy("hw", 0x11)
	require.NoError(t, m.RegisterSource(local))
	_, err = m.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, filled(12, 0x11), buf)
	assert.Len(t, remote.calls, 1)

	local.healthy = false
	_, err = m.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, filled(12, 0x3C), buf)

	remote.fail = true
	_, err = m.Read(buf)
	assert.ErrorIs(t, err, ErrRNGFailure)
	assert.Contains(t, err.Error(), string(ErrCodeEntropyFailed))
}
