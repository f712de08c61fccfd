// entropy.go: Plugin-backed entropy sources for seeding random generators.
//
// A hardware RNG, HSM or remote entropy service is attached as an
// EntropyPlugin. The EntropyManager is an io.Reader, so it can be set as
// Config.Entropy and every DRBG created by the context seeds from it.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
	goplugins "github.com/agilira/go-plugins"
)

// EntropyPlugin is a source of full-entropy random bytes.
type EntropyPlugin interface {
	Name() string
	Initialize(ctx context.Context, config map[string]interface{}) error
	IsHealthy() bool
	GenerateRandom(ctx context.Context, length int) ([]byte, error)
	Close() error
}

// EntropyRequest is the wire request for out-of-process entropy plugins
// hosted by a go-plugins manager.
type EntropyRequest struct {
	Length int               `json:"length"`
	Source string            `json:"source"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// EntropyResponse is the wire response for out-of-process entropy plugins.
type EntropyResponse struct {
	Success bool   `json:"success"`
	Data    []byte `json:"data"`
	Error   string `json:"error"`
}

// EntropyManagerConfig configures an EntropyManager.
type EntropyManagerConfig struct {
	DefaultSource    string                            `json:"default_source"`
	SourceConfigs    map[string]map[string]interface{} `json:"source_configs"`
	FailoverEnabled  bool                              `json:"failover_enabled"`
	OperationTimeout time.Duration                     `json:"operation_timeout"`
}

// Entropy plugin error codes.
const (
	ErrCodeEntropyNotFound goerrors.ErrorCode = "ENTROPY_001"
	ErrCodeEntropyShort    goerrors.ErrorCode = "ENTROPY_002"
	ErrCodeEntropyFailed   goerrors.ErrorCode = "ENTROPY_003"
)

// EntropyManager multiplexes registered entropy plugins.
type EntropyManager struct {
	mu            sync.RWMutex
	pluginManager *goplugins.Manager[EntropyRequest, EntropyResponse]
	sources       map[string]EntropyPlugin
	defaultSource string
	config        *EntropyManagerConfig
}

// NewEntropyManager creates a manager. pluginManager may be nil when all
// sources are registered in-process.
func NewEntropyManager(config *EntropyManagerConfig, pluginManager *goplugins.Manager[EntropyRequest, EntropyResponse]) *EntropyManager {
	if config == nil {
		config = &EntropyManagerConfig{OperationTimeout: 5 * time.Second}
	}
	return &EntropyManager{
		pluginManager: pluginManager,
		sources:       make(map[string]EntropyPlugin),
		config:        config,
	}
}

// PluginManager returns the go-plugins manager hosting out-of-process
// sources, or nil.
func (m *EntropyManager) PluginManager() *goplugins.Manager[EntropyRequest, EntropyResponse] {
	return m.pluginManager
}

func (m *EntropyManager) operationContext() (context.Context, context.CancelFunc) {
	if t := m.config.OperationTimeout; t > 0 {
		return context.WithTimeout(context.Background(), t)
	}
	return context.WithCancel(context.Background())
}

// RegisterSource initializes p with its configured settings and adds it.
// The first source registered, or the configured default, serves reads.
func (m *EntropyManager) RegisterSource(p EntropyPlugin) error {
	if p == nil {
		return newError(ErrBadProvider, ErrCodeBadProvider, "entropy source cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := m.operationContext()
	defer cancel()
	name := p.Name()
	if err := p.Initialize(ctx, m.config.SourceConfigs[name]); err != nil {
		return wrapError(ErrProviderFault, err, ErrCodeProvider, "failed to initialize entropy source "+name)
	}
	m.sources[name] = p
	if m.defaultSource == "" || m.config.DefaultSource == name {
		m.defaultSource = name
	}
	return nil
}

// Sources returns the registered source names in sorted order.
func (m *EntropyManager) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sources))
	for n := range m.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// candidates returns the default source followed, with failover enabled,
// by the remaining healthy sources.
func (m *EntropyManager) candidates() []EntropyPlugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []EntropyPlugin
	if p, ok := m.sources[m.defaultSource]; ok && p.IsHealthy() {
		out = append(out, p)
	}
	if !m.config.FailoverEnabled {
		return out
	}
	names := make([]string, 0, len(m.sources))
	for n := range m.sources {
		if n != m.defaultSource {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		if p := m.sources[n]; p.IsHealthy() {
			out = append(out, p)
		}
	}
	return out
}

// Read fills p from the first source able to deliver len(p) bytes. The
// in-process sources are tried first, then the configured default source
// on the go-plugins manager.
func (m *EntropyManager) Read(p []byte) (int, error) {
	var last error = goerrors.New(ErrCodeEntropyNotFound, "no healthy entropy source")
	for _, src := range m.candidates() {
		ctx, cancel := m.operationContext()
		b, err := src.GenerateRandom(ctx, len(p))
		cancel()
		if err = m.fill(p, b, err, src.Name()); err == nil {
			return len(p), nil
		}
		last = err
	}
	if m.pluginManager != nil && m.config.DefaultSource != "" {
		err := m.readRemote(p)
		if err == nil {
			return len(p), nil
		}
		last = err
	}
	return 0, fmt.Errorf("%w: %w", ErrRNGFailure, last)
}

// readRemote asks the go-plugins manager for len(p) bytes from the
// default source.
func (m *EntropyManager) readRemote(p []byte) error {
	name := m.config.DefaultSource
	ctx, cancel := m.operationContext()
	defer cancel()
	resp, err := m.pluginManager.Execute(ctx, name, EntropyRequest{Length: len(p), Source: name})
	if err == nil && !resp.Success {
		err = errors.New(resp.Error)
	}
	return m.fill(p, resp.Data, err, name)
}

// fill copies b into p when the source delivered exactly len(p) bytes. b
// is zeroized either way.
func (m *EntropyManager) fill(p, b []byte, err error, name string) error {
	defer Zeroize(b)
	switch {
	case err != nil:
		return goerrors.Wrap(err, ErrCodeEntropyFailed, "entropy source "+name+" failed")
	case len(b) != len(p):
		return goerrors.New(ErrCodeEntropyShort, fmt.Sprintf("entropy source %s returned %d of %d bytes", name, len(b), len(p)))
	}
	copy(p, b)
	return nil
}

// Close closes every registered source.
func (m *EntropyManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for name, p := range m.sources {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close entropy source %s: %w", name, err))
		}
	}
	m.sources = make(map[string]EntropyPlugin)
	m.defaultSource = ""
	if len(errs) > 0 {
		return fmt.Errorf("failed to close some entropy sources: %v", errs)
	}
	return nil
}
