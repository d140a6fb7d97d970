// Package kv is the persistence adapter: JSON values stored under string keys
// in a pluggable backend. Failures are logged and reported as false rather
// than returned, so callers decide how to surface them.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"envmon/internal/kv/core"
)

// Persisted keys.
const (
	KeyClients            = "clients"
	KeyProjects           = "projects"
	KeyChemicals          = "chemicals"
	KeyInstruments        = "instruments"
	KeySamplingRecords    = "samplingRecords"
	KeyCalibrationRecords = "calibrationRecords"
	KeyQCSampleRecords    = "qcSampleRecords"
	KeyReportHistory      = "reportHistory"
	KeyMonitoringItems    = "monitoringItems"
	KeySystemSettings     = "systemSettings"
	KeyDataInitialized    = "dataInitialized"
	KeySamplingStatus     = "samplingStatus"

	PageStatePrefix = "pageState_"
	PageDataPrefix  = "pageData_"
)

// IsPageKey reports whether key holds UI page state rather than entity data.
func IsPageKey(key string) bool {
	return strings.HasPrefix(key, PageStatePrefix) || strings.HasPrefix(key, PageDataPrefix)
}

// Logger is the subset of logging the adapter needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Option configures a Store.
type Option func(*Store)

// WithLogger routes adapter failures to logger.
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store serializes values to JSON and writes them through a backend.
type Store struct {
	backend core.Backend
	logger  Logger
}

// New wraps backend.
func New(backend core.Backend, opts ...Option) *Store {
	s := &Store{backend: backend, logger: noopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the wrapped backend.
func (s *Store) Backend() core.Backend { return s.backend }

// Driver returns the backend identifier.
func (s *Store) Driver() core.Driver { return s.backend.Driver() }

// Put serializes value and stores it under key.
func (s *Store) Put(ctx context.Context, key string, value any) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("kv put: encode failed", "key", key, "error", err)
		return false
	}
	if err := s.backend.Save(ctx, key, payload); err != nil {
		s.logger.Warn("kv put: save failed", "key", key, "error", err)
		return false
	}
	return true
}

// PutMany stores every value, atomically when the backend supports batches.
func (s *Store) PutMany(ctx context.Context, values map[string]any) bool {
	if len(values) == 0 {
		return true
	}
	payloads := make(map[string][]byte, len(values))
	for key, value := range values {
		payload, err := json.Marshal(value)
		if err != nil {
			s.logger.Warn("kv put: encode failed", "key", key, "error", err)
			return false
		}
		payloads[key] = payload
	}
	if b, ok := s.backend.(core.Batcher); ok {
		if err := b.SaveBatch(ctx, payloads); err != nil {
			s.logger.Warn("kv put: batch save failed", "keys", len(payloads), "error", err)
			return false
		}
		return true
	}
	for key, payload := range payloads {
		if err := s.backend.Save(ctx, key, payload); err != nil {
			s.logger.Warn("kv put: save failed", "key", key, "error", err)
			return false
		}
	}
	return true
}

// Get decodes the value stored under key into dst. It returns false when the
// key is absent or the payload cannot be decoded.
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	payload, err := s.backend.Load(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.Warn("kv get: load failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		s.logger.Warn("kv get: decode failed", "key", key, "error", err)
		return false
	}
	return true
}

// Lookup is Get for callers that must tell a missing key from a failed read.
// It returns false with a nil error only when the key is absent.
func (s *Store) Lookup(ctx context.Context, key string, dst any) (bool, error) {
	payload, err := s.backend.Load(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Has reports whether key is present. Only core.ErrNotFound counts as
// absent; any other backend error is returned.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.backend.Load(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	return true, nil
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) bool {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("kv remove failed", "key", key, "error", err)
		return false
	}
	s.logger.Debug("kv removed", "key", key)
	return true
}

// Keys lists stored keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	return s.backend.Keys(ctx)
}

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }
