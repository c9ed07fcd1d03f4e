// Package memory provides an in-process core.Store.
//
// Values are kept as serialized JSON, the same way a browser's localStorage
// keeps strings, so a corrupt value can be seeded with SetRaw and observed
// through Load exactly as with a durable adapter.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/saferoomai/feedback/pkg/core"
)

// Store implements core.Store in memory.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	logger *slog.Logger
}

// New creates an empty Store. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		data:   make(map[string][]byte),
		logger: logger,
	}
}

// Load implements core.Store.
func (s *Store) Load(ctx context.Context, key string) (core.Blob, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var blob core.Blob
	if err := json.Unmarshal(raw, &blob); err != nil {
		s.logger.Warn("ignoring malformed stored blob", "key", key, "error", err)
		return nil, nil
	}
	return blob, nil
}

// Save implements core.Store.
func (s *Store) Save(ctx context.Context, key string, blob core.Blob) error {
	if blob == nil {
		blob = core.Blob{}
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return nil
}

// Clear implements core.Store.
func (s *Store) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys implements core.KeyLister.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", core.ErrInvalidArgument, pattern)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.data {
		if pattern == "" {
			keys = append(keys, k)
			continue
		}
		if ok, _ := doublestar.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// SetRaw stores raw bytes under key, bypassing serialization.
func (s *Store) SetRaw(key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), raw...)
}

// Raw returns the bytes stored under key.
func (s *Store) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	return raw, ok
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory"
}
