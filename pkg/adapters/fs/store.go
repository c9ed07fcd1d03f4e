// Package fs implements core.Store on the local filesystem: one JSON file
// per key inside a single directory.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/saferoomai/feedback/pkg/core"
)

// FileExt is the extension of every blob file.
const FileExt = ".json"

// Store implements core.Store using the filesystem.
type Store struct {
	Path   string
	config Config
	cache  *cache

	mu            sync.RWMutex
	lastWritten   map[string][]byte
	watcherActive bool
	lastEvent     *time.Time
}

// Config holds the configuration for the filesystem store.
type Config struct {
	Path      string
	MustExist bool
	ReadOnly  bool
	Logger    *slog.Logger
	// ErrorHandler receives runtime watcher failures, which are otherwise
	// only logged.
	ErrorHandler func(error)
}

// NewStore creates a new filesystem-backed store. It performs no I/O until
// Initialize or a blob operation is called.
func NewStore(config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Store{
		Path:        config.Path,
		config:      config,
		cache:       newCache(),
		lastWritten: make(map[string][]byte),
	}
}

// Initialize ensures the store directory exists.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist || s.config.ReadOnly {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", s.Path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat store path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", s.Path)
		}
		return nil
	}

	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

// Load reads the blob stored under key.
//
// Strategy:
//  1. Stat the file; a missing file is an absent blob.
//  2. Cache hit (same mtime and size) returns the parsed copy.
//  3. Cache miss parses the file; malformed content is logged and treated
//     as absent.
func (s *Store) Load(ctx context.Context, key string) (core.Blob, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	if blob, hit := s.cache.Get(key, info.ModTime(), info.Size()); hit {
		return blob, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var blob core.Blob
	if err := json.Unmarshal(data, &blob); err != nil {
		s.config.Logger.Warn("ignoring malformed stored blob", "key", key, "path", path, "error", err)
		s.cache.Delete(key)
		return nil, nil
	}

	s.cache.Set(key, blob, info.ModTime(), info.Size())
	return blob, nil
}

// Save serializes blob and replaces the file of key atomically.
func (s *Store) Save(ctx context.Context, key string, blob core.Blob) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}

	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if blob == nil {
		blob = core.Blob{}
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}

	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	s.mu.Lock()
	s.lastWritten[key] = data
	s.mu.Unlock()

	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	if info, err := os.Stat(path); err == nil {
		s.cache.Set(key, blob, info.ModTime(), info.Size())
	}
	return nil
}

// Clear removes the file of key.
func (s *Store) Clear(ctx context.Context, key string) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}

	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lastWritten[key] = nil
	s.mu.Unlock()
	s.cache.Delete(key)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys matching pattern (doublestar syntax).
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", core.ErrInvalidArgument, pattern)
	}

	entries, err := os.ReadDir(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list store: %w", err)
	}

	var keys []string
	for _, e := range entries {
		key, ok := keyFromName(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		if pattern != "" {
			if match, _ := doublestar.Match(pattern, key); !match {
				continue
			}
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// pathFor maps a key to its file. Keys are flat: separators and dot-only
// names are rejected.
func (s *Store) pathFor(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: invalid key %q", core.ErrInvalidArgument, key)
	}
	return filepath.Join(s.Path, key+FileExt), nil
}

// keyFromName is the inverse of pathFor for directory entries.
func keyFromName(name string) (string, bool) {
	if strings.HasPrefix(name, TempFilePrefix) || filepath.Ext(name) != FileExt {
		return "", false
	}
	key := strings.TrimSuffix(name, FileExt)
	return key, key != ""
}

// isOwnWrite reports whether the current content of key is exactly what
// this Store last wrote (or removed), so watchers can drop self-inflicted
// events.
func (s *Store) isOwnWrite(key string) bool {
	s.mu.RLock()
	last, tracked := s.lastWritten[key]
	s.mu.RUnlock()
	if !tracked {
		return false
	}

	path, err := s.pathFor(key)
	if err != nil {
		return false
	}
	current, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return last == nil
	}
	if err != nil {
		return false
	}
	return last != nil && bytes.Equal(current, last)
}
