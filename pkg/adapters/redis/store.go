// Package redis implements core.Store on a Redis server, so several hosts
// can share the same feedback state.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/saferoomai/feedback/pkg/core"
)

// Config holds the connection settings for Dial.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key on the server, so one Redis
	// database can host several deployments.
	Prefix string
	Logger *slog.Logger
}

// Store implements core.Store using Redis strings.
type Store struct {
	client goredis.UniversalClient
	prefix string
	logger *slog.Logger
}

// Dial creates a pooled client for cfg and returns a Store using it.
// The connection is verified by Initialize, not here.
func Dial(cfg Config) *Store {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})
	return New(client, cfg.Prefix, cfg.Logger)
}

// New wraps an existing client.
func New(client goredis.UniversalClient, prefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

// Initialize checks that the server is reachable.
func (s *Store) Initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Load implements core.Store.
func (s *Store) Load(ctx context.Context, key string) (core.Blob, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
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
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Clear implements core.Store.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Keys implements core.KeyLister. The server-side SCAN only narrows by
// prefix; the doublestar pattern is applied locally.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", core.ErrInvalidArgument, pattern)
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()[len(s.prefix):]
		if pattern != "" {
			if match, _ := doublestar.Match(pattern, key); !match {
				continue
			}
		}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "redis"
}
