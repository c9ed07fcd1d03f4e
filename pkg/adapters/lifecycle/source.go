// Package lifecycle exposes store change notifications as a lifecycle.Source.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/saferoomai/feedback/pkg/core"
)

type storeSource struct {
	store   core.Watchable
	pattern string

	out  chan lifecycle.Event
	once sync.Once
}

// NewSource creates a lifecycle.Source emitting a core.Event for every
// external change to a store key matching pattern. An empty pattern follows
// every feedback namespace.
func NewSource(store core.Watchable, pattern string) lifecycle.Source {
	if pattern == "" {
		pattern = core.StorageKeyPrefix + "*"
	}
	return &storeSource{
		store:   store,
		pattern: pattern,
		out:     make(chan lifecycle.Event),
	}
}

func (s *storeSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start begins watching. The event channel closes when ctx is cancelled or
// the store stops watching.
func (s *storeSource) Start(ctx context.Context) error {
	started := false
	var err error
	s.once.Do(func() {
		started = true
		var events <-chan core.Event
		events, err = s.store.Watch(ctx, s.pattern)
		if err != nil {
			close(s.out)
			return
		}
		lifecycle.Go(ctx, func(ctx context.Context) error {
			defer close(s.out)
			for {
				select {
				case <-ctx.Done():
					return nil
				case e, ok := <-events:
					if !ok {
						return nil
					}
					select {
					case s.out <- e:
					case <-ctx.Done():
						return nil
					}
				}
			}
		})
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.pattern, err)
	}
	if !started {
		return fmt.Errorf("source already started")
	}
	return nil
}
