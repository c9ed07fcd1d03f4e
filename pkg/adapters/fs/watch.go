package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/saferoomai/feedback/pkg/core"
)

// Watch emits an event for every change to a key matching pattern made by
// another process (or another Store over the same directory). Writes made
// by this Store are filtered out.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", core.ErrInvalidArgument, pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.Path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.Path, err)
	}

	events := make(chan core.Event, 16)
	s.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		return s.watchLoop(ctx, watcher, pattern, events)
	}, lifecycle.WithErrorHandler(func(err error) {
		s.handleWatcherError(fmt.Errorf("watch loop: %w", err))
	}))

	return events, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, pattern string, out chan<- core.Event) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if s.config.Logger.Enabled(ctx, slog.LevelDebug) {
				s.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			}
		}
	}()
	defer close(out)
	defer s.setWatcherActive(false)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			e, ok := s.translate(event, pattern)
			if !ok {
				continue
			}
			s.recordEvent()
			select {
			case out <- e:
			case <-ctx.Done():
				return nil
			}

		case wErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.handleWatcherError(wErr)
		}
	}
}

// translate maps a raw fsnotify event to a core.Event, dropping temp files,
// foreign files, non-matching keys and our own writes.
func (s *Store) translate(event fsnotify.Event, pattern string) (core.Event, bool) {
	key, ok := keyFromName(filepath.Base(event.Name))
	if !ok {
		return core.Event{}, false
	}
	if pattern != "" {
		if match, _ := doublestar.Match(pattern, key); !match {
			return core.Event{}, false
		}
	}

	var eType core.EventType
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		eType = core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eType = core.EventDelete
	default:
		return core.Event{}, false
	}

	if s.isOwnWrite(key) {
		return core.Event{}, false
	}
	s.cache.Delete(key)

	s.config.Logger.Debug("external change", "key", key, "type", eType)
	return core.Event{Type: eType, Key: key, Timestamp: time.Now().Unix()}, true
}

func (s *Store) handleWatcherError(err error) {
	s.config.Logger.Error("fsnotify error", "error", err)
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
	}
}
