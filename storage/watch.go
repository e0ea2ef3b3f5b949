package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Change describes a key whose value was written or removed, by this process
// or another one sharing the directory.
type Change struct {
	Key     string
	Value   string
	Removed bool
}

// Watch reports changes to stored keys until ctx is done. The returned
// channel is closed when watching stops.
func (s *Storage) Watch(ctx context.Context, logger *zap.Logger) (<-chan Change, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	changes := make(chan Change, 16)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				change, ok := s.toChange(ev)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Storage watcher error", zap.Error(err))
			}
		}
	}()

	return changes, nil
}

func (s *Storage) toChange(ev fsnotify.Event) (Change, bool) {
	key := filepath.Base(ev.Name)
	if strings.HasPrefix(key, tempPrefix) || !keyPattern.MatchString(key) {
		return Change{}, false
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		value, found, err := s.Get(key)
		if err != nil {
			return Change{}, false
		}
		return Change{Key: key, Value: value, Removed: !found}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Change{Key: key, Removed: true}, true
	default:
		return Change{}, false
	}
}
