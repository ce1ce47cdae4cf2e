package filestore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/providers/observability"
)

// Watch merges the file into r every time it changes, until ctx is done.
// The directory is watched rather than the file, so editors and Save that
// replace the file by rename are seen too. onChange, if not nil, is called
// after each reload with the loaded table and the load or merge error.
//
// Watch returns once the watcher is registered; reloads run in their own
// goroutine.
func (s *Store) Watch(ctx context.Context, r *alias.Registry, onChange func(alias.Table, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filestore: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close() //nolint:errcheck
		return fmt.Errorf("filestore: watch %s: %w", s.path, err)
	}

	obs := observability.Resolve(ctx, s.observer)
	go func() {
		defer watcher.Close() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				t, err := s.reload(ctx, r)
				if err != nil {
					obs.Warn(ctx, "Alias file reload failed", append(s.attrs(len(t)), observability.Error(err))...)
				} else {
					obs.Info(ctx, "Alias file reloaded", s.attrs(len(t))...)
				}
				if onChange != nil {
					onChange(t, err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				obs.Warn(ctx, "Alias file watcher error", observability.Error(err))
			}
		}
	}()
	return nil
}

func (s *Store) reload(ctx context.Context, r *alias.Registry) (alias.Table, error) {
	t, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.Merge(t); err != nil {
		return t, fmt.Errorf("failed to merge alias file: %w", err)
	}
	return t, nil
}
