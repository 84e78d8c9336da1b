package kb

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"codescout/internal/logging"
)

// Watch reports external edits to the knowledge base file until the
// context is cancelled. onChange receives the new document content.
// The parent directory is watched because editors typically replace
// the file rather than write it in place.
func (s *Store) Watch(ctx context.Context, onChange func(content string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}

				content, err := s.Load()
				if err != nil {
					logging.Warn("failed to reload knowledge base after change", "error", err)
					continue
				}
				logging.Info("knowledge base changed on disk", "op", event.Op.String())
				onChange(content)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn("knowledge base watcher error", "error", err)
			}
		}
	}()

	return nil
}
