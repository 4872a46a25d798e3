package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/maumtalk/counselgo/pkg/interfaces"
)

// FileWatcher watches a single configuration file and invokes a callback
// when it changes. Used for the crisis resource file, which operators edit
// without redeploying.
type FileWatcher struct {
	path     string
	onChange func(path string)
	logger   interfaces.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewFileWatcher creates a watcher for the given file
func NewFileWatcher(path string, onChange func(path string), logger interfaces.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory rather than the file so atomic saves
	// (write to temp, rename over) are still observed
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	return &FileWatcher{
		path:     path,
		onChange: onChange,
		logger:   logger,
		watcher:  w,
		debounce: 200 * time.Millisecond,
	}, nil
}

// Run processes file events until the context is cancelled
func (fw *FileWatcher) Run(ctx context.Context) {
	var timer *time.Timer
	defer fw.watcher.Close()
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(fw.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Editors fire several events per save; coalesce them
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(fw.debounce, func() {
				fw.logger.Info("configuration file changed, reloading", map[string]interface{}{
					"path": fw.path,
				})
				fw.onChange(fw.path)
			})
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
