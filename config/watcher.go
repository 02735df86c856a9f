package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/planbind/prompts"
)

// TemplateWatcher hot-reloads prompt template overrides from a directory.
// Each file in the directory overrides one template key; the file name
// encodes the key as module_domain_mode_step.txt. Edits and new files are
// picked up without a restart; deleting a file does not restore the
// built-in template until restart.
type TemplateWatcher struct {
	dir      string
	registry *prompts.Registry
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// NewTemplateWatcher creates a watcher for the given overrides directory.
func NewTemplateWatcher(dir string, registry *prompts.Registry, logger *slog.Logger) (*TemplateWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &TemplateWatcher{
		dir:      dir,
		registry: registry,
		watcher:  fsw,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		pending:  make(map[string]struct{}),
	}, nil
}

// Start loads all current overrides, then begins watching for changes
// until the context is cancelled.
func (w *TemplateWatcher) Start(ctx context.Context) error {
	if err := w.loadAll(); err != nil {
		return err
	}

	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("template watcher started", "dir", w.dir)
	return nil
}

// Close stops the underlying filesystem watcher.
func (w *TemplateWatcher) Close() error {
	return w.watcher.Close()
}

// loadAll applies every override file currently in the directory.
func (w *TemplateWatcher) loadAll() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.applyFile(filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

// processEvents drains fsnotify events with debouncing: a burst of writes
// to the same file applies once.
func (w *TemplateWatcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.pendingMu.Lock()
			w.pending[event.Name] = struct{}{}
			w.pendingMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("template watcher error", "error", err)

		case <-ticker.C:
			w.pendingMu.Lock()
			paths := make([]string, 0, len(w.pending))
			for path := range w.pending {
				paths = append(paths, path)
			}
			w.pending = make(map[string]struct{})
			w.pendingMu.Unlock()

			for _, path := range paths {
				w.applyFile(path)
			}
		}
	}
}

// applyFile parses one override file name into a template key and
// registers its content. Files that don't encode a valid key are skipped.
func (w *TemplateWatcher) applyFile(path string) {
	key, ok := parseTemplateFileName(filepath.Base(path))
	if !ok {
		w.logger.Debug("ignoring override file with unrecognized name", "path", path)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("failed to read template override", "path", path, "error", err)
		return
	}

	w.registry.Register(key, string(data))
	w.logger.Info("template override applied", "key", key.String(), "path", path)
}

// parseTemplateFileName decodes module_domain_mode_step.txt into a key.
func parseTemplateFileName(name string) (prompts.Key, bool) {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(name, "_")
	if len(parts) != 4 {
		return prompts.Key{}, false
	}
	for _, part := range parts {
		if part == "" {
			return prompts.Key{}, false
		}
	}
	return prompts.Key{
		Module: parts[0],
		Domain: parts[1],
		Mode:   parts[2],
		Step:   parts[3],
	}, true
}

// ApplyDisabledKeys disables the template keys listed in the config
// (module/domain/mode/step strings).
func ApplyDisabledKeys(registry *prompts.Registry, disabled []string) {
	for _, entry := range disabled {
		parts := strings.Split(entry, "/")
		if len(parts) != 4 {
			continue
		}
		registry.Disable(prompts.Key{
			Module: parts[0],
			Domain: parts[1],
			Mode:   parts[2],
			Step:   parts[3],
		})
	}
}
