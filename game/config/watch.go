package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce is the quiet period before onChange hears about a burst of events
const debounce = 100 * time.Millisecond

// Watch drops cached layouts when their files change until ctx is done.
// onChange, when non-nil, receives the id of every changed layout once the
// directory has been quiet for the debounce period.
func (m *Manager) Watch(ctx context.Context, logger *zap.Logger, onChange func(id string)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.configDir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		// cache drops happen per event; notifications wait for a quiet period
		pending := make(map[string]fsnotify.Op)
		flush := time.NewTimer(debounce)
		if !flush.Stop() {
			<-flush.C
		}
		defer flush.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if !isLayoutFile(event.Name) {
					continue
				}

				id := layoutID(filepath.Base(event.Name))
				m.Invalidate(id)
				if err := m.reloadDefaultIf(id); err != nil {
					logger.Warn("default layout reload failed", zap.String("layout", id), zap.Error(err))
				}
				pending[id] |= event.Op
				flush.Reset(debounce)
			case <-flush.C:
				for id, op := range pending {
					logger.Info("layout changed", zap.String("layout", id), zap.String("op", op.String()))
					if onChange != nil {
						onChange(id)
					}
				}
				clear(pending)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("layout watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}

// reloadDefaultIf refreshes the default layout when id backs it
func (m *Manager) reloadDefaultIf(id string) error {
	m.mu.RLock()
	isDefault := id == m.defaultName
	m.mu.RUnlock()

	if !isDefault {
		return nil
	}
	return m.loadDefaultConfig()
}
