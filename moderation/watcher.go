package moderation

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultReloadDebounce = 500 * time.Millisecond

// ListWatcher reloads a Moderator's blocklists whenever the lists file changes on disk.
type ListWatcher struct {
	logger    *zap.Logger
	moderator *Moderator
	watcher   *fsnotify.Watcher
	path      string
	debounce  time.Duration
}

// NewListWatcher loads path once into m and prepares a watcher for later edits.
func NewListWatcher(logger *zap.Logger, m *Moderator, path string) (*ListWatcher, error) {
	lists, err := LoadLists(path)
	if err != nil {
		return nil, err
	}
	m.SetLists(lists)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &ListWatcher{
		logger:    logger,
		moderator: m,
		watcher:   w,
		path:      filepath.Clean(path),
		debounce:  defaultReloadDebounce,
	}, nil
}

// Start watches the parent directory so editors that replace the file by rename are picked up.
func (lw *ListWatcher) Start(ctx context.Context) error {
	if err := lw.watcher.Add(filepath.Dir(lw.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", lw.path, err)
	}
	lw.logger.Info("watching moderation lists", zap.String("path", lw.path))

	timer := time.NewTimer(0)
	<-timer.C

	go func() {
		for {
			select {
			case event, ok := <-lw.watcher.Events:
				if !ok {
					return
				}
				if lw.relevant(event) {
					timer.Reset(lw.debounce)
				}
			case err, ok := <-lw.watcher.Errors:
				if !ok {
					return
				}
				lw.logger.Error("moderation list watcher error", zap.Error(err))
			case <-timer.C:
				lw.reload()
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop closes the underlying watcher.
func (lw *ListWatcher) Stop() error {
	return lw.watcher.Close()
}

func (lw *ListWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != lw.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// reload keeps the previous lists when the new file cannot be parsed.
func (lw *ListWatcher) reload() {
	lists, err := LoadLists(lw.path)
	if err != nil {
		lw.logger.Warn("moderation lists reload failed, keeping previous lists", zap.Error(err))
		return
	}
	lw.moderator.SetLists(lists)
	lw.logger.Info("moderation lists reloaded",
		zap.Int("spamKeywords", len(lists.SpamKeywords)),
		zap.Int("profanity", len(lists.Profanity)))
}
