package noteservice

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// SyncCallback is called after a watcher-driven Sync changed the index.
type SyncCallback func(SyncReport)

// Watch starts an fsnotify watcher on dataDir, the directory the note
// snapshot lives in, and runs Sync whenever the snapshot changes. Bursts of
// events are debounced and a snapshot whose fingerprint matches the last
// synced one is skipped, so the service's own writes cost one read.
// Watch runs until ctx is cancelled.
func (s *Service) Watch(ctx context.Context, dataDir string, debounce time.Duration, cb SyncCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	snapshot := filepath.Join(dataDir, filepath.FromSlash(s.notes.Key()))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Atomic writes replace the file, so watch the directory, not the file.
	if err := w.Add(filepath.Dir(snapshot)); err != nil {
		return err
	}
	s.logger.Info("watcher: started", slog.String("snapshot", snapshot))

	last := ""
	syncNow := func() {
		fp, err := s.notes.Fingerprint()
		if err != nil {
			s.logger.Warn("watcher: fingerprint failed", slog.String("error", err.Error()))
			return
		}
		if fp == last {
			return
		}
		report, err := s.Sync(ctx)
		if err != nil {
			s.logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
			return
		}
		last = fp
		if report.Changed() && cb != nil {
			cb(report)
		}
	}
	syncNow()

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			syncNow()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != snapshot {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.logger.Debug("watcher: snapshot changed", slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
