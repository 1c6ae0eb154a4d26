package reload

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/apiwarden/apiwarden/metrics"
)

// Watcher triggers Holder.Reload when the contract file changes on
// disk. Events are debounced so editors that write in several steps
// cause one reload.
type Watcher struct {
	holder   *Holder
	logger   *slog.Logger
	recorder metrics.Recorder
	debounce time.Duration
}

// NewWatcher builds a watcher over the holder's contract file. logger
// and recorder may be nil.
func NewWatcher(holder *Holder, logger *slog.Logger, recorder metrics.Recorder) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Watcher{
		holder:   holder,
		logger:   logger,
		recorder: recorder,
		debounce: 200 * time.Millisecond,
	}
}

// Run watches until ctx is cancelled. It watches the contract's parent
// directory rather than the file itself so atomic-rename writes keep
// being observed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	path := w.holder.Path()
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Base(path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("contract watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	if err := w.holder.Reload(); err != nil {
		w.recorder.ObserveReload("error")
		w.logger.Error("contract reload failed, keeping previous snapshot",
			"path", w.holder.Path(), "error", err)
		return
	}
	w.recorder.ObserveReload("ok")
	w.logger.Info("contract reloaded", "path", w.holder.Path())
}
