package ingestion

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher notifies a callback when subject files in the loader's directory
// are created, written, removed or renamed. Bursts of events (editors often
// write a file several times per save) are debounced into one call.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	loader   *Loader
	onChange func()
	debounce time.Duration
	logger   *zap.Logger
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a Watcher for the loader's subject directory.
func NewWatcher(loader *Loader, debounce time.Duration, logger *zap.Logger, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:  fw,
		loader:   loader,
		onChange: onChange,
		debounce: debounce,
		logger:   logger,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It returns immediately; events are handled until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := os.MkdirAll(w.loader.Dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create subject directory %s: %w", w.loader.Dir(), err)
	}
	if err := w.watcher.Add(w.loader.Dir()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.loader.Dir(), err)
	}
	w.running = true
	w.logger.Info("Watching subject directory", zap.String("dir", w.loader.Dir()))
	go w.run(ctx)
	return nil
}

// Stop closes the underlying watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("Failed to close file watcher", zap.Error(err))
	}
	if running {
		<-w.doneCh
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.loader.IsSubjectFile(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("Subject file event", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			w.onChange()
		}
	}
}
