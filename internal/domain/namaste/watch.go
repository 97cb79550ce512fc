package namaste

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a Loader whenever its CSV changes on disk. The parent
// directory is watched because editors and uploads replace the file by
// rename.
type Watcher struct {
	loader   *Loader
	fw       *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger
	onReload func(terms int)
	done     chan struct{}
	stopped  bool
	mu       sync.Mutex
}

// NewWatcher creates a watcher for the loader's CSV path.
func NewWatcher(loader *Loader, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(loader.Path())); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		loader:   loader,
		fw:       fw,
		debounce: defaultDebounce,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// OnReload registers fn to run after each successful reload. Call it
// before Start.
func (w *Watcher) OnReload(fn func(terms int)) {
	w.onReload = fn
}

// Start runs the event loop until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	target := filepath.Clean(w.loader.Path())
	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			n, err := w.loader.Reload(ctx)
			if err != nil {
				continue
			}
			w.logger.Info().Int("terms", n).Msg("NAMASTE csv changed, reloaded")
			if w.onReload != nil {
				w.onReload(n)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("csv watcher error")

		case <-ctx.Done():
			return
		case <-w.done:
			return
		}
	}
}

// Stop ends monitoring. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}
