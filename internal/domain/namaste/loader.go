package namaste

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Loader keeps a Store in sync with a CSV file on disk.
type Loader struct {
	store  *Store
	path   string
	logger zerolog.Logger
	mu     sync.Mutex // serialises reloads and replacements
}

// NewLoader creates a Loader for the CSV at path.
func NewLoader(store *Store, path string, logger zerolog.Logger) *Loader {
	return &Loader{store: store, path: path, logger: logger}
}

// Store returns the store the loader fills.
func (l *Loader) Store() *Store { return l.store }

// Path returns the CSV location.
func (l *Loader) Path() string { return l.path }

// Reload re-reads the CSV and swaps the store contents. On error the
// previous snapshot stays in place.
func (l *Loader) Reload(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reloadLocked(ctx)
}

func (l *Loader) reloadLocked(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rows, err := ReadCSVFile(l.path)
	if err != nil {
		l.logger.Error().Err(err).Str("path", l.path).Msg("NAMASTE reload failed")
		return 0, err
	}
	return l.store.Load(rows), nil
}

// Replace writes a new CSV in place of the current one and reloads from it.
// The file is swapped with a rename so a concurrent reader never sees a
// partial write.
func (l *Loader) Replace(ctx context.Context, src io.Reader) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".namaste-*.csv")
	if err != nil {
		return 0, fmt.Errorf("create temp csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return 0, fmt.Errorf("replace csv: %w", err)
	}
	l.logger.Info().Str("path", l.path).Msg("NAMASTE csv replaced")
	return l.reloadLocked(ctx)
}
