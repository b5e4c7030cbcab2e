package inliner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gnolang/goinline/internal/source"
	"go.uber.org/zap"
)

// DefaultSettleDelay is how long the watcher waits after the last change of a
// file before expanding it, so that a burst of writes is expanded once.
const DefaultSettleDelay = 100 * time.Millisecond

// Watcher expands files again whenever they are written.
type Watcher struct {
	engine ExpandEngine
	logger *zap.Logger
	dirs   []string
	// outDir receives the expansions, mirroring the layout of the watched
	// directories. When empty the expansions are only checked.
	outDir string
	delay  time.Duration

	// OnOutput, when set, is called after every expansion attempt. It runs on
	// the timer goroutine of the file.
	OnOutput func(path string, out *Output, err error)

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func NewWatcher(engine ExpandEngine, logger *zap.Logger, dirs []string, outDir string) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		engine:  engine,
		logger:  logger,
		dirs:    dirs,
		outDir:  outDir,
		delay:   DefaultSettleDelay,
		pending: make(map[string]*time.Timer),
	}
}

// SetDelay changes the settle delay.
func (w *Watcher) SetDelay(d time.Duration) {
	w.delay = d
}

// Run watches the directories and their subdirectories until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer fw.Close()
	defer w.stop()

	for _, dir := range w.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && !w.isOutput(path) {
				return fw.Add(path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	w.logger.Info("Watching for changes", zap.Strings("dirs", w.dirs))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleFileEvent(ctx, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleFileEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !source.HasExtension(event.Name, w.engine.Extensions()) || w.isOutput(event.Name) {
		return
	}

	w.schedule(ctx, event.Name)
}

// schedule expands path once no change to it has been seen for the settle
// delay. A change arriving while a previous one is still waiting restarts
// that wait instead of queuing a second expansion.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.delay)
		return
	}

	var t *time.Timer
	w.wg.Add(1)
	t = time.AfterFunc(w.delay, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.expand(path)
	})
	w.pending[path] = t
}

// stop drops the expansions still waiting and waits for the running ones.
func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) expand(path string) {
	out, err := w.process(path)
	if err != nil {
		w.logger.Error("Error expanding file", zap.String("file", path), zap.Error(err))
	} else {
		w.logger.Info("Expanded file",
			zap.String("file", path),
			zap.Int("expansions", out.Expansions))
	}
	if w.OnOutput != nil {
		w.OnOutput(path, out, err)
	}
}

func (w *Watcher) process(path string) (*Output, error) {
	out, err := w.engine.Expand(path, nil)
	if err != nil {
		return nil, err
	}
	if w.outDir == "" {
		return out, nil
	}

	target, err := w.target(path)
	if err != nil {
		return nil, err
	}
	if err := WriteOutput(out, target); err != nil {
		return nil, err
	}
	return out, nil
}

// target maps a watched file to its place below outDir.
func (w *Watcher) target(path string) (string, error) {
	for _, dir := range w.dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		return filepath.Join(w.outDir, rel), nil
	}
	return "", fmt.Errorf("%s is outside the watched directories", path)
}

// isOutput reports whether path lies in the output directory, whose files
// must not trigger another expansion.
func (w *Watcher) isOutput(path string) bool {
	if w.outDir == "" {
		return false
	}
	rel, err := filepath.Rel(w.outDir, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}
