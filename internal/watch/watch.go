// Package watch processes marksheets as they appear in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/batch"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet before it is processed.
const DefaultSettle = 500 * time.Millisecond

// Handler processes one file. Errors are logged and do not stop the watch.
type Handler func(ctx context.Context, path string) error

// Watcher feeds newly created or rewritten images and PDFs in Dir to a
// Handler, one file at a time.
type Watcher struct {
	Dir     string
	Handler Handler
	// Settle debounces bursts of write events for the same file.
	Settle time.Duration
	// Existing also processes files already present when the watch starts.
	Existing bool

	ready chan struct{}
	once  sync.Once
}

// New returns a watcher for dir.
func New(dir string, h Handler) *Watcher {
	return &Watcher{Dir: dir, Handler: h, Settle: DefaultSettle}
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	w.init()
	return w.ready
}

func (w *Watcher) init() {
	w.once.Do(func() { w.ready = make(chan struct{}) })
}

// Run watches until ctx is cancelled. It returns an error only when the
// watch cannot be established.
func (w *Watcher) Run(ctx context.Context) error {
	w.init()
	if w.Handler == nil {
		return errors.New("watch handler is nil")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan string, 64)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case path := <-queue:
				w.handle(ctx, path)
			}
		}
	}()

	enqueue := func(path string) {
		select {
		case queue <- path:
		case <-ctx.Done():
		}
	}

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()
	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Reset(w.Settle)
			return
		}
		timers[path] = time.AfterFunc(w.Settle, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			enqueue(path)
		})
	}

	slog.Info("Watching for marksheets", "dir", w.Dir)
	close(w.ready)

	if w.Existing {
		files, err := batch.DiscoverFiles([]string{w.Dir}, false, nil, nil)
		if err != nil {
			slog.Warn("Failed to list existing files", "dir", w.Dir, "error", err)
		}
		for _, f := range files {
			enqueue(f)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !batch.IsProcessable(ev.Name) {
				continue
			}
			schedule(ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watch error", "dir", w.Dir, "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	start := time.Now()
	if err := w.Handler(ctx, path); err != nil {
		slog.Warn("Failed to process file", "file", path, "error", err)
		return
	}
	slog.Debug("Processed file", "file", path, "duration_ms", time.Since(start).Milliseconds())
}
