package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/pipeline"
)

// ProcessBatch runs proc over paths with cfg.Workers concurrent workers.
// Items keep the order of paths. A failing file is recorded and does not
// stop the batch; a cancelled context does.
func ProcessBatch(ctx context.Context, proc Processor, paths []string, cfg Config) (*Result, error) {
	if proc == nil {
		return nil, errors.New("processor is nil")
	}
	if len(paths) == 0 {
		return nil, errors.New("no files to process")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	slog.Debug("Starting batch", "files", len(paths), "workers", workers, "mode", cfg.Mode)
	start := time.Now()

	items := make([]Item, len(paths))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items[i] = processOne(ctx, proc, paths[i], cfg)
			}
		}()
	}

	var cancelled error
feed:
	for i := range paths {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, fmt.Errorf("batch cancelled: %w", cancelled)
	}

	res := &Result{Items: items, Duration: time.Since(start), WorkerCount: workers}
	slog.Debug("Batch completed", "files", len(paths), "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func processOne(ctx context.Context, proc Processor, path string, cfg Config) Item {
	item := Item{File: path}
	var err error
	if cfg.Mode == pipeline.ModeCollege {
		item.Fixed, err = proc.ProcessFixed(ctx, path, cfg.ExpectedSem)
	} else {
		item.Result, err = proc.Process(ctx, path)
	}
	if err != nil {
		item.Error = err.Error()
		slog.Warn("Failed to process file", "file", path, "error", err)
	}
	return item
}
