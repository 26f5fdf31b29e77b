package scan

import (
	"context"
	"sync"

	"github.com/scan-io-git/yarascan/internal/walk"
)

// Hooks are the lifecycle points of a parallel walk. W is the private state of
// one worker, such as its evaluator.
type Hooks[W any] struct {
	// Init is called once per worker before its first file.
	Init func() (W, error)
	// File is called for every file. Returned errors go to Error.
	File func(w W, path string) error
	// Finalize is called once per worker after its last file.
	Finalize func(w W)
	// Done is called once after every worker finished, unless the walk failed.
	Done func()
	// Error receives per-file errors. It is called from many workers at once.
	Error func(err error)
}

// ParallelWalk feeds every file of the walker to a pool of workers. A file
// error never stops the walk; an enumeration error or a failed Init does, and
// is returned once all workers have stopped.
func ParallelWalk[W any](ctx context.Context, walker *walk.Walker, workers int, hooks Hooks[W]) error {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	paths := make(chan string, workers*2)
	walkDone := make(chan error, 1)
	go func() {
		defer close(paths)
		err := walker.Walk(ctx, func(path string) error {
			select {
			case paths <- path:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			cancel()
		}
		walkDone <- err
	}()

	var (
		wg       sync.WaitGroup
		initOnce sync.Once
		initErr  error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			w, err := hooks.Init()
			if err != nil {
				initOnce.Do(func() { initErr = err })
				cancel()
				return
			}
			if hooks.Finalize != nil {
				defer hooks.Finalize(w)
			}

			for path := range paths {
				if ctx.Err() != nil {
					continue
				}
				if err := hooks.File(w, path); err != nil && hooks.Error != nil {
					hooks.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	walkErr := <-walkDone

	if initErr != nil {
		return initErr
	}
	if walkErr != nil {
		return walkErr
	}
	if hooks.Done != nil {
		hooks.Done()
	}
	return nil
}
