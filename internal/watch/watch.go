// Package watch regenerates the output whenever the input file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/mise-tools/mise-en-gitlab/internal/logging"
)

const DefaultDebounce = 300 * time.Millisecond

type Options struct {
	Input    string
	Debounce time.Duration
	Logger   *logging.Logger

	// Regenerate runs one full generation. Failures are logged and the
	// loop keeps watching; a broken edit should not kill the session.
	Regenerate func() error
}

// Run watches the input file until ctx is cancelled. The parent directory is
// watched rather than the file itself: most editors replace the file on
// save, which would otherwise drop the watch.
func Run(ctx context.Context, opts Options) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(opts.Input)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	trigger := make(chan struct{}, 1)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(event.Name) != filepath.Base(abs) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case trigger <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				opts.Logger.Warnf("watch: %v", err)
			}
		}
	})

	g.Go(func() error {
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-trigger:
				if timer == nil {
					timer = time.NewTimer(opts.Debounce)
					fire = timer.C
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(opts.Debounce)
				}
			case <-fire:
				timer = nil
				fire = nil
				opts.Logger.Debugf("%s changed, regenerating", opts.Input)
				if err := opts.Regenerate(); err != nil {
					opts.Logger.Errorf("regenerate: %v", err)
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
