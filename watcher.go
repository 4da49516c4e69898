package adblock

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the filter lists each time the files in the directory
// change.  Changes coming in quick succession cause a single reload.  Watch
// blocks until ctx is canceled, in which case it returns nil.
func (e *Engine) Watch(ctx context.Context) (err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, w.Close()) }()

	err = w.Add(e.dir)
	if err != nil {
		return fmt.Errorf("watching %q: %w", e.dir, err)
	}

	timer := time.NewTimer(e.reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if isRelevantEvent(ev) {
				e.logger.DebugContext(ctx, "filter list changed", "file", ev.Name, "op", ev.Op)
				timer.Reset(e.reloadDelay)
			}
		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}

			e.logger.WarnContext(ctx, "watching filter lists", slogutil.KeyError, watchErr)
		case <-timer.C:
			reloadErr := e.Reload(ctx)
			if reloadErr != nil {
				e.logger.ErrorContext(ctx, "reloading filter lists", slogutil.KeyError, reloadErr)
			}
		}
	}
}

// isRelevantEvent returns true if ev may change the loaded filter lists.
func isRelevantEvent(ev fsnotify.Event) (ok bool) {
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}

	return ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) ||
		ev.Has(fsnotify.Rename)
}
