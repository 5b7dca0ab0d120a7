package processing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"invoice-audit/internal/validation"
)

// watchSettleDelay gives the writer time to finish the file before we read
// it. Create events fire as soon as the file exists.
const watchSettleDelay = 500 * time.Millisecond

var watchedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".gif", ".heic", ".heif"}

// Watcher validates invoice documents as they land in an intake directory.
// All files seen during one Watch call share a single run, so the operator
// is asked about each unknown part at most once.
type Watcher struct {
	service *Service
	watcher *fsnotify.Watcher
}

// NewWatcher creates a directory watcher over the service.
func NewWatcher(service *Service) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return &Watcher{service: service, watcher: w}, nil
}

// Watch blocks until ctx is cancelled, validating every new document in
// dir. The batch collected so far is returned after cancellation; the
// discovery session is closed before returning.
func (w *Watcher) Watch(ctx context.Context, dir string) (*validation.BatchResult, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	slog.Info("Watching for invoices", "dir", dir)
	run := w.service.NewRun(ctx)

	for {
		select {
		case <-ctx.Done():
			return run.Finish(), nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return run.Finish(), nil
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !watchedExtension(event.Name) {
				continue
			}

			time.Sleep(watchSettleDelay)

			input, err := InputFromFile(event.Name)
			if err != nil {
				slog.Error("Reading new invoice failed", "path", event.Name, "error", err)
				continue
			}
			if _, err := run.Process(input); err != nil {
				// Store failure is fatal to the run.
				return run.Finish(), err
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return run.Finish(), nil
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

// Stop closes the underlying watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func watchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range watchedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
