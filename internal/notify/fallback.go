package notify

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/titlekeep/titlekeep-server/internal/domain"
)

// fallbackFile is the drop-in shape ops write next to the data directory to
// point the legacy single-tenant fallback somewhere new without a restart.
type fallbackFile struct {
	WebhookURL string `json:"webhook_url"`
	Mention    string `json:"mention,omitempty"`
}

// FallbackWatcher hot-reloads the legacy fallback destination from a JSON
// drop-in file and pushes changes into the router.
type FallbackWatcher struct {
	path    string
	router  *Router
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// NewFallbackWatcher loads the file once (missing file just means no
// fallback) and begins watching its directory. Watching the directory rather
// than the file survives editors that replace the file on save.
func NewFallbackWatcher(path string, router *Router, logger *slog.Logger) (*FallbackWatcher, error) {
	fw := &FallbackWatcher{path: filepath.Clean(path), router: router, logger: logger}
	fw.load()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(fw.path)); err != nil {
		watcher.Close()
		return nil, err
	}
	fw.watcher = watcher
	return fw, nil
}

// Start processes file events until ctx is canceled.
func (fw *FallbackWatcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case event, ok := <-fw.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != fw.path {
					continue
				}
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
					fw.load()
				}
				if event.Op.Has(fsnotify.Remove) {
					fw.router.SetFallback(nil)
					fw.logger.Info("fallback destination file removed, fallback cleared")
				}
			case err, ok := <-fw.watcher.Errors:
				if !ok {
					return
				}
				fw.logger.Warn("fallback file watch error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close releases the underlying watcher.
func (fw *FallbackWatcher) Close() error {
	return fw.watcher.Close()
}

func (fw *FallbackWatcher) load() {
	f, err := os.Open(fw.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fw.logger.Warn("cannot read fallback destination file", "path", fw.path, "error", err)
		}
		return
	}
	defer f.Close()

	var cfg fallbackFile
	if err := json.UnmarshalRead(f, &cfg); err != nil {
		fw.logger.Warn("malformed fallback destination file, keeping previous fallback",
			"path", fw.path, "error", err)
		return
	}
	if cfg.WebhookURL == "" {
		fw.router.SetFallback(nil)
		fw.logger.Info("fallback destination cleared by drop-in file")
		return
	}
	fw.router.SetFallback(&domain.Destination{
		WebhookURL: cfg.WebhookURL,
		Mention:    cfg.Mention,
	})
	fw.logger.Info("fallback destination reloaded", "path", fw.path)
}
