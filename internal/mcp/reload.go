package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/toanps/agentvault/internal/policy"
	"github.com/toanps/agentvault/internal/request"
)

// Reloader watches the rules file and hot-swaps the orchestrator's rule set
// on change.
type Reloader struct {
	watcher *fsnotify.Watcher
	orch    *request.Orchestrator
	path    string
}

// NewReloader creates a file watcher for the rules file. A missing file is
// not an error; the watcher simply has nothing to report until it appears.
func NewReloader(orch *request.Orchestrator, path string) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("mcp: create file watcher: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("mcp: watch %q: %w", path, err)
		}
	}

	return &Reloader{watcher: watcher, orch: orch, path: path}, nil
}

// Run watches for rule file changes. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait 500ms after the last write before reloading, since
	// editors fire several events per save.
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "file watcher error: %v\n", err)
		}
	}
}

func (r *Reloader) reload() {
	cfg, hash, err := policy.LoadRulesWithHash(r.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hot-reload failed: %v\n", err)
		return
	}
	r.orch.ReloadRules(cfg.Compile(), hash)
	fmt.Fprintf(os.Stderr, "hot-reload: rules reloaded (%s)\n", hash)
}
