package gateway

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/promptgate/promptgate/internal/audit"
	"github.com/promptgate/promptgate/internal/model"
	"github.com/promptgate/promptgate/internal/policy"
)

// Reloader watches the policy config file and hot-reloads the engine when it
// changes. A reload is itself a compliance-relevant fact, so each one lands
// in the audit trail.
type Reloader struct {
	watcher *fsnotify.Watcher
	gw      *Gateway
	path    string
}

// NewReloader creates a file watcher for the gateway's policy config. It is
// an error to call this on a gateway configured without a policy file.
func NewReloader(gw *Gateway) (*Reloader, error) {
	if gw.cfg.PolicyPath == "" {
		return nil, fmt.Errorf("gateway: no policy config file to watch")
	}
	if _, err := os.Stat(gw.cfg.PolicyPath); err != nil {
		return nil, fmt.Errorf("gateway: watch policy config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("gateway: create file watcher: %w", err)
	}
	if err := watcher.Add(gw.cfg.PolicyPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("gateway: watch %q: %w", gw.cfg.PolicyPath, err)
	}

	return &Reloader{watcher: watcher, gw: gw, path: gw.cfg.PolicyPath}, nil
}

// Run watches for config changes and reloads policy. Blocks until ctx is
// cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait 500ms after the last write before reloading, editors
	// tend to emit bursts of events per save.
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
	cfg, err := policy.LoadConfig(r.path)
	if err != nil {
		// Keep the last good config on a broken edit.
		fmt.Fprintf(os.Stderr, "hot-reload failed: %v\n", err)
		return
	}
	r.gw.engine.Reload(cfg)
	if _, err := r.gw.auditLog.Record(audit.Event{
		Type:     model.EventSystem,
		Severity: model.SeverityLow,
		Message:  "policy configuration reloaded",
		Metadata: map[string]any{"config_path": r.path},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "hot-reload: audit record failed: %v\n", err)
	}
}
