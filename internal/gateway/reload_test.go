package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReloaderPicksUpConfigChange(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(cfgPath, []byte("privacy:\n  enabled: true\n  require_consent: true\n  sanitize_prompts: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	gw, err := Open(Config{StateDir: dir, PolicyPath: cfgPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !gw.Engine().Config().Privacy.RequireConsent {
		t.Fatal("initial config should require consent")
	}

	r, err := NewReloader(gw)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	if err := os.WriteFile(cfgPath, []byte("privacy:\n  enabled: true\n  require_consent: false\n  sanitize_prompts: true\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// Reload is debounced, so poll with a generous deadline.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !gw.Engine().Config().Privacy.RequireConsent {
			cancel()
			<-done
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("config change was not hot-reloaded before deadline")
}

func TestNewReloaderRequiresPolicyPath(t *testing.T) {
	gw := newTestGateway(t)
	if _, err := NewReloader(gw); err == nil {
		t.Fatal("expected error for gateway without a policy config file")
	}
}

func TestReloaderKeepsLastGoodConfigOnBrokenEdit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(cfgPath, []byte("privacy:\n  require_consent: false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	gw, err := Open(Config{StateDir: dir, PolicyPath: cfgPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	r, err := NewReloader(gw)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	if err := os.WriteFile(cfgPath, []byte("privacy: [broken"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// Give the debounced reload time to fire, then confirm the engine still
	// serves the last good configuration.
	time.Sleep(1200 * time.Millisecond)
	if gw.Engine().Config().Privacy.RequireConsent {
		t.Fatal("broken edit replaced the last good config")
	}
}
