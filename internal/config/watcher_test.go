package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcher(t *testing.T) {
	t.Run("initial load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		writeConfig(t, path, "server:\n  log_level: warn\n")

		w, err := NewWatcher(path, nil, WithInterval(time.Hour))
		if err != nil {
			t.Fatalf("NewWatcher: %v", err)
		}
		defer w.Stop()

		if got := w.Current().Server.LogLevel; got != LogWarn {
			t.Errorf("log_level = %q, want warn", got)
		}
	})

	t.Run("invalid initial config fails construction", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		writeConfig(t, path, "store:\n  vector: redis\n")

		if _, err := NewWatcher(path, nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("change fires the callback", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		writeConfig(t, path, "server:\n  log_level: info\n")

		var mu sync.Mutex
		var gotNew *Config
		changed := make(chan struct{})
		onChange := func(_, new *Config) {
			mu.Lock()
			gotNew = new
			mu.Unlock()
			close(changed)
		}

		w, err := NewWatcher(path, onChange, WithInterval(10*time.Millisecond))
		if err != nil {
			t.Fatalf("NewWatcher: %v", err)
		}
		defer w.Stop()

		// Ensure the mtime moves even on coarse-grained filesystems.
		writeConfig(t, path, "server:\n  log_level: debug\n")
		future := time.Now().Add(time.Second)
		if err := os.Chtimes(path, future, future); err != nil {
			t.Fatalf("chtimes: %v", err)
		}

		select {
		case <-changed:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for the change callback")
		}

		mu.Lock()
		defer mu.Unlock()
		if gotNew.Server.LogLevel != LogDebug {
			t.Errorf("new log_level = %q, want debug", gotNew.Server.LogLevel)
		}
		if w.Current().Server.LogLevel != LogDebug {
			t.Errorf("Current() not updated")
		}
	})

	t.Run("invalid rewrite keeps the old config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		writeConfig(t, path, "server:\n  log_level: info\n")

		w, err := NewWatcher(path, func(_, _ *Config) {
			t.Error("callback must not fire for an invalid config")
		}, WithInterval(10*time.Millisecond))
		if err != nil {
			t.Fatalf("NewWatcher: %v", err)
		}
		defer w.Stop()

		writeConfig(t, path, "store:\n  vector: redis\n")
		future := time.Now().Add(time.Second)
		if err := os.Chtimes(path, future, future); err != nil {
			t.Fatalf("chtimes: %v", err)
		}

		time.Sleep(200 * time.Millisecond)
		if got := w.Current().Server.LogLevel; got != LogInfo {
			t.Errorf("log_level = %q, want the retained info", got)
		}
	})
}
