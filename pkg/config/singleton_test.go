package config

import (
	"path/filepath"
	"sync"
	"testing"
)

// resetForTesting clears the singleton so tests can call Initialize again.
func resetForTesting() {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = nil
	initOnce = sync.Once{}
	initErr = nil
}

func TestInitialize(t *testing.T) {
	resetForTesting()
	defer resetForTesting()

	path := writeConfig(t, "upstream:\n  base_url: \"http://127.0.0.1:7000\"\n")

	if err := Initialize(path, false); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected config after Initialize")
	}
	if cfg.Upstream.BaseURL != "http://127.0.0.1:7000" {
		t.Errorf("expected base URL %q, got %q", "http://127.0.0.1:7000", cfg.Upstream.BaseURL)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	resetForTesting()
	defer resetForTesting()

	first := writeConfig(t, "upstream:\n  base_url: \"http://first.test\"\n")
	second := writeConfig(t, "upstream:\n  base_url: \"http://second.test\"\n")

	if err := Initialize(first, false); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := Initialize(second, false); err != nil {
		t.Fatalf("second Initialize returned error: %v", err)
	}

	if got := GetConfig().Upstream.BaseURL; got != "http://first.test" {
		t.Errorf("expected first config to win, got %q", got)
	}
}

func TestInitialize_ErrorIsSticky(t *testing.T) {
	resetForTesting()
	defer resetForTesting()

	missing := filepath.Join(t.TempDir(), "absent.yaml")
	if err := Initialize(missing, false); err == nil {
		t.Fatal("expected error for a missing explicit file")
	}
	valid := writeConfig(t, "upstream:\n  base_url: \"http://127.0.0.1:7000\"\n")
	if err := Initialize(valid, false); err == nil {
		t.Error("expected the first error to be returned again")
	}
	if GetConfig() != nil {
		t.Error("expected no config after a failed Initialize")
	}
}

func TestInitialize_MissingDefaultFile(t *testing.T) {
	resetForTesting()
	defer resetForTesting()

	if err := Initialize(filepath.Join(t.TempDir(), "loupe.yaml"), true); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if GetConfig().Store.Path != DefaultStorePath {
		t.Errorf("expected default store path, got %q", GetConfig().Store.Path)
	}
}

func TestSetConfig(t *testing.T) {
	resetForTesting()
	defer resetForTesting()

	if GetConfig() != nil {
		t.Fatal("expected nil config before Initialize")
	}

	cfg := NewTestConfig().WithListenAddress("127.0.0.1:1").Build()
	SetConfig(cfg)

	if GetConfig() != cfg {
		t.Error("expected GetConfig to return the config passed to SetConfig")
	}
}

func TestMustGetConfig(t *testing.T) {
	resetForTesting()
	defer resetForTesting()

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustGetConfig to panic before Initialize")
		}
	}()
	MustGetConfig()
}
