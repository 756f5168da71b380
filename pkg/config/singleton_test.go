package config

import (
	"sync"
	"testing"
)

func resetForTest(t *testing.T) {
	t.Helper()
	reset := func() {
		configMutex.Lock()
		defer configMutex.Unlock()
		globalConfig = nil
		initOnce = sync.Once{}
		reloadHooks = nil
	}
	reset()
	t.Cleanup(reset)
}

func TestInitialize(t *testing.T) {
	resetForTest(t)

	path := writeConfig(t, "export:\n  batch_size: 42\n")
	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Export.BatchSize != 42 {
		t.Errorf("expected batch size 42, got %d", cfg.Export.BatchSize)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	resetForTest(t)

	first := writeConfig(t, "export:\n  batch_size: 1\n")
	second := writeConfig(t, "export:\n  batch_size: 2\n")

	if err := Initialize(first); err != nil {
		t.Fatal(err)
	}
	if err := Initialize(second); err != nil {
		t.Fatal(err)
	}
	if got := GetConfig().Export.BatchSize; got != 1 {
		t.Errorf("expected first config to win, got batch size %d", got)
	}
}

func TestGetConfig_BeforeInitialize(t *testing.T) {
	resetForTest(t)

	if GetConfig() != nil {
		t.Error("expected nil config before initialization")
	}
}

func TestReloadConfig(t *testing.T) {
	resetForTest(t)

	path := writeConfig(t, "export:\n  batch_size: 5\n")
	if err := Initialize(path); err != nil {
		t.Fatal(err)
	}

	var hooked *Config
	OnReload(func(c *Config) { hooked = c })

	other := writeConfig(t, "export:\n  batch_size: 7\n")
	if err := ReloadConfig(other); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := GetConfig().Export.BatchSize; got != 7 {
		t.Errorf("expected batch size 7 after reload, got %d", got)
	}
	if hooked == nil || hooked.Export.BatchSize != 7 {
		t.Errorf("expected reload hook to receive new config, got %+v", hooked)
	}
}

func TestReloadConfig_ValidationFailureKeepsConfig(t *testing.T) {
	resetForTest(t)

	path := writeConfig(t, "export:\n  batch_size: 5\n")
	if err := Initialize(path); err != nil {
		t.Fatal(err)
	}

	calls := 0
	OnReload(func(*Config) { calls++ })

	bad := writeConfig(t, "export:\n  batch_size: -3\n")
	if err := ReloadConfig(bad); err == nil {
		t.Fatal("expected reload to fail")
	}
	if got := GetConfig().Export.BatchSize; got != 5 {
		t.Errorf("expected previous config to remain, got batch size %d", got)
	}
	if calls != 0 {
		t.Errorf("expected no hook calls on failed reload, got %d", calls)
	}
}

func TestMustGetConfig(t *testing.T) {
	resetForTest(t)

	defer func() {
		if recover() == nil {
			t.Error("expected panic before initialization")
		}
	}()
	MustGetConfig()
}

func TestSetConfig(t *testing.T) {
	resetForTest(t)

	cfg := Default()
	SetConfig(cfg)
	if MustGetConfig() != cfg {
		t.Error("expected SetConfig to replace the global config")
	}
}
