package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEngineConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadEngineConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != DefaultEngineConfig() {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, DefaultEngineConfig())
	}
}

func TestLoadEngineConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadEngineConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != DefaultEngineConfig() {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, DefaultEngineConfig())
	}
}

func TestLoadEngineConfig_OverridesDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.json")
	writeFile(t, path, `{"haltOnStrategyError": true, "defaultFeeRatePerUnit": "0.01"}`)

	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.HaltOnStrategyError {
		t.Fatal("want haltOnStrategyError overridden to true")
	}
	if cfg.DefaultFeeRatePerUnit != "0.01" {
		t.Fatalf("DefaultFeeRatePerUnit = %q, want 0.01", cfg.DefaultFeeRatePerUnit)
	}
	if cfg.DefaultMarginRatio != DefaultEngineConfig().DefaultMarginRatio {
		t.Fatalf("unset fields should keep their default, got %q", cfg.DefaultMarginRatio)
	}
}

func TestLoadEngineConfig_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.json")
	writeFile(t, path, `{"notAField": true}`)

	if _, err := LoadEngineConfig(path); err == nil {
		t.Fatal("want error for unknown field")
	}
}

func TestLoadSimBrokerConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadSimBrokerConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != DefaultSimBrokerConfig() {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, DefaultSimBrokerConfig())
	}
}

func TestLoadSimBrokerConfig_OverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broker.json")
	writeFile(t, path, `{"startingCash": "500000", "accountCurrency": "EUR"}`)

	cfg, err := LoadSimBrokerConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StartingCash != "500000" {
		t.Fatalf("StartingCash = %q, want 500000", cfg.StartingCash)
	}
	if cfg.AccountCurrency != "EUR" {
		t.Fatalf("AccountCurrency = %q, want EUR", cfg.AccountCurrency)
	}
	if cfg.FeeRatePerUnit != DefaultSimBrokerConfig().FeeRatePerUnit {
		t.Fatalf("unset fields should keep their default, got %q", cfg.FeeRatePerUnit)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test fixture %q: %v", path, err)
	}
}
