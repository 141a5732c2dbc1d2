package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("want default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.ActorSystemPriority == 0 {
		t.Fatalf("want a non-zero default actor system priority")
	}
}

func TestLoadFillsOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lacpd.yaml")
	body := "actor_system_mac: \"02:00:00:00:00:01\"\nallow_cross_key_preemption: false\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ActorSystemMAC != "02:00:00:00:00:01" {
		t.Fatalf("want actor_system_mac preserved, got %q", cfg.ActorSystemMAC)
	}
	if cfg.AllowCrossKeyPreemption {
		t.Fatalf("want allow_cross_key_preemption=false honored from file")
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("want omitted log_level defaulted, got %q", cfg.LogLevel)
	}
}

func TestToEngineConfigParsesActorMAC(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.ActorSystemMAC = "02:00:00:00:00:05"

	ecfg, err := cfg.ToEngineConfig()
	if err != nil {
		t.Fatalf("ToEngineConfig: %v", err)
	}
	if ecfg.ActorSystemID.MAC.String() != "02:00:00:00:00:05" {
		t.Fatalf("want actor MAC round-tripped, got %v", ecfg.ActorSystemID.MAC)
	}
	if ecfg.ActorSystemID.Priority != cfg.ActorSystemPriority {
		t.Fatalf("want actor priority carried through")
	}
}

func TestToEngineConfigRejectsInvalidMAC(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.ActorSystemMAC = "not-a-mac"

	if _, err := cfg.ToEngineConfig(); err == nil {
		t.Fatalf("want an error for an invalid actor_system_mac")
	}
}
