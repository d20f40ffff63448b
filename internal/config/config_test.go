package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(configPath, []byte("output: plain\nport: 9000\nretries: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SAFESTAKE_OUTPUT", "json")
	t.Setenv("SAFESTAKE_PORT", "9100")
	flags := GlobalFlags{ConfigPath: configPath, Plain: true, Retries: 5}
	settings, err := Load(flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.OutputMode != "plain" {
		t.Fatalf("expected flag to win, got output=%s", settings.OutputMode)
	}
	if settings.Port != 9100 {
		t.Fatalf("expected env port over file, got %d", settings.Port)
	}
	if settings.Retries != 5 {
		t.Fatalf("expected retries from flags, got %d", settings.Retries)
	}
}

func TestLoadWorkflowSection(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	content := "workflow:\n  stage_deadline: 45s\n  store_path: /tmp/wf.db\noracle:\n  mode: live\n  price_ttl: 1m\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := Load(GlobalFlags{ConfigPath: configPath, Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.StageDeadline != 45*time.Second {
		t.Fatalf("expected 45s stage deadline, got %s", settings.StageDeadline)
	}
	if settings.WorkflowStorePath != "/tmp/wf.db" {
		t.Fatalf("unexpected store path %s", settings.WorkflowStorePath)
	}
	if settings.Oracle != "live" {
		t.Fatalf("expected live oracle, got %s", settings.Oracle)
	}
	if settings.PriceTTL != time.Minute {
		t.Fatalf("expected 1m price ttl, got %s", settings.PriceTTL)
	}
}

func TestLoadMutuallyExclusiveOutputFlags(t *testing.T) {
	if _, err := Load(GlobalFlags{JSON: true, Plain: true}); err == nil {
		t.Fatal("expected error with --json and --plain")
	}
}

func TestLoadRejectsUnknownOracle(t *testing.T) {
	if _, err := Load(GlobalFlags{Oracle: "psychic", Retries: -1}); err == nil {
		t.Fatal("expected error for unknown oracle mode")
	}
}
