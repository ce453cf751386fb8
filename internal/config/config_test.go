package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{
		"interval": 3600,
		"stages": [
			{"name": "hourly", "keep": 24},
			{"name": "daily", "keep": 7}
		]
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Interval != 3600 {
		t.Errorf("expected interval 3600, got %d", cfg.Interval)
	}
	if len(cfg.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(cfg.Stages))
	}
	if cfg.Stages[0].Name != "hourly" || cfg.Stages[0].Keep != 24 {
		t.Errorf("unexpected first stage: %+v", cfg.Stages[0])
	}
	if cfg.Stages[1].Name != "daily" || cfg.Stages[1].Keep != 7 {
		t.Errorf("unexpected second stage: %+v", cfg.Stages[1])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"interval": 0, "stages": [{"name": "hourly", "keep": 24}]}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a non-positive interval")
	}
}

func TestLoadRejectsEmptyStages(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"interval": 3600, "stages": []}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an empty stage list")
	}
}

func TestLoadRejectsStageWithoutName(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"interval": 3600, "stages": [{"name": "", "keep": 24}]}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a stage missing a name")
	}
}

func TestLoadRejectsNonPositiveKeep(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"interval": 3600, "stages": [{"name": "hourly", "keep": 0}]}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a non-positive keep count")
	}
}
