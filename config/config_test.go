package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestSaveLoadPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "engine.json")

	cfg := Default()
	cfg.MaxPatterns = 7
	cfg.StaticTextures = true
	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}

	partial := filepath.Join(dir, "partial.json")
	os.WriteFile(partial, []byte(`{"target_fps": 30}`), 0o644)
	got, err = Load(partial)
	if err != nil {
		t.Fatal(err)
	}
	if got.TargetFPS != 30 || got.MaxPatterns != 100 || !got.AutoPlay {
		t.Errorf("partial file did not inherit defaults: %+v", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"max_patterns": 0, "target_fps": 1000}`), 0o644)
	if _, err := Load(bad); err == nil {
		t.Error("invalid values accepted")
	}

	broken := filepath.Join(dir, "broken.json")
	os.WriteFile(broken, []byte(`{"max_patterns":`), 0o644)
	cfg, err := Load(broken)
	if err == nil {
		t.Error("malformed JSON accepted")
	}
	if cfg != Default() {
		t.Error("malformed file did not fall back to defaults")
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	c := Default()
	c.OptimizationLevel = 9
	if err := c.Validate(); err == nil {
		t.Error("optimization level 9 accepted")
	}
}
