package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Physics.MaxBodies != 65536 {
		t.Errorf("expected max bodies 65536, got %d", cfg.Physics.MaxBodies)
	}
	if cfg.Physics.MaxBodyPairs != 65536 {
		t.Errorf("expected max body pairs 65536, got %d", cfg.Physics.MaxBodyPairs)
	}
	if cfg.Physics.MaxContactConstraints != 10240 {
		t.Errorf("expected max contact constraints 10240, got %d", cfg.Physics.MaxContactConstraints)
	}
	if cfg.Scene.Name != "drop" {
		t.Errorf("expected drop scene, got %s", cfg.Scene.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	scene := GetPreset("stack")
	if scene == nil {
		t.Fatal("expected preset, got nil")
	}
	if len(scene.Bodies) != 4 {
		t.Errorf("expected 4 bodies, got %d", len(scene.Bodies))
	}

	scene.Bodies[0].Name = "changed"
	if Presets["stack"].Bodies[0].Name != "base" {
		t.Error("modifying a preset copy changed the preset")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"zero bodies", func(c *Config) { c.Physics.MaxBodies = 0 }, "max_bodies"},
		{"zero pairs", func(c *Config) { c.Physics.MaxBodyPairs = 0 }, "max_body_pairs"},
		{"zero contacts", func(c *Config) { c.Physics.MaxContactConstraints = 0 }, "max_contact_constraints"},
		{"negative workers", func(c *Config) { c.Physics.Workers = -1 }, "workers"},
		{"negative idle sleep", func(c *Config) { c.Physics.IdleSleep = -time.Millisecond }, "idle_sleep"},
		{"zero fps", func(c *Config) { c.Session.FPS = 0 }, "fps"},
		{"zero duration", func(c *Config) { c.Session.Duration = 0 }, "duration"},
		{"single sample ground", func(c *Config) { c.Scene.Ground.Size = 1 }, "ground size"},
		{"zero cell", func(c *Config) { c.Scene.Ground.Cell = 0 }, "ground cell"},
		{"bad shape", func(c *Config) { c.Scene.Bodies[0].Shape = "cone" }, "unknown shape"},
		{"debug rate", func(c *Config) { c.Debug.Enabled = true; c.Debug.Rate = 0 }, "debug rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simhost.yaml")

	cfg := DefaultConfig()
	cfg.Scene = *GetPreset("hills")
	cfg.Physics.Workers = 3
	cfg.Physics.IdleSleep = 2 * time.Millisecond
	cfg.Session.FPS = 30

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Scene.Name != "hills" {
		t.Errorf("expected hills, got %s", loaded.Scene.Name)
	}
	if loaded.Physics.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", loaded.Physics.Workers)
	}
	if loaded.Physics.IdleSleep != 2*time.Millisecond {
		t.Errorf("expected idle sleep 2ms, got %s", loaded.Physics.IdleSleep)
	}
	if loaded.Physics.Gravity != cfg.Physics.Gravity {
		t.Errorf("expected gravity %v, got %v", cfg.Physics.Gravity, loaded.Physics.Gravity)
	}
	if len(loaded.Scene.Characters) != 1 || !loaded.Scene.Characters[0].Simulated {
		t.Errorf("expected one simulated character, got %+v", loaded.Scene.Characters)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "physics:\n  time_scale: 0.5\n  idle_sleep: 3ms\nsession:\n  fps: 24\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Physics.TimeScale != 0.5 {
		t.Errorf("expected time scale 0.5, got %f", cfg.Physics.TimeScale)
	}
	if cfg.Physics.IdleSleep != 3*time.Millisecond {
		t.Errorf("expected idle sleep 3ms, got %s", cfg.Physics.IdleSleep)
	}
	if cfg.Session.FPS != 24 {
		t.Errorf("expected fps 24, got %d", cfg.Session.FPS)
	}
	if cfg.Physics.MaxBodies != DefaultMaxBodies {
		t.Errorf("expected default max bodies, got %d", cfg.Physics.MaxBodies)
	}
	if cfg.Session.Duration != DefaultDuration {
		t.Errorf("expected default duration, got %f", cfg.Session.Duration)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("session:\n  fps: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEncode(t *testing.T) {
	var b strings.Builder
	if err := Encode(&b, DefaultConfig()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := b.String()
	for _, want := range []string{"idle_sleep: 1ms", "name: drop", "integrator: symplectic"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}
