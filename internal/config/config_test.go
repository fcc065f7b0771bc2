package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Workers != 4 || cfg.MinScore != 0.7 {
		t.Errorf("workers=%d min_score=%g", cfg.Workers, cfg.MinScore)
	}
	if cfg.Backends.OCR || !cfg.Backends.LLM {
		t.Errorf("expected llm only by default, got %+v", cfg.Backends)
	}
	if got := cfg.ManifestPath(); got != filepath.Join("photos", "HikingSigns", ManifestFile) {
		t.Errorf("ManifestPath = %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
photo_dir: /data/photos
manifest: /data/manifest.toml
workers: 8
min_score: 0.5
backend_timeout: 45s
debug_overlay: true
backends:
  ocr: true
  ocr_languages: [fra, eng]
  llm: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PhotoDir != "/data/photos" || cfg.Workers != 8 || cfg.MinScore != 0.5 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.BackendTimeout != 45*time.Second {
		t.Errorf("BackendTimeout = %s", cfg.BackendTimeout)
	}
	if !cfg.Backends.OCR || cfg.Backends.LLM || !cfg.DebugOverlay {
		t.Errorf("unexpected toggles %+v", cfg.Backends)
	}
	if !reflect.DeepEqual(cfg.Backends.OCRLanguages, []string{"fra", "eng"}) {
		t.Errorf("OCRLanguages = %v", cfg.Backends.OCRLanguages)
	}
	// Unset keys keep their defaults.
	if cfg.Backends.LLMModel != "moondream" || cfg.CropDir != "./crop" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.ManifestPath() != "/data/manifest.toml" {
		t.Errorf("ManifestPath = %q", cfg.ManifestPath())
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "workers: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HIKING_SIGNS_WORKERS", "2")
	t.Setenv("HIKING_SIGNS_OCR", "true")
	t.Setenv("HIKING_SIGNS_LLM_MODEL", "llava")
	t.Setenv("HIKING_SIGNS_BACKEND_TIMEOUT", "1m")
	t.Setenv("HIKING_SIGNS_OCR_LANGUAGES", "fra+eng")
	t.Setenv("HIKING_SIGNS_MIN_SCORE", "0.9")

	cfg, err := Load(writeConfig(t, "workers: 8\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("environment should override file, workers = %d", cfg.Workers)
	}
	if !cfg.Backends.OCR || cfg.Backends.LLMModel != "llava" {
		t.Errorf("unexpected backends %+v", cfg.Backends)
	}
	if cfg.BackendTimeout != time.Minute || cfg.MinScore != 0.9 {
		t.Errorf("timeout=%s min_score=%g", cfg.BackendTimeout, cfg.MinScore)
	}
	if !reflect.DeepEqual(cfg.Backends.OCRLanguages, []string{"fra", "eng"}) {
		t.Errorf("OCRLanguages = %v", cfg.Backends.OCRLanguages)
	}
}

func TestEnvInvalid(t *testing.T) {
	t.Setenv("HIKING_SIGNS_WORKERS", "many")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "HIKING_SIGNS_WORKERS") {
		t.Errorf("expected error naming the variable, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no photo dir", func(c *Config) { c.PhotoDir = "" }, "photo_dir"},
		{"no crop dir", func(c *Config) { c.CropDir = "" }, "crop_dir"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"score above one", func(c *Config) { c.MinScore = 1.5 }, "min_score"},
		{"negative score", func(c *Config) { c.MinScore = -0.1 }, "min_score"},
		{"negative timeout", func(c *Config) { c.BackendTimeout = -time.Second }, "backend_timeout"},
		{"llm without model", func(c *Config) { c.Backends.LLMModel = " " }, "llm_model"},
		{"negative rate", func(c *Config) { c.Backends.LLMRequestsPerSecond = -1 }, "llm_requests_per_second"},
		{"ocr without languages", func(c *Config) {
			c.Backends.OCR = true
			c.Backends.OCRLanguages = nil
		}, "ocr_languages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}

	cfg := Default()
	cfg.Backends.LLM = false
	cfg.Backends.LLMModel = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("model is optional with llm disabled: %v", err)
	}
}
