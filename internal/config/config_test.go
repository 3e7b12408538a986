package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Port != "8090" {
		t.Fatalf("unexpected default port: %q", cfg.Port)
	}
	if cfg.SentenceThreshold != 0.90 || cfg.ParagraphThreshold != 0.85 {
		t.Fatalf("unexpected default thresholds: %+v", cfg)
	}
	if cfg.MinConfidence != 0.7 || cfg.MinSentenceLength != 30 {
		t.Fatalf("unexpected analysis defaults: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("SENTENCE_THRESHOLD", "0.95")
	t.Setenv("WORKERS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9999" || cfg.SentenceThreshold != 0.95 || cfg.Workers != 2 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestYAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yaml := "port: \"7000\"\nsentence_threshold: 0.8\nmin_confidence: 0.6\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NARRATIVE_CONFIG", path)
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "7001" {
		t.Fatalf("env must override file, got %q", cfg.Port)
	}
	if cfg.SentenceThreshold != 0.8 || cfg.MinConfidence != 0.6 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestValidateRejectsBadRanges(t *testing.T) {
	t.Setenv("SENTENCE_THRESHOLD", "0.2")
	if _, err := Load(); err == nil {
		t.Fatal("sentence_threshold 0.2 must fail validation")
	}
	t.Setenv("SENTENCE_THRESHOLD", "0.9")
	t.Setenv("MIN_CONFIDENCE", "1.5")
	if _, err := Load(); err == nil {
		t.Fatal("min_confidence 1.5 must fail validation")
	}
}
