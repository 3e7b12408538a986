package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Storage
	DBPath string `yaml:"db_path"`

	// Analysis defaults
	Workers            int     `yaml:"workers"`
	SentenceThreshold  float64 `yaml:"sentence_threshold"`
	ParagraphThreshold float64 `yaml:"paragraph_threshold"`
	MinSentenceLength  int     `yaml:"min_sentence_length"`
	MinConfidence      float64 `yaml:"min_confidence"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// Load reads an optional YAML config file (NARRATIVE_CONFIG), then lets
// environment variables override it.
func Load() (Config, error) {
	cfg := Config{
		Port:               "8090",
		DBPath:             "narrative.db",
		Workers:            4,
		SentenceThreshold:  0.90,
		ParagraphThreshold: 0.85,
		MinSentenceLength:  30,
		MinConfidence:      0.7,
		MaxUploadBytes:     52428800, // 50MB
	}

	if path := os.Getenv("NARRATIVE_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)
	cfg.Workers = envInt("WORKERS", cfg.Workers)
	cfg.SentenceThreshold = envFloat("SENTENCE_THRESHOLD", cfg.SentenceThreshold)
	cfg.ParagraphThreshold = envFloat("PARAGRAPH_THRESHOLD", cfg.ParagraphThreshold)
	cfg.MinSentenceLength = envInt("MIN_SENTENCE_LENGTH", cfg.MinSentenceLength)
	cfg.MinConfidence = envFloat("MIN_CONFIDENCE", cfg.MinConfidence)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.SentenceThreshold < 0.5 || c.SentenceThreshold > 1.0 {
		return fmt.Errorf("sentence_threshold %.2f outside [0.5, 1.0]", c.SentenceThreshold)
	}
	if c.ParagraphThreshold < 0.5 || c.ParagraphThreshold > 1.0 {
		return fmt.Errorf("paragraph_threshold %.2f outside [0.5, 1.0]", c.ParagraphThreshold)
	}
	if c.MinConfidence < 0.3 || c.MinConfidence > 1.0 {
		return fmt.Errorf("min_confidence %.2f outside [0.3, 1.0]", c.MinConfidence)
	}
	if c.MinSentenceLength < 0 {
		return fmt.Errorf("min_sentence_length must not be negative")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
