package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	originalEnv := os.Environ()
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			for i, c := range env {
				if c == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}()

	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 8080},
		{"LogLevel", cfg.LogLevel, "info"},
		{"QueueSubject", cfg.QueueSubject, "ingest.documents"},
		{"EmbeddingModel", cfg.EmbeddingModel, "text-embedding-3-small"},
		{"EmbedBatchSize", cfg.EmbedBatchSize, 96},
		{"EmbedMaxAttempts", cfg.EmbedMaxAttempts, 3},
		{"ChunkMaxTokens", cfg.ChunkMaxTokens, 400},
		{"ChunkOverlap", cfg.ChunkOverlap, 80},
		{"AWSRegion", cfg.AWSRegion, "us-east-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	originalPort := os.Getenv("PORT")
	originalLogLevel := os.Getenv("LOG_LEVEL")
	defer func() {
		os.Setenv("PORT", originalPort)
		os.Setenv("LOG_LEVEL", originalLogLevel)
	}()

	os.Setenv("PORT", "9090")
	os.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	originalLogLevel := os.Getenv("LOG_LEVEL")
	defer os.Setenv("LOG_LEVEL", originalLogLevel)

	os.Setenv("LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for bad log level")
	}
}
