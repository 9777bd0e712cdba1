package config

import (
	"testing"
)

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := defaultConfig()
	cfg.Chunker.DefaultPluginConfig.MinChunkSize = 0
	cfg.Chunker.DefaultPluginConfig.MaxChunkSize = 0

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		t.Fatalf("ValidateAndSetDefaults failed: %v", err)
	}

	if cfg.Chunker.DefaultPluginConfig.MinChunkSize != 50 {
		t.Errorf("expected MinChunkSize default of 50, got %d", cfg.Chunker.DefaultPluginConfig.MinChunkSize)
	}
	if cfg.Chunker.DefaultPluginConfig.MaxChunkSize != 4000 {
		t.Errorf("expected MaxChunkSize default of 4000, got %d", cfg.Chunker.DefaultPluginConfig.MaxChunkSize)
	}
}

func TestValidatePluginConfig_MinExceedsMax(t *testing.T) {
	cfg := defaultConfig()
	cfg.Chunker.DefaultPluginConfig.MinChunkSize = 5000
	cfg.Chunker.DefaultPluginConfig.MaxChunkSize = 100

	if err := NewValidator().ValidateAndSetDefaults(cfg); err == nil {
		t.Errorf("expected error when min_chunk_size exceeds max_chunk_size")
	}
}

func TestValidatePluginConfig_NegativeSizes(t *testing.T) {
	cfg := defaultConfig()
	cfg.Languages = map[string]PluginConfig{
		"python": {MinChunkSize: -1},
	}

	if err := NewValidator().ValidateAndSetDefaults(cfg); err == nil {
		t.Errorf("expected error for negative min_chunk_size on a language override")
	}
}

func TestValidateProcessorPriority(t *testing.T) {
	cfg := defaultConfig()
	cfg.Processors = map[string]ProcessorConfig{
		"markdown": {Priority: -5},
	}

	if err := NewValidator().ValidateAndSetDefaults(cfg); err == nil {
		t.Errorf("expected error for negative processor priority")
	}
}

func TestValidateConfig_Convenience(t *testing.T) {
	cfg := defaultConfig()
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}
}
