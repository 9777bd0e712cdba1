package config

import (
	"fmt"

	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
)

// Validator validates a resolved Config and applies smart defaults.
type Validator struct{}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates cfg and fills in defaults for unset
// numeric fields. Returns an InvalidConfigError on the first violation.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validatePluginConfig("chunker.default_plugin_config", cfg.Chunker.DefaultPluginConfig); err != nil {
		return err
	}
	for name, lang := range cfg.Languages {
		if err := v.validatePluginConfig(fmt.Sprintf("languages.%s", name), lang); err != nil {
			return err
		}
	}
	for name, proc := range cfg.Processors {
		if proc.Priority < 0 {
			return chunkererrors.NewInvalidConfigError(cfg.ProjectRoot, fmt.Sprintf("processors.%s.priority", name),
				fmt.Errorf("must be non-negative, got %d", proc.Priority))
		}
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validatePluginConfig(field string, p PluginConfig) error {
	if p.MinChunkSize < 0 {
		return chunkererrors.NewInvalidConfigError("", field+".min_chunk_size",
			fmt.Errorf("must be non-negative, got %d", p.MinChunkSize))
	}
	if p.MaxChunkSize < 0 {
		return chunkererrors.NewInvalidConfigError("", field+".max_chunk_size",
			fmt.Errorf("must be non-negative, got %d", p.MaxChunkSize))
	}
	if p.MinChunkSize > 0 && p.MaxChunkSize > 0 && p.MinChunkSize > p.MaxChunkSize {
		return chunkererrors.NewInvalidConfigError("", field,
			fmt.Errorf("min_chunk_size (%d) exceeds max_chunk_size (%d)", p.MinChunkSize, p.MaxChunkSize))
	}
	return nil
}

// setSmartDefaults fills unset size bounds from chunker.default_plugin_config
// defaults, mirroring the zero-means-auto convention used elsewhere.
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Chunker.DefaultPluginConfig.MinChunkSize == 0 {
		cfg.Chunker.DefaultPluginConfig.MinChunkSize = 50
	}
	if cfg.Chunker.DefaultPluginConfig.MaxChunkSize == 0 {
		cfg.Chunker.DefaultPluginConfig.MaxChunkSize = 4000
	}
}

// ValidateConfig is a convenience wrapper around Validator.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
