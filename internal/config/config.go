// Package config loads chunker.config.{toml,yaml,yml,json}, located by
// walking parent directories from the project root and falling back to
// ~/.chunker/config.*. Environment overrides use CHUNKER_-prefixed keys
// (dotted paths underscored; list values comma-separated; booleans
// case-insensitive); string values support ${VAR} / ${VAR:default}
// substitution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	yaml "github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// PluginConfig is the shape shared by chunker.default_plugin_config,
// per-language overrides (languages.<name>) and per-processor overrides.
type PluginConfig struct {
	Enabled       *bool          `toml:"enabled" yaml:"enabled" json:"enabled,omitempty"`
	ChunkTypes    []string       `toml:"chunk_types" yaml:"chunk_types" json:"chunk_types,omitempty"`
	MinChunkSize  int            `toml:"min_chunk_size" yaml:"min_chunk_size" json:"min_chunk_size,omitempty"`
	MaxChunkSize  int            `toml:"max_chunk_size" yaml:"max_chunk_size" json:"max_chunk_size,omitempty"`
	CustomOptions map[string]any `toml:"custom_options" yaml:"custom_options" json:"custom_options,omitempty"`
}

// IsEnabled returns the effective enabled flag, defaulting to true when unset.
func (p PluginConfig) IsEnabled() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// ProcessorConfig is the processors.<name> shape.
type ProcessorConfig struct {
	Enabled  *bool          `toml:"enabled" yaml:"enabled" json:"enabled,omitempty"`
	Priority int            `toml:"priority" yaml:"priority" json:"priority,omitempty"`
	Config   map[string]any `toml:"config" yaml:"config" json:"config,omitempty"`
}

// IsEnabled returns the effective enabled flag, defaulting to true when unset.
func (p ProcessorConfig) IsEnabled() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// Chunker holds the top-level chunker.* config block.
type Chunker struct {
	PluginDirs          []string     `toml:"plugin_dirs" yaml:"plugin_dirs" json:"plugin_dirs,omitempty"`
	EnabledLanguages    []string     `toml:"enabled_languages" yaml:"enabled_languages" json:"enabled_languages,omitempty"`
	DefaultPluginConfig PluginConfig `toml:"default_plugin_config" yaml:"default_plugin_config" json:"default_plugin_config,omitempty"`

	// SkipGenerated routes files detected as generated (vendor/build paths
	// or a "Code generated ... DO NOT EDIT" / "@generated" marker) past the
	// tree-sitter parse to the specialist or sliding-window tier.
	SkipGenerated bool `toml:"skip_generated" yaml:"skip_generated" json:"skip_generated,omitempty"`
}

// Config is the fully-resolved configuration for a chunker run.
type Config struct {
	Chunker    Chunker                    `toml:"chunker" yaml:"chunker" json:"chunker"`
	Languages  map[string]PluginConfig    `toml:"languages" yaml:"languages" json:"languages,omitempty"`
	Processors map[string]ProcessorConfig `toml:"processors" yaml:"processors" json:"processors,omitempty"`

	// Include/Exclude are glob patterns applied ahead of chunking; Exclude is
	// enriched at load time with detected build-artifact directories.
	Include []string `toml:"include" yaml:"include" json:"include,omitempty"`
	Exclude []string `toml:"exclude" yaml:"exclude" json:"exclude,omitempty"`

	// ProjectRoot is not part of the file format; it's the directory the
	// config was resolved for, used to make PluginDirs absolute and to
	// drive build-artifact detection.
	ProjectRoot string `toml:"-" yaml:"-" json:"-"`
}

const (
	configBaseName = "chunker.config"
)

var configExtensions = []string{".toml", ".yaml", ".yml", ".json"}

func defaultConfig() *Config {
	return &Config{
		Chunker: Chunker{
			DefaultPluginConfig: PluginConfig{
				MinChunkSize: 50,
				MaxChunkSize: 4000,
			},
		},
		Languages:  map[string]PluginConfig{},
		Processors: map[string]ProcessorConfig{},
		Exclude: []string{
			"**/.git/**",
			"**/.*/**",
			"**/node_modules/**",
			"**/vendor/**",
			"**/dist/**",
			"**/build/**",
			"**/target/**",
			"**/bin/**",
			"**/obj/**",
			"**/__pycache__/**",
			"**/*.pyc",
		},
	}
}

// Load resolves configuration for rootDir: it walks rootDir's ancestry for
// a chunker.config.* file, falling back to ~/.chunker/config.*, applies
// CHUNKER_-prefixed environment overrides, enriches exclusions with
// detected build-artifact directories, and returns the result.
func Load(rootDir string) (*Config, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		abs = rootDir
	}

	cfg := defaultConfig()
	cfg.ProjectRoot = abs

	if path := findConfigFile(abs); path != "" {
		if err := loadInto(cfg, path); err != nil {
			return nil, err
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		if path := findConfigFileIn(filepath.Join(home, ".chunker"), "config"); path != "" {
			if err := loadInto(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	applyEnvOverrides(cfg)
	cfg.EnrichExclusionsWithBuildArtifacts()

	return cfg, nil
}

// findConfigFile walks dir and its ancestors looking for chunker.config.*.
func findConfigFile(dir string) string {
	for {
		if path := findConfigFileIn(dir, configBaseName); path != "" {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func findConfigFileIn(dir, baseName string) string {
	for _, ext := range configExtensions {
		path := filepath.Join(dir, baseName+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func loadInto(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	data = []byte(substituteEnvVars(string(data)))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unrecognized config extension: %s", path)
	}
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	expandPluginDirs(cfg, filepath.Dir(path))
	return nil
}

// expandPluginDirs tilde-expands and makes plugin_dirs absolute relative to
// the directory the config file was loaded from.
func expandPluginDirs(cfg *Config, configDir string) {
	home, _ := os.UserHomeDir()
	for i, dir := range cfg.Chunker.PluginDirs {
		if home != "" && strings.HasPrefix(dir, "~") {
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(configDir, dir)
		}
		cfg.Chunker.PluginDirs[i] = dir
	}
}

// substituteEnvVars expands ${VAR} and ${VAR:default} occurrences.
func substituteEnvVars(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end == -1 {
				b.WriteByte(s[i])
				i++
				continue
			}
			expr := s[i+2 : i+2+end]
			name, def, hasDef := strings.Cut(expr, ":")
			val, ok := os.LookupEnv(name)
			if !ok {
				if hasDef {
					val = def
				}
			}
			b.WriteString(val)
			i += 2 + end + 1
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// applyEnvOverrides reads CHUNKER_-prefixed environment variables and
// applies them over cfg. Only the scalar/list fields documented for
// chunker.default_plugin_config and the include/exclude lists are
// supported; per-language and per-processor overrides live in the file.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("CHUNKER_CHUNKER_PLUGIN_DIRS"); ok {
		cfg.Chunker.PluginDirs = splitList(v)
	}
	if v, ok := os.LookupEnv("CHUNKER_CHUNKER_ENABLED_LANGUAGES"); ok {
		cfg.Chunker.EnabledLanguages = splitList(v)
	}
	if v, ok := os.LookupEnv("CHUNKER_CHUNKER_DEFAULT_PLUGIN_CONFIG_ENABLED"); ok {
		b := parseBool(v)
		cfg.Chunker.DefaultPluginConfig.Enabled = &b
	}
	if v, ok := os.LookupEnv("CHUNKER_CHUNKER_DEFAULT_PLUGIN_CONFIG_MIN_CHUNK_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunker.DefaultPluginConfig.MinChunkSize = n
		}
	}
	if v, ok := os.LookupEnv("CHUNKER_CHUNKER_DEFAULT_PLUGIN_CONFIG_MAX_CHUNK_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunker.DefaultPluginConfig.MaxChunkSize = n
		}
	}
	if v, ok := os.LookupEnv("CHUNKER_CHUNKER_SKIP_GENERATED"); ok {
		cfg.Chunker.SkipGenerated = parseBool(v)
	}
	if v, ok := os.LookupEnv("CHUNKER_INCLUDE"); ok {
		cfg.Include = splitList(v)
	}
	if v, ok := os.LookupEnv("CHUNKER_EXCLUDE"); ok {
		cfg.Exclude = append(cfg.Exclude, splitList(v)...)
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(strings.ToLower(v))
	return b
}

// LanguageConfig resolves the effective PluginConfig for a language: the
// per-language override merged over chunker.default_plugin_config.
func (c *Config) LanguageConfig(language string) PluginConfig {
	base := c.Chunker.DefaultPluginConfig
	override, ok := c.Languages[language]
	if !ok {
		return base
	}
	merged := base
	if override.Enabled != nil {
		merged.Enabled = override.Enabled
	}
	if len(override.ChunkTypes) > 0 {
		merged.ChunkTypes = override.ChunkTypes
	}
	if override.MinChunkSize != 0 {
		merged.MinChunkSize = override.MinChunkSize
	}
	if override.MaxChunkSize != 0 {
		merged.MaxChunkSize = override.MaxChunkSize
	}
	if len(override.CustomOptions) > 0 {
		merged.CustomOptions = override.CustomOptions
	}
	return merged
}

// LanguageEnabled reports whether a language is permitted to run at all:
// absence from chunker.enabled_languages means all languages are enabled.
func (c *Config) LanguageEnabled(language string) bool {
	if len(c.Chunker.EnabledLanguages) == 0 {
		return true
	}
	for _, l := range c.Chunker.EnabledLanguages {
		if l == language {
			return true
		}
	}
	return false
}

// EnrichExclusionsWithBuildArtifacts detects build output directories from
// language-specific build files under ProjectRoot and appends them to Exclude.
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if c.ProjectRoot == "" {
		return
	}
	detector := NewBuildArtifactDetector(c.ProjectRoot)
	if patterns := detector.DetectOutputDirectories(); len(patterns) > 0 {
		c.Exclude = DeduplicatePatterns(append(c.Exclude, patterns...))
	}
}
