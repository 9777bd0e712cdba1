package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ProjectConfigTOML(t *testing.T) {
	projectDir := t.TempDir()

	contents := `
[chunker]
enabled_languages = ["go", "python"]

[chunker.default_plugin_config]
min_chunk_size = 80
max_chunk_size = 2000

[languages.python]
min_chunk_size = 40

[processors.markdown]
enabled = true
priority = 10
`
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "chunker.config.toml"), []byte(contents), 0644))

	cfg, err := Load(projectDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"go", "python"}, cfg.Chunker.EnabledLanguages)
	assert.Equal(t, 80, cfg.Chunker.DefaultPluginConfig.MinChunkSize)
	assert.Equal(t, 2000, cfg.Chunker.DefaultPluginConfig.MaxChunkSize)
	assert.Equal(t, 40, cfg.Languages["python"].MinChunkSize)
	assert.True(t, cfg.Processors["markdown"].IsEnabled())
	assert.Equal(t, 10, cfg.Processors["markdown"].Priority)
}

func TestLoad_WalksParentDirectories(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	contents := `
[chunker]
plugin_dirs = ["plugins"]
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "chunker.config.toml"), []byte(contents), 0644))

	cfg, err := Load(nested)
	require.NoError(t, err)
	require.Len(t, cfg.Chunker.PluginDirs, 1)
	assert.Equal(t, filepath.Join(root, "plugins"), cfg.Chunker.PluginDirs[0])
}

func TestLoad_DefaultConfigFallback(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.NotEmpty(t, cfg.Exclude, "should carry default exclusions")
	assert.Empty(t, cfg.Include)
	assert.Equal(t, 50, cfg.Chunker.DefaultPluginConfig.MinChunkSize)
}

func TestLoad_YAMLAndJSONEquivalent(t *testing.T) {
	yamlDir := t.TempDir()
	yamlContents := "chunker:\n  enabled_languages:\n    - go\n"
	require.NoError(t, os.WriteFile(filepath.Join(yamlDir, "chunker.config.yaml"), []byte(yamlContents), 0644))

	jsonDir := t.TempDir()
	jsonContents := `{"chunker": {"enabled_languages": ["go"]}}`
	require.NoError(t, os.WriteFile(filepath.Join(jsonDir, "chunker.config.json"), []byte(jsonContents), 0644))

	yamlCfg, err := Load(yamlDir)
	require.NoError(t, err)
	jsonCfg, err := Load(jsonDir)
	require.NoError(t, err)

	assert.Equal(t, yamlCfg.Chunker.EnabledLanguages, jsonCfg.Chunker.EnabledLanguages)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("CHUNKER_TEST_TOKEN", "abc123")

	assert.Equal(t, "abc123", substituteEnvVars("${CHUNKER_TEST_TOKEN}"))
	assert.Equal(t, "fallback", substituteEnvVars("${CHUNKER_TEST_UNSET:fallback}"))
	assert.Equal(t, "prefix-abc123-suffix", substituteEnvVars("prefix-${CHUNKER_TEST_TOKEN}-suffix"))
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CHUNKER_CHUNKER_ENABLED_LANGUAGES", "go, rust ,python")
	t.Setenv("CHUNKER_CHUNKER_DEFAULT_PLUGIN_CONFIG_MIN_CHUNK_SIZE", "123")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, []string{"go", "rust", "python"}, cfg.Chunker.EnabledLanguages)
	assert.Equal(t, 123, cfg.Chunker.DefaultPluginConfig.MinChunkSize)
}

func TestLanguageConfig_MergesOverDefault(t *testing.T) {
	cfg := defaultConfig()
	cfg.Chunker.DefaultPluginConfig.MaxChunkSize = 3000
	cfg.Languages = map[string]PluginConfig{
		"python": {MinChunkSize: 10},
	}

	resolved := cfg.LanguageConfig("python")
	assert.Equal(t, 10, resolved.MinChunkSize)
	assert.Equal(t, 3000, resolved.MaxChunkSize, "unset fields fall back to the default block")

	unconfigured := cfg.LanguageConfig("rust")
	assert.Equal(t, cfg.Chunker.DefaultPluginConfig, unconfigured)
}

func TestLanguageEnabled(t *testing.T) {
	cfg := defaultConfig()
	assert.True(t, cfg.LanguageEnabled("anything"), "empty enabled_languages means all languages run")

	cfg.Chunker.EnabledLanguages = []string{"go", "python"}
	assert.True(t, cfg.LanguageEnabled("go"))
	assert.False(t, cfg.LanguageEnabled("rust"))
}
