package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points both config locations at temp dirs and clears the env
// keys that would leak into Load.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Chdir(tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg"))
	t.Setenv("ANTHROPIC_API_KEY", "")
	for _, key := range configKeys {
		name := "COZMOGO_" + strings.ToUpper(key)
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return tmp
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, 1024, cfg.MaxTokens)
	assert.Equal(t, "default", cfg.Session)
	assert.Equal(t, ".cozmogo", cfg.DataDir)
	assert.Equal(t, "127.0.0.1:8090", cfg.WebAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.UseTools)
	assert.False(t, cfg.EnableMCP)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("COZMOGO_MODEL", "claude-haiku-4")
	t.Setenv("COZMOGO_MAX_TOKENS", "2048")
	t.Setenv("COZMOGO_USE_TOOLS", "true")
	t.Setenv("COZMOGO_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4", cfg.Model)
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.True(t, cfg.UseTools)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadProjectConfig(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("cozmogo.yml", []byte("model: project-model\nsession: living-room\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "project-model", cfg.Model)
	assert.Equal(t, "living-room", cfg.Session)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1024, cfg.MaxTokens)
}

func TestLoadProjectOverridesGlobal(t *testing.T) {
	isolate(t)

	globalPath := GlobalPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(globalPath), 0o755))
	require.NoError(t, os.WriteFile(globalPath, []byte("model: global-model\nlog_level: warn\n"), 0o644))
	require.NoError(t, os.WriteFile("cozmogo.yml", []byte("model: project-model\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "project-model", cfg.Model)
	// Keys only in the global file still apply.
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadEnvBeatsProjectConfig(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("cozmogo.yml", []byte("model: project-model\n"), 0o644))
	t.Setenv("COZMOGO_MODEL", "env-model")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Model)
}

func TestAPIKeyFallsBackToAnthropicEnv(t *testing.T) {
	isolate(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", cfg.APIKey)
}

func TestExists(t *testing.T) {
	isolate(t)
	assert.False(t, Exists())

	require.NoError(t, os.WriteFile("cozmogo.yml", []byte("model: x\n"), 0o644))
	assert.True(t, Exists())
}

func TestWriteProjectRoundTrip(t *testing.T) {
	isolate(t)

	want := &Config{Model: "written-model", Session: "kitchen", MaxTokens: 512, DataDir: ".cozmogo", WebAddr: "127.0.0.1:9999", LogLevel: "debug"}
	require.NoError(t, WriteProject(want))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "written-model", cfg.Model)
	assert.Equal(t, "kitchen", cfg.Session)
	assert.Equal(t, 512, cfg.MaxTokens)
}

func TestWriteGlobalCreatesDirectory(t *testing.T) {
	isolate(t)

	require.NoError(t, WriteGlobal(&Config{Model: "global-model"}))
	assert.True(t, fileExists(GlobalPath()))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "global-model", cfg.Model)
}
