package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "ollama", c.DefaultProvider)
	assert.Equal(t, "gemma3:12b", c.DefaultModel)
	assert.Equal(t, "español", c.Language)
	assert.Equal(t, 1800, c.NarrativeTimeoutSec)
	assert.Equal(t, filepath.Join(home, ".gradeloom", "data"), c.DataDir)
	assert.Equal(t, filepath.Join(c.DataDir, "gradeloom.db"), c.DBPath())
	assert.NotEmpty(t, c.Owner)
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	work := t.TempDir()
	chdir(t, work)

	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("default_model: llama3.1:8b\nowner: archivo\nmax_tokens: 900\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(work, ".env"), []byte("GRADELOOM_DB_DRIVER=Postgres\nGRADELOOM_MAX_TOKENS=1200\n"), 0o644))
	t.Setenv("GRADELOOM_OWNER", "entorno")
	// godotenv sets variables process-wide; clear them for later tests.
	t.Cleanup(func() {
		_ = os.Unsetenv("GRADELOOM_DB_DRIVER")
		_ = os.Unsetenv("GRADELOOM_MAX_TOKENS")
	})

	c, err := Load(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "llama3.1:8b", c.DefaultModel, "file beats default")
	assert.Equal(t, "entorno", c.Owner, "env beats file")
	assert.Equal(t, "postgres", c.DBDriver, ".env feeds the environment")
	assert.Equal(t, 1200, c.MaxTokens)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	in := &Global{Owner: "prof", DefaultProvider: "openrouter", DefaultModel: "openai/gpt-4o-mini", Temperature: 0.3, Language: "english"}
	require.NoError(t, Save(in, path))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prof", out.Owner)
	assert.Equal(t, "openrouter", out.DefaultProvider)
	assert.Equal(t, 0.3, out.Temperature)
	assert.Equal(t, "english", out.Language)
}
