package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eduverse/typehub/internal/config"
)

type testConfig struct {
	Env  string
	HTTP struct {
		Port int32
	}
	Leaderboard struct {
		Size int
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("http:\n  port: 9090\n"), 0o600))

	var c testConfig
	c.Env = "development"
	c.Leaderboard.Size = 100

	require.NoError(t, config.Load(file, &c))
	require.Equal(t, int32(9090), c.HTTP.Port)
	require.Equal(t, "development", c.Env, "defaults should survive")
	require.Equal(t, 100, c.Leaderboard.Size)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("http:\n  port: 9090\n"), 0o600))
	t.Setenv("HTTP_PORT", "7070")

	var c testConfig
	require.NoError(t, config.Load(file, &c))
	require.Equal(t, int32(7070), c.HTTP.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	var c testConfig
	require.Error(t, config.Load(filepath.Join(t.TempDir(), "nope.yaml"), &c))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("TYPEHUB_DOTENV_TEST=from-file\n"), 0o600))
	t.Setenv("TYPEHUB_DOTENV_TEST", "")
	os.Unsetenv("TYPEHUB_DOTENV_TEST")

	require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "missing.env"), file))
	require.Equal(t, "from-file", os.Getenv("TYPEHUB_DOTENV_TEST"))
}
