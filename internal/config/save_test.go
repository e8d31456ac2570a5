package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func bytesReader(s string) io.Reader {
	return bytes.NewBufferString(s)
}

func readEnabled(t *testing.T, path string) bool {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v.GetBool("enabled")
}

func TestSaveEnabled_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, SaveEnabled(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "enabled: false\n", string(data))
}

func TestSaveEnabled_PreservesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SaveEnabled(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	require.Contains(t, content, "# tokenwatt configuration")
	require.Contains(t, content, "# Quiet period after the last significant edit")
	require.Contains(t, content, "enabled: false")
	require.NotContains(t, content, "enabled: true\n\ncapture")
	require.False(t, readEnabled(t, path))

	require.NoError(t, SaveEnabled(path, true))
	require.True(t, readEnabled(t, path))
}

func TestSaveEnabled_AppendsMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: :9000\n"), 0o600))

	require.NoError(t, SaveEnabled(path, false))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	require.False(t, v.GetBool("enabled"))
	require.True(t, v.IsSet("enabled"))
	require.Equal(t, ":9000", v.GetString("server.addr"))
}

func TestSaveEnabled_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("enabled: [unclosed\n"), 0o600))

	err := SaveEnabled(path, true)
	require.ErrorContains(t, err, "parsing config")
}

func TestSaveEnabled_NonMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o600))

	require.Error(t, SaveEnabled(path, true))
}

func TestSaveEnabled_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, SaveEnabled(path, true))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
