package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), BinaryName)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

func TestLoadDesktopConfig_Missing(t *testing.T) {
	cfg, err := LoadDesktopConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestLoadDesktopConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadDesktopConfig(path)
	assert.Error(t, err)
}

func TestRegister_PreservesOtherEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Claude", "claude_desktop_config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{
  "globalShortcut": "Ctrl+Space",
  "mcpServers": {"filesystem": {"command": "npx", "args": ["-y", "server-filesystem"]}}
}`), 0644))

	binary := fakeBinary(t)
	entry, err := Register(path, Options{
		BinaryPath: binary,
		DataDir:    "/var/lib/faskesq",
		Provider:   "anthropic",
		Env:        map[string]string{"ANTHROPIC_API_KEY": "sk-test"},
	})
	require.NoError(t, err)
	assert.Equal(t, binary, entry.Command)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Ctrl+Space", raw["globalShortcut"])

	cfg, err := LoadDesktopConfig(path)
	require.NoError(t, err)
	require.Contains(t, cfg.MCPServers, "filesystem")
	require.Contains(t, cfg.MCPServers, ServerKey)
	assert.Equal(t, map[string]string{
		"FASKESQ_DATA_DIR":     "/var/lib/faskesq",
		"FASKESQ_LLM_PROVIDER": "anthropic",
		"ANTHROPIC_API_KEY":    "sk-test",
	}, cfg.MCPServers[ServerKey].Env)
}

func TestUnregister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	_, err := Register(path, Options{BinaryPath: fakeBinary(t)})
	require.NoError(t, err)

	removed, err := Unregister(path)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = Unregister(path)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestGetStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	status, err := GetStatus(path)
	require.NoError(t, err)
	assert.False(t, status.Registered)
	assert.Contains(t, status.Issues, "Server is not registered")

	dataDir := t.TempDir()
	binary := fakeBinary(t)
	_, err = Register(path, Options{BinaryPath: binary, DataDir: dataDir})
	require.NoError(t, err)

	status, err = GetStatus(path)
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.Equal(t, binary, status.ServerPath)
	assert.Equal(t, dataDir, status.DataDir)
	assert.Empty(t, status.Issues)

	_, err = Register(path, Options{BinaryPath: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	status, err = GetStatus(path)
	require.NoError(t, err)
	assert.NotEmpty(t, status.Issues)
}
