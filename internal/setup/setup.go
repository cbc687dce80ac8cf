// Package setup registers the stdio MCP server with desktop MCP clients that read a
// claude_desktop_config.json style file.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerKey is the entry name written under mcpServers.
const ServerKey = "faskesq-clinical-assist"

// BinaryName is the stdio MCP server executable.
const BinaryName = "faskesq-mcp"

// DesktopConfig represents the desktop client configuration file. Unknown top-level
// keys are preserved on save.
type DesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for registering the server.
type Options struct {
	BinaryPath string            // Path to the server binary, searched when empty
	DataDir    string            // Exported as FASKESQ_DATA_DIR
	Provider   string            // Exported as FASKESQ_LLM_PROVIDER
	Env        map[string]string // Extra environment, e.g. API keys
}

// Status describes the current registration.
type Status struct {
	ConfigPath string   `json:"configPath"`
	Registered bool     `json:"registered"`
	ServerPath string   `json:"serverPath,omitempty"`
	DataDir    string   `json:"dataDir"`
	Issues     []string `json:"issues"`
}

// DefaultConfigPath returns the per-OS location of claude_desktop_config.json.
func DefaultConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadDesktopConfig reads configPath. A missing file yields an empty configuration.
func LoadDesktopConfig(configPath string) (*DesktopConfig, error) {
	cfg := &DesktopConfig{MCPServers: map[string]MCPServerConfig{}, extra: map[string]json.RawMessage{}}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.extra, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]MCPServerConfig{}
	}
	return cfg, nil
}

// SaveDesktopConfig writes cfg to configPath, creating the directory.
func SaveDesktopConfig(configPath string, cfg *DesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]any, len(cfg.extra)+1)
	for k, v := range cfg.extra {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the server entry in configPath.
func Register(configPath string, opts Options) (*MCPServerConfig, error) {
	cfg, err := LoadDesktopConfig(configPath)
	if err != nil {
		return nil, err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		binaryPath, err = findBinary()
		if err != nil {
			return nil, fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{Command: binaryPath, Env: map[string]string{}}
	if opts.DataDir != "" {
		entry.Env["FASKESQ_DATA_DIR"] = opts.DataDir
	}
	if opts.Provider != "" {
		entry.Env["FASKESQ_LLM_PROVIDER"] = opts.Provider
	}
	for k, v := range opts.Env {
		entry.Env[k] = v
	}

	cfg.MCPServers[ServerKey] = entry
	if err := SaveDesktopConfig(configPath, cfg); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Unregister removes the server entry. It reports whether an entry existed.
func Unregister(configPath string) (bool, error) {
	cfg, err := LoadDesktopConfig(configPath)
	if err != nil {
		return false, err
	}
	if _, ok := cfg.MCPServers[ServerKey]; !ok {
		return false, nil
	}
	delete(cfg.MCPServers, ServerKey)
	return true, SaveDesktopConfig(configPath, cfg)
}

// findBinary looks on PATH, then in the usual build and install locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + BinaryName,
		"./bin/" + BinaryName,
		filepath.Join(os.Getenv("HOME"), ".local", "bin", BinaryName),
		"/usr/local/bin/" + BinaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}
	return "", fmt.Errorf("binary '%s' not found in common locations", BinaryName)
}

// DefaultDataDir mirrors the stdio server's default data directory.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".faskesq")
}

// GetStatus inspects the registration in configPath.
func GetStatus(configPath string) (*Status, error) {
	status := &Status{ConfigPath: configPath, Issues: []string{}}

	cfg, err := LoadDesktopConfig(configPath)
	if err != nil {
		return nil, err
	}

	entry, ok := cfg.MCPServers[ServerKey]
	if ok {
		status.Registered = true
		status.ServerPath = entry.Command
		status.DataDir = entry.Env["FASKESQ_DATA_DIR"]
		info, err := os.Stat(entry.Command)
		switch {
		case err != nil:
			status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found: %s", entry.Command))
		case info.Mode()&0111 == 0 && runtime.GOOS != "windows":
			status.Issues = append(status.Issues, fmt.Sprintf("Server binary is not executable: %s", entry.Command))
		}
	} else {
		status.Issues = append(status.Issues, "Server is not registered")
	}

	if status.DataDir == "" {
		status.DataDir = DefaultDataDir()
	}
	if _, err := os.Stat(status.DataDir); os.IsNotExist(err) {
		status.Issues = append(status.Issues, fmt.Sprintf("Data directory will be created on first run: %s", status.DataDir))
	}
	return status, nil
}
