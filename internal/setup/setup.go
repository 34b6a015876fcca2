// Package setup registers the lite MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Names used in the client configuration.
const (
	ServerName = "acl-rts-tracker"
	BinaryName = "acl-rts-mcp-lite"
	DataDirEnv = "RTS_DATA_DIR"
)

// ClientConfig represents the MCP client configuration file structure. Keys other than
// mcpServers are preserved on save.
type ClientConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`

	extra map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for the setup process.
type Options struct {
	ConfigPath string // client config file; empty means the platform default
	BinaryPath string // server binary; empty means search common locations
	DataDir    string
}

// Status represents the current setup status.
type Status struct {
	ConfigPath string   `json:"config_path"`
	Configured bool     `json:"configured"`
	ServerPath string   `json:"server_path,omitempty"`
	DataDir    string   `json:"data_dir"`
	Issues     []string `json:"issues,omitempty"`
}

// DefaultConfigPath returns the path to the desktop client's config file.
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
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
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

// LoadConfig loads the client configuration. A missing file yields an empty config.
func LoadConfig(configPath string) (*ClientConfig, error) {
	config := &ClientConfig{MCPServers: make(map[string]MCPServerConfig)}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := config.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		if config.MCPServers == nil {
			config.MCPServers = make(map[string]MCPServerConfig)
		}
	}
	return config, nil
}

// SaveConfig writes the configuration, creating the directory if needed.
func SaveConfig(configPath string, config *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]interface{}, len(config.extra)+1)
	for k, v := range config.extra {
		out[k] = v
	}
	out["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Configure adds or updates the tracker entry in the client configuration and returns the
// path written.
func Configure(opts Options) (string, error) {
	configPath, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		return "", err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		binaryPath, err = findBinary()
		if err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{Command: binaryPath}
	if opts.DataDir != "" {
		entry.Env = map[string]string{DataDirEnv: opts.DataDir}
	}
	config.MCPServers[ServerName] = entry

	if err := SaveConfig(configPath, config); err != nil {
		return "", err
	}
	return configPath, nil
}

// GetStatus checks the current setup status.
func GetStatus(configPath string) (*Status, error) {
	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	status := &Status{ConfigPath: configPath, DataDir: DefaultDataDir()}

	config, err := LoadConfig(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not load client config: %v", err))
		return status, nil
	}

	entry, ok := config.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "Tracker is not registered with the MCP client")
		return status, nil
	}
	status.Configured = true
	status.ServerPath = entry.Command
	if dir := entry.Env[DataDirEnv]; dir != "" {
		status.DataDir = dir
	}

	if _, err := os.Stat(entry.Command); os.IsNotExist(err) {
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", entry.Command))
	}
	if _, err := os.Stat(status.DataDir); os.IsNotExist(err) {
		status.Issues = append(status.Issues, fmt.Sprintf("Data directory will be created on first run: %s", status.DataDir))
	}
	return status, nil
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".acl-rts-tracker")
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultConfigPath()
}

// findBinary attempts to find the server binary in common locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + BinaryName,
		"./build/" + BinaryName,
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
