package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can use human-readable forms
// like "30s" as well as plain nanosecond integers.
type Duration time.Duration

// UnmarshalYAML accepts either an integer (nanoseconds) or a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid duration value: kind %d", value.Kind)
	}

	if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}

	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AppConfig is the main configuration structure for the application
type AppConfig struct {
	Server    ServerConfig   `yaml:"server" json:"server"`
	MCP       MCPConfig      `yaml:"mcp" json:"mcp"`
	HTTP      HTTPConfig     `yaml:"http" json:"http"`
	Gateway   GatewayConfig  `yaml:"gateway" json:"gateway"`
	Resources ResourceConfig `yaml:"resources" json:"resources"`
	Logging   LogConfig      `yaml:"logging" json:"logging"`
}

// ServerConfig contains basic server identity information
type ServerConfig struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// MCPConfig contains the MCP serving surface configuration
type MCPConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Transport string `yaml:"transport" json:"transport"` // "stdio" or "http"
	Address   string `yaml:"address" json:"address"`     // listen address for the http transport
}

// HTTPConfig contains the REST API server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Host    string `yaml:"host" json:"host"`
}

// GatewayConfig contains the command execution gateway configuration.
// The rule lists are loaded once at startup and never mutated afterwards,
// so they are shared across concurrent requests without synchronization.
type GatewayConfig struct {
	// Denylist entries forbid execution when they appear anywhere in the
	// command (case-insensitive substring containment).
	Denylist []string `yaml:"denylist" json:"denylist"`

	// ProtectedPaths forbid execution only in combination with a
	// destructive verb. Listing a protected path is fine, removing it is not.
	ProtectedPaths   []string `yaml:"protected_paths" json:"protected_paths"`
	DestructiveVerbs []string `yaml:"destructive_verbs" json:"destructive_verbs"`

	// SuperuserPrefixes deny commands that start with a privilege
	// escalation prefix after whitespace trimming.
	SuperuserPrefixes []string `yaml:"superuser_prefixes" json:"superuser_prefixes"`

	// Strict additionally rejects shell chaining and command substitution
	// (";", "&&", "||", backticks, "$("). Off by default: the baseline
	// policy does not inspect shell metacharacters.
	Strict bool `yaml:"strict" json:"strict"`

	// Timeout is the maximum execution duration for a single command.
	// Zero means no limit, which matches the original behavior of the
	// gateway. A hung command then blocks its request indefinitely.
	Timeout Duration `yaml:"timeout" json:"timeout"`

	// Shell overrides the command interpreter. Empty selects the platform
	// default (sh -c, or cmd /C on Windows).
	Shell string `yaml:"shell" json:"shell"`
}

// ResourceConfig contains the read-only resources exposed by the server
type ResourceConfig struct {
	// ReadmePath is the file backing the file:///mcpreadme resource.
	// Empty resolves to ~/Desktop/mcpreadme.md.
	ReadmePath string `yaml:"readme_path" json:"readme_path"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Name:        "Terminal Server",
			Version:     "1.0.0",
			Description: "MCP server exposing a guarded command execution gateway",
		},
		MCP: MCPConfig{
			Enabled:   true,
			Transport: "stdio",
			Address:   ":8080",
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Port:    8000,
			Host:    "0.0.0.0",
		},
		Gateway: GatewayConfig{
			Denylist: []string{
				"rm -rf /",
				"rm -rf /*",
				"rm -rf --no-preserve-root",
				"mkfs",
				"dd if=",
				":(){ :|:& };:",
				"shutdown",
				"reboot",
				"halt",
				"poweroff",
				"init 0",
				"init 6",
			},
			ProtectedPaths: []string{
				"/bin", "/boot", "/dev", "/etc", "/lib",
				"/proc", "/root", "/sbin", "/sys", "/usr", "/var",
				`c:\windows`, `c:\program files`,
			},
			DestructiveVerbs: []string{
				"rm", "del", "rmdir", "mv", "deltree", "format",
			},
			SuperuserPrefixes: []string{
				"sudo ", "doas ", "su ",
			},
			Strict:  false,
			Timeout: 0,
		},
		Resources: ResourceConfig{},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
