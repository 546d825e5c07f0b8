package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/termgate/termgate/pkg/utils"
)

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(path string, logger *logrus.Logger) (*AppConfig, error) {
	// Start with default configuration
	config := DefaultConfig()

	// Check if the config file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warnf("Configuration file %s not found, using defaults", path)
		// Still apply environment overrides even with defaults
		applyEnvironmentOverrides(config)
		return config, nil
	}

	// Read the configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration
	configString := utils.ExpandEnvVars(string(data))

	// Parse YAML
	if err := yaml.Unmarshal([]byte(configString), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	applyEnvironmentOverrides(config)

	// Validate the configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(config *AppConfig, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validateConfig checks if the configuration is valid
func validateConfig(config *AppConfig) error {
	if config.Server.Name == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	if config.MCP.Enabled {
		if config.MCP.Transport != "stdio" && config.MCP.Transport != "http" {
			return fmt.Errorf("mcp transport must be 'stdio' or 'http', got '%s'", config.MCP.Transport)
		}
		if config.MCP.Transport == "http" && config.MCP.Address == "" {
			return fmt.Errorf("mcp.address is required for the http transport")
		}
	}

	if config.HTTP.Enabled && config.HTTP.Port <= 0 {
		return fmt.Errorf("http.port must be positive when the HTTP API is enabled")
	}

	if config.Gateway.Timeout < 0 {
		return fmt.Errorf("gateway.timeout cannot be negative")
	}

	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to the configuration
func applyEnvironmentOverrides(config *AppConfig) {
	if name := os.Getenv("SERVER_NAME"); name != "" {
		config.Server.Name = name
	}

	// MCP overrides
	config.MCP.Enabled = utils.BoolFromEnv("MCP_ENABLED", config.MCP.Enabled)
	if transport := os.Getenv("MCP_TRANSPORT"); transport != "" {
		config.MCP.Transport = transport
	}
	if addr := os.Getenv("MCP_ADDRESS"); addr != "" {
		config.MCP.Address = addr
	}

	// HTTP overrides
	config.HTTP.Enabled = utils.BoolFromEnv("HTTP_ENABLED", config.HTTP.Enabled)
	if portStr := os.Getenv("HTTP_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err != nil {
			logrus.Warnf("Invalid HTTP_PORT: %s", portStr)
		} else {
			config.HTTP.Port = port
		}
	}

	// Gateway overrides
	config.Gateway.Strict = utils.BoolFromEnv("GATEWAY_STRICT", config.Gateway.Strict)
	if timeoutStr := os.Getenv("GATEWAY_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err != nil {
			logrus.Warnf("Invalid GATEWAY_TIMEOUT: %s", timeoutStr)
		} else {
			config.Gateway.Timeout = Duration(timeout)
		}
	}
	if shell := os.Getenv("GATEWAY_SHELL"); shell != "" {
		config.Gateway.Shell = shell
	}

	// Resource overrides
	if readme := os.Getenv("MCPREADME_PATH"); readme != "" {
		config.Resources.ReadmePath = readme
	}

	// Logging overrides
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
