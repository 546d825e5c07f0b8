package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/termgate/termgate/internal/app"
	"github.com/termgate/termgate/internal/config"
	"github.com/termgate/termgate/pkg/utils"
)

// resolveLogConfig merges logging settings. The flag and environment
// variables win over the configuration file, which wins over the defaults.
func resolveLogConfig(flagLevel string, cfg *config.AppConfig) utils.LogConfig {
	resolved := utils.LogConfig{
		Level:      flagLevel,
		Format:     os.Getenv("LOG_FORMAT"),
		OutputPath: cfg.Logging.File,
	}

	if resolved.Level == "" {
		resolved.Level = os.Getenv("LOG_LEVEL")
	}
	if resolved.Level == "" {
		resolved.Level = cfg.Logging.Level
	}
	if resolved.Level == "" {
		resolved.Level = "info"
	}

	if resolved.Format == "" {
		resolved.Format = cfg.Logging.Format
	}
	if resolved.Format == "" {
		resolved.Format = "text"
	}

	return resolved
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	level := *logLevel
	if level == "" {
		level = utils.GetEnv("LOG_LEVEL", "info")
	}

	logger := utils.ConfigureLogger(utils.LogConfig{
		Level:  level,
		Format: utils.GetEnv("LOG_FORMAT", "text"),
	})

	logger.Infof("Loading configuration from %s", *configPath)
	appConfig, err := config.LoadConfig(*configPath, logger)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// The config file may carry its own logging section; rebuild the logger
	// from the merged settings so level, format and file all take effect.
	logger = utils.ConfigureLogger(resolveLogConfig(*logLevel, appConfig))

	application := app.New(appConfig, logger)

	if err := application.Start(); err != nil {
		logger.Fatalf("Failed to start: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("Received signal %s", sig)
	case err := <-application.Errors():
		if err != nil {
			logger.Errorf("MCP transport stopped: %v", err)
		} else {
			logger.Info("MCP transport stopped")
		}
	}

	if err := application.Shutdown(); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}
}
