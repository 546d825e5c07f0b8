package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/termgate/termgate/internal/api"
	"github.com/termgate/termgate/internal/bus"
	"github.com/termgate/termgate/internal/config"
	"github.com/termgate/termgate/internal/executor"
	"github.com/termgate/termgate/internal/gateway"
	"github.com/termgate/termgate/internal/logger"
	"github.com/termgate/termgate/internal/mcp"
	"github.com/termgate/termgate/internal/policy"
)

// App wires the gateway, the event bus and the serving surfaces together.
type App struct {
	config    *config.AppConfig
	logger    *logrus.Logger
	eventBus  *bus.EventBus
	policy    *policy.SafetyPolicy
	gateway   *gateway.Gateway
	mcpServer *mcp.Server
	apiServer *api.Server
	errCh     chan error
	started   bool
	mu        sync.Mutex
}

// New builds the application from its configuration.
func New(cfg *config.AppConfig, log *logrus.Logger) *App {
	eventBus := bus.NewEventBus(log)
	log.AddHook(logger.NewEventBusLogHook(eventBus, cfg.Server.Name))

	safetyPolicy := policy.New(cfg.Gateway)
	runner := executor.NewShellRunner(cfg.Gateway, log)
	gw := gateway.New(safetyPolicy, runner, eventBus, log)

	events := api.NewEventStream(eventBus, log)
	apiServer := api.NewServer(gw, safetyPolicy, events, &cfg.HTTP, log)
	mcpServer := mcp.NewServer(cfg, gw, log)

	return &App{
		config:    cfg,
		logger:    log,
		eventBus:  eventBus,
		policy:    safetyPolicy,
		gateway:   gw,
		mcpServer: mcpServer,
		apiServer: apiServer,
		errCh:     make(chan error, 1),
	}
}

// Start launches the serving surfaces. The MCP transport runs in its own
// goroutine; a serve failure (or a closed stdio stream) is reported on
// Errors.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		a.logger.Warn("Application already started")
		return nil
	}

	if err := a.apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP API: %w", err)
	}

	if a.config.MCP.Enabled {
		go func() {
			a.errCh <- a.mcpServer.Start()
		}()
	} else {
		a.logger.Info("MCP surface is disabled")
	}

	a.started = true
	a.logger.Infof("%s started", a.config.Server.Name)
	return nil
}

// Errors reports the terminal error of the MCP transport. A nil value means
// the transport finished cleanly (stdio stream closed).
func (a *App) Errors() <-chan error {
	return a.errCh
}

// Shutdown stops the serving surfaces and the event bus.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		a.logger.Warn("Application not started")
		return nil
	}

	a.logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.mcpServer.Shutdown(ctx); err != nil {
		a.logger.Errorf("MCP shutdown error: %v", err)
	}

	if err := a.apiServer.Shutdown(); err != nil {
		a.logger.Errorf("HTTP API shutdown error: %v", err)
	}

	a.eventBus.Stop()

	a.started = false
	a.logger.Info("Shutdown complete")
	return nil
}

// Gateway exposes the command gateway, mainly for tests.
func (a *App) Gateway() *gateway.Gateway {
	return a.gateway
}
