package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	mcpTypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/termgate/termgate/internal/config"
	"github.com/termgate/termgate/internal/gateway"
)

const readmeURI = "file:///mcpreadme"

// CommandGateway is the part of the gateway the MCP surface needs.
type CommandGateway interface {
	Handle(ctx context.Context, req gateway.Request) gateway.Result
}

// Server exposes the command gateway and the readme resource over MCP.
type Server struct {
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	gateway    CommandGateway
	config     *config.AppConfig
	logger     *logrus.Logger
}

// NewServer creates the MCP server and registers its tools and resources.
func NewServer(cfg *config.AppConfig, gw CommandGateway, logger *logrus.Logger) *Server {
	mcpServer := server.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	s := &Server{
		mcpServer: mcpServer,
		gateway:   gw,
		config:    cfg,
		logger:    logger,
	}

	mcpServer.AddTool(s.GetRunCommandTool(), s.RunCommandHandler)
	mcpServer.AddResource(s.GetReadmeResource(), s.ReadmeHandler)

	return s
}

// GetRunCommandTool describes the run_command tool.
func (s *Server) GetRunCommandTool() mcpTypes.Tool {
	return mcpTypes.NewTool("run_command",
		mcpTypes.WithDescription("Run a terminal command and return stdout, stderr and the return code"),
		mcpTypes.WithString("command",
			mcpTypes.Required(),
			mcpTypes.Description("The command to execute in the terminal"),
		),
	)
}

// RunCommandHandler delegates to the gateway and returns its result as a
// JSON object. The request context is the MCP call context, so a client
// disconnect propagates into termination of the child process.
func (s *Server) RunCommandHandler(ctx context.Context, req mcpTypes.CallToolRequest) (*mcpTypes.CallToolResult, error) {
	args := req.GetArguments()
	command, _ := args["command"].(string)

	if command == "" {
		return mcpTypes.NewToolResultError("command is required"), nil
	}

	result := s.gateway.Handle(ctx, gateway.Request{Command: command})

	payload, err := json.Marshal(result)
	if err != nil {
		return mcpTypes.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}

	return mcpTypes.NewToolResultText(string(payload)), nil
}

// GetReadmeResource describes the file:///mcpreadme resource.
func (s *Server) GetReadmeResource() mcpTypes.Resource {
	return mcpTypes.NewResource(readmeURI, "mcpreadme",
		mcpTypes.WithResourceDescription("The mcpreadme.md document from the configured readme path"),
		mcpTypes.WithMIMEType("text/markdown"),
	)
}

// ReadmeHandler reads the configured readme file. A failed read is reported
// in-band as the resource content, not as a protocol error.
func (s *Server) ReadmeHandler(ctx context.Context, req mcpTypes.ReadResourceRequest) ([]mcpTypes.ResourceContents, error) {
	path := s.readmePath()

	text := ""
	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warnf("Failed to read readme resource %s: %v", path, err)
		text = fmt.Sprintf("Error reading mcpreadme.md: %v", err)
	} else {
		text = string(content)
	}

	return []mcpTypes.ResourceContents{
		mcpTypes.TextResourceContents{
			URI:      readmeURI,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}, nil
}

func (s *Server) readmePath() string {
	if s.config.Resources.ReadmePath != "" {
		return s.config.Resources.ReadmePath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "mcpreadme.md"
	}
	return filepath.Join(home, "Desktop", "mcpreadme.md")
}

// Start serves MCP over the configured transport. The stdio transport
// blocks until the client closes the stream; the http transport blocks
// until Shutdown.
func (s *Server) Start() error {
	switch s.config.MCP.Transport {
	case "stdio":
		s.logger.Info("Serving MCP over stdio")
		return server.ServeStdio(s.mcpServer)
	case "http":
		s.logger.Infof("Serving MCP over streamable HTTP on %s", s.config.MCP.Address)
		s.httpServer = server.NewStreamableHTTPServer(s.mcpServer)
		return s.httpServer.Start(s.config.MCP.Address)
	default:
		return fmt.Errorf("unsupported MCP transport: %s", s.config.MCP.Transport)
	}
}

// Shutdown stops the http transport. The stdio transport stops when its
// stream closes.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
