package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is set at build time.
var Version = "dev"

// Server wraps the application service with MCP protocol handling.
type Server struct {
	svc    Service
	config Config
	server *mcp.Server
}

// New creates a new MCP server wrapping the given service.
func New(svc Service, cfg Config) *Server {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfig().ConfigPath
	}
	s := &Server{svc: svc, config: cfg}
	s.server = mcp.NewServer(
		&mcp.Implementation{
			Name:    "covergate",
			Version: Version,
		},
		&mcp.ServerOptions{
			Capabilities: &mcp.ServerCapabilities{
				Tools:     &mcp.ToolCapabilities{},
				Resources: &mcp.ResourceCapabilities{},
			},
		},
	)
	s.registerTools(s.server)
	s.registerResources(s.server)
	return s
}

// Run serves over stdio and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "verify",
		Description: "Verify JVM coverage reports against the rules in .covergate.yaml. Returns every violated bound, sorted by rule, bound and entity.",
	}, s.handleVerify)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "coverage",
		Description: "Evaluate one coverage metric for the application, each package or each class, without checking any rule.",
	}, s.handleCoverage)
}

func (s *Server) registerResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         "covergate://config",
		Name:        "Current Configuration",
		Description: "Returns the filters, reports and rules covergate verifies",
		MIMEType:    "application/json",
	}, s.handleConfigResource)
}
