package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/usecase/knowledge"
	"github.com/m-mizutani/voxkb/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the knowledge-base pipeline as MCP tools.
type Server struct {
	uc     *knowledge.UseCase
	server *mcp.Server
}

// NewServer creates a new MCP server with all tools registered
func NewServer(uc *knowledge.UseCase, version string) *Server {
	s := &Server{
		uc: uc,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "voxkb",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying SDK server
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// RunStdio serves on stdin/stdout until ctx is done or the client disconnects
func (s *Server) RunStdio(ctx context.Context) error {
	logging.From(ctx).Info("serving MCP over stdio")
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "mcp server stopped")
	}
	return nil
}

// Handler returns a streamable HTTP handler serving this server
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// jsonResult renders v as indented JSON text content
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal tool result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// errorResult reports a failed call to the model instead of failing the protocol exchange
func errorResult(ctx context.Context, tool string, err error) (*mcp.CallToolResult, any, error) {
	logging.From(ctx).Warn("tool call failed", "tool", tool, "error", err)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: err.Error()},
		},
	}, nil, nil
}
