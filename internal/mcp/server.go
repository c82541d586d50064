// Package mcp exposes the front desk to a voice agent as MCP tools.
package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/frontdesk/internal/intake"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Desk answers or escalates a caller's question.
type Desk interface {
	Ask(ctx context.Context, customerID, question, callbackRef string) (*intake.Outcome, error)
	Await(ctx context.Context, id string, interval time.Duration) (string, bool, error)
}

// Requests reads help requests.
type Requests interface {
	Get(ctx context.Context, id string) (*requests.HelpRequest, error)
}

// Profile renders the business profile for the agent.
type Profile interface {
	Text(ctx context.Context) (string, error)
}

// Server wraps an MCP server that exposes the agent tools.
type Server struct {
	desk     Desk
	requests Requests
	profile  Profile
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(desk Desk, reqs Requests, profile Profile) *Server {
	s := &Server{
		desk:     desk,
		requests: reqs,
		profile:  profile,
	}

	s.mcp = server.NewMCPServer(
		"frontdesk",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askQuestionTool, s.handleAskQuestion)
	s.mcp.AddTool(checkRequestTool, s.handleCheckRequest)
	s.mcp.AddTool(getBusinessInfoTool, s.handleGetBusinessInfo)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
