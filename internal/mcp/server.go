// Package mcp exposes the retrieval engine as MCP tools over stdio.
//
// Each tool returns either a success payload or an error envelope
// {error:{code, message, suggestion?}} - never a mix, and never an
// unstructured crash: pipeline failures and panics alike are caught at the
// tool boundary.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowledged/internal/engine"
)

// Server is the MCP server wrapping the retrieval engine.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	logger *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "knowledged").
	Name string

	// Version is the server version (default: "1.0.0").
	Version string

	// Logger for structured logging.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "knowledged",
		Version: "1.0.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates an MCP server exposing the engine's four operations.
func NewServer(cfg *Config, eng *engine.Engine) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:    mcpServer,
		engine: eng,
		logger: cfg.Logger,
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// envelope maps a pipeline failure to the caller-visible error payload.
// requestID correlates the log line with the tool call that failed.
func (s *Server) envelope(tool, requestID string, err error, fallbackCode string) *engine.Error {
	e := engine.AsError(err, fallbackCode)
	s.logger.Warn("tool failed",
		zap.String("tool", tool),
		zap.String("request_id", requestID),
		zap.String("code", e.Code),
		zap.Error(err))
	return e
}

// panicEnvelope converts a pipeline panic into an error envelope so the
// hosting process never crashes on a tool call.
func (s *Server) panicEnvelope(tool, requestID, fallbackCode string, r any) *engine.Error {
	s.logger.Error("tool panicked",
		zap.String("tool", tool),
		zap.String("request_id", requestID),
		zap.Any("panic", r))
	return &engine.Error{
		Code:    fallbackCode,
		Message: fmt.Sprintf("internal failure: %v", r),
	}
}

// errorText renders the one-line content text for a failed call.
func errorText(e *engine.Error) string {
	return fmt.Sprintf("Error %s: %s", e.Code, e.Message)
}
