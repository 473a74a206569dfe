package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
)

// ServerName is the name the MCP server reports to clients.
const ServerName = "mcpforge"

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	mcp    *server.MCPServer
	logger *slog.Logger
}

// NewMCPServer creates an MCP server exposing the extraction tools.
func NewMCPServer(ex EntityExtractor, version string, logger *slog.Logger) (*MCPServer, error) {
	if ex == nil {
		return nil, errors.New("entity extractor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)

	AddExtractEntitiesTool(mcpServer, ex)

	return &MCPServer{
		mcp:    mcpServer,
		logger: logger,
	}, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio", "name", ServerName)
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		s.logger.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
