package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/tmacey/codesearch-mcp/internal/searcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "codesearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.codesearch/indices"
)

// Server wraps the MCP server with the retrieval stack behind it.
type Server struct {
	mcp      *server.MCPServer
	searcher *searcher.Searcher
}

// NewServer creates a new MCP server instance over a database directory.
func NewServer(dbPath string) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".codesearch", "indices")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Single database file for now; per-project databases could come later.
	dbFile := filepath.Join(dbPath, "codesearch.db")

	srch, err := searcher.NewDefault(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search stack: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		searcher: srch,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.searcher.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(clearIndexTool(), s.handleClearIndex)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
