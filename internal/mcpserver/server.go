// Package mcpserver exposes the robot's action catalog over the MCP
// protocol, so external agents can drive the robot through the same
// dispatcher the conversation loop uses. Every catalog action becomes one
// MCP tool; calls run with full argument binding, timeouts, and event
// reporting.
package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/cozmogo/cozmogo/internal/dispatch"
	"github.com/cozmogo/cozmogo/internal/logger"
	"github.com/cozmogo/cozmogo/internal/schema"
)

// Server is an embedded MCP HTTP server over the action catalog.
type Server struct {
	dispatcher *dispatch.Dispatcher
	catalog    *schema.Catalog

	mu        sync.Mutex
	mcpServer *server.MCPServer
	stdServer *http.Server
	port      int
}

// New creates a server. It does not listen until Start.
func New(dispatcher *dispatch.Dispatcher, catalog *schema.Catalog) *Server {
	return &Server{dispatcher: dispatcher, catalog: catalog}
}

// Start listens on a random loopback port and returns it. The listener is
// opened before the goroutine starts, so a successful return means the
// endpoint is ready.
func (s *Server) Start(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return 0, fmt.Errorf("server already started")
	}

	s.mcpServer = server.NewMCPServer(
		"cozmogo-robot",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("open mcp listener: %w", err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
	))
	s.stdServer = &http.Server{Handler: mux}

	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("mcp server error: %v", err)
		}
	}()

	logger.Info("mcp server ready on port %d", s.port)
	return s.port, nil
}

// Stop shuts the server down. Safe to call when never started.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer == nil {
		return nil
	}
	if err := s.stdServer.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("stop mcp server: %w", err)
	}
	s.stdServer = nil
	s.mcpServer = nil
	return nil
}

// URL returns the endpoint URL, valid after Start.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://127.0.0.1:%d/mcp", s.port)
}
