// Package mcp exposes ingestion and matching as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"xcreator/internal/domain"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingService is returned when no service is provided.
var ErrMissingService = errors.New("mcp: service is required")

// Service is the set of operations exposed as tools.
type Service interface {
	Ingest(ctx context.Context, handle string, category domain.Category, opts domain.IngestOptions) (*domain.IngestResult, error)
	Match(ctx context.Context, req domain.MatchRequest) (*domain.MatchResponse, error)
	Posts(ctx context.Context, searcher, candidate string, topK int) ([]domain.PostMatch, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// Server is the MCP server for xcreator.
type Server struct {
	svc        Service
	server     *mcp.Server
	logger     *slog.Logger
	defaultTop int
}

// NewServer creates a new MCP server with every tool registered.
func NewServer(svc Service, logger *slog.Logger, defaultTopK int) (*Server, error) {
	if svc == nil {
		return nil, ErrMissingService
	}
	if logger == nil {
		logger = slog.Default()
	}
	if defaultTopK <= 0 {
		defaultTopK = 10
	}

	s := &Server{
		svc:        svc,
		logger:     logger,
		defaultTop: defaultTopK,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "xcreator",
			Version: Version,
		}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over streamable HTTP on addr.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	s.logger.Info("mcp listening", "addr", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
