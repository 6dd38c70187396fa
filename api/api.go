package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/api/mcp"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/template"
	"github.com/papercomputeco/recall/pkg/storage"
)

// DefaultMaxContextLength is used by /retrieve when neither the request nor
// the server config sets a budget.
const DefaultMaxContextLength = 1000

// Server is the API server for managing and querying stored context.
type Server struct {
	config Config
	store  storage.Driver
	memory memory.Driver
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The store and memory driver are injected to allow sharing with other
// components (e.g., the proxy when not run as a singleton).
func NewServer(config Config, store storage.Driver, mem memory.Driver, log *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("storage driver is required")
	}
	if mem == nil {
		return nil, fmt.Errorf("api: %w", memory.ErrNotConfigured)
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.Templates == nil {
		config.Templates = template.New()
	}
	if config.MaxContextLength <= 0 {
		config.MaxContextLength = DefaultMaxContextLength
	}
	if config.DefaultTemplate == "" {
		config.DefaultTemplate = template.Default
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		store:  store,
		memory: mem,
		logger: log,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	app.Get("/entries", s.handleListEntries)
	app.Post("/entries", s.handleCreateEntry)
	app.Get("/entries/search", s.handleSearchEntries)
	app.Get("/entries/:id", s.handleGetEntry)
	app.Put("/entries/:id", s.handleUpdateEntry)
	app.Delete("/entries/:id", s.handleDeleteEntry)

	app.Post("/retrieve", s.handleRetrieve)
	app.Get("/templates", s.handleTemplates)

	app.Get("/export", s.handleExport)
	app.Post("/import", s.handleImport)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Store:            store,
			Memory:           mem,
			MaxContextLength: config.MaxContextLength,
			DefaultTemplate:  config.DefaultTemplate,
			Logger:           log,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server", "listen", listener.Addr().String())
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}
