package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/pkg/chat"
	"github.com/opsgraph/opsgraph/pkg/graph"
)

// Responder is the engine capability the server exposes over HTTP.
type Responder interface {
	Respond(ctx context.Context, req chat.Request) (*chat.Answer, error)
}

// Server is the API server for the opsgraph system.
type Server struct {
	config Config
	engine Responder
	graph  graph.Driver
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The engine and graph driver are
// injected so tests can substitute in-memory fakes.
func NewServer(config Config, engine Responder, driver graph.Driver, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		engine: engine,
		graph:  driver,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/chat", s.handleChat)
	app.Get("/graph/summary", s.handleGraphSummary)
	app.Get("/graph/:kind", s.handleListEntities)
	app.Get("/graph/:kind/:id", s.handleEntityDetail)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
