package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/pkg/chat"
	"github.com/opsgraph/opsgraph/pkg/convo"
	"github.com/opsgraph/opsgraph/pkg/graph"
	"github.com/opsgraph/opsgraph/pkg/llm"
)

// ChatRequest is the request body for POST /chat.
type ChatRequest struct {
	Message         string `json:"message"`
	ConversationID  string `json:"conversation_id,omitempty"`
	UseGraphContext *bool  `json:"use_graph_context,omitempty"`
}

// ChatResponse is the response body for POST /chat.
type ChatResponse struct {
	Response        string         `json:"response"`
	ConversationID  string         `json:"conversation_id"`
	Sources         []convo.Source `json:"sources,omitempty"`
	Usage           *llm.Usage     `json:"usage,omitempty"`
	ContextDegraded bool           `json:"context_degraded"`
}

// ErrorResponse is the JSON error body for every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChat runs one message through the conversational query engine.
// Graph fact failures degrade the answer rather than failing the request;
// a completion provider failure is a 502.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}

	// Graph grounding is on unless explicitly disabled.
	useGraph := true
	if req.UseGraphContext != nil {
		useGraph = *req.UseGraphContext
	}

	answer, err := s.engine.Respond(c.Context(), chat.Request{
		Message:         req.Message,
		ConversationID:  req.ConversationID,
		UseGraphContext: useGraph,
	})
	if err != nil {
		s.logger.Error("chat request failed", zap.Error(err))

		var providerErr llm.ProviderError
		if errors.As(err, &providerErr) {
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "completion provider failed"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to process message"})
	}

	return c.JSON(ChatResponse{
		Response:        answer.Text,
		ConversationID:  answer.ConversationID,
		Sources:         answer.Sources,
		Usage:           answer.Usage,
		ContextDegraded: answer.ContextDegraded,
	})
}

// handleGraphSummary returns the graph's node and relationship counts.
func (s *Server) handleGraphSummary(c *fiber.Ctx) error {
	counts, err := s.graph.Summary(c.Context())
	if err != nil {
		s.logger.Error("graph summary failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "graph store unavailable"})
	}
	return c.JSON(counts)
}

// handleListEntities returns all entity identifiers of one kind.
func (s *Server) handleListEntities(c *fiber.Ctx) error {
	kind, err := graph.ParseKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "unknown entity kind"})
	}

	list, err := s.graph.ListEntities(c.Context(), kind)
	if err != nil {
		s.logger.Error("entity listing failed", zap.String("kind", string(kind)), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "graph store unavailable"})
	}
	return c.JSON(list)
}

// handleEntityDetail returns the relations of one entity.
func (s *Server) handleEntityDetail(c *fiber.Ctx) error {
	kind, err := graph.ParseKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "unknown entity kind"})
	}

	detail, err := s.graph.EntityDetail(c.Context(), kind, c.Params("id"))
	if err != nil {
		var notFound graph.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: notFound.Error()})
		}
		s.logger.Error("entity detail failed",
			zap.String("kind", string(kind)),
			zap.String("id", c.Params("id")),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "graph store unavailable"})
	}
	return c.JSON(detail)
}
