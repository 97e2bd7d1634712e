package chat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/pkg/convo"
	"github.com/opsgraph/opsgraph/pkg/llm"
	"github.com/opsgraph/opsgraph/pkg/utils"
)

// Request lifecycle states, logged as the engine advances. ContextDegraded
// is a non-fatal branch of ContextResolved; Failed covers provider and
// store failures.
type state string

const (
	stateReceived        state = "received"
	stateContextResolved state = "context_resolved"
	stateHistoryLoaded   state = "history_loaded"
	statePromptBuilt     state = "prompt_built"
	stateCompleted       state = "completed"
	statePersisted       state = "persisted"
)

// StoreError reports a conversation store failure. Fatal for the request;
// no answer is returned and nothing is persisted.
type StoreError struct {
	Op             string
	ConversationID string
}

func (e StoreError) Error() string {
	return "conversation store " + e.Op + " failed for " + e.ConversationID
}

// Config tunes the engine.
type Config struct {
	// HistoryTurns is the window of recent turns included in the prompt.
	HistoryTurns int

	// MaxOutputTokens bounds the completion length.
	MaxOutputTokens int

	// Temperature is passed through to the completion provider.
	Temperature float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		HistoryTurns:    10,
		MaxOutputTokens: 1000,
		Temperature:     0.7,
	}
}

// Engine orchestrates one Respond call: conditional context assembly, history
// load, prompt build, completion, and the paired turn append. Requests on the
// same conversation are serialized; distinct conversations run in parallel.
type Engine struct {
	config    Config
	assembler *Assembler
	prompts   *PromptBuilder
	store     *convo.Store
	client    llm.Client
	logger    *zap.Logger
}

// NewEngine wires the engine from its collaborators.
func NewEngine(config Config, assembler *Assembler, prompts *PromptBuilder, store *convo.Store, client llm.Client, logger *zap.Logger) *Engine {
	if config.HistoryTurns <= 0 {
		config.HistoryTurns = DefaultConfig().HistoryTurns
	}
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = DefaultConfig().MaxOutputTokens
	}
	return &Engine{
		config:    config,
		assembler: assembler,
		prompts:   prompts,
		store:     store,
		client:    client,
		logger:    logger,
	}
}

// Respond answers one user message. Graph fact failures degrade the context
// and never fail the request; a provider or store failure is fatal and leaves
// the conversation history untouched. On success both the user turn and the
// assistant turn are appended under the conversation lock.
func (e *Engine) Respond(ctx context.Context, req Request) (*Answer, error) {
	id, created := e.store.GetOrCreate(req.ConversationID)
	e.transition(id, stateReceived,
		zap.Bool("new_conversation", created),
		zap.String("message", utils.Truncate(req.Message, 80)),
	)

	unlock, ok := e.store.Lock(id)
	if !ok {
		return nil, StoreError{Op: "lock", ConversationID: id}
	}
	defer unlock()

	// Context resolution only peeks at the conversation tail, to avoid
	// repeating the summary fact in back-to-back turns.
	tail := e.store.Recent(id, 2)
	block := e.assembler.Assemble(ctx, req.Message, req.UseGraphContext, tail)
	e.transition(id, stateContextResolved,
		zap.Bool("degraded", block.Degraded),
		zap.Int("context_chars", len(block.Text)),
		zap.Int("sources", len(block.Sources)),
	)

	history := e.store.Recent(id, e.config.HistoryTurns)
	e.transition(id, stateHistoryLoaded, zap.Int("turns", len(history)))

	messages := e.prompts.Build(block.Text, history, req.Message)
	e.transition(id, statePromptBuilt, zap.Int("messages", len(messages)))

	completion, err := e.client.Complete(ctx, messages, e.config.MaxOutputTokens, e.config.Temperature)
	if err != nil {
		return nil, fmt.Errorf("completing response for conversation %s: %w", id, err)
	}
	e.transition(id, stateCompleted)

	// A cancelled request persists nothing, even if the completion raced
	// the cancellation and returned.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	appended := e.store.Append(id,
		convo.Turn{Role: convo.RoleUser, Content: req.Message, Timestamp: now},
		convo.Turn{Role: convo.RoleAssistant, Content: completion.Text, Timestamp: now, Sources: block.Sources},
	)
	if !appended {
		return nil, StoreError{Op: "append", ConversationID: id}
	}
	e.transition(id, statePersisted)

	return &Answer{
		Text:            completion.Text,
		ConversationID:  id,
		Sources:         block.Sources,
		Usage:           completion.Usage,
		ContextDegraded: block.Degraded,
	}, nil
}

func (e *Engine) transition(id string, s state, fields ...zap.Field) {
	if e.logger == nil {
		return
	}
	fields = append([]zap.Field{
		zap.String("conversation_id", id),
		zap.String("state", string(s)),
	}, fields...)
	e.logger.Debug("request state", fields...)
}
