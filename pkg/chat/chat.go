// Package chat is the graph-grounded conversational query engine. It decides
// per message which graph facts to retrieve, folds them with rolling history
// into a bounded prompt, invokes the completion client, and returns a
// traceable answer with source attribution.
package chat

import (
	"github.com/opsgraph/opsgraph/pkg/convo"
	"github.com/opsgraph/opsgraph/pkg/graph"
	"github.com/opsgraph/opsgraph/pkg/llm"
)

// SourceSummary is the pseudo-kind attributed to the graph summary fact.
const SourceSummary = graph.Kind("summary")

// Request is one incoming user message.
type Request struct {
	// Message is the user's free-text question.
	Message string

	// ConversationID continues an existing conversation. Empty starts a new
	// one; the resolved id is returned on the Answer.
	ConversationID string

	// UseGraphContext enables graph fact retrieval for this message.
	UseGraphContext bool
}

// Answer is the engine's response to a single request.
type Answer struct {
	// Text is the generated assistant text.
	Text string `json:"text"`

	// ConversationID is the resolved conversation identifier.
	ConversationID string `json:"conversation_id"`

	// Sources attribute the answer to the graph facts supplied as context.
	Sources []convo.Source `json:"sources,omitempty"`

	// Usage is the provider-reported token usage, nil when unavailable.
	Usage *llm.Usage `json:"usage,omitempty"`

	// ContextDegraded reports that one or more graph facts could not be
	// retrieved (or a requested identifier did not exist), so the supplied
	// context is incomplete.
	ContextDegraded bool `json:"context_degraded"`
}

// ContextBlock is the rendered graph context for one request, together with
// the sources of every fact it encodes. Rendering is deterministic given the
// same facts and budget.
type ContextBlock struct {
	// Text is the rendered context, empty when no facts were included.
	Text string

	// Sources lists the provenance of every fact present in Text. Facts
	// dropped during budget trimming contribute no sources.
	Sources []convo.Source

	// Degraded is set when a fetch failed or an identifier was not found.
	Degraded bool
}

// Empty reports whether the block carries no rendered context.
func (b *ContextBlock) Empty() bool {
	return b == nil || b.Text == ""
}
