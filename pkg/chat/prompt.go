package chat

import (
	"github.com/opsgraph/opsgraph/pkg/convo"
	"github.com/opsgraph/opsgraph/pkg/llm"
)

// DefaultPromptBudget approximates the provider input limit in characters.
const DefaultPromptBudget = 24000

// SystemInstruction anchors every prompt the engine sends.
const SystemInstruction = `You are an assistant answering questions about an infrastructure inventory
of servers, applications, operating systems, and locations.

When graph facts are provided, ground your answer in them and cite the
tagged sources. If a fact you need is missing or the context is marked
degraded, say so rather than guessing. Keep answers concise and factual.`

// contextPreamble introduces the assembled graph facts to the model.
const contextPreamble = "Facts retrieved from the infrastructure knowledge graph:\n\n"

// PromptBuilder composes the ordered message sequence sent to the completion
// provider: system instruction, context note, trimmed history, new message.
type PromptBuilder struct {
	maxChars int
}

// NewPromptBuilder creates a prompt builder bounded to maxChars total prompt
// size. Non-positive values fall back to DefaultPromptBudget.
func NewPromptBuilder(maxChars int) *PromptBuilder {
	if maxChars <= 0 {
		maxChars = DefaultPromptBudget
	}
	return &PromptBuilder{maxChars: maxChars}
}

// Build assembles the final message sequence. Ordering is fixed: system
// instruction first, then the context block as a second system-role note,
// then history in chronological order, then the new user message last.
//
// If the assembled prompt exceeds the size budget, the oldest history turns
// are dropped first. The context block is never trimmed here; the assembler
// already bounded it.
func (p *PromptBuilder) Build(contextText string, history []convo.Turn, message string) []llm.Message {
	fixed := len(SystemInstruction) + len(message)
	if contextText != "" {
		fixed += len(contextPreamble) + len(contextText)
	}

	historyLen := 0
	for _, turn := range history {
		historyLen += len(turn.Content)
	}
	for fixed+historyLen > p.maxChars && len(history) > 0 {
		historyLen -= len(history[0].Content)
		history = history[1:]
	}

	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages, llm.NewMessage(llm.RoleSystem, SystemInstruction))
	if contextText != "" {
		messages = append(messages, llm.NewMessage(llm.RoleSystem, contextPreamble+contextText))
	}
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == convo.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.NewMessage(role, turn.Content))
	}
	messages = append(messages, llm.NewMessage(llm.RoleUser, message))

	return messages
}
