package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opsgraph/opsgraph/pkg/convo"
	"github.com/opsgraph/opsgraph/pkg/llm"
)

var _ = Describe("Engine", func() {
	var (
		driver *fakeGraph
		client *fakeClient
		store  *convo.Store
		engine *Engine
		ctx    context.Context
	)

	newEngine := func() *Engine {
		assembler := NewAssembler(driver, DefaultContextBudget, nil)
		prompts := NewPromptBuilder(DefaultPromptBudget)
		return NewEngine(DefaultConfig(), assembler, prompts, store, client, nil)
	}

	BeforeEach(func() {
		driver = newFakeGraph()
		client = &fakeClient{text: "server1 runs ubuntu"}
		store = convo.NewStore(convo.DefaultMaxTurns)
		engine = newEngine()
		ctx = context.Background()
	})

	Describe("a successful request", func() {
		It("returns the completion with provenance and persists the turn pair", func() {
			client.usage = &llm.Usage{PromptTokens: 40, CompletionTokens: 8, TotalTokens: 48}

			answer, err := engine.Respond(ctx, Request{
				Message:         "what does server1 run?",
				UseGraphContext: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.Text).To(Equal("server1 runs ubuntu"))
			Expect(answer.ConversationID).NotTo(BeEmpty())
			Expect(answer.Usage.TotalTokens).To(Equal(48))
			Expect(answer.Sources).NotTo(BeEmpty())

			turns := store.Recent(answer.ConversationID, 0)
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].Role).To(Equal(convo.RoleUser))
			Expect(turns[0].Content).To(Equal("what does server1 run?"))
			Expect(turns[1].Role).To(Equal(convo.RoleAssistant))
			Expect(turns[1].Content).To(Equal("server1 runs ubuntu"))
			Expect(turns[1].Sources).To(Equal(answer.Sources))
			Expect(turns[0].Sources).To(BeEmpty())
		})

		It("sends the graph context to the provider as a system note", func() {
			_, err := engine.Respond(ctx, Request{
				Message:         "tell me about server1",
				UseGraphContext: true,
			})
			Expect(err).NotTo(HaveOccurred())

			prompt := client.lastPrompt()
			Expect(prompt[0].Role).To(Equal(llm.RoleSystem))
			Expect(prompt[1].Role).To(Equal(llm.RoleSystem))
			Expect(prompt[1].Content).To(ContainSubstring(`Server "server1"`))
			Expect(prompt[len(prompt)-1].Content).To(Equal("tell me about server1"))
		})

		It("carries prior turns into follow-up prompts", func() {
			first, err := engine.Respond(ctx, Request{Message: "what servers exist?", UseGraphContext: true})
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Respond(ctx, Request{
				Message:         "and which one runs ubuntu?",
				ConversationID:  first.ConversationID,
				UseGraphContext: true,
			})
			Expect(err).NotTo(HaveOccurred())

			var sawHistory bool
			for _, msg := range client.lastPrompt() {
				if msg.Role == llm.RoleAssistant && msg.Content == "server1 runs ubuntu" {
					sawHistory = true
				}
			}
			Expect(sawHistory).To(BeTrue())
		})
	})

	Describe("graph-free requests", func() {
		It("never touches the graph when context is disabled", func() {
			answer, err := engine.Respond(ctx, Request{
				Message:         "what servers do we have?",
				UseGraphContext: false,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.Sources).To(BeEmpty())
			Expect(answer.ContextDegraded).To(BeFalse())
			Expect(driver.count()).To(BeZero())
		})
	})

	Describe("degraded context", func() {
		It("still answers and flags the degradation", func() {
			driver.summaryErr = errors.New("neo4j down")
			driver.listErr = driver.summaryErr

			answer, err := engine.Respond(ctx, Request{
				Message:         "what servers do we have?",
				UseGraphContext: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.ContextDegraded).To(BeTrue())
			Expect(store.Len(answer.ConversationID)).To(Equal(2))
		})
	})

	Describe("provider failure", func() {
		It("fails the request and persists nothing", func() {
			client.err = llm.ProviderError{Provider: "openai", StatusCode: 429, Message: "rate limited"}

			_, err := engine.Respond(ctx, Request{
				Message:         "hello",
				ConversationID:  "conv-a",
				UseGraphContext: true,
			})

			var provErr llm.ProviderError
			Expect(errors.As(err, &provErr)).To(BeTrue())
			Expect(provErr.StatusCode).To(Equal(429))
			Expect(store.Len("conv-a")).To(BeZero())
		})
	})

	Describe("cancellation", func() {
		It("persists nothing when the request was cancelled mid-flight", func() {
			cancelCtx, cancel := context.WithCancel(ctx)
			client.onComplete = cancel

			_, err := engine.Respond(cancelCtx, Request{
				Message:         "hello",
				ConversationID:  "conv-b",
				UseGraphContext: true,
			})
			Expect(err).To(MatchError(context.Canceled))
			Expect(store.Len("conv-b")).To(BeZero())
		})
	})

	Describe("concurrent requests on one conversation", func() {
		It("keeps user and assistant turns strictly paired", func() {
			store = convo.NewStore(200)
			engine = newEngine()

			var wg sync.WaitGroup
			for i := 0; i < 15; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := engine.Respond(ctx, Request{
						Message:        fmt.Sprintf("question %d", i),
						ConversationID: "shared",
					})
					Expect(err).NotTo(HaveOccurred())
				}(i)
			}
			wg.Wait()

			turns := store.Recent("shared", 0)
			Expect(turns).To(HaveLen(30))
			for i := 0; i < len(turns); i += 2 {
				Expect(turns[i].Role).To(Equal(convo.RoleUser))
				Expect(turns[i+1].Role).To(Equal(convo.RoleAssistant))
			}
		})
	})
})
