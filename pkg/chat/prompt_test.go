package chat

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opsgraph/opsgraph/pkg/convo"
	"github.com/opsgraph/opsgraph/pkg/llm"
)

var _ = Describe("PromptBuilder", func() {
	var builder *PromptBuilder

	BeforeEach(func() {
		builder = NewPromptBuilder(DefaultPromptBudget)
	})

	It("orders messages: system, context, history, user", func() {
		history := []convo.Turn{
			{Role: convo.RoleUser, Content: "earlier question"},
			{Role: convo.RoleAssistant, Content: "earlier answer"},
		}
		messages := builder.Build("some facts", history, "new question")

		Expect(messages).To(HaveLen(5))
		Expect(messages[0].Role).To(Equal(llm.RoleSystem))
		Expect(messages[0].Content).To(Equal(SystemInstruction))
		Expect(messages[1].Role).To(Equal(llm.RoleSystem))
		Expect(messages[1].Content).To(ContainSubstring("some facts"))
		Expect(messages[2].Role).To(Equal(llm.RoleUser))
		Expect(messages[2].Content).To(Equal("earlier question"))
		Expect(messages[3].Role).To(Equal(llm.RoleAssistant))
		Expect(messages[4].Role).To(Equal(llm.RoleUser))
		Expect(messages[4].Content).To(Equal("new question"))
	})

	It("omits the context note when there is no context", func() {
		messages := builder.Build("", nil, "question")
		Expect(messages).To(HaveLen(2))
		Expect(messages[0].Content).To(Equal(SystemInstruction))
		Expect(messages[1].Content).To(Equal("question"))
	})

	It("drops the oldest history turns when over budget", func() {
		tight := NewPromptBuilder(len(SystemInstruction) + 200)
		history := []convo.Turn{
			{Role: convo.RoleUser, Content: strings.Repeat("a", 150)},
			{Role: convo.RoleAssistant, Content: strings.Repeat("b", 100)},
			{Role: convo.RoleUser, Content: strings.Repeat("c", 50)},
		}
		messages := tight.Build("", history, "q")

		Expect(messages).To(HaveLen(4))
		Expect(messages[1].Content).To(HavePrefix("b"))
		Expect(messages[2].Content).To(HavePrefix("c"))
	})

	It("never trims the context block", func() {
		tight := NewPromptBuilder(10)
		context := strings.Repeat("x", 500)
		messages := tight.Build(context, []convo.Turn{
			{Role: convo.RoleUser, Content: "history"},
		}, "q")

		Expect(messages).To(HaveLen(3))
		Expect(messages[1].Content).To(ContainSubstring(context))
	})
})
