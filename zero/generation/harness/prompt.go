package harness

import (
	"strings"
)

// PromptBuilder assembles model-ready prompts from a context and a pending utterance.
type PromptBuilder struct {
	template *ChatTemplate
}

func NewPromptBuilder(t *ChatTemplate) *PromptBuilder {
	if t == nil {
		t = chatML
	}
	return &PromptBuilder{template: t}
}

// Template returns the chat template used by the builder.
func (b *PromptBuilder) Template() *ChatTemplate { return b.template }

// Build renders the whole context plus the pending user turn, then opens an assistant turn.
func (b *PromptBuilder) Build(conv ConversationContext, userText string) (string, error) {
	turns := make([]Turn, 0, conv.Len()+1)
	for _, t := range conv.turns {
		turns = append(turns, Turn{Role: t.Role, Text: normalize(t.Text)})
	}
	turns = append(turns, Turn{Role: RoleUser, Text: normalize(userText)})
	return b.template.render(normalize(conv.preamble), turns, true)
}

// BuildSingle renders a one-shot prompt with its own preamble and no history.
func (b *PromptBuilder) BuildSingle(preamble, userText string) (string, error) {
	return b.Build(NewConversation(preamble), userText)
}

// Normalize newlines and trim whitespace to reduce prompt diffs for caching
func normalize(s string) string { return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n")) }
