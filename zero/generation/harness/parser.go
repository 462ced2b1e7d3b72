package harness

import (
	"strings"
)

// OutputParser extracts the assistant answer from a raw completion.
//
// The endpoint echoes the prompt back followed by the continuation, so only
// the text after the last assistant delimiter is the answer. The answer ends
// at the first residual role token the model produced on its own.
type OutputParser struct {
	template *ChatTemplate
}

// NewOutputParser creates a parser bound to a chat template.
func NewOutputParser(t *ChatTemplate) *OutputParser {
	if t == nil {
		t = chatML
	}
	return &OutputParser{template: t}
}

// ExtractAnswer returns the trimmed answer, or "" when the completion carries none.
func (p *OutputParser) ExtractAnswer(raw string) string {
	answer := raw
	if i := strings.LastIndex(answer, p.template.AssistantDelimiter); i >= 0 {
		answer = answer[i+len(p.template.AssistantDelimiter):]
	}

	cut := len(answer)
	for _, tok := range p.template.ResidualTokens {
		if i := strings.Index(answer, tok); i >= 0 && i < cut {
			cut = i
		}
	}

	return strings.TrimSpace(answer[:cut])
}
