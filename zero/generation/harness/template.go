package harness

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Chat templates for the supported remote models.
// ChatML is used by Qwen, Mistral-Instruct fine-tunes and most Hugging Face chat models.

const chatMLTemplate = `{{if .System}}<|im_start|>system
{{.System}}<|im_end|>
{{end}}{{range .Turns}}<|im_start|>{{.Role}}
{{.Text}}<|im_end|>
{{end}}{{if .AddGenerationPrompt}}<|im_start|>assistant
{{end}}`

const gemmaTemplate = `{{if .System}}<start_of_turn>user
{{.System}}<end_of_turn>
{{end}}{{range .Turns}}<start_of_turn>{{if eq .Role "assistant"}}model{{else}}user{{end}}
{{.Text}}<end_of_turn>
{{end}}{{if .AddGenerationPrompt}}<start_of_turn>model
{{end}}`

// ChatTemplate renders a conversation into the delimiter format a model was trained on.
type ChatTemplate struct {
	name string
	tmpl *template.Template

	// AssistantDelimiter opens an assistant turn. The answer is whatever follows its last occurrence.
	AssistantDelimiter string
	// ResidualTokens end or open a turn and never belong in an answer.
	ResidualTokens []string
}

type templateData struct {
	System              string
	Turns               []Turn
	AddGenerationPrompt bool
}

// Name returns the template identifier ("chatml" or "gemma").
func (t *ChatTemplate) Name() string { return t.name }

func (t *ChatTemplate) render(system string, turns []Turn, generate bool) (string, error) {
	var buf bytes.Buffer
	err := t.tmpl.Execute(&buf, templateData{
		System:              system,
		Turns:               turns,
		AddGenerationPrompt: generate,
	})
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", t.name, err)
	}
	return buf.String(), nil
}

var (
	chatML = mustTemplate("chatml", chatMLTemplate, "<|im_start|>assistant",
		[]string{"<|im_end|>", "<|im_start|>", "<|endoftext|>"})
	gemma = mustTemplate("gemma", gemmaTemplate, "<start_of_turn>model",
		[]string{"<end_of_turn>", "<start_of_turn>", "<eos>"})
)

func mustTemplate(name, text, delimiter string, residual []string) *ChatTemplate {
	return &ChatTemplate{
		name:               name,
		tmpl:               template.Must(template.New(name).Parse(text)),
		AssistantDelimiter: delimiter,
		ResidualTokens:     residual,
	}
}

// ChatMLTemplate returns the default template.
func ChatMLTemplate() *ChatTemplate { return chatML }

// GetChatTemplate returns the appropriate chat template for a model.
func GetChatTemplate(modelName string) *ChatTemplate {
	switch name := strings.ToLower(modelName); {
	case strings.Contains(name, "gemma"):
		return gemma
	default:
		return chatML
	}
}
