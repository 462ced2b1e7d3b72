package harness

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one user utterance or one assistant reply.
type Turn struct {
	Role Role
	Text string
}

// ConversationContext is the accumulated transcript of one session.
//
// It is a value: appending returns a new context and never touches the
// receiver's backing array, so a caller holding an older context keeps
// seeing the old transcript. Turns always come in user/assistant pairs.
type ConversationContext struct {
	preamble string
	turns    []Turn
}

// NewConversation creates an empty context with a fixed system preamble.
func NewConversation(preamble string) ConversationContext {
	return ConversationContext{preamble: preamble}
}

func (c ConversationContext) Preamble() string { return c.preamble }

// Turns returns a copy of the transcript in conversation order.
func (c ConversationContext) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c ConversationContext) Len() int { return len(c.turns) }

// Exchanges returns the number of completed user/assistant pairs.
func (c ConversationContext) Exchanges() int { return len(c.turns) / 2 }

// WithExchange returns a new context with one user turn and its reply appended.
func (c ConversationContext) WithExchange(userText, assistantText string) ConversationContext {
	turns := make([]Turn, len(c.turns), len(c.turns)+2)
	copy(turns, c.turns)
	turns = append(turns,
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleAssistant, Text: assistantText},
	)
	return ConversationContext{preamble: c.preamble, turns: turns}
}

// Serialize renders the preamble and all turns with the given template.
// Nothing is cached, so two calls without mutation yield the same text.
func (c ConversationContext) Serialize(t *ChatTemplate) (string, error) {
	if t == nil {
		t = chatML
	}
	return t.render(c.preamble, c.turns, false)
}
