package domain

// Message is one stored entry in a conversation log.
// Ordinal is assigned by the ConversationStore, never by the caller.
type Message struct {
	Role      Role
	Content   string
	Ordinal   int
	CreatedAt Timestamp
}

// Line renders the message as a transcript line, e.g. "Human: hi".
func (m Message) Line() string {
	return m.Role.Label() + ": " + m.Content
}

// Conversation is a point-in-time view of a session's log.
type Conversation struct {
	SessionID SessionID
	Messages  []Message
}

// PromptMessage is a role-tagged entry in a provider payload.
type PromptMessage struct {
	Role    Role
	Content string
}

// Prompt is the full payload sent to a provider for one turn.
// Exactly one of Messages or Text is populated, according to Mode.
type Prompt struct {
	Mode     PromptMode
	Messages []PromptMessage
	Text     string
}

// Transcript renders messages as "<Role>: <content>" lines.
func Transcript(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Line())
	}
	return out
}
