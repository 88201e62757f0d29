package domain

import "context"

// ProviderGateway is the boundary to the external language model.
// Implementations perform a single call, own no retry logic, and return
// failures as *Error with a provider-side Kind.
type ProviderGateway interface {
	Name() string
	Mode() PromptMode
	Invoke(ctx context.Context, prompt Prompt) (string, error)
}

// ConversationStore holds every session's ordered message log.
// All operations are total: unknown ids are created, not rejected.
type ConversationStore interface {
	GetOrCreate(id SessionID) Conversation
	Append(id SessionID, role Role, content string) Message
	AppendTurn(id SessionID, userText, assistantText string) (Message, Message)
	Snapshot(id SessionID) []Message
	Clear(id SessionID)

	// LockSession serializes whole turns on one session. The returned
	// func releases the lock and is safe to call more than once. It fails
	// only if ctx ends while waiting.
	LockSession(ctx context.Context, id SessionID) (func(), error)
}

// TurnJournal persists an audit trail of completed turns.
type TurnJournal interface {
	RecordTurn(ctx context.Context, entry *TurnEntry) error
	ListTurns(ctx context.Context, sessionID SessionID, limit int) ([]*TurnEntry, error)
}
