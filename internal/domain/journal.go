package domain

import "time"

// TurnEntryID identifies a journal entry
type TurnEntryID string

// TurnEntry is the audit record of one committed turn.
// It is never read back into conversation memory.
type TurnEntry struct {
	ID        TurnEntryID `json:"id"`
	SessionID SessionID   `json:"session_id"`

	UserOrdinal   int    `json:"user_ordinal"`
	UserText      string `json:"user_text"`
	AssistantText string `json:"assistant_text"`

	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	LatencyMs int64  `json:"latency_ms"`

	CreatedAt time.Time `json:"created_at"`
}
