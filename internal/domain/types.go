package domain

import (
	"strings"
	"time"
)

type SessionID string

// DefaultSessionID is used when a caller does not name a session.
const DefaultSessionID SessionID = "default"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a wire role onto the closed Role enum.
// Unknown roles are a validation failure, never passed through.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return RoleSystem, nil
	case "user", "human":
		return RoleUser, nil
	case "assistant", "ai":
		return RoleAssistant, nil
	default:
		return "", NewValidationError("unrecognized role %q", s)
	}
}

// Label is the prefix used when a message is rendered as a text line.
func (r Role) Label() string {
	switch r {
	case RoleSystem:
		return "System"
	case RoleUser:
		return "Human"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// PromptMode selects how a prompt is rendered for a provider.
type PromptMode string

const (
	PromptModeMessages  PromptMode = "messages"  // role-tagged list
	PromptModeFlattened PromptMode = "flattened" // "<Role>: <content>" lines
)

type Timestamp = time.Time
