package llm

import (
	"strings"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// DefaultSystemPrompt is used when no system prompt is configured.
const DefaultSystemPrompt = "You are a helpful and friendly AI assistant."

// completionCue ends a flattened prompt so a completion model answers as
// the assistant.
var completionCue = domain.RoleAssistant.Label() + ":"

// BuildPrompt assembles the payload for one turn: the system instruction
// first, then every history message in stored order, then the new user
// message last.
//
// The flattened mode renders "<Role>: <content>" lines and is lossy: content
// that itself contains a line starting with "Human:" or "Assistant:" cannot
// be told apart from a real turn boundary when the model reads it back.
// Prefer PromptModeMessages whenever the provider accepts role-tagged input.
func BuildPrompt(
	mode domain.PromptMode,
	system string,
	history []domain.Message,
	userText string,
) (domain.Prompt, error) {
	if strings.TrimSpace(userText) == "" {
		return domain.Prompt{}, domain.NewValidationError("message must not be empty")
	}

	switch mode {
	case domain.PromptModeFlattened:
		return domain.Prompt{
			Mode: mode,
			Text: flatten(system, history, userText),
		}, nil
	case domain.PromptModeMessages, "":
		return domain.Prompt{
			Mode:     domain.PromptModeMessages,
			Messages: roleTagged(system, history, userText),
		}, nil
	default:
		return domain.Prompt{}, domain.NewError(domain.KindInternal, nil, "unknown prompt mode %q", mode)
	}
}

func roleTagged(system string, history []domain.Message, userText string) []domain.PromptMessage {
	out := make([]domain.PromptMessage, 0, len(history)+2)
	out = append(out, domain.PromptMessage{Role: domain.RoleSystem, Content: system})
	for _, m := range history {
		out = append(out, domain.PromptMessage{Role: m.Role, Content: m.Content})
	}
	out = append(out, domain.PromptMessage{Role: domain.RoleUser, Content: userText})
	return out
}

func flatten(system string, history []domain.Message, userText string) string {
	var sb strings.Builder
	writeLine := func(role domain.Role, content string) {
		sb.WriteString(role.Label())
		sb.WriteString(": ")
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	writeLine(domain.RoleSystem, system)
	for _, m := range history {
		writeLine(m.Role, m.Content)
	}
	writeLine(domain.RoleUser, userText)
	sb.WriteString(completionCue)

	return sb.String()
}

// SystemOf returns the system instruction carried by a role-tagged prompt
// and the remaining conversation messages.
func SystemOf(p domain.Prompt) (string, []domain.PromptMessage) {
	var (
		system []string
		rest   = make([]domain.PromptMessage, 0, len(p.Messages))
	)
	for _, m := range p.Messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n"), rest
}

// LastUserText returns the content of the final user message in p.
func LastUserText(p domain.Prompt) string {
	if p.Mode == domain.PromptModeFlattened {
		lines := strings.Split(p.Text, "\n")
		prefix := domain.RoleUser.Label() + ": "
		for i := len(lines) - 1; i >= 0; i-- {
			if strings.HasPrefix(lines[i], prefix) {
				return strings.TrimPrefix(lines[i], prefix)
			}
		}
		return ""
	}
	for i := len(p.Messages) - 1; i >= 0; i-- {
		if p.Messages[i].Role == domain.RoleUser {
			return p.Messages[i].Content
		}
	}
	return ""
}
