package llm

import (
	"context"
	"fmt"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// MockLLM is an offline gateway for local development. It echoes the last
// user message and never fails.
type MockLLM struct {
	mode domain.PromptMode
}

func NewMockLLM(mode domain.PromptMode) *MockLLM {
	if mode == "" {
		mode = domain.PromptModeMessages
	}
	return &MockLLM{mode: mode}
}

func (m *MockLLM) Name() string            { return "mock" }
func (m *MockLLM) Mode() domain.PromptMode { return m.mode }

func (m *MockLLM) Invoke(ctx context.Context, prompt domain.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Classify(ctx, m.Name(), err)
	}
	return fmt.Sprintf("I hear you. You said %q. Tell me a bit more about that.", LastUserText(prompt)), nil
}
