package llm

import (
	"context"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// OpenAIOptions configures both OpenAI gateways.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

func newOpenAIClient(opts OpenAIOptions) *openai.Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return openai.NewClientWithConfig(cfg)
}

// OpenAIChat sends role-tagged prompts to the chat completions API.
type OpenAIChat struct {
	client *openai.Client
	opts   OpenAIOptions
}

func NewOpenAIChat(opts OpenAIOptions) *OpenAIChat {
	if opts.Model == "" {
		opts.Model = openai.GPT3Dot5Turbo
	}
	return &OpenAIChat{client: newOpenAIClient(opts), opts: opts}
}

func (g *OpenAIChat) Name() string            { return "openai" }
func (g *OpenAIChat) Mode() domain.PromptMode { return domain.PromptModeMessages }

func (g *OpenAIChat) Invoke(ctx context.Context, prompt domain.Prompt) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.opts.Model,
		Messages:    msgs,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return "", Classify(ctx, g.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return "", malformed(g.Name(), "choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", malformed(g.Name(), "message content")
	}
	return text, nil
}

func openAIRole(r domain.Role) string {
	switch r {
	case domain.RoleSystem:
		return openai.ChatMessageRoleSystem
	case domain.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// OpenAICompletion sends flattened text prompts to the legacy completions
// API, for instruct-style models that take a single prompt string.
type OpenAICompletion struct {
	client *openai.Client
	opts   OpenAIOptions
}

func NewOpenAICompletion(opts OpenAIOptions) *OpenAICompletion {
	if opts.Model == "" {
		opts.Model = openai.GPT3Dot5TurboInstruct
	}
	return &OpenAICompletion{client: newOpenAIClient(opts), opts: opts}
}

func (g *OpenAICompletion) Name() string            { return "openai-completion" }
func (g *OpenAICompletion) Mode() domain.PromptMode { return domain.PromptModeFlattened }

func (g *OpenAICompletion) Invoke(ctx context.Context, prompt domain.Prompt) (string, error) {
	resp, err := g.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       g.opts.Model,
		Prompt:      prompt.Text,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
		Stop:        []string{"\n" + domain.RoleUser.Label() + ":"},
	})
	if err != nil {
		return "", Classify(ctx, g.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return "", malformed(g.Name(), "choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Text)
	if text == "" {
		return "", malformed(g.Name(), "completion text")
	}
	return text, nil
}
