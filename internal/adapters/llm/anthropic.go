package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

type AnthropicOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
	HTTPClient  *http.Client
}

// AnthropicClient sends role-tagged prompts to the Messages API.
// The SDK's built-in retries are disabled: a gateway makes exactly one call.
type AnthropicClient struct {
	client anthropic.Client
	opts   AnthropicOptions
}

func NewAnthropicClient(opts AnthropicOptions) *AnthropicClient {
	if opts.Model == "" {
		opts.Model = string(DefaultAnthropicModel)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(reqOpts...),
		opts:   opts,
	}
}

func (a *AnthropicClient) Name() string            { return "anthropic" }
func (a *AnthropicClient) Mode() domain.PromptMode { return domain.PromptModeMessages }

func (a *AnthropicClient) Invoke(ctx context.Context, prompt domain.Prompt) (string, error) {
	system, conv := SystemOf(prompt)

	msgs := make([]anthropic.MessageParam, 0, len(conv))
	for _, m := range conv {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == domain.RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.opts.Model),
		MaxTokens: a.opts.MaxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if a.opts.Temperature > 0 {
		params.Temperature = anthropic.Float(a.opts.Temperature)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", Classify(ctx, a.Name(), err)
	}

	var parts []string
	for _, b := range msg.Content {
		if tb, ok := b.AsAny().(anthropic.TextBlock); ok && tb.Text != "" {
			parts = append(parts, tb.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", malformed(a.Name(), "text content")
	}
	return text, nil
}
