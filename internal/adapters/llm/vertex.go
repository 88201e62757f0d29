package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

type VertexOptions struct {
	Project     string
	Location    string
	Model       string
	Temperature float32
	MaxTokens   int32
}

type VertexClient struct {
	client *genai.Client
	opts   VertexOptions
}

// NewVertexClient creates a gateway based on Vertex AI (Gemini).
func NewVertexClient(ctx context.Context, opts VertexOptions) (*VertexClient, error) {
	if opts.Project == "" || opts.Location == "" {
		return nil, errors.New("vertex: project and location must be set")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8192
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  opts.Project,
		Location: opts.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating Vertex AI client")
	}

	return &VertexClient{
		client: client,
		opts:   opts,
	}, nil
}

func (v *VertexClient) Name() string            { return "vertex" }
func (v *VertexClient) Mode() domain.PromptMode { return domain.PromptModeMessages }

// Invoke implements domain.ProviderGateway using Vertex AI.
func (v *VertexClient) Invoke(ctx context.Context, prompt domain.Prompt) (string, error) {
	system, conv := SystemOf(prompt)

	var contents []*genai.Content
	for _, m := range conv {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	temp := v.opts.Temperature
	cfg := &genai.GenerateContentConfig{
		// According to official examples, the role here is usually RoleUser, not "system"
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   v.opts.MaxTokens,
	}

	res, err := v.client.Models.GenerateContent(ctx, v.opts.Model, contents, cfg)
	if err != nil {
		return "", Classify(ctx, v.Name(), err)
	}

	// Only the text, never the structs
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", malformed(v.Name(), "candidate text")
	}
	return text, nil
}
