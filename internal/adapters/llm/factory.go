package llm

import (
	"context"

	"github.com/pkg/errors"

	"github.com/PabloGalante/farum-chat/internal/config"
	"github.com/PabloGalante/farum-chat/internal/domain"
)

// NewGateway builds the provider gateway selected by cfg.Provider.
func NewGateway(ctx context.Context, cfg config.Config) (domain.ProviderGateway, error) {
	switch cfg.Provider {
	case config.ProviderMock, "":
		return NewMockLLM(domain.PromptModeMessages), nil

	case config.ProviderOpenAI:
		return NewOpenAIChat(openAIOptions(cfg)), nil

	case config.ProviderOpenAICompletion:
		return NewOpenAICompletion(openAIOptions(cfg)), nil

	case config.ProviderAnthropic:
		return NewAnthropicClient(AnthropicOptions{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   int64(cfg.MaxTokens),
		}), nil

	case config.ProviderVertex:
		v, err := NewVertexClient(ctx, VertexOptions{
			Project:     cfg.GCPProjectID,
			Location:    cfg.GCPLocation,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   int32(cfg.MaxTokens),
		})
		if err != nil {
			return nil, err
		}
		return v, nil

	default:
		return nil, errors.Errorf("unknown provider %q", cfg.Provider)
	}
}

func openAIOptions(cfg config.Config) OpenAIOptions {
	return OpenAIOptions{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.Model,
		Temperature: float32(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
	}
}
