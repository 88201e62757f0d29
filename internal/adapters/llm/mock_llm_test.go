package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-chat/internal/adapters/llm"
	"github.com/PabloGalante/farum-chat/internal/config"
	"github.com/PabloGalante/farum-chat/internal/domain"
)

func TestMockLLM_EchoesLastUserMessage(t *testing.T) {
	for _, mode := range []domain.PromptMode{domain.PromptModeMessages, domain.PromptModeFlattened} {
		m := llm.NewMockLLM(mode)
		p, err := llm.BuildPrompt(m.Mode(), "sys", history("first", "reply"), "second")
		require.NoError(t, err)

		out, err := m.Invoke(context.Background(), p)
		require.NoError(t, err)
		require.Contains(t, out, `"second"`)
	}
}

func TestMockLLM_HonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := llm.NewMockLLM("").Invoke(ctx, domain.Prompt{})
	require.True(t, domain.IsKind(err, domain.KindTimeout))
}

func TestNewGateway(t *testing.T) {
	cfg := config.Default()

	g, err := llm.NewGateway(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "mock", g.Name())

	cfg.Provider = config.ProviderOpenAICompletion
	cfg.OpenAIAPIKey = "k"
	g, err = llm.NewGateway(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, domain.PromptModeFlattened, g.Mode())

	cfg.Provider = config.ProviderAnthropic
	g, err = llm.NewGateway(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "anthropic", g.Name())

	cfg.Provider = "nope"
	_, err = llm.NewGateway(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewVertexClient_RequiresProjectAndLocation(t *testing.T) {
	_, err := llm.NewVertexClient(context.Background(), llm.VertexOptions{Location: "us-central1"})
	require.EqualError(t, err, "vertex: project and location must be set")
}
