package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-chat/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("FARUM_PORT", "")
	t.Setenv("FARUM_PROVIDER", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, config.ProviderMock, cfg.Provider)
	require.Equal(t, 30*time.Second, cfg.ProviderTimeout)
	require.Equal(t, "default", cfg.DefaultSessionID)
	require.Equal(t, "You are a helpful and friendly AI assistant.", cfg.SystemPrompt)
	require.Equal(t, ":8000", cfg.Addr())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
provider: openai
model: gpt-4o-mini
temperature: 0.2
provider_timeout: 5s
openai_api_key: from-file
cors_allowed_origins: ["http://ui.local"]
`), 0o600))

	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("FARUM_MAX_TOKENS", "256")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Addr())
	require.Equal(t, config.ProviderOpenAI, cfg.Provider)
	require.Equal(t, "gpt-4o-mini", cfg.Model)
	require.InDelta(t, 0.2, cfg.Temperature, 1e-9)
	require.Equal(t, 5*time.Second, cfg.ProviderTimeout)
	require.Equal(t, "from-env", cfg.OpenAIAPIKey)
	require.Equal(t, 256, cfg.MaxTokens)
	require.Equal(t, []string{"http://ui.local"}, cfg.CORSAllowedOrigins)
}

func TestLoad_InvalidEnvNumber(t *testing.T) {
	t.Setenv("FARUM_PROVIDER_TIMEOUT", "soon")
	_, err := config.Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown provider":   func(c *config.Config) { c.Provider = "llama" },
		"openai without key": func(c *config.Config) { c.Provider = config.ProviderOpenAI },
		"anthropic no key":   func(c *config.Config) { c.Provider = config.ProviderAnthropic },
		"vertex no project":  func(c *config.Config) { c.Provider = config.ProviderVertex },
		"zero timeout":       func(c *config.Config) { c.ProviderTimeout = 0 },
		"blank session":      func(c *config.Config) { c.DefaultSessionID = " " },
		"unknown journal":    func(c *config.Config) { c.JournalBackend = "s3" },
		"firestore journal":  func(c *config.Config) { c.JournalBackend = config.JournalFirestore },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	require.NoError(t, config.Default().Validate())
}
