package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Provider string

const (
	ProviderMock             Provider = "mock"
	ProviderOpenAI           Provider = "openai"
	ProviderOpenAICompletion Provider = "openai-completion"
	ProviderAnthropic        Provider = "anthropic"
	ProviderVertex           Provider = "vertex"
)

type JournalBackend string

const (
	JournalNone      JournalBackend = "none"
	JournalMemory    JournalBackend = "memory"
	JournalSQLite    JournalBackend = "sqlite"
	JournalBolt      JournalBackend = "bolt"
	JournalFirestore JournalBackend = "firestore"
)

type Config struct {
	Port string `yaml:"port"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "console" or "json"

	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`

	SystemPrompt     string `yaml:"system_prompt"`
	DefaultSessionID string `yaml:"default_session_id"`

	Provider        Provider      `yaml:"provider"`
	Model           string        `yaml:"model"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`

	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GCPProjectID    string `yaml:"gcp_project"`
	GCPLocation     string `yaml:"gcp_location"`

	JournalBackend JournalBackend `yaml:"journal_backend"`
	JournalPath    string         `yaml:"journal_path"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:               "8000",
		LogLevel:           "info",
		LogFormat:          "json",
		ServiceName:        "Chatbot API",
		ServiceVersion:     "1.0",
		SystemPrompt:       "You are a helpful and friendly AI assistant.",
		DefaultSessionID:   "default",
		Provider:           ProviderMock,
		Temperature:        0.7,
		MaxTokens:          1024,
		ProviderTimeout:    30 * time.Second,
		GCPLocation:        "us-central1",
		JournalBackend:     JournalMemory,
		JournalPath:        "data/journal.db",
		CORSAllowedOrigins: []string{"*"},
	}
}

// Load is Read followed by Validate.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read builds the config from defaults, then the optional YAML file at
// path, then FARUM_* environment variables. It does not validate, so
// callers can layer further overrides first.
func Read(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "reading config file %s", path)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parsing config file %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("FARUM_PORT", getEnv("PORT", c.Port))
	c.LogLevel = getEnv("FARUM_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("FARUM_LOG_FORMAT", c.LogFormat)
	c.ServiceName = getEnv("FARUM_SERVICE_NAME", c.ServiceName)
	c.ServiceVersion = getEnv("FARUM_SERVICE_VERSION", c.ServiceVersion)
	c.SystemPrompt = getEnv("FARUM_SYSTEM_PROMPT", c.SystemPrompt)
	c.DefaultSessionID = getEnv("FARUM_DEFAULT_SESSION_ID", c.DefaultSessionID)

	c.Provider = Provider(getEnv("FARUM_PROVIDER", string(c.Provider)))
	c.Model = getEnv("FARUM_MODEL_NAME", c.Model)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("FARUM_OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.GCPProjectID = getEnv("FARUM_GCP_PROJECT", c.GCPProjectID)
	c.GCPLocation = getEnv("FARUM_GCP_LOCATION", c.GCPLocation)

	c.JournalBackend = JournalBackend(getEnv("FARUM_JOURNAL_BACKEND", string(c.JournalBackend)))
	c.JournalPath = getEnv("FARUM_JOURNAL_PATH", c.JournalPath)

	if v := os.Getenv("FARUM_CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}

	var err error
	if c.Temperature, err = getFloatEnv("FARUM_TEMPERATURE", c.Temperature); err != nil {
		return err
	}
	if c.MaxTokens, err = getIntEnv("FARUM_MAX_TOKENS", c.MaxTokens); err != nil {
		return err
	}
	if c.ProviderTimeout, err = getDurationEnv("FARUM_PROVIDER_TIMEOUT", c.ProviderTimeout); err != nil {
		return err
	}
	return nil
}

// Validate checks enum values and the credentials each provider needs.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must be set")
	}
	if c.ProviderTimeout <= 0 {
		return errors.Errorf("provider_timeout must be positive, got %s", c.ProviderTimeout)
	}
	if strings.TrimSpace(c.DefaultSessionID) == "" {
		return errors.New("default_session_id must not be empty")
	}

	switch c.Provider {
	case ProviderMock:
	case ProviderOpenAI, ProviderOpenAICompletion:
		if c.OpenAIAPIKey == "" {
			return errors.Errorf("OPENAI_API_KEY is required when provider=%s", c.Provider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required when provider=anthropic")
		}
	case ProviderVertex:
		if c.GCPProjectID == "" {
			return errors.New("FARUM_GCP_PROJECT is required when provider=vertex")
		}
	default:
		return errors.Errorf("unknown provider %q", c.Provider)
	}

	switch c.JournalBackend {
	case JournalNone, JournalMemory:
	case JournalSQLite, JournalBolt:
		if c.JournalPath == "" {
			return errors.Errorf("journal_path is required when journal_backend=%s", c.JournalBackend)
		}
	case JournalFirestore:
		if c.GCPProjectID == "" {
			return errors.New("FARUM_GCP_PROJECT is required when journal_backend=firestore")
		}
	default:
		return errors.Errorf("unknown journal backend %q", c.JournalBackend)
	}

	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}

func getFloatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return f, nil
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
