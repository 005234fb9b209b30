package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOllamaModel = "llama3.1"
	defaultOllamaURL   = "http://localhost:11434/v1"
)

type ProviderConfig struct {
	Provider  string
	APIKey    string
	AuthToken string // Anthropic OAuth token (Bearer auth)
	Model     string
	BaseURL   string
	Timeout   time.Duration
}

// NewCompleters builds the ordered completers for a provider. A provider
// without credentials yields none.
func NewCompleters(ctx context.Context, cfg ProviderConfig) ([]Completer, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, nil
		}
		model := orDefault(cfg.Model, defaultOpenAIModel)
		// The Responses API is preferred; Chat Completions covers accounts
		// and proxies that do not serve it.
		return []Completer{
			NewOpenAIResponses(cfg.APIKey, model, cfg.BaseURL),
			NewOpenAIChat(cfg.APIKey, model, cfg.BaseURL),
		}, nil
	case ProviderOllama:
		chat := NewOpenAIChat("ollama", orDefault(cfg.Model, defaultOllamaModel), orDefault(cfg.BaseURL, defaultOllamaURL))
		chat.name = "ollama"
		return []Completer{chat}, nil
	case ProviderAnthropic:
		if cfg.APIKey == "" && cfg.AuthToken == "" {
			return nil, nil
		}
		return []Completer{NewAnthropicClient(cfg.APIKey, cfg.AuthToken, cfg.Model, cfg.BaseURL)}, nil
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, nil
		}
		g, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return []Completer{g}, nil
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// NewGenerator wires the provider's completers into a Generator.
func NewGenerator(ctx context.Context, cfg ProviderConfig, log *zap.Logger) (*Generator, error) {
	completers, err := NewCompleters(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("llm").With(zap.String("provider", cfg.Provider))
	if len(completers) == 0 {
		log.Info("text generation disabled, using fallback messages")
	}
	return NewGeneratorFrom(completers, cfg.Timeout, log), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
