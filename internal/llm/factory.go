package llm

import (
	"fmt"
)

// Endpoints overrides provider base URLs. Empty fields use each provider's
// public endpoint.
type Endpoints struct {
	OpenAI     string
	OpenRouter string
}

// Factory builds a Provider for a bot's provider type, key and model.
type Factory func(providerType, apiKey, model string) (Provider, error)

// NewFactory returns a Factory bound to the given endpoints.
func NewFactory(ep Endpoints) Factory {
	return func(providerType, apiKey, model string) (Provider, error) {
		return NewProvider(providerType, apiKey, model, ep)
	}
}

// NewProvider creates a provider of the given type authenticated with apiKey.
// Supported provider types: "openai" (also the default) and "openrouter".
func NewProvider(providerType, apiKey, model string, ep Endpoints) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for provider %q", providerType)
	}

	switch providerType {
	case "", "openai":
		return NewOpenAIProvider(apiKey, model, ep.OpenAI), nil
	case "openrouter":
		return NewOpenRouterProvider(apiKey, model, ep.OpenRouter), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
