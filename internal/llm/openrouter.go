package llm

// DefaultOpenRouterBaseURL is OpenRouter's OpenAI-compatible endpoint.
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider creates a provider for the OpenRouter API, which
// speaks the OpenAI chat completions protocol.
func NewOpenRouterProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	p := NewOpenAIProvider(apiKey, model, baseURL)
	p.name = "openrouter"
	return p
}
