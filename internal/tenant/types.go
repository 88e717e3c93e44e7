package tenant

import (
	"errors"
	"time"
)

// Defaults applied to any bot setting left unset.
const (
	DefaultModel               = "gpt-4o-mini"
	DefaultProvider            = "openai"
	DefaultTemperature         = 0.3
	DefaultMaxTokens           = 1024
	DefaultSimilarityThreshold = 0.30
	DefaultRetrievalCount      = 5
	DefaultUserMessageTemplate = "Context:\n{context}\n\nUser Question:\n{question}"
	DefaultFallbackMessage     = "I'm sorry, I don't have enough information to answer that. Please contact us directly and we'll be happy to help."
)

var (
	// ErrBotNotFound is returned when no bot exists for an id.
	ErrBotNotFound = errors.New("bot not found")
	// ErrNoCredential is returned when a bot has no stored credential.
	ErrNoCredential = errors.New("no credential stored")
	// ErrNoAPIKey is returned when neither a per-bot nor a global key is usable.
	ErrNoAPIKey = errors.New("no API key configured")
)

// BotConfig is one tenant's chat configuration. Values read through Store
// always have defaults applied.
type BotConfig struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Provider            string    `json:"provider"`
	Model               string    `json:"model"`
	Temperature         float64   `json:"temperature"`
	MaxTokens           int       `json:"max_tokens"`
	SystemPrompt        string    `json:"system_prompt"`
	UserMessageTemplate string    `json:"user_message_template"`
	FallbackMessage     string    `json:"fallback_message"`
	AllowedOrigins      []string  `json:"allowed_origins"`
	IsPublic            bool      `json:"is_public"`
	SimilarityThreshold float64   `json:"similarity_threshold"`
	RetrievalCount      int       `json:"retrieval_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewBotConfig returns a bot with every setting at its default.
func NewBotConfig(id string) BotConfig {
	return BotConfig{
		ID:                  id,
		Provider:            DefaultProvider,
		Model:               DefaultModel,
		Temperature:         DefaultTemperature,
		MaxTokens:           DefaultMaxTokens,
		UserMessageTemplate: DefaultUserMessageTemplate,
		FallbackMessage:     DefaultFallbackMessage,
		SimilarityThreshold: DefaultSimilarityThreshold,
		RetrievalCount:      DefaultRetrievalCount,
	}
}
