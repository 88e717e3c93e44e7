package config

import "path/filepath"

// ProviderType identifies a chat-completion provider a bot can be configured with.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
)

// Config is the top-level kbchat configuration, corresponding to kbchat.yml.
type Config struct {
	ListenPort             int      `yaml:"listen_port" koanf:"listen_port"`
	DataDir                string   `yaml:"data_dir" koanf:"data_dir"`
	OpenAIAPIKey           string   `yaml:"openai_api_key" koanf:"openai_api_key"`
	EncryptionKey          string   `yaml:"encryption_key" koanf:"encryption_key"`
	EmbeddingModel         string   `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingBaseURL       string   `yaml:"embedding_base_url" koanf:"embedding_base_url"`
	OpenRouterBaseURL      string   `yaml:"openrouter_base_url" koanf:"openrouter_base_url"`
	WebhookTimeoutSeconds  int      `yaml:"webhook_timeout_seconds" koanf:"webhook_timeout_seconds"`
	MaxHistoryMessages     int      `yaml:"max_history_messages" koanf:"max_history_messages"`
	AdminOrigins           []string `yaml:"admin_origins" koanf:"admin_origins"`
	AdminToken             string   `yaml:"admin_token" koanf:"admin_token"`
	LogLevel               string   `yaml:"log_level" koanf:"log_level"`
	LogFormat              string   `yaml:"log_format" koanf:"log_format"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds" koanf:"shutdown_timeout_seconds"`
	RequestTimeoutSeconds  int      `yaml:"request_timeout_seconds" koanf:"request_timeout_seconds"`
}

// DBPath returns the location of the SQLite database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "kbchat.db")
}

// VectorDir returns the directory holding the persisted knowledge collection.
func (c *Config) VectorDir() string {
	return filepath.Join(c.DataDir, "vectordb")
}
