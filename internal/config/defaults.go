package config

// DefaultAdminOrigins are the origins allowed to call the admin API when none
// are configured.
var DefaultAdminOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenPort:             8080,
		DataDir:                "data",
		EmbeddingModel:         "text-embedding-3-small",
		OpenRouterBaseURL:      "https://openrouter.ai/api/v1",
		WebhookTimeoutSeconds:  10,
		MaxHistoryMessages:     20,
		AdminOrigins:           append([]string(nil), DefaultAdminOrigins...),
		LogLevel:               "info",
		LogFormat:              "json",
		ShutdownTimeoutSeconds: 15,
		RequestTimeoutSeconds:  60,
	}
}
