package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/kbchat/internal/db"
)

// Store reads and writes bots and their credentials.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Upsert creates or replaces a bot. Non-positive max tokens and retrieval
// counts are stored as unset and read back as defaults.
func (s *Store) Upsert(ctx context.Context, b BotConfig) error {
	if b.ID == "" {
		return fmt.Errorf("bot id is required")
	}
	origins := b.AllowedOrigins
	if origins == nil {
		origins = []string{}
	}
	originsJSON, err := json.Marshal(origins)
	if err != nil {
		return fmt.Errorf("marshalling allowed origins: %w", err)
	}

	now := db.FormatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bots (id, name, provider, model, temperature, max_tokens, system_prompt,
			user_message_template, fallback_message, allowed_origins, is_public,
			similarity_threshold, retrieval_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			provider = excluded.provider,
			model = excluded.model,
			temperature = excluded.temperature,
			max_tokens = excluded.max_tokens,
			system_prompt = excluded.system_prompt,
			user_message_template = excluded.user_message_template,
			fallback_message = excluded.fallback_message,
			allowed_origins = excluded.allowed_origins,
			is_public = excluded.is_public,
			similarity_threshold = excluded.similarity_threshold,
			retrieval_count = excluded.retrieval_count,
			updated_at = excluded.updated_at`,
		b.ID, b.Name, b.Provider, b.Model,
		b.Temperature, positiveOrNull(b.MaxTokens),
		b.SystemPrompt, b.UserMessageTemplate, b.FallbackMessage,
		string(originsJSON), boolInt(b.IsPublic),
		b.SimilarityThreshold, positiveOrNull(b.RetrievalCount),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting bot: %w", err)
	}
	return nil
}

// Get returns the bot with the given id, or ErrBotNotFound.
func (s *Store) Get(ctx context.Context, id string) (*BotConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, provider, model, temperature, max_tokens, system_prompt,
			user_message_template, fallback_message, allowed_origins, is_public,
			similarity_threshold, retrieval_count, created_at, updated_at
		FROM bots WHERE id = ?`, id)

	var (
		b                    BotConfig
		temperature          sql.NullFloat64
		threshold            sql.NullFloat64
		maxTokens, retrieval sql.NullInt64
		originsJSON          string
		isPublic             int
		createdAt, updatedAt string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Provider, &b.Model, &temperature, &maxTokens,
		&b.SystemPrompt, &b.UserMessageTemplate, &b.FallbackMessage, &originsJSON, &isPublic,
		&threshold, &retrieval, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying bot %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(originsJSON), &b.AllowedOrigins); err != nil {
		b.AllowedOrigins = nil
	}
	b.IsPublic = isPublic != 0
	b.CreatedAt = db.ParseTime(createdAt)
	b.UpdatedAt = db.ParseTime(updatedAt)

	b.Temperature = DefaultTemperature
	if temperature.Valid {
		b.Temperature = temperature.Float64
	}
	b.MaxTokens = DefaultMaxTokens
	if maxTokens.Valid && maxTokens.Int64 > 0 {
		b.MaxTokens = int(maxTokens.Int64)
	}
	b.SimilarityThreshold = DefaultSimilarityThreshold
	if threshold.Valid {
		b.SimilarityThreshold = threshold.Float64
	}
	b.RetrievalCount = DefaultRetrievalCount
	if retrieval.Valid && retrieval.Int64 > 0 {
		b.RetrievalCount = int(retrieval.Int64)
	}
	if b.Provider == "" {
		b.Provider = DefaultProvider
	}
	if b.Model == "" {
		b.Model = DefaultModel
	}
	if b.UserMessageTemplate == "" {
		b.UserMessageTemplate = DefaultUserMessageTemplate
	}
	if b.FallbackMessage == "" {
		b.FallbackMessage = DefaultFallbackMessage
	}

	return &b, nil
}

// SetCredential stores the encrypted provider key for a bot.
func (s *Store) SetCredential(ctx context.Context, botID, encryptedKey string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_credentials (bot_id, encrypted_key, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(bot_id) DO UPDATE SET
			encrypted_key = excluded.encrypted_key,
			updated_at = excluded.updated_at`,
		botID, encryptedKey, db.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}
	return nil
}

// GetCredential returns the still-encrypted key for a bot, or ErrNoCredential.
func (s *Store) GetCredential(ctx context.Context, botID string) (string, error) {
	var enc string
	err := s.db.QueryRowContext(ctx,
		"SELECT encrypted_key FROM bot_credentials WHERE bot_id = ?", botID).Scan(&enc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("querying credential: %w", err)
	}
	return enc, nil
}

func positiveOrNull(v int) sql.NullInt64 {
	if v <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
