package tenant

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// BotStore is the read side of Store the resolver depends on.
type BotStore interface {
	Get(ctx context.Context, id string) (*BotConfig, error)
	GetCredential(ctx context.Context, botID string) (string, error)
}

// Resolver loads bot configuration and picks the provider key for a turn.
type Resolver struct {
	store         BotStore
	encryptionKey string
	defaultKey    string
	log           *zap.Logger
}

// NewResolver creates a Resolver. encryptionKey decrypts per-bot credentials;
// defaultKey is the process-wide fallback credential.
func NewResolver(store BotStore, encryptionKey, defaultKey string, log *zap.Logger) *Resolver {
	return &Resolver{
		store:         store,
		encryptionKey: encryptionKey,
		defaultKey:    defaultKey,
		log:           log,
	}
}

// Bot returns the bot configuration or ErrBotNotFound.
func (r *Resolver) Bot(ctx context.Context, id string) (*BotConfig, error) {
	return r.store.Get(ctx, id)
}

// APIKey returns the bot's decrypted key if one is stored and decryptable,
// otherwise the global key. Lookup and decrypt failures fall back silently
// to the global key; ErrNoAPIKey is returned only when nothing is usable.
func (r *Resolver) APIKey(ctx context.Context, botID string) (string, error) {
	if key := r.botKey(ctx, botID); key != "" {
		return key, nil
	}
	if r.defaultKey != "" {
		return r.defaultKey, nil
	}
	return "", ErrNoAPIKey
}

func (r *Resolver) botKey(ctx context.Context, botID string) string {
	enc, err := r.store.GetCredential(ctx, botID)
	if errors.Is(err, ErrNoCredential) {
		return ""
	}
	if err != nil {
		r.log.Warn("loading bot credential", zap.String("bot_id", botID), zap.Error(err))
		return ""
	}

	key, err := Decrypt(enc, r.encryptionKey)
	if err != nil {
		r.log.Warn("bot credential not decryptable, using default key",
			zap.String("bot_id", botID), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(key)
}
