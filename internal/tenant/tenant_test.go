package tenant

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ziadkadry99/kbchat/internal/db"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := Encrypt("sk-test-123", "secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if enc == "sk-test-123" {
		t.Fatal("ciphertext equals plaintext")
	}

	got, err := Decrypt(enc, "secret")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "sk-test-123" {
		t.Errorf("Decrypt = %q, want %q", got, "sk-test-123")
	}
}

func TestDecryptKnownVector(t *testing.T) {
	// "ab" XOR "k" = 0x0a 0x09, base64 "Cgk=".
	got, err := Decrypt("Cgk=", "k")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "ab" {
		t.Errorf("Decrypt = %q, want %q", got, "ab")
	}
}

func TestDecryptErrors(t *testing.T) {
	if _, err := Decrypt("!!not base64!!", "k"); err == nil {
		t.Error("expected error for malformed base64")
	}
	if _, err := Decrypt("Cgk=", ""); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestStoreGetAppliesDefaults(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, BotConfig{ID: "b1", Name: "Support"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := store.Get(ctx, "b1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", got.Model, DefaultModel)
	}
	if got.MaxTokens != DefaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", got.MaxTokens, DefaultMaxTokens)
	}
	if got.RetrievalCount != DefaultRetrievalCount {
		t.Errorf("RetrievalCount = %d, want %d", got.RetrievalCount, DefaultRetrievalCount)
	}
	if got.UserMessageTemplate != DefaultUserMessageTemplate {
		t.Errorf("UserMessageTemplate = %q", got.UserMessageTemplate)
	}
	if got.FallbackMessage != DefaultFallbackMessage {
		t.Errorf("FallbackMessage = %q", got.FallbackMessage)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	b := NewBotConfig("b2")
	b.Name = "Sales"
	b.Model = "gpt-4o"
	b.Temperature = 0
	b.SimilarityThreshold = 0.5
	b.RetrievalCount = 3
	b.AllowedOrigins = []string{"example.com", "shop.test"}
	b.IsPublic = true
	b.FallbackMessage = "Ask a human."

	if err := store.Upsert(ctx, b); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := store.Get(ctx, "b2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Model != "gpt-4o" || got.Temperature != 0 || got.SimilarityThreshold != 0.5 || got.RetrievalCount != 3 {
		t.Errorf("unexpected settings: %+v", got)
	}
	if len(got.AllowedOrigins) != 2 || got.AllowedOrigins[1] != "shop.test" {
		t.Errorf("AllowedOrigins = %v", got.AllowedOrigins)
	}
	if !got.IsPublic {
		t.Error("expected IsPublic")
	}
	if got.FallbackMessage != "Ask a human." {
		t.Errorf("FallbackMessage = %q", got.FallbackMessage)
	}

	// Update in place.
	b.Name = "Sales EU"
	if err := store.Upsert(ctx, b); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	got, _ = store.Get(ctx, "b2")
	if got.Name != "Sales EU" {
		t.Errorf("Name = %q after update", got.Name)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrBotNotFound) {
		t.Fatalf("Get error = %v, want ErrBotNotFound", err)
	}
}

func TestResolverAPIKey(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"with-key", "bad-key", "no-key"} {
		if err := store.Upsert(ctx, NewBotConfig(id)); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	enc, _ := Encrypt("sk-bot", "enc-secret")
	if err := store.SetCredential(ctx, "with-key", enc); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := store.SetCredential(ctx, "bad-key", "%%%"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	tests := []struct {
		name       string
		botID      string
		defaultKey string
		want       string
		wantErr    error
	}{
		{"per-bot key wins", "with-key", "sk-global", "sk-bot", nil},
		{"decrypt failure falls back", "bad-key", "sk-global", "sk-global", nil},
		{"missing credential falls back", "no-key", "sk-global", "sk-global", nil},
		{"nothing usable", "no-key", "", "", ErrNoAPIKey},
		{"bad credential and no default", "bad-key", "", "", ErrNoAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(store, "enc-secret", tt.defaultKey, zap.NewNop())
			got, err := r.APIKey(ctx, tt.botID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("APIKey error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("APIKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolverBot(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	if err := store.Upsert(ctx, NewBotConfig("b1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	r := NewResolver(store, "", "", zap.NewNop())
	if _, err := r.Bot(ctx, "b1"); err != nil {
		t.Fatalf("Bot: %v", err)
	}
	if _, err := r.Bot(ctx, "nope"); !errors.Is(err, ErrBotNotFound) {
		t.Fatalf("Bot error = %v, want ErrBotNotFound", err)
	}
}
