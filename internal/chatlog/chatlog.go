// Package chatlog records every answered chat turn and summarises them for
// tenant analytics.
package chatlog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/kbchat/internal/tasks"
)

// State mirrors the terminal state of a turn.
type State string

const (
	StateGreeting State = "greeting"
	StateFallback State = "fallback"
	StateGrounded State = "grounded"
)

// Turn is one persisted chat exchange.
type Turn struct {
	ID              string    `json:"id"`
	BotID           string    `json:"bot_id"`
	SessionID       string    `json:"session_id"`
	LeadID          string    `json:"lead_id,omitempty"`
	UserMessage     string    `json:"user_message"`
	BotResponse     string    `json:"bot_response"`
	State           State     `json:"state"`
	ChunksRetrieved int       `json:"chunks_retrieved"`
	TopSimilarity   float64   `json:"top_similarity"`
	IsFallback      bool      `json:"is_fallback"`
	ResponseTimeMS  int64     `json:"response_time_ms"`
	Model           string    `json:"model,omitempty"`
	InputTokens     int       `json:"input_tokens"`
	OutputTokens    int       `json:"output_tokens"`
	CreatedAt       time.Time `json:"created_at"`
}

// Logger writes turns off the request path.
type Logger struct {
	store  *Store
	runner *tasks.Runner
	log    *zap.Logger
}

// NewLogger creates a Logger that persists through store using runner.
func NewLogger(store *Store, runner *tasks.Runner, log *zap.Logger) *Logger {
	return &Logger{store: store, runner: runner, log: log}
}

// Record queues t for persistence and returns immediately. Failures are
// reported by the runner and never reach the caller.
func (l *Logger) Record(t Turn) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	l.runner.Go("chatlog.record", func(ctx context.Context) error {
		return l.store.Log(ctx, t)
	})
}
