package chatlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/kbchat/internal/db"
)

// Store provides persistence for chat turns.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a turn. If t.ID is empty a UUID is generated.
func (s *Store) Log(ctx context.Context, t Turn) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	var lead sql.NullString
	if t.LeadID != "" {
		lead = sql.NullString{String: t.LeadID, Valid: true}
	}
	fallback := 0
	if t.IsFallback {
		fallback = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_logs (
			id, bot_id, session_id, lead_id, user_message, bot_response, state,
			chunks_retrieved, top_similarity, is_fallback, response_time_ms,
			model, input_tokens, output_tokens, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.BotID,
		t.SessionID,
		lead,
		t.UserMessage,
		t.BotResponse,
		string(t.State),
		t.ChunksRetrieved,
		t.TopSimilarity,
		fallback,
		t.ResponseTimeMS,
		t.Model,
		t.InputTokens,
		t.OutputTokens,
		db.FormatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting chat log: %w", err)
	}
	return nil
}

// ListFilter controls which turns are returned by List.
type ListFilter struct {
	BotID     string
	SessionID string
	State     State
	Since     *time.Time
	Limit     int
	Offset    int
}

// List returns turns matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Turn, error) {
	clauses, args := filter.where()

	query := `SELECT id, bot_id, session_id, lead_id, user_message, bot_response, state,
		chunks_retrieved, top_similarity, is_fallback, response_time_ms,
		model, input_tokens, output_tokens, created_at FROM chat_logs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chat logs: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t         Turn
			lead      sql.NullString
			state, ts string
			fallback  int
		)
		err := rows.Scan(&t.ID, &t.BotID, &t.SessionID, &lead, &t.UserMessage, &t.BotResponse, &state,
			&t.ChunksRetrieved, &t.TopSimilarity, &fallback, &t.ResponseTimeMS,
			&t.Model, &t.InputTokens, &t.OutputTokens, &ts)
		if err != nil {
			return nil, fmt.Errorf("scanning chat log: %w", err)
		}
		t.LeadID = lead.String
		t.State = State(state)
		t.IsFallback = fallback != 0
		t.CreatedAt = db.ParseTime(ts)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (f ListFilter) where() ([]string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.BotID != "" {
		clauses = append(clauses, "bot_id = ?")
		args = append(args, f.BotID)
	}
	if f.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, string(f.State))
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, db.FormatTime(*f.Since))
	}
	return clauses, args
}

// Stats aggregates a bot's turns.
type Stats struct {
	BotID            string  `json:"bot_id"`
	TotalTurns       int     `json:"total_turns"`
	Sessions         int     `json:"sessions"`
	GreetingCount    int     `json:"greeting_count"`
	FallbackCount    int     `json:"fallback_count"`
	GroundedCount    int     `json:"grounded_count"`
	FallbackRate     float64 `json:"fallback_rate"`
	AvgTopSimilarity float64 `json:"avg_top_similarity"`
	AvgResponseMS    float64 `json:"avg_response_time_ms"`
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
}

// Stats summarises turns for botID, optionally only those since a time.
func (s *Store) Stats(ctx context.Context, botID string, since *time.Time) (*Stats, error) {
	if botID == "" {
		return nil, fmt.Errorf("bot id is required")
	}
	clauses, args := ListFilter{BotID: botID, Since: since}.where()

	// Similarity is averaged over turns that ran retrieval.
	query := `SELECT
		COUNT(*),
		COUNT(DISTINCT session_id),
		COALESCE(SUM(CASE WHEN state = 'greeting' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN state = 'fallback' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN state = 'grounded' THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(CASE WHEN state != 'greeting' THEN top_similarity END), 0.0),
		COALESCE(AVG(response_time_ms), 0.0),
		COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0)
		FROM chat_logs WHERE ` + strings.Join(clauses, " AND ")

	st := Stats{BotID: botID}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&st.TotalTurns, &st.Sessions,
		&st.GreetingCount, &st.FallbackCount, &st.GroundedCount,
		&st.AvgTopSimilarity, &st.AvgResponseMS,
		&st.InputTokens, &st.OutputTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregating chat logs: %w", err)
	}
	if st.TotalTurns > 0 {
		st.FallbackRate = float64(st.FallbackCount) / float64(st.TotalTurns)
	}
	return &st, nil
}
