package calendar

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/kbchat/internal/db"
)

// ErrNotFound is returned when a bot has no calendar settings.
var ErrNotFound = errors.New("calendar settings not found")

// Store persists calendar settings and appointment interest.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// UpsertSettings creates or replaces the settings for s.BotID.
func (s *Store) UpsertSettings(ctx context.Context, set Settings) error {
	if set.BotID == "" {
		return fmt.Errorf("bot id is required")
	}
	kws := set.TriggerKeywords
	if kws == nil {
		kws = []string{}
	}
	kwJSON, err := json.Marshal(kws)
	if err != nil {
		return fmt.Errorf("marshalling trigger keywords: %w", err)
	}

	enabled := 0
	if set.Enabled {
		enabled = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calendar_settings (bot_id, enabled, booking_link, instruction, trigger_keywords, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(bot_id) DO UPDATE SET
			enabled = excluded.enabled,
			booking_link = excluded.booking_link,
			instruction = excluded.instruction,
			trigger_keywords = excluded.trigger_keywords,
			updated_at = excluded.updated_at`,
		set.BotID, enabled, set.BookingLink, set.Instruction, string(kwJSON),
		db.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upserting calendar settings: %w", err)
	}
	return nil
}

// GetSettings returns the settings for a bot, or ErrNotFound.
func (s *Store) GetSettings(ctx context.Context, botID string) (*Settings, error) {
	var (
		set       Settings
		enabled   int
		kwJSON    string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT bot_id, enabled, booking_link, instruction, trigger_keywords, updated_at
		FROM calendar_settings WHERE bot_id = ?`, botID).
		Scan(&set.BotID, &enabled, &set.BookingLink, &set.Instruction, &kwJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying calendar settings: %w", err)
	}
	set.Enabled = enabled != 0
	set.UpdatedAt = db.ParseTime(updatedAt)
	if err := json.Unmarshal([]byte(kwJSON), &set.TriggerKeywords); err != nil {
		set.TriggerKeywords = nil
	}
	return &set, nil
}

// RecordInterest inserts an appointment-interest row. An empty ID is
// replaced with a UUID.
func (s *Store) RecordInterest(ctx context.Context, in Interest) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	var lead sql.NullString
	if in.LeadID != "" {
		lead = sql.NullString{String: in.LeadID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointment_interests (id, bot_id, session_id, lead_id, triggered_keyword, user_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.BotID, in.SessionID, lead, in.TriggeredKeyword, in.UserMessage,
		db.FormatTime(in.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting appointment interest: %w", err)
	}
	return nil
}

// ListInterests returns a bot's appointment interest, newest first. A
// non-positive limit returns everything.
func (s *Store) ListInterests(ctx context.Context, botID string, limit int) ([]Interest, error) {
	query := `
		SELECT id, bot_id, session_id, lead_id, triggered_keyword, user_message, created_at
		FROM appointment_interests WHERE bot_id = ?
		ORDER BY created_at DESC`
	args := []any{botID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying appointment interests: %w", err)
	}
	defer rows.Close()

	var out []Interest
	for rows.Next() {
		var (
			in   Interest
			lead sql.NullString
			ts   string
		)
		if err := rows.Scan(&in.ID, &in.BotID, &in.SessionID, &lead, &in.TriggeredKeyword, &in.UserMessage, &ts); err != nil {
			return nil, fmt.Errorf("scanning appointment interest: %w", err)
		}
		in.LeadID = lead.String
		in.CreatedAt = db.ParseTime(ts)
		out = append(out, in)
	}
	return out, rows.Err()
}
