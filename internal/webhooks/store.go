package webhooks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/kbchat/internal/db"
)

// DeliveryFilter controls which delivery logs ListDeliveries returns.
type DeliveryFilter struct {
	BotID     string
	WebhookID string
	Event     Event
	Limit     int
	Offset    int
}

// Store provides persistence for webhooks and their delivery logs.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a webhook, assigning an ID and creation time when unset.
func (s *Store) Create(ctx context.Context, w *Webhook) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}

	events := w.Events
	if events == nil {
		events = []Event{}
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshalling events: %w", err)
	}
	headers := w.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return fmt.Errorf("marshalling headers: %w", err)
	}

	var secret sql.NullString
	if w.Secret != "" {
		secret = sql.NullString{String: w.Secret, Valid: true}
	}
	active := 0
	if w.Active {
		active = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO webhooks (id, bot_id, url, events, active, secret, headers, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.BotID, w.URL, string(eventsJSON), active, secret, string(headersJSON),
		db.FormatTime(w.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting webhook: %w", err)
	}
	return nil
}

// List returns every webhook for a bot, oldest first.
func (s *Store) List(ctx context.Context, botID string) ([]Webhook, error) {
	return s.query(ctx, `
		SELECT id, bot_id, url, events, active, secret, headers, created_at
		FROM webhooks WHERE bot_id = ? ORDER BY created_at`, botID)
}

// ListActive returns the bot's active webhooks subscribed to event.
func (s *Store) ListActive(ctx context.Context, botID string, event Event) ([]Webhook, error) {
	all, err := s.query(ctx, `
		SELECT id, bot_id, url, events, active, secret, headers, created_at
		FROM webhooks WHERE bot_id = ? AND active = 1 ORDER BY created_at`, botID)
	if err != nil {
		return nil, err
	}
	var out []Webhook
	for _, w := range all {
		if w.Subscribed(event) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Webhook, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying webhooks: %w", err)
	}
	defer rows.Close()

	var out []Webhook
	for rows.Next() {
		var (
			w                       Webhook
			eventsJSON, headersJSON string
			active                  int
			secret                  sql.NullString
			ts                      string
		)
		if err := rows.Scan(&w.ID, &w.BotID, &w.URL, &eventsJSON, &active, &secret, &headersJSON, &ts); err != nil {
			return nil, fmt.Errorf("scanning webhook: %w", err)
		}
		w.Active = active != 0
		w.Secret = secret.String
		w.HasSecret = w.Secret != ""
		w.CreatedAt = db.ParseTime(ts)
		if err := json.Unmarshal([]byte(eventsJSON), &w.Events); err != nil {
			w.Events = nil
		}
		if err := json.Unmarshal([]byte(headersJSON), &w.Headers); err != nil {
			w.Headers = nil
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// LogDelivery inserts a delivery log row.
func (s *Store) LogDelivery(ctx context.Context, l DeliveryLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	var status sql.NullInt64
	if l.StatusCode != nil {
		status = sql.NullInt64{Int64: int64(*l.StatusCode), Valid: true}
	}
	success := 0
	if l.Success {
		success = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_delivery_logs (id, webhook_id, bot_id, event_type, payload,
			status_code, response_body, error_message, success, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.WebhookID, l.BotID, string(l.EventType), l.Payload,
		status, nullString(l.ResponseBody), nullString(l.ErrorMessage),
		success, l.DurationMS, db.FormatTime(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting delivery log: %w", err)
	}
	return nil
}

// ListDeliveries returns delivery logs matching the filter, newest first.
func (s *Store) ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]DeliveryLog, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.BotID != "" {
		clauses = append(clauses, "bot_id = ?")
		args = append(args, filter.BotID)
	}
	if filter.WebhookID != "" {
		clauses = append(clauses, "webhook_id = ?")
		args = append(args, filter.WebhookID)
	}
	if filter.Event != "" {
		clauses = append(clauses, "event_type = ?")
		args = append(args, string(filter.Event))
	}

	query := `SELECT id, webhook_id, bot_id, event_type, payload, status_code,
		response_body, error_message, success, duration_ms, created_at
		FROM webhook_delivery_logs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying delivery logs: %w", err)
	}
	defer rows.Close()

	var out []DeliveryLog
	for rows.Next() {
		var (
			l            DeliveryLog
			event, ts    string
			status       sql.NullInt64
			body, errMsg sql.NullString
			success      int
		)
		if err := rows.Scan(&l.ID, &l.WebhookID, &l.BotID, &event, &l.Payload, &status,
			&body, &errMsg, &success, &l.DurationMS, &ts); err != nil {
			return nil, fmt.Errorf("scanning delivery log: %w", err)
		}
		l.EventType = Event(event)
		if status.Valid {
			code := int(status.Int64)
			l.StatusCode = &code
		}
		l.ResponseBody = body.String
		l.ErrorMessage = errMsg.String
		l.Success = success != 0
		l.CreatedAt = db.ParseTime(ts)
		out = append(out, l)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
