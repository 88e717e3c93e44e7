// Package webhooks delivers signed chat events to tenant-registered endpoints.
package webhooks

import "time"

// Event names a webhook trigger.
type Event string

const (
	EventChatStarted         Event = "chat.started"
	EventChatMessage         Event = "chat.message"
	EventAppointmentInterest Event = "appointment.interest"
)

// ValidEvent reports whether e is a known event.
func ValidEvent(e Event) bool {
	switch e {
	case EventChatStarted, EventChatMessage, EventAppointmentInterest:
		return true
	}
	return false
}

// Webhook is a tenant's subscription to one or more events.
type Webhook struct {
	ID        string            `json:"id"`
	BotID     string            `json:"bot_id"`
	URL       string            `json:"url"`
	Events    []Event           `json:"events"`
	Active    bool              `json:"active"`
	Secret    string            `json:"secret,omitempty"`
	HasSecret bool              `json:"has_secret"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Subscribed reports whether the webhook listens for e.
func (w *Webhook) Subscribed(e Event) bool {
	for _, ev := range w.Events {
		if ev == e {
			return true
		}
	}
	return false
}

// Redacted returns a copy safe to hand back over the API.
func (w Webhook) Redacted() Webhook {
	w.HasSecret = w.Secret != ""
	w.Secret = ""
	return w
}

// Envelope is the JSON body POSTed to subscribers.
type Envelope struct {
	Event     Event  `json:"event"`
	Timestamp string `json:"timestamp"`
	BotID     string `json:"bot_id"`
	Data      any    `json:"data"`
}

// DeliveryLog records one delivery attempt. StatusCode is nil when no
// response was received.
type DeliveryLog struct {
	ID           string    `json:"id"`
	WebhookID    string    `json:"webhook_id"`
	BotID        string    `json:"bot_id"`
	EventType    Event     `json:"event_type"`
	Payload      string    `json:"payload"`
	StatusCode   *int      `json:"status_code"`
	ResponseBody string    `json:"response_body,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Success      bool      `json:"success"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
