// Package calendar detects booking intent in visitor messages and records
// appointment interest.
package calendar

import (
	"strings"
	"time"
)

// DefaultInstruction is appended when a bot has no instruction of its own.
const DefaultInstruction = "Would you like to book an appointment? You can pick a time here:"

// Settings is a bot's booking configuration.
type Settings struct {
	BotID           string    `json:"bot_id"`
	Enabled         bool      `json:"enabled"`
	BookingLink     string    `json:"booking_link"`
	Instruction     string    `json:"instruction"`
	TriggerKeywords []string  `json:"trigger_keywords"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Interest records a visitor message that matched a trigger keyword.
type Interest struct {
	ID               string    `json:"id"`
	BotID            string    `json:"bot_id"`
	SessionID        string    `json:"session_id"`
	LeadID           string    `json:"lead_id,omitempty"`
	TriggeredKeyword string    `json:"triggered_keyword"`
	UserMessage      string    `json:"user_message"`
	CreatedAt        time.Time `json:"created_at"`
}

// Detect returns the first configured keyword found in message, ignoring
// case. Nothing matches unless the settings are enabled and carry a link.
func Detect(s *Settings, message string) (string, bool) {
	if s == nil || !s.Enabled || strings.TrimSpace(s.BookingLink) == "" {
		return "", false
	}
	lower := strings.ToLower(message)
	for _, kw := range s.TriggerKeywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" {
			continue
		}
		if strings.Contains(lower, k) {
			return kw, true
		}
	}
	return "", false
}

// Instruction returns the call-to-action appended to a reply. The booking
// link is added unless the instruction already contains it.
func Instruction(s *Settings) string {
	text := strings.TrimSpace(s.Instruction)
	if text == "" {
		text = DefaultInstruction
	}
	if !strings.Contains(text, s.BookingLink) {
		text += " " + s.BookingLink
	}
	return text
}

// Append adds the booking instruction to reply once.
func Append(reply string, s *Settings) string {
	inst := Instruction(s)
	if strings.Contains(reply, inst) {
		return reply
	}
	return reply + "\n\n" + inst
}
