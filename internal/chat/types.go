// Package chat answers widget messages for a bot: it runs the answer
// pipeline and serves it over HTTP.
package chat

import "errors"

// ErrMissingFields is returned when a request lacks a bot id or message.
var ErrMissingFields = errors.New("missing bot_id or message")

// HistoryMessage is one prior turn supplied by the widget.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body of a chat call.
type Request struct {
	BotID               string           `json:"bot_id"`
	Message             string           `json:"message"`
	SessionID           string           `json:"session_id,omitempty"`
	LeadID              string           `json:"lead_id,omitempty"`
	ConversationHistory []HistoryMessage `json:"conversation_history,omitempty"`
}

// Response is the body returned for an answered turn.
type Response struct {
	Response            string  `json:"response"`
	ChunksUsed          int     `json:"chunks_used"`
	SessionID           string  `json:"session_id"`
	TopSimilarity       float64 `json:"top_similarity"`
	CalendarTriggered   bool    `json:"calendar_triggered"`
	BookingLink         *string `json:"booking_link"`
	TriggeredKeyword    *string `json:"triggered_keyword"`
	IsFallback          bool    `json:"is_fallback"`
	IsGreeting          bool    `json:"is_greeting"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	RetrievalCount      int     `json:"retrieval_count"`
	ChunkCount          int     `json:"chunk_count"`
	TopChunkPreview     *string `json:"top_chunk_preview"`
}

type errorResponse struct {
	Error string `json:"error"`
}
