package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/kbchat/internal/answer"
	"github.com/ziadkadry99/kbchat/internal/calendar"
	"github.com/ziadkadry99/kbchat/internal/chatlog"
	"github.com/ziadkadry99/kbchat/internal/embeddings"
	"github.com/ziadkadry99/kbchat/internal/intent"
	"github.com/ziadkadry99/kbchat/internal/llm"
	"github.com/ziadkadry99/kbchat/internal/metrics"
	"github.com/ziadkadry99/kbchat/internal/origin"
	"github.com/ziadkadry99/kbchat/internal/retrieval"
	"github.com/ziadkadry99/kbchat/internal/tasks"
	"github.com/ziadkadry99/kbchat/internal/tenant"
	"github.com/ziadkadry99/kbchat/internal/webhooks"
)

const previewLength = 200

// BotResolver loads bots and their provider credentials.
type BotResolver interface {
	Bot(ctx context.Context, id string) (*tenant.BotConfig, error)
	APIKey(ctx context.Context, botID string) (string, error)
}

// CalendarStore is the calendar persistence the pipeline needs.
type CalendarStore interface {
	GetSettings(ctx context.Context, botID string) (*calendar.Settings, error)
	RecordInterest(ctx context.Context, in calendar.Interest) error
}

// TurnRecorder persists finished turns without blocking.
type TurnRecorder interface {
	Record(t chatlog.Turn)
}

// EventPublisher fans events out to webhooks without blocking.
type EventPublisher interface {
	Publish(botID string, event webhooks.Event, data any)
}

// Deps wires a Pipeline. Metrics may be nil.
type Deps struct {
	Bots      BotResolver
	Calendar  CalendarStore
	Retriever *retrieval.Retriever
	Embedders embeddings.Factory
	Providers llm.Factory
	Engine    *answer.Engine
	ChatLog   TurnRecorder
	Webhooks  EventPublisher
	Runner    *tasks.Runner
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

// Pipeline answers one chat turn.
type Pipeline struct {
	Deps
	now func() time.Time
}

// NewPipeline creates a Pipeline from deps.
func NewPipeline(deps Deps) *Pipeline {
	return &Pipeline{Deps: deps, now: time.Now}
}

// Handle runs the full turn for req coming from callerOrigin. Errors
// wrapping ErrMissingFields, tenant.ErrBotNotFound, origin.ErrNotAllowed or
// tenant.ErrNoAPIKey are client errors; anything else is an upstream failure.
func (p *Pipeline) Handle(ctx context.Context, req Request, callerOrigin string) (resp *Response, err error) {
	start := p.now()
	defer func() {
		if err != nil {
			p.Metrics.ObserveTurn("error", time.Since(start))
		}
	}()

	botID := strings.TrimSpace(req.BotID)
	message := strings.TrimSpace(req.Message)
	if botID == "" || message == "" {
		return nil, ErrMissingFields
	}

	bot, err := p.Bots.Bot(ctx, botID)
	if err != nil {
		if errors.Is(err, tenant.ErrBotNotFound) {
			p.Log.Warn("chat for unknown bot", zap.String("bot_id", botID))
		}
		return nil, err
	}
	if err := origin.Check(callerOrigin, bot.AllowedOrigins); err != nil {
		p.Log.Warn("origin rejected", zap.String("bot_id", botID), zap.String("origin", callerOrigin))
		return nil, err
	}
	apiKey, err := p.Bots.APIKey(ctx, botID)
	if err != nil {
		return nil, err
	}
	provider, err := p.Providers(bot.Provider, apiKey, bot.Model)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", bot.Provider, err)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	turn := answer.Turn{Bot: bot, Message: message, History: toLLMHistory(req.ConversationHistory)}

	var (
		state answer.State
		reply *answer.Reply
		res   retrieval.Result
	)

	if intent.IsConversational(message) {
		greet, gerr := p.Engine.Greet(ctx, provider, turn)
		if gerr != nil {
			p.Log.Warn("greeting generation failed, answering from knowledge",
				zap.String("bot_id", botID), zap.Error(gerr))
		} else {
			reply, state = greet, answer.StateGreeting
		}
	}

	if reply == nil {
		res, err = p.Retriever.Retrieve(ctx, p.Embedders(apiKey), bot.ID, message, bot.RetrievalCount)
		if err != nil {
			return nil, err
		}
		state = answer.Decide(false, res, bot.SimilarityThreshold)
		if state == answer.StateGrounded {
			reply, err = p.Engine.Ground(ctx, provider, turn, res.Chunks)
			if err != nil {
				return nil, err
			}
		} else {
			fb := answer.Fallback(bot)
			reply = &fb
		}
	}

	out := &Response{
		Response:            reply.Text,
		ChunksUsed:          reply.ChunksUsed,
		SessionID:           sessionID,
		TopSimilarity:       res.TopSimilarity,
		IsFallback:          state == answer.StateFallback,
		IsGreeting:          state == answer.StateGreeting,
		SimilarityThreshold: bot.SimilarityThreshold,
		RetrievalCount:      bot.RetrievalCount,
		ChunkCount:          len(res.Chunks),
	}
	if len(res.Chunks) > 0 {
		preview := truncate(res.Chunks[0].Text, previewLength)
		out.TopChunkPreview = &preview
	}

	p.applyCalendar(ctx, bot.ID, req, sessionID, out)

	elapsed := time.Since(start)
	p.Metrics.ObserveTurn(string(state), elapsed)
	if reply.Model != "" {
		p.Metrics.ObserveGeneration(reply.Model, reply.InputTokens, reply.OutputTokens,
			llm.EstimateCost(reply.Model, reply.InputTokens, reply.OutputTokens))
	}

	p.ChatLog.Record(chatlog.Turn{
		BotID:           bot.ID,
		SessionID:       sessionID,
		LeadID:          req.LeadID,
		UserMessage:     message,
		BotResponse:     out.Response,
		State:           chatlog.State(state),
		ChunksRetrieved: len(res.Chunks),
		TopSimilarity:   res.TopSimilarity,
		IsFallback:      out.IsFallback,
		ResponseTimeMS:  elapsed.Milliseconds(),
		Model:           reply.Model,
		InputTokens:     reply.InputTokens,
		OutputTokens:    reply.OutputTokens,
	})
	p.publish(bot.ID, req, message, state, out)

	return out, nil
}

// applyCalendar appends the booking call-to-action when the visitor's own
// message mentions a trigger keyword.
func (p *Pipeline) applyCalendar(ctx context.Context, botID string, req Request, sessionID string, out *Response) {
	settings, err := p.Calendar.GetSettings(ctx, botID)
	if err != nil {
		if !errors.Is(err, calendar.ErrNotFound) {
			p.Log.Warn("loading calendar settings", zap.String("bot_id", botID), zap.Error(err))
		}
		return
	}
	kw, ok := calendar.Detect(settings, req.Message)
	if !ok {
		return
	}

	out.Response = calendar.Append(out.Response, settings)
	out.CalendarTriggered = true
	link := settings.BookingLink
	out.BookingLink = &link
	out.TriggeredKeyword = &kw

	interest := calendar.Interest{
		BotID:            botID,
		SessionID:        sessionID,
		LeadID:           req.LeadID,
		TriggeredKeyword: kw,
		UserMessage:      req.Message,
	}
	p.Runner.Go("calendar.record_interest", func(ctx context.Context) error {
		return p.Calendar.RecordInterest(ctx, interest)
	})
}

func (p *Pipeline) publish(botID string, req Request, message string, state answer.State, out *Response) {
	if len(req.ConversationHistory) == 0 {
		p.Webhooks.Publish(botID, webhooks.EventChatStarted, map[string]any{
			"session_id":    out.SessionID,
			"lead_id":       nullable(req.LeadID),
			"first_message": message,
		})
	}

	p.Webhooks.Publish(botID, webhooks.EventChatMessage, map[string]any{
		"session_id":     out.SessionID,
		"lead_id":        nullable(req.LeadID),
		"user_message":   message,
		"bot_response":   out.Response,
		"state":          string(state),
		"chunks_used":    out.ChunksUsed,
		"top_similarity": out.TopSimilarity,
		"is_fallback":    out.IsFallback,
	})

	if out.CalendarTriggered {
		p.Webhooks.Publish(botID, webhooks.EventAppointmentInterest, map[string]any{
			"session_id":        out.SessionID,
			"lead_id":           nullable(req.LeadID),
			"triggered_keyword": *out.TriggeredKeyword,
			"user_message":      message,
			"booking_link":      *out.BookingLink,
		})
	}
}

func toLLMHistory(history []HistoryMessage) []llm.Message {
	msgs := make([]llm.Message, 0, len(history))
	for _, h := range history {
		msgs = append(msgs, llm.Message{Role: llm.Role(h.Role), Content: h.Content})
	}
	return msgs
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
