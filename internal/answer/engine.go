// Package answer decides how a chat turn is answered and produces the reply.
package answer

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/kbchat/internal/llm"
	"github.com/ziadkadry99/kbchat/internal/retrieval"
	"github.com/ziadkadry99/kbchat/internal/tenant"
	"github.com/ziadkadry99/kbchat/internal/vectordb"
)

// State is the terminal state of a chat turn.
type State string

const (
	StateGreeting State = "greeting"
	StateFallback State = "fallback"
	StateGrounded State = "grounded"
)

// Decide picks the terminal state for a turn. A greeting wins outright;
// otherwise the turn is grounded only when some chunk reaches threshold.
func Decide(greeting bool, res retrieval.Result, threshold float64) State {
	if greeting {
		return StateGreeting
	}
	if len(res.Chunks) == 0 || res.TopSimilarity < threshold {
		return StateFallback
	}
	return StateGrounded
}

// Turn is the input to reply generation.
type Turn struct {
	Bot     *tenant.BotConfig
	Message string
	History []llm.Message
}

// Reply is the text chosen for a turn plus generation telemetry.
type Reply struct {
	Text         string
	ChunksUsed   int
	Model        string
	InputTokens  int
	OutputTokens int
}

// Engine generates greeting and grounded replies.
type Engine struct {
	maxHistory int
}

// NewEngine creates an Engine that forwards at most maxHistory prior
// messages. Zero forwards none.
func NewEngine(maxHistory int) *Engine {
	return &Engine{maxHistory: maxHistory}
}

// Fallback returns the bot's canned reply without consulting a model.
func Fallback(bot *tenant.BotConfig) Reply {
	text := bot.FallbackMessage
	if text == "" {
		text = tenant.DefaultFallbackMessage
	}
	return Reply{Text: text}
}

// Greet answers small talk. The caller decides what to do on error; the
// engine never retries.
func (e *Engine) Greet(ctx context.Context, p llm.Provider, turn Turn) (*Reply, error) {
	msgs := e.messages(GreetingSystemPrompt(turn.Bot.SystemPrompt), turn.History, turn.Message)
	return e.complete(ctx, p, turn.Bot, msgs, 0)
}

// Ground answers from the retrieved chunks. Every chunk passed in is placed
// in the prompt.
func (e *Engine) Ground(ctx context.Context, p llm.Provider, turn Turn, chunks []vectordb.ScoredChunk) (*Reply, error) {
	user := RenderUserMessage(turn.Bot.UserMessageTemplate, BuildContext(chunks), turn.Message)
	msgs := e.messages(GroundedSystemPrompt(turn.Bot.SystemPrompt), turn.History, user)
	return e.complete(ctx, p, turn.Bot, msgs, len(chunks))
}

func (e *Engine) messages(system string, history []llm.Message, user string) []llm.Message {
	history = TrimHistory(history, e.maxHistory)
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: user})
	return msgs
}

func (e *Engine) complete(ctx context.Context, p llm.Provider, bot *tenant.BotConfig, msgs []llm.Message, chunks int) (*Reply, error) {
	resp, err := p.Complete(ctx, llm.CompletionRequest{
		Model:       bot.Model,
		Messages:    msgs,
		MaxTokens:   bot.MaxTokens,
		Temperature: bot.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generating reply: %w", err)
	}

	model := resp.Model
	if model == "" {
		model = bot.Model
	}
	in, out := resp.InputTokens, resp.OutputTokens
	if in == 0 && out == 0 {
		for _, m := range msgs {
			in += llm.EstimateTokens(m.Content)
		}
		out = llm.EstimateTokens(resp.Content)
	}

	return &Reply{
		Text:         resp.Content,
		ChunksUsed:   chunks,
		Model:        model,
		InputTokens:  in,
		OutputTokens: out,
	}, nil
}

// TrimHistory keeps the most recent limit user/assistant messages, dropping
// any other roles a caller may have sent.
func TrimHistory(history []llm.Message, limit int) []llm.Message {
	var kept []llm.Message
	for _, m := range history {
		if (m.Role == llm.RoleUser || m.Role == llm.RoleAssistant) && m.Content != "" {
			kept = append(kept, m)
		}
	}
	if limit <= 0 {
		return nil
	}
	if len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}
