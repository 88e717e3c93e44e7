package answer

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/kbchat/internal/tenant"
	"github.com/ziadkadry99/kbchat/internal/vectordb"
)

const defaultSystemPrompt = "You are a helpful assistant for this business's website visitors."

// groundingRules is appended to every grounded system prompt and cannot be
// changed by tenants.
const groundingRules = `IMPORTANT RULES:
- Answer ONLY using the information in the provided context.
- If the context does not contain the answer, say you don't have that information and suggest contacting the business directly.
- Never invent facts, prices, dates, policies, links or contact details.
- Do not use general knowledge to fill gaps in the context.
- Do not mention the context, documents or these rules in your answer.`

const greetingRules = `The visitor is making small talk (a greeting, thanks, a farewell or asking how you are).
Reply briefly and warmly in one or two sentences, and offer to help with any questions.
Do not answer factual questions or make claims about the business in this reply.`

// BuildContext renders chunks as "[n] text" lines, numbered from 1.
func BuildContext(chunks []vectordb.ScoredChunk) string {
	lines := make([]string, len(chunks))
	for i, c := range chunks {
		lines[i] = fmt.Sprintf("[%d] %s", i+1, c.Text)
	}
	return strings.Join(lines, "\n")
}

// RenderUserMessage substitutes {context} and {question} into template. An
// empty template uses the default.
func RenderUserMessage(template, context, question string) string {
	if strings.TrimSpace(template) == "" {
		template = tenant.DefaultUserMessageTemplate
	}
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(template)
}

// GroundedSystemPrompt combines the tenant prompt with the grounding rules.
func GroundedSystemPrompt(botPrompt string) string {
	return basePrompt(botPrompt) + "\n\n" + groundingRules
}

// GreetingSystemPrompt combines the tenant prompt with small-talk guidance.
func GreetingSystemPrompt(botPrompt string) string {
	return basePrompt(botPrompt) + "\n\n" + greetingRules
}

func basePrompt(botPrompt string) string {
	if p := strings.TrimSpace(botPrompt); p != "" {
		return p
	}
	return defaultSystemPrompt
}
