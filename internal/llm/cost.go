package llm

import "strings"

// modelPricing holds per-model pricing in USD per 1M tokens.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// priceTable maps model identifiers to their pricing.
var priceTable = map[string]modelPricing{
	// OpenAI models
	"gpt-4o":        {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":   {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4.1":       {InputPerMillion: 2.00, OutputPerMillion: 8.00},
	"gpt-4.1-mini":  {InputPerMillion: 0.40, OutputPerMillion: 1.60},
	"gpt-4.1-nano":  {InputPerMillion: 0.10, OutputPerMillion: 0.40},
	"gpt-3.5-turbo": {InputPerMillion: 0.50, OutputPerMillion: 1.50},

	// OpenRouter identifiers for the same models
	"openai/gpt-4o":      {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"openai/gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60},
}

// EstimateCost returns the estimated cost in USD for the given model and token counts.
// Dated snapshots such as "gpt-4o-mini-2024-07-18" are priced as their base
// model. Returns 0 if the model is not found in the price table.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := lookupPricing(model)
	if !ok {
		return 0
	}

	inputCost := float64(inputTokens) / 1_000_000.0 * pricing.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000.0 * pricing.OutputPerMillion
	return inputCost + outputCost
}

func lookupPricing(model string) (modelPricing, bool) {
	if p, ok := priceTable[model]; ok {
		return p, true
	}
	var (
		best    modelPricing
		bestLen int
	)
	for name, p := range priceTable {
		if len(name) > bestLen && strings.HasPrefix(model, name+"-") {
			best, bestLen = p, len(name)
		}
	}
	return best, bestLen > 0
}

// EstimateTokens provides a rough token count estimation for the given text.
// Uses the approximation of 1 token per 4 characters.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		return 1
	}
	return n
}
