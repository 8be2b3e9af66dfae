package chat

import (
	"context"
	"encoding/json"

	"github.com/charvilabs/charvi/pkg/llm"
	"github.com/charvilabs/charvi/pkg/logger"
)

// Completer is the slice of the LLM client the chat layer uses. A nil
// Completer (or one that keeps failing) degrades to the heuristic tier.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const classifySystemPrompt = `You classify one customer-support message for an online shop.
Answer with a single JSON object and nothing else:
{"intent": "...", "orderId": "...", "index": 0, "action": "...", "confidence": 0.0, "normalizedText": "..."}
intent must be one of: track_order, cart, recent_orders, remove_item, checkout, greeting, returns, shipping, payments, select_order, openai_answer, unknown.
orderId is an order code mentioned in the message, or "". index is a 1-based position into the customer's recent orders when they refer to one by number, or 0.
action is an optional verb such as "remove". confidence is 0.0-1.0. normalizedText is the cleaned-up message.`

// classify runs the LLM tier and falls back to the local heuristic when the
// call fails or the answer is not the demanded JSON shape. It never returns
// an error: classifier unavailability must not break the router.
func classify(ctx context.Context, completer Completer, message string) Classification {
	if completer == nil {
		return heuristic(message)
	}

	out, err := completer.Complete(ctx, classifySystemPrompt, message)
	if err != nil {
		logger.Warn("chat: classifier call failed, using heuristic", "error", err)
		return heuristic(message)
	}

	raw, ok := llm.ExtractJSON(out)
	if !ok {
		logger.Warn("chat: classifier returned no JSON, using heuristic")
		return heuristic(message)
	}

	var c Classification
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		logger.Warn("chat: classifier JSON undecodable, using heuristic", "error", err)
		return heuristic(message)
	}

	if !knownIntent(c.Intent) {
		c.Intent = IntentUnknown
	}
	if c.Confidence <= 0 || c.Confidence > 1 {
		c.Confidence = heuristicConfidence
	}
	if c.NormalizedText == "" {
		c.NormalizedText = normalize(message)
	}
	return c
}
