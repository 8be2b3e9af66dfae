// Package chat implements the single-turn support assistant: a fast
// deterministic rule tier, an LLM classification tier with a local heuristic
// fallback, and per-intent handlers over the caller's orders and cart.
// Classification is stateless; nothing is remembered between messages.
package chat

// Intent is the fixed classification set. The LLM is instructed to answer
// with one of these; anything else is coerced to IntentUnknown.
type Intent string

const (
	IntentTrackOrder   Intent = "track_order"
	IntentCart         Intent = "cart"
	IntentRecentOrders Intent = "recent_orders"
	IntentRemoveItem   Intent = "remove_item"
	IntentCheckout     Intent = "checkout"
	IntentGreeting     Intent = "greeting"
	IntentReturns      Intent = "returns"
	IntentShipping     Intent = "shipping"
	IntentPayments     Intent = "payments"
	IntentSelectOrder  Intent = "select_order"
	IntentOpenAnswer   Intent = "openai_answer"
	IntentUnknown      Intent = "unknown"
)

// knownIntent reports whether s is one of the defined intents.
func knownIntent(s Intent) bool {
	switch s {
	case IntentTrackOrder, IntentCart, IntentRecentOrders, IntentRemoveItem,
		IntentCheckout, IntentGreeting, IntentReturns, IntentShipping,
		IntentPayments, IntentSelectOrder, IntentOpenAnswer, IntentUnknown:
		return true
	}
	return false
}

// Classification is the structured result of interpreting one message.
type Classification struct {
	Intent         Intent  `json:"intent"`
	OrderID        string  `json:"orderId,omitempty"`
	Index          int     `json:"index,omitempty"` // 1-based into recent orders
	Action         string  `json:"action,omitempty"`
	Confidence     float64 `json:"confidence"`
	NormalizedText string  `json:"normalizedText,omitempty"`
}

// Reply is what the router hands back to the transport layer.
type Reply struct {
	Intent     Intent  `json:"intent"`
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence"`
}
