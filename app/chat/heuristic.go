package chat

import (
	"regexp"
	"strconv"
	"strings"
)

// heuristicConfidence marks classifications produced without the LLM.
const heuristicConfidence = 0.4

var (
	// Order codes like "ORD-7F3A2B" or "ORD123", plus bare 24-char Mongo ids
	// users paste from emails. The separator-or-digit requirement keeps plain
	// words like "orders" from matching.
	orderCodeRe = regexp.MustCompile(`(?i)\b(ord(?:[-_][0-9a-z]{3,10}|\d[0-9a-z]{2,9}))\b`)
	mongoIDRe   = regexp.MustCompile(`\b([0-9a-f]{24})\b`)

	// "order 2", "number 3", "#1", or a bare small number.
	indexRe     = regexp.MustCompile(`(?i)(?:order|number|no\.?|#)\s*(\d{1,2})\b`)
	bareIndexRe = regexp.MustCompile(`^\s*(\d{1,2})\s*$`)
)

// heuristic is the local fallback classifier: regex-based order reference and
// index extraction plus keyword intent guessing. It produces the same shape
// the LLM tier does, at lower confidence, and never fails.
func heuristic(message string) Classification {
	normalized := normalize(message)
	c := Classification{
		Intent:         IntentUnknown,
		Confidence:     heuristicConfidence,
		NormalizedText: normalized,
	}

	if m := orderCodeRe.FindStringSubmatch(message); m != nil {
		c.OrderID = strings.ToUpper(m[1])
	} else if m := mongoIDRe.FindStringSubmatch(message); m != nil {
		c.OrderID = m[1]
	}
	if m := indexRe.FindStringSubmatch(message); m != nil {
		c.Index, _ = strconv.Atoi(m[1])
	} else if m := bareIndexRe.FindStringSubmatch(message); m != nil {
		c.Index, _ = strconv.Atoi(m[1])
	}

	switch {
	case containsAny(normalized, "track", "where is my order", "order status", "status of my order"):
		c.Intent = IntentTrackOrder
	case c.OrderID != "":
		c.Intent = IntentTrackOrder
	case containsAny(normalized, "remove", "delete") && containsAny(normalized, "cart", "item"):
		c.Intent = IntentRemoveItem
	case containsAny(normalized, "my cart", "view cart", "show cart", "cart"):
		c.Intent = IntentCart
	case containsAny(normalized, "recent orders", "my orders", "order history", "past orders"):
		c.Intent = IntentRecentOrders
	case containsAny(normalized, "checkout", "buy now", "place order", "place my order"):
		c.Intent = IntentCheckout
	case containsAny(normalized, "return", "refund"):
		c.Intent = IntentReturns
	case containsAny(normalized, "shipping", "delivery"):
		c.Intent = IntentShipping
	case containsAny(normalized, "payment", "pay"):
		c.Intent = IntentPayments
	case c.Index > 0:
		c.Intent = IntentSelectOrder
	}

	return c
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
