package chat

import "strings"

// Canned answers for the deterministic tier. These never touch the database
// or the classifier.
const (
	greetingReply = "Hi! I can help you track orders, view your cart, or answer questions about returns, shipping and payments. What do you need?"
	returnsReply  = "You can request a return within 14 days of delivery from the order page. Once approved we arrange a pickup and refund you after the item is inspected."
	shippingReply = "Standard shipping takes 3-5 business days. You'll get a 6-digit delivery code by email when your order ships - the courier will ask for it on delivery."
	paymentsReply = "We accept credit and debit cards, UPI and net banking through our payment partner. Cash on delivery is not available at the moment."
)

type rule struct {
	intent   Intent
	answer   string
	keywords []string // any-of, matched on the normalized message
	exact    []string // full-message matches, for very short inputs
}

// Rules are checked in order; the first hit short-circuits the router.
var rules = []rule{
	{
		intent: IntentGreeting,
		answer: greetingReply,
		exact:  []string{"hi", "hello", "hey", "yo", "hi there", "hello there", "good morning", "good evening", "namaste"},
	},
	{
		intent:   IntentReturns,
		answer:   returnsReply,
		keywords: []string{"return policy", "refund policy", "how do i return", "how to return", "can i return"},
	},
	{
		intent:   IntentShipping,
		answer:   shippingReply,
		keywords: []string{"shipping policy", "shipping time", "how long does shipping", "how long does delivery", "delivery time", "when will my order arrive"},
	},
	{
		intent:   IntentPayments,
		answer:   paymentsReply,
		keywords: []string{"payment methods", "payment options", "how can i pay", "cash on delivery", "do you accept"},
	},
}

// matchRule runs the deterministic tier. ok is false when no rule applies.
func matchRule(message string) (Classification, string, bool) {
	normalized := normalize(message)

	for _, r := range rules {
		for _, e := range r.exact {
			if normalized == e {
				return Classification{Intent: r.intent, Confidence: 1, NormalizedText: normalized}, r.answer, true
			}
		}
		for _, kw := range r.keywords {
			if strings.Contains(normalized, kw) {
				return Classification{Intent: r.intent, Confidence: 1, NormalizedText: normalized}, r.answer, true
			}
		}
	}
	return Classification{}, "", false
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!?")
	return strings.Join(strings.Fields(s), " ")
}
