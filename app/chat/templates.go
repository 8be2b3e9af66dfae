package chat

import (
	"fmt"
	"strings"

	"github.com/charvilabs/charvi/app/models"
)

// statusReply renders the deterministic tracking answer for one order. The
// template is keyed on a normalized status keyword, so variants like
// "Returned & Refunded" land in the right bucket.
func statusReply(o *models.Order) string {
	head := fmt.Sprintf("Order %s (total %.2f): ", o.Code, o.TotalAmount)
	addr := redactAddress(o.ShippingAddress)

	switch statusKeyword(o.Status) {
	case "shipped":
		msg := head + "it's on the way to " + addr + "."
		return msg + " Keep the delivery code from your email handy - the courier will ask for it."
	case "processing":
		return head + "we're packing it now. You'll get a shipping confirmation with a delivery code soon."
	case "delivered":
		return head + "delivered to " + addr + ". Hope you love it!"
	case "cancelled":
		return head + "this order was cancelled. If you were charged, the refund is on its way."
	case "refunded":
		return head + "refunded. The amount should reach your account within 5-7 business days."
	case "returned":
		return head + "a return is in progress. We'll confirm by email at each step."
	default:
		return head + "current status is " + strings.ToLower(o.Status) + ". Ask me again any time for an update."
	}
}

// statusKeyword folds a stored status into the template key set.
func statusKeyword(status string) string {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "shipped"):
		return "shipped"
	case strings.Contains(s, "processing"), strings.Contains(s, "pending"):
		return "processing"
	case strings.Contains(s, "delivered"):
		return "delivered"
	case strings.Contains(s, "cancel"):
		return "cancelled"
	case strings.Contains(s, "return"):
		// "Return Requested" and "Returned & Refunded" both read as returns.
		return "returned"
	case strings.Contains(s, "refund"):
		return "refunded"
	default:
		return "other"
	}
}

// redactAddress keeps only the last two comma-separated segments of a
// shipping address, so replies never echo the street line.
func redactAddress(addr string) string {
	parts := strings.Split(addr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	kept := make([]string, 0, 2)
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "your delivery address"
	}
	if len(kept) > 2 {
		kept = kept[len(kept)-2:]
	}
	return strings.Join(kept, ", ")
}

// orderList renders a numbered pick-list of recent orders.
func orderList(orders []models.Order) string {
	var b strings.Builder
	for i, o := range orders {
		fmt.Fprintf(&b, "%d) %s - %s, total %.2f\n", i+1, o.Code, o.Status, o.TotalAmount)
	}
	return strings.TrimRight(b.String(), "\n")
}

// cartText renders the canonical cart for a chat reply.
func cartText(cart models.NormalizedCart) string {
	if len(cart.Items) == 0 {
		return "Your cart is empty right now. Want me to show you what's new?"
	}

	var b strings.Builder
	b.WriteString("Here's your cart:\n")
	for _, it := range cart.Items {
		title := it.Title
		if title == "" {
			title = "item " + it.ProductID
		}
		if it.Subtotal != nil {
			fmt.Fprintf(&b, "- %s x%d = %.2f\n", title, it.Quantity, *it.Subtotal)
		} else {
			fmt.Fprintf(&b, "- %s x%d (price pending)\n", title, it.Quantity)
		}
	}
	fmt.Fprintf(&b, "Subtotal: %.2f", cart.Subtotal)
	return b.String()
}
