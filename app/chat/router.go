package chat

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/config"
	"github.com/charvilabs/charvi/pkg/apperr"
	"github.com/charvilabs/charvi/pkg/logger"
)

const (
	loginPrompt = "Please log in first so I can look that up for you."

	recentListLimit = 10 // pick-list and index resolution
	recentShowLimit = 5  // "my recent orders" summary

	freeformSystemPrompt = `You are the support assistant for Charvi, an online shop.
Only answer questions about shopping with Charvi: products, orders, shipping, returns, payments and account help.
If the question is out of scope, say so briefly and point the customer back to shop topics. Keep answers under 120 words.`
)

// OrderReader is the read-only slice of the order service the router needs.
type OrderReader interface {
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	Recent(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Order, error)
}

// CartReader returns the canonical cart view.
type CartReader interface {
	Get(ctx context.Context, userID primitive.ObjectID) (models.NormalizedCart, error)
}

// Router classifies one message and dispatches it to the matching handler.
// It is stateless across calls and never fails because the classifier is
// unreachable.
type Router struct {
	orders    OrderReader
	carts     CartReader
	completer Completer // nil disables the LLM tiers
}

func NewRouter(orders OrderReader, carts CartReader, completer Completer) *Router {
	return &Router{orders: orders, carts: carts, completer: completer}
}

// Handle processes one message. userID is nil for anonymous callers.
func (r *Router) Handle(ctx context.Context, userID *primitive.ObjectID, message string) Reply {
	// Tier 1: deterministic rules, no external calls.
	if c, answer, ok := matchRule(message); ok {
		return Reply{Intent: c.Intent, Message: answer, Confidence: c.Confidence}
	}

	// Tier 2: LLM classification, heuristic on failure.
	c := classify(ctx, r.completer, message)

	switch c.Intent {
	case IntentCart:
		return r.handleCart(ctx, userID, c)
	case IntentTrackOrder, IntentSelectOrder:
		return r.handleTrack(ctx, userID, c)
	case IntentRecentOrders:
		return r.handleRecent(ctx, userID, c)
	case IntentRemoveItem:
		return reply(c, "I can't change your cart from chat yet - open the cart page and tap remove on the item. Say \"my cart\" if you want to see what's in it.")
	case IntentCheckout:
		return reply(c, "Ready to order? Head to your cart and hit checkout - your default address and our payment partner take it from there.")
	case IntentGreeting:
		return reply(c, greetingReply)
	case IntentReturns:
		return reply(c, returnsReply)
	case IntentShipping:
		return reply(c, shippingReply)
	case IntentPayments:
		return reply(c, paymentsReply)
	default:
		return r.handleFreeform(ctx, c, message)
	}
}

// handleCart shows the normalized cart. Anonymous callers get a login prompt
// and no database call is made for them.
func (r *Router) handleCart(ctx context.Context, userID *primitive.ObjectID, c Classification) Reply {
	if userID == nil {
		return reply(c, loginPrompt)
	}

	cart, err := r.carts.Get(ctx, *userID)
	if err != nil {
		logger.Warn("chat: cart lookup failed", "error", err)
		return reply(c, apology(err))
	}
	return reply(c, cartText(cart))
}

// handleTrack resolves an order three ways, in order: explicit code, 1-based
// index into the recent list, or a numbered pick-list.
func (r *Router) handleTrack(ctx context.Context, userID *primitive.ObjectID, c Classification) Reply {
	if c.OrderID != "" {
		order, err := r.orders.GetByCode(ctx, c.OrderID)
		if err != nil {
			if isNotFound(err) {
				return reply(c, fmt.Sprintf("I couldn't find an order with code %s. Double-check the code from your confirmation email.", c.OrderID))
			}
			logger.Warn("chat: order lookup failed", "code", c.OrderID, "error", err)
			return reply(c, apology(err))
		}
		if userID != nil && order.UserID != *userID {
			// Someone else's code: same answer as not found.
			return reply(c, fmt.Sprintf("I couldn't find an order with code %s. Double-check the code from your confirmation email.", c.OrderID))
		}
		return reply(c, statusReply(order))
	}

	if userID == nil {
		return reply(c, loginPrompt)
	}

	recent, err := r.orders.Recent(ctx, *userID, recentListLimit)
	if err != nil {
		logger.Warn("chat: recent orders lookup failed", "error", err)
		return reply(c, apology(err))
	}
	if len(recent) == 0 {
		return reply(c, "You don't have any orders yet. When you place one, I can track it here.")
	}

	if c.Index >= 1 && c.Index <= len(recent) {
		return reply(c, statusReply(&recent[c.Index-1]))
	}

	return reply(c, "Which order do you mean? Reply with a number:\n"+orderList(recent))
}

// handleRecent summarizes the last few orders, with the LLM phrasing the
// summary when it is available.
func (r *Router) handleRecent(ctx context.Context, userID *primitive.ObjectID, c Classification) Reply {
	if userID == nil {
		return reply(c, loginPrompt)
	}

	recent, err := r.orders.Recent(ctx, *userID, recentShowLimit)
	if err != nil {
		logger.Warn("chat: recent orders lookup failed", "error", err)
		return reply(c, apology(err))
	}
	if len(recent) == 0 {
		return reply(c, "You don't have any orders yet. When you place one, I can track it here.")
	}

	plain := "Your recent orders:\n" + orderList(recent)

	if r.completer != nil {
		summary, err := r.completer.Complete(ctx,
			"Rewrite this order list as one short friendly paragraph for the customer. Keep every order code and status.",
			plain)
		if err == nil && summary != "" {
			return reply(c, summary)
		}
		logger.Warn("chat: summary call failed, using plain list", "error", err)
	}
	return reply(c, plain)
}

// handleFreeform answers anything else through the LLM under the fixed scope
// prompt; when that fails the caller gets a fixed apology.
func (r *Router) handleFreeform(ctx context.Context, c Classification, message string) Reply {
	if r.completer == nil {
		return Reply{Intent: IntentUnknown, Message: apology(nil), Confidence: c.Confidence}
	}

	answer, err := r.completer.Complete(ctx, freeformSystemPrompt, message)
	if err != nil || answer == "" {
		logger.Warn("chat: freeform answer failed", "error", err)
		return Reply{Intent: IntentUnknown, Message: apology(err), Confidence: c.Confidence}
	}
	return Reply{Intent: IntentOpenAnswer, Message: answer, Confidence: c.Confidence}
}

func reply(c Classification, message string) Reply {
	return Reply{Intent: c.Intent, Message: message, Confidence: c.Confidence}
}

// apology is the fixed failure message; the raw error rides along only
// outside production.
func apology(err error) string {
	msg := "Sorry, something went wrong on my end. Please try again in a moment."
	if err != nil && !config.IsProduction() {
		msg += " (" + err.Error() + ")"
	}
	return msg
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound) || apperr.KindOf(err) == apperr.KindNotFound
}
