package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
	"github.com/charvilabs/charvi/pkg/event"
	"github.com/charvilabs/charvi/pkg/logger"
	"github.com/charvilabs/charvi/pkg/otp"
)

// OrderStatusChanged is fired on the event bus after every committed status
// transition. Listeners feed the SSE and WebSocket streams.
const OrderStatusChanged = "orders.status_changed"

// StatusChange is the OrderStatusChanged payload.
type StatusChange struct {
	OrderID primitive.ObjectID `json:"orderId"`
	Code    string             `json:"code"`
	UserID  primitive.ObjectID `json:"userId"`
	Status  string             `json:"status"`
	Total   float64            `json:"total"`
}

// Order lifecycle errors. Verification failures never mutate the order beyond
// the attempt counter.
var (
	ErrOrderNotFound      = apperr.NotFound("order not found")
	ErrUnknownStatus      = apperr.Validation("unknown order status")
	ErrDeliveredViaUpdate = apperr.StateConflict("delivered status requires OTP verification")
	ErrNotShipped         = apperr.StateConflict("order is not in shipped state")
	ErrNoOtpIssued        = apperr.StateConflict("no delivery OTP has been issued")
	ErrOtpExpired         = apperr.StateConflict("delivery OTP has expired")
	ErrOtpMismatch        = apperr.StateConflict("delivery OTP does not match")
	ErrTooManyOtpAttempts = apperr.StateConflict("too many OTP attempts for this code")
	ErrProductNotInOrder  = apperr.NotFound("product is not part of this order")
	ErrEmptyOrder         = apperr.Validation("order must contain at least one item")
	ErrBadQuantity        = apperr.Validation("item quantity must be at least 1")
)

// OrderStore is the persistence surface the order lifecycle needs.
type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	RecentByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Order, error)
	All(ctx context.Context, page, limit int64) ([]models.Order, int64, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
	SetShipped(ctx context.Context, id primitive.ObjectID, otpHash string, expiresAt time.Time) error
	MarkDelivered(ctx context.Context, id primitive.ObjectID) error
	IncrementOtpAttempts(ctx context.Context, id primitive.ObjectID) error
	RemoveItem(ctx context.Context, id, productID primitive.ObjectID, delta float64, forceCancel bool) error
	SetPayment(ctx context.Context, id primitive.ObjectID, providerOrderID, paymentID string) error
}

// UserLookup resolves order owners for notifications.
type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// OrderService enforces the order status state machine:
//
//	Pending → Processing → Shipped → Delivered
//
// with Cancelled, Refunded, Return Requested and Returned & Refunded as side
// branches. Delivered is reachable only through VerifyDeliveryOtp.
type OrderService struct {
	orders   OrderStore
	users    UserLookup
	notifier Notifier
	now      func() time.Time
}

func NewOrderService(orders OrderStore, users UserLookup, notifier Notifier) *OrderService {
	return &OrderService{
		orders:   orders,
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
}

// Create places a new Pending order after validating its lines.
func (s *OrderService) Create(ctx context.Context, userID primitive.ObjectID, items []models.LineItem, shippingAddress string) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, li := range items {
		if li.Quantity < 1 {
			return nil, ErrBadQuantity
		}
	}

	order := &models.Order{
		Code:            newOrderCode(),
		UserID:          userID,
		Items:           items,
		Status:          models.StatusPending,
		OrderDate:       s.now().UTC(),
		ShippingAddress: shippingAddress,
	}
	order.TotalAmount = order.ItemsTotal()

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, apperr.Upstream("could not create order", err)
	}

	s.announce(order)
	s.notifyOwner(ctx, order.UserID,
		"Order "+order.Code+" placed",
		fmt.Sprintf("<p>Thanks for your order <b>%s</b>. Total: %.2f.</p>", order.Code, order.TotalAmount))

	return order, nil
}

// UpdateStatus applies a generic status transition. Shipped issues a fresh
// delivery OTP as part of the same transition; Delivered is rejected here.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, status string) (*models.Order, error) {
	if !models.KnownStatus(status) {
		return nil, ErrUnknownStatus
	}
	if status == models.StatusDelivered {
		return nil, ErrDeliveredViaUpdate
	}

	order, err := s.findByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if status == models.StatusShipped {
		return s.ship(ctx, order)
	}

	if err := s.orders.SetStatus(ctx, orderID, status); err != nil {
		return nil, s.storeErr(err)
	}
	order.Status = status

	s.announce(order)
	s.notifyOwner(ctx, order.UserID,
		"Order "+order.Code+" update",
		fmt.Sprintf("<p>Your order <b>%s</b> is now: %s.</p>", order.Code, status))

	return order, nil
}

// ship moves the order to Shipped with a freshly issued OTP. A re-shipment
// overwrites any previous code and resets the attempt counter.
func (s *OrderService) ship(ctx context.Context, order *models.Order) (*models.Order, error) {
	code, expiresAt, err := otp.Generate(s.now())
	if err != nil {
		return nil, apperr.Upstream("could not issue delivery OTP", err)
	}

	hash := otp.Hash(code)
	if err := s.orders.SetShipped(ctx, order.ID, hash, expiresAt); err != nil {
		return nil, s.storeErr(err)
	}

	order.Status = models.StatusShipped
	order.DeliveryOtp = &hash
	order.OtpExpiresAt = &expiresAt
	order.OtpVerified = false
	order.OtpAttempts = 0

	s.announce(order)
	s.notifyOwner(ctx, order.UserID,
		"Order "+order.Code+" shipped",
		fmt.Sprintf("<p>Your order <b>%s</b> has shipped.</p><p>Share code <b>%s</b> with the courier to confirm delivery. It expires in %d minutes.</p>",
			order.Code, code, int(otp.TTL.Minutes())))

	return order, nil
}

// VerifyDeliveryOtp confirms physical delivery. It succeeds only when the
// order is Shipped, a code was issued, the code has not expired, the attempt
// budget is not exhausted, and the submitted code matches.
func (s *OrderService) VerifyDeliveryOtp(ctx context.Context, orderID primitive.ObjectID, code string) (*models.Order, error) {
	order, err := s.findByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.StatusShipped {
		return nil, ErrNotShipped
	}
	if order.DeliveryOtp == nil || order.OtpExpiresAt == nil {
		return nil, ErrNoOtpIssued
	}
	if otp.Expired(*order.OtpExpiresAt, s.now()) {
		return nil, ErrOtpExpired
	}
	if order.OtpAttempts >= otp.MaxAttempts {
		return nil, ErrTooManyOtpAttempts
	}
	if !otp.Matches(*order.DeliveryOtp, code) {
		if err := s.orders.IncrementOtpAttempts(ctx, orderID); err != nil {
			logger.Warn("order: attempt counter update failed", "order", order.Code, "error", err)
		}
		return nil, ErrOtpMismatch
	}

	if err := s.orders.MarkDelivered(ctx, orderID); err != nil {
		return nil, s.storeErr(err)
	}

	order.Status = models.StatusDelivered
	order.OtpVerified = true
	order.DeliveryOtp = nil
	order.OtpExpiresAt = nil
	order.OtpAttempts = 0

	s.announce(order)
	s.notifyOwner(ctx, order.UserID,
		"Order "+order.Code+" delivered",
		fmt.Sprintf("<p>Delivery of order <b>%s</b> is confirmed. Enjoy!</p>", order.Code))

	return order, nil
}

// CancelItem removes one line item and reduces the total by its subtotal.
// Cancelling the last remaining item cancels the whole order.
func (s *OrderService) CancelItem(ctx context.Context, orderID, productID primitive.ObjectID) (*models.Order, error) {
	order, err := s.findByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, li := range order.Items {
		if li.ProductID == productID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrProductNotInOrder
	}

	removed := order.Items[idx]
	delta := removed.Subtotal()
	lastItem := len(order.Items) == 1

	if err := s.orders.RemoveItem(ctx, orderID, productID, delta, lastItem); err != nil {
		return nil, s.storeErr(err)
	}

	order.Items = append(order.Items[:idx], order.Items[idx+1:]...)
	order.TotalAmount -= delta
	if lastItem {
		order.Status = models.StatusCancelled
		s.announce(order)
	}

	body := fmt.Sprintf("<p>%q was removed from order <b>%s</b>. New total: %.2f.</p>",
		removed.Title, order.Code, order.TotalAmount)
	if lastItem {
		body = fmt.Sprintf("<p>The last item was removed from order <b>%s</b>, so the order is cancelled.</p>", order.Code)
	}
	s.notifyOwner(ctx, order.UserID, "Order "+order.Code+" updated", body)

	return order, nil
}

// RequestReturn moves any order to Return Requested, unconditionally.
func (s *OrderService) RequestReturn(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.findByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.orders.SetStatus(ctx, orderID, models.StatusReturnRequested); err != nil {
		return nil, s.storeErr(err)
	}
	order.Status = models.StatusReturnRequested

	s.announce(order)
	s.notifyOwner(ctx, order.UserID,
		"Return requested for order "+order.Code,
		fmt.Sprintf("<p>We received your return request for order <b>%s</b>. We'll be in touch with pickup details.</p>", order.Code))

	return order, nil
}

// RecordPayment attaches the provider's order and payment ids to the order
// after the checkout signature has been verified.
func (s *OrderService) RecordPayment(ctx context.Context, orderID primitive.ObjectID, providerOrderID, paymentID string) error {
	if err := s.orders.SetPayment(ctx, orderID, providerOrderID, paymentID); err != nil {
		return s.storeErr(err)
	}
	return nil
}

// ─── Read side ────────────────────────────────────────────────────────────────

// Get returns one order by id.
func (s *OrderService) Get(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	return s.findByID(ctx, orderID)
}

// GetByCode returns one order by its human-facing code.
func (s *OrderService) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	order, err := s.orders.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, s.storeErr(err)
	}
	return order, nil
}

// Recent returns the user's most recent orders, newest first.
func (s *OrderService) Recent(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Order, error) {
	orders, err := s.orders.RecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Upstream("could not load orders", err)
	}
	return orders, nil
}

// OrderPage is one page of admin order results.
type OrderPage struct {
	Orders  []models.Order `json:"orders"`
	Total   int64          `json:"total"`
	Page    int64          `json:"page"`
	PerPage int64          `json:"perPage"`
}

// List returns a page of all orders for the admin surface. Page and perPage
// are clamped to sane bounds, and the clamped values are echoed back so
// callers can report the pagination actually applied.
func (s *OrderService) List(ctx context.Context, page, perPage int64) (OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	orders, total, err := s.orders.All(ctx, page, perPage)
	if err != nil {
		return OrderPage{}, apperr.Upstream("could not list orders", err)
	}
	return OrderPage{Orders: orders, Total: total, Page: page, PerPage: perPage}, nil
}

// ─── Internals ────────────────────────────────────────────────────────────────

func (s *OrderService) findByID(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return order, nil
}

func (s *OrderService) storeErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) || apperr.KindOf(err) == apperr.KindNotFound {
		return ErrOrderNotFound
	}
	return apperr.Upstream("order store failure", err)
}

// announce publishes the committed transition on the event bus.
func (s *OrderService) announce(order *models.Order) {
	event.FireAsync(OrderStatusChanged, StatusChange{
		OrderID: order.ID,
		Code:    order.Code,
		UserID:  order.UserID,
		Status:  order.Status,
		Total:   order.TotalAmount,
	})
}

// notifyOwner resolves the owner's email and fires the notification. The
// mutation has already committed; failures here are logged and swallowed.
func (s *OrderService) notifyOwner(ctx context.Context, userID primitive.ObjectID, subject, body string) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		logger.Warn("order: owner lookup for notification failed", "user", userID.Hex(), "error", err)
		return
	}
	if err := s.notifier.Notify(ctx, user.Email, subject, body); err != nil {
		logger.Warn("order: notification failed", "to", user.Email, "subject", subject, "error", err)
	}
}

// newOrderCode returns a short human-facing order code like "ORD-7F3A2B".
func newOrderCode() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		// fall back to a time-derived suffix; codes only need to be readable
		return fmt.Sprintf("ORD-%06X", time.Now().UnixNano()&0xFFFFFF)
	}
	return fmt.Sprintf("ORD-%X", b)
}
