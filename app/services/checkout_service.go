package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
	"github.com/charvilabs/charvi/pkg/logger"
	"github.com/charvilabs/charvi/pkg/payment"
)

var (
	ErrEmptyCart        = apperr.Validation("cart is empty")
	ErrUnpricedCart     = apperr.Validation("cart has items without a price, remove or re-add them first")
	ErrNoAddress        = apperr.Validation("no shipping address on file")
	ErrBadSignature     = apperr.Unauthorized("payment signature verification failed")
	ErrPaymentsDisabled = apperr.StateConflict("online payments are not configured")
)

// PaymentProvider is the slice of the gateway client checkout needs.
type PaymentProvider interface {
	Configured() bool
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*payment.ProviderOrder, error)
	VerifySignature(providerOrderID, paymentID, signature string) bool
}

// CheckoutCarts is the cart surface checkout reads and clears.
type CheckoutCarts interface {
	Get(ctx context.Context, userID primitive.ObjectID) (models.NormalizedCart, error)
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

// CheckoutOrders places orders and records payments.
type CheckoutOrders interface {
	Create(ctx context.Context, userID primitive.ObjectID, items []models.LineItem, shippingAddress string) (*models.Order, error)
	RecordPayment(ctx context.Context, orderID primitive.ObjectID, providerOrderID, paymentID string) error
}

// AddressBook resolves the shipping address for checkout.
type AddressBook interface {
	FindByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Address, error)
	DefaultForUser(ctx context.Context, userID primitive.ObjectID) (*models.Address, error)
}

// CheckoutIntent is handed to the frontend to open the provider's widget.
type CheckoutIntent struct {
	ProviderOrderID string  `json:"providerOrderId"`
	Amount          int64   `json:"amount"` // smallest currency unit
	Currency        string  `json:"currency"`
	Total           float64 `json:"total"`
	ShippingAddress string  `json:"shippingAddress"`
}

// CheckoutService drives the two-step payment flow: Begin registers the cart
// total with the provider, Confirm verifies the callback signature and only
// then turns the cart into a Pending order.
type CheckoutService struct {
	carts     CheckoutCarts
	orders    CheckoutOrders
	addresses AddressBook
	provider  PaymentProvider
}

func NewCheckoutService(carts CheckoutCarts, orders CheckoutOrders, addresses AddressBook, provider PaymentProvider) *CheckoutService {
	return &CheckoutService{carts: carts, orders: orders, addresses: addresses, provider: provider}
}

// Begin validates the cart and registers its total with the payment provider.
// addressID nil means the user's default address.
func (s *CheckoutService) Begin(ctx context.Context, userID primitive.ObjectID, addressID *primitive.ObjectID) (*CheckoutIntent, error) {
	if s.provider == nil || !s.provider.Configured() {
		return nil, ErrPaymentsDisabled
	}

	cart, _, err := s.pricedCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	address, err := s.shippingAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	amount := toMinorUnits(cart.Subtotal)
	receipt := fmt.Sprintf("cart-%s", userID.Hex())

	po, err := s.provider.CreateOrder(ctx, amount, "INR", receipt)
	if err != nil {
		return nil, apperr.Upstream("could not start payment", err)
	}

	return &CheckoutIntent{
		ProviderOrderID: po.ID,
		Amount:          amount,
		Currency:        po.Currency,
		Total:           cart.Subtotal,
		ShippingAddress: address,
	}, nil
}

// Confirm verifies the provider's callback signature and places the order.
// The cart is only cleared after the order exists.
func (s *CheckoutService) Confirm(ctx context.Context, userID primitive.ObjectID, addressID *primitive.ObjectID, providerOrderID, paymentID, signature string) (*models.Order, error) {
	if s.provider == nil || !s.provider.Configured() {
		return nil, ErrPaymentsDisabled
	}
	if !s.provider.VerifySignature(providerOrderID, paymentID, signature) {
		return nil, ErrBadSignature
	}

	_, items, err := s.pricedCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	address, err := s.shippingAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Create(ctx, userID, items, address)
	if err != nil {
		return nil, err
	}

	if err := s.orders.RecordPayment(ctx, order.ID, providerOrderID, paymentID); err != nil {
		logger.Warn("checkout: payment record failed", "order", order.Code, "error", err)
	} else {
		order.ProviderOrderID = providerOrderID
		order.PaymentID = paymentID
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		logger.Warn("checkout: cart clear failed", "user", userID.Hex(), "error", err)
	}

	return order, nil
}

// pricedCart loads the normalized cart and converts it to order lines,
// rejecting empty carts and lines the normalizer could not price.
func (s *CheckoutService) pricedCart(ctx context.Context, userID primitive.ObjectID) (models.NormalizedCart, []models.LineItem, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return models.NormalizedCart{}, nil, err
	}
	if len(cart.Items) == 0 {
		return models.NormalizedCart{}, nil, ErrEmptyCart
	}

	items := make([]models.LineItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		pid, err := primitive.ObjectIDFromHex(ci.ProductID)
		if err != nil || ci.Price == nil {
			return models.NormalizedCart{}, nil, ErrUnpricedCart
		}
		items = append(items, models.LineItem{
			ProductID: pid,
			Title:     ci.Title,
			Price:     *ci.Price,
			Quantity:  ci.Quantity,
			Image:     ci.Image,
		})
	}
	return cart, items, nil
}

func (s *CheckoutService) shippingAddress(ctx context.Context, userID primitive.ObjectID, addressID *primitive.ObjectID) (string, error) {
	var (
		addr *models.Address
		err  error
	)
	if addressID != nil {
		addr, err = s.addresses.FindByID(ctx, userID, *addressID)
	} else {
		addr, err = s.addresses.DefaultForUser(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrNoAddress
		}
		return "", apperr.Upstream("could not load address", err)
	}
	return addr.FullText(), nil
}

// toMinorUnits converts a rupee amount to paise without float drift.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
