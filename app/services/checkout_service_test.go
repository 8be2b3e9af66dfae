package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/payment"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

type fakeCheckoutCarts struct {
	cart    models.NormalizedCart
	cleared bool
}

func (f *fakeCheckoutCarts) Get(_ context.Context, _ primitive.ObjectID) (models.NormalizedCart, error) {
	return f.cart, nil
}

func (f *fakeCheckoutCarts) Clear(_ context.Context, _ primitive.ObjectID) error {
	f.cleared = true
	return nil
}

type fakeCheckoutOrders struct {
	created *models.Order
}

func (f *fakeCheckoutOrders) Create(_ context.Context, userID primitive.ObjectID, items []models.LineItem, shippingAddress string) (*models.Order, error) {
	o := &models.Order{
		ID:              primitive.NewObjectID(),
		Code:            "ORD-TEST01",
		UserID:          userID,
		Items:           items,
		Status:          models.StatusPending,
		ShippingAddress: shippingAddress,
	}
	o.TotalAmount = o.ItemsTotal()
	f.created = o
	return o, nil
}

func (f *fakeCheckoutOrders) RecordPayment(_ context.Context, _ primitive.ObjectID, providerOrderID, paymentID string) error {
	f.created.ProviderOrderID = providerOrderID
	f.created.PaymentID = paymentID
	return nil
}

type fakeAddressBook struct {
	def *models.Address
}

func (f *fakeAddressBook) FindByID(_ context.Context, _, _ primitive.ObjectID) (*models.Address, error) {
	return nil, repositories.ErrNotFound
}

func (f *fakeAddressBook) DefaultForUser(_ context.Context, _ primitive.ObjectID) (*models.Address, error) {
	if f.def == nil {
		return nil, repositories.ErrNotFound
	}
	return f.def, nil
}

type fakeProvider struct {
	configured bool
	goodSig    string
	created    []int64
}

func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*payment.ProviderOrder, error) {
	f.created = append(f.created, amount)
	return &payment.ProviderOrder{ID: "pay_order_1", Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func (f *fakeProvider) VerifySignature(_, _, signature string) bool {
	return signature == f.goodSig
}

// ─── Fixture ──────────────────────────────────────────────────────────────────

func checkoutFixture() (*CheckoutService, *fakeCheckoutCarts, *fakeCheckoutOrders, *fakeProvider) {
	price := 249.5
	sub := 499.0
	carts := &fakeCheckoutCarts{cart: models.NormalizedCart{
		Items: []models.CartItem{{
			ProductID: primitive.NewObjectID().Hex(),
			Title:     "Block Print Dupatta",
			Price:     &price,
			Quantity:  2,
			Subtotal:  &sub,
		}},
		Subtotal: 499,
	}}
	orders := &fakeCheckoutOrders{}
	addresses := &fakeAddressBook{def: &models.Address{
		Line1: "12 Rose Lane", City: "Bangalore", State: "KA", PostalCode: "560038", Country: "India",
	}}
	provider := &fakeProvider{configured: true, goodSig: "valid-sig"}
	return NewCheckoutService(carts, orders, addresses, provider), carts, orders, provider
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestBeginCheckout(t *testing.T) {
	svc, _, _, provider := checkoutFixture()

	intent, err := svc.Begin(context.Background(), primitive.NewObjectID(), nil)
	require.NoError(t, err)

	assert.Equal(t, "pay_order_1", intent.ProviderOrderID)
	assert.Equal(t, int64(49900), intent.Amount, "rupees converted to paise")
	assert.Equal(t, 499.0, intent.Total)
	assert.Contains(t, intent.ShippingAddress, "Bangalore")
	assert.Equal(t, []int64{49900}, provider.created)
}

func TestBeginCheckoutEmptyCart(t *testing.T) {
	svc, carts, _, _ := checkoutFixture()
	carts.cart = models.NormalizedCart{}

	_, err := svc.Begin(context.Background(), primitive.NewObjectID(), nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestBeginCheckoutUnpricedLine(t *testing.T) {
	svc, carts, _, _ := checkoutFixture()
	carts.cart.Items = append(carts.cart.Items, models.CartItem{ProductID: "SKU-123", Quantity: 1})

	_, err := svc.Begin(context.Background(), primitive.NewObjectID(), nil)
	assert.ErrorIs(t, err, ErrUnpricedCart)
}

func TestBeginCheckoutWithoutAddress(t *testing.T) {
	svc, _, _, _ := checkoutFixture()
	svc.addresses = &fakeAddressBook{}

	_, err := svc.Begin(context.Background(), primitive.NewObjectID(), nil)
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestBeginCheckoutUnconfiguredProvider(t *testing.T) {
	svc, _, _, provider := checkoutFixture()
	provider.configured = false

	_, err := svc.Begin(context.Background(), primitive.NewObjectID(), nil)
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestConfirmCheckout(t *testing.T) {
	svc, carts, orders, _ := checkoutFixture()

	order, err := svc.Confirm(context.Background(), primitive.NewObjectID(), nil, "pay_order_1", "pay_123", "valid-sig")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 499.0, order.TotalAmount)
	assert.Equal(t, "pay_order_1", order.ProviderOrderID)
	assert.Equal(t, "pay_123", order.PaymentID)
	assert.True(t, carts.cleared, "cart is cleared after the order exists")
	assert.NotNil(t, orders.created)
}

func TestConfirmCheckoutBadSignature(t *testing.T) {
	svc, carts, orders, _ := checkoutFixture()

	_, err := svc.Confirm(context.Background(), primitive.NewObjectID(), nil, "pay_order_1", "pay_123", "forged")
	assert.ErrorIs(t, err, ErrBadSignature)
	assert.Nil(t, orders.created, "no order may exist for an unverified payment")
	assert.False(t, carts.cleared)
}
