package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/otp"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

type fakeOrderStore struct {
	orders   map[primitive.ObjectID]*models.Order
	allPage  int64
	allLimit int64
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[primitive.ObjectID]*models.Order{}}
}

func (f *fakeOrderStore) Create(_ context.Context, o *models.Order) error {
	o.ID = primitive.NewObjectID()
	cp := *o
	cp.Items = append([]models.LineItem(nil), o.Items...)
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrderStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *o
	cp.Items = append([]models.LineItem(nil), o.Items...)
	return &cp, nil
}

func (f *fakeOrderStore) FindByCode(_ context.Context, code string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.Code == code {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeOrderStore) RecentByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID && int64(len(out)) < limit {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) All(_ context.Context, page, limit int64) ([]models.Order, int64, error) {
	f.allPage, f.allLimit = page, limit
	var out []models.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderStore) SetStatus(_ context.Context, id primitive.ObjectID, status string) error {
	o, ok := f.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeOrderStore) SetShipped(_ context.Context, id primitive.ObjectID, otpHash string, expiresAt time.Time) error {
	o, ok := f.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Status = models.StatusShipped
	o.DeliveryOtp = &otpHash
	o.OtpExpiresAt = &expiresAt
	o.OtpVerified = false
	o.OtpAttempts = 0
	return nil
}

func (f *fakeOrderStore) MarkDelivered(_ context.Context, id primitive.ObjectID) error {
	o, ok := f.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Status = models.StatusDelivered
	o.OtpVerified = true
	o.DeliveryOtp = nil
	o.OtpExpiresAt = nil
	o.OtpAttempts = 0
	return nil
}

func (f *fakeOrderStore) IncrementOtpAttempts(_ context.Context, id primitive.ObjectID) error {
	o, ok := f.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.OtpAttempts++
	return nil
}

func (f *fakeOrderStore) RemoveItem(_ context.Context, id, productID primitive.ObjectID, delta float64, forceCancel bool) error {
	o, ok := f.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	for i, li := range o.Items {
		if li.ProductID == productID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			break
		}
	}
	o.TotalAmount -= delta
	if forceCancel {
		o.Status = models.StatusCancelled
	}
	return nil
}

func (f *fakeOrderStore) SetPayment(_ context.Context, id primitive.ObjectID, providerOrderID, paymentID string) error {
	o, ok := f.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.ProviderOrderID = providerOrderID
	o.PaymentID = paymentID
	return nil
}

type fakeUsers struct {
	users map[primitive.ObjectID]*models.User
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingNotifier struct {
	sent []sentMail
	fail error
}

func (n *recordingNotifier) Notify(_ context.Context, to, subject, body string) error {
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return n.fail
}

// ─── Harness ──────────────────────────────────────────────────────────────────

type orderFixture struct {
	svc      *OrderService
	store    *fakeOrderStore
	notifier *recordingNotifier
	userID   primitive.ObjectID
	now      time.Time
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	userID := primitive.NewObjectID()
	store := newFakeOrderStore()
	notifier := &recordingNotifier{}
	users := &fakeUsers{users: map[primitive.ObjectID]*models.User{
		userID: {ID: userID, Name: "Asha", Email: "asha@example.com"},
	}}

	fx := &orderFixture{
		svc:      NewOrderService(store, users, notifier),
		store:    store,
		notifier: notifier,
		userID:   userID,
		now:      time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	fx.svc.now = func() time.Time { return fx.now }
	return fx
}

func (fx *orderFixture) twoItemOrder(t *testing.T) *models.Order {
	t.Helper()
	items := []models.LineItem{
		{ProductID: primitive.NewObjectID(), Title: "Silk Scarf", Price: 30, Quantity: 2},
		{ProductID: primitive.NewObjectID(), Title: "Clay Mug", Price: 40, Quantity: 1},
	}
	order, err := fx.svc.Create(context.Background(), fx.userID, items, "12 Rose Lane, Indiranagar, Bangalore, 560038")
	require.NoError(t, err)
	return order
}

var otpCodeRe = regexp.MustCompile(`\b(\d{6})\b`)

// shippedCode pulls the plaintext OTP out of the shipment email.
func (fx *orderFixture) shippedCode(t *testing.T) string {
	t.Helper()
	last := fx.notifier.sent[len(fx.notifier.sent)-1]
	m := otpCodeRe.FindStringSubmatch(last.Body)
	require.NotNil(t, m, "shipment mail must contain the 6-digit code: %s", last.Body)
	return m[1]
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestCreateOrder(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)

	assert.Equal(t, models.StatusPending, order.Status)
	assert.InDelta(t, 100.0, order.TotalAmount, 1e-9)
	assert.Regexp(t, `^ORD-[0-9A-F]{6}$`, order.Code)
	assert.Len(t, fx.notifier.sent, 1)
	assert.Equal(t, "asha@example.com", fx.notifier.sent[0].To)
}

func TestCreateOrderValidation(t *testing.T) {
	fx := newOrderFixture(t)

	_, err := fx.svc.Create(context.Background(), fx.userID, nil, "addr")
	assert.ErrorIs(t, err, ErrEmptyOrder)

	_, err = fx.svc.Create(context.Background(), fx.userID,
		[]models.LineItem{{ProductID: primitive.NewObjectID(), Price: 5, Quantity: 0}}, "addr")
	assert.ErrorIs(t, err, ErrBadQuantity)
	assert.Empty(t, fx.notifier.sent, "no notification for a rejected order")
}

func TestDirectDeliveredRejected(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)

	_, err := fx.svc.UpdateStatus(context.Background(), order.ID, models.StatusDelivered)
	assert.ErrorIs(t, err, ErrDeliveredViaUpdate)

	stored := fx.store.orders[order.ID]
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestUnknownStatusRejected(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)

	_, err := fx.svc.UpdateStatus(context.Background(), order.ID, "Teleported")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestShippingIssuesOtp(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)

	shipped, err := fx.svc.UpdateStatus(context.Background(), order.ID, models.StatusShipped)
	require.NoError(t, err)

	assert.Equal(t, models.StatusShipped, shipped.Status)
	require.NotNil(t, shipped.DeliveryOtp)
	require.NotNil(t, shipped.OtpExpiresAt)
	assert.Equal(t, fx.now.Add(otp.TTL), *shipped.OtpExpiresAt)
	assert.False(t, shipped.OtpVerified)

	code := fx.shippedCode(t)
	assert.Len(t, code, 6)
	assert.Equal(t, otp.Hash(code), *shipped.DeliveryOtp, "stored OTP must be the hash, not the plaintext")
	assert.NotContains(t, *shipped.DeliveryOtp, code)
}

func TestReshippingRotatesOtp(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)

	_, err := fx.svc.UpdateStatus(context.Background(), order.ID, models.StatusShipped)
	require.NoError(t, err)
	first := *fx.store.orders[order.ID].OtpExpiresAt

	fx.now = fx.now.Add(3 * time.Minute)
	_, err = fx.svc.UpdateStatus(context.Background(), order.ID, models.StatusShipped)
	require.NoError(t, err)

	second := *fx.store.orders[order.ID].OtpExpiresAt
	assert.True(t, second.After(first), "re-shipment must issue a fresh expiry")
	assert.Zero(t, fx.store.orders[order.ID].OtpAttempts)
}

func TestOtpVerificationLifecycle(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)

	_, err := fx.svc.UpdateStatus(context.Background(), order.ID, models.StatusShipped)
	require.NoError(t, err)
	code := fx.shippedCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	// Wrong code: rejected, only the attempt counter moves.
	_, err = fx.svc.VerifyDeliveryOtp(context.Background(), order.ID, wrong)
	assert.ErrorIs(t, err, ErrOtpMismatch)
	stored := fx.store.orders[order.ID]
	assert.Equal(t, models.StatusShipped, stored.Status)
	assert.Equal(t, 1, stored.OtpAttempts)
	assert.NotNil(t, stored.DeliveryOtp)

	// Correct code before expiry: Delivered, OTP fields cleared.
	delivered, err := fx.svc.VerifyDeliveryOtp(context.Background(), order.ID, code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, delivered.Status)
	assert.True(t, delivered.OtpVerified)
	assert.Nil(t, delivered.DeliveryOtp)
	assert.Nil(t, delivered.OtpExpiresAt)

	stored = fx.store.orders[order.ID]
	assert.Nil(t, stored.DeliveryOtp)
	assert.Nil(t, stored.OtpExpiresAt)
	assert.True(t, stored.OtpVerified)

	// Exactly one mail for placement, one for shipment, one for delivery.
	subjects := make([]string, 0, len(fx.notifier.sent))
	for _, m := range fx.notifier.sent {
		subjects = append(subjects, m.Subject)
	}
	require.Len(t, fx.notifier.sent, 3, "subjects: %v", subjects)
	assert.Contains(t, subjects[1], "shipped")
	assert.Contains(t, subjects[2], "delivered")
}

func TestOtpVerificationErrors(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)
	ctx := context.Background()

	_, err := fx.svc.VerifyDeliveryOtp(ctx, primitive.NewObjectID(), "123456")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = fx.svc.VerifyDeliveryOtp(ctx, order.ID, "123456")
	assert.ErrorIs(t, err, ErrNotShipped)

	// Shipped but the OTP fields were never written (legacy document).
	fx.store.orders[order.ID].Status = models.StatusShipped
	_, err = fx.svc.VerifyDeliveryOtp(ctx, order.ID, "123456")
	assert.ErrorIs(t, err, ErrNoOtpIssued)

	// Proper shipment, then expiry passes.
	_, err = fx.svc.UpdateStatus(ctx, order.ID, models.StatusShipped)
	require.NoError(t, err)
	code := fx.shippedCode(t)

	fx.now = fx.now.Add(otp.TTL + time.Second)
	_, err = fx.svc.VerifyDeliveryOtp(ctx, order.ID, code)
	assert.ErrorIs(t, err, ErrOtpExpired)
	assert.Equal(t, models.StatusShipped, fx.store.orders[order.ID].Status, "expiry must not mutate state")
}

func TestOtpAttemptsBounded(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)
	ctx := context.Background()

	_, err := fx.svc.UpdateStatus(ctx, order.ID, models.StatusShipped)
	require.NoError(t, err)
	code := fx.shippedCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < otp.MaxAttempts; i++ {
		_, err = fx.svc.VerifyDeliveryOtp(ctx, order.ID, wrong)
		assert.ErrorIs(t, err, ErrOtpMismatch)
	}

	// Budget exhausted: even the correct code is refused now.
	_, err = fx.svc.VerifyDeliveryOtp(ctx, order.ID, code)
	assert.ErrorIs(t, err, ErrTooManyOtpAttempts)
	assert.Equal(t, models.StatusShipped, fx.store.orders[order.ID].Status)
}

func TestCancelItemReducesTotal(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)
	first := order.Items[0] // 30 × 2 = 60

	updated, err := fx.svc.CancelItem(context.Background(), order.ID, first.ProductID)
	require.NoError(t, err)

	assert.Len(t, updated.Items, 1)
	assert.InDelta(t, 40.0, updated.TotalAmount, 1e-9)
	assert.NotEqual(t, models.StatusCancelled, updated.Status)

	// Cancelling the remaining item cancels the order.
	updated, err = fx.svc.CancelItem(context.Background(), order.ID, order.Items[1].ProductID)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
	assert.InDelta(t, 0.0, updated.TotalAmount, 1e-9)
	assert.Equal(t, models.StatusCancelled, updated.Status)
}

func TestCancelUnknownItem(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)

	_, err := fx.svc.CancelItem(context.Background(), order.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrProductNotInOrder)
	assert.Len(t, fx.store.orders[order.ID].Items, 2)
}

func TestReturnRequestUnconditional(t *testing.T) {
	fx := newOrderFixture(t)
	order := fx.twoItemOrder(t)

	updated, err := fx.svc.RequestReturn(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturnRequested, updated.Status)
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	fx := newOrderFixture(t)
	fx.notifier.fail = errors.New("smtp down")

	order, err := fx.svc.Create(context.Background(), fx.userID,
		[]models.LineItem{{ProductID: primitive.NewObjectID(), Title: "Mug", Price: 10, Quantity: 1}},
		"addr")
	require.NoError(t, err, "notification failure must not fail the operation")
	require.NotNil(t, order)

	_, err = fx.svc.UpdateStatus(context.Background(), order.ID, models.StatusProcessing)
	require.NoError(t, err)
	assert.Len(t, fx.notifier.sent, 2, "attempts are still made")
}

func TestListClampsPagination(t *testing.T) {
	fx := newOrderFixture(t)
	fx.twoItemOrder(t)

	out, err := fx.svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Page)
	assert.Equal(t, int64(20), out.PerPage)
	assert.Equal(t, int64(1), fx.store.allPage, "store sees the clamped page")
	assert.Equal(t, int64(20), fx.store.allLimit, "store sees the clamped limit")
	assert.Equal(t, int64(1), out.Total)

	out, err = fx.svc.List(context.Background(), 2, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Page)
	assert.Equal(t, int64(20), out.PerPage, "oversized limit falls back to the default")
}

func TestOrderCodeFormat(t *testing.T) {
	for i := 0; i < 64; i++ {
		assert.Regexp(t, `^ORD-[0-9A-F]{6}$`, newOrderCode())
	}
}
