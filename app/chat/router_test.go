package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

type fakeOrders struct {
	byCode map[string]*models.Order
	recent []models.Order
	calls  int
}

func (f *fakeOrders) GetByCode(_ context.Context, code string) (*models.Order, error) {
	f.calls++
	if o, ok := f.byCode[code]; ok {
		return o, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeOrders) Recent(_ context.Context, _ primitive.ObjectID, limit int64) ([]models.Order, error) {
	f.calls++
	if int64(len(f.recent)) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

type fakeCarts struct {
	cart  models.NormalizedCart
	calls int
}

func (f *fakeCarts) Get(_ context.Context, _ primitive.ObjectID) (models.NormalizedCart, error) {
	f.calls++
	return f.cart, nil
}

// downCompleter simulates an unreachable LLM service.
type downCompleter struct{ calls int }

func (d *downCompleter) Complete(context.Context, string, string) (string, error) {
	d.calls++
	return "", errors.New("connection refused")
}

// scriptedCompleter returns fixed output.
type scriptedCompleter struct{ out string }

func (s *scriptedCompleter) Complete(context.Context, string, string) (string, error) {
	return s.out, nil
}

func someUser() *primitive.ObjectID {
	id := primitive.NewObjectID()
	return &id
}

func shippedOrder(userID primitive.ObjectID) *models.Order {
	return &models.Order{
		ID:              primitive.NewObjectID(),
		Code:            "ORD-7F3A2B",
		UserID:          userID,
		Status:          models.StatusShipped,
		TotalAmount:     100,
		ShippingAddress: "12 Rose Lane, Indiranagar, Bangalore, 560038",
	}
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestGreetingIsDeterministic(t *testing.T) {
	down := &downCompleter{}
	r := NewRouter(&fakeOrders{}, &fakeCarts{}, down)

	for _, msg := range []string{"hi", "Hello!", "  hey  ", "good morning"} {
		out := r.Handle(context.Background(), nil, msg)
		assert.Equal(t, IntentGreeting, out.Intent, msg)
		assert.Equal(t, greetingReply, out.Message, msg)
		assert.Equal(t, 1.0, out.Confidence, msg)
	}
	assert.Zero(t, down.calls, "rule tier must not call the classifier")
}

func TestCartAnonymousPromptsLoginWithoutDBCall(t *testing.T) {
	carts := &fakeCarts{}
	r := NewRouter(&fakeOrders{}, carts, &downCompleter{})

	out := r.Handle(context.Background(), nil, "my cart")
	assert.Equal(t, IntentCart, out.Intent)
	assert.Equal(t, loginPrompt, out.Message)
	assert.Zero(t, carts.calls, "anonymous cart intent must not touch the store")
}

func TestCartShowsNormalizedItems(t *testing.T) {
	price, sub := 30.0, 60.0
	carts := &fakeCarts{cart: models.NormalizedCart{
		Items:    []models.CartItem{{ProductID: "p1", Title: "Silk Scarf", Price: &price, Quantity: 2, Subtotal: &sub}},
		Subtotal: 60,
	}}
	r := NewRouter(&fakeOrders{}, carts, &downCompleter{})

	out := r.Handle(context.Background(), someUser(), "my cart")
	assert.Equal(t, IntentCart, out.Intent)
	assert.Contains(t, out.Message, "Silk Scarf x2")
	assert.Contains(t, out.Message, "Subtotal: 60.00")
	assert.Equal(t, 1, carts.calls)
}

func TestTrackUnknownOrderWithClassifierDown(t *testing.T) {
	r := NewRouter(&fakeOrders{byCode: map[string]*models.Order{}}, &fakeCarts{}, &downCompleter{})

	out := r.Handle(context.Background(), someUser(), "track order ORD123")
	assert.Equal(t, IntentTrackOrder, out.Intent)
	assert.Contains(t, out.Message, "ORD123")
	assert.Contains(t, out.Message, "couldn't find")
	assert.Equal(t, heuristicConfidence, out.Confidence, "heuristic tier supplied the classification")
}

func TestTrackByCodeRedactsAddress(t *testing.T) {
	user := someUser()
	order := shippedOrder(*user)
	orders := &fakeOrders{byCode: map[string]*models.Order{"ORD-7F3A2B": order}}
	r := NewRouter(orders, &fakeCarts{}, &downCompleter{})

	out := r.Handle(context.Background(), user, "where is my order ORD-7F3A2B?")
	assert.Equal(t, IntentTrackOrder, out.Intent)
	assert.Contains(t, out.Message, "ORD-7F3A2B")
	assert.Contains(t, out.Message, "Bangalore, 560038")
	assert.NotContains(t, out.Message, "Rose Lane", "street line must be redacted")
}

func TestTrackSomeoneElsesOrderReadsAsNotFound(t *testing.T) {
	order := shippedOrder(primitive.NewObjectID())
	orders := &fakeOrders{byCode: map[string]*models.Order{"ORD-7F3A2B": order}}
	r := NewRouter(orders, &fakeCarts{}, &downCompleter{})

	out := r.Handle(context.Background(), someUser(), "track ORD-7F3A2B")
	assert.Contains(t, out.Message, "couldn't find")
}

func TestTrackByIndex(t *testing.T) {
	user := someUser()
	orders := &fakeOrders{recent: []models.Order{
		{Code: "ORD-AAAAAA", Status: models.StatusDelivered, TotalAmount: 10, ShippingAddress: "a, b, c"},
		{Code: "ORD-BBBBBB", Status: models.StatusProcessing, TotalAmount: 20, ShippingAddress: "a, b, c"},
	}}
	r := NewRouter(orders, &fakeCarts{}, &downCompleter{})

	out := r.Handle(context.Background(), user, "track order number 2")
	assert.Contains(t, out.Message, "ORD-BBBBBB")
	assert.Contains(t, out.Message, "packing")
}

func TestTrackWithoutReferenceListsOrders(t *testing.T) {
	user := someUser()
	orders := &fakeOrders{recent: []models.Order{
		{Code: "ORD-AAAAAA", Status: models.StatusShipped, TotalAmount: 10},
		{Code: "ORD-BBBBBB", Status: models.StatusPending, TotalAmount: 20},
	}}
	r := NewRouter(orders, &fakeCarts{}, &downCompleter{})

	out := r.Handle(context.Background(), user, "track my order")
	assert.Contains(t, out.Message, "Which order")
	assert.Contains(t, out.Message, "1) ORD-AAAAAA")
	assert.Contains(t, out.Message, "2) ORD-BBBBBB")
}

func TestTrackAnonymousWithoutCode(t *testing.T) {
	r := NewRouter(&fakeOrders{}, &fakeCarts{}, &downCompleter{})

	out := r.Handle(context.Background(), nil, "track my order")
	assert.Equal(t, loginPrompt, out.Message)
}

func TestRecentOrdersPlainFallback(t *testing.T) {
	user := someUser()
	orders := &fakeOrders{recent: []models.Order{
		{Code: "ORD-AAAAAA", Status: models.StatusDelivered, TotalAmount: 42},
	}}
	r := NewRouter(orders, &fakeCarts{}, &downCompleter{})

	out := r.Handle(context.Background(), user, "show my order history")
	assert.Equal(t, IntentRecentOrders, out.Intent)
	assert.Contains(t, out.Message, "ORD-AAAAAA")
	assert.Contains(t, out.Message, "Delivered")
}

func TestFreeformFallsBackToApology(t *testing.T) {
	r := NewRouter(&fakeOrders{}, &fakeCarts{}, &downCompleter{})

	out := r.Handle(context.Background(), nil, "tell me about quantum gravity maybe")
	assert.Equal(t, IntentUnknown, out.Intent)
	assert.Contains(t, out.Message, "Sorry, something went wrong")
}

func TestClassifierJSONDrivesDispatch(t *testing.T) {
	user := someUser()
	order := shippedOrder(*user)
	orders := &fakeOrders{byCode: map[string]*models.Order{"ORD-7F3A2B": order}}
	completer := &scriptedCompleter{out: `{"intent":"track_order","orderId":"ORD-7F3A2B","confidence":0.95,"normalizedText":"track order"}`}
	r := NewRouter(orders, &fakeCarts{}, completer)

	out := r.Handle(context.Background(), user, "hey can u chk on my parcel, code is in my mail somewhere")
	assert.Equal(t, IntentTrackOrder, out.Intent)
	assert.Equal(t, 0.95, out.Confidence)
	assert.Contains(t, out.Message, "on the way")
}

func TestClassifierGarbageFallsBackToHeuristic(t *testing.T) {
	completer := &scriptedCompleter{out: "I think the user wants to see their cart!"}
	carts := &fakeCarts{}
	r := NewRouter(&fakeOrders{}, carts, completer)

	out := r.Handle(context.Background(), nil, "show me my cart please")
	require.Equal(t, IntentCart, out.Intent, "heuristic should recognize the cart keyword")
	assert.Equal(t, heuristicConfidence, out.Confidence)
	assert.Equal(t, loginPrompt, out.Message)
}
