package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

// fakeCartStore keeps canonical lines per user and records the mutations the
// service issues. Seeding rawItems serves a document in its stored (possibly
// legacy) shape instead, the way Mongo would.
type fakeCartStore struct {
	items    map[primitive.ObjectID][]models.CartItem
	rawItems map[primitive.ObjectID][]bson.RawValue

	replaced    map[primitive.ObjectID][]models.CartItem
	setCalls    int
	removeCalls int
	emptyChecks int
	deleted     []primitive.ObjectID
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{
		items:    map[primitive.ObjectID][]models.CartItem{},
		rawItems: map[primitive.ObjectID][]bson.RawValue{},
		replaced: map[primitive.ObjectID][]models.CartItem{},
	}
}

func (f *fakeCartStore) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	if raw, ok := f.rawItems[userID]; ok {
		return &models.Cart{UserID: userID, Items: raw}, nil
	}
	items, ok := f.items[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	raw := make([]bson.RawValue, len(items))
	for i, it := range items {
		bt, data, err := bson.MarshalValue(it)
		if err != nil {
			return nil, err
		}
		raw[i] = bson.RawValue{Type: bt, Value: data}
	}
	return &models.Cart{UserID: userID, Items: raw}, nil
}

func (f *fakeCartStore) AddItem(_ context.Context, userID primitive.ObjectID, item models.CartItem) error {
	for i, it := range f.items[userID] {
		if it.ProductID == item.ProductID {
			f.items[userID][i].Quantity += item.Quantity
			return nil
		}
	}
	f.items[userID] = append(f.items[userID], item)
	return nil
}

func (f *fakeCartStore) SetItemQuantity(_ context.Context, userID primitive.ObjectID, productID string, quantity int) error {
	f.setCalls++
	for i, it := range f.items[userID] {
		if it.ProductID == productID {
			f.items[userID][i].Quantity = quantity
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeCartStore) RemoveItem(_ context.Context, userID primitive.ObjectID, productID string) error {
	f.removeCalls++
	for i, it := range f.items[userID] {
		if it.ProductID == productID {
			f.items[userID] = append(f.items[userID][:i], f.items[userID][i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeCartStore) ReplaceItems(_ context.Context, userID primitive.ObjectID, items []models.CartItem) error {
	f.replaced[userID] = items
	f.items[userID] = items
	delete(f.rawItems, userID)
	return nil
}

func (f *fakeCartStore) DeleteIfEmpty(_ context.Context, userID primitive.ObjectID) error {
	f.emptyChecks++
	if len(f.items[userID]) == 0 {
		delete(f.items, userID)
	}
	return nil
}

func (f *fakeCartStore) Delete(_ context.Context, userID primitive.ObjectID) error {
	f.deleted = append(f.deleted, userID)
	delete(f.items, userID)
	delete(f.rawItems, userID)
	return nil
}

// ─── Harness ──────────────────────────────────────────────────────────────────

type cartFixture struct {
	svc    *CartService
	store  *fakeCartStore
	userID primitive.ObjectID
	pid    primitive.ObjectID
}

func newCartFixture() *cartFixture {
	pid := primitive.NewObjectID()
	products := &fakeProducts{
		byID: map[primitive.ObjectID]*models.Product{
			pid: {ID: pid, Title: "Silk Scarf", Price: 30, Image: "scarf.jpg", SKU: "SCARF-1", Slug: "silk-scarf"},
		},
		byAlt: map[string]*models.Product{},
	}
	products.byAlt["SCARF-1"] = products.byID[pid]

	store := newFakeCartStore()
	return &cartFixture{
		svc:    NewCartService(store, NewCartNormalizer(products), products),
		store:  store,
		userID: primitive.NewObjectID(),
		pid:    pid,
	}
}

func (fx *cartFixture) seedScarf(t *testing.T, quantity int) {
	t.Helper()
	_, err := fx.svc.Add(context.Background(), fx.userID, fx.pid.Hex(), quantity)
	require.NoError(t, err)
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestCartAddSnapshotsProduct(t *testing.T) {
	fx := newCartFixture()

	out, err := fx.svc.Add(context.Background(), fx.userID, fx.pid.Hex(), 2)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)

	it := out.Items[0]
	assert.Equal(t, fx.pid.Hex(), it.ProductID)
	assert.Equal(t, "Silk Scarf", it.Title)
	require.NotNil(t, it.Price)
	assert.Equal(t, 30.0, *it.Price)
	assert.Equal(t, 2, it.Quantity)
	assert.InDelta(t, 60.0, out.Subtotal, 1e-9)
}

func TestCartAddRejectsNonPositiveQuantity(t *testing.T) {
	fx := newCartFixture()

	for _, q := range []int{0, -3} {
		_, err := fx.svc.Add(context.Background(), fx.userID, fx.pid.Hex(), q)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
	assert.Empty(t, fx.store.items[fx.userID], "rejected adds never touch the store")
}

func TestCartAddUnknownProduct(t *testing.T) {
	fx := newCartFixture()

	_, err := fx.svc.Add(context.Background(), fx.userID, "no-such-ref", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	fx := newCartFixture()
	fx.seedScarf(t, 2)

	out, err := fx.svc.SetQuantity(context.Background(), fx.userID, fx.pid.Hex(), 0)
	require.NoError(t, err)

	assert.Empty(t, out.Items)
	assert.Equal(t, 1, fx.store.removeCalls, "non-positive quantity goes through removal")
	assert.Zero(t, fx.store.setCalls)
}

func TestSetQuantityUpdatesLine(t *testing.T) {
	fx := newCartFixture()
	fx.seedScarf(t, 1)

	out, err := fx.svc.SetQuantity(context.Background(), fx.userID, fx.pid.Hex(), 5)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, 5, out.Items[0].Quantity)
	assert.InDelta(t, 150.0, out.Subtotal, 1e-9)
}

func TestSetQuantityMissingLine(t *testing.T) {
	fx := newCartFixture()
	fx.seedScarf(t, 1)

	_, err := fx.svc.SetQuantity(context.Background(), fx.userID, "other-product", 2)
	assert.ErrorIs(t, err, ErrCartItemMissing)
}

func TestRemoveLastLineDeletesCart(t *testing.T) {
	fx := newCartFixture()
	fx.seedScarf(t, 1)

	out, err := fx.svc.Remove(context.Background(), fx.userID, fx.pid.Hex())
	require.NoError(t, err)

	assert.Empty(t, out.Items)
	assert.Equal(t, 1, fx.store.emptyChecks, "removal triggers the empty-cart cleanup")
	_, ok := fx.store.items[fx.userID]
	assert.False(t, ok, "the emptied cart document is gone")
}

func TestRemoveMissingLine(t *testing.T) {
	fx := newCartFixture()

	_, err := fx.svc.Remove(context.Background(), fx.userID, fx.pid.Hex())
	assert.ErrorIs(t, err, ErrCartItemMissing)
}

func TestGetWithoutCartIsEmpty(t *testing.T) {
	fx := newCartFixture()

	out, err := fx.svc.Get(context.Background(), fx.userID)
	require.NoError(t, err)
	assert.NotNil(t, out.Items)
	assert.Empty(t, out.Items)
	assert.Zero(t, out.Subtotal)
}

func TestGetMigratesLegacyCart(t *testing.T) {
	fx := newCartFixture()
	fx.store.rawItems[fx.userID] = []bson.RawValue{
		rawValue(t, fx.pid.Hex()), // bare product reference
		rawValue(t, bson.M{
			"product":  bson.M{"_id": fx.pid, "title": "Silk Scarf", "price": 30.0},
			"quantity": 2,
		}),
	}

	out, err := fx.svc.Get(context.Background(), fx.userID)
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "Silk Scarf", out.Items[0].Title)
	assert.InDelta(t, 90.0, out.Subtotal, 1e-9)

	migrated, ok := fx.store.replaced[fx.userID]
	require.True(t, ok, "a legacy-shaped document is rewritten in canonical form")
	assert.Equal(t, out.Items, migrated)
}

func TestGetCanonicalCartSkipsMigration(t *testing.T) {
	fx := newCartFixture()
	fx.seedScarf(t, 1)
	fx.store.replaced = map[primitive.ObjectID][]models.CartItem{}

	_, err := fx.svc.Get(context.Background(), fx.userID)
	require.NoError(t, err)
	assert.Empty(t, fx.store.replaced, "canonical documents are not rewritten")
}

func TestClearDeletesCart(t *testing.T) {
	fx := newCartFixture()
	fx.seedScarf(t, 1)

	require.NoError(t, fx.svc.Clear(context.Background(), fx.userID))
	assert.Equal(t, []primitive.ObjectID{fx.userID}, fx.store.deleted)
	_, ok := fx.store.items[fx.userID]
	assert.False(t, ok)
}
