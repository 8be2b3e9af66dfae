package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
)

type fakeWishlistStore struct {
	byUser map[primitive.ObjectID][]primitive.ObjectID
}

func newFakeWishlistStore() *fakeWishlistStore {
	return &fakeWishlistStore{byUser: map[primitive.ObjectID][]primitive.ObjectID{}}
}

func (f *fakeWishlistStore) Add(_ context.Context, userID, productID primitive.ObjectID) error {
	for _, pid := range f.byUser[userID] {
		if pid == productID {
			return nil
		}
	}
	f.byUser[userID] = append(f.byUser[userID], productID)
	return nil
}

func (f *fakeWishlistStore) Remove(_ context.Context, userID, productID primitive.ObjectID) error {
	list, ok := f.byUser[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	for i, pid := range list {
		if pid == productID {
			f.byUser[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeWishlistStore) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.Wishlist, error) {
	list, ok := f.byUser[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &models.Wishlist{UserID: userID, Products: list}, nil
}

func TestWishlistAddAndGet(t *testing.T) {
	catalog := newFakeCatalogStore()
	product := &models.Product{Title: "Anarkali Set", Price: 2499, Stock: 4}
	require.NoError(t, catalog.Create(context.Background(), product))

	svc := NewWishlistService(newFakeWishlistStore(), catalog)
	userID := primitive.NewObjectID()

	require.NoError(t, svc.Add(context.Background(), userID, product.ID))
	// Duplicate adds collapse.
	require.NoError(t, svc.Add(context.Background(), userID, product.ID))

	got, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, product.ID, got[0].ID)
}

func TestWishlistAddUnknownProduct(t *testing.T) {
	svc := NewWishlistService(newFakeWishlistStore(), newFakeCatalogStore())

	err := svc.Add(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestWishlistSkipsDeletedProducts(t *testing.T) {
	catalog := newFakeCatalogStore()
	keep := &models.Product{Title: "Potli Bag", Price: 799, Stock: 2}
	gone := &models.Product{Title: "Discontinued", Price: 100, Stock: 0}
	require.NoError(t, catalog.Create(context.Background(), keep))
	require.NoError(t, catalog.Create(context.Background(), gone))

	svc := NewWishlistService(newFakeWishlistStore(), catalog)
	userID := primitive.NewObjectID()
	require.NoError(t, svc.Add(context.Background(), userID, keep.ID))
	require.NoError(t, svc.Add(context.Background(), userID, gone.ID))

	require.NoError(t, catalog.Delete(context.Background(), gone.ID))

	got, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, keep.ID, got[0].ID)
}

func TestWishlistRemoveIsIdempotent(t *testing.T) {
	svc := NewWishlistService(newFakeWishlistStore(), newFakeCatalogStore())

	// Nothing was ever added; removal still succeeds.
	assert.NoError(t, svc.Remove(context.Background(), primitive.NewObjectID(), primitive.NewObjectID()))
}

func TestWishlistEmptyForNewUser(t *testing.T) {
	svc := NewWishlistService(newFakeWishlistStore(), newFakeCatalogStore())

	got, err := svc.Get(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, got)
}
