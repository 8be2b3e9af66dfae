package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
)

type fakeReviewStore struct {
	byProduct map[primitive.ObjectID]*models.ProductReviews
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{byProduct: map[primitive.ObjectID]*models.ProductReviews{}}
}

func (f *fakeReviewStore) Upsert(_ context.Context, productID primitive.ObjectID, review models.Review) error {
	pr, ok := f.byProduct[productID]
	if !ok {
		pr = &models.ProductReviews{ID: primitive.NewObjectID(), ProductID: productID}
		f.byProduct[productID] = pr
	}
	for i, existing := range pr.Reviews {
		if existing.UserID == review.UserID {
			pr.Reviews[i] = review
			return nil
		}
	}
	pr.Reviews = append(pr.Reviews, review)
	return nil
}

func (f *fakeReviewStore) FindByProduct(_ context.Context, productID primitive.ObjectID) (*models.ProductReviews, error) {
	pr, ok := f.byProduct[productID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *pr
	return &cp, nil
}

type reviewFixture struct {
	svc     *ReviewService
	product *models.Product
	userID  primitive.ObjectID
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()

	catalog := newFakeCatalogStore()
	product := &models.Product{Title: "Chanderi Saree", Price: 1899, Stock: 5}
	require.NoError(t, catalog.Create(context.Background(), product))

	users := newFakeUserStore()
	user := &models.User{Name: "Meera", Email: "meera@example.com"}
	require.NoError(t, users.Create(context.Background(), user))

	svc := NewReviewService(newFakeReviewStore(), catalog, users)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

	return &reviewFixture{svc: svc, product: product, userID: user.ID}
}

func TestSubmitReviewReplacesPrevious(t *testing.T) {
	fx := newReviewFixture(t)

	first, err := fx.svc.Submit(context.Background(), fx.userID, fx.product.ID, 3, "decent")
	require.NoError(t, err)
	require.Len(t, first.Reviews, 1)
	assert.Equal(t, "Meera", first.Reviews[0].UserName)

	second, err := fx.svc.Submit(context.Background(), fx.userID, fx.product.ID, 5, "grew on me")
	require.NoError(t, err)
	require.Len(t, second.Reviews, 1)
	assert.Equal(t, 5, second.Reviews[0].Rating)
	assert.Equal(t, "grew on me", second.Reviews[0].Comment)
}

func TestSubmitReviewValidation(t *testing.T) {
	fx := newReviewFixture(t)

	_, err := fx.svc.Submit(context.Background(), fx.userID, fx.product.ID, 0, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = fx.svc.Submit(context.Background(), fx.userID, fx.product.ID, 6, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = fx.svc.Submit(context.Background(), fx.userID, primitive.NewObjectID(), 4, "")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAverageRating(t *testing.T) {
	fx := newReviewFixture(t)

	_, ok, err := fx.svc.AverageRating(context.Background(), fx.product.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	otherUser := primitive.NewObjectID()
	require.NoError(t, fx.svc.reviews.Upsert(context.Background(), fx.product.ID, models.Review{
		UserID: otherUser, UserName: "Asha", Rating: 2,
	}))
	_, err = fx.svc.Submit(context.Background(), fx.userID, fx.product.ID, 5, "")
	require.NoError(t, err)

	avg, ok, err := fx.svc.AverageRating(context.Background(), fx.product.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 3.5, avg, 0.001)
}
