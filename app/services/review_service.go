package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
)

// ReviewStore is the persistence surface for product review aggregates.
type ReviewStore interface {
	Upsert(ctx context.Context, productID primitive.ObjectID, review models.Review) error
	FindByProduct(ctx context.Context, productID primitive.ObjectID) (*models.ProductReviews, error)
}

// ReviewService manages product reviews. A user keeps at most one review per
// product; re-submitting replaces it.
type ReviewService struct {
	reviews  ReviewStore
	products CatalogStore
	users    UserLookup
	now      func() time.Time
}

func NewReviewService(reviews ReviewStore, products CatalogStore, users UserLookup) *ReviewService {
	return &ReviewService{reviews: reviews, products: products, users: users, now: time.Now}
}

// Submit adds or replaces the user's review of a product.
func (s *ReviewService) Submit(ctx context.Context, userID, productID primitive.ObjectID, rating int, comment string) (*models.ProductReviews, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperr.Upstream("could not load product", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream("could not load reviewer", err)
	}

	review := models.Review{
		UserID:    userID,
		UserName:  user.Name,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.reviews.Upsert(ctx, productID, review); err != nil {
		return nil, apperr.Upstream("could not save review", err)
	}
	return s.ForProduct(ctx, productID)
}

// ForProduct returns the product's review aggregate; a product nobody has
// reviewed yet yields an empty aggregate, not an error.
func (s *ReviewService) ForProduct(ctx context.Context, productID primitive.ObjectID) (*models.ProductReviews, error) {
	pr, err := s.reviews.FindByProduct(ctx, productID)
	if errors.Is(err, repositories.ErrNotFound) {
		return &models.ProductReviews{ProductID: productID, Reviews: []models.Review{}}, nil
	}
	if err != nil {
		return nil, apperr.Upstream("could not load reviews", err)
	}
	return pr, nil
}

// AverageRating computes the product's mean rating; ok is false when there
// are no reviews.
func (s *ReviewService) AverageRating(ctx context.Context, productID primitive.ObjectID) (float64, bool, error) {
	pr, err := s.ForProduct(ctx, productID)
	if err != nil {
		return 0, false, err
	}
	if len(pr.Reviews) == 0 {
		return 0, false, nil
	}

	var sum int
	for _, r := range pr.Reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(pr.Reviews)), true, nil
}
