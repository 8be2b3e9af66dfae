package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charvilabs/charvi/app/models"
)

// ReviewRepository handles the one-document-per-product review aggregates.
type ReviewRepository struct {
	col *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{col: db.Collection("reviews")}
}

// Upsert replaces the user's existing sub-review in place, or appends one,
// creating the aggregate document on the product's first review.
func (r *ReviewRepository) Upsert(ctx context.Context, productID primitive.ObjectID, review models.Review) error {
	now := time.Now().UTC()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"product_id": productID, "reviews.user_id": review.UserID},
		bson.M{
			"$set": bson.M{"reviews.$": review, "updated_at": now},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	_, err = r.col.UpdateOne(ctx,
		bson.M{"product_id": productID},
		bson.M{
			"$push": bson.M{"reviews": review},
			"$set":  bson.M{"updated_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *ReviewRepository) FindByProduct(ctx context.Context, productID primitive.ObjectID) (*models.ProductReviews, error) {
	var pr models.ProductReviews
	err := r.col.FindOne(ctx, bson.M{"product_id": productID}).Decode(&pr)
	if err != nil {
		return nil, mapErr(err)
	}
	return &pr, nil
}
