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

// CartRepository handles the carts collection (one document per user).
// Items are read raw so legacy line shapes reach the normalizer intact.
type CartRepository struct {
	col *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{col: db.Collection("carts")}
}

func (r *CartRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var c models.Cart
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&c)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// AddItem increments the quantity of an existing line or pushes a new one,
// creating the cart document on first add.
func (r *CartRepository) AddItem(ctx context.Context, userID primitive.ObjectID, item models.CartItem) error {
	now := time.Now().UTC()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.productId": item.ProductID},
		bson.M{
			"$inc": bson.M{"items.$.quantity": item.Quantity},
			"$set": bson.M{"updated_at": now},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	_, err = r.col.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$push": bson.M{"items": item},
			"$set":  bson.M{"updated_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// SetItemQuantity sets the quantity on one line.
func (r *CartRepository) SetItemQuantity(ctx context.Context, userID primitive.ObjectID, productID string, quantity int) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.productId": productID},
		bson.M{
			"$set": bson.M{"items.$.quantity": quantity, "updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveItem pulls one line from the cart.
func (r *CartRepository) RemoveItem(ctx context.Context, userID primitive.ObjectID, productID string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"productId": productID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceItems writes the canonical item list back, migrating any legacy
// shapes the normalizer digested.
func (r *CartRepository) ReplaceItems(ctx context.Context, userID primitive.ObjectID, items []models.CartItem) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"items": items, "updated_at": time.Now().UTC()}},
	)
	return err
}

// DeleteIfEmpty removes the cart document when its item list is empty.
func (r *CartRepository) DeleteIfEmpty(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{
		"user_id": userID,
		"items":   bson.M{"$size": 0},
	})
	return err
}

// Delete removes the cart outright (after successful checkout).
func (r *CartRepository) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
