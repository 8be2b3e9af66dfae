package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/charvilabs/charvi/app/models"
)

// AddressRepository handles the addresses collection.
type AddressRepository struct {
	col *mongo.Collection
}

func NewAddressRepository(db *mongo.Database) *AddressRepository {
	return &AddressRepository{col: db.Collection("addresses")}
}

func (r *AddressRepository) Create(ctx context.Context, a *models.Address) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, a)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = id
	}
	return nil
}

func (r *AddressRepository) Update(ctx context.Context, a *models.Address) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": a.ID, "user_id": a.UserID}, a)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AddressRepository) FindByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Address, error) {
	var a models.Address
	err := r.col.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&a)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *AddressRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Address
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetDefault makes one address the default, clearing the flag on the rest.
func (r *AddressRepository) SetDefault(ctx context.Context, userID, id primitive.ObjectID) error {
	now := time.Now().UTC()

	if _, err := r.col.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_default": true},
		bson.M{"$set": bson.M{"is_default": false, "updated_at": now}},
	); err != nil {
		return err
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_default": true, "updated_at": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DefaultForUser returns the user's default address, or any address when no
// default is marked.
func (r *AddressRepository) DefaultForUser(ctx context.Context, userID primitive.ObjectID) (*models.Address, error) {
	var a models.Address
	err := r.col.FindOne(ctx, bson.M{"user_id": userID, "is_default": true}).Decode(&a)
	if err == nil {
		return &a, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	err = r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&a)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}
