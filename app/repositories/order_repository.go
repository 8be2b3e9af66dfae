package repositories

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charvilabs/charvi/app/models"
)

// OrderRepository handles the orders collection.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection("orders")}
}

// Create inserts the order and fills in its generated id.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}

	res, err := r.col.InsertOne(ctx, o)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = id
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

// FindByCode looks up an order by its human-facing code. Codes are stored
// uppercase, so the lookup is case-insensitive for callers.
func (r *OrderRepository) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	var o models.Order
	err := r.col.FindOne(ctx, bson.M{"code": strings.ToUpper(code)}).Decode(&o)
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

// RecentByUser returns the user's most recent orders, newest first.
func (r *OrderRepository) RecentByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "order_date", Value: -1}}).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Order
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// All returns orders page by page for the admin listing, newest first.
func (r *OrderRepository) All(ctx context.Context, page, limit int64) ([]models.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "order_date", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.Order
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SetStatus updates only the status field.
func (r *OrderRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now().UTC()},
	})
}

// SetShipped moves the order to Shipped with a fresh hashed OTP, resetting
// the attempt counter and the verified flag.
func (r *OrderRepository) SetShipped(ctx context.Context, id primitive.ObjectID, otpHash string, expiresAt time.Time) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"status":         models.StatusShipped,
			"delivery_otp":   otpHash,
			"otp_expires_at": expiresAt.UTC(),
			"otp_verified":   false,
			"otp_attempts":   0,
			"updated_at":     time.Now().UTC(),
		},
	})
}

// MarkDelivered finalises a successful OTP verification: status Delivered,
// verified flag set, OTP fields cleared in the same update.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"status":       models.StatusDelivered,
			"otp_verified": true,
			"otp_attempts": 0,
			"updated_at":   time.Now().UTC(),
		},
		"$unset": bson.M{"delivery_otp": "", "otp_expires_at": ""},
	})
}

// IncrementOtpAttempts bumps the attempt counter after a failed verification.
func (r *OrderRepository) IncrementOtpAttempts(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{
		"$inc": bson.M{"otp_attempts": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveItem pulls one line item and decrements the total in a single atomic
// update. When the removed item was the last one, forceCancel also flips the
// status to Cancelled.
func (r *OrderRepository) RemoveItem(ctx context.Context, id, productID primitive.ObjectID, delta float64, forceCancel bool) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if forceCancel {
		set["status"] = models.StatusCancelled
	}
	return r.updateOne(ctx, id, bson.M{
		"$pull": bson.M{"items": bson.M{"product_id": productID}},
		"$inc":  bson.M{"total_amount": -delta},
		"$set":  set,
	})
}

// SetPayment records the provider payment reference after verification.
func (r *OrderRepository) SetPayment(ctx context.Context, id primitive.ObjectID, providerOrderID, paymentID string) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"provider_order_id": providerOrderID,
			"payment_id":        paymentID,
			"updated_at":        time.Now().UTC(),
		},
	})
}

func (r *OrderRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
