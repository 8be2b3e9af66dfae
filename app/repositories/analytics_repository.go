package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/charvilabs/charvi/app/models"
)

// SalesByDay is one bucket of the daily sales aggregation.
type SalesByDay struct {
	Day     string  `bson:"_id" json:"day"` // YYYY-MM-DD
	Orders  int64   `bson:"orders" json:"orders"`
	Revenue float64 `bson:"revenue" json:"revenue"`
}

// CategoryRevenue is one bucket of the revenue-by-category aggregation.
type CategoryRevenue struct {
	Category string  `bson:"_id" json:"category"`
	Revenue  float64 `bson:"revenue" json:"revenue"`
	Units    int64   `bson:"units" json:"units"`
}

// StatusCount is one bucket of the order-count-by-status aggregation.
type StatusCount struct {
	Status string `bson:"_id" json:"status"`
	Count  int64  `bson:"count" json:"count"`
}

// AnalyticsRepository runs the admin aggregation pipelines over orders.
type AnalyticsRepository struct {
	orders *mongo.Collection
}

func NewAnalyticsRepository(db *mongo.Database) *AnalyticsRepository {
	return &AnalyticsRepository{orders: db.Collection("orders")}
}

// excluded statuses carry no revenue.
var nonRevenueStatuses = []string{models.StatusCancelled, models.StatusRefunded, models.StatusReturnedRefund}

// SalesByDay groups order revenue per calendar day since the given time.
func (r *AnalyticsRepository) SalesByDay(ctx context.Context, since time.Time) ([]SalesByDay, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"order_date": bson.M{"$gte": since.UTC()},
			"status":     bson.M{"$nin": nonRevenueStatuses},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$order_date"}},
			"orders":  bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$total_amount"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cur, err := r.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []SalesByDay
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RevenueByCategory unwinds order lines, joins the product catalog, and
// groups line revenue by product category.
func (r *AnalyticsRepository) RevenueByCategory(ctx context.Context) ([]CategoryRevenue, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$nin": nonRevenueStatuses}}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "products",
			"localField":   "items.product_id",
			"foreignField": "_id",
			"as":           "product",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$product", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"$ifNull": []interface{}{"$product.category", "uncategorized"}},
			"revenue": bson.M{"$sum": bson.M{"$multiply": []interface{}{"$items.price", "$items.quantity"}}},
			"units":   bson.M{"$sum": "$items.quantity"},
		}}},
		{{Key: "$sort", Value: bson.M{"revenue": -1}}},
	}

	cur, err := r.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []CategoryRevenue
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByStatus groups orders by their current status.
func (r *AnalyticsRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
	}

	cur, err := r.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []StatusCount
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
