package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a catalog entry. SKU and Slug are alternate identifiers used
// when a cart line carries something other than the Mongo id.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Slug        string             `bson:"slug" json:"slug"`
	SKU         string             `bson:"sku" json:"sku"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Price       float64            `bson:"price" json:"price"`
	Stock       int                `bson:"stock" json:"stock"`
	Image       string             `bson:"image" json:"image"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Review is one user's review inside a product's aggregate document.
type Review struct {
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	UserName  string             `bson:"user_name" json:"userName"`
	Rating    int                `bson:"rating" json:"rating"` // 1..5
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// ProductReviews is the one-document-per-product review aggregate. A user has
// at most one entry; re-submission replaces it in place.
type ProductReviews struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Reviews   []Review           `bson:"reviews" json:"reviews"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Wishlist is a per-user set of product references. Inserts go through
// $addToSet so duplicates never appear.
type Wishlist struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	UserID    primitive.ObjectID   `bson:"user_id" json:"userId"`
	Products  []primitive.ObjectID `bson:"products" json:"products"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updatedAt"`
}
