package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is the canonical cart line shape. Older documents stored several
// variants (bare product-id strings, nested {product, quantity} pairs); the
// cart normalizer folds all of them into this form before anything else sees
// them.
//
// ProductID stays a string: a legacy line whose reference never resolved is
// preserved as-is rather than discarded. Price is nil when it is unknown, and
// Subtotal is nil exactly when Price is.
type CartItem struct {
	ProductID string   `bson:"productId" json:"productId"`
	Title     string   `bson:"title,omitempty" json:"title,omitempty"`
	Price     *float64 `bson:"price,omitempty" json:"price"`
	Quantity  int      `bson:"quantity" json:"quantity"`
	Image     string   `bson:"image,omitempty" json:"image,omitempty"`
	Subtotal  *float64 `bson:"-" json:"subtotal"`
}

// Cart is the cart document. Items is kept raw so legacy shapes (bare id
// strings next to documents) survive the read path and reach the normalizer
// intact.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	Items     []bson.RawValue    `bson:"items" json:"-"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// NormalizedCart is the canonical view handed to controllers and the chat
// cart handler.
type NormalizedCart struct {
	Items    []CartItem `json:"items"`
	Subtotal float64    `json:"subtotal"`
}
