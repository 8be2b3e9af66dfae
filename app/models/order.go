package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. Delivered is reachable only through OTP verification.
const (
	StatusPending         = "Pending"
	StatusProcessing      = "Processing"
	StatusShipped         = "Shipped"
	StatusDelivered       = "Delivered"
	StatusCancelled       = "Cancelled"
	StatusRefunded        = "Refunded"
	StatusReturnRequested = "Return Requested"
	StatusReturnedRefund  = "Returned & Refunded"
)

// KnownStatus reports whether s is one of the defined order statuses.
func KnownStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered,
		StatusCancelled, StatusRefunded, StatusReturnRequested, StatusReturnedRefund:
		return true
	}
	return false
}

// LineItem is one product entry within an order, carrying its own title and
// price snapshot independent of the live product record.
type LineItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Title     string             `bson:"title" json:"title"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
}

// Subtotal is the line's contribution to the order total.
func (li LineItem) Subtotal() float64 {
	return li.Price * float64(li.Quantity)
}

// Order is the order document.
//
// DeliveryOtp holds the SHA-256 hash of the issued code, never the plaintext.
// DeliveryOtp and OtpExpiresAt are non-nil only while the order is Shipped and
// not yet verified; both are cleared exactly when the status becomes Delivered.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code            string             `bson:"code" json:"code"` // human-facing, e.g. "ORD-7F3A2B"
	UserID          primitive.ObjectID `bson:"user_id" json:"userId"`
	Items           []LineItem         `bson:"items" json:"items"`
	TotalAmount     float64            `bson:"total_amount" json:"totalAmount"`
	Status          string             `bson:"status" json:"status"`
	OrderDate       time.Time          `bson:"order_date" json:"orderDate"`
	ShippingAddress string             `bson:"shipping_address" json:"shippingAddress"`

	DeliveryOtp  *string    `bson:"delivery_otp,omitempty" json:"-"`
	OtpExpiresAt *time.Time `bson:"otp_expires_at,omitempty" json:"-"`
	OtpVerified  bool       `bson:"otp_verified" json:"otpVerified"`
	OtpAttempts  int        `bson:"otp_attempts" json:"-"`

	ProviderOrderID string `bson:"provider_order_id,omitempty" json:"-"`
	PaymentID       string `bson:"payment_id,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ItemsTotal sums the line-item subtotals.
func (o *Order) ItemsTotal() float64 {
	var sum float64
	for _, li := range o.Items {
		sum += li.Subtotal()
	}
	return sum
}
