package controllers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/pkg/bind"
	"github.com/charvilabs/charvi/pkg/response"
)

type CheckoutController struct {
	checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

func parseAddressID(hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Begin registers the cart total with the payment provider.
func (c *CheckoutController) Begin(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	var body struct {
		AddressID string `json:"addressId" validate:"nullable"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	addressID, err := parseAddressID(body.AddressID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid addressId")
		return
	}

	intent, err := c.checkout.Begin(r.Context(), userID, addressID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, intent)
}

// Confirm verifies the provider callback and places the order.
func (c *CheckoutController) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	var body struct {
		ProviderOrderID string `json:"providerOrderId" validate:"required"`
		PaymentID       string `json:"paymentId" validate:"required"`
		Signature       string `json:"signature" validate:"required"`
		AddressID       string `json:"addressId" validate:"nullable"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	addressID, err := parseAddressID(body.AddressID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid addressId")
		return
	}

	order, err := c.checkout.Confirm(r.Context(), userID, addressID, body.ProviderOrderID, body.PaymentID, body.Signature)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, order)
}
