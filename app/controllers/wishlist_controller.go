package controllers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/pkg/bind"
	"github.com/charvilabs/charvi/pkg/response"
)

type WishlistController struct {
	wishlists *services.WishlistService
}

func NewWishlistController(wishlists *services.WishlistService) *WishlistController {
	return &WishlistController{wishlists: wishlists}
}

func (c *WishlistController) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	products, err := c.wishlists.Get(r.Context(), userID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, products)
}

func (c *WishlistController) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	var body struct {
		ProductID string `json:"productId" validate:"required,size=24"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	productID, err := primitive.ObjectIDFromHex(body.ProductID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid productId")
		return
	}

	if err := c.wishlists.Add(r.Context(), userID, productID); err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Added to wishlist"})
}

func (c *WishlistController) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}
	productID, err := pathID(r, "productId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	if err := c.wishlists.Remove(r.Context(), userID, productID); err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Removed from wishlist"})
}
