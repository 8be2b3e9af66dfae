package controllers

import (
	"net/http"

	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/pkg/bind"
	"github.com/charvilabs/charvi/pkg/response"
	"github.com/charvilabs/charvi/pkg/router"
)

type CartController struct {
	carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

func (c *CartController) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	cart, err := c.carts.Get(r.Context(), userID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, cart)
}

func (c *CartController) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	var body struct {
		ProductID string `json:"productId" validate:"required"`
		Quantity  int    `json:"quantity" validate:"required,gte=1,lte=99"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	cart, err := c.carts.Add(r.Context(), userID, body.ProductID, body.Quantity)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, cart)
}

func (c *CartController) SetQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	var body struct {
		Quantity int `json:"quantity" validate:"gte=0,lte=99"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	cart, err := c.carts.SetQuantity(r.Context(), userID, router.Param(r, "productId"), body.Quantity)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, cart)
}

func (c *CartController) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	cart, err := c.carts.Remove(r.Context(), userID, router.Param(r, "productId"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, cart)
}

func (c *CartController) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	if err := c.carts.Clear(r.Context(), userID); err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Cart cleared"})
}
