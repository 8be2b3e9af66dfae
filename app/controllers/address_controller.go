package controllers

import (
	"net/http"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/pkg/bind"
	"github.com/charvilabs/charvi/pkg/response"
)

type AddressController struct {
	addresses *services.AddressService
}

func NewAddressController(addresses *services.AddressService) *AddressController {
	return &AddressController{addresses: addresses}
}

type addressInput struct {
	Label      string `json:"label" validate:"nullable,max=50"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"nullable,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"nullable,max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"nullable,max=100"`
}

func (in addressInput) model() *models.Address {
	return &models.Address{
		Label:      in.Label,
		Line1:      in.Line1,
		Line2:      in.Line2,
		City:       in.City,
		State:      in.State,
		PostalCode: in.PostalCode,
		Country:    in.Country,
	}
}

func (c *AddressController) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	out, err := c.addresses.List(r.Context(), userID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, out)
}

func (c *AddressController) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	var body addressInput
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	addr, err := c.addresses.Create(r.Context(), userID, body.model())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, addr)
}

func (c *AddressController) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var body addressInput
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	addr, err := c.addresses.Update(r.Context(), userID, id, body.model())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, addr)
}

func (c *AddressController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	if err := c.addresses.Delete(r.Context(), userID, id); err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Address deleted"})
}

func (c *AddressController) MakeDefault(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	if err := c.addresses.MakeDefault(r.Context(), userID, id); err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Default address updated"})
}
