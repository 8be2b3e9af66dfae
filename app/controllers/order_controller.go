package controllers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/pkg/bind"
	"github.com/charvilabs/charvi/pkg/response"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// loadOwned fetches an order and enforces ownership. Someone else's order
// reads as not found unless the caller is an admin.
func (c *OrderController) loadOwned(r *http.Request, id primitive.ObjectID) (*models.Order, error) {
	order, err := c.orders.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if userID, ok := currentUserID(r); ok && order.UserID == userID {
		return order, nil
	}
	if isAdmin(r) {
		return order, nil
	}
	return nil, services.ErrOrderNotFound
}

// Mine lists the caller's recent orders.
func (c *OrderController) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	orders, err := c.orders.Recent(r.Context(), userID, queryInt64(r, "limit", 20))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, orders)
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	order, err := c.loadOwned(r, id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, order)
}

// VerifyDelivery confirms delivery with the courier's OTP.
func (c *OrderController) VerifyDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var body struct {
		Otp string `json:"otp" validate:"required,digits=6"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if _, err := c.loadOwned(r, id); err != nil {
		response.FromError(w, err)
		return
	}

	order, err := c.orders.VerifyDeliveryOtp(r.Context(), id, body.Otp)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, order)
}

// CancelItem removes one line; removing the last line cancels the order.
func (c *OrderController) CancelItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}
	productID, err := pathID(r, "productId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	if _, err := c.loadOwned(r, id); err != nil {
		response.FromError(w, err)
		return
	}

	order, err := c.orders.CancelItem(r.Context(), id, productID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, order)
}

func (c *OrderController) RequestReturn(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	if _, err := c.loadOwned(r, id); err != nil {
		response.FromError(w, err)
		return
	}

	order, err := c.orders.RequestReturn(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, order)
}

// ─── Admin ────────────────────────────────────────────────────────────────────

// ListAll is the admin order listing.
func (c *OrderController) ListAll(w http.ResponseWriter, r *http.Request) {
	page := queryInt64(r, "page", 1)
	limit := queryInt64(r, "limit", 20)

	out, err := c.orders.List(r.Context(), page, limit)
	if err != nil {
		response.FromError(w, err)
		return
	}

	// The service clamps page/limit; divide by what it actually used.
	totalPages := int(out.Total / out.PerPage)
	if out.Total%out.PerPage != 0 {
		totalPages++
	}
	response.Paginated(w, out.Orders, response.Pagination{
		Page:       int(out.Page),
		Limit:      int(out.PerPage),
		Total:      out.Total,
		TotalPages: totalPages,
	})
}

// UpdateStatus applies an admin status transition. Delivered is rejected by
// the service; it is only reachable through OTP verification.
func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var body struct {
		Status string `json:"status" validate:"required"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	order, err := c.orders.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, order)
}
