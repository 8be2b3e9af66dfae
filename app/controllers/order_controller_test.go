package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/app/services"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

// stubOrderStore serves a fixed set of orders; the mutation methods are never
// reached by the listing handler.
type stubOrderStore struct {
	orders []models.Order
}

func (s *stubOrderStore) Create(context.Context, *models.Order) error { return nil }

func (s *stubOrderStore) FindByID(context.Context, primitive.ObjectID) (*models.Order, error) {
	return nil, repositories.ErrNotFound
}

func (s *stubOrderStore) FindByCode(context.Context, string) (*models.Order, error) {
	return nil, repositories.ErrNotFound
}

func (s *stubOrderStore) RecentByUser(context.Context, primitive.ObjectID, int64) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrderStore) All(_ context.Context, page, limit int64) ([]models.Order, int64, error) {
	start := (page - 1) * limit
	if start >= int64(len(s.orders)) {
		return nil, int64(len(s.orders)), nil
	}
	end := start + limit
	if end > int64(len(s.orders)) {
		end = int64(len(s.orders))
	}
	return s.orders[start:end], int64(len(s.orders)), nil
}

func (s *stubOrderStore) SetStatus(context.Context, primitive.ObjectID, string) error { return nil }

func (s *stubOrderStore) SetShipped(context.Context, primitive.ObjectID, string, time.Time) error {
	return nil
}

func (s *stubOrderStore) MarkDelivered(context.Context, primitive.ObjectID) error { return nil }

func (s *stubOrderStore) IncrementOtpAttempts(context.Context, primitive.ObjectID) error { return nil }

func (s *stubOrderStore) RemoveItem(context.Context, primitive.ObjectID, primitive.ObjectID, float64, bool) error {
	return nil
}

func (s *stubOrderStore) SetPayment(context.Context, primitive.ObjectID, string, string) error {
	return nil
}

type stubUsers struct{}

func (stubUsers) FindByID(context.Context, primitive.ObjectID) (*models.User, error) {
	return nil, repositories.ErrNotFound
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string, string) error { return nil }

// ─── Tests ────────────────────────────────────────────────────────────────────

type paginatedBody struct {
	Status int `json:"status"`
	Data   struct {
		Items      []json.RawMessage `json:"items"`
		Pagination struct {
			Page       int   `json:"page"`
			Limit      int   `json:"limit"`
			Total      int64 `json:"total"`
			TotalPages int   `json:"total_pages"`
		} `json:"pagination"`
	} `json:"data"`
}

func listOrders(t *testing.T, target string) paginatedBody {
	t.Helper()

	store := &stubOrderStore{orders: make([]models.Order, 3)}
	ctrl := NewOrderController(services.NewOrderService(store, stubUsers{}, noopNotifier{}))

	rec := httptest.NewRecorder()
	ctrl.ListAll(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body paginatedBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListAllZeroLimitFallsBackToDefault(t *testing.T) {
	body := listOrders(t, "/api/admin/orders?limit=0")

	assert.Equal(t, 1, body.Data.Pagination.Page)
	assert.Equal(t, 20, body.Data.Pagination.Limit, "reported limit is the one actually applied")
	assert.Equal(t, int64(3), body.Data.Pagination.Total)
	assert.Equal(t, 1, body.Data.Pagination.TotalPages)
	assert.Len(t, body.Data.Items, 3)
}

func TestListAllPagination(t *testing.T) {
	body := listOrders(t, "/api/admin/orders?page=2&limit=2")

	assert.Equal(t, 2, body.Data.Pagination.Page)
	assert.Equal(t, 2, body.Data.Pagination.Limit)
	assert.Equal(t, 2, body.Data.Pagination.TotalPages)
	assert.Len(t, body.Data.Items, 1)
}
