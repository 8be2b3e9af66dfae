package graphql

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/pkg/logger"
	"github.com/charvilabs/charvi/pkg/middleware"
	"github.com/charvilabs/charvi/pkg/response"
)

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Handler serves the /graphql endpoint. Identity is optional; the order
// fields reject anonymous callers themselves.
func Handler(products *services.ProductService, orders *services.OrderService) http.HandlerFunc {
	schema, err := newSchema(products, orders)
	if err != nil {
		// A broken schema is a programming error, not a runtime condition.
		logger.Error("graphql: schema construction failed", "error", err)
		return func(w http.ResponseWriter, r *http.Request) {
			response.Error(w, http.StatusInternalServerError, "graphql unavailable")
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(w, r)
		if !ok {
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			OperationName:  req.OperationName,
			VariableValues: req.Variables,
			Context:        withViewer(r),
		})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (request, bool) {
	var req request
	switch r.Method {
	case http.MethodGet:
		req.Query = r.URL.Query().Get("query")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid request body")
			return request{}, false
		}
	default:
		response.Error(w, http.StatusMethodNotAllowed, "use GET or POST")
		return request{}, false
	}
	if req.Query == "" {
		response.Error(w, http.StatusBadRequest, "missing query")
		return request{}, false
	}
	return req, true
}

// withViewer copies the middleware identity into a resolver-visible value.
func withViewer(r *http.Request) context.Context {
	ctx := r.Context()
	userID, ok := middleware.UserIDFromCtx(r)
	if !ok {
		return ctx
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ctx
	}
	role, _ := middleware.RoleFromCtx(r)
	return context.WithValue(ctx, viewerKey{}, viewer{id: id, admin: role == "admin"})
}
