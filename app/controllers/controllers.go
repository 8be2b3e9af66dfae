// Package controllers holds the HTTP handlers. Controllers stay thin: bind
// and validate the request, call one service method, write the envelope.
package controllers

import (
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/pkg/apperr"
	"github.com/charvilabs/charvi/pkg/middleware"
	"github.com/charvilabs/charvi/pkg/router"
)

// currentUserID reads the authenticated user's id from the request context.
func currentUserID(r *http.Request) (primitive.ObjectID, bool) {
	hex, ok := middleware.UserIDFromCtx(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// isAdmin reports whether the request carries the admin role.
func isAdmin(r *http.Request) bool {
	role, ok := middleware.RoleFromCtx(r)
	return ok && role == "admin"
}

// pathID parses an ObjectID URL parameter.
func pathID(r *http.Request, key string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(router.Param(r, key))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid " + key)
	}
	return id, nil
}

// queryInt64 parses an integer query parameter with a default.
func queryInt64(r *http.Request, key string, def int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}
