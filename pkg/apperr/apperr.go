// Package apperr defines the application error taxonomy.
//
// Every business failure is one of a small set of kinds, each mapping to an
// HTTP status. Services return *Error values; controllers translate them with
// response.FromError so handler code never switch-cases on status codes.
//
//	if qty < 1 {
//	    return apperr.Validation("quantity must be at least 1")
//	}
//
//	var appErr *apperr.Error
//	if errors.As(err, &appErr) { ... }
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into the response category it belongs to.
type Kind int

const (
	// KindValidation — missing or malformed input. No retry will help.
	KindValidation Kind = iota
	// KindNotFound — the referenced order/user/product/cart does not exist.
	KindNotFound
	// KindStateConflict — illegal status transition, OTP mismatch/expiry,
	// reused reset token, or any other business-rule state violation.
	KindStateConflict
	// KindUnauthorized — missing or invalid credentials.
	KindUnauthorized
	// KindForbidden — authenticated but not allowed (e.g. non-admin).
	KindForbidden
	// KindUpstream — a collaborator (database, mail, payment gateway,
	// classifier) failed. Surfaced generically; detail stays in the logs.
	KindUpstream
)

// Error is the taxonomy-aware error type used across services.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, optional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two taxonomy errors by kind and message, so
// sentinel values like services.ErrOtpExpired compare correctly even after
// wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// ── Constructors ─────────────────────────────────────────────────────────────

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Validation(msg string) *Error    { return New(KindValidation, msg) }
func NotFound(msg string) *Error      { return New(KindNotFound, msg) }
func StateConflict(msg string) *Error { return New(KindStateConflict, msg) }
func Unauthorized(msg string) *Error  { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error     { return New(KindForbidden, msg) }

// Upstream wraps a collaborator failure. msg is what the caller may see;
// cause is logged server-side only.
func Upstream(msg string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: cause}
}

// ── Inspection ───────────────────────────────────────────────────────────────

// KindOf extracts the Kind from err. Unclassified errors count as upstream.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// HTTPStatus maps an error to the HTTP status code it should produce.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindStateConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message safe to show a caller. Upstream errors collapse
// to a generic message so internal detail never leaks.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUpstream {
		return e.Message
	}
	return "something went wrong, please try again later"
}
