// Package apperror is the error taxonomy of the stock ledger. Every failure a
// caller can act on is an *AppError carrying a code, an HTTP status and details.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeInternal = "INTERNAL_ERROR"

	CodeValidation = "VALIDATION_ERROR"

	CodeInsufficientStock = "INSUFFICIENT_STOCK"

	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	CodeNotFound = "NOT_FOUND"

	CodeConflict               = "CONFLICT"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// Entity names used in NotFound and InsufficientStock details.
const (
	EntityItem          = "item"
	EntityStock         = "stock"
	EntityPurchase      = "purchase"
	EntityServiceRecord = "service_record"
	EntityInvoice       = "invoice"
	EntityRelease       = "release"
)

// Kind groups codes into the categories callers branch on.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindConflict          Kind = "conflict"
	KindValidation        Kind = "validation"
	KindAccess            Kind = "access"
	KindInternal          Kind = "internal"
)

var kindByCode = map[string]Kind{
	CodeNotFound:               KindNotFound,
	CodeInsufficientStock:      KindInsufficientStock,
	CodeConflict:               KindConflict,
	CodeDuplicate:              KindConflict,
	CodeConcurrentModification: KindConflict,
	CodeValidation:             KindValidation,
	CodeUnauthorized:           KindAccess,
	CodeForbidden:              KindAccess,
}

// AppError is the error type returned by every ledger operation.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`

	// Err is the cause. It is logged, never rendered.
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Kind returns the category of the error code.
func (e *AppError) Kind() Kind {
	if k, ok := kindByCode[e.Code]; ok {
		return k
	}
	return KindInternal
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func newError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// NewValidation reports malformed input (400).
func NewValidation(message string) *AppError {
	return newError(CodeValidation, http.StatusBadRequest, message)
}

// NewNotFound reports a missing item, lot, purchase, service record or invoice (404).
func NewNotFound(entity string, id any) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", entity)).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewInsufficientStock reports a shortage (422). entity is EntityItem for
// FIFO releases over all lots and EntityStock when a single lot is short.
func NewInsufficientStock(entity string, id int64, requested, available int64) *AppError {
	shortfall := requested - available
	if shortfall < 0 {
		shortfall = 0
	}
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    fmt.Sprintf("Insufficient stock for %s %d: requested %d, available %d", entity, id, requested, available),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"entity":    entity,
			"id":        id,
			"requested": requested,
			"available": available,
			"shortfall": shortfall,
		},
	}
}

// NewNegativeStock reports a write the database refused because a lot would
// drop below zero. The quantities are unknown at that point.
func NewNegativeStock(entity string, id any) *AppError {
	return newError(CodeInsufficientStock, http.StatusUnprocessableEntity, "stock quantity cannot become negative").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewConcurrentModification reports a write lost to a concurrent transaction (409).
// The operation is safe to retry.
func NewConcurrentModification(entity string, id any) *AppError {
	return newError(CodeConcurrentModification, http.StatusConflict, "Record was modified by another transaction. Please retry.").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewInternal hides err behind a generic message (500).
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, message)
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return newError(CodeForbidden, http.StatusForbidden, message)
}

// NewConflict reports a state that forbids the operation, e.g. deleting a consumed lot (409).
func NewConflict(message string) *AppError {
	return newError(CodeConflict, http.StatusConflict, message)
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return newError(CodeDuplicate, http.StatusConflict, fmt.Sprintf("%s with this %s already exists", entity, field)).
		WithDetail("entity", entity).
		WithDetail("field", field).
		WithDetail("value", value)
}

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the category of err. Non-AppErrors are KindInternal.
func KindOf(err error) Kind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind()
	}
	return KindInternal
}

// HasCode checks whether err carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

func IsInsufficientStock(err error) bool { return HasCode(err, CodeInsufficientStock) }

func IsConcurrentModification(err error) bool { return HasCode(err, CodeConcurrentModification) }

// IsConflict covers duplicates, blocked deletes and lost concurrent writes.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// Wrap passes AppErrors through untouched and turns anything else into an internal error.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if IsAppError(err) {
		return err
	}
	return NewInternal(err)
}
