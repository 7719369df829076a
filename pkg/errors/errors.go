// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the error taxonomy shared by every layer of the
// framework and the single mapping from errors to HTTP responses.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for logging and HTTP mapping purposes.
type Kind string

// Error kinds
const (
	// KindConfig is returned when configuration loading or validation fails
	KindConfig Kind = "config"

	// KindDatabase is returned when the relational database fails
	KindDatabase Kind = "database"

	// KindCache is returned when the key-value cache fails
	KindCache Kind = "cache"

	// KindMessageBroker is returned when the message broker fails
	KindMessageBroker Kind = "message_broker"

	// KindAltDB is returned when the alternative database fails
	KindAltDB Kind = "alt_db"

	// KindJWT is returned when JWT validation fails
	KindJWT Kind = "jwt"

	// KindPaseto is returned when PASETO validation fails
	KindPaseto Kind = "paseto"

	// KindHTTP is returned for malformed or otherwise unusable HTTP input
	KindHTTP Kind = "http"

	// KindIO is returned when file or network I/O fails
	KindIO Kind = "io"

	// KindUnauthorized is returned when a request lacks valid credentials
	KindUnauthorized Kind = "unauthorized"

	// KindForbidden is returned when credentials are valid but insufficient
	KindForbidden Kind = "forbidden"

	// KindNotFound is returned when a resource does not exist
	KindNotFound Kind = "not_found"

	// KindBadRequest is returned when request input is invalid
	KindBadRequest Kind = "bad_request"

	// KindRateLimitExceeded is returned when a rate limit is hit
	KindRateLimitExceeded Kind = "rate_limit_exceeded"

	// KindConflict is returned when a request conflicts with current state
	KindConflict Kind = "conflict"

	// KindValidation is returned when structured input fails validation
	KindValidation Kind = "validation"

	// KindInternal is returned for unexpected internal failures
	KindInternal Kind = "internal"

	// KindOther is returned for errors outside the taxonomy
	KindOther Kind = "other"
)

// Error represents an error in the framework. It carries a Kind used for
// HTTP mapping, a human-readable message, and an optional underlying cause.
type Error struct {
	// Kind is the error classification
	Kind Kind

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// NewConfig creates a new configuration error.
func NewConfig(message string, cause error) *Error {
	return New(KindConfig, message, cause)
}

// NewDatabase creates a new database error.
func NewDatabase(message string, cause error) *Error {
	return New(KindDatabase, message, cause)
}

// NewCache creates a new cache error.
func NewCache(message string, cause error) *Error {
	return New(KindCache, message, cause)
}

// NewMessageBroker creates a new message broker error.
func NewMessageBroker(message string, cause error) *Error {
	return New(KindMessageBroker, message, cause)
}

// NewAltDB creates a new alternative database error.
func NewAltDB(message string, cause error) *Error {
	return New(KindAltDB, message, cause)
}

// NewJWT creates a new JWT validation error.
func NewJWT(message string, cause error) *Error {
	return New(KindJWT, message, cause)
}

// NewPaseto creates a new PASETO validation error.
func NewPaseto(message string, cause error) *Error {
	return New(KindPaseto, message, cause)
}

// NewHTTP creates a new HTTP input error.
func NewHTTP(message string, cause error) *Error {
	return New(KindHTTP, message, cause)
}

// NewIO creates a new I/O error.
func NewIO(message string, cause error) *Error {
	return New(KindIO, message, cause)
}

// NewUnauthorized creates a new unauthorized error.
func NewUnauthorized(message string, cause error) *Error {
	return New(KindUnauthorized, message, cause)
}

// NewForbidden creates a new forbidden error.
func NewForbidden(message string, cause error) *Error {
	return New(KindForbidden, message, cause)
}

// NewNotFound creates a new not found error.
func NewNotFound(message string, cause error) *Error {
	return New(KindNotFound, message, cause)
}

// NewBadRequest creates a new bad request error.
func NewBadRequest(message string, cause error) *Error {
	return New(KindBadRequest, message, cause)
}

// NewRateLimitExceeded creates a new rate limit error.
func NewRateLimitExceeded(message string, cause error) *Error {
	return New(KindRateLimitExceeded, message, cause)
}

// NewConflict creates a new conflict error.
func NewConflict(message string, cause error) *Error {
	return New(KindConflict, message, cause)
}

// NewValidation creates a new validation error.
func NewValidation(message string, cause error) *Error {
	return New(KindValidation, message, cause)
}

// NewInternal creates a new internal error.
func NewInternal(message string, cause error) *Error {
	return New(KindInternal, message, cause)
}

// NewOther creates a new error outside the taxonomy.
func NewOther(message string, cause error) *Error {
	return New(KindOther, message, cause)
}

// KindOf returns the kind of err, or KindOther if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// IsKind checks whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return IsKind(err, KindUnauthorized)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

// IsRateLimitExceeded checks if the error is a rate limit error.
func IsRateLimitExceeded(err error) bool {
	return IsKind(err, KindRateLimitExceeded)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return IsKind(err, KindValidation)
}
