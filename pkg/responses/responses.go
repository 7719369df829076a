// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package responses provides the canonical response envelopes used by
// handlers: created/accepted/no-content helpers, validation error bodies,
// and a generic paginated list envelope.
package responses

import (
	"encoding/json"
	"net/http"

	"github.com/acton-framework/acton/pkg/logger"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnw("failed to encode response body", "error", err)
	}
}

// Success writes a 200 response with the given body.
func Success(w http.ResponseWriter, body any) {
	WriteJSON(w, http.StatusOK, body)
}

// Created writes a 201 response. If location is non-empty it is set as the
// Location header.
func Created(w http.ResponseWriter, body any, location string) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	WriteJSON(w, http.StatusCreated, body)
}

// Accepted writes a 202 response with the given body.
func Accepted(w http.ResponseWriter, body any) {
	WriteJSON(w, http.StatusAccepted, body)
}

// NoContent writes a 204 response with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Conflict writes a 409 response with the given body.
func Conflict(w http.ResponseWriter, body any) {
	WriteJSON(w, http.StatusConflict, body)
}

// FieldError describes a single invalid field in a request payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// validationBody is the 422 response envelope.
type validationBody struct {
	Errors []FieldError `json:"errors"`
}

// ValidationError writes a 422 response listing the invalid fields.
func ValidationError(w http.ResponseWriter, fieldErrors []FieldError) {
	WriteJSON(w, http.StatusUnprocessableEntity, validationBody{Errors: fieldErrors})
}

// Pagination describes the position of a page within a larger result set.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ListResponse is the generic envelope for paginated collections.
type ListResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewListResponse builds a list envelope, deriving total pages and the
// next/previous flags from the page size and item count.
func NewListResponse[T any](data []T, page, perPage int, totalItems int64) ListResponse[T] {
	if perPage < 1 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}

	totalPages := int((totalItems + int64(perPage) - 1) / int64(perPage))

	return ListResponse[T]{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: totalItems,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1 && totalPages > 0,
		},
	}
}
