// internal/app/system/respond/respond.go
//
// Package respond writes JSON API responses and maps errors to status codes.
// Every error body has the shape {"message": "..."} plus optional fields.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { JSON(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { JSON(w, http.StatusCreated, v) }

// NoContent writes 204.
func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]any{"message": msg})
}

// Fields writes {"message": msg} merged with extra.
func Fields(w http.ResponseWriter, status int, msg string, extra map[string]any) {
	body := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		body[k] = v
	}
	body["message"] = msg
	JSON(w, status, body)
}

// ServerError logs err and writes a generic 500. Internal error text is
// never sent to the client.
func ServerError(w http.ResponseWriter, log *zap.Logger, msg string, err error, fields ...zap.Field) {
	if log != nil {
		log.Error(msg, append(fields, zap.Error(err))...)
	}
	Message(w, http.StatusInternalServerError, "Server error")
}

// Decode reads a JSON body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return BadRequest("Invalid request body: %v", err)
	}
	return nil
}

// DecodeLenient reads a JSON body into v, ignoring unknown fields. Used
// where the client posts whole documents back.
func DecodeLenient(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return BadRequest("Invalid request body: %v", err)
	}
	return nil
}

// Error is an error that carries its HTTP status and client message.
type Error struct {
	Status  int
	Message string
	Extra   map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// With returns a copy of e carrying extra response fields.
func (e *Error) With(extra map[string]any) *Error {
	c := *e
	c.Extra = extra
	return &c
}

// Wrap returns a copy of e that unwraps to cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

// Status builds an *Error.
func Status(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// BadRequest builds a 400 *Error.
func BadRequest(format string, args ...any) *Error {
	return Status(http.StatusBadRequest, format, args...)
}

// Forbidden builds a 403 *Error.
func Forbidden(format string, args ...any) *Error {
	return Status(http.StatusForbidden, format, args...)
}

// NotFound builds a 404 *Error.
func NotFound(format string, args ...any) *Error {
	return Status(http.StatusNotFound, format, args...)
}

// Conflict builds a 409 *Error.
func Conflict(format string, args ...any) *Error {
	return Status(http.StatusConflict, format, args...)
}

// Err writes err. An *Error anywhere in the chain is written as-is,
// mongo.ErrNoDocuments becomes 404, anything else is logged and becomes 500.
func Err(w http.ResponseWriter, log *zap.Logger, err error, op string) {
	var he *Error
	switch {
	case errors.As(err, &he):
		Fields(w, he.Status, he.Message, he.Extra)
	case errors.Is(err, mongo.ErrNoDocuments):
		Message(w, http.StatusNotFound, "Not found")
	default:
		ServerError(w, log, op, err)
	}
}
