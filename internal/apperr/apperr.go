// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the error taxonomy shared by services and HTTP
// handlers. Services return these values; handlers translate them into
// status codes and JSON bodies.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a requested entity does not exist (or is
	// not visible to the caller).
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when an authenticated account tries to modify
	// an entity it does not own.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated is returned when an operation needs an account and
	// none (or an invalid credential) was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// DetailKey is the field name used for errors that are not tied to a
// single input field.
const DetailKey = "detail"

// ValidationError carries field-keyed validation messages. It renders as
// {"field": ["message", ...]} or {"detail": "message"}.
type ValidationError struct {
	Fields map[string][]string
}

// Error implements error with a stable, sorted representation.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add appends a message for the given field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no messages have been recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns e if it holds messages, nil otherwise. Useful at the end
// of a validation routine that accumulates errors.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Field creates a ValidationError with a single field message.
func Field(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Detail creates a ValidationError with a non-field message.
func Detail(msg string) *ValidationError {
	return Field(DetailKey, msg)
}

// AsValidation unwraps err into a *ValidationError when possible.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// Body returns the JSON shape of the error. A lone detail message renders
// as a plain string; field messages render as lists.
func (e *ValidationError) Body() map[string]any {
	body := make(map[string]any, len(e.Fields))
	for k, msgs := range e.Fields {
		if k == DetailKey && len(msgs) == 1 {
			body[k] = msgs[0]
			continue
		}
		body[k] = msgs
	}
	return body
}
