// Package handlers implements the HTTP surface: the user and blog JSON
// APIs plus the server-rendered blog pages. Handlers decode requests,
// call the services and translate service errors into status codes.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"inkpress/internal/apperr"
	"inkpress/internal/imaging"
	"inkpress/internal/validation"
)

// Response messages shared by the JSON handlers.
const (
	MsgNotFound         = "Not found."
	MsgForbidden        = "You do not have permission to perform this action."
	MsgNotAuthenticated = "Authentication credentials were not provided."
	MsgInternal         = "Internal server error."
	MsgTokenNotValid    = "Token is invalid or expired"
	MsgDone             = "DONE"
)

const (
	// maxBodySize bounds JSON request bodies.
	maxBodySize = 1 << 20

	// maxUploadSize bounds multipart image uploads.
	maxUploadSize = 10 << 20
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

// writeDetail writes a {"detail": msg} body.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{apperr.DetailKey: msg})
}

// writeError translates a service error into a JSON response. Unknown
// errors are logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := apperr.AsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, v.Body())
		return
	}
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeDetail(w, http.StatusNotFound, MsgNotFound)
	case errors.Is(err, apperr.ErrForbidden):
		writeDetail(w, http.StatusForbidden, MsgForbidden)
	case errors.Is(err, apperr.ErrUnauthenticated):
		writeDetail(w, http.StatusUnauthorized, MsgNotAuthenticated)
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
		writeDetail(w, http.StatusInternalServerError, MsgInternal)
	}
}

// readBody reads a bounded request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, apperr.Detail("Request body is too large.")
	}
	return body, nil
}

// decodeJSON decodes a JSON object body into dst. An empty body leaves
// dst zero so the service reports the missing fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 {
		if body[0] != '{' {
			return apperr.Detail("Invalid data. Expected a dictionary.")
		}
		if err := json.Unmarshal(body, dst); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				return apperr.Field(typeErr.Field, validation.MsgNotString)
			}
			return apperr.Detail(fmt.Sprintf("JSON parse error - %v", err))
		}
	}
	return nil
}

// readImage returns the bytes of the multipart "image" field.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, apperr.Field("image", imaging.MsgNoFile)
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, apperr.Field("image", imaging.MsgNoFile)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, apperr.Field("image", "The submitted file is empty.")
	}
	return data, nil
}

// idParam parses a positive integer URL parameter. Malformed ids cannot
// name an existing row and are reported as not found.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.ErrNotFound
	}
	return id, nil
}

// requestBase returns the scheme and host a request was addressed to.
// A configured base URL takes precedence.
func requestBase(r *http.Request, configured string) string {
	if configured != "" {
		return configured
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// Health reports that the process is serving requests.
func Health(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusOK, MsgDone)
}

// NotFound is the JSON 404 for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusNotFound, MsgNotFound)
}

// MethodNotAllowed is the JSON 405 for routes that exist with other methods.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", r.Method))
}
