// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs routes the default slog logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRecovererPanicValues(t *testing.T) {
	for name, value := range map[string]any{
		"string": "boom",
		"int":    42,
		"error":  errors.New("db exploded"),
	} {
		t.Run(name, func(t *testing.T) {
			logs := captureLogs(t)
			h := chimw.RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(value)
			})))

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/blog/api/v1/posts/", nil))

			require.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, MsgInternal, body["detail"])

			var entry map[string]any
			require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
			assert.Equal(t, "panic recovered", entry["msg"])
			assert.Equal(t, "/blog/api/v1/posts/", entry["path"])
			assert.NotEmpty(t, entry["request_id"])
			assert.Contains(t, entry["stack"], "runtime/debug.Stack")
		})
	}
}

func TestRecovererPassThrough(t *testing.T) {
	logs := captureLogs(t)
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/blog/")
		w.WriteHeader(http.StatusFound)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounts/logout/", nil))

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/blog/", rr.Header().Get("Location"))
	assert.Zero(t, logs.Len(), "nothing logged without a panic")
}
