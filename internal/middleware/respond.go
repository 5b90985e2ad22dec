package middleware

import (
	"encoding/json"
	"net/http"
)

// Messages written by the middleware.
const (
	MsgInternal         = "Internal server error."
	MsgNotAuthenticated = "Authentication credentials were not provided."
	MsgInvalidToken     = "Invalid token."
	MsgInvalidJWT       = "Given token not valid for any token type"
	MsgThrottled        = "Request was throttled."
)

// writeDetail writes a {"detail": msg} JSON error.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
