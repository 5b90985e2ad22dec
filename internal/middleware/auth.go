// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"inkpress/internal/access"
	"inkpress/internal/models"
	"inkpress/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// AccountKey is the context key for the authenticated account.
	AccountKey contextKey = "account"

	// SessionKey is the context key for the HTML session data.
	SessionKey contextKey = "session"
)

// Authenticator resolves credentials to active accounts. Lookups return
// nil for unknown credentials.
type Authenticator interface {
	AccountForToken(ctx context.Context, key string) (*models.Account, error)
	AccountForJWT(ctx context.Context, token string) (*models.Account, error)
	AccountByID(ctx context.Context, id int64) (*models.Account, error)
}

// SessionGetter loads session data for a request.
type SessionGetter interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// Authenticate resolves an "Authorization: Token <key>" or
// "Authorization: Bearer <jwt>" header to an account and stores it in the
// request context. Requests without the header pass through anonymous;
// a header carrying a bad credential is rejected with 401.
func Authenticate(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, cred, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
			if !ok || cred == "" {
				next.ServeHTTP(w, r)
				return
			}

			var (
				acct *models.Account
				err  error
				msg  string
			)
			switch strings.ToLower(scheme) {
			case "token":
				acct, err = a.AccountForToken(r.Context(), strings.TrimSpace(cred))
				msg = MsgInvalidToken
			case "bearer":
				acct, err = a.AccountForJWT(r.Context(), strings.TrimSpace(cred))
				msg = MsgInvalidJWT
			default:
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				slog.Error("authenticate request failed", "scheme", scheme, "error", err)
				writeDetail(w, http.StatusInternalServerError, MsgInternal)
				return
			}
			if acct == nil {
				writeDetail(w, http.StatusUnauthorized, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acct)))
		})
	}
}

// LoadSession retrieves the HTML session from Valkey and, when it names an
// active account, stores both in the request context. It does NOT enforce
// authentication.
func LoadSession(store SessionGetter, a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("session load failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if data == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, data)
			if AccountFromCtx(ctx) == nil {
				acct, err := a.AccountByID(ctx, data.AccountID)
				if err != nil {
					slog.Warn("session account lookup failed", "account_id", data.AccountID, "error", err)
				} else if acct != nil {
					ctx = WithAccount(ctx, acct)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticatedOrReadOnly lets safe methods through and rejects anonymous
// writes with 401.
func AuthenticatedOrReadOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !access.IsSafe(r.Method) && AccountFromCtx(r.Context()) == nil {
			writeDetail(w, http.StatusUnauthorized, MsgNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects anonymous API requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if AccountFromCtx(r.Context()) == nil {
			writeDetail(w, http.StatusUnauthorized, MsgNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLogin redirects anonymous HTML requests to loginURL with the
// current path in the "next" parameter.
func RequireLogin(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AccountFromCtx(r.Context()) == nil {
				target := loginURL + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithAccount returns a context carrying acct.
func WithAccount(ctx context.Context, acct *models.Account) context.Context {
	return context.WithValue(ctx, AccountKey, acct)
}

// AccountFromCtx returns the authenticated account, or nil.
func AccountFromCtx(ctx context.Context) *models.Account {
	acct, _ := ctx.Value(AccountKey).(*models.Account)
	return acct
}

// SessionFromCtx extracts the session data from the request context.
// Returns nil if no session is loaded.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}
