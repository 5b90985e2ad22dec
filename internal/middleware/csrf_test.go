package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const knownToken = "0123456789abcdef"

// csrfRequest builds a request carrying the CSRF cookie. header and field
// set the submitted token; empty values are omitted.
func csrfRequest(method, cookie, header, field string) *http.Request {
	var r *http.Request
	if field != "" {
		form := url.Values{CSRFFormField: {field}, "title": {"x"}}
		r = httptest.NewRequest(method, "/blog/create/", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		r = httptest.NewRequest(method, "/blog/create/", nil)
	}
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: cookie})
	}
	if header != "" {
		r.Header.Set(CSRFHeaderName, header)
	}
	return r
}

func TestCSRF(t *testing.T) {
	tests := []struct {
		name   string
		method string
		cookie string
		header string
		field  string
		want   int
	}{
		{name: "GET without cookie", method: http.MethodGet, want: http.StatusOK},
		{name: "HEAD with cookie", method: http.MethodHead, cookie: knownToken, want: http.StatusOK},
		{name: "POST without anything", method: http.MethodPost, want: http.StatusForbidden},
		{name: "POST cookie only", method: http.MethodPost, cookie: knownToken, want: http.StatusForbidden},
		{name: "POST header matches", method: http.MethodPost, cookie: knownToken, header: knownToken, want: http.StatusOK},
		{name: "POST form field matches", method: http.MethodPost, cookie: knownToken, field: knownToken, want: http.StatusOK},
		{name: "POST form field differs", method: http.MethodPost, cookie: knownToken, field: "forged", want: http.StatusForbidden},
		{name: "POST header without cookie", method: http.MethodPost, header: knownToken, want: http.StatusForbidden},
		{name: "PUT header matches", method: http.MethodPut, cookie: knownToken, header: knownToken, want: http.StatusOK},
		{name: "DELETE header differs", method: http.MethodDelete, cookie: knownToken, header: "nope", want: http.StatusForbidden},
	}

	handler := NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, csrfRequest(tt.method, tt.cookie, tt.header, tt.field))
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCSRFIssuesCookie(t *testing.T) {
	for _, secure := range []bool{false, true} {
		rr := httptest.NewRecorder()
		var seen string
		NewCSRF(secure)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = CSRFTokenFromCtx(r.Context())
		})).ServeHTTP(rr, csrfRequest(http.MethodGet, "", "", ""))

		var cookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == CSRFCookieName {
				cookie = c
			}
		}
		if cookie == nil {
			t.Fatalf("secure=%v: no CSRF cookie issued", secure)
		}
		if len(cookie.Value) != 2*csrfTokenLength {
			t.Errorf("token length: got %d", len(cookie.Value))
		}
		if cookie.Secure != secure {
			t.Errorf("Secure: got %v, want %v", cookie.Secure, secure)
		}
		if cookie.HttpOnly {
			t.Error("cookie must be readable by scripts")
		}
		if seen != cookie.Value {
			t.Errorf("context token %q, cookie %q", seen, cookie.Value)
		}
	}
}

func TestCSRFKeepsExistingCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	var seen string
	NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CSRFTokenFromCtx(r.Context())
	})).ServeHTTP(rr, csrfRequest(http.MethodGet, knownToken, "", ""))

	if seen != knownToken {
		t.Errorf("context token: got %q", seen)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("cookie reissued")
	}
}

func TestCSRFTokenFromCtxEmpty(t *testing.T) {
	if got := CSRFTokenFromCtx(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
