package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkpress/internal/middleware"
	"inkpress/internal/models"
	"inkpress/internal/session"
)

// page sends a browser-style request carrying the CSRF cookie. A non-nil
// form is posted url-encoded with the matching csrf_token field unless
// the form already sets one.
func (f *fixture) page(t *testing.T, method, path string, form url.Values, sess string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		if _, ok := form[middleware.CSRFFormField]; !ok {
			form.Set(middleware.CSRFFormField, csrfToken)
		}
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: csrfToken})
	if sess != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess})
	}
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, req)
	return w
}

// login signs a in through the HTML form and returns the session id.
func (f *fixture) login(t *testing.T, a *models.Account) string {
	t.Helper()
	w := f.page(t, http.MethodPost, "/accounts/login/", url.Values{
		"email": {a.Email}, "password": {goodPass}, "next": {"/blog/"},
	}, "")
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	t.Fatal("no session cookie set")
	return ""
}

func TestPostListPage(t *testing.T) {
	f := newFixture(t)
	authz := f.bearer(t, f.alice)
	for i := range 4 {
		f.createPost(t, authz, postBody(fmt.Sprintf("Listed %d", i), true))
	}
	f.createPost(t, authz, postBody("Hidden draft", false))

	w := f.page(t, http.MethodGet, "/blog/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Listed 3")
	assert.NotContains(t, body, "Listed 0")
	assert.NotContains(t, body, "Hidden draft")
	assert.Contains(t, body, "?page=2")

	w = f.page(t, http.MethodGet, "/blog/?page=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Listed 0")

	assert.Equal(t, http.StatusNotFound, f.page(t, http.MethodGet, "/blog/?page=3", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, f.page(t, http.MethodGet, "/blog/?page=x", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, f.page(t, http.MethodGet, "/blog/?page=9223372036854775807", nil, "").Code)
}

func TestPostDetailPage(t *testing.T) {
	f := newFixture(t)
	body := postBody("Rendered", true)
	body["content"] = "Some **bold** text"
	id := f.createPost(t, f.bearer(t, f.alice), body)
	path := fmt.Sprintf("/blog/%d/", id)

	w := f.page(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<strong>bold</strong>")
	assert.Contains(t, w.Body.String(), "By alice@example.com")
	assert.NotContains(t, w.Body.String(), "/edit/")

	patch := f.do(t, http.MethodPatch, "/user/api/v1/profile/",
		map[string]any{"first_name": "Alice", "last_name": "Liddell"}, f.bearer(t, f.alice))
	require.Equal(t, http.StatusOK, patch.Code, patch.Body.String())

	w = f.page(t, http.MethodGet, path, nil, f.login(t, f.alice))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), path+"edit/")
	assert.Contains(t, w.Body.String(), "By Alice Liddell")

	draft := f.createPost(t, f.bearer(t, f.alice), postBody("Draft", false))
	assert.Equal(t, http.StatusNotFound, f.page(t, http.MethodGet, fmt.Sprintf("/blog/%d/", draft), nil, "").Code)
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	f := newFixture(t)
	w := f.page(t, http.MethodGet, "/blog/create/", nil, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/accounts/login/?next=%2Fblog%2Fcreate%2F", w.Header().Get("Location"))
}

func TestLoginPage(t *testing.T) {
	f := newFixture(t)

	w := f.page(t, http.MethodGet, "/accounts/login/?next=/blog/create/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/blog/create/")

	w = f.page(t, http.MethodPost, "/accounts/login/", url.Values{
		"email": {f.alice.Email}, "password": {"wrong"},
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unable to authenticate with provided credentials.")

	w = f.page(t, http.MethodPost, "/accounts/login/", url.Values{
		"email": {f.alice.Email}, "password": {goodPass}, "next": {"https://evil.example/"},
	}, "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/blog/", w.Header().Get("Location"))

	sess := f.login(t, f.alice)
	w = f.page(t, http.MethodGet, "/accounts/login/?next=/blog/create/", nil, sess)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/blog/create/", w.Header().Get("Location"))
}

func TestCSRFMismatchRejected(t *testing.T) {
	f := newFixture(t)
	w := f.page(t, http.MethodPost, "/accounts/login/", url.Values{
		"email":                  {f.alice.Email},
		"password":               {goodPass},
		middleware.CSRFFormField: {"forged"},
	}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.sessions.data)
}

func TestPostFormLifecycle(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, f.alice)

	w := f.page(t, http.MethodGet, "/blog/create/", nil, sess)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), csrfToken)

	w = f.page(t, http.MethodPost, "/blog/create/", url.Values{
		"title": {""}, "content": {"body"}, "published_date": {"2024-05-06T07:08"},
	}, sess)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "This field may not be blank.")

	w = f.page(t, http.MethodPost, "/blog/create/", url.Values{
		"title":          {"From the form"},
		"content":        {"Written in a browser"},
		"status":         {"on"},
		"published_date": {"2024-05-06T07:08"},
		"categories":     {"Go, Web"},
	}, sess)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	location := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/blog/"), location)

	w = f.page(t, http.MethodGet, location, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "From the form")

	w = f.page(t, http.MethodGet, location+"edit/", nil, sess)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Go, Web")

	w = f.page(t, http.MethodGet, location+"edit/", nil, f.login(t, f.bob))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.page(t, http.MethodPost, location+"edit/", url.Values{
		"title":          {"Edited title"},
		"content":        {"Written in a browser"},
		"status":         {"on"},
		"published_date": {"2024-05-06T07:08"},
	}, sess)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Contains(t, f.page(t, http.MethodGet, location, nil, "").Body.String(), "Edited title")

	w = f.page(t, http.MethodGet, location+"delete/", nil, sess)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.page(t, http.MethodPost, location+"delete/", url.Values{}, sess)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/blog/", w.Header().Get("Location"))
	assert.Equal(t, http.StatusNotFound, f.page(t, http.MethodGet, location, nil, "").Code)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, f.alice)

	w := f.page(t, http.MethodPost, "/accounts/logout/", url.Values{}, sess)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/blog/", w.Header().Get("Location"))

	w = f.page(t, http.MethodGet, "/blog/create/", nil, sess)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}
