// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure: the full router
// wired to in-memory repositories, a recording mail queue and an
// in-memory session store.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"inkpress/internal/accounts"
	"inkpress/internal/auth"
	"inkpress/internal/blog"
	"inkpress/internal/handlers"
	"inkpress/internal/mail"
	"inkpress/internal/memstore"
	"inkpress/internal/models"
	"inkpress/internal/render"
	"inkpress/internal/router"
	"inkpress/internal/session"
	"inkpress/internal/storage"
)

const (
	testBaseURL = "http://testserver"
	goodPass    = "Zq7!vLp3#Rw"
	csrfToken   = "test-csrf-token"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []mail.Task
}

func (q *recordingQueue) Enqueue(_ context.Context, t mail.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return nil
}

func (q *recordingQueue) last(t *testing.T) mail.Task {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	require.NotEmpty(t, q.tasks)
	return q.tasks[len(q.tasks)-1]
}

// memSessions keeps sessions in a map keyed by the cookie value.
type memSessions struct {
	mu   sync.Mutex
	next int
	data map[string]*session.Data
}

func (s *memSessions) Create(_ context.Context, w http.ResponseWriter, d *session.Data) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := "sess-" + strconv.Itoa(s.next)
	s.data[id] = d
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: id, Path: "/"})
	return id, nil
}

func (s *memSessions) Get(_ context.Context, r *http.Request) (*session.Data, error) {
	c, err := r.Cookie(session.CookieName)
	if err != nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[c.Value], nil
}

func (s *memSessions) Destroy(_ context.Context, w http.ResponseWriter, r *http.Request) error {
	if c, err := r.Cookie(session.CookieName); err == nil {
		s.mu.Lock()
		delete(s.data, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "", Path: "/", MaxAge: -1})
	return nil
}

type fixture struct {
	db       *memstore.DB
	srv      http.Handler
	queue    *recordingQueue
	issuer   *auth.Issuer
	sessions *memSessions
	alice    *models.Account
	bob      *models.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	media := storage.NewDisk(t.TempDir(), "/media/")
	queue := &recordingQueue{}
	issuer := auth.NewIssuer("test-secret", auth.TTLs{
		Access:     5 * time.Minute,
		Refresh:    time.Hour,
		Activation: time.Hour,
		Reset:      time.Hour,
	})

	acctSvc := accounts.NewService(db.Accounts(), db.Tokens(), db.Profiles(), issuer, queue, media)
	blogSvc := blog.NewService(blog.Deps{
		Tx:         db,
		Posts:      db.Posts(),
		Categories: db.Categories(),
		Tags:       db.Tags(),
		Comments:   db.Comments(),
		Profiles:   db.Profiles(),
		Media:      media,
	})
	rn, err := render.New()
	require.NoError(t, err)
	sessions := &memSessions{data: make(map[string]*session.Data)}

	srv := router.New(router.Deps{
		Users:     handlers.NewUsers(acctSvc, testBaseURL),
		Blog:      handlers.NewBlog(blogSvc, 2, testBaseURL),
		Views:     handlers.NewViews(rn, blogSvc, acctSvc, sessions, nil, 3),
		Auth:      acctSvc,
		Sessions:  sessions,
		Media:     http.FileServer(http.Dir(media.Root())),
		MediaPath: "/media/",
	})

	f := &fixture{db: db, srv: srv, queue: queue, issuer: issuer, sessions: sessions}
	f.alice = f.account(t, "alice@example.com")
	f.bob = f.account(t, "bob@example.com")
	return f
}

// account creates a verified account with the shared test password.
func (f *fixture) account(t *testing.T, email string) *models.Account {
	t.Helper()
	a, err := f.db.Accounts().Create(context.Background(), email, goodPass, models.AccountFlags{IsVerified: true})
	require.NoError(t, err)
	return a
}

// bearer returns an Authorization header value for a.
func (f *fixture) bearer(t *testing.T, a *models.Account) string {
	t.Helper()
	tok, err := f.issuer.Issue(a.ID, a.Email, auth.TypeAccess)
	require.NoError(t, err)
	return "Bearer " + tok
}

// do sends a request with an optional JSON body and Authorization header.
func (f *fixture) do(t *testing.T, method, path string, body any, authz string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, req)
	return w
}

// upload sends data as the multipart "image" field.
func (f *fixture) upload(t *testing.T, path string, data []byte, authz string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "picture.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", authz)
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, req)
	return w
}

// decode unmarshals a JSON response body.
func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// postBody is a complete post payload.
func postBody(title string, status bool, categories ...string) map[string]any {
	cats := make([]map[string]string, len(categories))
	for i, c := range categories {
		cats[i] = map[string]string{"name": c}
	}
	return map[string]any{
		"title":          title,
		"content":        "content of " + title,
		"status":         status,
		"published_date": "2024-01-01T10:00:00Z",
		"categories":     cats,
		"tags":           []map[string]string{},
	}
}
