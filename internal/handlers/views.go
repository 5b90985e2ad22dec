// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inkpress/internal/access"
	"inkpress/internal/accounts"
	"inkpress/internal/apperr"
	"inkpress/internal/blog"
	"inkpress/internal/cache"
	"inkpress/internal/middleware"
	"inkpress/internal/models"
	"inkpress/internal/pagination"
	"inkpress/internal/render"
	"inkpress/internal/session"
)

// formDateLayout matches the datetime-local input.
const formDateLayout = "2006-01-02T15:04"

// Sessions creates and destroys HTML login sessions.
type Sessions interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// PageCache stores rendered anonymous pages.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, html []byte)
}

// Views groups the server-rendered blog pages and the session login.
type Views struct {
	renderer *render.Renderer
	blog     *blog.Service
	accounts *accounts.Service
	sessions Sessions
	pages    PageCache
	pageSize int
}

// NewViews creates the HTML handler group. pages may be nil to disable
// page caching.
func NewViews(renderer *render.Renderer, blogSvc *blog.Service, acctSvc *accounts.Service, sessions Sessions, pages PageCache, pageSize int) *Views {
	return &Views{
		renderer: renderer,
		blog:     blogSvc,
		accounts: acctSvc,
		sessions: sessions,
		pages:    pages,
		pageSize: pageSize,
	}
}

// cached serves key from the page cache for anonymous visitors. On a miss
// it renders the page and stores it.
func (v *Views) cached(w http.ResponseWriter, r *http.Request, key string, build func() (string, *render.PageData, error)) {
	anonymous := middleware.AccountFromCtx(r.Context()) == nil
	if anonymous && v.pages != nil {
		if body, ok := v.pages.Get(r.Context(), key); ok {
			render.Write(w, http.StatusOK, body)
			return
		}
	}

	name, data, err := build()
	if err != nil {
		v.fail(w, r, err)
		return
	}
	body, err := v.renderer.Bytes(r, name, data)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	if anonymous && v.pages != nil {
		v.pages.Set(r.Context(), key, body)
	}
	render.Write(w, http.StatusOK, body)
}

// fail renders a plain error page for a service error.
func (v *Views) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, MsgNotFound, http.StatusNotFound)
	case errors.Is(err, apperr.ErrForbidden):
		http.Error(w, MsgForbidden, http.StatusForbidden)
	default:
		slog.Error("view failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, MsgInternal, http.StatusInternalServerError)
	}
}

// PostList renders one page of published posts, newest first.
func (v *Views) PostList(w http.ResponseWriter, r *http.Request) {
	req, err := pagination.ParseRequest(r.URL.Query(), v.pageSize)
	if err != nil {
		v.fail(w, r, apperr.ErrNotFound)
		return
	}
	v.cached(w, r, cache.ListKey(req.Number), func() (string, *render.PageData, error) {
		posts, total, err := v.blog.ListPosts(r.Context(), models.PostFilter{
			Ordering: models.OrderPublishedDesc,
			Limit:    req.Size,
			Offset:   req.Offset(),
		})
		if err != nil {
			return "", nil, err
		}
		pages := pagination.TotalPages(total, req.Size)
		if req.Number > pages {
			return "", nil, apperr.ErrNotFound
		}
		return "post_list", &render.PageData{
			Title: "Posts",
			Data: map[string]any{
				"Posts":       posts,
				"Number":      req.Number,
				"TotalPages":  pages,
				"HasNext":     req.Number < pages,
				"Next":        req.Number + 1,
				"HasPrevious": req.Number > 1,
				"Previous":    req.Number - 1,
			},
		}, nil
	})
}

// PostDetail renders one post. Drafts are shown to their owner only.
func (v *Views) PostDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	v.cached(w, r, cache.PostKey(id), func() (string, *render.PageData, error) {
		actor := middleware.AccountFromCtx(r.Context())
		p, err := v.blog.GetPost(r.Context(), actor, id)
		if err != nil {
			return "", nil, err
		}
		byline, err := v.blog.Byline(r.Context(), p)
		if err != nil {
			return "", nil, err
		}
		return "post_detail", &render.PageData{
			Title: p.Title,
			Data: map[string]any{
				"Post":    p,
				"Byline":  byline,
				"CanEdit": access.PostOwner.CanWrite(actor, p) == nil,
			},
		}, nil
	})
}

// PostCreate shows and handles the new post form.
func (v *Views) PostCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		v.form(w, r, http.StatusOK, "New post", "/blog/create/", map[string]string{
			"published_date": time.Now().Format(formDateLayout),
		}, nil)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	in, err := blog.DecodePostForm(r.PostForm)
	if err == nil {
		var p *models.Post
		p, err = v.blog.CreatePost(r.Context(), middleware.AccountFromCtx(r.Context()), in)
		if err == nil {
			http.Redirect(w, r, postURL(p.ID), http.StatusSeeOther)
			return
		}
	}
	v.formError(w, r, "New post", "/blog/create/", err)
}

// PostEdit shows and handles the edit form of an owned post.
func (v *Views) PostEdit(w http.ResponseWriter, r *http.Request) {
	p, ok := v.ownedPost(w, r)
	if !ok {
		return
	}
	action := postURL(p.ID) + "edit/"

	if r.Method == http.MethodGet {
		v.form(w, r, http.StatusOK, "Edit post", action, postForm(p), nil)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	in, err := blog.DecodePostForm(r.PostForm)
	if err == nil {
		_, err = v.blog.UpdatePost(r.Context(), middleware.AccountFromCtx(r.Context()), p.ID, in, false)
		if err == nil {
			http.Redirect(w, r, postURL(p.ID), http.StatusSeeOther)
			return
		}
	}
	v.formError(w, r, "Edit post", action, err)
}

// PostDelete shows a confirmation page and deletes an owned post.
func (v *Views) PostDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := v.ownedPost(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet {
		v.renderer.Page(w, r, http.StatusOK, "post_delete", &render.PageData{
			Title: "Delete post",
			Data:  map[string]any{"Post": p},
		})
		return
	}

	if err := v.blog.DeletePost(r.Context(), middleware.AccountFromCtx(r.Context()), p.ID); err != nil {
		v.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/blog/", http.StatusSeeOther)
}

// ownedPost loads the post named in the URL and checks the caller owns it.
func (v *Views) ownedPost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, err := idParam(r, "id")
	if err != nil {
		v.fail(w, r, err)
		return nil, false
	}
	actor := middleware.AccountFromCtx(r.Context())
	p, err := v.blog.GetPost(r.Context(), actor, id)
	if err == nil {
		err = access.PostOwner.CanWrite(actor, p)
	}
	if err != nil {
		v.fail(w, r, err)
		return nil, false
	}
	return p, true
}

func (v *Views) form(w http.ResponseWriter, r *http.Request, status int, title, action string, values map[string]string, errs map[string][]string) {
	v.renderer.Page(w, r, status, "post_form", &render.PageData{
		Title: title,
		Data: map[string]any{
			"Action": action,
			"Form":   values,
			"Errors": errs,
		},
	})
}

// formError re-renders the form with the submitted values and the
// validation messages of err.
func (v *Views) formError(w http.ResponseWriter, r *http.Request, title, action string, err error) {
	verr, ok := apperr.AsValidation(err)
	if !ok {
		v.fail(w, r, err)
		return
	}
	values := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		values[k] = r.PostForm.Get(k)
	}
	v.form(w, r, http.StatusBadRequest, title, action, values, verr.Fields)
}

// postForm fills the form fields from a stored post.
func postForm(p *models.Post) map[string]string {
	values := map[string]string{
		"title":          p.Title,
		"content":        p.Content,
		"published_date": p.PublishedDate.Format(formDateLayout),
		"categories":     termNames(p.Categories),
		"tags":           termNames(p.Tags),
	}
	if p.Status {
		values["status"] = "on"
	}
	return values
}

func termNames(terms []models.Term) string {
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func postURL(id int64) string {
	return "/blog/" + strconv.FormatInt(id, 10) + "/"
}

// LoginPage renders the login form.
func (v *Views) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if middleware.AccountFromCtx(r.Context()) != nil {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	v.login(w, r, http.StatusOK, "", "", next)
}

// LoginSubmit checks the credentials and starts a session.
func (v *Views) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	next := safeNext(r.FormValue("next"))

	acct, err := v.accounts.Authenticate(r.Context(), accounts.CredentialsInput{
		Email:    email,
		Password: r.FormValue("password"),
	})
	if err != nil {
		msg := "Please enter a correct email and password."
		verr, ok := apperr.AsValidation(err)
		if !ok {
			slog.Error("login failed", "error", err)
			msg = "An unexpected error occurred."
		} else if d := verr.Fields[apperr.DetailKey]; len(d) > 0 {
			msg = d[0]
		}
		v.login(w, r, http.StatusOK, msg, email, next)
		return
	}

	_, err = v.sessions.Create(r.Context(), w, &session.Data{
		AccountID: acct.ID,
		Email:     acct.Email,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Error("session create failed", "account_id", acct.ID, "error", err)
		v.login(w, r, http.StatusOK, "An unexpected error occurred.", email, next)
		return
	}

	slog.Info("session login", "account_id", acct.ID)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Logout ends the session.
func (v *Views) Logout(w http.ResponseWriter, r *http.Request) {
	if err := v.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("session destroy failed", "error", err)
	}
	http.Redirect(w, r, "/blog/", http.StatusSeeOther)
}

func (v *Views) login(w http.ResponseWriter, r *http.Request, status int, msg, email, next string) {
	v.renderer.Page(w, r, status, "login", &render.PageData{
		Title: "Sign in",
		Data: map[string]any{
			"Error": msg,
			"Email": email,
			"Next":  next,
		},
	})
}

// safeNext accepts only local redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/blog/"
	}
	return next
}
