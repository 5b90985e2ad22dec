// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inkpress/internal/access"
	"inkpress/internal/apperr"
	"inkpress/internal/blog"
	"inkpress/internal/middleware"
	"inkpress/internal/models"
	"inkpress/internal/pagination"
)

// MsgInvalidPage is reported for a page number past the last page.
const MsgInvalidPage = "Invalid page."

// Blog groups the content API handlers mounted under /blog/api/v1.
type Blog struct {
	blog     *blog.Service
	pageSize int
	baseURL  string

	categories *Terms
	tags       *Terms
}

// NewBlog creates the content handler group. pageSize is the number of
// posts per API page.
func NewBlog(svc *blog.Service, pageSize int, baseURL string) *Blog {
	return &Blog{
		blog:       svc,
		pageSize:   pageSize,
		baseURL:    baseURL,
		categories: &Terms{svc: svc.Categories()},
		tags:       &Terms{svc: svc.Tags()},
	}
}

// Categories returns the category handlers.
func (b *Blog) Categories() *Terms { return b.categories }

// Tags returns the tag handlers.
func (b *Blog) Tags() *Terms { return b.tags }

// ListPosts returns one page of published posts. It accepts the
// categories and tags id filters, a search term and an ordering.
func (b *Blog) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := postFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := pagination.ParseRequest(q, b.pageSize)
	if err != nil {
		writeDetail(w, http.StatusNotFound, MsgInvalidPage)
		return
	}
	f.Limit, f.Offset = req.Size, req.Offset()

	posts, total, err := b.blog.ListPosts(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	self, err := url.Parse(requestBase(r, b.baseURL) + r.URL.RequestURI())
	if err != nil {
		writeError(w, r, fmt.Errorf("parse request url: %w", err))
		return
	}
	items := make([]postListItem, len(posts))
	for i := range posts {
		items[i] = newPostListItem(&posts[i], requestBase(r, b.baseURL))
	}
	page, err := pagination.Build(self, req, total, items)
	if errors.Is(err, pagination.ErrInvalidPage) {
		writeDetail(w, http.StatusNotFound, MsgInvalidPage)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// postListItem is a post as shown in listings: the content is replaced by
// its snippet and a link to the detail endpoint.
type postListItem struct {
	ID            int64             `json:"id"`
	AuthorID      int64             `json:"author"`
	Title         string            `json:"title"`
	Snippet       string            `json:"snippet"`
	AbsURL        string            `json:"abs_url"`
	Status        bool              `json:"status"`
	PublishedDate time.Time         `json:"published_date"`
	Image         *string           `json:"image"`
	Categories    []models.Category `json:"categories"`
	Tags          []models.Tag      `json:"tags"`
}

func newPostListItem(p *models.Post, base string) postListItem {
	normalizePost(p)
	return postListItem{
		ID:            p.ID,
		AuthorID:      p.AuthorID,
		Title:         p.Title,
		Snippet:       p.Snippet(),
		AbsURL:        base + postPath(p.ID),
		Status:        p.Status,
		PublishedDate: p.PublishedDate,
		Image:         p.Image,
		Categories:    p.Categories,
		Tags:          p.Tags,
	}
}

// postPath is the API path of one post.
func postPath(id int64) string {
	return "/blog/api/v1/posts/" + strconv.FormatInt(id, 10) + "/"
}

// commentListItem adds the snippet to a listed comment.
type commentListItem struct {
	models.Comment
	Snippet string `json:"snippet"`
}

// postFilter reads the listing filters from the query string.
func postFilter(q url.Values) (models.PostFilter, error) {
	var f models.PostFilter
	v := &apperr.ValidationError{}
	for _, name := range []string{"categories", "tags"} {
		raw := q.Get(name)
		ids, err := pagination.ParseIDs(raw)
		if err != nil {
			v.Add(name, fmt.Sprintf("%q is not a valid value.", raw))
			continue
		}
		if name == "categories" {
			f.CategoryIDs = ids
		} else {
			f.TagIDs = ids
		}
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	switch o := models.PostOrdering(q.Get("ordering")); o {
	case models.OrderPublishedAsc, models.OrderPublishedDesc:
		f.Ordering = o
	}
	return f, v.OrNil()
}

// normalizePost renders missing associations as empty lists.
func normalizePost(p *models.Post) {
	if p.Categories == nil {
		p.Categories = []models.Category{}
	}
	if p.Tags == nil {
		p.Tags = []models.Tag{}
	}
}

// GetPost returns one post.
func (b *Blog) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := b.blog.GetPost(r.Context(), middleware.AccountFromCtx(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	normalizePost(p)
	writeJSON(w, http.StatusOK, p)
}

// CreatePost stores a post authored by the caller.
func (b *Blog) CreatePost(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := blog.DecodePost(body, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := b.blog.CreatePost(r.Context(), middleware.AccountFromCtx(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	normalizePost(p)
	writeJSON(w, http.StatusCreated, p)
}

// UpdatePost replaces (PUT) or patches (PATCH) a post.
func (b *Blog) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	partial := r.Method == http.MethodPatch
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	actor := middleware.AccountFromCtx(r.Context())
	// Existence and ownership are checked before the payload.
	current, err := b.blog.GetPost(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := access.PostOwner.Check(r.Method, actor, current); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := blog.DecodePost(body, partial)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := b.blog.UpdatePost(r.Context(), actor, id, in, partial)
	if err != nil {
		writeError(w, r, err)
		return
	}
	normalizePost(p)
	writeJSON(w, http.StatusOK, p)
}

// DeletePost removes a post.
func (b *Blog) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := b.blog.DeletePost(r.Context(), middleware.AccountFromCtx(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPostImage replaces the image of a post.
func (b *Blog) UploadPostImage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := readImage(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := b.blog.UploadPostImage(r.Context(), middleware.AccountFromCtx(r.Context()), id, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	normalizePost(p)
	writeJSON(w, http.StatusOK, p)
}

// ListComments returns comments, narrowed to one post by ?post=<id>.
func (b *Blog) ListComments(w http.ResponseWriter, r *http.Request) {
	var f models.CommentFilter
	if raw := r.URL.Query().Get("post"); raw != "" {
		ids, err := pagination.ParseIDs(raw)
		if err != nil || len(ids) != 1 {
			writeError(w, r, apperr.Field("post", fmt.Sprintf("%q is not a valid value.", raw)))
			return
		}
		f.PostID = &ids[0]
	}
	comments, err := b.blog.ListComments(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]commentListItem, len(comments))
	for i, c := range comments {
		items[i] = commentListItem{Comment: c, Snippet: c.Snippet()}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetComment returns one comment.
func (b *Blog) GetComment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := b.blog.GetComment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateComment stores a comment by the caller.
func (b *Blog) CreateComment(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := blog.DecodeComment(body, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := b.blog.CreateComment(r.Context(), middleware.AccountFromCtx(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateComment replaces (PUT) or patches (PATCH) a comment.
func (b *Blog) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	partial := r.Method == http.MethodPatch
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	actor := middleware.AccountFromCtx(r.Context())
	current, err := b.blog.GetComment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := access.CommentOwner.Check(r.Method, actor, current); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := blog.DecodeComment(body, partial)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := b.blog.UpdateComment(r.Context(), actor, id, in, partial)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteComment removes a comment.
func (b *Blog) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := b.blog.DeleteComment(r.Context(), middleware.AccountFromCtx(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Terms serves CRUD for one kind of term.
type Terms struct {
	svc *blog.TermService
}

// List returns every term.
func (t *Terms) List(w http.ResponseWriter, r *http.Request) {
	terms, err := t.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if terms == nil {
		terms = []models.Term{}
	}
	writeJSON(w, http.StatusOK, terms)
}

// Get returns one term.
func (t *Terms) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	term, err := t.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, term)
}

// Create stores a term owned by the caller.
func (t *Terms) Create(w http.ResponseWriter, r *http.Request) {
	name, err := t.decode(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	term, err := t.svc.Create(r.Context(), middleware.AccountFromCtx(r.Context()), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, term)
}

// Update renames a term. PUT and PATCH both require the name, the only
// writable field.
func (t *Terms) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	actor := middleware.AccountFromCtx(r.Context())
	current, err := t.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := access.TermOwner.Check(r.Method, actor, current); err != nil {
		writeError(w, r, err)
		return
	}
	name, err := t.decode(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	term, err := t.svc.Update(r.Context(), actor, id, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, term)
}

// Delete removes a term.
func (t *Terms) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := t.svc.Delete(r.Context(), middleware.AccountFromCtx(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (t *Terms) decode(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := readBody(w, r)
	if err != nil {
		return "", err
	}
	return blog.DecodeTerm(body)
}
