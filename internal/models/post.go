// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"
)

// snippetWords is how many words of a body make up its snippet.
const snippetWords = 5

// Term is a named label owned by an account. Categories and tags share the
// same shape and are stored in separate tables.
type Term struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Category groups posts by subject.
type Category = Term

// Tag is a free-form label attached to posts.
type Tag = Term

// Post is a blog article written by a profile. Categories and Tags are
// populated by store methods in attachment order.
type Post struct {
	ID              int64      `json:"id"`
	AuthorID        int64      `json:"author"`
	AuthorAccountID int64      `json:"-"` // joined from profiles, used for ownership checks
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Status          bool       `json:"status"`
	PublishedDate   time.Time  `json:"published_date"`
	Image           *string    `json:"image"`
	Categories      []Category `json:"categories"`
	Tags            []Tag      `json:"tags"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsPublished returns true if the post is visible in public listings.
func (p *Post) IsPublished() bool {
	return p.Status
}

// Snippet returns the first few words of the content.
func (p *Post) Snippet() string {
	return Snippet(p.Content)
}

// Comment is free text left by an account on a post.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_obj"`
	AccountID int64     `json:"user"`
	Body      string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snippet returns the first few words of the comment.
func (c *Comment) Snippet() string {
	return Snippet(c.Body)
}

// Snippet returns the first five whitespace-separated words of s joined by
// single spaces.
func Snippet(s string) string {
	words := strings.Fields(s)
	if len(words) > snippetWords {
		words = words[:snippetWords]
	}
	return strings.Join(words, " ")
}

// PostOrdering selects the sort order of post listings.
type PostOrdering string

const (
	OrderPublishedDesc PostOrdering = "-published_date"
	OrderPublishedAsc  PostOrdering = "published_date"
)

// PostFilter describes a page of the public post listing. Filters are
// ANDed; ids within CategoryIDs (or TagIDs) are ORed.
type PostFilter struct {
	CategoryIDs []int64
	TagIDs      []int64
	Search      string
	Ordering    PostOrdering
	Limit       int
	Offset      int
}

// CommentFilter narrows a comment listing to one post when PostID is set.
type CommentFilter struct {
	PostID *int64
}
