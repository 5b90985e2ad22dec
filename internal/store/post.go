// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"inkpress/internal/models"
)

// PostStore handles all post-related database operations, including the
// ordered category and tag associations.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postSelect = `
	SELECT po.id, po.author_id, pr.account_id, po.title, po.content, po.status,
	       po.published_date, po.image, po.created_at, po.updated_at
	FROM posts po JOIN profiles pr ON pr.id = po.author_id`

func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := scanner.Scan(
		&p.ID, &p.AuthorID, &p.AuthorAccountID, &p.Title, &p.Content, &p.Status,
		&p.PublishedDate, &p.Image, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Categories = []models.Category{}
	p.Tags = []models.Tag{}
	return &p, nil
}

// Create inserts the scalar fields of a post and fills in its id,
// timestamps and author account. Associations are set separately.
func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	q := conn(ctx, s.db)
	err := q.QueryRowContext(ctx, `
		INSERT INTO posts (author_id, title, content, status, published_date, image)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, p.AuthorID, p.Title, p.Content, p.Status, p.PublishedDate, p.Image,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	err = q.QueryRowContext(ctx,
		`SELECT account_id FROM profiles WHERE id = $1`, p.AuthorID,
	).Scan(&p.AuthorAccountID)
	if err != nil {
		return fmt.Errorf("create post author: %w", err)
	}
	if p.Categories == nil {
		p.Categories = []models.Category{}
	}
	if p.Tags == nil {
		p.Tags = []models.Tag{}
	}
	return nil
}

// Update saves the scalar fields of an existing post.
func (s *PostStore) Update(ctx context.Context, p *models.Post) error {
	err := conn(ctx, s.db).QueryRowContext(ctx, `
		UPDATE posts
		SET title = $1, content = $2, status = $3, published_date = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`, p.Title, p.Content, p.Status, p.PublishedDate, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// SetImage stores the URL of the post's image.
func (s *PostStore) SetImage(ctx context.Context, id int64, image string) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `
		UPDATE posts SET image = $1, updated_at = NOW() WHERE id = $2
	`, image, id)
	if err != nil {
		return fmt.Errorf("set post image: %w", err)
	}
	return nil
}

// Delete removes a post. Comments and associations are dropped by cascade.
func (s *PostStore) Delete(ctx context.Context, id int64) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// FindByID retrieves a post, published or not, with its associations.
// Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, postSelect+` WHERE po.id = $1`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}

	posts := []models.Post{*p}
	if err := s.loadTerms(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// List returns one page of published posts matching the filter together
// with the total number of matches. Category and tag filters use EXISTS
// sub-selects so a post matching several ids appears once.
func (s *PostStore) List(ctx context.Context, f models.PostFilter) ([]models.Post, int, error) {
	where, args := postWhere(f)
	q := conn(ctx, s.db)

	var total int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts po WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	order := "po.published_date DESC, po.id DESC"
	if f.Ordering == models.OrderPublishedAsc {
		order = "po.published_date ASC, po.id ASC"
	}
	query := postSelect + ` WHERE ` + where + ` ORDER BY ` + order
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	if err := s.loadTerms(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// postWhere builds the WHERE clause of the public listing.
func postWhere(f models.PostFilter) (string, []any) {
	clauses := []string{"po.status = TRUE"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if len(f.CategoryIDs) > 0 {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM post_categories pc
			WHERE pc.post_id = po.id AND pc.category_id = ANY(`+arg(f.CategoryIDs)+`))`)
	}
	if len(f.TagIDs) > 0 {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM post_tags pt
			WHERE pt.post_id = po.id AND pt.tag_id = ANY(`+arg(f.TagIDs)+`))`)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := arg("%" + escapeLike(search) + "%")
		clauses = append(clauses, "(po.title ILIKE "+p+" OR po.content ILIKE "+p+")")
	}
	return strings.Join(clauses, " AND "), args
}

// escapeLike escapes LIKE wildcards so search terms match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// SetCategories replaces the post's categories with ids, in order.
func (s *PostStore) SetCategories(ctx context.Context, postID int64, ids []int64) error {
	return s.replaceLinks(ctx, "post_categories", "category_id", postID, ids)
}

// SetTags replaces the post's tags with ids, in order.
func (s *PostStore) SetTags(ctx context.Context, postID int64, ids []int64) error {
	return s.replaceLinks(ctx, "post_tags", "tag_id", postID, ids)
}

// replaceLinks clears a link table for the post and inserts ids with their
// position. Repeated ids are attached once, at their first position.
func (s *PostStore) replaceLinks(ctx context.Context, table, column string, postID int64, ids []int64) error {
	return inTx(ctx, s.db, func(ctx context.Context) error {
		q := conn(ctx, s.db)
		if _, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE post_id = $1`, postID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		for pos, id := range ids {
			_, err := q.ExecContext(ctx,
				`INSERT INTO `+table+` (post_id, `+column+`, position) VALUES ($1, $2, $3)
				 ON CONFLICT DO NOTHING`,
				postID, id, pos,
			)
			if err != nil {
				return fmt.Errorf("attach %s: %w", table, err)
			}
		}
		return nil
	})
}

// loadTerms fills Categories and Tags of every post with two queries.
func (s *PostStore) loadTerms(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	index := make(map[int64]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		index[p.ID] = i
	}

	cats, err := s.linkedTerms(ctx, "post_categories", "category_id", "categories", ids)
	if err != nil {
		return err
	}
	for postID, terms := range cats {
		posts[index[postID]].Categories = terms
	}

	tags, err := s.linkedTerms(ctx, "post_tags", "tag_id", "tags", ids)
	if err != nil {
		return err
	}
	for postID, terms := range tags {
		posts[index[postID]].Tags = terms
	}
	return nil
}

func (s *PostStore) linkedTerms(ctx context.Context, link, column, table string, postIDs []int64) (map[int64][]models.Term, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx, `
		SELECT l.post_id, t.id, t.owner_id, t.name, t.created_at, t.updated_at
		FROM `+link+` l JOIN `+table+` t ON t.id = l.`+column+`
		WHERE l.post_id = ANY($1)
		ORDER BY l.post_id, l.position
	`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[int64][]models.Term)
	for rows.Next() {
		var postID int64
		var t models.Term
		if err := rows.Scan(&postID, &t.ID, &t.OwnerID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out[postID] = append(out[postID], t)
	}
	return out, rows.Err()
}
