package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inkpress/internal/models"
)

// CommentStore handles all comment-related database operations.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a new CommentStore.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

const commentColumns = `id, post_id, account_id, comment, created_at, updated_at`

func scanComment(scanner interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	if err := scanner.Scan(&c.ID, &c.PostID, &c.AccountID, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns comments ordered by text descending, optionally limited to
// one post.
func (s *CommentStore) List(ctx context.Context, f models.CommentFilter) ([]models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments`
	var args []any
	if f.PostID != nil {
		query += ` WHERE post_id = $1`
		args = append(args, *f.PostID)
	}
	query += ` ORDER BY comment DESC, id DESC`

	rows, err := conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID returns a comment by id. Returns nil if not found.
func (s *CommentStore) FindByID(ctx context.Context, id int64) (*models.Comment, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id,
	)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return c, nil
}

// Create inserts a comment and fills in its id and timestamps.
func (s *CommentStore) Create(ctx context.Context, c *models.Comment) error {
	err := conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO comments (post_id, account_id, comment) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, c.PostID, c.AccountID, c.Body).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// Update saves the post reference and text of a comment.
func (s *CommentStore) Update(ctx context.Context, c *models.Comment) error {
	err := conn(ctx, s.db).QueryRowContext(ctx, `
		UPDATE comments SET post_id = $1, comment = $2, updated_at = NOW()
		WHERE id = $3 RETURNING updated_at
	`, c.PostID, c.Body, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// Delete removes a comment.
func (s *CommentStore) Delete(ctx context.Context, id int64) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
