// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inkpress/internal/models"
)

// TermStore manages one term table (categories or tags). Both tables share
// the same columns, so a single implementation serves both.
type TermStore struct {
	db    *sql.DB
	table string
	kind  string // singular, for error messages
}

// NewCategoryStore returns a TermStore over the categories table.
func NewCategoryStore(db *sql.DB) *TermStore {
	return &TermStore{db: db, table: "categories", kind: "category"}
}

// NewTagStore returns a TermStore over the tags table.
func NewTagStore(db *sql.DB) *TermStore {
	return &TermStore{db: db, table: "tags", kind: "tag"}
}

const termColumns = `id, owner_id, name, created_at, updated_at`

func scanTerm(scanner interface{ Scan(...any) error }) (*models.Term, error) {
	var t models.Term
	if err := scanner.Scan(&t.ID, &t.OwnerID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns every term ordered by name descending.
func (s *TermStore) List(ctx context.Context) ([]models.Term, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+termColumns+` FROM `+s.table+` ORDER BY name DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	defer rows.Close()

	items := []models.Term{}
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.kind, err)
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

// FindByID returns a term by id. Returns nil if not found.
func (s *TermStore) FindByID(ctx context.Context, id int64) (*models.Term, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+termColumns+` FROM `+s.table+` WHERE id = $1`, id,
	)
	t, err := scanTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", s.kind, err)
	}
	return t, nil
}

// Create inserts a term owned by the given account.
func (s *TermStore) Create(ctx context.Context, ownerID int64, name string) (*models.Term, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO `+s.table+` (owner_id, name) VALUES ($1, $2) RETURNING `+termColumns,
		ownerID, name,
	)
	t, err := scanTerm(row)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", s.kind, err)
	}
	return t, nil
}

// Update renames a term. Returns nil if the term does not exist.
func (s *TermStore) Update(ctx context.Context, id int64, name string) (*models.Term, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`UPDATE `+s.table+` SET name = $1, updated_at = NOW() WHERE id = $2 RETURNING `+termColumns,
		name, id,
	)
	t, err := scanTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", s.kind, err)
	}
	return t, nil
}

// Delete removes a term. Post associations are dropped by cascade.
func (s *TermStore) Delete(ctx context.Context, id int64) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `DELETE FROM `+s.table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.kind, err)
	}
	return nil
}

// GetOrCreate returns the owner's term with the given name, creating it
// when none exists. When duplicates exist the oldest one wins. The bool
// reports whether a row was inserted.
func (s *TermStore) GetOrCreate(ctx context.Context, ownerID int64, name string) (*models.Term, bool, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+termColumns+` FROM `+s.table+`
		 WHERE owner_id = $1 AND name = $2 ORDER BY id LIMIT 1`,
		ownerID, name,
	)
	t, err := scanTerm(row)
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("get %s: %w", s.kind, err)
	}

	t, err = s.Create(ctx, ownerID, name)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}
