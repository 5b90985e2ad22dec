package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inkpress/internal/models"
)

// ProfileStore handles reads and updates of account profiles. Profiles are
// only ever inserted by AccountStore.Create.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileSelect = `
	SELECT p.id, p.account_id, a.email, p.first_name, p.last_name, p.bio,
	       p.sex, p.image, p.created_at, p.updated_at
	FROM profiles p JOIN accounts a ON a.id = p.account_id`

func scanProfile(scanner interface{ Scan(...any) error }) (*models.Profile, error) {
	var p models.Profile
	var sex sql.NullString
	err := scanner.Scan(
		&p.ID, &p.AccountID, &p.Email, &p.FirstName, &p.LastName, &p.Bio,
		&sex, &p.Image, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sex.Valid {
		p.Sex = &sex.String
	}
	return &p, nil
}

// FindByAccount returns the profile of an account. Returns nil if not found.
func (s *ProfileStore) FindByAccount(ctx context.Context, accountID int64) (*models.Profile, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, profileSelect+` WHERE p.account_id = $1`, accountID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile by account: %w", err)
	}
	return p, nil
}

// FindByID returns a profile by id. Returns nil if not found.
func (s *ProfileStore) FindByID(ctx context.Context, id int64) (*models.Profile, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, profileSelect+` WHERE p.id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return p, nil
}

// Update saves the editable attributes of a profile.
func (s *ProfileStore) Update(ctx context.Context, p *models.Profile) error {
	err := conn(ctx, s.db).QueryRowContext(ctx, `
		UPDATE profiles
		SET first_name = $1, last_name = $2, bio = $3, sex = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`, p.FirstName, p.LastName, p.Bio, p.Sex, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// SetImage stores the URL of the profile picture.
func (s *ProfileStore) SetImage(ctx context.Context, id int64, image string) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `
		UPDATE profiles SET image = $1, updated_at = NOW() WHERE id = $2
	`, image, id)
	if err != nil {
		return fmt.Errorf("set profile image: %w", err)
	}
	return nil
}
