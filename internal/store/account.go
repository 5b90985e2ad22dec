package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"inkpress/internal/apperr"
	"inkpress/internal/models"
)

// Validation messages produced by account creation.
const (
	MsgEmailRequired = "The email must be set."
	MsgEmailTaken    = "user with this email address already exists."
)

// pgUniqueViolation is the SQLSTATE for unique constraint failures.
const pgUniqueViolation = "23505"

// AccountStore handles all account-related database operations.
type AccountStore struct {
	db *sql.DB
}

// NewAccountStore creates a new AccountStore with the given database connection.
func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `id, email, password_hash, is_active, is_staff, is_superuser,
	is_verified, last_login, created_at, updated_at`

func scanAccount(scanner interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	err := scanner.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.IsActive, &a.IsStaff, &a.IsSuperuser,
		&a.IsVerified, &a.LastLogin, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new account with a bcrypt-hashed password and its empty
// profile in one transaction. The email is normalised by lower-casing the
// domain part. An empty email or an already registered one is reported as
// a *apperr.ValidationError on the "email" field.
func (s *AccountStore) Create(ctx context.Context, email, password string, flags models.AccountFlags) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.Field("email", MsgEmailRequired)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var a *models.Account
	err = inTx(ctx, s.db, func(ctx context.Context) error {
		q := conn(ctx, s.db)
		row := q.QueryRowContext(ctx, `
			INSERT INTO accounts (email, password_hash, is_staff, is_superuser, is_verified)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+accountColumns,
			email, string(hash), flags.IsStaff, flags.IsSuperuser, flags.IsVerified,
		)
		var err error
		if a, err = scanAccount(row); err != nil {
			if isUniqueViolation(err) {
				return apperr.Field("email", MsgEmailTaken)
			}
			return fmt.Errorf("create account: %w", err)
		}

		if _, err := q.ExecContext(ctx,
			`INSERT INTO profiles (account_id) VALUES ($1)`, a.ID,
		); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateSuperuser creates a verified staff superuser.
func (s *AccountStore) CreateSuperuser(ctx context.Context, email, password string) (*models.Account, error) {
	return s.Create(ctx, email, password, models.AccountFlags{
		IsStaff:     true,
		IsSuperuser: true,
		IsVerified:  true,
	})
}

// FindByEmail retrieves an account by its email address. The lookup
// normalises the domain part first. Returns nil if not found.
func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`,
		models.NormalizeEmail(email),
	)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return a, nil
}

// FindByID retrieves an account by id. Returns nil if not found.
func (s *AccountStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return a, nil
}

// SetVerified marks the account's email as confirmed.
func (s *AccountStore) SetVerified(ctx context.Context, id int64) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `
		UPDATE accounts SET is_verified = TRUE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("set verified: %w", err)
	}
	return nil
}

// SetPassword replaces the account's password hash.
func (s *AccountStore) SetPassword(ctx context.Context, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = conn(ctx, s.db).ExecContext(ctx, `
		UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2
	`, string(hash), id)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

// TouchLastLogin records a successful login.
func (s *AccountStore) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := conn(ctx, s.db).ExecContext(ctx,
		`UPDATE accounts SET last_login = NOW() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// CheckPassword verifies a plaintext password against the account's stored hash.
func (s *AccountStore) CheckPassword(a *models.Account, password string) bool {
	return CheckPassword(a, password)
}

// CheckPassword verifies a plaintext password against a stored bcrypt hash.
func CheckPassword(a *models.Account, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
