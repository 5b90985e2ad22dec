package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"inkpress/internal/models"
)

// tokenBytes is the entropy of an opaque login token (40 hex characters).
const tokenBytes = 20

// TokenStore manages opaque login tokens, one per account.
type TokenStore struct {
	db *sql.DB
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// GenerateKey returns a random 40 character hex token key.
func GenerateKey() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GetOrCreate returns the account's token, creating one if it has none.
func (s *TokenStore) GetOrCreate(ctx context.Context, accountID int64) (*models.AuthToken, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	// The no-op update makes RETURNING yield the existing row on conflict.
	t := &models.AuthToken{}
	err = conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO auth_tokens (key, account_id) VALUES ($1, $2)
		ON CONFLICT (account_id) DO UPDATE SET account_id = EXCLUDED.account_id
		RETURNING key, account_id, created_at
	`, key, accountID).Scan(&t.Key, &t.AccountID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create token: %w", err)
	}
	return t, nil
}

// FindByKey looks a token up by its key. Returns nil if not found.
func (s *TokenStore) FindByKey(ctx context.Context, key string) (*models.AuthToken, error) {
	t := &models.AuthToken{}
	err := conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT key, account_id, created_at FROM auth_tokens WHERE key = $1
	`, key).Scan(&t.Key, &t.AccountID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	return t, nil
}

// DeleteForAccount removes the account's token, if any.
func (s *TokenStore) DeleteForAccount(ctx context.Context, accountID int64) error {
	_, err := conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE account_id = $1`, accountID,
	)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
