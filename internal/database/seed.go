package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Demo account created by Seed.
const (
	SeedEmail    = "demo@inkpress.local"
	SeedPassword = "T123@example"
)

var (
	seedCategories = []string{"Django", "Programming", "IT", "Python", "DRF"}
	seedTags       = []string{"Useful", "Expensive", "Cheap", "Hardwork", "Mentally"}
	seedWords      = strings.Fields(`lorem ipsum dolor sit amet consectetur adipiscing
		elit sed do eiusmod tempor incididunt ut labore et dolore magna aliqua enim
		ad minim veniam quis nostrud exercitation ullamco laboris nisi aliquip`)
)

// seedPosts is how many posts Seed writes for the demo account.
const seedPosts = 10

// Seed populates the database with development data: a verified demo
// account with a filled-in profile, five categories, five tags and ten
// posts with a random published flag. It does nothing if the demo account
// already exists.
func Seed(db *sql.DB) error {
	ctx := context.Background()

	var exists bool
	if err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, SeedEmail,
	).Scan(&exists); err != nil {
		return fmt.Errorf("seed check accounts: %w", err)
	}
	if exists {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var accountID, profileID int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO accounts (email, password_hash, is_verified)
		VALUES ($1, $2, TRUE) RETURNING id
	`, SeedEmail, string(hash)).Scan(&accountID); err != nil {
		return fmt.Errorf("seed insert account: %w", err)
	}

	sex := "M"
	if rand.IntN(2) == 1 {
		sex = "F"
	}
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO profiles (account_id, first_name, last_name, bio, sex)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, accountID, "Demo", "Author", sentence(18), sex).Scan(&profileID); err != nil {
		return fmt.Errorf("seed insert profile: %w", err)
	}

	categoryIDs, err := seedTerms(ctx, tx, "categories", accountID, seedCategories)
	if err != nil {
		return err
	}
	tagIDs, err := seedTerms(ctx, tx, "tags", accountID, seedTags)
	if err != nil {
		return err
	}

	for i := 0; i < seedPosts; i++ {
		var postID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO posts (author_id, title, content, status, published_date)
			VALUES ($1, $2, $3, $4, $5) RETURNING id
		`, profileID, sentence(6), sentence(40), rand.IntN(2) == 1, time.Now()).Scan(&postID)
		if err != nil {
			return fmt.Errorf("seed insert post: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_categories (post_id, category_id, position) VALUES ($1, $2, 0)`,
			postID, categoryIDs[rand.IntN(len(categoryIDs))],
		); err != nil {
			return fmt.Errorf("seed attach category: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag_id, position) VALUES ($1, $2, 0)`,
			postID, tagIDs[rand.IntN(len(tagIDs))],
		); err != nil {
			return fmt.Errorf("seed attach tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with demo data",
		"email", SeedEmail,
		"password", SeedPassword,
		"posts", seedPosts,
	)
	return nil
}

// seedTerms inserts one row per name into a term table and returns the ids.
func seedTerms(ctx context.Context, tx *sql.Tx, table string, ownerID int64, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO `+table+` (owner_id, name) VALUES ($1, $2) RETURNING id`,
			ownerID, name,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("seed insert %s: %w", table, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// sentence returns n random filler words with a capital first letter.
func sentence(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = seedWords[rand.IntN(len(seedWords))]
	}
	s := strings.Join(words, " ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}
