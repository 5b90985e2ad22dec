package database

import (
	"strings"
	"testing"
)

func TestSeedIdempotent(t *testing.T) {
	db := connectOrSkip(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	// Seed only writes when the demo account is missing, so calling it
	// twice must leave exactly one demo account behind.
	if err := Seed(db); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := Seed(db); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	var accounts int
	if err := db.QueryRow("SELECT COUNT(*) FROM accounts WHERE email = $1", SeedEmail).Scan(&accounts); err != nil {
		t.Fatalf("count demo accounts: %v", err)
	}
	if accounts != 1 {
		t.Errorf("demo accounts = %d, want 1", accounts)
	}

	var verified bool
	var profiles int
	err := db.QueryRow(`
		SELECT a.is_verified, COUNT(p.id)
		FROM accounts a LEFT JOIN profiles p ON p.account_id = a.id
		WHERE a.email = $1 GROUP BY a.id
	`, SeedEmail).Scan(&verified, &profiles)
	if err != nil {
		t.Fatalf("load demo account: %v", err)
	}
	if !verified {
		t.Error("demo account should be verified")
	}
	if profiles != 1 {
		t.Errorf("demo profiles = %d, want 1", profiles)
	}

	var posts int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM posts po
		JOIN profiles p ON p.id = po.author_id
		JOIN accounts a ON a.id = p.account_id
		WHERE a.email = $1
	`, SeedEmail).Scan(&posts)
	if err != nil {
		t.Fatalf("count demo posts: %v", err)
	}
	if posts != seedPosts {
		t.Errorf("demo posts = %d, want %d", posts, seedPosts)
	}
}

func TestSentence(t *testing.T) {
	s := sentence(4)
	if !strings.HasSuffix(s, ".") {
		t.Errorf("sentence should end with a period: %q", s)
	}
	if got := len(strings.Fields(s)); got != 4 {
		t.Errorf("word count = %d, want 4", got)
	}
	if s[:1] != strings.ToUpper(s[:1]) {
		t.Errorf("sentence should start upper-case: %q", s)
	}
}
