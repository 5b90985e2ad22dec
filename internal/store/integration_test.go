//go:build integration

package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"inkpress/internal/database"
	"inkpress/internal/models"
)

// setupContainerDB starts a throwaway PostgreSQL container, applies the
// migrations and returns a pool connected to it.
func setupContainerDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("inkpress"),
		postgres.WithUsername("inkpress"),
		postgres.WithPassword("inkpress"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func TestContainerBlogFlow(t *testing.T) {
	db := setupContainerDB(t)
	ctx := context.Background()

	accounts := NewAccountStore(db)
	profiles := NewProfileStore(db)
	posts := NewPostStore(db)
	cats := NewCategoryStore(db)
	tags := NewTagStore(db)

	a, err := accounts.Create(ctx, "a@Example.com", "Strong#123", models.AccountFlags{})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", a.Email)

	p, err := profiles.FindByAccount(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, p)

	published := &models.Post{AuthorID: p.ID, Title: "Hello", Content: "one two three", Status: true, PublishedDate: time.Now()}
	draft := &models.Post{AuthorID: p.ID, Title: "Hidden", Content: "secret", PublishedDate: time.Now()}
	require.NoError(t, posts.Create(ctx, published))
	require.NoError(t, posts.Create(ctx, draft))

	dev, created, err := cats.GetOrCreate(ctx, a.ID, "Dev")
	require.NoError(t, err)
	assert.True(t, created)
	useful, _, err := tags.GetOrCreate(ctx, a.ID, "Useful")
	require.NoError(t, err)

	require.NoError(t, posts.SetCategories(ctx, published.ID, []int64{dev.ID}))
	require.NoError(t, posts.SetTags(ctx, published.ID, []int64{useful.ID}))
	require.NoError(t, posts.SetTags(ctx, draft.ID, []int64{useful.ID}))

	list, total, err := posts.List(ctx, models.PostFilter{TagIDs: []int64{useful.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, published.ID, list[0].ID)
	require.Len(t, list[0].Categories, 1)
	assert.Equal(t, "Dev", list[0].Categories[0].Name)
	assert.Equal(t, a.ID, list[0].Categories[0].OwnerID)

	all, _ := cats.List(ctx)
	assert.Len(t, all, 1)
}
